package decoder

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/batadv/internal/core"
)

// PacketEther decodes the plain Ethernet frames carried inside batadv
// payloads with gopacket. It is safe for concurrent use.
type PacketEther struct {
	pool sync.Pool
}

var _ EtherDecoder = (*PacketEther)(nil)

// etherLayers is one reusable set of preallocated layers.
type etherLayers struct {
	parser  *gopacket.DecodingLayerParser
	eth     layers.Ethernet
	dot1q   layers.Dot1Q
	arp     layers.ARP
	ipv4    layers.IPv4
	ipv6    layers.IPv6
	icmp4   layers.ICMPv4
	icmp6   layers.ICMPv6
	udp     layers.UDP
	tcp     layers.TCP
	decoded []gopacket.LayerType
}

// NewPacketEther creates the Ethernet collaborator.
func NewPacketEther() *PacketEther {
	p := &PacketEther{}
	p.pool.New = func() any {
		l := &etherLayers{decoded: make([]gopacket.LayerType, 0, 8)}
		l.parser = gopacket.NewDecodingLayerParser(
			layers.LayerTypeEthernet,
			&l.eth, &l.dot1q, &l.arp,
			&l.ipv4, &l.ipv6, &l.icmp4, &l.icmp6,
			&l.udp, &l.tcp)
		l.parser.IgnoreUnsupported = true
		return l
	}
	return p
}

// DecodeEthernet adds one node per decoded layer. Bytes no layer claimed
// stay as data; a layer that fails to decode marks the rest malformed.
func (p *PacketEther) DecodeEthernet(payload *core.Buffer, tree *core.Tree) {
	l := p.pool.Get().(*etherLayers)
	defer p.pool.Put(l)

	err := l.parser.DecodeLayers(payload.Data(), &l.decoded)

	off := 0
	for _, typ := range l.decoded {
		var (
			node *core.Node
			n    int
		)
		switch typ {
		case layers.LayerTypeEthernet:
			n = len(l.eth.Contents)
			node = etherNode(payload, off, n)
		case layers.LayerTypeDot1Q:
			n = len(l.dot1q.Contents)
			node = dot1qNode(payload, off, n, &l.dot1q)
		case layers.LayerTypeARP:
			n = len(l.arp.Contents)
			node = arpNode(payload, off, n, &l.arp)
		case layers.LayerTypeIPv4:
			n = len(l.ipv4.Contents)
			node = core.NewNode(payload, "ip", off, n)
			node.Text = fmt.Sprintf("Internet Protocol Version 4, Src: %s, Dst: %s", l.ipv4.SrcIP, l.ipv4.DstIP)
			addLeaf(node, payload, "ip.src", off+12, 4, l.ipv4.SrcIP.String())
			addLeaf(node, payload, "ip.dst", off+16, 4, l.ipv4.DstIP.String())
			addLeaf(node, payload, "ip.proto", off+9, 1, uint8(l.ipv4.Protocol))
			addLeaf(node, payload, "ip.ttl", off+8, 1, l.ipv4.TTL)
		case layers.LayerTypeIPv6:
			n = len(l.ipv6.Contents)
			node = core.NewNode(payload, "ipv6", off, n)
			node.Text = fmt.Sprintf("Internet Protocol Version 6, Src: %s, Dst: %s", l.ipv6.SrcIP, l.ipv6.DstIP)
			addLeaf(node, payload, "ipv6.src", off+8, 16, l.ipv6.SrcIP.String())
			addLeaf(node, payload, "ipv6.dst", off+24, 16, l.ipv6.DstIP.String())
			addLeaf(node, payload, "ipv6.nxt", off+6, 1, uint8(l.ipv6.NextHeader))
			addLeaf(node, payload, "ipv6.hlim", off+7, 1, l.ipv6.HopLimit)
		case layers.LayerTypeICMPv4:
			n = len(l.icmp4.Contents)
			node = core.NewNode(payload, "icmp", off, n)
			node.Text = fmt.Sprintf("Internet Control Message Protocol, %s", l.icmp4.TypeCode)
		case layers.LayerTypeICMPv6:
			n = len(l.icmp6.Contents)
			node = core.NewNode(payload, "icmpv6", off, n)
			node.Text = fmt.Sprintf("Internet Control Message Protocol v6, %s", l.icmp6.TypeCode)
		case layers.LayerTypeUDP:
			n = len(l.udp.Contents)
			node = core.NewNode(payload, "udp", off, n)
			node.Text = fmt.Sprintf("User Datagram Protocol, Src Port: %d, Dst Port: %d", l.udp.SrcPort, l.udp.DstPort)
			addLeaf(node, payload, "udp.srcport", off, 2, uint16(l.udp.SrcPort))
			addLeaf(node, payload, "udp.dstport", off+2, 2, uint16(l.udp.DstPort))
		case layers.LayerTypeTCP:
			n = len(l.tcp.Contents)
			node = core.NewNode(payload, "tcp", off, n)
			node.Text = fmt.Sprintf("Transmission Control Protocol, Src Port: %d, Dst Port: %d, Seq: %d",
				l.tcp.SrcPort, l.tcp.DstPort, l.tcp.Seq)
			addLeaf(node, payload, "tcp.srcport", off, 2, uint16(l.tcp.SrcPort))
			addLeaf(node, payload, "tcp.dstport", off+2, 2, uint16(l.tcp.DstPort))
		default:
			continue
		}
		tree.Add(node)
		off += n
	}

	rest := payload.Remaining(off)
	if rest == 0 {
		return
	}
	b, _ := payload.Bytes(off, rest)
	d := tree.Add(core.NewNode(payload, core.NodeData, off, rest))
	d.Value = append([]byte(nil), b...)

	var unsupported gopacket.UnsupportedLayerType
	if err != nil && !errors.As(err, &unsupported) {
		d.Annotate(core.SeverityError, core.CodeMalformed, "ethernet payload: %v", err)
	}
}

func etherNode(payload *core.Buffer, off, n int) *core.Node {
	dst, _ := payload.HardwareAddr(off)
	src, _ := payload.HardwareAddr(off + 6)
	typ, _ := payload.Uint16(off + 12)

	node := core.NewNode(payload, "eth", off, n)
	node.Text = fmt.Sprintf("Ethernet II, Src: %s, Dst: %s", src, dst)
	addLeaf(node, payload, "eth.dst", off, 6, dst)
	addLeaf(node, payload, "eth.src", off+6, 6, src)
	t := addLeaf(node, payload, "eth.type", off+12, 2, typ)
	t.Text = layers.EthernetType(typ).String()
	return node
}

func dot1qNode(payload *core.Buffer, off, n int, q *layers.Dot1Q) *core.Node {
	node := core.NewNode(payload, "vlan", off, n)
	node.Text = fmt.Sprintf("802.1Q Virtual LAN, PRI: %d, ID: %d", q.Priority, q.VLANIdentifier)
	addLeaf(node, payload, "vlan.id", off, 2, q.VLANIdentifier)
	addLeaf(node, payload, "vlan.etype", off+2, 2, uint16(q.Type))
	return node
}

func arpNode(payload *core.Buffer, off, n int, a *layers.ARP) *core.Node {
	node := core.NewNode(payload, "arp", off, n)
	op := "request"
	if a.Operation == layers.ARPReply {
		op = "reply"
	}
	node.Text = fmt.Sprintf("Address Resolution Protocol (%s), %s is at %s",
		op, net.IP(a.SourceProtAddress), net.HardwareAddr(a.SourceHwAddress))
	addLeaf(node, payload, "arp.opcode", off+6, 2, a.Operation)
	return node
}

func addLeaf(parent *core.Node, payload *core.Buffer, name string, off, n int, v any) *core.Node {
	leaf := parent.Add(core.NewNode(payload, name, off, n))
	leaf.Value = v
	return leaf
}
