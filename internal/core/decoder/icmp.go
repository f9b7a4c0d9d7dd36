package decoder

import (
	"fmt"

	"firestige.xyz/batadv/internal/core"
)

func (s *state) icmp(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoICMP

	version := buf.Data()[1]
	switch {
	case version == 6:
		s.icmpV6(buf)
	case version >= 7 && version <= 13:
		s.icmpV7(buf)
	case version == 14:
		s.icmpV14(buf)
	case version == 15:
		s.icmpV15(buf)
	default:
		s.unsupported(buf, version)
	}
}

func (s *state) icmpV6(buf *core.Buffer) {
	if s.truncated(buf, 0, icmpV6Size, "ICMP header") {
		return
	}
	node := s.instance(buf, "batadv.icmp", 0, icmpV6Size, "")
	w := newWalker(buf, 0, node)

	var h ICMPHeader
	packetType(w, "BATADV_ICMP")
	h.Type = typeV5ICMP
	h.Version = w.u8("version")
	h.MsgType = w.enum("msg_type", icmpMsgTypes)
	h.Dst = w.addr("dst")
	h.Orig = w.addr("orig")
	h.TTL = w.u8("ttl")
	h.UID = w.u8("uid")
	h.Seqno = uint32(w.u16("seqno"))

	s.icmpCommit(node, h, "B.A.T.M.A.N. ICMP")
	s.tap(h)
	s.data(buf, w.off)
}

func (s *state) icmpV7(buf *core.Buffer) {
	if s.truncated(buf, 0, icmpV7Size, "ICMP header") {
		return
	}
	node := s.instance(buf, "batadv.icmp", 0, icmpV7Size, "")
	w := newWalker(buf, 0, node)

	var h ICMPHeader
	packetType(w, "BATADV_ICMP")
	h.Type = typeV5ICMP
	h.Version = w.u8("version")
	h.MsgType = w.enum("msg_type", icmpMsgTypes)
	h.TTL = w.u8("ttl")
	h.Dst = w.addr("dst")
	h.Orig = w.addr("orig")
	h.Seqno = uint32(w.u16("seqno"))
	h.UID = w.u8("uid")

	s.icmpCommit(node, h, "B.A.T.M.A.N. ICMP")
	off := s.routeRecord(buf, w.off, node)
	s.tap(h)
	s.data(buf, off)
}

func (s *state) icmpV14(buf *core.Buffer) {
	if s.truncated(buf, 0, icmpV14Size, "ICMP header") {
		return
	}
	node := s.instance(buf, "batadv.icmp", 0, icmpV14Size, "")
	w := newWalker(buf, 0, node)

	var h ICMPHeader
	packetType(w, "BATADV_ICMP")
	h.Type = typeV5ICMP
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.MsgType = w.enum("msg_type", icmpMsgTypes)
	h.Dst = w.addr("dst")
	h.Orig = w.addr("orig")
	h.Seqno = uint32(w.u16("seqno"))
	h.UID = w.u8("uid")
	w.skip(1)

	s.icmpCommit(node, h, "B.A.T.M.A.N. ICMP")
	off := s.routeRecord(buf, w.off, node)
	s.tap(h)
	s.data(buf, off)
}

func (s *state) icmpV15(buf *core.Buffer) {
	if s.truncated(buf, 0, 4, "ICMP header") {
		return
	}
	if buf.Data()[3] == icmpTP {
		s.icmpTPV15(buf)
		return
	}

	if s.truncated(buf, 0, icmpV15Size, "ICMP header") {
		return
	}
	node := s.instance(buf, "batadv.icmp", 0, icmpV15Size, "")
	w := newWalker(buf, 0, node)

	var h ICMPHeader
	h.Type = buf.Data()[0]
	packetType(w, "BATADV_ICMP")
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.MsgType = w.enum("msg_type", icmpMsgTypes)
	h.Dst = w.addr("dst")
	h.Orig = w.addr("orig")
	h.UID = w.u8("uid")
	h.RRPtr = w.u8("rr_pointer")
	h.Seqno = uint32(w.u16("seqno"))

	s.icmpCommit(node, h, "B.A.T.M.A.N. ICMP")
	off := w.off
	if buf.Remaining(off) >= rrSize {
		s.routeEntries(buf, off, int(h.RRPtr), node.Add(core.NewNode(buf, "batadv.icmp.rr", off, rrSize)))
		off += rrSize
	}
	s.tap(h)
	s.data(buf, off)
}

func (s *state) icmpTPV15(buf *core.Buffer) {
	if s.truncated(buf, 0, icmpTPV15Size, "ICMP TP header") {
		return
	}
	node := s.instance(buf, "batadv.icmp", 0, icmpTPV15Size, "")
	w := newWalker(buf, 0, node)

	var h ICMPHeader
	h.Type = buf.Data()[0]
	packetType(w, "BATADV_ICMP")
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.MsgType = w.enum("msg_type", icmpMsgTypes)
	h.Dst = w.addr("dst")
	h.Orig = w.addr("orig")
	h.UID = w.u8("uid")
	h.TPSubtype = w.enum("tp.subtype", tpSubtypes)
	h.Session = w.u16("tp.session")
	h.Seqno = w.u32("tp.seqno")
	h.Timestamp = w.u32("tp.timestamp")

	s.icmpCommit(node, h, "B.A.T.M.A.N. ICMP TP")
	s.tap(h)
	s.data(buf, w.off)
}

// icmpCommit publishes the endpoints and the summary of an ICMP packet.
func (s *state) icmpCommit(node *core.Node, h ICMPHeader, title string) {
	s.addr.SetSource(h.Orig)
	s.addr.SetDestination(h.Dst)
	s.tree.Info = fmt.Sprintf("[%s] Seq=%d", icmpMsgTypes.name(h.MsgType), h.Seqno)
	node.Text = fmt.Sprintf("%s, Orig: %s, Dst: %s", title, h.Orig, h.Dst)
}

// routeRecord decodes the legacy route record: a pointer byte and sixteen
// addresses. It returns the offset after the block, which is consumed even
// when the pointer is out of range.
func (s *state) routeRecord(buf *core.Buffer, off int, parent *core.Node) int {
	if buf.Remaining(off) < 1+rrSize {
		return off
	}
	ptr := int(buf.Data()[off])
	if ptr >= 1 && ptr <= rrLen {
		rr := parent.Add(core.NewNode(buf, "batadv.icmp.rr", off, 1+rrSize))
		rr.Text = "ICMP RR"
		p := rr.Add(core.NewNode(buf, "batadv.icmp.rr.pointer", off, 1))
		p.Value = uint8(ptr)
		s.routeEntries(buf, off+1, ptr, rr)
	}
	return off + 1 + rrSize
}

// routeEntries renders sixteen addresses; entries past the pointer are
// placeholders and the entry at the pointer is the current hop.
func (s *state) routeEntries(buf *core.Buffer, off, ptr int, rr *core.Node) {
	rr.Text = "ICMP RR"
	ptr--
	for i := 0; i < rrLen; i++ {
		addr, _ := buf.HardwareAddr(off)
		e := rr.Add(core.NewNode(buf, "batadv.icmp.rr.entry", off, 6))
		e.Value = addr
		text := addr.String()
		if i > ptr {
			text = "-"
		}
		if i == ptr {
			text += " <- (current)"
		}
		e.Text = text
		off += 6
	}
}
