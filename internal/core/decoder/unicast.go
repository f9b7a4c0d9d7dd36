package decoder

import (
	"fmt"

	"firestige.xyz/batadv/internal/core"
)

func (s *state) unicast(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoUnicast

	version := buf.Data()[1]
	switch {
	case version >= 6 && version <= 13:
		s.unicastV6(buf)
	case version == 14 || version == 15:
		s.unicastV14(buf)
	default:
		s.unsupported(buf, version)
	}
}

func (s *state) unicastV6(buf *core.Buffer) {
	if s.truncated(buf, 0, unicastV6Size, "unicast header") {
		return
	}
	node := s.instance(buf, "batadv.unicast", 0, unicastV6Size, "")
	w := newWalker(buf, 0, node)

	var h UnicastHeader
	packetType(w, "BATADV_UNICAST")
	h.Type = typeV5Unicast
	h.Version = w.u8("version")
	h.Dest = w.addr("dst")
	h.TTL = w.u8("ttl")

	s.unicastCommit(buf, w.off, node, h)
}

func (s *state) unicastV14(buf *core.Buffer) {
	if s.truncated(buf, 0, unicastV14Size, "unicast header") {
		return
	}
	node := s.instance(buf, "batadv.unicast", 0, unicastV14Size, "")
	w := newWalker(buf, 0, node)

	var h UnicastHeader
	h.Type = buf.Data()[0]
	packetType(w, "BATADV_UNICAST")
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.TTVN = w.u8("ttvn")
	h.Dest = w.addr("dst")

	s.unicastCommit(buf, w.off, node, h)
}

func (s *state) unicastCommit(buf *core.Buffer, off int, node *core.Node, h UnicastHeader) {
	s.addr.SetDestination(h.Dest)
	s.tree.Info = ""
	node.Text = fmt.Sprintf("B.A.T.M.A.N. Unicast, Dst: %s", h.Dest)
	s.tap(h)
	s.payload(buf, off)
}

func (s *state) unicast4Addr(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoUnicast4Addr

	version := buf.Data()[1]
	switch version {
	case 14, 15:
		s.unicast4AddrV14(buf)
	default:
		s.unsupported(buf, version)
	}
}

func (s *state) unicast4AddrV14(buf *core.Buffer) {
	if s.truncated(buf, 0, unicast4AddrSize, "unicast 4addr header") {
		return
	}
	node := s.instance(buf, "batadv.unicast_4addr", 0, unicast4AddrSize, "")
	w := newWalker(buf, 0, node)

	var h Unicast4AddrHeader
	h.Type = buf.Data()[0]
	packetType(w, "BATADV_UNICAST_4ADDR")
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.TTVN = w.u8("ttvn")
	h.Dest = w.addr("dst")
	h.Src = w.addr("src")
	h.Subtype = w.enum("subtype", unicast4AddrSubtypes)
	h.Reserved = buf.Data()[w.off]
	w.skip(1)

	s.addr.SetDestination(h.Dest)
	s.addr.SetSource(h.Src)
	s.tree.Info = unicast4AddrSubtypes.name(h.Subtype)
	node.Text = fmt.Sprintf("B.A.T.M.A.N. Unicast 4Addr, Dst: %s", h.Dest)
	s.tap(h)
	s.payload(buf, w.off)
}

func (s *state) unicastTVLV(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoUnicastTVLV

	version := buf.Data()[1]
	switch version {
	case 15:
		s.unicastTVLVV15(buf)
	default:
		s.unsupported(buf, version)
	}
}

func (s *state) unicastTVLVV15(buf *core.Buffer) {
	if s.truncated(buf, 0, unicastTVLVV15Size, "unicast TVLV header") {
		return
	}
	node := s.instance(buf, "batadv.unicast_tvlv", 0, unicastTVLVV15Size, "")
	w := newWalker(buf, 0, node)

	var h UnicastTVLVHeader
	h.Type = buf.Data()[0]
	packetType(w, "BATADV_UNICAST_TVLV")
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.Reserved = buf.Data()[w.off]
	w.skip(1)
	h.Dest = w.addr("dst")
	s.addr.SetDestination(h.Dest)
	h.Src = w.addr("src")
	s.addr.SetSource(h.Src)
	h.TVLVLen = w.u16("tvlv_len")
	h.Align, _ = buf.Uint16(w.off)
	w.skip(2)

	s.tree.Info = ""
	node.Text = fmt.Sprintf("B.A.T.M.A.N. Unicast TVLV, Src: %s Dst: %s", h.Src, h.Dest)
	node.Length = unicastTVLVV15Size + int(h.TVLVLen)
	s.tap(h)

	off := s.tvlvRegion(buf, w.off, int(h.TVLVLen), node)
	s.data(buf, off)
}
