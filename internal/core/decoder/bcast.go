package decoder

import (
	"fmt"

	"firestige.xyz/batadv/internal/core"
)

func (s *state) bcast(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoBcast

	version := buf.Data()[1]
	switch version {
	case 6, 7, 8, 9:
		s.bcastV6(buf)
	case 10, 11, 12, 13:
		s.bcastV10(buf)
	case 14, 15:
		s.bcastV14(buf)
	default:
		s.unsupported(buf, version)
	}
}

func (s *state) bcastV6(buf *core.Buffer) {
	if s.truncated(buf, 0, bcastV6Size, "broadcast header") {
		return
	}
	node := s.instance(buf, "batadv.bcast", 0, bcastV6Size, "")
	w := newWalker(buf, 0, node)

	var h BcastHeader
	packetType(w, "BATADV_BCAST")
	h.Type = typeV5Bcast
	h.Version = w.u8("version")
	h.Orig = w.addr("orig")
	h.Seqno = uint32(w.u16("seqno"))

	s.bcastCommit(buf, w.off, node, h)
}

func (s *state) bcastV10(buf *core.Buffer) {
	if s.truncated(buf, 0, bcastV10Size, "broadcast header") {
		return
	}
	node := s.instance(buf, "batadv.bcast", 0, bcastV10Size, "")
	w := newWalker(buf, 0, node)

	var h BcastHeader
	packetType(w, "BATADV_BCAST")
	h.Type = typeV5Bcast
	h.Version = w.u8("version")
	h.Orig = w.addr("orig")
	h.TTL = w.u8("ttl")
	h.Seqno = w.u32("seqno")

	s.bcastCommit(buf, w.off, node, h)
}

func (s *state) bcastV14(buf *core.Buffer) {
	if s.truncated(buf, 0, bcastV14Size, "broadcast header") {
		return
	}
	node := s.instance(buf, "batadv.bcast", 0, bcastV14Size, "")
	w := newWalker(buf, 0, node)

	var h BcastHeader
	h.Type = buf.Data()[0]
	packetType(w, "BATADV_BCAST")
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.Reserved = buf.Data()[w.off]
	w.skip(1)
	h.Seqno = w.u32("seqno")
	h.Orig = w.addr("orig")

	s.bcastCommit(buf, w.off, node, h)
}

func (s *state) bcastCommit(buf *core.Buffer, off int, node *core.Node, h BcastHeader) {
	s.addr.SetSource(h.Orig)
	s.tree.Info = fmt.Sprintf("Seq=%d", h.Seqno)
	node.Text = fmt.Sprintf("B.A.T.M.A.N. Bcast, Orig: %s", h.Orig)
	s.tap(h)
	s.payload(buf, off)
}
