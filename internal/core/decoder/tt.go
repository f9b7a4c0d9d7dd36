package decoder

import (
	"fmt"

	"firestige.xyz/batadv/internal/core"
)

func (s *state) ttQuery(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoTTQuery

	version := buf.Data()[1]
	switch version {
	case 14:
		s.ttQueryV14(buf)
	default:
		s.unsupported(buf, version)
	}
}

func (s *state) ttQueryV14(buf *core.Buffer) {
	if s.truncated(buf, 0, ttQueryV14Size, "TT query header") {
		return
	}
	node := s.instance(buf, "batadv.tt_query", 0, ttQueryV14Size, "")
	w := newWalker(buf, 0, node)

	var h TTQueryHeader
	packetType(w, "BATADV_TT_QUERY")
	h.Type = typeV5TTQuery
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.Flags = w.flags("flags", ttQueryFlags)
	if f := node.Find("batadv.tt_query.flags"); f != nil {
		t := f.Add(core.NewNode(buf, "batadv.tt_query.flags.type", 3, 1))
		t.Value = h.QueryType()
		t.Text = ttQueryTypes.name(h.QueryType())
	}
	h.Dst = w.addr("dst")
	h.Src = w.addr("src")
	h.TTVN = w.u8("ttvn")
	h.TTData, _ = buf.Uint16(w.off)

	s.addr.SetDestination(h.Dst)
	s.addr.SetSource(h.Src)
	switch h.QueryType() {
	case ttQueryRequest:
		w.u16("tt_crc")
		s.tree.Info = fmt.Sprintf("Request=%d", h.TTVN)
	case ttQueryResponse:
		w.u16("entries")
		s.tree.Info = fmt.Sprintf("Response=%d", h.TTVN)
	default:
		w.skip(2)
		s.tree.Info = fmt.Sprintf("Unsupported Type %d", h.QueryType())
	}
	node.Text = fmt.Sprintf("B.A.T.M.A.N. TT Query, Dst: %s", h.Dst)
	s.tap(h)

	off := w.off
	if h.QueryType() == ttQueryResponse {
		off = s.entries(buf, off, int(h.TTData), ttChangeSize, "TT entry", node, s.ttEntryV14)
	}
	s.rest(buf, off)
}

func (s *state) roamAdv(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoRoamAdv

	version := buf.Data()[1]
	switch version {
	case 14:
		s.roamAdvV14(buf)
	default:
		s.unsupported(buf, version)
	}
}

func (s *state) roamAdvV14(buf *core.Buffer) {
	if s.truncated(buf, 0, roamAdvV14Size, "roaming advertisement header") {
		return
	}
	node := s.instance(buf, "batadv.roam_adv", 0, roamAdvV14Size, "")
	w := newWalker(buf, 0, node)

	var h RoamAdvHeader
	packetType(w, "BATADV_ROAM_ADV")
	h.Type = typeV5RoamAdv
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.Reserved = buf.Data()[w.off]
	w.skip(1)
	h.Dst = w.addr("dst")
	h.Src = w.addr("src")
	h.Client = w.addr("client")

	s.addr.SetDestination(h.Dst)
	s.addr.SetSource(h.Src)
	s.tree.Info = fmt.Sprintf("Client %s", h.Client)
	node.Text = fmt.Sprintf("B.A.T.M.A.N. Roam: %s", h.Client)
	s.tap(h)

	s.rest(buf, w.off)
}
