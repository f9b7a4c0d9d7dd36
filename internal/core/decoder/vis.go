package decoder

import (
	"fmt"

	"firestige.xyz/batadv/internal/core"
)

// Visualization entry sizes.
const (
	visEntryV6Size = 7
	visEntryV8Size = 13
)

func (s *state) vis(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoVis

	version := buf.Data()[1]
	switch version {
	case 6, 7, 8, 9:
		s.visV6(buf)
	case 10, 11, 12, 13:
		s.visV10(buf)
	case 14:
		s.visV14(buf)
	default:
		s.unsupported(buf, version)
	}
}

func (s *state) visV6(buf *core.Buffer) {
	if s.truncated(buf, 0, visV6Size, "vis header") {
		return
	}
	node := s.instance(buf, "batadv.vis", 0, visV6Size, "")
	w := newWalker(buf, 0, node)

	var h VisHeader
	packetType(w, "BATADV_VIS")
	h.Type = typeV5Vis
	h.Version = w.u8("version")
	h.VisType = w.enum("vis_type", visTypes)
	h.Seqno = uint32(w.u8("seqno"))
	h.Entries = w.u8("entries")
	h.TTL = w.u8("ttl")
	h.VisOrig = w.addr("vis_orig")
	h.TargetOrig = w.addr("target_orig")
	h.SenderOrig = w.addr("sender_orig")

	s.visCommit(node, h)
	if h.Version <= 7 {
		s.visEntries(buf, w.off, int(h.Entries), visEntryV6Size, node, s.visEntryV6)
		return
	}
	s.visEntries(buf, w.off, int(h.Entries), visEntryV8Size, node, s.visEntryV8)
}

func (s *state) visV10(buf *core.Buffer) {
	if s.truncated(buf, 0, visV10Size, "vis header") {
		return
	}
	node := s.instance(buf, "batadv.vis", 0, visV10Size, "")
	w := newWalker(buf, 0, node)

	var h VisHeader
	packetType(w, "BATADV_VIS")
	h.Type = typeV5Vis
	h.Version = w.u8("version")
	h.VisType = w.enum("vis_type", visTypes)
	h.Entries = w.u8("entries")
	h.Seqno = w.u32("seqno")
	h.TTL = w.u8("ttl")
	h.VisOrig = w.addr("vis_orig")
	h.TargetOrig = w.addr("target_orig")
	h.SenderOrig = w.addr("sender_orig")

	s.visCommit(node, h)
	s.visEntries(buf, w.off, int(h.Entries), visEntryV8Size, node, s.visEntryV8)
}

func (s *state) visV14(buf *core.Buffer) {
	if s.truncated(buf, 0, visV14Size, "vis header") {
		return
	}
	node := s.instance(buf, "batadv.vis", 0, visV14Size, "")
	w := newWalker(buf, 0, node)

	var h VisHeader
	packetType(w, "BATADV_VIS")
	h.Type = typeV5Vis
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.VisType = w.enum("vis_type", visTypes)
	h.Seqno = w.u32("seqno")
	h.Entries = w.u8("entries")
	w.skip(1)
	h.VisOrig = w.addr("vis_orig")
	h.TargetOrig = w.addr("target_orig")
	h.SenderOrig = w.addr("sender_orig")

	s.visCommit(node, h)
	s.visEntries(buf, w.off, int(h.Entries), visEntryV8Size, node, s.visEntryV8)
}

// visCommit publishes the three visualization endpoints. The sender is
// only the link-layer source; the network source is the vis originator.
func (s *state) visCommit(node *core.Node, h VisHeader) {
	s.addr.Src = h.VisOrig
	s.addr.SetDestination(h.TargetOrig)
	s.addr.DLSrc = h.SenderOrig
	s.tree.Info = fmt.Sprintf("[%s] Seq=%d", visTypes.name(h.VisType), h.Seqno)
	node.Text = fmt.Sprintf("B.A.T.M.A.N. Vis, Orig: %s", h.VisOrig)
	s.tap(h)
}

// visEntries decodes the neighbor entries and hands the remainder to data.
func (s *state) visEntries(buf *core.Buffer, off, count, size int, parent *core.Node, decode func(*core.Buffer, *core.Node)) {
	off = s.entries(buf, off, count, size, "vis entry", parent, decode)
	s.rest(buf, off)
}

func (s *state) visEntryV6(entry *core.Buffer, parent *core.Node) {
	node := parent.Add(core.NewNode(entry, "batadv.vis.entry", 0, visEntryV6Size))
	w := newWalker(entry, 0, node)
	dst := w.addr("dst")
	w.u8("quality")
	node.Text = fmt.Sprintf("VIS Entry: %s", dst)
}

func (s *state) visEntryV8(entry *core.Buffer, parent *core.Node) {
	node := parent.Add(core.NewNode(entry, "batadv.vis.entry", 0, visEntryV8Size))
	w := newWalker(entry, 0, node)
	w.addr("src")
	dst := w.addr("dst")
	w.u8("quality")
	node.Text = fmt.Sprintf("VIS Entry: %s", dst)
}
