package decoder

import (
	"errors"
	"fmt"

	"firestige.xyz/batadv/internal/core"
)

func (s *state) unicastFrag(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoUnicastFrag

	version := buf.Data()[1]
	switch version {
	case 12, 13:
		s.unicastFragV12(buf)
	case 14:
		s.unicastFragV14(buf)
	case 15:
		s.unicastFragV15(buf)
	default:
		s.unsupported(buf, version)
	}
}

func (s *state) unicastFragV12(buf *core.Buffer) {
	if s.truncated(buf, 0, fragV12Size, "unicast fragment header") {
		return
	}
	node := s.instance(buf, "batadv.unicast_frag", 0, fragV12Size, "")
	w := newWalker(buf, 0, node)

	var h UnicastFragHeader
	packetType(w, "BATADV_UNICAST_FRAG")
	h.Type = typeV5UnicastFrag
	h.Version = w.u8("version")
	h.Dest = w.addr("dst")
	h.TTL = w.u8("ttl")
	h.Flags = w.flags("flags", fragFlags)
	h.Orig = w.addr("orig")
	h.Seqno = w.u16("seqno")

	s.fragCommit(node, h)
	s.legacyFragment(buf, w.off, node, h)
}

func (s *state) unicastFragV14(buf *core.Buffer) {
	if s.truncated(buf, 0, fragV14Size, "unicast fragment header") {
		return
	}
	node := s.instance(buf, "batadv.unicast_frag", 0, fragV14Size, "")
	w := newWalker(buf, 0, node)

	var h UnicastFragHeader
	packetType(w, "BATADV_UNICAST_FRAG")
	h.Type = typeV5UnicastFrag
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.TTVN = w.u8("ttvn")
	h.Dest = w.addr("dst")
	h.Flags = w.flags("flags", fragFlags)
	w.skip(1)
	h.Orig = w.addr("orig")
	h.Seqno = w.u16("seqno")

	s.fragCommit(node, h)
	s.legacyFragment(buf, w.off, node, h)
}

func (s *state) unicastFragV15(buf *core.Buffer) {
	if s.truncated(buf, 0, fragV15Size, "unicast fragment header") {
		return
	}
	node := s.instance(buf, "batadv.unicast_frag", 0, fragV15Size, "")
	w := newWalker(buf, 0, node)

	var h UnicastFragHeader
	h.Type = buf.Data()[0]
	packetType(w, "BATADV_UNICAST_FRAG")
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.No, _ = buf.Uint8(w.off)
	if f := w.field("no", 1); f != nil {
		f.Value = h.FragmentNumber()
		prio := f.Add(core.NewNode(buf, "batadv.unicast_frag.priority", w.off-1, 1))
		prio.Value = h.No & 0x0f
	}
	h.Dest = w.addr("dst")
	h.Orig = w.addr("orig")
	h.Seqno = w.u16("seqno")
	h.TotalSize = w.u16("total_size")

	s.fragCommit(node, h)

	no := int(h.FragmentNumber())
	if no > 1 {
		node.Annotate(core.SeverityNote, core.CodeFragUnsupported,
			"fragment number %d not supported, only 2 fragments are reassembled", no)
		return
	}

	s.reassemble(buf, w.off, node, Fragment{
		Key:   FragmentKey{Src: s.addr.Src, Dst: s.addr.Dst, ID: uint32(h.Seqno)},
		Index: 1 - no,
		Sized: true,
		Total: int(h.TotalSize),
	}, s.redispatch)
}

// fragCommit publishes the endpoints of a fragment and taps its header.
func (s *state) fragCommit(node *core.Node, h UnicastFragHeader) {
	s.addr.SetDestination(h.Dest)
	s.addr.SetSource(h.Orig)
	s.tree.Info = ""
	node.Text = fmt.Sprintf("B.A.T.M.A.N. Unicast Fragment, Dst: %s", h.Dest)
	s.tap(h)
}

// legacyFragment feeds a head or tail of the two-part layouts. The tail
// carries the head's seqno plus one, modulo 2^16; folding the head flag
// into the id pairs them.
func (s *state) legacyFragment(buf *core.Buffer, off int, node *core.Node, h UnicastFragHeader) {
	head := int(h.Flags & fragHeadFlag)
	s.reassemble(buf, off, node, Fragment{
		Key:   FragmentKey{Src: s.addr.Src, Dst: s.addr.Dst, ID: uint32(h.Seqno + uint16(head))},
		Index: 1 - head,
		Last:  head == 0,
	}, s.ether)
}

// reassemble hands the fragment payload at off to the reassembler and
// delivers a completed set to next.
func (s *state) reassemble(buf *core.Buffer, off int, node *core.Node, f Fragment, next func(*core.Buffer)) {
	part := buf.Slice(off, -1)
	f.Payload = part.Data()
	if part.Len() > 0 {
		p := node.Add(core.NewNode(buf, "batadv.unicast_frag.payload", off, part.Len()))
		p.Text = fmt.Sprintf("Fragment %d, %d bytes", f.Index, part.Len())
	}

	data, complete, err := s.d.frags.Process(f, s.ts)
	if err != nil {
		reason := "limit"
		if errors.Is(err, core.ErrReassemblyRateLimited) {
			reason = "rate_limit"
		}
		node.Annotate(core.SeverityWarn, core.CodeFragRejected, "fragment rejected: %v", err)
		s.d.logger.Debug("fragment rejected",
			"src", f.Key.Src.String(), "id", f.Key.ID, "reason", reason, "error", err)
		return
	}
	if !complete {
		return
	}
	s.d.logger.Debug("fragment set reassembled",
		"src", f.Key.Src.String(), "dst", f.Key.Dst.String(), "id", f.Key.ID, "size", len(data))

	whole := core.NewSourceBuffer(core.SourceReassembled, data)
	r := s.tree.Add(core.NewNode(whole, core.NodeReassembled, 0, whole.Len()))
	r.Text = fmt.Sprintf("Reassembled Message (%d bytes)", whole.Len())
	s.follow(whole)
	next(whole)
}

// redispatch decodes a reassembled v15 payload, which is itself a batadv
// packet. The outer protocol label is kept when the inner packet is empty.
func (s *state) redispatch(whole *core.Buffer) {
	if whole.Len() == 0 {
		return
	}
	s.dispatch(whole)
}
