package decoder

import (
	"fmt"

	"firestige.xyz/batadv/internal/core"
)

// instanceFunc decodes one instance at off and returns the offset after it,
// or -1 when the bytes at off are padding or belong to another type.
type instanceFunc func(buf *core.Buffer, off int) int

// loop decodes back-to-back instances of a batching family.
func (s *state) loop(buf *core.Buffer, size int, what string, one instanceFunc) {
	off := 0
	for off != -1 && buf.Remaining(off) >= size {
		off = one(buf, off)
	}
	if off == 0 {
		s.truncated(buf, 0, size, what)
	}
}

// isInstance rejects padding runoff: a zero version or a foreign type.
func isInstance(buf *core.Buffer, off int, typ uint8) bool {
	b, err := buf.Bytes(off, 2)
	if err != nil {
		return false
	}
	return b[1] != 0 && b[0] == typ
}

func (s *state) batman(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoBatman

	version := buf.Data()[1]
	switch version {
	case 5, 6:
		s.loop(buf, batmanV5Size, "BATMAN header", s.batmanV5)
	case 7, 8:
		s.loop(buf, batmanV7Size, "BATMAN header", s.batmanV7)
	case 9:
		s.loop(buf, batmanV9Size, "BATMAN header", s.batmanV9)
	case 10, 12:
		s.loop(buf, batmanV10Size, "BATMAN header", s.batmanV10)
	case 11, 13:
		s.loop(buf, batmanV11Size, "BATMAN header", s.batmanV11)
	case 14:
		s.loop(buf, batmanV14Size, "BATMAN header", s.batmanV14)
	default:
		s.unsupported(buf, version)
	}
}

func (s *state) batmanV5(buf *core.Buffer, off int) int {
	if !isInstance(buf, off, typeV5Batman) {
		return -1
	}
	node := s.instance(buf, "batadv.batman", off, batmanV5Size, "")
	w := newWalker(buf, off, node)

	h := BatmanHeader{HasGW: true}
	packetType(w, "BATADV_PACKET")
	h.Type = typeV5Batman
	h.Version = w.u8("version")
	h.Flags = w.flags("flags", batmanFlagsV5)
	h.TTL = w.u8("ttl")
	h.GWFlags = w.gwFlags("gwflags")
	h.TQ = w.u8("tq")
	h.Seqno = uint32(w.u16("seqno"))
	h.Orig = w.addr("orig")
	h.PrevSender = w.addr("prev_sender")
	h.NumTT = w.u8("num_tt")
	w.skip(1)

	s.batmanCommit(node, &h)
	return s.entries(buf, w.off, int(h.NumTT), ttEntrySize, "TT entry", node, s.ttEntry)
}

func (s *state) batmanV7(buf *core.Buffer, off int) int {
	if !isInstance(buf, off, typeV5Batman) {
		return -1
	}
	node := s.instance(buf, "batadv.batman", off, batmanV7Size, "")
	w := newWalker(buf, off, node)

	var h BatmanHeader
	packetType(w, "BATADV_PACKET")
	h.Type = typeV5Batman
	h.Version = w.u8("version")
	h.Flags = w.flags("flags", batmanFlagsV5)
	h.TQ = w.u8("tq")
	h.Seqno = uint32(w.u16("seqno"))
	h.Orig = w.addr("orig")
	h.PrevSender = w.addr("prev_sender")
	h.TTL = w.u8("ttl")
	h.NumTT = w.u8("num_tt")

	s.batmanCommit(node, &h)
	return s.entries(buf, w.off, int(h.NumTT), ttEntrySize, "TT entry", node, s.ttEntry)
}

func (s *state) batmanV9(buf *core.Buffer, off int) int {
	if !isInstance(buf, off, typeV5Batman) {
		return -1
	}
	node := s.instance(buf, "batadv.batman", off, batmanV9Size, "")
	w := newWalker(buf, off, node)

	h := BatmanHeader{HasGW: true}
	packetType(w, "BATADV_PACKET")
	h.Type = typeV5Batman
	h.Version = w.u8("version")
	h.Flags = w.flags("flags", batmanFlagsV9)
	h.TQ = w.u8("tq")
	h.Seqno = uint32(w.u16("seqno"))
	h.Orig = w.addr("orig")
	h.PrevSender = w.addr("prev_sender")
	h.TTL = w.u8("ttl")
	h.NumTT = w.u8("num_tt")
	h.GWFlags = w.gwFlags("gwflags")
	w.skip(1)

	s.batmanCommit(node, &h)
	return s.entries(buf, w.off, int(h.NumTT), ttEntrySize, "TT entry", node, s.ttEntry)
}

func (s *state) batmanV10(buf *core.Buffer, off int) int {
	if !isInstance(buf, off, typeV5Batman) {
		return -1
	}
	node := s.instance(buf, "batadv.batman", off, batmanV10Size, "")
	w := newWalker(buf, off, node)

	h := BatmanHeader{HasGW: true}
	packetType(w, "BATADV_PACKET")
	h.Type = typeV5Batman
	h.Version = w.u8("version")
	h.Flags = w.flags("flags", batmanFlagsV9)
	h.TQ = w.u8("tq")
	h.Seqno = w.u32("seqno")
	h.Orig = w.addr("orig")
	h.PrevSender = w.addr("prev_sender")
	h.TTL = w.u8("ttl")
	h.NumTT = w.u8("num_tt")
	h.GWFlags = w.gwFlags("gwflags")
	w.skip(1)

	s.batmanCommit(node, &h)
	return s.entries(buf, w.off, int(h.NumTT), ttEntrySize, "TT entry", node, s.ttEntry)
}

func (s *state) batmanV11(buf *core.Buffer, off int) int {
	if !isInstance(buf, off, typeV5Batman) {
		return -1
	}
	node := s.instance(buf, "batadv.batman", off, batmanV11Size, "")
	w := newWalker(buf, off, node)

	var h BatmanHeader
	packetType(w, "BATADV_PACKET")
	h.Type = typeV5Batman
	h.Version = w.u8("version")
	h.Flags = w.flags("flags", batmanFlagsV9)
	h.TQ = w.u8("tq")
	h.Seqno = w.u32("seqno")
	h.Orig = w.addr("orig")
	h.PrevSender = w.addr("prev_sender")
	h.TTL = w.u8("ttl")
	h.NumTT = w.u8("num_tt")

	s.batmanCommit(node, &h)
	return s.entries(buf, w.off, int(h.NumTT), ttEntrySize, "TT entry", node, s.ttEntry)
}

func (s *state) batmanV14(buf *core.Buffer, off int) int {
	if !isInstance(buf, off, typeV5Batman) {
		return -1
	}
	node := s.instance(buf, "batadv.batman", off, batmanV14Size, "")
	w := newWalker(buf, off, node)

	h := BatmanHeader{HasGW: true}
	packetType(w, "BATADV_PACKET")
	h.Type = typeV5Batman
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.Flags = w.flags("flags", batmanFlagsV14)
	h.Seqno = w.u32("seqno")
	h.Orig = w.addr("orig")
	h.PrevSender = w.addr("prev_sender")
	h.GWFlags = w.gwFlags("gwflags")
	h.TQ = w.u8("tq")
	h.TTNumChanges = w.u8("tt_num_changes")
	h.TTVN = w.u8("ttvn")
	h.TTCRC = w.u16("tt_crc")

	s.batmanCommit(node, &h)
	next := s.entries(buf, w.off, int(h.TTNumChanges), ttChangeSize, "TT change", node, s.ttEntryV14)

	// Trailing bytes are data unless another instance starts there.
	if buf.Remaining(next) >= batmanV14Size && isInstance(buf, next, typeV5Batman) {
		return next
	}
	if buf.Remaining(next) > 0 {
		s.data(buf, next)
		return buf.Len()
	}
	return next
}

// batmanCommit publishes a decoded routing announcement.
func (s *state) batmanCommit(node *core.Node, h *BatmanHeader) {
	if h.HasGW {
		h.Downlink, h.Uplink = GatewaySpeeds(h.GWFlags)
	}
	s.addr.SetSource(h.Orig)
	s.tree.Info = fmt.Sprintf("Seq=%d", h.Seqno)
	node.Text = fmt.Sprintf("B.A.T.M.A.N., Orig: %s", h.Orig)
	s.tap(*h)
}

// entries decodes count fixed-size entries starting at off, following each
// one. A short entry turns the rest of the buffer into malformed data.
func (s *state) entries(buf *core.Buffer, off, count, size int, what string, parent *core.Node, decode func(*core.Buffer, *core.Node)) int {
	for i := 0; i < count; i++ {
		if buf.Remaining(off) < size {
			s.malformed(buf, off, "%s %d of %d needs %d bytes, have %d",
				what, i+1, count, size, buf.Remaining(off))
			return buf.Len()
		}
		entry := buf.Slice(off, size)
		s.follow(entry)
		decode(entry, parent)
		off += size
	}
	return off
}

// ttEntry decodes a 6-byte address-only entry.
func (s *state) ttEntry(entry *core.Buffer, parent *core.Node) {
	node := parent.Add(core.NewNode(entry, "batadv.tt.entry", 0, ttEntrySize))
	w := newWalker(entry, 0, node)
	addr := w.addr("addr")
	node.Text = fmt.Sprintf("B.A.T.M.A.N. TT: %s", addr)
}

// ttEntryV14 decodes a 7-byte flagged change entry.
func (s *state) ttEntryV14(entry *core.Buffer, parent *core.Node) {
	node := parent.Add(core.NewNode(entry, "batadv.tt.entry", 0, ttChangeSize))
	w := newWalker(entry, 0, node)
	w.flags("flags", ttEntryFlags)
	addr := w.addr("addr")
	node.Text = fmt.Sprintf("Entry: %s", addr)
}
