package decoder

import (
	"fmt"

	"firestige.xyz/batadv/internal/core"
)

func (s *state) ivOGM(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoIVOGM

	version := buf.Data()[1]
	switch version {
	case 15:
		s.loop(buf, ivOGMV15Size, "IV OGM header", s.ivOGMV15)
	default:
		s.unsupported(buf, version)
	}
}

func (s *state) ivOGMV15(buf *core.Buffer, off int) int {
	if !isInstance(buf, off, typeV15IVOGM) {
		return -1
	}
	node := s.instance(buf, "batadv.iv_ogm", off, ivOGMV15Size, "")
	w := newWalker(buf, off, node)

	var h IVOGMHeader
	packetType(w, "BATADV_IV_OGM")
	h.Type = typeV15IVOGM
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	h.Flags = w.flags("flags", ivOGMFlags)
	h.Seqno = w.u32("seqno")
	s.tree.Info = fmt.Sprintf("Seq=%d", h.Seqno)
	h.Orig = w.addr("orig")
	s.addr.SetSource(h.Orig)
	h.PrevSender = w.addr("prev_sender")
	h.Reserved, _ = buf.Uint8(w.off)
	w.skip(1)
	h.TQ = w.u8("tq")
	h.TVLVLen = w.u16("tvlv_len")

	node.Text = fmt.Sprintf("B.A.T.M.A.N. IV OGM, Orig: %s", h.Orig)
	node.Length = ivOGMV15Size + int(h.TVLVLen)
	s.tap(h)

	return s.tvlvRegion(buf, w.off, int(h.TVLVLen), node)
}

func (s *state) ogm2(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoOGM2

	version := buf.Data()[1]
	switch version {
	case 15:
		s.loop(buf, ogm2V15Size, "OGM2 header", s.ogm2V15)
	default:
		s.unsupported(buf, version)
	}
}

func (s *state) ogm2V15(buf *core.Buffer, off int) int {
	if !isInstance(buf, off, typeV15OGM2) {
		return -1
	}
	node := s.instance(buf, "batadv.ogm2", off, ogm2V15Size, "")
	w := newWalker(buf, off, node)

	var h OGM2Header
	packetType(w, "BATADV_OGM2")
	h.Type = typeV15OGM2
	h.Version = w.u8("version")
	h.TTL = w.u8("ttl")
	if f := w.field("flags", 1); f != nil {
		h.Flags = buf.Data()[w.off-1]
		f.Value = h.Flags
		f.Text = fmt.Sprintf("0x%02x", h.Flags)
	}
	h.Seqno = w.u32("seqno")
	s.tree.Info = fmt.Sprintf("Seq=%d", h.Seqno)
	h.Orig = w.addr("orig")
	s.addr.SetSource(h.Orig)
	h.TVLVLen = w.u16("tvlv_len")
	h.Throughput = w.u32("throughput")
	if tp := node.Find("batadv.ogm2.throughput"); tp != nil {
		tp.Text = throughputText(h.Throughput)
	}

	node.Text = fmt.Sprintf("B.A.T.M.A.N. OGM2, Orig: %s", h.Orig)
	node.Length = ogm2V15Size + int(h.TVLVLen)
	s.tap(h)

	return s.tvlvRegion(buf, w.off, int(h.TVLVLen), node)
}

func (s *state) elp(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoELP

	version := buf.Data()[1]
	switch version {
	case 15:
		s.elpV15(buf)
	default:
		s.unsupported(buf, version)
	}
}

func (s *state) elpV15(buf *core.Buffer) {
	if s.truncated(buf, 0, elpV15Size, "ELP header") {
		return
	}
	node := s.instance(buf, "batadv.elp", 0, elpV15Size, "")
	w := newWalker(buf, 0, node)

	var h ELPHeader
	packetType(w, "BATADV_ELP")
	h.Type = typeV15ELP
	h.Version = w.u8("version")
	h.Orig = w.addr("orig")
	s.addr.SetSource(h.Orig)
	h.Seqno = w.u32("seqno")
	s.tree.Info = fmt.Sprintf("Seq=%d", h.Seqno)
	h.Interval = w.u32("interval")
	if iv := node.Find("batadv.elp.interval"); iv != nil {
		iv.Text = fmt.Sprintf("%d ms", h.Interval)
	}

	node.Text = fmt.Sprintf("B.A.T.M.A.N. ELP, Orig: %s", h.Orig)
	s.tap(h)

	s.rest(buf, w.off)
}

// tvlvRegion follows and decodes a TVLV region of n bytes at off and
// returns the offset after it.
func (s *state) tvlvRegion(buf *core.Buffer, off, n int, parent *core.Node) int {
	if n == 0 {
		return off
	}
	region := buf.Slice(off, n)
	if region.Len() < n {
		parent.Annotate(core.SeverityError, core.CodeMalformed,
			"tvlv region declares %d bytes, have %d", n, region.Len())
	}
	s.follow(region)
	s.tvlv(region, parent)
	return off + n
}

// throughputText renders a value in 100 kbit/s units.
func throughputText(v uint32) string {
	return fmt.Sprintf("%d.%d Mbit/s", v/10, v%10)
}
