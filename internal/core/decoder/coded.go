package decoder

import (
	"firestige.xyz/batadv/internal/core"
)

func (s *state) coded(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoCoded

	version := buf.Data()[1]
	switch version {
	case 15:
		s.codedV15(buf)
	default:
		s.unsupported(buf, version)
	}
}

// codedV15 decodes a network coded packet. The coded payload is the XOR of
// two unicasts and cannot be decoded further without the other packet.
func (s *state) codedV15(buf *core.Buffer) {
	if s.truncated(buf, 0, codedV15Size, "coded header") {
		return
	}
	node := s.instance(buf, "batadv.coded", 0, codedV15Size, "B.A.T.M.A.N. Coded")
	w := newWalker(buf, 0, node)

	var h CodedHeader
	h.Type = buf.Data()[0]
	packetType(w, "BATADV_CODED")
	h.Version = w.u8("version")
	h.FirstTTL = w.u8("ttl")
	h.FirstTTVN = w.u8("first_ttvn")
	h.FirstSource = w.addr("first_source")
	h.FirstOrigDest = w.addr("first_orig_dest")
	h.FirstCRC = w.u32("first_crc")
	h.SecondTTL = w.u8("second_ttl")
	h.SecondTTVN = w.u8("second_ttvn")
	h.SecondDest = w.addr("second_dest")
	h.SecondSource = w.addr("second_source")
	h.SecondOrigDest = w.addr("second_orig_dest")
	h.SecondCRC = w.u32("second_crc")
	h.CodedLen = w.u16("coded_len")

	s.addr.SetSource(h.FirstSource)
	s.addr.SetDestination(h.FirstOrigDest)
	s.tap(h)

	s.rest(buf, w.off)
}
