// Package decoder implements the B.A.T.M.A.N. Advanced protocol decoder.
package decoder

import (
	"fmt"
	"log/slog"
	"time"

	"firestige.xyz/batadv/internal/core"
)

// Options configures a Decoder. The zero value decodes into trees without
// any observers and hands inner frames to the opaque data node.
type Options struct {
	Ether      EtherDecoder // Decoder for plain Ethernet payloads (nil = data)
	Taps       []Tap
	Follows    []Follow
	Reassembly ReassemblyConfig
	Logger     *slog.Logger
}

// Decoder turns batadv payloads into trees. It owns one fragment assembly
// table; frames of unrelated streams should use separate decoders.
type Decoder struct {
	ether   EtherDecoder
	taps    []Tap
	follows []Follow
	frags   *Reassembler
	logger  *slog.Logger
}

// New creates a decoder and starts its reassembly janitor.
func New(opts Options) *Decoder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		ether:   opts.Ether,
		taps:    opts.Taps,
		follows: opts.Follows,
		frags:   NewReassembler(opts.Reassembly),
		logger:  logger.With("component", "batadv-decoder"),
	}
}

// Decode decodes one payload that starts at the batadv type byte.
// addr may be nil.
func (d *Decoder) Decode(data []byte, addr *core.Addressing) *core.Tree {
	return d.DecodeAt(data, addr, time.Now())
}

// DecodeAt is Decode with an explicit capture timestamp, used to age
// fragment assemblies on capture time when replaying files.
func (d *Decoder) DecodeAt(data []byte, addr *core.Addressing, ts time.Time) *core.Tree {
	if addr == nil {
		addr = &core.Addressing{}
	}
	s := &state{
		d:    d,
		tree: &core.Tree{},
		addr: addr,
		ts:   ts,
	}
	s.dispatch(core.NewBuffer(data))
	return s.tree
}

// Reassembler exposes the fragment assembly table.
func (d *Decoder) Reassembler() *Reassembler { return d.frags }

// Close stops the reassembly janitor and drops pending assemblies.
func (d *Decoder) Close() error {
	return d.frags.Close()
}

// state is the per-call decoding context.
type state struct {
	d    *Decoder
	tree *core.Tree
	addr *core.Addressing
	ts   time.Time
}

func (s *state) dispatch(buf *core.Buffer) {
	if buf.Len() < 2 {
		s.tree.Protocol = core.ProtoUnknown
		s.malformed(buf, 0, "need 2 bytes for type and version, have %d", buf.Len())
		return
	}
	typ := buf.Data()[0]
	if buf.Data()[1] < versionEpoch15 {
		s.dispatchV5(buf, typ)
	} else {
		s.dispatchV15(buf, typ)
	}
}

func (s *state) dispatchV5(buf *core.Buffer, typ uint8) {
	switch typ {
	case typeV5Batman:
		s.batman(buf)
	case typeV5ICMP:
		s.icmp(buf)
	case typeV5Unicast:
		s.unicast(buf)
	case typeV5Bcast:
		s.bcast(buf)
	case typeV5Vis:
		s.vis(buf)
	case typeV5UnicastFrag:
		s.unicastFrag(buf)
	case typeV5TTQuery:
		s.ttQuery(buf)
	case typeV5RoamAdv:
		s.roamAdv(buf)
	case typeV5Unicast4Addr:
		s.unicast4Addr(buf)
	default:
		s.unknown(buf)
	}
}

func (s *state) dispatchV15(buf *core.Buffer, typ uint8) {
	switch typ {
	case typeV15IVOGM:
		s.ivOGM(buf)
	case typeV15Bcast:
		s.bcast(buf)
	case typeV15Coded:
		s.coded(buf)
	case typeV15ELP:
		s.elp(buf)
	case typeV15OGM2:
		s.ogm2(buf)
	case typeV15Unicast:
		s.unicast(buf)
	case typeV15UnicastFrag:
		s.unicastFrag(buf)
	case typeV15Unicast4Addr:
		s.unicast4Addr(buf)
	case typeV15ICMP:
		s.icmp(buf)
	case typeV15UnicastTVLV:
		s.unicastTVLV(buf)
	default:
		s.unknown(buf)
	}
}

func (s *state) unknown(buf *core.Buffer) {
	s.tree.Protocol = core.ProtoUnknown
	s.data(buf, 0)
}

// unsupported renders a known family with an unknown version.
func (s *state) unsupported(buf *core.Buffer, version uint8) {
	s.tree.Info = fmt.Sprintf("Unsupported Version %d", version)
	s.data(buf, 0)
}

// data hands the bytes from off to the end to an opaque data node.
func (s *state) data(buf *core.Buffer, off int) *core.Node {
	rest := buf.Remaining(off)
	if rest == 0 {
		return nil
	}
	b, _ := buf.Bytes(off, rest)
	n := core.NewNode(buf, core.NodeData, off, rest)
	n.Value = append([]byte(nil), b...)
	return s.tree.Add(n)
}

// malformed reports a block that did not fit and keeps the rest as data.
func (s *state) malformed(buf *core.Buffer, off int, format string, args ...any) {
	n := s.data(buf, off)
	if n == nil {
		n = s.tree.Add(core.NewNode(buf, core.NodeData, off, 0))
	}
	n.Annotate(core.SeverityError, core.CodeMalformed, format, args...)
}

// truncated checks that a fixed block of size bytes fits at off.
func (s *state) truncated(buf *core.Buffer, off, size int, what string) bool {
	if buf.Remaining(off) >= size {
		return false
	}
	s.malformed(buf, off, "%s needs %d bytes, have %d", what, size, buf.Remaining(off))
	return true
}

func (s *state) tap(hdr Header) {
	for _, t := range s.d.taps {
		t.Tap(hdr, *s.addr)
	}
}

func (s *state) follow(payload *core.Buffer) {
	for _, f := range s.d.follows {
		f.Follow(payload)
	}
}

// ether hands a plain Ethernet payload to the configured collaborator.
func (s *state) ether(payload *core.Buffer) {
	if payload.Len() == 0 {
		return
	}
	if s.d.ether == nil {
		s.data(payload, 0)
		return
	}
	s.d.ether.DecodeEthernet(payload, s.tree)
}

// payload follows and decodes the Ethernet frame after a header.
func (s *state) payload(buf *core.Buffer, off int) {
	if buf.Remaining(off) == 0 {
		return
	}
	next := buf.Slice(off, -1)
	s.follow(next)
	s.ether(next)
}

// rest follows the bytes after a header and keeps them as data.
func (s *state) rest(buf *core.Buffer, off int) {
	if buf.Remaining(off) == 0 {
		return
	}
	s.follow(buf.Slice(off, -1))
	s.data(buf, off)
}

// instance adds a top-level node for one packet instance.
func (s *state) instance(buf *core.Buffer, name string, off, n int, format string, args ...any) *core.Node {
	if rest := buf.Remaining(off); n > rest {
		n = rest
	}
	node := core.NewNode(buf, name, off, n)
	node.Text = fmt.Sprintf(format, args...)
	return s.tree.Add(node)
}

// packetType adds the leading type byte rendered with its family name.
func packetType(w *walker, label string) {
	typ, _ := w.buf.Uint8(w.off)
	if f := w.field("packet_type", 1); f != nil {
		f.Value = typ
		f.Text = fmt.Sprintf("%s (%d)", label, typ)
	}
}
