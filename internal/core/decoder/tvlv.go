package decoder

import (
	"fmt"

	"firestige.xyz/batadv/internal/core"
)

// tvlv decodes a chain of type-version-length-value records. The stored
// length excludes the 4-byte record header.
func (s *state) tvlv(buf *core.Buffer, parent *core.Node) {
	off := 0
	for buf.Remaining(off) >= tvlvHeaderSize {
		typ := buf.Data()[off]
		version := buf.Data()[off+1]
		stored, _ := buf.Uint16(off + 2)
		length := int(stored) + tvlvHeaderSize

		rec := buf.Slice(off, length)
		node := parent.Add(core.NewNode(rec, "batadv.tvlv", 0, rec.Len()))
		node.Text = fmt.Sprintf("TVLV, %s", tvlvTypes.name(typ))
		if rec.Len() < length {
			node.Annotate(core.SeverityError, core.CodeMalformed,
				"tvlv record declares %d bytes, have %d", length, rec.Len())
		}

		w := newWalker(rec, 0, node)
		w.enum("type", tvlvTypes)
		w.u8("version")
		w.u16("len")

		switch typ {
		case tvlvGW:
			s.tvlvGateway(w, version)
		case tvlvDAT, tvlvNC:
			s.tvlvEmpty(w, version)
		case tvlvTT:
			s.tvlvTranslationTable(w, version)
		case tvlvRoam:
			s.tvlvRoaming(w, version)
		case tvlvMCast:
			s.tvlvMulticast(w, version)
		default:
			// Unknown records are kept whole, header included.
			d := node.Add(core.NewNode(rec, core.NodeData, 0, rec.Len()))
			d.Value = append([]byte(nil), rec.Data()...)
		}
		off += length
	}
}

// knownVersion reports whether a record version is decodable and warns on
// the record otherwise.
func knownVersion(w *walker, version uint8, accepted ...uint8) bool {
	for _, v := range accepted {
		if version == v {
			return true
		}
	}
	w.node.Annotate(core.SeverityWarn, core.CodeTVLVUnknownVersion, "Unknown version (0x%02x)", version)
	return false
}

func (s *state) tvlvEmpty(w *walker, version uint8) {
	knownVersion(w, version, 1)
}

func (s *state) tvlvGateway(w *walker, version uint8) {
	if !knownVersion(w, version, 1) {
		return
	}
	for _, name := range []string{"gw.download", "gw.upload"} {
		v, _ := w.buf.Uint32(w.off)
		if f := w.field(name, 4); f != nil {
			f.Value = v
			f.Text = fmt.Sprintf("%d.%dMbit", v/10, v%10)
		}
	}
}

func (s *state) tvlvRoaming(w *walker, version uint8) {
	if !knownVersion(w, version, 1) {
		return
	}
	w.addr("roam.addr")
	w.vid("roam.vid")
}

func (s *state) tvlvMulticast(w *walker, version uint8) {
	if !knownVersion(w, version, 1, 2) {
		return
	}
	w.flags("mcast.flags", mcastFlags)
	w.skip(3)
}

func (s *state) tvlvTranslationTable(w *walker, version uint8) {
	if !knownVersion(w, version, 1) {
		return
	}
	rec := w.buf

	ttFlags := w.flags("tt.flags", tvlvTTFlags)
	if f := w.node.Find("batadv.tvlv.tt.flags"); f != nil {
		t := f.Add(core.NewNode(rec, "batadv.tvlv.tt.flags.type", w.off-1, 1))
		t.Value = ttFlags & 0x0f
		t.Text = tvlvTTTypes.name(ttFlags & 0x0f)
	}
	w.u8("tt.ttvn")
	numVLAN := int(w.u16("tt.num_vlan"))
	if w.err != nil {
		return
	}

	changes := w.off + numVLAN*ttVLANSize
	off := w.off
	for i := 0; i < numVLAN; i++ {
		if rec.Remaining(off) < ttVLANSize {
			w.node.Annotate(core.SeverityError, core.CodeMalformed,
				"tt vlan %d of %d needs %d bytes, have %d", i+1, numVLAN, ttVLANSize, rec.Remaining(off))
			return
		}
		s.ttVLAN(rec, off, ttFlags, changes, w.node)
		off += ttVLANSize
	}

	for rec.Remaining(off) > 0 {
		if rec.Remaining(off) < ttTVLVChange {
			w.node.Annotate(core.SeverityError, core.CodeMalformed,
				"tt change needs %d bytes, have %d", ttTVLVChange, rec.Remaining(off))
			return
		}
		s.ttChange(rec, off, w.node)
		off += ttTVLVChange
	}
}

// ttVLAN decodes one VLAN record and checks its CRC against the change
// records that start at changes.
func (s *state) ttVLAN(rec *core.Buffer, off int, ttFlags uint8, changes int, parent *core.Node) {
	vid, _ := rec.Uint16(off + 4)
	node := parent.Add(core.NewNode(rec, "batadv.tvlv.tt.vlan", off, ttVLANSize))
	node.Text = fmt.Sprintf("VLAN, %04x", vid)

	w := newWalker(rec, off, node)
	stored := w.u32("crc")
	crcNode := node.Find("batadv.tvlv.tt.vlan.crc")
	crcNode.Text = fmt.Sprintf("0x%08x", stored)
	w.vid("vid")
	w.skip(2)

	status := node.Add(core.NewNode(rec, "batadv.tvlv.tt.vlan.crc.status", off, 4))
	if ttFlags != tvlvTTVerifyFlags {
		status.Value = "unverified"
		crcNode.Annotate(core.SeverityNote, core.CodeVLANCRCUnverified,
			"checksum not verifiable on tt flags 0x%02x", ttFlags)
		return
	}

	computed, matched := vlanCRC(rec, changes, vid)
	if computed == stored {
		status.Value = "good"
		crcNode.Annotate(core.SeverityNote, core.CodeVLANCRCGood, "checksum 0x%08x correct", computed)
	} else {
		status.Value = "bad"
		crcNode.Annotate(core.SeverityError, core.CodeVLANCRCBad,
			"checksum 0x%08x incorrect, should be 0x%08x", stored, computed)
	}
	if matched == 0 {
		node.Annotate(core.SeverityWarn, core.CodeVLANEmpty, "VLAN has no TT entries")
	}
}

// ttChange decodes one 12-byte change record.
func (s *state) ttChange(rec *core.Buffer, off int, parent *core.Node) {
	addr, _ := rec.HardwareAddr(off + 4)
	node := parent.Add(core.NewNode(rec, "batadv.tvlv.tt.change", off, ttTVLVChange))
	node.Text = fmt.Sprintf("Entry, %s", addr)

	w := newWalker(rec, off, node)
	w.flags("flags", tvlvTTChangeFlags)
	w.skip(3)
	w.addr("addr")
	w.vid("vid")
}
