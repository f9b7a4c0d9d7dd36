package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestBufferReads(t *testing.T) {
	b := NewBuffer([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})

	t.Run("Uint8", func(t *testing.T) {
		v, err := b.Uint8(0)
		if err != nil || v != 0x01 {
			t.Fatalf("Uint8(0) = %#x, %v", v, err)
		}
	})

	t.Run("Uint16", func(t *testing.T) {
		v, err := b.Uint16(1)
		if err != nil || v != 0x0203 {
			t.Fatalf("Uint16(1) = %#x, %v", v, err)
		}
	})

	t.Run("Uint32", func(t *testing.T) {
		v, err := b.Uint32(4)
		if err != nil || v != 0x05060708 {
			t.Fatalf("Uint32(4) = %#x, %v", v, err)
		}
	})

	t.Run("HardwareAddr", func(t *testing.T) {
		a, err := b.HardwareAddr(2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.String() != "03:04:05:06:07:08" {
			t.Errorf("got %s", a)
		}
	})

	t.Run("PastEnd", func(t *testing.T) {
		if _, err := b.Uint32(6); !errors.Is(err, ErrPacketTooShort) {
			t.Errorf("expected ErrPacketTooShort, got %v", err)
		}
		if _, err := b.HardwareAddr(3); !errors.Is(err, ErrPacketTooShort) {
			t.Errorf("expected ErrPacketTooShort, got %v", err)
		}
		if _, err := b.Bytes(-1, 1); !errors.Is(err, ErrPacketTooShort) {
			t.Errorf("expected ErrPacketTooShort for negative offset, got %v", err)
		}
	})
}

func TestBufferRemaining(t *testing.T) {
	b := NewBuffer(make([]byte, 10))
	cases := []struct {
		off  int
		want int
	}{
		{0, 10}, {4, 6}, {10, 0}, {12, 0}, {-1, 0},
	}
	for _, c := range cases {
		if got := b.Remaining(c.off); got != c.want {
			t.Errorf("Remaining(%d) = %d, want %d", c.off, got, c.want)
		}
	}
}

func TestBufferSliceKeepsOrigin(t *testing.T) {
	b := NewBuffer([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})

	s := b.Slice(4, 3)
	if s.Len() != 3 || s.Origin() != 4 {
		t.Fatalf("Slice(4,3): len=%d origin=%d", s.Len(), s.Origin())
	}
	inner := s.Slice(1, -1)
	if inner.Origin() != 5 || inner.Len() != 2 {
		t.Fatalf("nested slice: len=%d origin=%d", inner.Len(), inner.Origin())
	}
	if inner.Abs(1) != 6 {
		t.Errorf("Abs(1) = %d, want 6", inner.Abs(1))
	}

	clamped := b.Slice(8, 100)
	if clamped.Len() != 2 {
		t.Errorf("clamped slice len = %d, want 2", clamped.Len())
	}
	empty := b.Slice(20, 4)
	if empty.Len() != 0 {
		t.Errorf("out of range slice len = %d, want 0", empty.Len())
	}
}

func TestHardwareAddrText(t *testing.T) {
	a := HardwareAddr{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}
	out, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"de:ad:be:ef:00:01"` {
		t.Errorf("json = %s", out)
	}

	var back HardwareAddr
	if err := back.UnmarshalText([]byte("de:ad:be:ef:00:01")); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != a {
		t.Errorf("round trip mismatch: %s", back)
	}
	if err := back.UnmarshalText([]byte("00:11:22:33:44:55:66:77")); err == nil {
		t.Error("expected error for 8-byte address")
	}
	if !(HardwareAddr{}).IsZero() || a.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestAddressingSetters(t *testing.T) {
	var ctx Addressing
	src := HardwareAddr{1, 1, 1, 1, 1, 1}
	dst := HardwareAddr{2, 2, 2, 2, 2, 2}
	ctx.SetSource(src)
	ctx.SetDestination(dst)
	if ctx.Src != src || ctx.DLSrc != src {
		t.Errorf("source not set on both levels: %+v", ctx)
	}
	if ctx.Dst != dst || ctx.DLDst != dst {
		t.Errorf("destination not set on both levels: %+v", ctx)
	}
}

func TestTreeFindAndAnnotations(t *testing.T) {
	buf := NewBuffer(make([]byte, 8))
	var tree Tree
	root := tree.Add(NewNode(buf, "batadv.batman", 0, 8))
	root.Add(NewNode(buf, "batadv.batman.seqno", 2, 2)).Value = uint16(7)
	entry := root.Add(NewNode(buf, "batadv.tt.entry", 4, 2))
	entry.Annotate(SeverityWarn, CodeMalformed, "short by %d", 4)
	root.Add(NewNode(buf, "batadv.tt.entry", 6, 2))

	if n := tree.Find("batadv.batman.seqno"); n == nil || n.Value != uint16(7) {
		t.Fatalf("Find seqno = %+v", n)
	}
	if got := len(tree.FindAll("batadv.tt.entry")); got != 2 {
		t.Errorf("FindAll = %d, want 2", got)
	}
	if !tree.HasAnnotation(CodeMalformed) {
		t.Error("expected malformed annotation")
	}
	anns := tree.Annotations()
	if len(anns) != 1 || anns[0].Message != "short by 4" || anns[0].Severity != SeverityWarn {
		t.Errorf("annotations = %+v", anns)
	}
	if tree.Find("missing") != nil {
		t.Error("Find on missing name should be nil")
	}
}

func TestSeverityString(t *testing.T) {
	if SeverityNote.String() != "note" || SeverityWarn.String() != "warn" || SeverityError.String() != "error" {
		t.Error("unexpected severity names")
	}
	if Severity(9).String() != "severity(9)" {
		t.Errorf("unknown severity = %s", Severity(9))
	}
}
