package decoder

import (
	"hash/crc32"
	"testing"

	"firestige.xyz/batadv/internal/core"
)

// independentVLANCRC recomputes a VLAN checksum by concatenating the
// covered bytes of each change record instead of chaining registers.
func independentVLANCRC(changes ...[]byte) uint32 {
	table := crc32.MakeTable(crc32.Castagnoli)
	var crc uint32
	for _, rec := range changes {
		msg := append(append(append([]byte{}, rec[10:12]...), rec[0]), rec[4:10]...)
		crc ^= ^crc32.Update(^uint32(0), table, msg)
	}
	return crc
}

func TestCRC32CRawKnownVector(t *testing.T) {
	// The standard CRC-32C check value applies pre and post inversion.
	got := crc32cRaw(0xffffffff, []byte("123456789")) ^ 0xffffffff
	if got != 0xe3069283 {
		t.Fatalf("crc32c(123456789) = %#08x, want 0xe3069283", got)
	}
}

func TestCRC32CRawChains(t *testing.T) {
	whole := crc32cRaw(0, []byte("abcdef"))
	chained := crc32cRaw(crc32cRaw(0, []byte("abc")), []byte("def"))
	if whole != chained {
		t.Fatalf("chained %#08x != whole %#08x", chained, whole)
	}
}

func TestVLANCRC(t *testing.T) {
	c1 := ttChangeRecord(0x02, clientD, 0x8001)
	c2 := ttChangeRecord(0x00, origA, 0x0002)
	c3 := ttChangeRecord(0x20, origB, 0x8001)
	buf := core.NewBuffer(pkt().raw(c1).raw(c2).raw(c3).u8(0xff).bytes())

	crc, matched := vlanCRC(buf, 0, 0x8001)
	if matched != 2 {
		t.Fatalf("matched = %d, want 2", matched)
	}
	if want := independentVLANCRC(c1, c3); crc != want {
		t.Errorf("crc = %#08x, want %#08x", crc, want)
	}

	if crc, matched := vlanCRC(buf, 0, 0x0009); crc != 0 || matched != 0 {
		t.Errorf("unmatched vid: crc %#08x matched %d", crc, matched)
	}
}
