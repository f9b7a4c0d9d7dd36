package decoder

import (
	"hash/crc32"

	"firestige.xyz/batadv/internal/core"
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// crc32cRaw continues a CRC-32C register from seed over p without the
// usual pre and post inversion.
func crc32cRaw(seed uint32, p []byte) uint32 {
	return ^crc32.Update(^seed, castagnoliTable, p)
}

// ttChangeCRC returns the checksum contribution of one change record:
// the vid bytes, the flags byte and the address, chained from zero.
func ttChangeCRC(rec []byte) uint32 {
	c := crc32cRaw(0, rec[10:12])
	c = crc32cRaw(c, rec[0:1])
	return crc32cRaw(c, rec[4:10])
}

// vlanCRC XORs the contributions of all complete change records from off
// whose vid equals vid. It also returns how many records matched.
func vlanCRC(buf *core.Buffer, off int, vid uint16) (uint32, int) {
	var (
		crc     uint32
		matched int
	)
	for ; buf.Remaining(off) >= ttTVLVChange; off += ttTVLVChange {
		rec, _ := buf.Bytes(off, ttTVLVChange)
		if uint16(rec[10])<<8|uint16(rec[11]) != vid {
			continue
		}
		matched++
		crc ^= ttChangeCRC(rec)
	}
	return crc, matched
}
