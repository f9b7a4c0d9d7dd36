package sink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/batadv/internal/core"
	"firestige.xyz/batadv/internal/core/decoder"
)

func batmanHeader(orig core.HardwareAddr, seqno uint32, tq uint8) decoder.BatmanHeader {
	return decoder.BatmanHeader{
		Common:     decoder.Common{Type: 0x01, Version: 14},
		TQ:         tq,
		Seqno:      seqno,
		Orig:       orig,
		PrevSender: origB,
		HasGW:      true,
		Downlink:   64,
		Uplink:     16,
	}
}

func TestOriginators_TracksAnnouncements(t *testing.T) {
	o := NewOriginators(time.Minute)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	o.now = func() time.Time { return clock }

	o.Tap(batmanHeader(origA, 1, 200), core.Addressing{})
	clock = base.Add(time.Second)
	o.Tap(batmanHeader(origA, 2, 210), core.Addressing{})

	got, ok := o.Get(origA)
	require.True(t, ok)
	assert.Equal(t, core.ProtoBatman, got.Protocol)
	assert.Equal(t, uint8(14), got.Version)
	assert.Equal(t, uint32(2), got.Seqno)
	assert.Equal(t, uint8(210), got.TQ)
	assert.Equal(t, origB, got.PrevSender)
	assert.Equal(t, uint32(64), got.Downlink)
	assert.Equal(t, uint64(2), got.Messages)
	assert.Equal(t, base, got.FirstSeen)
	assert.Equal(t, base.Add(time.Second), got.LastSeen)
}

func TestOriginators_ELPKeepsOGMQuality(t *testing.T) {
	o := NewOriginators(time.Minute)

	o.Tap(decoder.OGM2Header{Common: decoder.Common{Type: 0x04, Version: 15}, Orig: origA, Seqno: 5, Throughput: 100}, core.Addressing{})
	o.Tap(elpHeader(6), core.Addressing{})

	got, ok := o.Get(origA)
	require.True(t, ok)
	assert.Equal(t, core.ProtoELP, got.Protocol)
	assert.Equal(t, uint32(6), got.Seqno)
	assert.Equal(t, uint32(100), got.Throughput)
	assert.Equal(t, uint32(500), got.Interval)

	o.Tap(decoder.OGM2Header{Common: decoder.Common{Type: 0x04, Version: 15}, Orig: origA, Seqno: 7, Throughput: 120}, core.Addressing{})
	got, _ = o.Get(origA)
	assert.Equal(t, uint32(500), got.Interval)
	assert.Equal(t, uint32(120), got.Throughput)
	assert.Equal(t, uint64(3), got.Messages)
}

func TestOriginators_IgnoresOtherHeaders(t *testing.T) {
	o := NewOriginators(time.Minute)
	o.Tap(decoder.UnicastHeader{Common: decoder.Common{Type: 0x40, Version: 15}, Dest: origA}, core.Addressing{})
	o.Tap(decoder.BcastHeader{Common: decoder.Common{Type: 0x01, Version: 15}, Orig: origA}, core.Addressing{})
	assert.Zero(t, o.Len())
	assert.Empty(t, o.List())
}

func TestOriginators_ListIsSorted(t *testing.T) {
	o := NewOriginators(time.Minute)
	o.Tap(batmanHeader(origB, 1, 1), core.Addressing{})
	o.Tap(decoder.IVOGMHeader{Common: decoder.Common{Version: 15}, Orig: origA, Seqno: 3, TQ: 255}, core.Addressing{})

	list := o.List()
	require.Len(t, list, 2)
	assert.Equal(t, origA, list[0].Addr)
	assert.Equal(t, core.ProtoIVOGM, list[0].Protocol)
	assert.Equal(t, uint8(255), list[0].TQ)
	assert.Equal(t, origB, list[1].Addr)
}

func TestOriginators_Expiry(t *testing.T) {
	o := NewOriginators(20 * time.Millisecond)
	o.Tap(batmanHeader(origA, 1, 1), core.Addressing{})
	require.Equal(t, 1, o.Len())

	time.Sleep(50 * time.Millisecond)
	_, ok := o.Get(origA)
	assert.False(t, ok)
	assert.Empty(t, o.List())

	o.Expire()
	assert.Zero(t, o.Len())
}
