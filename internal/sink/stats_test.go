package sink

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"firestige.xyz/batadv/internal/core"
	"firestige.xyz/batadv/internal/core/decoder"
)

func TestStats_Summary(t *testing.T) {
	s := NewStats()
	s.Tap(elpHeader(1), core.Addressing{})
	s.Tap(elpHeader(2), core.Addressing{})
	s.Tap(batmanHeader(origA, 1, 1), core.Addressing{})
	s.Tap(decoder.BatmanHeader{Common: decoder.Common{Type: 0x01, Version: 5}}, core.Addressing{})

	assert.Equal(t, []HeaderCount{
		{Protocol: core.ProtoBatman, Version: 5, Count: 1},
		{Protocol: core.ProtoBatman, Version: 14, Count: 1},
		{Protocol: core.ProtoELP, Version: 15, Count: 2},
	}, s.Summary())
	assert.Equal(t, uint64(4), s.Total())
}

func TestStats_Concurrent(t *testing.T) {
	s := NewStats()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Tap(elpHeader(uint32(j)), core.Addressing{})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(800), s.Total())
}
