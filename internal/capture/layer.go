package capture

import (
	"sort"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// LayerTypeBatadv is the gopacket layer for the batadv payload of a frame.
var LayerTypeBatadv = gopacket.RegisterLayerType(4305, gopacket.LayerTypeMetadata{
	Name:    "Batadv",
	Decoder: gopacket.DecodeFunc(decodeBatadv),
})

// Batadv exposes the type and version bytes; the payload is decoded by the
// batadv decoder, not by gopacket.
type Batadv struct {
	layers.BaseLayer
	PacketType    uint8
	PacketVersion uint8
}

func (b *Batadv) LayerType() gopacket.LayerType { return LayerTypeBatadv }

func (b *Batadv) CanDecode() gopacket.LayerClass { return LayerTypeBatadv }

func (b *Batadv) NextLayerType() gopacket.LayerType { return gopacket.LayerTypeZero }

// DecodeFromBytes keeps short payloads so that the decoder can report them.
func (b *Batadv) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	b.PacketType, b.PacketVersion = 0, 0
	switch {
	case len(data) >= 2:
		b.PacketType, b.PacketVersion = data[0], data[1]
	case len(data) == 1:
		b.PacketType = data[0]
		df.SetTruncated()
	}
	b.BaseLayer = layers.BaseLayer{Contents: data}
	return nil
}

func decodeBatadv(data []byte, p gopacket.PacketBuilder) error {
	b := &Batadv{}
	if err := b.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(b)
	return nil
}

var (
	bindMu sync.Mutex
	bound  = make(map[uint16]bool)
)

// BindEtherType routes selector to the batadv layer in gopacket's ethertype
// table. The table is process-wide: every bound selector stays bound, and
// binding one twice is a no-op. It reports whether this call added the
// binding. It must run before frames with that selector are decoded.
func BindEtherType(selector uint16) bool {
	bindMu.Lock()
	defer bindMu.Unlock()
	if bound[selector] {
		return false
	}
	layers.EthernetTypeMetadata[selector] = layers.EnumMetadata{
		DecodeWith: LayerTypeBatadv,
		Name:       "Batadv",
		LayerType:  LayerTypeBatadv,
	}
	bound[selector] = true
	return true
}

// BoundEtherTypes returns the selectors bound so far, in ascending order.
func BoundEtherTypes() []uint16 {
	bindMu.Lock()
	defer bindMu.Unlock()
	out := make([]uint16, 0, len(bound))
	for sel := range bound {
		out = append(out, sel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
