package decoder

import "firestige.xyz/batadv/internal/core"

// Tap receives one decoded header per packet instance. The addressing
// context is a snapshot taken right after the header was decoded.
type Tap interface {
	Tap(hdr Header, addr core.Addressing)
}

// TapFunc adapts a function to Tap.
type TapFunc func(hdr Header, addr core.Addressing)

// Tap calls f.
func (f TapFunc) Tap(hdr Header, addr core.Addressing) { f(hdr, addr) }

// Follow receives raw payload ranges that are candidates for higher-level
// payload tracking. The buffer is only valid for the duration of the call.
type Follow interface {
	Follow(payload *core.Buffer)
}

// FollowFunc adapts a function to Follow.
type FollowFunc func(payload *core.Buffer)

// Follow calls f.
func (f FollowFunc) Follow(payload *core.Buffer) { f(payload) }

// EtherDecoder decodes a payload that is a plain Ethernet frame and adds
// its nodes to the tree.
type EtherDecoder interface {
	DecodeEthernet(payload *core.Buffer, tree *core.Tree)
}
