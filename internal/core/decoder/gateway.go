package decoder

import (
	"fmt"

	"firestige.xyz/batadv/internal/core"
)

// GatewaySpeeds expands a gateway class byte into download and upload
// speeds in kbit/s. The top bit selects the scale, the next four bits are a
// power of two exponent and the low three bits the upload ratio.
func GatewaySpeeds(g uint8) (down, up uint32) {
	if g == 0 {
		return 0, 0
	}
	s := uint32(g&0x80) >> 7
	downbits := uint32(g&0x78) >> 3
	upbits := uint32(g & 0x07)

	down = 32 * (s + 2) * (1 << downbits)
	up = ((upbits + 1) * down) / 8
	return down, up
}

// gwFlags reads a gateway class byte and its expanded speeds.
func (w *walker) gwFlags(name string) uint8 {
	v, _ := w.buf.Uint8(w.off)
	f := w.field(name, 1)
	if f == nil {
		return 0
	}
	down, up := GatewaySpeeds(v)
	f.Value = v
	f.Text = fmt.Sprintf("0x%02x", v)

	dl := f.Add(core.NewNode(w.buf, f.Name+".dl_speed", w.off-1, 1))
	dl.Value = down
	dl.Text = fmt.Sprintf("%d kbit", down)
	ul := f.Add(core.NewNode(w.buf, f.Name+".ul_speed", w.off-1, 1))
	ul.Value = up
	ul.Text = fmt.Sprintf("%d kbit", up)
	return v
}
