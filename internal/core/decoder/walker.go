package decoder

import (
	"fmt"

	"firestige.xyz/batadv/internal/core"
)

// walker decodes consecutive fields of one header into a parent node.
// Field names are relative to the parent's name. The first failed read
// sticks: later reads return zero values and add nothing.
type walker struct {
	buf  *core.Buffer
	off  int
	node *core.Node
	err  error
}

func newWalker(buf *core.Buffer, off int, node *core.Node) *walker {
	return &walker{buf: buf, off: off, node: node}
}

// field reserves n bytes for a named child node.
func (w *walker) field(name string, n int) *core.Node {
	if w.err != nil {
		return nil
	}
	if _, err := w.buf.Bytes(w.off, n); err != nil {
		w.err = err
		return nil
	}
	child := w.node.Add(core.NewNode(w.buf, w.node.Name+"."+name, w.off, n))
	w.off += n
	return child
}

func (w *walker) u8(name string) uint8 {
	v, _ := w.buf.Uint8(w.off)
	if f := w.field(name, 1); f != nil {
		f.Value = v
		return v
	}
	return 0
}

func (w *walker) u16(name string) uint16 {
	v, _ := w.buf.Uint16(w.off)
	if f := w.field(name, 2); f != nil {
		f.Value = v
		return v
	}
	return 0
}

func (w *walker) u32(name string) uint32 {
	v, _ := w.buf.Uint32(w.off)
	if f := w.field(name, 4); f != nil {
		f.Value = v
		return v
	}
	return 0
}

func (w *walker) addr(name string) core.HardwareAddr {
	v, _ := w.buf.HardwareAddr(w.off)
	if f := w.field(name, 6); f != nil {
		f.Value = v
		return v
	}
	return core.HardwareAddr{}
}

// enum reads a byte rendered through a value table.
func (w *walker) enum(name string, table valueTable) uint8 {
	v, _ := w.buf.Uint8(w.off)
	if f := w.field(name, 1); f != nil {
		f.Value = v
		f.Text = fmt.Sprintf("%s (%d)", table.name(v), v)
		return v
	}
	return 0
}

// flags reads a byte and adds one boolean child per known bit.
func (w *walker) flags(name string, bits []flagBit) uint8 {
	v, _ := w.buf.Uint8(w.off)
	f := w.field(name, 1)
	if f == nil {
		return 0
	}
	f.Value = v
	f.Text = fmt.Sprintf("0x%02x", v)
	for _, b := range bits {
		bit := f.Add(core.NewNode(w.buf, f.Name+"."+b.name, w.off-1, 1))
		bit.Value = v&b.mask != 0
	}
	return v
}

// vid reads a 16-bit VLAN field split into id and tagged bit.
func (w *walker) vid(name string) uint16 {
	v, _ := w.buf.Uint16(w.off)
	f := w.field(name, 2)
	if f == nil {
		return 0
	}
	f.Value = v
	f.Text = fmt.Sprintf("%d%s", v&vidMask, taggedSuffix(v))
	id := f.Add(core.NewNode(w.buf, f.Name+".vlan", w.off-2, 2))
	id.Value = v & vidMask
	tagged := f.Add(core.NewNode(w.buf, f.Name+".tagged", w.off-2, 2))
	tagged.Value = v&vidTagged != 0
	return v
}

// reserved records padding bytes under a name.
func (w *walker) reserved(name string, n int) {
	if b, err := w.buf.Bytes(w.off, n); err == nil {
		if f := w.field(name, n); f != nil {
			f.Value = append([]byte(nil), b...)
		}
		return
	}
	w.field(name, n)
}

// skip advances over unnamed padding.
func (w *walker) skip(n int) {
	if w.err != nil {
		return
	}
	if _, err := w.buf.Bytes(w.off, n); err != nil {
		w.err = err
		return
	}
	w.off += n
}

func taggedSuffix(v uint16) string {
	if v&vidTagged != 0 {
		return " (tagged)"
	}
	return ""
}
