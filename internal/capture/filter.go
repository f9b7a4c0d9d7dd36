package capture

import (
	"fmt"

	"golang.org/x/net/bpf"
)

const (
	etherTypeOffset     = 12
	vlanEtherTypeOffset = 16
	etherTypeDot1Q      = 0x8100
	acceptSnapLen       = 262144
)

// EtherTypeFilter accepts frames whose ethertype equals the selector,
// either directly or behind one 802.1Q tag. The program runs in the
// pure-Go BPF interpreter so no libpcap is needed.
type EtherTypeFilter struct {
	selector uint16
	program  []bpf.Instruction
	vm       *bpf.VM
}

// NewEtherTypeFilter assembles and loads the filter program.
func NewEtherTypeFilter(selector uint16) (*EtherTypeFilter, error) {
	prog := etherTypeProgram(selector)
	vm, err := bpf.NewVM(prog)
	if err != nil {
		return nil, fmt.Errorf("failed to load ethertype filter: %w", err)
	}
	return &EtherTypeFilter{selector: selector, program: prog, vm: vm}, nil
}

func etherTypeProgram(selector uint16) []bpf.Instruction {
	return []bpf.Instruction{
		bpf.LoadAbsolute{Off: etherTypeOffset, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(selector), SkipTrue: 3},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: etherTypeDot1Q, SkipFalse: 3},
		bpf.LoadAbsolute{Off: vlanEtherTypeOffset, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(selector), SkipFalse: 1},
		bpf.RetConstant{Val: acceptSnapLen},
		bpf.RetConstant{Val: 0},
	}
}

// Match reports whether frame carries the selected ethertype.
func (f *EtherTypeFilter) Match(frame []byte) bool {
	n, err := f.vm.Run(frame)
	return err == nil && n > 0
}

// Selector returns the ethertype the filter matches.
func (f *EtherTypeFilter) Selector() uint16 { return f.selector }

// Raw returns the assembled program, as loaded into a kernel socket filter.
func (f *EtherTypeFilter) Raw() ([]bpf.RawInstruction, error) {
	raw, err := bpf.Assemble(f.program)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble ethertype filter: %w", err)
	}
	return raw, nil
}

// String renders the program one instruction per line.
func (f *EtherTypeFilter) String() string {
	var out string
	for i, ins := range f.program {
		out += fmt.Sprintf("(%03d) %v\n", i, ins)
	}
	return out
}
