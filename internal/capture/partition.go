package capture

import (
	"strconv"

	"github.com/serialx/hashring"

	"firestige.xyz/batadv/internal/core"
)

// Partitioner maps link-layer sources to workers on a consistent hash
// ring, so frames from one neighbor always reach the same decoder.
type Partitioner struct {
	ring  *hashring.HashRing
	index map[string]int
}

// NewPartitioner creates a ring of n workers. n below 1 is treated as 1.
func NewPartitioner(n int) *Partitioner {
	if n < 1 {
		n = 1
	}
	nodes := make([]string, n)
	index := make(map[string]int, n)
	for i := range nodes {
		nodes[i] = "worker-" + strconv.Itoa(i)
		index[nodes[i]] = i
	}
	return &Partitioner{ring: hashring.New(nodes), index: index}
}

// Workers returns the number of workers on the ring.
func (p *Partitioner) Workers() int { return len(p.index) }

// Worker returns the worker for src.
func (p *Partitioner) Worker(src core.HardwareAddr) int {
	if len(p.index) == 1 {
		return 0
	}
	node, ok := p.ring.GetNode(src.String())
	if !ok {
		return 0
	}
	return p.index[node]
}
