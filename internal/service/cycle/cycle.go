// Package cycle generates processing cycle identifiers and recording
// artifact names.
package cycle

import (
	"fmt"
	"sync/atomic"
)

// Generator issues cycle IDs that are unique for the process lifetime.
type Generator struct {
	counter uint64
}

func New() *Generator {
	return &Generator{}
}

// Next returns "<identity>-cycle-<n>" with a process-wide counter.
func (g *Generator) Next(identity string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-cycle-%d", identity, n)
}

// BaseName returns the zero-padded artifact name for a sequence index.
// Index 3 becomes "003"; indexes beyond three digits are not truncated.
func BaseName(index int) string {
	return fmt.Sprintf("%03d", index)
}
