package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator returns run ids "<prefix>-1", "<prefix>-2", ... and
// never runs out.
//
// Unlike engine.FixedGenerator, which panics once its list is consumed,
// this suits tests that do not know up front how many runs they start.
//
// Thread-safety: SequenceGenerator is safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix means "run".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "run"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id. Implements engine.RunIDGenerator.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
