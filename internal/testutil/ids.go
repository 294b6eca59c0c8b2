package testutil

import "math/rand/v2"

// DefaultSessionID is used when a FixedIDGenerator is given no id.
const DefaultSessionID = "test-session-default"

// FixedIDGenerator returns the same session id every time. It satisfies
// interp.IDGenerator, so a scenario run twice produces byte-identical
// snapshots.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for id. An empty id uses
// DefaultSessionID.
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = DefaultSessionID
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// SeededRand returns a uniform [0,1) source for formula rand() calls
// that yields the same sequence for the same seed. Not safe for
// concurrent use.
func SeededRand(seed uint64) func() float64 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return r.Float64
}
