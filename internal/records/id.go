package records

import (
	"crypto/rand"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces record ids. Implementations must be safe for
// concurrent use.
type IDGenerator interface {
	Generate() string
}

const (
	shortIDLength   = 5
	shortIDAlphabet = "0123456789abcdefghijklmnopqrstuv"
)

// ShortIDGenerator produces 5-character base-32 ids such as "k3x9a".
//
// Ids are random and not checked against storage. With 2^25 possible values
// collisions become likely after a few thousand ids per type; use
// UUIDv7Generator for larger data sets.
type ShortIDGenerator struct{}

// Generate returns a new short id.
func (ShortIDGenerator) Generate() string {
	var buf [shortIDLength]byte
	rand.Read(buf[:])
	for i, b := range buf {
		buf[i] = shortIDAlphabet[b&31]
	}
	return string(buf[:])
}

// UUIDv7Generator generates time-sortable UUIDv7 ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined ids for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
//	gen := NewFixedGenerator("a", "b")
//	gen.Generate() // "a"
//	gen.Generate() // "b"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed, so a test that creates more
// records than it planned for fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
