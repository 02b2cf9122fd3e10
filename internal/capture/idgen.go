package capture

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces waveform identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 waveform IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so journal rows
// and export file names sort by capture time for free.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined IDs for deterministic tests.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order, then
// panics when exhausted. Exhaustion panics fail tests fast instead of
// silently reusing an ID.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("capture: FixedGenerator exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
