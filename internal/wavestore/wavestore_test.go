package wavestore

import (
	"fmt"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wavecap/internal/wave"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func wf(id string, ch int, at time.Time, samples int) *wave.Waveform {
	return &wave.Waveform{
		ID:         id,
		Channel:    ch,
		CapturedAt: at,
		Raw:        make([]byte, samples),
		Volts:      make([]float64, samples),
		Times:      make([]float64, samples),
	}
}

func TestNew_CapacityClamping(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Capacity())
	assert.Equal(t, 1, New(-5).Capacity())
	assert.Equal(t, 3, New(3).Capacity())
}

func TestInsert_CapacityInvariantHoldsAfterEveryInsert(t *testing.T) {
	s := New(5)
	for i := 0; i < 20; i++ {
		s.Insert(wf(fmt.Sprintf("w%d", i), 1, t0.Add(time.Duration(i)*time.Second), 10))
		assert.LessOrEqual(t, s.Len(), 5, "after insert %d", i)
	}
	assert.Equal(t, 5, s.Len())
}

func TestInsert_EvictsEarliestCaptureTime(t *testing.T) {
	s := New(3)
	// Insert out of time order; eviction is by capture time, not insertion.
	s.Insert(wf("b", 1, t0.Add(2*time.Second), 0))
	s.Insert(wf("a", 1, t0.Add(1*time.Second), 0))
	s.Insert(wf("d", 1, t0.Add(4*time.Second), 0))
	s.Insert(wf("c", 1, t0.Add(3*time.Second), 0))

	ids := make([]string, 0, 3)
	for _, w := range s.List() {
		ids = append(ids, w.ID)
	}
	assert.ElementsMatch(t, []string{"b", "c", "d"}, ids, "earliest capture time evicted")
}

func TestInsert_TieBreakIsInsertionOrder(t *testing.T) {
	s := New(2)
	s.Insert(wf("first", 1, t0, 0))
	s.Insert(wf("second", 1, t0, 0))
	s.Insert(wf("third", 1, t0, 0))

	ids := make([]string, 0, 2)
	for _, w := range s.List() {
		ids = append(ids, w.ID)
	}
	assert.Equal(t, []string{"second", "third"}, ids, "equal timestamps evict oldest insertion first")
}

func TestList_IsSnapshot(t *testing.T) {
	s := New(10)
	s.Insert(wf("a", 1, t0, 0))

	snap := s.List()
	s.Insert(wf("b", 1, t0.Add(time.Second), 0))

	require.Len(t, snap, 1, "snapshot does not track later inserts")
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, 2, s.Len())
}

func TestClear(t *testing.T) {
	s := New(10)
	s.Insert(wf("a", 1, t0, 5))
	s.Insert(wf("b", 2, t0, 5))

	s.Clear()

	assert.Zero(t, s.Len())
	assert.Empty(t, s.List())
}

func TestSetCapacity_ClampsAndEvicts(t *testing.T) {
	s := New(10)
	for i := 0; i < 4; i++ {
		s.Insert(wf(fmt.Sprintf("w%d", i), 1, t0.Add(time.Duration(i)*time.Second), 0))
	}

	assert.Equal(t, 1, s.SetCapacity(-3), "below-floor capacity clamps to 1")
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "w3", s.List()[0].ID, "newest waveform survives the shrink")
}

func TestMemoryStatus_Golden(t *testing.T) {
	s := New(100)
	s.Insert(wf("a", 1, t0, 1200))
	s.Insert(wf("b", 1, t0.Add(time.Second), 1200))
	s.Insert(wf("c", 2, t0.Add(2*time.Second), 600))

	g := goldie.New(t)
	g.Assert(t, "memory_status", []byte(s.MemoryStatus()))
}

func TestMemoryStatus_Empty(t *testing.T) {
	s := New(100)
	status := s.MemoryStatus()
	assert.Contains(t, status, "Stored waveforms: 0 (capacity 100)")
	assert.Contains(t, status, "Total samples: 0")
}
