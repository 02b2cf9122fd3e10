// Package wavestore keeps captured waveforms in a bounded in-memory
// collection with oldest-first eviction.
//
// The store has one writer (the capture controller) and any number of
// readers (exporters, CLI output). Readers always receive a snapshot copy of
// the element list; the waveforms themselves are shared and immutable.
//
// Eviction recomputes the minimum capture time with a linear scan. That is
// deliberate: capacities are small (default 100, practical ceiling around a
// thousand), and a scan keeps the structure trivially correct. A priority
// ordering would only matter at capacities this store is not meant for.
package wavestore

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/wavecap/internal/wave"
)

// DefaultCapacity is the store size used when none is configured.
const DefaultCapacity = 100

// bytesPerSample is the rough in-memory cost of one sample: one raw byte
// plus one float64 each for voltage and time.
const bytesPerSample = 1 + 8 + 8

type entry struct {
	w   *wave.Waveform
	seq int64 // insertion order, breaks capture-time ties deterministically
}

// Store is a capacity-bounded waveform collection. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	entries  []entry
	capacity int
	nextSeq  int64
}

// New creates a store with the given capacity. Capacities below 1 are
// clamped to 1; zero means DefaultCapacity.
func New(capacity int) *Store {
	switch {
	case capacity == 0:
		capacity = DefaultCapacity
	case capacity < 1:
		capacity = 1
	}
	return &Store{capacity: capacity}
}

// Insert adds w to the store, evicting the oldest waveforms until the size
// invariant size <= capacity holds again.
func (s *Store) Insert(w *wave.Waveform) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	s.entries = append(s.entries, entry{w: w, seq: s.nextSeq})
	s.evictLocked()
}

// evictLocked removes minimum-capture-time entries until size <= capacity.
// Ties on capture time are broken by insertion order (lowest seq evicted
// first). Caller must hold s.mu.
func (s *Store) evictLocked() {
	for len(s.entries) > s.capacity {
		oldest := 0
		for i := 1; i < len(s.entries); i++ {
			ei, eo := s.entries[i], s.entries[oldest]
			if ei.w.CapturedAt.Before(eo.w.CapturedAt) ||
				(ei.w.CapturedAt.Equal(eo.w.CapturedAt) && ei.seq < eo.seq) {
				oldest = i
			}
		}
		s.entries = append(s.entries[:oldest], s.entries[oldest+1:]...)
	}
}

// List returns a snapshot of the current contents in insertion order.
// The slice is a copy; it does not track later insertions or evictions.
func (s *Store) List() []*wave.Waveform {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*wave.Waveform, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.w
	}
	return out
}

// Clear removes all waveforms.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}

// Len returns the current number of stored waveforms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Capacity returns the current capacity.
func (s *Store) Capacity() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capacity
}

// SetCapacity adjusts the capacity at runtime, evicting oldest waveforms if
// the store now exceeds it. Values below 1 are clamped to 1. Returns the
// capacity actually applied.
func (s *Store) SetCapacity(capacity int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if capacity < 1 {
		capacity = 1
	}
	s.capacity = capacity
	s.evictLocked()
	return capacity
}

// MemoryStatus renders a human-readable summary: waveform count per channel,
// total samples, and a rough memory estimate.
func (s *Store) MemoryStatus() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perChannel := make(map[int]int)
	totalSamples := 0
	for _, e := range s.entries {
		perChannel[e.w.Channel]++
		totalSamples += e.w.Samples()
	}

	channels := make([]int, 0, len(perChannel))
	for ch := range perChannel {
		channels = append(channels, ch)
	}
	sort.Ints(channels)

	var b strings.Builder
	fmt.Fprintf(&b, "Stored waveforms: %d (capacity %d)\n", len(s.entries), s.capacity)
	for _, ch := range channels {
		fmt.Fprintf(&b, "  CH%d: %d\n", ch, perChannel[ch])
	}
	fmt.Fprintf(&b, "Total samples: %d\n", totalSamples)
	fmt.Fprintf(&b, "Estimated memory: %s\n", formatBytes(int64(totalSamples)*bytesPerSample))
	return b.String()
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
