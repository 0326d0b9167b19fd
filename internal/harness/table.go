package harness

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// SeedTimingTable accumulates solver time per seed. Each seed is recorded once; concurrent workers may record
// distinct seeds.
type SeedTimingTable struct {
	mu        sync.Mutex
	durations map[int64]time.Duration
}

func NewSeedTimingTable() *SeedTimingTable {
	return &SeedTimingTable{durations: make(map[int64]time.Duration)}
}

func (table *SeedTimingTable) Record(seed int64, duration time.Duration) error {
	table.mu.Lock()
	defer table.mu.Unlock()

	if _, ok := table.durations[seed]; ok {
		return fmt.Errorf("%w: %v", ErrSeedRecorded, seed)
	}
	table.durations[seed] = duration
	return nil
}

// Max returns the slowest seed. Ties go to the smallest seed, the first one seen in an ascending sweep.
func (table *SeedTimingTable) Max() (seed int64, duration time.Duration, ok bool) {
	table.mu.Lock()
	defer table.mu.Unlock()

	for _, candidate := range slices.Sorted(maps.Keys(table.durations)) {
		if !ok || table.durations[candidate] > duration {
			seed, duration, ok = candidate, table.durations[candidate], true
		}
	}
	return seed, duration, ok
}

func (table *SeedTimingTable) Snapshot() map[int64]time.Duration {
	table.mu.Lock()
	defer table.mu.Unlock()
	return maps.Clone(table.durations)
}

func (table *SeedTimingTable) Len() int {
	table.mu.Lock()
	defer table.mu.Unlock()
	return len(table.durations)
}
