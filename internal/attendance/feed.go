package attendance

import (
	"sync"
	"time"

	"classaccess/internal/model"
)

// Dataset is everything the admin attendance table is derived from.
type Dataset struct {
	Users     []model.User   `json:"users"`
	Records   []model.Record `json:"records"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Ticket identifies one fetch started with Feed.Begin.
type Ticket struct {
	generation uint64
}

// Feed holds the latest dataset. Fetches are stamped with a generation when
// they start; a result is applied only if no newer fetch has started since,
// so a slow stale response can never overwrite fresher data.
type Feed struct {
	mu         sync.RWMutex
	generation uint64
	current    Dataset
	loaded     bool
	onStale    func()
}

// NewFeed returns an empty feed. onStale, if set, is called for every
// discarded result.
func NewFeed(onStale func()) *Feed {
	return &Feed{onStale: onStale}
}

// Begin starts a new fetch and invalidates any fetch still in flight.
func (f *Feed) Begin() Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	return Ticket{generation: f.generation}
}

// Commit applies ds if t is still the newest fetch. It reports whether the
// dataset was applied.
func (f *Feed) Commit(t Ticket, ds Dataset) bool {
	f.mu.Lock()
	if t.generation != f.generation {
		f.mu.Unlock()
		if f.onStale != nil {
			f.onStale()
		}
		return false
	}
	f.current = ds
	f.loaded = true
	f.mu.Unlock()
	return true
}

// Current returns the applied dataset and whether one has been applied.
func (f *Feed) Current() (Dataset, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current, f.loaded
}

// Fresh reports whether the applied dataset is younger than maxAge.
func (f *Feed) Fresh(maxAge time.Duration, now time.Time) bool {
	ds, ok := f.Current()
	return ok && now.Sub(ds.FetchedAt) < maxAge
}
