// Package history caches a short list of previously run jobs for display.
// Entries are read-only snapshots owned by the engine; the store never
// mutates them locally.
package history

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/kbscrape/scrape-cli/internal/model"
)

// DefaultLimit is how many recent jobs are kept for display.
const DefaultLimit = 5

// Lister is the slice of the API the store needs.
type Lister interface {
	ListJobs(ctx context.Context) (map[string]model.JobHistoryEntry, error)
}

// Store holds the most recent job summaries.
type Store struct {
	lister Lister
	limit  int

	mu      sync.Mutex
	entries []model.JobHistoryEntry
}

// NewStore creates a store keeping the given number of entries; limit <= 0
// falls back to DefaultLimit.
func NewStore(lister Lister, limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{lister: lister, limit: limit}
}

// Refresh re-reads the job list from the engine and retains the most recent
// entries, newest first.
func (s *Store) Refresh(ctx context.Context) error {
	all, err := s.lister.ListJobs(ctx)
	if err != nil {
		return eris.Wrap(err, "history: refresh")
	}

	entries := make([]model.JobHistoryEntry, 0, len(all))
	for _, e := range all {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		ti, tj := entries[i].Timestamp(), entries[j].Timestamp()
		if ti.Equal(tj) {
			return entries[i].JobID < entries[j].JobID
		}
		return ti.After(tj)
	})
	if len(entries) > s.limit {
		entries = entries[:s.limit]
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// Entries returns the cached snapshot, newest first.
func (s *Store) Entries() []model.JobHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.JobHistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
