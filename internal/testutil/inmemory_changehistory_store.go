package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/flexprice/planshift/internal/domain/changehistory"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
)

// InMemoryChangeHistoryStore implements changehistory.Repository as an
// append-only slice
type InMemoryChangeHistoryStore struct {
	mu      sync.RWMutex
	entries []*changehistory.Entry
}

func NewInMemoryChangeHistoryStore() *InMemoryChangeHistoryStore {
	return &InMemoryChangeHistoryStore{}
}

func (s *InMemoryChangeHistoryStore) Append(_ context.Context, entry *changehistory.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lo.ContainsBy(s.entries, func(e *changehistory.Entry) bool { return e.ID == entry.ID }) {
		return ierr.NewError("history entry already exists").
			WithHintf("History entry %s already exists", entry.ID).
			Mark(ierr.ErrAlreadyExists)
	}

	entry.Sequence = int64(len(s.entries)) + 1
	entry.PreviousHash = ""
	if n := len(s.entries); n > 0 {
		entry.PreviousHash = s.entries[n-1].Hash
	}
	entry.CreatedAt = entry.CreatedAt.UTC().Truncate(time.Microsecond)
	entry.Hash = entry.ComputeHash()

	c := *entry
	s.entries = append(s.entries, &c)
	return nil
}

func (s *InMemoryChangeHistoryStore) matching(filter *types.ChangeHistoryFilter) []*changehistory.Entry {
	out := lo.Filter(s.entries, func(e *changehistory.Entry, _ int) bool {
		if filter == nil {
			return true
		}
		if filter.PlanName != "" && e.PlanName != filter.PlanName {
			return false
		}
		if len(filter.EntryType) > 0 && !lo.Contains(filter.EntryType, e.EntryType) {
			return false
		}
		if filter.StartTime != nil && e.CreatedAt.Before(*filter.StartTime) {
			return false
		}
		if filter.EndTime != nil && e.CreatedAt.After(*filter.EndTime) {
			return false
		}
		return true
	})
	return out
}

func (s *InMemoryChangeHistoryStore) List(_ context.Context, filter *types.ChangeHistoryFilter) ([]*changehistory.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.matching(filter)
	if filter.GetOrder() == types.OrderDesc {
		sort.Slice(out, func(i, j int) bool { return out[i].Sequence > out[j].Sequence })
	}
	if !filter.IsUnlimited() {
		start := filter.GetOffset()
		if start >= len(out) {
			return []*changehistory.Entry{}, nil
		}
		end := lo.Min([]int{start + filter.GetLimit(), len(out)})
		out = out[start:end]
	}
	return lo.Map(out, func(e *changehistory.Entry, _ int) *changehistory.Entry {
		c := *e
		return &c
	}), nil
}

func (s *InMemoryChangeHistoryStore) Count(_ context.Context, filter *types.ChangeHistoryFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matching(filter)), nil
}

func (s *InMemoryChangeHistoryStore) ListAll(_ context.Context) ([]*changehistory.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Map(s.entries, func(e *changehistory.Entry, _ int) *changehistory.Entry {
		c := *e
		return &c
	}), nil
}

// Tamper rewrites the summary of a stored entry without fixing its hash
func (s *InMemoryChangeHistoryStore) Tamper(sequence int64, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Sequence == sequence {
			e.Summary = summary
		}
	}
}

func (s *InMemoryChangeHistoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
