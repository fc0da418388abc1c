package testutil

import (
	"context"
	"sort"
	"sync"

	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
)

// FilterFunc reports whether item matches the filter passed to List or Count
type FilterFunc[T any] func(ctx context.Context, item T, filter interface{}) bool

// SortFunc orders List results
type SortFunc[T any] func(i, j T) bool

// InMemoryStore is a mutex guarded map keyed by entity id. The typed stores
// built on it are responsible for copying values in and out.
type InMemoryStore[T any] struct {
	mu     sync.RWMutex
	entity string
	items  map[string]T
}

// NewInMemoryStore creates a store. entity names the stored type in errors.
func NewInMemoryStore[T any](entity string) *InMemoryStore[T] {
	return &InMemoryStore[T]{
		entity: entity,
		items:  make(map[string]T),
	}
}

func (s *InMemoryStore[T]) notFound(id string) error {
	return ierr.NewError(s.entity+" not found").
		WithHintf("%s %s does not exist", s.entity, id).
		WithReportableDetails(map[string]any{
			"id": id,
		}).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryStore[T]) Create(_ context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; exists {
		return ierr.NewError(s.entity+" already exists").
			WithHintf("%s %s already exists", s.entity, id).
			Mark(ierr.ErrAlreadyExists)
	}
	s.items[id] = item
	return nil
}

func (s *InMemoryStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[id]
	if !exists {
		var zero T
		return zero, s.notFound(id)
	}
	return item, nil
}

// List returns the matching items in sortFn order. Filters implementing
// types.BaseFilter also paginate the result.
func (s *InMemoryStore[T]) List(ctx context.Context, filter interface{}, filterFn FilterFunc[T], sortFn SortFunc[T]) ([]T, error) {
	result := s.matching(ctx, filter, filterFn)

	if sortFn != nil {
		sort.SliceStable(result, func(i, j int) bool {
			return sortFn(result[i], result[j])
		})
	}

	f, ok := filter.(types.BaseFilter)
	if !ok || f.IsUnlimited() {
		return result, nil
	}
	if f.GetOffset() >= len(result) {
		return []T{}, nil
	}
	return lo.Subset(result, f.GetOffset(), uint(f.GetLimit())), nil
}

func (s *InMemoryStore[T]) Count(ctx context.Context, filter interface{}, filterFn FilterFunc[T]) (int, error) {
	return len(s.matching(ctx, filter, filterFn)), nil
}

func (s *InMemoryStore[T]) matching(ctx context.Context, filter interface{}, filterFn FilterFunc[T]) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Filter(lo.Values(s.items), func(item T, _ int) bool {
		return filterFn == nil || filterFn(ctx, item, filter)
	})
}

func (s *InMemoryStore[T]) Update(_ context.Context, id string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[id]; !exists {
		return s.notFound(id)
	}
	s.items[id] = item
	return nil
}

func (s *InMemoryStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]T)
}
