package testutil

import (
	"context"
	"time"

	"github.com/flexprice/planshift/internal/domain/migration"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
)

// InMemoryMigrationStore implements migration.Repository
type InMemoryMigrationStore struct {
	*InMemoryStore[*migration.MigrationPlan]
}

func NewInMemoryMigrationStore() *InMemoryMigrationStore {
	return &InMemoryMigrationStore{
		InMemoryStore: NewInMemoryStore[*migration.MigrationPlan]("migration plan"),
	}
}

func migrationFilterFn(_ context.Context, p *migration.MigrationPlan, filter interface{}) bool {
	f, ok := filter.(*types.MigrationPlanFilter)
	if !ok || f == nil {
		return true
	}
	if f.SourcePlan != "" && p.SourcePlan != f.SourcePlan {
		return false
	}
	if f.TargetPlan != "" && p.TargetPlan != f.TargetPlan {
		return false
	}
	if len(f.Status) > 0 && !lo.Contains(f.Status, p.OverallStatus) {
		return false
	}
	return true
}

func migrationSortFn(i, j *migration.MigrationPlan) bool {
	return i.CreatedAt.After(j.CreatedAt)
}

func (s *InMemoryMigrationStore) Create(ctx context.Context, plan *migration.MigrationPlan) error {
	return s.InMemoryStore.Create(ctx, plan.ID, plan.Clone())
}

func (s *InMemoryMigrationStore) Get(ctx context.Context, id string) (*migration.MigrationPlan, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Migration plan %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return p.Clone(), nil
}

func (s *InMemoryMigrationStore) List(ctx context.Context, filter *types.MigrationPlanFilter) ([]*migration.MigrationPlan, error) {
	plans, err := s.InMemoryStore.List(ctx, filter, migrationFilterFn, migrationSortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(plans, func(p *migration.MigrationPlan, _ int) *migration.MigrationPlan { return p.Clone() }), nil
}

func (s *InMemoryMigrationStore) Count(ctx context.Context, filter *types.MigrationPlanFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, migrationFilterFn)
}

func (s *InMemoryMigrationStore) UpdateStatus(ctx context.Context, id string, status types.MigrationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return ierr.NewError("migration plan not found").
			WithHintf("Migration plan %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	c := p.Clone()
	c.OverallStatus = status
	c.UpdatedAt = time.Now().UTC()
	s.items[id] = c
	return nil
}

func (s *InMemoryMigrationStore) UpdateBatch(ctx context.Context, batch *migration.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[batch.MigrationID]
	if !ok {
		return ierr.NewError("migration plan not found").
			WithHintf("Migration plan %s not found", batch.MigrationID).
			Mark(ierr.ErrNotFound)
	}
	c := p.Clone()
	for i, b := range c.Batches {
		if b.ID == batch.ID {
			c.Batches[i] = batch.Clone()
			s.items[batch.MigrationID] = c
			return nil
		}
	}
	return ierr.NewError("migration batch not found").
		WithHintf("Batch %s not found", batch.ID).
		Mark(ierr.ErrNotFound)
}

// InMemoryExecutionStore implements migration.ExecutionRepository
type InMemoryExecutionStore struct {
	*InMemoryStore[*migration.ExecutionRecord]
}

func NewInMemoryExecutionStore() *InMemoryExecutionStore {
	return &InMemoryExecutionStore{
		InMemoryStore: NewInMemoryStore[*migration.ExecutionRecord]("execution"),
	}
}

func copyExecution(r *migration.ExecutionRecord) *migration.ExecutionRecord {
	c := *r
	c.BatchResults = append([]migration.BatchResult(nil), r.BatchResults...)
	return &c
}

func (s *InMemoryExecutionStore) Create(ctx context.Context, record *migration.ExecutionRecord) error {
	return s.InMemoryStore.Create(ctx, record.ID, copyExecution(record))
}

func (s *InMemoryExecutionStore) Update(ctx context.Context, record *migration.ExecutionRecord) error {
	return s.InMemoryStore.Update(ctx, record.ID, copyExecution(record))
}

func (s *InMemoryExecutionStore) Get(ctx context.Context, id string) (*migration.ExecutionRecord, error) {
	r, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyExecution(r), nil
}

func (s *InMemoryExecutionStore) ListByMigration(ctx context.Context, migrationID string) ([]*migration.ExecutionRecord, error) {
	records, err := s.InMemoryStore.List(ctx, migrationID, func(_ context.Context, r *migration.ExecutionRecord, f interface{}) bool {
		return r.MigrationID == f.(string)
	}, func(i, j *migration.ExecutionRecord) bool {
		if i.StartedAt.Equal(j.StartedAt) {
			return i.ID < j.ID
		}
		return i.StartedAt.Before(j.StartedAt)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(r *migration.ExecutionRecord, _ int) *migration.ExecutionRecord { return copyExecution(r) }), nil
}
