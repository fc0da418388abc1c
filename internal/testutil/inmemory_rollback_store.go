package testutil

import (
	"context"

	"github.com/flexprice/planshift/internal/domain/rollback"
	"github.com/samber/lo"
)

// InMemoryRollbackStore implements rollback.Repository
type InMemoryRollbackStore struct {
	*InMemoryStore[*rollback.Record]
}

func NewInMemoryRollbackStore() *InMemoryRollbackStore {
	return &InMemoryRollbackStore{
		InMemoryStore: NewInMemoryStore[*rollback.Record]("rollback"),
	}
}

func (s *InMemoryRollbackStore) Create(ctx context.Context, record *rollback.Record) error {
	c := *record
	return s.InMemoryStore.Create(ctx, record.ID, &c)
}

func (s *InMemoryRollbackStore) ListByPlan(ctx context.Context, planName string) ([]*rollback.Record, error) {
	records, err := s.InMemoryStore.List(ctx, planName, func(_ context.Context, r *rollback.Record, f interface{}) bool {
		return r.PlanName == f.(string)
	}, func(i, j *rollback.Record) bool {
		if i.CreatedAt.Equal(j.CreatedAt) {
			return i.ID > j.ID
		}
		return i.CreatedAt.After(j.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(r *rollback.Record, _ int) *rollback.Record {
		c := *r
		return &c
	}), nil
}
