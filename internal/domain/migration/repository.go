package migration

import (
	"context"

	"github.com/flexprice/planshift/internal/types"
)

// Repository persists migration plans and their batches
type Repository interface {
	// Create stores the plan and all of its batches
	Create(ctx context.Context, plan *MigrationPlan) error

	// Get returns the plan with batches ordered by sequence, ErrNotFound if missing
	Get(ctx context.Context, id string) (*MigrationPlan, error)

	List(ctx context.Context, filter *types.MigrationPlanFilter) ([]*MigrationPlan, error)
	Count(ctx context.Context, filter *types.MigrationPlanFilter) (int, error)

	// UpdateStatus changes the overall status of the plan
	UpdateStatus(ctx context.Context, id string, status types.MigrationStatus) error

	// UpdateBatch persists the status, failure details and attempts of one batch
	// in a single write
	UpdateBatch(ctx context.Context, batch *Batch) error
}

// ExecutionRepository persists execution records
type ExecutionRepository interface {
	Create(ctx context.Context, record *ExecutionRecord) error
	Update(ctx context.Context, record *ExecutionRecord) error
	Get(ctx context.Context, id string) (*ExecutionRecord, error)
	// ListByMigration returns the executions of a migration, oldest first
	ListByMigration(ctx context.Context, migrationID string) ([]*ExecutionRecord, error)
}
