package activities

import (
	"context"

	"github.com/flexprice/planshift/internal/domain/migration"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/service"
	"github.com/flexprice/planshift/internal/temporal/models"
	"github.com/flexprice/planshift/internal/types"
	"go.temporal.io/sdk/temporal"
)

// MigrationActivities runs migration executions on a worker
type MigrationActivities struct {
	executor service.MigrationExecutorService
	logger   *logger.Logger
}

func NewMigrationActivities(executor service.MigrationExecutorService, log *logger.Logger) *MigrationActivities {
	return &MigrationActivities{
		executor: executor,
		logger:   log,
	}
}

// ExecuteMigrationPlan executes the migration plan named in the input.
// Errors that cannot succeed on retry are returned as non retryable
// application errors.
func (a *MigrationActivities) ExecuteMigrationPlan(ctx context.Context, input models.MigrationExecutionWorkflowInput) (*migration.ExecutionRecord, error) {
	if err := input.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), models.ErrorTypeValidation, err)
	}

	if input.Actor != "" {
		ctx = types.SetUserID(ctx, input.Actor)
	}
	if input.RequestID != "" {
		ctx = types.SetRequestID(ctx, input.RequestID)
	}

	record, err := a.executor.ExecuteMigrationPlan(ctx, input.MigrationID, input.DryRun, input.Actor)
	if err != nil {
		a.logger.Errorw("migration execution activity failed",
			"migration_id", input.MigrationID,
			"dry_run", input.DryRun,
			"error", err)
		return nil, toApplicationError(err)
	}
	return record, nil
}

func toApplicationError(err error) error {
	switch {
	case ierr.IsValidation(err):
		return temporal.NewNonRetryableApplicationError(err.Error(), models.ErrorTypeValidation, err)
	case ierr.IsInvalidState(err):
		return temporal.NewNonRetryableApplicationError(err.Error(), models.ErrorTypeInvalidState, err)
	case ierr.IsNotFound(err):
		return temporal.NewNonRetryableApplicationError(err.Error(), models.ErrorTypeNotFound, err)
	default:
		return err
	}
}
