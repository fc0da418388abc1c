package workflows

import (
	"time"

	"github.com/flexprice/planshift/internal/domain/migration"
	"github.com/flexprice/planshift/internal/temporal/models"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// MigrationExecutionWorkflow executes a migration plan as a single activity.
// Batches already succeeded are skipped by the executor, so a retried
// attempt resumes where the previous one stopped.
func MigrationExecutionWorkflow(ctx workflow.Context, input models.MigrationExecutionWorkflowInput) (*migration.ExecutionRecord, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting migration execution workflow",
		"migration_id", input.MigrationID,
		"dry_run", input.DryRun)

	if err := input.Validate(); err != nil {
		return nil, temporalsdk.NewNonRetryableApplicationError(err.Error(), models.ErrorTypeValidation, err)
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: input.GetActivityTimeout(),
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:        time.Second * 5,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute * 5,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: models.NonRetryableErrorTypes,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var record migration.ExecutionRecord
	if err := workflow.ExecuteActivity(ctx, models.ExecuteMigrationPlanActivityName, input).Get(ctx, &record); err != nil {
		logger.Error("Migration execution failed", "migration_id", input.MigrationID, "error", err)
		return nil, err
	}

	logger.Info("Migration execution finished",
		"migration_id", input.MigrationID,
		"execution_id", record.ID,
		"status", record.Status,
		"batches_processed", record.BatchesProcessed,
		"batches_failed", record.BatchesFailed)
	return &record, nil
}
