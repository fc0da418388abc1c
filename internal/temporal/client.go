package temporal

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/planshift/internal/config"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/temporal/models"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// TemporalClient wraps the Temporal SDK client for application use.
type TemporalClient struct {
	Client    client.Client
	taskQueue string
	log       *logger.Logger
}

// NewTemporalClient dials the configured Temporal frontend
func NewTemporalClient(cfg config.TemporalConfig, log *logger.Logger) (*TemporalClient, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Address,
		Namespace: cfg.Namespace,
		Logger:    log.GetTemporalLogger(),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to connect to temporal at %s", cfg.Address).
			Mark(ierr.ErrSystem)
	}

	log.Infow("temporal client created", "address", cfg.Address, "namespace", cfg.Namespace)
	return &TemporalClient{
		Client:    c,
		taskQueue: cfg.TaskQueue,
		log:       log,
	}, nil
}

// StartMigrationExecution starts MigrationExecutionWorkflow and returns without
// waiting for it. Starting a second workflow for a plan whose workflow is
// still running is an invalid state.
func (c *TemporalClient) StartMigrationExecution(ctx context.Context, input models.MigrationExecutionWorkflowInput) (*models.WorkflowRun, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	options := client.StartWorkflowOptions{
		ID:                                       input.WorkflowID(),
		TaskQueue:                                c.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}

	run, err := c.Client.ExecuteWorkflow(ctx, options, models.MigrationExecutionWorkflowName, input)
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil, ierr.WithError(err).
				WithHintf("Migration plan %s is already executing", input.MigrationID).
				WithReportableDetails(map[string]any{
					"migration_id": input.MigrationID,
					"workflow_id":  input.WorkflowID(),
				}).
				Mark(ierr.ErrInvalidState)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to start the migration workflow").
			Mark(ierr.ErrSystem)
	}

	c.log.Infow("started migration execution workflow",
		"migration_id", input.MigrationID,
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
		"dry_run", input.DryRun)

	return &models.WorkflowRun{
		WorkflowID: run.GetID(),
		RunID:      run.GetRunID(),
	}, nil
}

func (c *TemporalClient) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}
