package models

import (
	"fmt"
	"time"

	ierr "github.com/flexprice/planshift/internal/errors"
)

const (
	// MigrationExecutionWorkflowName is the registered name of the execution workflow
	MigrationExecutionWorkflowName = "MigrationExecutionWorkflow"

	// ExecuteMigrationPlanActivityName is the registered name of the execution activity
	ExecuteMigrationPlanActivityName = "ExecuteMigrationPlan"

	// DefaultActivityTimeout bounds one execution attempt. Gradual migrations
	// sleep between batches so this is generous.
	DefaultActivityTimeout = 6 * time.Hour
)

// Error types that the activity reports as non retryable. Retrying them
// would fail the same way.
const (
	ErrorTypeValidation   = "validation"
	ErrorTypeInvalidState = "invalid_state"
	ErrorTypeNotFound     = "not_found"
)

// NonRetryableErrorTypes lists the application error types the workflow never retries
var NonRetryableErrorTypes = []string{
	ErrorTypeValidation,
	ErrorTypeInvalidState,
	ErrorTypeNotFound,
}

// MigrationExecutionWorkflowInput is the input of MigrationExecutionWorkflow
type MigrationExecutionWorkflowInput struct {
	MigrationID string `json:"migration_id"`
	DryRun      bool   `json:"dry_run"`
	Actor       string `json:"actor"`
	RequestID   string `json:"request_id,omitempty"`
	// ActivityTimeout overrides DefaultActivityTimeout when positive
	ActivityTimeout time.Duration `json:"activity_timeout,omitempty"`
}

func (i *MigrationExecutionWorkflowInput) Validate() error {
	if i.MigrationID == "" {
		return ierr.NewError("migration ID is required").
			WithHint("Migration ID is required").
			Mark(ierr.ErrValidation)
	}
	if i.ActivityTimeout < 0 {
		return ierr.NewError("activity timeout cannot be negative").
			WithHint("Activity timeout cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetActivityTimeout returns the timeout for one execution attempt
func (i *MigrationExecutionWorkflowInput) GetActivityTimeout() time.Duration {
	if i.ActivityTimeout > 0 {
		return i.ActivityTimeout
	}
	return DefaultActivityTimeout
}

// WorkflowID is stable per migration plan so two executions of the same
// plan cannot run as workflows at once
func (i *MigrationExecutionWorkflowInput) WorkflowID() string {
	return fmt.Sprintf("%s-%s", MigrationExecutionWorkflowName, i.MigrationID)
}

// WorkflowRun identifies a started workflow
type WorkflowRun struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}
