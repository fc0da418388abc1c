package types

import (
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/samber/lo"
)

// MigrationStrategy controls how the executor treats the batches of a migration plan
type MigrationStrategy string

const (
	// MigrationStrategyImmediate runs all batches back to back
	MigrationStrategyImmediate MigrationStrategy = "immediate"
	// MigrationStrategyGradual waits the plan's batch delay between batches
	MigrationStrategyGradual MigrationStrategy = "gradual"
	// MigrationStrategyGrandfather keeps existing subscribers on their terms,
	// batches are informational and no subscription is touched
	MigrationStrategyGrandfather MigrationStrategy = "grandfather"
)

func (s MigrationStrategy) String() string {
	return string(s)
}

func (s MigrationStrategy) Validate() error {
	allowed := []MigrationStrategy{
		MigrationStrategyImmediate,
		MigrationStrategyGradual,
		MigrationStrategyGrandfather,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid migration strategy").
			WithHint("Strategy must be one of immediate, gradual or grandfather").
			WithReportableDetails(map[string]any{
				"strategy":           s,
				"allowed_strategies": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// BatchStatus is the status of a single migration batch
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusInProgress BatchStatus = "in_progress"
	BatchStatusSucceeded  BatchStatus = "succeeded"
	BatchStatusFailed     BatchStatus = "failed"
)

func (s BatchStatus) String() string {
	return string(s)
}

// MigrationStatus is the overall status of a migration plan
type MigrationStatus string

const (
	MigrationStatusCreated         MigrationStatus = "created"
	MigrationStatusExecuting       MigrationStatus = "executing"
	MigrationStatusCompleted       MigrationStatus = "completed"
	MigrationStatusPartiallyFailed MigrationStatus = "partially_failed"
	MigrationStatusRolledBack      MigrationStatus = "rolled_back"
)

func (s MigrationStatus) String() string {
	return string(s)
}

// ExecutionStatus is the status of one execution attempt of a migration plan
type ExecutionStatus string

const (
	ExecutionStatusStarted         ExecutionStatus = "started"
	ExecutionStatusCompleted       ExecutionStatus = "completed"
	ExecutionStatusPartiallyFailed ExecutionStatus = "partially_failed"
	ExecutionStatusCancelled       ExecutionStatus = "cancelled"
)

func (s ExecutionStatus) String() string {
	return string(s)
}

// Notification event types sent to customers of migrated subscriptions
const (
	NotificationEventPlanMigrated        = "plan_migration.succeeded"
	NotificationEventPlanMigrationFailed = "plan_migration.failed"
)
