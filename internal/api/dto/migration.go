package dto

import (
	"github.com/flexprice/planshift/internal/domain/migration"
	"github.com/flexprice/planshift/internal/domain/rollback"
	"github.com/flexprice/planshift/internal/service"
	"github.com/flexprice/planshift/internal/temporal/models"
	"github.com/flexprice/planshift/internal/types"
	"github.com/flexprice/planshift/internal/validator"
)

type CreateMigrationPlanRequest struct {
	SourcePlan string `json:"source_plan" validate:"required"`
	TargetPlan string `json:"target_plan" validate:"required"`
	// TargetVersion pins a version of the target plan, the current one when omitted
	TargetVersion int                     `json:"target_version,omitempty" validate:"omitempty,min=1"`
	Strategy      types.MigrationStrategy `json:"strategy" validate:"required"`
	// BatchSize of zero picks the configured default
	BatchSize int    `json:"batch_size,omitempty" validate:"omitempty,min=1"`
	Actor     string `json:"actor,omitempty"`
}

func (r *CreateMigrationPlanRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.Strategy.Validate()
}

func (r *CreateMigrationPlanRequest) ToParams() service.CreateMigrationPlanParams {
	return service.CreateMigrationPlanParams{
		SourcePlan: r.SourcePlan,
		TargetPlan:    r.TargetPlan,
		TargetVersion: r.TargetVersion,
		Strategy:      r.Strategy,
		BatchSize:     r.BatchSize,
		Actor:         r.Actor,
	}
}

type ExecuteMigrationPlanRequest struct {
	DryRun bool   `json:"dry_run"`
	Actor  string `json:"actor,omitempty"`
	// Wait runs the execution in the request even when background
	// workflows are enabled
	Wait bool `json:"wait,omitempty"`
}

// ExecuteMigrationPlanResponse holds either the finished execution record or,
// for async executions, the started workflow
type ExecuteMigrationPlanResponse struct {
	Execution *migration.ExecutionRecord `json:"execution,omitempty"`
	Workflow  *models.WorkflowRun        `json:"workflow,omitempty"`
}

type MarkRolledBackRequest struct {
	Reason string `json:"reason" validate:"required"`
	Actor  string `json:"actor,omitempty"`
}

func (r *MarkRolledBackRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type ListExecutionsResponse = types.ListResponse[*migration.ExecutionRecord]

type ListMigrationPlansResponse = types.ListResponse[*migration.MigrationPlan]

type RollbackPlanChangeRequest struct {
	PlanName          string `json:"plan_name" validate:"required"`
	RollbackToVersion int    `json:"rollback_to_version" validate:"required,min=1"`
	Reason            string `json:"reason" validate:"required"`
	Actor             string `json:"actor,omitempty"`
}

func (r *RollbackPlanChangeRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type ListRollbacksResponse = types.ListResponse[*rollback.Record]
