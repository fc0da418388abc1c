package service

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/planshift/internal/domain/rollback"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
)

// RollbackService repoints a plan to one of its earlier versions. Subscriptions
// already moved stay where they are; undoing a migration means planning a new one.
type RollbackService interface {
	RollbackPlanChange(ctx context.Context, planName string, toVersion int, reason, actor string) (*rollback.Record, error)
	ListRollbacks(ctx context.Context, planName string) ([]*rollback.Record, error)
}

type rollbackService struct {
	ServiceParams
	versions PlanVersionService
	history  *changeHistoryService
}

func NewRollbackService(params ServiceParams) RollbackService {
	return &rollbackService{
		ServiceParams: params,
		versions:      NewPlanVersionService(params),
		history:       &changeHistoryService{ServiceParams: params},
	}
}

func (s *rollbackService) RollbackPlanChange(ctx context.Context, planName string, toVersion int, reason, actor string) (*rollback.Record, error) {
	if reason == "" {
		return nil, ierr.NewError("reason is required").
			WithHint("Explain why the plan is being rolled back").
			Mark(ierr.ErrValidation)
	}

	plan, err := s.versions.GetPlan(ctx, planName)
	if err != nil {
		return nil, err
	}
	target, err := s.versions.GetVersion(ctx, planName, toVersion)
	if err != nil {
		return nil, err
	}
	if toVersion >= plan.CurrentVersionNumber {
		return nil, ierr.NewError("can only roll back to an earlier version").
			WithHintf("Plan %s is at version %d, pick a lower version", planName, plan.CurrentVersionNumber).
			WithReportableDetails(map[string]any{
				"plan_name":           planName,
				"current_version":     plan.CurrentVersionNumber,
				"rollback_to_version": toVersion,
			}).
			Mark(ierr.ErrValidation)
	}

	record := &rollback.Record{
		ID:                    types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ROLLBACK),
		PlanName:              planName,
		RolledBackFromVersion: plan.CurrentVersionNumber,
		RolledBackToVersion:   toVersion,
		Reason:                reason,
		RolledBackBy:          types.ResolveActor(ctx, actor),
		CreatedAt:             time.Now().UTC(),
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.PlanVersionRepo.SetCurrentVersion(ctx, planName, plan.CurrentVersionNumber, toVersion, target.IsEnabled()); err != nil {
			return err
		}
		if err := s.RollbackRepo.Create(ctx, record); err != nil {
			return err
		}
		return s.history.record(ctx, historyRecord{
			EntryType:         types.HistoryEntryTypeRollback,
			ReferenceID:       record.ID,
			PlanName:          planName,
			PlanVersionNumber: toVersion,
			Summary: fmt.Sprintf("rolled back plan %s from version %d to %d: %s",
				planName, record.RolledBackFromVersion, toVersion, reason),
			Details: record,
			Actor:   record.RolledBackBy,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("rolled back plan",
		"plan_name", planName,
		"rollback_id", record.ID,
		"from_version", record.RolledBackFromVersion,
		"to_version", toVersion,
		"actor", record.RolledBackBy)
	return record, nil
}

func (s *rollbackService) ListRollbacks(ctx context.Context, planName string) ([]*rollback.Record, error) {
	if _, err := s.versions.GetPlan(ctx, planName); err != nil {
		return nil, err
	}
	return s.RollbackRepo.ListByPlan(ctx, planName)
}
