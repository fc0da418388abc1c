package service

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/planshift/internal/domain/migration"
	"github.com/flexprice/planshift/internal/domain/planversion"
	"github.com/flexprice/planshift/internal/domain/subscription"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
)

// CreateMigrationPlanParams describes a plan-to-plan move. Source and target
// may be the same plan, e.g. to move subscriptions onto a version restored
// by a rollback.
type CreateMigrationPlanParams struct {
	SourcePlan string
	TargetPlan string
	// TargetVersion pins an existing version of the target plan. Zero means
	// its current version.
	TargetVersion int
	Strategy      types.MigrationStrategy
	// BatchSize of zero picks the configured default
	BatchSize int
	Actor     string
}

// MigrationPlannerService turns an approved move into a persisted, batched
// migration plan. Planning never touches subscriptions or billing.
type MigrationPlannerService interface {
	CreateMigrationPlan(ctx context.Context, params CreateMigrationPlanParams) (*migration.MigrationPlan, error)
	GetMigrationPlan(ctx context.Context, id string) (*migration.MigrationPlan, error)
	ListMigrationPlans(ctx context.Context, filter *types.MigrationPlanFilter) (*types.ListResponse[*migration.MigrationPlan], error)
}

type migrationPlannerService struct {
	ServiceParams
	versions PlanVersionService
	index    SubscriptionIndex
	history  *changeHistoryService
}

func NewMigrationPlannerService(params ServiceParams) MigrationPlannerService {
	return &migrationPlannerService{
		ServiceParams: params,
		versions:      NewPlanVersionService(params),
		index:         NewSubscriptionIndex(params),
		history:       &changeHistoryService{ServiceParams: params},
	}
}

func (s *migrationPlannerService) CreateMigrationPlan(ctx context.Context, params CreateMigrationPlanParams) (*migration.MigrationPlan, error) {
	if err := params.Strategy.Validate(); err != nil {
		return nil, err
	}
	if params.SourcePlan == "" || params.TargetPlan == "" {
		return nil, ierr.NewError("source and target plans are required").
			WithHint("Both the source and the target plan must be named").
			Mark(ierr.ErrValidation)
	}
	if params.TargetVersion < 0 {
		return nil, ierr.NewError("target version cannot be negative").
			WithHint("Target version must be positive, or zero for the current version").
			WithReportableDetails(map[string]any{
				"target_version": params.TargetVersion,
			}).
			Mark(ierr.ErrValidation)
	}
	batchSize, err := s.batchSize(params.BatchSize)
	if err != nil {
		return nil, err
	}

	if _, err := s.versions.GetCurrentVersion(ctx, params.SourcePlan); err != nil {
		return nil, planValidationError(err, params.SourcePlan)
	}
	target, err := s.targetVersion(ctx, params.TargetPlan, params.TargetVersion)
	if err != nil {
		return nil, err
	}
	if !target.IsEnabled() {
		return nil, ierr.NewError("target plan is disabled").
			WithHintf("Plan %q is disabled and cannot receive subscriptions", params.TargetPlan).
			WithReportableDetails(map[string]any{
				"target_plan":    params.TargetPlan,
				"version_number": target.VersionNumber,
			}).
			Mark(ierr.ErrValidation)
	}

	subs, err := s.index.ActiveByPlan(ctx, params.SourcePlan)
	if err != nil {
		return nil, err
	}
	subs = lo.Reject(subs, func(sub *subscription.Subscription, _ int) bool {
		return sub.IsOn(target.PlanName, target.VersionNumber)
	})

	now := time.Now().UTC()
	actor := types.ResolveActor(ctx, params.Actor)
	plan := &migration.MigrationPlan{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_MIGRATION),
		SourcePlan:          params.SourcePlan,
		TargetPlan:          params.TargetPlan,
		TargetVersionNumber: target.VersionNumber,
		Strategy:            params.Strategy,
		BatchSize:           batchSize,
		OverallStatus:       types.MigrationStatusCreated,
		CreatedAt:           now,
		CreatedBy:           actor,
		UpdatedAt:           now,
	}
	if plan.Strategy == types.MigrationStrategyGradual {
		plan.BatchDelay = s.Config.Migration.GradualDelay
	}

	ids := lo.Map(subs, func(sub *subscription.Subscription, _ int) string { return sub.ID })
	for i, chunk := range lo.Chunk(ids, batchSize) {
		plan.Batches = append(plan.Batches, &migration.Batch{
			ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_MIGRATION_BATCH),
			MigrationID:     plan.ID,
			Sequence:        i + 1,
			SubscriptionIDs: chunk,
			Status:          types.BatchStatusPending,
			UpdatedAt:       now,
		})
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.MigrationRepo.Create(ctx, plan); err != nil {
			return err
		}
		return s.history.record(ctx, historyRecord{
			EntryType:         types.HistoryEntryTypeMigrationPlan,
			ReferenceID:       plan.ID,
			PlanName:          plan.SourcePlan,
			PlanVersionNumber: plan.TargetVersionNumber,
			Summary: fmt.Sprintf("planned %s migration of %d subscriptions from %s to %s v%d in %d batches",
				plan.Strategy, len(ids), plan.SourcePlan, plan.TargetPlan, plan.TargetVersionNumber, len(plan.Batches)),
			Details: plan,
			Actor:   actor,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created migration plan",
		"migration_id", plan.ID,
		"source_plan", plan.SourcePlan,
		"target_plan", plan.TargetPlan,
		"target_version", plan.TargetVersionNumber,
		"strategy", plan.Strategy,
		"subscriptions", len(ids),
		"batches", len(plan.Batches))
	return plan, nil
}

// targetVersion resolves the pinned version, or the current one when none is given
func (s *migrationPlannerService) targetVersion(ctx context.Context, planName string, versionNumber int) (*planversion.PlanVersion, error) {
	if versionNumber == 0 {
		v, err := s.versions.GetCurrentVersion(ctx, planName)
		if err != nil {
			return nil, planValidationError(err, planName)
		}
		return v, nil
	}

	if _, err := s.versions.GetPlan(ctx, planName); err != nil {
		return nil, planValidationError(err, planName)
	}
	v, err := s.versions.GetVersion(ctx, planName, versionNumber)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		return nil, ierr.WithError(err).
			WithHintf("Version %d of plan %q does not exist", versionNumber, planName).
			WithReportableDetails(map[string]any{
				"target_plan":    planName,
				"target_version": versionNumber,
			}).
			Mark(ierr.ErrValidation)
	}
	return v, nil
}

// batchSize applies the default and the configured ceiling
func (s *migrationPlannerService) batchSize(requested int) (int, error) {
	if requested < 0 {
		return 0, ierr.NewError("batch size cannot be negative").
			WithHint("Batch size must be positive, or zero for the default").
			WithReportableDetails(map[string]any{
				"batch_size": requested,
			}).
			Mark(ierr.ErrValidation)
	}
	if requested == 0 {
		return s.Config.Migration.DefaultBatchSize, nil
	}
	if limit := s.Config.Migration.MaxBatchSize; limit > 0 && requested > limit {
		s.Logger.Infow("capping migration batch size",
			"requested", requested,
			"max_batch_size", limit)
		return limit, nil
	}
	return requested, nil
}

func (s *migrationPlannerService) GetMigrationPlan(ctx context.Context, id string) (*migration.MigrationPlan, error) {
	if id == "" {
		return nil, ierr.NewError("migration id is required").
			WithHint("Migration id is required").
			Mark(ierr.ErrValidation)
	}
	return s.MigrationRepo.Get(ctx, id)
}

func (s *migrationPlannerService) ListMigrationPlans(ctx context.Context, filter *types.MigrationPlanFilter) (*types.ListResponse[*migration.MigrationPlan], error) {
	if filter == nil {
		filter = types.NewMigrationPlanFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	plans, err := s.MigrationRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.MigrationRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := types.NewPaginatedListResponse(plans, total, filter)
	return &resp, nil
}

// planValidationError reports an unknown plan as invalid input to the
// planner while keeping the plan-not-found mark
func planValidationError(err error, planName string) error {
	if !ierr.IsNotFound(err) {
		return err
	}
	return ierr.WithError(err).
		WithHintf("Plan %q does not exist", planName).
		Mark(ierr.ErrValidation)
}
