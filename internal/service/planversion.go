package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/planshift/internal/cache"
	"github.com/flexprice/planshift/internal/domain/planversion"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/flexprice/planshift/internal/validator"
	"github.com/samber/lo"
)

// PlanVersionService owns plans and their immutable, numbered versions. The
// current version pointer only moves through CreateVersion and SetCurrentVersion.
type PlanVersionService interface {
	// CreatePlan stores a new plan with draft as its first version
	CreatePlan(ctx context.Context, draft *planversion.PlanVersion, actor string) (*planversion.PlanVersion, error)
	GetPlan(ctx context.Context, name string) (*planversion.Plan, error)
	ListPlans(ctx context.Context) ([]*planversion.Plan, error)
	CreateVersion(ctx context.Context, planName string, change planversion.Change, actor string) (*planversion.PlanVersion, error)
	GetCurrentVersion(ctx context.Context, planName string) (*planversion.PlanVersion, error)
	GetVersion(ctx context.Context, planName string, versionNumber int) (*planversion.PlanVersion, error)
	ListVersions(ctx context.Context, planName string) ([]*planversion.PlanVersion, error)
	SetCurrentVersion(ctx context.Context, planName string, versionNumber int, actor string) error
}

type planVersionService struct {
	ServiceParams
	history *changeHistoryService
}

func NewPlanVersionService(params ServiceParams) PlanVersionService {
	return &planVersionService{
		ServiceParams: params,
		history:       &changeHistoryService{ServiceParams: params},
	}
}

func (s *planVersionService) CreatePlan(ctx context.Context, draft *planversion.PlanVersion, actor string) (*planversion.PlanVersion, error) {
	if draft == nil {
		return nil, ierr.NewError("plan definition is required").
			WithHint("Plan definition is required").
			Mark(ierr.ErrValidation)
	}
	if err := validator.ValidatePlanName(draft.PlanName); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	actor = types.ResolveActor(ctx, actor)

	first := draft.Clone()
	first.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN_VERSION)
	first.VersionNumber = 1
	first.Pricing.Currency = types.NormalizeCurrency(first.Pricing.Currency)
	first.Features = planversion.NormalizeFeatures(first.Features)
	if first.Limits == nil {
		first.Limits = planversion.Limits{}
	}
	if first.Status == "" {
		first.Status = types.PlanStatusEnabled
	}
	if first.ChangeSummary == "" {
		first.ChangeSummary = "initial version"
	}
	first.CreatedAt = now
	first.CreatedBy = actor
	if err := first.Validate(); err != nil {
		return nil, err
	}

	plan := &planversion.Plan{
		Name:                 first.PlanName,
		CurrentVersionNumber: 1,
		Enabled:              first.IsEnabled(),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.PlanVersionRepo.CreatePlan(ctx, plan, first); err != nil {
			return err
		}
		return s.history.record(ctx, historyRecord{
			EntryType:         types.HistoryEntryTypePlanVersion,
			ReferenceID:       first.ID,
			PlanName:          first.PlanName,
			PlanVersionNumber: first.VersionNumber,
			Summary:           fmt.Sprintf("created plan %s at version 1", first.PlanName),
			Details:           first,
			Actor:             actor,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("created plan",
		"plan_name", first.PlanName,
		"version_id", first.ID,
		"actor", actor)
	return first, nil
}

func (s *planVersionService) GetPlan(ctx context.Context, name string) (*planversion.Plan, error) {
	return s.PlanVersionRepo.GetPlan(ctx, name)
}

func (s *planVersionService) ListPlans(ctx context.Context) ([]*planversion.Plan, error) {
	return s.PlanVersionRepo.ListPlans(ctx)
}

func (s *planVersionService) CreateVersion(ctx context.Context, planName string, change planversion.Change, actor string) (*planversion.PlanVersion, error) {
	if err := change.Validate(); err != nil {
		return nil, err
	}

	current, err := s.GetCurrentVersion(ctx, planName)
	if err != nil {
		return nil, err
	}

	// the store allocates the final number under the plan lock
	latest, err := s.PlanVersionRepo.MaxVersionNumber(ctx, planName)
	if err != nil {
		return nil, err
	}

	actor = types.ResolveActor(ctx, actor)
	next := change.ApplyTo(current)
	next.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN_VERSION)
	next.VersionNumber = latest + 1
	next.CreatedAt = time.Now().UTC()
	next.CreatedBy = actor
	if next.ChangeSummary == "" {
		next.ChangeSummary = fmt.Sprintf("changed %s", describeChange(change))
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.PlanVersionRepo.CreateVersion(ctx, next, current.VersionNumber); err != nil {
			return err
		}
		return s.history.record(ctx, historyRecord{
			EntryType:         types.HistoryEntryTypePlanVersion,
			ReferenceID:       next.ID,
			PlanName:          planName,
			PlanVersionNumber: next.VersionNumber,
			Summary:           fmt.Sprintf("created version %d of plan %s: %s", next.VersionNumber, planName, next.ChangeSummary),
			Details:           next,
			Actor:             actor,
		})
	})
	if err != nil {
		if ierr.IsVersionConflict(err) {
			s.Logger.Warnw("plan version creation lost a race",
				"plan_name", planName,
				"expected_current", current.VersionNumber)
		}
		return nil, err
	}

	s.Logger.Infow("created plan version",
		"plan_name", planName,
		"version_number", next.VersionNumber,
		"actor", actor)
	return next, nil
}

func (s *planVersionService) GetCurrentVersion(ctx context.Context, planName string) (*planversion.PlanVersion, error) {
	plan, err := s.PlanVersionRepo.GetPlan(ctx, planName)
	if err != nil {
		return nil, err
	}
	return s.GetVersion(ctx, planName, plan.CurrentVersionNumber)
}

// GetVersion serves versions from the cache when possible. Versions never
// change after creation so cached entries are never invalidated.
func (s *planVersionService) GetVersion(ctx context.Context, planName string, versionNumber int) (*planversion.PlanVersion, error) {
	key := cache.PlanVersionKey(planName, versionNumber)
	if v, ok := cache.Lookup[*planversion.PlanVersion](ctx, s.Cache, key); ok {
		return v.Clone(), nil
	}

	v, err := s.PlanVersionRepo.GetVersion(ctx, planName, versionNumber)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, key, v.Clone(), 0)
	}
	return v, nil
}

func (s *planVersionService) ListVersions(ctx context.Context, planName string) ([]*planversion.PlanVersion, error) {
	if _, err := s.PlanVersionRepo.GetPlan(ctx, planName); err != nil {
		return nil, err
	}
	return s.PlanVersionRepo.ListVersions(ctx, planName)
}

func (s *planVersionService) SetCurrentVersion(ctx context.Context, planName string, versionNumber int, actor string) error {
	plan, err := s.PlanVersionRepo.GetPlan(ctx, planName)
	if err != nil {
		return err
	}
	target, err := s.GetVersion(ctx, planName, versionNumber)
	if err != nil {
		return err
	}

	if err := s.PlanVersionRepo.SetCurrentVersion(ctx, planName, plan.CurrentVersionNumber, versionNumber, target.IsEnabled()); err != nil {
		return err
	}

	s.Logger.Infow("moved current plan version",
		"plan_name", planName,
		"from_version", plan.CurrentVersionNumber,
		"to_version", versionNumber,
		"actor", types.ResolveActor(ctx, actor))
	return nil
}

// describeChange names the parts of a plan a change touches, e.g. "pricing, limits"
func describeChange(change planversion.Change) string {
	parts := lo.Map(change.Deltas(), func(d planversion.Delta, _ int) string {
		return d.ChangeType().String()
	})
	if change.Status != nil {
		parts = append(parts, "status")
	}
	return strings.Join(parts, ", ")
}
