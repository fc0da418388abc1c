package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flexprice/planshift/internal/domain/planversion"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/samber/lo"
)

// InMemoryPlanVersionStore implements planversion.Repository. The mutex plays
// the part of the per-plan advisory lock of the postgres store.
type InMemoryPlanVersionStore struct {
	mu       sync.Mutex
	plans    *InMemoryStore[*planversion.Plan]
	versions *InMemoryStore[*planversion.PlanVersion]
}

func NewInMemoryPlanVersionStore() *InMemoryPlanVersionStore {
	return &InMemoryPlanVersionStore{
		plans:    NewInMemoryStore[*planversion.Plan]("plan"),
		versions: NewInMemoryStore[*planversion.PlanVersion]("plan version"),
	}
}

func versionKey(planName string, versionNumber int) string {
	return fmt.Sprintf("%s:%d", planName, versionNumber)
}

func (s *InMemoryPlanVersionStore) CreatePlan(ctx context.Context, plan *planversion.Plan, first *planversion.PlanVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.plans.Get(ctx, plan.Name); err == nil {
		return ierr.NewError("plan already exists").
			WithHintf("Plan %q already exists", plan.Name).
			Mark(ierr.ErrAlreadyExists)
	}
	if err := s.plans.Create(ctx, plan.Name, copyPlan(plan)); err != nil {
		return err
	}
	return s.versions.Create(ctx, versionKey(first.PlanName, first.VersionNumber), first.Clone())
}

func (s *InMemoryPlanVersionStore) GetPlan(ctx context.Context, name string) (*planversion.Plan, error) {
	p, err := s.plans.Get(ctx, name)
	if err != nil {
		return nil, ierr.NewPlanNotFound(name)
	}
	return copyPlan(p), nil
}

func (s *InMemoryPlanVersionStore) ListPlans(ctx context.Context) ([]*planversion.Plan, error) {
	plans, err := s.plans.List(ctx, nil, nil, func(i, j *planversion.Plan) bool {
		return i.Name < j.Name
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(plans, func(p *planversion.Plan, _ int) *planversion.Plan { return copyPlan(p) }), nil
}

func (s *InMemoryPlanVersionStore) CreateVersion(ctx context.Context, version *planversion.PlanVersion, expectedCurrent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.guardCurrent(ctx, version.PlanName, expectedCurrent)
	if err != nil {
		return err
	}
	version.VersionNumber = s.maxVersion(ctx, version.PlanName) + 1
	if err := s.versions.Create(ctx, versionKey(version.PlanName, version.VersionNumber), version.Clone()); err != nil {
		if ierr.IsAlreadyExists(err) {
			return conflict(version.PlanName, expectedCurrent)
		}
		return err
	}
	plan.CurrentVersionNumber = version.VersionNumber
	plan.Enabled = version.IsEnabled()
	plan.UpdatedAt = time.Now().UTC()
	return s.plans.Update(ctx, plan.Name, plan)
}

func (s *InMemoryPlanVersionStore) MaxVersionNumber(ctx context.Context, planName string) (int, error) {
	if _, err := s.plans.Get(ctx, planName); err != nil {
		return 0, ierr.NewPlanNotFound(planName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxVersion(ctx, planName), nil
}

// maxVersion must be called with s.mu held
func (s *InMemoryPlanVersionStore) maxVersion(ctx context.Context, planName string) int {
	versions, _ := s.versions.List(ctx, planName, func(_ context.Context, v *planversion.PlanVersion, f interface{}) bool {
		return v.PlanName == f.(string)
	}, nil)
	return lo.Max(lo.Map(versions, func(v *planversion.PlanVersion, _ int) int { return v.VersionNumber }))
}

func (s *InMemoryPlanVersionStore) GetVersion(ctx context.Context, planName string, versionNumber int) (*planversion.PlanVersion, error) {
	v, err := s.versions.Get(ctx, versionKey(planName, versionNumber))
	if err != nil {
		return nil, ierr.NewError("plan version not found").
			WithHintf("Version %d of plan %q does not exist", versionNumber, planName).
			WithReportableDetails(map[string]any{
				"plan_name":      planName,
				"version_number": versionNumber,
			}).
			Mark(ierr.ErrNotFound)
	}
	return v.Clone(), nil
}

func (s *InMemoryPlanVersionStore) ListVersions(ctx context.Context, planName string) ([]*planversion.PlanVersion, error) {
	versions, err := s.versions.List(ctx, planName, func(_ context.Context, v *planversion.PlanVersion, f interface{}) bool {
		return v.PlanName == f.(string)
	}, nil)
	if err != nil {
		return nil, err
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].VersionNumber < versions[j].VersionNumber })
	return lo.Map(versions, func(v *planversion.PlanVersion, _ int) *planversion.PlanVersion { return v.Clone() }), nil
}

func (s *InMemoryPlanVersionStore) SetCurrentVersion(ctx context.Context, planName string, expectedCurrent, versionNumber int, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.guardCurrent(ctx, planName, expectedCurrent)
	if err != nil {
		return err
	}
	if _, err := s.versions.Get(ctx, versionKey(planName, versionNumber)); err != nil {
		return ierr.WithError(err).
			WithHintf("Version %d of plan %q does not exist", versionNumber, planName).
			Mark(ierr.ErrNotFound)
	}
	plan.CurrentVersionNumber = versionNumber
	plan.Enabled = enabled
	plan.UpdatedAt = time.Now().UTC()
	return s.plans.Update(ctx, plan.Name, plan)
}

// guardCurrent must be called with s.mu held
func (s *InMemoryPlanVersionStore) guardCurrent(ctx context.Context, planName string, expectedCurrent int) (*planversion.Plan, error) {
	p, err := s.plans.Get(ctx, planName)
	if err != nil {
		return nil, ierr.NewPlanNotFound(planName)
	}
	if p.CurrentVersionNumber != expectedCurrent {
		return nil, conflict(planName, expectedCurrent)
	}
	return copyPlan(p), nil
}

func (s *InMemoryPlanVersionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans.Clear()
	s.versions.Clear()
}

func conflict(planName string, expectedCurrent int) error {
	return ierr.NewError("plan version changed concurrently").
		WithHintf("Plan %q was changed by someone else, reload and retry", planName).
		WithReportableDetails(map[string]any{
			"plan_name":        planName,
			"expected_current": expectedCurrent,
		}).
		Mark(ierr.ErrVersionConflict)
}

func copyPlan(p *planversion.Plan) *planversion.Plan {
	c := *p
	return &c
}
