package service

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/planshift/internal/domain/impact"
	"github.com/flexprice/planshift/internal/domain/planversion"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
)

// SimulationService previews a composite change before anything is committed
type SimulationService interface {
	// SimulateChange analyzes each populated part of the change against the
	// same snapshot of the plan. Status changes are not simulated.
	SimulateChange(ctx context.Context, planName string, change planversion.Change, actor string) (*impact.SimulationResult, error)
}

type simulationService struct {
	ServiceParams
	impact  *impactService
	history *changeHistoryService
}

func NewSimulationService(params ServiceParams) SimulationService {
	return &simulationService{
		ServiceParams: params,
		impact:        newImpactService(params),
		history:       &changeHistoryService{ServiceParams: params},
	}
}

func (s *simulationService) SimulateChange(ctx context.Context, planName string, change planversion.Change, actor string) (*impact.SimulationResult, error) {
	change.Status = nil
	deltas := change.Deltas()
	if len(deltas) == 0 {
		return nil, ierr.NewError("nothing to simulate").
			WithHint("Provide at least one of pricing, features or limits to simulate").
			Mark(ierr.ErrValidation)
	}
	for _, d := range deltas {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}

	snapshot, err := s.impact.snapshot(ctx, planName)
	if err != nil {
		return nil, err
	}

	actor = types.ResolveActor(ctx, actor)
	analyses := make([]*impact.ImpactAnalysis, len(deltas))
	p := pool.New().WithContext(ctx).WithCancelOnError()
	for i, d := range deltas {
		i, d := i, d
		p.Go(func(ctx context.Context) error {
			analyses[i] = s.impact.analyze(ctx, snapshot, d, actor)
			return ctx.Err()
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	result := &impact.SimulationResult{
		SimulationID: types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SIMULATION),
		PlanName:     planName,
		Analyses:     analyses,
		OverallRisk: types.MaxRiskLevel(lo.Map(analyses, func(a *impact.ImpactAnalysis, _ int) types.RiskLevel {
			return a.RiskLevel
		})...),
		CreatedAt:   time.Now().UTC(),
		SimulatedBy: actor,
	}

	if err := s.history.record(ctx, historyRecord{
		EntryType:         types.HistoryEntryTypeSimulation,
		ReferenceID:       result.SimulationID,
		PlanName:          planName,
		PlanVersionNumber: snapshot.current.VersionNumber,
		RiskLevel:         result.OverallRisk,
		Summary:           fmt.Sprintf("simulated %s change on %s, overall risk %s", describeChange(change), planName, result.OverallRisk),
		Details:           result,
		Actor:             actor,
	}); err != nil {
		return nil, err
	}

	s.Logger.Infow("simulated plan change",
		"simulation_id", result.SimulationID,
		"plan_name", planName,
		"analyses", len(analyses),
		"overall_risk", result.OverallRisk)
	return result, nil
}
