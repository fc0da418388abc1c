package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flexprice/planshift/internal/domain/impact"
	"github.com/flexprice/planshift/internal/domain/planversion"
	"github.com/flexprice/planshift/internal/domain/subscription"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

var monthsPerYear = decimal.NewFromInt(12)

// ImpactService computes who and what a proposed plan change affects.
// Analyses are always computed fresh and never mutate plans or subscriptions.
type ImpactService interface {
	AnalyzeChange(ctx context.Context, planName string, delta planversion.Delta, actor string) (*impact.ImpactAnalysis, error)
}

type impactService struct {
	ServiceParams
	versions PlanVersionService
	index    SubscriptionIndex
	history  *changeHistoryService
}

func NewImpactService(params ServiceParams) ImpactService {
	return newImpactService(params)
}

func newImpactService(params ServiceParams) *impactService {
	return &impactService{
		ServiceParams: params,
		versions:      NewPlanVersionService(params),
		index:         NewSubscriptionIndex(params),
		history:       &changeHistoryService{ServiceParams: params},
	}
}

// planSnapshot is the state every analysis of one request is computed against
type planSnapshot struct {
	current *planversion.PlanVersion
	subs    []*subscription.Subscription
	// provisioned holds the versions the subscriptions were sold under
	provisioned map[int]*planversion.PlanVersion
}

// pricingOf returns the pricing a subscription is billed at today, falling
// back to the current version when its own version is gone
func (p *planSnapshot) pricingOf(sub *subscription.Subscription) planversion.Pricing {
	if v, ok := p.provisioned[sub.PlanVersionNumber]; ok {
		return v.Pricing
	}
	return p.current.Pricing
}

func (s *impactService) AnalyzeChange(ctx context.Context, planName string, delta planversion.Delta, actor string) (*impact.ImpactAnalysis, error) {
	delta, err := normalizeDelta(delta)
	if err != nil {
		return nil, err
	}
	if err := delta.Validate(); err != nil {
		return nil, err
	}

	snapshot, err := s.snapshot(ctx, planName)
	if err != nil {
		return nil, err
	}

	analysis := s.analyze(ctx, snapshot, delta, actor)

	if err := s.history.record(ctx, historyRecord{
		EntryType:         types.HistoryEntryTypeImpactAnalysis,
		ReferenceID:       analysis.AnalysisID,
		PlanName:          planName,
		PlanVersionNumber: analysis.PlanVersionNumber,
		RiskLevel:         analysis.RiskLevel,
		Summary: fmt.Sprintf("%s change on %s affects %d subscriptions, risk %s",
			analysis.ChangeType, planName, analysis.AffectedSubscriptionCount, analysis.RiskLevel),
		Details: analysis,
		Actor:   analysis.AnalyzedBy,
	}); err != nil {
		return nil, err
	}

	s.Logger.Infow("analyzed plan change",
		"analysis_id", analysis.AnalysisID,
		"plan_name", planName,
		"change_type", analysis.ChangeType,
		"affected", analysis.AffectedSubscriptionCount,
		"risk_level", analysis.RiskLevel)
	return analysis, nil
}

func (s *impactService) snapshot(ctx context.Context, planName string) (*planSnapshot, error) {
	current, err := s.versions.GetCurrentVersion(ctx, planName)
	if err != nil {
		return nil, err
	}
	subs, err := s.index.ActiveByPlan(ctx, planName)
	if err != nil {
		return nil, err
	}

	snapshot := &planSnapshot{
		current:     current,
		subs:        subs,
		provisioned: map[int]*planversion.PlanVersion{current.VersionNumber: current},
	}
	numbers := lo.Uniq(lo.Map(subs, func(sub *subscription.Subscription, _ int) int {
		return sub.PlanVersionNumber
	}))
	for _, n := range numbers {
		if _, ok := snapshot.provisioned[n]; ok {
			continue
		}
		v, err := s.versions.GetVersion(ctx, planName, n)
		if err != nil {
			if ierr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		snapshot.provisioned[n] = v
	}
	return snapshot, nil
}

// analyze computes one analysis without recording it
func (s *impactService) analyze(ctx context.Context, snapshot *planSnapshot, delta planversion.Delta, actor string) *impact.ImpactAnalysis {
	analysis := &impact.ImpactAnalysis{
		AnalysisID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_IMPACT_ANALYSIS),
		PlanName:          snapshot.current.PlanName,
		PlanVersionNumber: snapshot.current.VersionNumber,
		ChangeType:        delta.ChangeType(),
		ProposedDelta:     delta,
		FinancialImpact: impact.FinancialImpact{
			MonthlyDeltaTotal:     decimal.Zero,
			YearlyDeltaTotal:      decimal.Zero,
			CurrentMonthlyRevenue: decimal.Zero,
			Currency:              snapshot.current.Pricing.Currency,
		},
		FeatureImpact: impact.FeatureImpact{
			FeaturesGained: []string{},
			FeaturesLost:   []string{},
		},
		CreatedAt:  time.Now().UTC(),
		AnalyzedBy: types.ResolveActor(ctx, actor),
	}

	affected := snapshot.subs
	analysis.FinancialImpact.CurrentMonthlyRevenue = s.monthlyRevenue(snapshot)

	switch d := delta.(type) {
	case planversion.PricingDelta:
		s.analyzePricing(snapshot, d, analysis)
	case planversion.FeaturesDelta:
		gained, lost := d.Diff(snapshot.current)
		analysis.FeatureImpact = impact.FeatureImpact{
			FeaturesGained: lo.Ternary(gained == nil, []string{}, gained),
			FeaturesLost:   lo.Ternary(lost == nil, []string{}, lost),
			GainedCount:    len(gained),
			LostCount:      len(lost),
		}
		if len(gained) == 0 && len(lost) == 0 {
			affected = nil
		}
	case planversion.LimitsDelta:
		analysis.AtRiskSubscriptionCount, analysis.UnknownUsageCount = s.analyzeLimits(ctx, snapshot.subs, d)
	case planversion.DisableDelta:
		// existing subscriptions keep billing, only new sign-ups stop
	}

	ids := lo.Map(affected, func(sub *subscription.Subscription, _ int) string { return sub.ID })
	analysis.AffectedSubscriptionCount = len(ids)
	if limit := s.Config.Analysis.MaxAffectedIDs; limit > 0 && len(ids) > limit {
		ids = ids[:limit]
		analysis.AffectedIDsTruncated = true
	}
	analysis.AffectedSubscriptionIDs = ids

	analysis.RiskLevel = classifyRisk(s.Config.Risk, riskInput{
		AffectedCount:         analysis.AffectedSubscriptionCount,
		AtRiskCount:           analysis.AtRiskSubscriptionCount,
		MonthlyDeltaTotal:     analysis.FinancialImpact.MonthlyDeltaTotal,
		CurrentMonthlyRevenue: analysis.FinancialImpact.CurrentMonthlyRevenue,
	})
	return analysis
}

// monthlyRevenue sums what the active subscriptions pay today, yearly
// subscriptions normalised to a month
func (s *impactService) monthlyRevenue(snapshot *planSnapshot) decimal.Decimal {
	total := decimal.Zero
	for _, sub := range snapshot.subs {
		price := snapshot.pricingOf(sub).PriceFor(sub.BillingCycle)
		total = total.Add(toMonthly(price, sub.BillingCycle))
	}
	return total.Round(2)
}

func (s *impactService) analyzePricing(snapshot *planSnapshot, d planversion.PricingDelta, analysis *impact.ImpactAnalysis) {
	proposed := d.ApplyToPricing(snapshot.current.Pricing)

	monthly := decimal.Zero
	yearly := decimal.Zero
	for _, sub := range snapshot.subs {
		diff := proposed.PriceFor(sub.BillingCycle).Sub(snapshot.pricingOf(sub).PriceFor(sub.BillingCycle))
		if sub.BillingCycle == types.BillingCycleYearly {
			yearly = yearly.Add(diff)
		}
		monthly = monthly.Add(toMonthly(diff, sub.BillingCycle))
	}

	analysis.FinancialImpact.MonthlyDeltaTotal = monthly.Round(2)
	analysis.FinancialImpact.YearlyDeltaTotal = yearly.Round(2)
	analysis.FinancialImpact.Currency = proposed.Currency
}

// analyzeLimits fetches usage for every subscription and counts those already
// over one of the proposed finite limits. Subscriptions without known usage
// for some proposed limit, and not over any other, count as unknown.
func (s *impactService) analyzeLimits(ctx context.Context, subs []*subscription.Subscription, d planversion.LimitsDelta) (atRisk, unknown int) {
	names := lo.Keys(d.Limits)

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(lo.Max([]int{1, s.Config.Analysis.UsageConcurrency}))
	for _, sub := range subs {
		sub := sub
		p.Go(func() {
			exceeded, missing := false, false
			for _, name := range names {
				limit := d.Limits[name]
				if limit.Unlimited {
					continue
				}
				usage, known := s.index.Usage(ctx, sub.ID, name)
				if !known {
					missing = true
					continue
				}
				if limit.IsExceededBy(usage) {
					exceeded = true
					break
				}
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case exceeded:
				atRisk++
			case missing:
				unknown++
			}
		})
	}
	p.Wait()
	return atRisk, unknown
}

func toMonthly(amount decimal.Decimal, cycle types.BillingCycle) decimal.Decimal {
	if cycle == types.BillingCycleYearly {
		return amount.Div(monthsPerYear)
	}
	return amount
}

// normalizeDelta accepts pointer deltas and rejects a missing one
func normalizeDelta(delta planversion.Delta) (planversion.Delta, error) {
	switch d := delta.(type) {
	case nil:
		return nil, ierr.NewError("change is required").
			WithHint("Provide the change to analyze").
			Mark(ierr.ErrValidation)
	case *planversion.PricingDelta:
		if d != nil {
			return *d, nil
		}
	case *planversion.FeaturesDelta:
		if d != nil {
			return *d, nil
		}
	case *planversion.LimitsDelta:
		if d != nil {
			return *d, nil
		}
	case *planversion.DisableDelta:
		if d != nil {
			return *d, nil
		}
	default:
		if err := delta.ChangeType().Validate(); err != nil {
			return nil, err
		}
		return delta, nil
	}
	return nil, ierr.NewError("change is required").
		WithHint("Provide the change to analyze").
		Mark(ierr.ErrValidation)
}
