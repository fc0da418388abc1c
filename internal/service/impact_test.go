package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flexprice/planshift/internal/config"
	"github.com/flexprice/planshift/internal/domain/planversion"
	"github.com/flexprice/planshift/internal/domain/subscription"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ImpactServiceSuite struct {
	planshiftSuite
	service ImpactService
}

func TestImpactService(t *testing.T) {
	suite.Run(t, new(ImpactServiceSuite))
}

func (s *ImpactServiceSuite) SetupTest() {
	s.planshiftSuite.SetupTest()
	s.service = NewImpactService(s.params())
}

func (s *ImpactServiceSuite) TestPricingChangeOnCreator() {
	s.createPlan("creator", 19)
	s.seedSubscriptions("creator", "sub", 3, types.BillingCycleMonthly)

	analysis, err := s.service.AnalyzeChange(s.GetContext(), "creator", planversion.PricingDelta{
		MonthlyPrice: decimalPtr(29),
	}, "")
	s.Require().NoError(err)

	s.Equal(types.ChangeTypePricing, analysis.ChangeType)
	s.Equal(3, analysis.AffectedSubscriptionCount)
	s.Equal([]string{"sub_1", "sub_2", "sub_3"}, analysis.AffectedSubscriptionIDs)
	s.True(analysis.FinancialImpact.MonthlyDeltaTotal.Equal(decimal.NewFromInt(30)),
		"monthly delta %s", analysis.FinancialImpact.MonthlyDeltaTotal)
	s.True(analysis.FinancialImpact.YearlyDeltaTotal.IsZero())
	s.True(analysis.FinancialImpact.CurrentMonthlyRevenue.Equal(decimal.NewFromInt(57)))
	s.Equal("usd", analysis.FinancialImpact.Currency)
	// +30 on 57 of monthly revenue is above the revenue fraction
	s.Equal(types.RiskLevelHigh, analysis.RiskLevel)
	s.Equal(1, analysis.PlanVersionNumber)
}

func (s *ImpactServiceSuite) TestPricingChangeNormalizesYearly() {
	s.createPlan("creator", 19)
	s.seedSubscriptions("creator", "monthly", 1, types.BillingCycleMonthly)
	s.seedSubscriptions("creator", "yearly", 1, types.BillingCycleYearly)

	analysis, err := s.service.AnalyzeChange(s.GetContext(), "creator", &planversion.PricingDelta{
		MonthlyPrice: decimalPtr(29),
		YearlyPrice:  decimalPtr(250),
	}, "")
	s.Require().NoError(err)

	s.Equal(2, analysis.AffectedSubscriptionCount)
	// 10 on the monthly subscription plus 60/12 on the yearly one
	s.True(analysis.FinancialImpact.MonthlyDeltaTotal.Equal(decimal.NewFromInt(15)),
		"monthly delta %s", analysis.FinancialImpact.MonthlyDeltaTotal)
	s.True(analysis.FinancialImpact.YearlyDeltaTotal.Equal(decimal.NewFromInt(60)))
}

func (s *ImpactServiceSuite) TestPricingUsesProvisionedVersion() {
	s.createPlan("creator", 19)
	s.seedSubscriptions("creator", "sub", 2, types.BillingCycleMonthly)
	_, err := NewPlanVersionService(s.params()).CreateVersion(s.GetContext(), "creator", planversion.Change{
		Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(24)},
	}, "")
	s.Require().NoError(err)

	// both subscriptions still pay the v1 price of 19
	analysis, err := s.service.AnalyzeChange(s.GetContext(), "creator", planversion.PricingDelta{
		MonthlyPrice: decimalPtr(29),
	}, "")
	s.Require().NoError(err)
	s.Equal(2, analysis.PlanVersionNumber)
	s.True(analysis.FinancialImpact.MonthlyDeltaTotal.Equal(decimal.NewFromInt(20)))
}

func (s *ImpactServiceSuite) TestFeatureChange() {
	s.createPlan("creator", 19, "analytics", "exports")
	s.seedSubscriptions("creator", "sub", 2, types.BillingCycleMonthly)

	analysis, err := s.service.AnalyzeChange(s.GetContext(), "creator", planversion.FeaturesDelta{
		FeaturesAdded:   []string{"sso", "analytics"},
		FeaturesRemoved: []string{"exports", "webhooks"},
	}, "")
	s.Require().NoError(err)

	s.Equal(2, analysis.AffectedSubscriptionCount)
	s.Equal([]string{"sso"}, analysis.FeatureImpact.FeaturesGained)
	s.Equal([]string{"exports"}, analysis.FeatureImpact.FeaturesLost)
	s.Equal(1, analysis.FeatureImpact.GainedCount)
	s.Equal(1, analysis.FeatureImpact.LostCount)
	s.True(analysis.FinancialImpact.MonthlyDeltaTotal.IsZero())
	s.Equal(types.RiskLevelLow, analysis.RiskLevel)
}

func (s *ImpactServiceSuite) TestFeatureChangeWithoutEffect() {
	s.createPlan("creator", 19, "analytics")
	s.seedSubscriptions("creator", "sub", 2, types.BillingCycleMonthly)

	analysis, err := s.service.AnalyzeChange(s.GetContext(), "creator", planversion.FeaturesDelta{
		FeaturesAdded: []string{"analytics"},
	}, "")
	s.Require().NoError(err)
	s.Equal(0, analysis.AffectedSubscriptionCount)
	s.Empty(analysis.AffectedSubscriptionIDs)
	s.Empty(analysis.FeatureImpact.FeaturesGained)
}

func (s *ImpactServiceSuite) TestLimitChange() {
	s.createPlan("creator", 19)
	s.seedSubscriptions("creator", "sub", 4, types.BillingCycleMonthly)
	store := s.GetStores().SubscriptionStore
	store.SetUsage("sub_1", "seats", 3)
	store.SetUsage("sub_2", "seats", 8)
	store.FailUsage("sub_3", errors.New("usage service down"))

	analysis, err := s.service.AnalyzeChange(s.GetContext(), "creator", planversion.LimitsDelta{
		Limits: planversion.Limits{"seats": planversion.Limit(5)},
	}, "")
	s.Require().NoError(err)

	s.Equal(4, analysis.AffectedSubscriptionCount)
	s.Equal(1, analysis.AtRiskSubscriptionCount)
	s.Equal(2, analysis.UnknownUsageCount)
	s.Equal(types.RiskLevelMedium, analysis.RiskLevel)
}

// slowUsageStore records how many usage lookups run at once
type slowUsageStore struct {
	subscription.Store
	active atomic.Int32
	peak   atomic.Int32
}

func (u *slowUsageStore) GetUsage(ctx context.Context, id, limitName string) (int64, bool, error) {
	n := u.active.Add(1)
	defer u.active.Add(-1)
	for {
		peak := u.peak.Load()
		if n <= peak || u.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return u.Store.GetUsage(ctx, id, limitName)
}

func (s *ImpactServiceSuite) TestUsageLookupsUseAnalysisConcurrency() {
	s.createPlan("creator", 19)
	s.seedSubscriptions("creator", "sub", 8, types.BillingCycleMonthly)

	analyze := func(usageConcurrency, batchConcurrency int) int32 {
		s.GetConfig().Analysis.UsageConcurrency = usageConcurrency
		s.GetConfig().Migration.BatchConcurrency = batchConcurrency
		store := &slowUsageStore{Store: s.GetStores().SubscriptionStore}
		params := s.params()
		params.SubscriptionStore = store

		analysis, err := NewImpactService(params).AnalyzeChange(s.GetContext(), "creator", planversion.LimitsDelta{
			Limits: planversion.Limits{"seats": planversion.Limit(5)},
		}, "")
		s.Require().NoError(err)
		s.Equal(8, analysis.UnknownUsageCount)
		return store.peak.Load()
	}

	s.Equal(int32(1), analyze(1, 8))
	s.LessOrEqual(analyze(4, 1), int32(4))
}

func (s *ImpactServiceSuite) TestUnlimitedLimitPutsNobodyAtRisk() {
	s.createPlan("creator", 19)
	s.seedSubscriptions("creator", "sub", 2, types.BillingCycleMonthly)
	s.GetStores().SubscriptionStore.SetUsage("sub_1", "seats", 1000)

	analysis, err := s.service.AnalyzeChange(s.GetContext(), "creator", planversion.LimitsDelta{
		Limits: planversion.Limits{"seats": planversion.Unlimited()},
	}, "")
	s.Require().NoError(err)
	s.Equal(0, analysis.AtRiskSubscriptionCount)
	s.Equal(0, analysis.UnknownUsageCount)
	s.Equal(types.RiskLevelLow, analysis.RiskLevel)
}

func (s *ImpactServiceSuite) TestDisable() {
	s.createPlan("creator", 19)
	s.seedSubscriptions("creator", "sub", 3, types.BillingCycleMonthly)
	s.Require().NoError(s.GetStores().SubscriptionStore.SetStatus(s.GetContext(), "sub_2", types.SubscriptionStatusCancelled))

	analysis, err := s.service.AnalyzeChange(s.GetContext(), "creator", planversion.DisableDelta{}, "")
	s.Require().NoError(err)
	s.Equal(types.ChangeTypeDisable, analysis.ChangeType)
	s.Equal([]string{"sub_1", "sub_3"}, analysis.AffectedSubscriptionIDs)
	s.True(analysis.FinancialImpact.MonthlyDeltaTotal.IsZero())

	plan, err := NewPlanVersionService(s.params()).GetPlan(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.True(plan.Enabled)
}

func (s *ImpactServiceSuite) TestAnalysisIsRepeatable() {
	s.createPlan("creator", 19)
	s.seedSubscriptions("creator", "sub", 60, types.BillingCycleMonthly)
	delta := planversion.PricingDelta{MonthlyPrice: decimalPtr(20)}

	first, err := s.service.AnalyzeChange(s.GetContext(), "creator", delta, "")
	s.Require().NoError(err)
	second, err := s.service.AnalyzeChange(s.GetContext(), "creator", delta, "")
	s.Require().NoError(err)

	s.NotEqual(first.AnalysisID, second.AnalysisID)
	s.Equal(first.AffectedSubscriptionCount, second.AffectedSubscriptionCount)
	s.Equal(first.AffectedSubscriptionIDs, second.AffectedSubscriptionIDs)
	s.Equal(first.RiskLevel, second.RiskLevel)
	s.Equal(types.RiskLevelMedium, first.RiskLevel)

	entries, err := s.GetStores().ChangeHistoryRepo.ListAll(s.GetContext())
	s.Require().NoError(err)
	analyses := 0
	for _, e := range entries {
		if e.EntryType == types.HistoryEntryTypeImpactAnalysis {
			analyses++
		}
	}
	s.Equal(2, analyses)
}

func (s *ImpactServiceSuite) TestAffectedIDsAreTruncated() {
	s.GetConfig().Analysis.MaxAffectedIDs = 2
	s.service = NewImpactService(s.params())
	s.createPlan("creator", 19)
	s.seedSubscriptions("creator", "sub", 5, types.BillingCycleMonthly)

	analysis, err := s.service.AnalyzeChange(s.GetContext(), "creator", planversion.DisableDelta{}, "")
	s.Require().NoError(err)
	s.Equal(5, analysis.AffectedSubscriptionCount)
	s.Equal([]string{"sub_1", "sub_2"}, analysis.AffectedSubscriptionIDs)
	s.True(analysis.AffectedIDsTruncated)
}

func (s *ImpactServiceSuite) TestErrors() {
	_, err := s.service.AnalyzeChange(s.GetContext(), "missing", planversion.DisableDelta{}, "")
	s.True(ierr.IsPlanNotFound(err))

	s.createPlan("creator", 19)
	_, err = s.service.AnalyzeChange(s.GetContext(), "creator", nil, "")
	s.True(ierr.IsValidation(err))

	var nilDelta *planversion.PricingDelta
	_, err = s.service.AnalyzeChange(s.GetContext(), "creator", nilDelta, "")
	s.True(ierr.IsValidation(err))

	_, err = s.service.AnalyzeChange(s.GetContext(), "creator", planversion.PricingDelta{}, "")
	s.True(ierr.IsValidation(err))
}

func TestClassifyRisk(t *testing.T) {
	cfg := config.RiskConfig{
		HighAffectedCount:   500,
		MediumAffectedCount: 50,
		HighRevenueFraction: 0.25,
	}

	tests := []struct {
		name string
		in   riskInput
		want types.RiskLevel
	}{
		{
			name: "few subscriptions",
			in:   riskInput{AffectedCount: 3},
			want: types.RiskLevelLow,
		},
		{
			name: "many subscriptions",
			in:   riskInput{AffectedCount: 51},
			want: types.RiskLevelMedium,
		},
		{
			name: "very many subscriptions",
			in:   riskInput{AffectedCount: 501},
			want: types.RiskLevelHigh,
		},
		{
			name: "subscriptions over a new limit",
			in:   riskInput{AffectedCount: 3, AtRiskCount: 1},
			want: types.RiskLevelMedium,
		},
		{
			name: "large price cut",
			in: riskInput{
				AffectedCount:         3,
				MonthlyDeltaTotal:     decimal.NewFromInt(-30),
				CurrentMonthlyRevenue: decimal.NewFromInt(100),
			},
			want: types.RiskLevelHigh,
		},
		{
			name: "small price rise",
			in: riskInput{
				AffectedCount:         3,
				MonthlyDeltaTotal:     decimal.NewFromInt(10),
				CurrentMonthlyRevenue: decimal.NewFromInt(100),
			},
			want: types.RiskLevelLow,
		},
		{
			name: "free plan",
			in: riskInput{
				AffectedCount:     3,
				MonthlyDeltaTotal: decimal.NewFromInt(10),
			},
			want: types.RiskLevelLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyRisk(cfg, tt.in))
		})
	}
}
