package service

import (
	"testing"

	"github.com/flexprice/planshift/internal/domain/changehistory"
	"github.com/flexprice/planshift/internal/domain/impact"
	"github.com/flexprice/planshift/internal/domain/planversion"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type SimulationServiceSuite struct {
	planshiftSuite
	service SimulationService
}

func TestSimulationService(t *testing.T) {
	suite.Run(t, new(SimulationServiceSuite))
}

func (s *SimulationServiceSuite) SetupTest() {
	s.planshiftSuite.SetupTest()
	s.service = NewSimulationService(s.params())
	s.createPlan("creator", 19, "analytics")
	s.seedSubscriptions("creator", "sub", 3, types.BillingCycleMonthly)
}

func (s *SimulationServiceSuite) TestPricingAndLimits() {
	s.GetStores().SubscriptionStore.SetUsage("sub_1", "seats", 9)

	result, err := s.service.SimulateChange(s.GetContext(), "creator", planversion.Change{
		Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(29)},
		Limits:  &planversion.LimitsDelta{Limits: planversion.Limits{"seats": planversion.Limit(5)}},
	}, "")
	s.Require().NoError(err)

	s.Require().Len(result.Analyses, 2)
	s.Equal(types.ChangeTypePricing, result.Analyses[0].ChangeType)
	s.Equal(types.ChangeTypeLimits, result.Analyses[1].ChangeType)
	s.Equal(types.RiskLevelHigh, result.Analyses[0].RiskLevel)
	s.Equal(types.RiskLevelMedium, result.Analyses[1].RiskLevel)
	s.Equal(1, result.Analyses[1].AtRiskSubscriptionCount)

	want := types.MaxRiskLevel(lo.Map(result.Analyses, func(a *impact.ImpactAnalysis, _ int) types.RiskLevel {
		return a.RiskLevel
	})...)
	s.Equal(want, result.OverallRisk)
	s.Equal(types.RiskLevelHigh, result.OverallRisk)
}

func (s *SimulationServiceSuite) TestAllThreeParts() {
	result, err := s.service.SimulateChange(s.GetContext(), "creator", planversion.Change{
		Pricing:  &planversion.PricingDelta{MonthlyPrice: decimalPtr(20)},
		Features: &planversion.FeaturesDelta{FeaturesRemoved: []string{"analytics"}},
		Limits:   &planversion.LimitsDelta{Limits: planversion.Limits{"seats": planversion.Unlimited()}},
	}, "")
	s.Require().NoError(err)

	s.Equal([]types.ChangeType{types.ChangeTypePricing, types.ChangeTypeFeatures, types.ChangeTypeLimits},
		lo.Map(result.Analyses, func(a *impact.ImpactAnalysis, _ int) types.ChangeType { return a.ChangeType }))
	s.Equal([]string{"analytics"}, result.Analyses[1].FeatureImpact.FeaturesLost)
	// every analysis ran against the same current version
	for _, a := range result.Analyses {
		s.Equal(1, a.PlanVersionNumber)
		s.Equal(3, a.AffectedSubscriptionCount)
	}
}

func (s *SimulationServiceSuite) TestSimulationIsRecordedOnce() {
	result, err := s.service.SimulateChange(s.GetContext(), "creator", planversion.Change{
		Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(20)},
	}, "")
	s.Require().NoError(err)

	entries, err := s.GetStores().ChangeHistoryRepo.ListAll(s.GetContext())
	s.Require().NoError(err)
	simulations := lo.Filter(entries, func(e *changehistory.Entry, _ int) bool {
		return e.EntryType == types.HistoryEntryTypeSimulation
	})
	s.Require().Len(simulations, 1)
	s.Equal(result.SimulationID, simulations[0].ReferenceID)
	s.Equal(result.OverallRisk, simulations[0].RiskLevel)
	s.False(lo.ContainsBy(entries, func(e *changehistory.Entry) bool {
		return e.EntryType == types.HistoryEntryTypeImpactAnalysis
	}))
}

func (s *SimulationServiceSuite) TestSimulationDoesNotChangeThePlan() {
	_, err := s.service.SimulateChange(s.GetContext(), "creator", planversion.Change{
		Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(99)},
	}, "")
	s.Require().NoError(err)

	versions, err := NewPlanVersionService(s.params()).ListVersions(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Len(versions, 1)
	s.Empty(s.GetBillingGateway().Calls())
}

func (s *SimulationServiceSuite) TestErrors() {
	_, err := s.service.SimulateChange(s.GetContext(), "creator", planversion.Change{}, "")
	s.True(ierr.IsValidation(err))

	status := types.PlanStatusDisabled
	_, err = s.service.SimulateChange(s.GetContext(), "creator", planversion.Change{Status: &status}, "")
	s.True(ierr.IsValidation(err))

	_, err = s.service.SimulateChange(s.GetContext(), "missing", planversion.Change{
		Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(1)},
	}, "")
	s.True(ierr.IsPlanNotFound(err))
}
