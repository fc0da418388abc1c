package service

import (
	"sync"
	"testing"

	"github.com/flexprice/planshift/internal/domain/planversion"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PlanVersionServiceSuite struct {
	planshiftSuite
	service PlanVersionService
}

func TestPlanVersionService(t *testing.T) {
	suite.Run(t, new(PlanVersionServiceSuite))
}

func (s *PlanVersionServiceSuite) SetupTest() {
	s.planshiftSuite.SetupTest()
	s.service = NewPlanVersionService(s.params())
}

func (s *PlanVersionServiceSuite) TestCreatePlan() {
	v := s.createPlan("creator", 19, "analytics", " api ", "analytics")

	s.Equal(1, v.VersionNumber)
	s.Equal("usd", v.Pricing.Currency)
	s.Equal([]string{"analytics", "api"}, v.Features)
	s.Equal(types.PlanStatusEnabled, v.Status)
	s.Equal("operator_test", v.CreatedBy)

	plan, err := s.service.GetPlan(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Equal(1, plan.CurrentVersionNumber)
	s.True(plan.Enabled)

	entries, err := s.GetStores().ChangeHistoryRepo.ListAll(s.GetContext())
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(types.HistoryEntryTypePlanVersion, entries[0].EntryType)
	s.Equal(v.ID, entries[0].ReferenceID)
}

func (s *PlanVersionServiceSuite) TestCreatePlanRejectsDuplicatesAndBadInput() {
	s.createPlan("creator", 19)

	_, err := s.service.CreatePlan(s.GetContext(), &planversion.PlanVersion{
		PlanName: "creator",
		Pricing:  planversion.Pricing{MonthlyPrice: decimal.NewFromInt(1), Currency: "USD"},
	}, "")
	s.True(ierr.IsAlreadyExists(err))

	_, err = s.service.CreatePlan(s.GetContext(), &planversion.PlanVersion{
		PlanName: "negative",
		Pricing:  planversion.Pricing{MonthlyPrice: decimal.NewFromInt(-1), Currency: "USD"},
	}, "")
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreatePlan(s.GetContext(), nil, "")
	s.True(ierr.IsValidation(err))
}

func (s *PlanVersionServiceSuite) TestCreateVersionAppliesPartialOverride() {
	s.createPlan("creator", 19, "analytics")

	next, err := s.service.CreateVersion(s.GetContext(), "creator", planversion.Change{
		Pricing:  &planversion.PricingDelta{MonthlyPrice: decimalPtr(29)},
		Features: &planversion.FeaturesDelta{FeaturesAdded: []string{"exports"}},
	}, "pm_jane")
	s.Require().NoError(err)

	s.Equal(2, next.VersionNumber)
	s.True(next.Pricing.MonthlyPrice.Equal(decimal.NewFromInt(29)))
	s.True(next.Pricing.YearlyPrice.Equal(decimal.NewFromInt(190)))
	s.Equal([]string{"analytics", "exports"}, next.Features)
	s.Equal(planversion.Limit(10), next.Limits["seats"])
	s.Equal("pm_jane", next.CreatedBy)
	s.Equal("changed pricing, features", next.ChangeSummary)

	current, err := s.service.GetCurrentVersion(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Equal(next, current)

	first, err := s.service.GetVersion(s.GetContext(), "creator", 1)
	s.Require().NoError(err)
	s.True(first.Pricing.MonthlyPrice.Equal(decimal.NewFromInt(19)))
	s.Equal([]string{"analytics"}, first.Features)
}

func (s *PlanVersionServiceSuite) TestCreateVersionDisable() {
	s.createPlan("creator", 19)

	status := types.PlanStatusDisabled
	next, err := s.service.CreateVersion(s.GetContext(), "creator", planversion.Change{Status: &status}, "")
	s.Require().NoError(err)
	s.False(next.IsEnabled())

	plan, err := s.service.GetPlan(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.False(plan.Enabled)
}

func (s *PlanVersionServiceSuite) TestCreateVersionErrors() {
	_, err := s.service.CreateVersion(s.GetContext(), "missing", planversion.Change{
		Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(1)},
	}, "")
	s.True(ierr.IsPlanNotFound(err))
	s.True(ierr.IsNotFound(err))

	s.createPlan("creator", 19)
	_, err = s.service.CreateVersion(s.GetContext(), "creator", planversion.Change{}, "")
	s.True(ierr.IsValidation(err))
}

func (s *PlanVersionServiceSuite) TestVersionNumbersStrictlyIncrease() {
	s.createPlan("creator", 19)

	for i := 2; i <= 5; i++ {
		v, err := s.service.CreateVersion(s.GetContext(), "creator", planversion.Change{
			Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(int64(19 + i))},
		}, "")
		s.Require().NoError(err)
		s.Equal(i, v.VersionNumber)
	}

	versions, err := s.service.ListVersions(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Equal([]int{1, 2, 3, 4, 5}, lo.Map(versions, func(v *planversion.PlanVersion, _ int) int { return v.VersionNumber }))
}

func (s *PlanVersionServiceSuite) TestConcurrentCreateVersionNeverSharesANumber() {
	s.createPlan("creator", 19)

	const writers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var created []int
	conflicts := 0
	for i := 0; i < writers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.service.CreateVersion(s.GetContext(), "creator", planversion.Change{
				Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(int64(100 + i))},
			}, "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ierr.IsVersionConflict(err) {
					conflicts++
				}
				return
			}
			created = append(created, v.VersionNumber)
		}()
	}
	wg.Wait()

	s.Equal(writers, len(created)+conflicts)
	s.NotEmpty(created)
	s.Len(lo.Uniq(created), len(created))

	versions, err := s.service.ListVersions(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Len(versions, len(created)+1)
	for i, v := range versions {
		s.Equal(i+1, v.VersionNumber)
	}

	plan, err := s.service.GetPlan(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Equal(len(versions), plan.CurrentVersionNumber)
}

func (s *PlanVersionServiceSuite) TestGetVersionNotFound() {
	s.createPlan("creator", 19)

	_, err := s.service.GetVersion(s.GetContext(), "creator", 7)
	s.True(ierr.IsNotFound(err))
	s.False(ierr.IsPlanNotFound(err))

	_, err = s.service.GetCurrentVersion(s.GetContext(), "missing")
	s.True(ierr.IsPlanNotFound(err))
}

func (s *PlanVersionServiceSuite) TestCachedVersionsAreCopies() {
	s.createPlan("creator", 19, "analytics")

	v, err := s.service.GetVersion(s.GetContext(), "creator", 1)
	s.Require().NoError(err)
	v.Features[0] = "tampered"

	again, err := s.service.GetVersion(s.GetContext(), "creator", 1)
	s.Require().NoError(err)
	s.Equal([]string{"analytics"}, again.Features)
}

func (s *PlanVersionServiceSuite) TestSetCurrentVersion() {
	s.createPlan("creator", 19)
	_, err := s.service.CreateVersion(s.GetContext(), "creator", planversion.Change{
		Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(29)},
	}, "")
	s.Require().NoError(err)

	s.Require().NoError(s.service.SetCurrentVersion(s.GetContext(), "creator", 1, ""))
	current, err := s.service.GetCurrentVersion(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Equal(1, current.VersionNumber)

	err = s.service.SetCurrentVersion(s.GetContext(), "creator", 9, "")
	s.True(ierr.IsNotFound(err))
}
