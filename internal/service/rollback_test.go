package service

import (
	"testing"

	"github.com/flexprice/planshift/internal/domain/planversion"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/stretchr/testify/suite"
)

type RollbackServiceSuite struct {
	planshiftSuite
	service  RollbackService
	versions PlanVersionService
}

func TestRollbackService(t *testing.T) {
	suite.Run(t, new(RollbackServiceSuite))
}

func (s *RollbackServiceSuite) SetupTest() {
	s.planshiftSuite.SetupTest()
	s.service = NewRollbackService(s.params())
	s.versions = NewPlanVersionService(s.params())

	// creator ends up at version 3
	s.createPlan("creator", 19, "analytics")
	_, err := s.versions.CreateVersion(s.GetContext(), "creator", planversion.Change{
		Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(29)},
	}, "")
	s.Require().NoError(err)
	_, err = s.versions.CreateVersion(s.GetContext(), "creator", planversion.Change{
		Features: &planversion.FeaturesDelta{FeaturesRemoved: []string{"analytics"}},
	}, "")
	s.Require().NoError(err)
}

func (s *RollbackServiceSuite) TestRollbackToEarlierVersion() {
	before, err := s.versions.GetVersion(s.GetContext(), "creator", 1)
	s.Require().NoError(err)

	record, err := s.service.RollbackPlanChange(s.GetContext(), "creator", 1, "price increase reverted", "")
	s.Require().NoError(err)
	s.Equal(3, record.RolledBackFromVersion)
	s.Equal(1, record.RolledBackToVersion)
	s.Equal("operator_test", record.RolledBackBy)

	current, err := s.versions.GetCurrentVersion(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Equal(1, current.VersionNumber)
	s.Equal(before, current)

	after, err := s.versions.GetVersion(s.GetContext(), "creator", 1)
	s.Require().NoError(err)
	s.Equal(before, after)

	rollbacks, err := s.service.ListRollbacks(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Require().Len(rollbacks, 1)
	s.Equal(record.ID, rollbacks[0].ID)

	entries, err := s.GetStores().ChangeHistoryRepo.ListAll(s.GetContext())
	s.Require().NoError(err)
	last := entries[len(entries)-1]
	s.Equal(types.HistoryEntryTypeRollback, last.EntryType)
	s.Equal(record.ID, last.ReferenceID)
	s.Equal(1, last.PlanVersionNumber)
}

func (s *RollbackServiceSuite) TestRollbackForwardFails() {
	_, err := s.service.RollbackPlanChange(s.GetContext(), "creator", 1, "revert", "")
	s.Require().NoError(err)

	// version 3 exists but is now ahead of the current version
	_, err = s.service.RollbackPlanChange(s.GetContext(), "creator", 3, "forward", "")
	s.True(ierr.IsValidation(err))

	current, err := s.versions.GetCurrentVersion(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Equal(1, current.VersionNumber)
}

func (s *RollbackServiceSuite) TestRollbackToCurrentFails() {
	_, err := s.service.RollbackPlanChange(s.GetContext(), "creator", 3, "noop", "")
	s.True(ierr.IsValidation(err))

	rollbacks, err := s.service.ListRollbacks(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Empty(rollbacks)
}

func (s *RollbackServiceSuite) TestRollbackNotFound() {
	_, err := s.service.RollbackPlanChange(s.GetContext(), "creator", 7, "missing", "")
	s.True(ierr.IsNotFound(err))

	_, err = s.service.RollbackPlanChange(s.GetContext(), "unknown", 1, "missing", "")
	s.True(ierr.IsPlanNotFound(err))
}

func (s *RollbackServiceSuite) TestRollbackRequiresReason() {
	_, err := s.service.RollbackPlanChange(s.GetContext(), "creator", 1, "", "")
	s.True(ierr.IsValidation(err))
}

func (s *RollbackServiceSuite) TestRollbackLeavesSubscriptionsAlone() {
	subs := s.seedSubscriptions("creator", "sub", 2, types.BillingCycleMonthly)
	s.Require().NoError(s.GetStores().SubscriptionStore.UpdatePlanAssignment(s.GetContext(), subs[0].ID, "creator", 3))

	_, err := s.service.RollbackPlanChange(s.GetContext(), "creator", 2, "revert features", "")
	s.Require().NoError(err)

	moved, err := s.GetStores().SubscriptionStore.Get(s.GetContext(), subs[0].ID)
	s.Require().NoError(err)
	s.Equal(3, moved.PlanVersionNumber)
	s.Equal(1, s.GetStores().SubscriptionStore.UpdateCount(subs[0].ID))
	s.Equal(0, s.GetStores().SubscriptionStore.UpdateCount(subs[1].ID))
	s.Empty(s.GetBillingGateway().Calls())
}

func (s *RollbackServiceSuite) TestRollbackRestoresEnabledFlag() {
	status := types.PlanStatusDisabled
	_, err := s.versions.CreateVersion(s.GetContext(), "creator", planversion.Change{Status: &status}, "")
	s.Require().NoError(err)

	_, err = s.service.RollbackPlanChange(s.GetContext(), "creator", 3, "re-enable", "")
	s.Require().NoError(err)

	plan, err := s.versions.GetPlan(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Equal(3, plan.CurrentVersionNumber)
	s.True(plan.Enabled)
}

func (s *RollbackServiceSuite) TestCreateVersionAfterRollback() {
	_, err := s.service.RollbackPlanChange(s.GetContext(), "creator", 1, "price increase reverted", "")
	s.Require().NoError(err)

	next, err := s.versions.CreateVersion(s.GetContext(), "creator", planversion.Change{
		Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(39)},
	}, "")
	s.Require().NoError(err)
	s.Equal(4, next.VersionNumber)
	s.True(next.Pricing.MonthlyPrice.Equal(*decimalPtr(39)))
	// built on the restored version, not the abandoned one
	s.Equal([]string{"analytics"}, next.Features)

	current, err := s.versions.GetCurrentVersion(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Equal(4, current.VersionNumber)

	versions, err := s.versions.ListVersions(s.GetContext(), "creator")
	s.Require().NoError(err)
	s.Len(versions, 4)

	record, err := s.service.RollbackPlanChange(s.GetContext(), "creator", 1, "again", "")
	s.Require().NoError(err)
	s.Equal(4, record.RolledBackFromVersion)
}
