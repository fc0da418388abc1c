package service

import (
	"testing"

	"github.com/flexprice/planshift/internal/domain/migration"
	"github.com/flexprice/planshift/internal/domain/planversion"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type MigrationPlannerServiceSuite struct {
	planshiftSuite
	service MigrationPlannerService
}

func TestMigrationPlannerService(t *testing.T) {
	suite.Run(t, new(MigrationPlannerServiceSuite))
}

func (s *MigrationPlannerServiceSuite) SetupTest() {
	s.planshiftSuite.SetupTest()
	s.service = NewMigrationPlannerService(s.params())
	s.createPlan("creator", 19)
	s.createPlan("ecommerce", 49)
	s.seedSubscriptions("creator", "sub", 3, types.BillingCycleMonthly)
}

func (s *MigrationPlannerServiceSuite) create(strategy types.MigrationStrategy, batchSize int) (*migration.MigrationPlan, error) {
	return s.service.CreateMigrationPlan(s.GetContext(), CreateMigrationPlanParams{
		SourcePlan: "creator",
		TargetPlan: "ecommerce",
		Strategy:   strategy,
		BatchSize:  batchSize,
	})
}

func (s *MigrationPlannerServiceSuite) TestCreateImmediatePlan() {
	plan, err := s.create(types.MigrationStrategyImmediate, 2)
	s.Require().NoError(err)

	s.Equal(types.MigrationStatusCreated, plan.OverallStatus)
	s.Equal(1, plan.TargetVersionNumber)
	s.Equal(2, plan.BatchSize)
	s.Zero(plan.BatchDelay)
	s.Equal("operator_test", plan.CreatedBy)

	s.Require().Len(plan.Batches, 2)
	s.Equal([]string{"sub_1", "sub_2"}, plan.Batches[0].SubscriptionIDs)
	s.Equal([]string{"sub_3"}, plan.Batches[1].SubscriptionIDs)
	for i, b := range plan.Batches {
		s.Equal(i+1, b.Sequence)
		s.Equal(types.BatchStatusPending, b.Status)
		s.Equal(plan.ID, b.MigrationID)
		s.Zero(b.Attempts)
	}

	stored, err := s.service.GetMigrationPlan(s.GetContext(), plan.ID)
	s.Require().NoError(err)
	s.Equal(plan.TotalSubscriptions(), stored.TotalSubscriptions())
	s.Len(stored.Batches, 2)

	// planning never touches subscriptions or billing
	s.Empty(s.GetBillingGateway().Calls())
	s.Equal(0, s.GetStores().SubscriptionStore.UpdateCount("sub_1"))

	entries, err := s.GetStores().ChangeHistoryRepo.ListAll(s.GetContext())
	s.Require().NoError(err)
	last := entries[len(entries)-1]
	s.Equal(types.HistoryEntryTypeMigrationPlan, last.EntryType)
	s.Equal(plan.ID, last.ReferenceID)
}

func (s *MigrationPlannerServiceSuite) TestTargetVersionIsPinned() {
	_, err := NewPlanVersionService(s.params()).CreateVersion(s.GetContext(), "ecommerce", planversion.Change{
		Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(59)},
	}, "")
	s.Require().NoError(err)

	plan, err := s.create(types.MigrationStrategyImmediate, 0)
	s.Require().NoError(err)
	s.Equal(2, plan.TargetVersionNumber)
}

func (s *MigrationPlannerServiceSuite) TestExplicitTargetVersion() {
	_, err := NewPlanVersionService(s.params()).CreateVersion(s.GetContext(), "ecommerce", planversion.Change{
		Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(59)},
	}, "")
	s.Require().NoError(err)

	plan, err := s.service.CreateMigrationPlan(s.GetContext(), CreateMigrationPlanParams{
		SourcePlan:    "creator",
		TargetPlan:    "ecommerce",
		TargetVersion: 1,
		Strategy:      types.MigrationStrategyImmediate,
	})
	s.Require().NoError(err)
	s.Equal(1, plan.TargetVersionNumber)
	s.Equal(3, plan.TotalSubscriptions())
}

func (s *MigrationPlannerServiceSuite) TestMoveBackToRestoredVersion() {
	versions := NewPlanVersionService(s.params())
	_, err := versions.CreateVersion(s.GetContext(), "creator", planversion.Change{
		Pricing: &planversion.PricingDelta{MonthlyPrice: decimalPtr(29)},
	}, "")
	s.Require().NoError(err)
	for _, id := range []string{"sub_1", "sub_2"} {
		s.Require().NoError(s.GetStores().SubscriptionStore.UpdatePlanAssignment(s.GetContext(), id, "creator", 2))
	}

	_, err = NewRollbackService(s.params()).RollbackPlanChange(s.GetContext(), "creator", 1, "price increase reverted", "")
	s.Require().NoError(err)

	// the rollback itself leaves subscriptions alone, a same-plan migration moves them
	plan, err := s.service.CreateMigrationPlan(s.GetContext(), CreateMigrationPlanParams{
		SourcePlan: "creator",
		TargetPlan: "creator",
		Strategy:   types.MigrationStrategyImmediate,
		BatchSize:  10,
	})
	s.Require().NoError(err)
	s.Equal(1, plan.TargetVersionNumber)
	s.Require().Len(plan.Batches, 1)
	s.Equal([]string{"sub_1", "sub_2"}, plan.Batches[0].SubscriptionIDs)

	record, err := NewMigrationExecutorService(s.params()).ExecuteMigrationPlan(s.GetContext(), plan.ID, false, "")
	s.Require().NoError(err)
	s.Equal(types.ExecutionStatusCompleted, record.Status)
	for _, id := range []string{"sub_1", "sub_2", "sub_3"} {
		sub, err := s.GetStores().SubscriptionStore.Get(s.GetContext(), id)
		s.Require().NoError(err)
		s.Equal(1, sub.PlanVersionNumber, id)
	}
	s.Len(s.GetBillingGateway().Calls(), 2)
}

func (s *MigrationPlannerServiceSuite) TestBatchSizeDefaultsAndCap() {
	plan, err := s.create(types.MigrationStrategyImmediate, 0)
	s.Require().NoError(err)
	s.Equal(s.GetConfig().Migration.DefaultBatchSize, plan.BatchSize)
	s.Len(plan.Batches, 1)

	s.GetConfig().Migration.MaxBatchSize = 2
	s.service = NewMigrationPlannerService(s.params())
	plan, err = s.create(types.MigrationStrategyImmediate, 100)
	s.Require().NoError(err)
	s.Equal(2, plan.BatchSize)
	s.Len(plan.Batches, 2)

	_, err = s.create(types.MigrationStrategyImmediate, -1)
	s.True(ierr.IsValidation(err))
}

func (s *MigrationPlannerServiceSuite) TestGradualAndGrandfather() {
	gradual, err := s.create(types.MigrationStrategyGradual, 1)
	s.Require().NoError(err)
	s.Equal(s.GetConfig().Migration.GradualDelay, gradual.BatchDelay)
	s.Len(gradual.Batches, 3)

	grandfather, err := s.create(types.MigrationStrategyGrandfather, 2)
	s.Require().NoError(err)
	s.True(grandfather.IsGrandfathered())
	s.Len(grandfather.Batches, 2)
}

func (s *MigrationPlannerServiceSuite) TestOnlyActiveSubscriptionsArePlanned() {
	s.Require().NoError(s.GetStores().SubscriptionStore.SetStatus(s.GetContext(), "sub_2", types.SubscriptionStatusPaused))

	plan, err := s.create(types.MigrationStrategyImmediate, 10)
	s.Require().NoError(err)
	s.Equal([]string{"sub_1", "sub_3"}, plan.Batches[0].SubscriptionIDs)
}

func (s *MigrationPlannerServiceSuite) TestEmptySourcePlan() {
	s.createPlan("empty", 5)
	plan, err := s.service.CreateMigrationPlan(s.GetContext(), CreateMigrationPlanParams{
		SourcePlan: "empty",
		TargetPlan: "ecommerce",
		Strategy:   types.MigrationStrategyImmediate,
	})
	s.Require().NoError(err)
	s.Empty(plan.Batches)
}

func (s *MigrationPlannerServiceSuite) TestValidation() {
	_, err := s.service.CreateMigrationPlan(s.GetContext(), CreateMigrationPlanParams{
		SourcePlan:    "creator",
		TargetPlan:    "ecommerce",
		TargetVersion: 9,
		Strategy:      types.MigrationStrategyImmediate,
	})
	s.True(ierr.IsValidation(err))
	s.True(ierr.IsNotFound(err))

	_, err = s.service.CreateMigrationPlan(s.GetContext(), CreateMigrationPlanParams{
		SourcePlan:    "creator",
		TargetPlan:    "ecommerce",
		TargetVersion: -1,
		Strategy:      types.MigrationStrategyImmediate,
	})
	s.True(ierr.IsValidation(err))

	_, err = s.create("big_bang", 2)
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreateMigrationPlan(s.GetContext(), CreateMigrationPlanParams{
		SourcePlan: "creator",
		TargetPlan: "missing",
		Strategy:   types.MigrationStrategyImmediate,
	})
	s.True(ierr.IsValidation(err))
	s.True(ierr.IsPlanNotFound(err))

	status := types.PlanStatusDisabled
	_, err = NewPlanVersionService(s.params()).CreateVersion(s.GetContext(), "ecommerce", planversion.Change{Status: &status}, "")
	s.Require().NoError(err)
	_, err = s.create(types.MigrationStrategyImmediate, 2)
	s.True(ierr.IsValidation(err))
}

func (s *MigrationPlannerServiceSuite) TestListMigrationPlans() {
	first, err := s.create(types.MigrationStrategyImmediate, 2)
	s.Require().NoError(err)
	second, err := s.create(types.MigrationStrategyGradual, 2)
	s.Require().NoError(err)

	all, err := s.service.ListMigrationPlans(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Equal(2, all.Pagination.Total)
	s.ElementsMatch([]string{first.ID, second.ID},
		lo.Map(all.Items, func(p *migration.MigrationPlan, _ int) string { return p.ID }))

	filter := types.NewMigrationPlanFilter()
	filter.Status = []types.MigrationStatus{types.MigrationStatusCompleted}
	none, err := s.service.ListMigrationPlans(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Empty(none.Items)

	_, err = s.service.GetMigrationPlan(s.GetContext(), "mig_missing")
	s.True(ierr.IsNotFound(err))
}
