package temporal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/flexprice/planshift/internal/domain/migration"
	"github.com/flexprice/planshift/internal/domain/planversion"
	"github.com/flexprice/planshift/internal/domain/subscription"
	"github.com/flexprice/planshift/internal/service"
	"github.com/flexprice/planshift/internal/temporal/models"
	"github.com/flexprice/planshift/internal/testutil"
	"github.com/flexprice/planshift/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type MigrationWorkflowSuite struct {
	testutil.BaseServiceTestSuite
	testsuite.WorkflowTestSuite

	env      *testsuite.TestWorkflowEnvironment
	params   service.ServiceParams
	executor service.MigrationExecutorService
}

func TestMigrationWorkflow(t *testing.T) {
	suite.Run(t, new(MigrationWorkflowSuite))
}

func (s *MigrationWorkflowSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.SetLogger(s.BaseServiceTestSuite.GetLogger().GetTemporalLogger())

	stores := s.GetStores()
	s.params = service.ServiceParams{
		Logger:            s.BaseServiceTestSuite.GetLogger(),
		Config:            s.GetConfig(),
		DB:                s.GetDB(),
		Cache:             s.GetCache(),
		Locker:            s.GetLocker(),
		PlanVersionRepo:   stores.PlanVersionRepo,
		SubscriptionStore: stores.SubscriptionStore,
		MigrationRepo:     stores.MigrationRepo,
		ExecutionRepo:     stores.ExecutionRepo,
		RollbackRepo:      stores.RollbackRepo,
		ChangeHistoryRepo: stores.ChangeHistoryRepo,
		BillingGateway:    s.GetBillingGateway(),
		Notifier:          s.GetNotifier(),
	}
	s.executor = service.NewMigrationExecutorService(s.params)

	s.env = s.NewTestWorkflowEnvironment()
	RegisterWorkflowsAndActivities(s.env, s.executor, s.BaseServiceTestSuite.GetLogger())
}

func (s *MigrationWorkflowSuite) AfterTest(_, _ string) {
	s.env.AssertExpectations(s.T())
}

func (s *MigrationWorkflowSuite) createMigration() *migration.MigrationPlan {
	versions := service.NewPlanVersionService(s.params)
	for _, name := range []string{"creator", "ecommerce"} {
		_, err := versions.CreatePlan(s.GetContext(), &planversion.PlanVersion{
			PlanName: name,
			Pricing: planversion.Pricing{
				MonthlyPrice: decimal.NewFromInt(19),
				YearlyPrice:  decimal.NewFromInt(190),
				Currency:     "usd",
			},
		}, "")
		s.Require().NoError(err)
	}

	for i := 1; i <= 3; i++ {
		s.Require().NoError(s.GetStores().SubscriptionStore.Seed(s.GetContext(), &subscription.Subscription{
			ID:                fmt.Sprintf("sub_%d", i),
			CustomerID:        fmt.Sprintf("cust_%d", i),
			PlanName:          "creator",
			PlanVersionNumber: 1,
			Status:            types.SubscriptionStatusActive,
			BillingCycle:      types.BillingCycleMonthly,
			CreatedAt:         s.GetNow().Add(time.Duration(i) * time.Minute),
		}))
	}

	plan, err := service.NewMigrationPlannerService(s.params).CreateMigrationPlan(s.GetContext(), service.CreateMigrationPlanParams{
		SourcePlan: "creator",
		TargetPlan: "ecommerce",
		Strategy:   types.MigrationStrategyImmediate,
		BatchSize:  2,
	})
	s.Require().NoError(err)
	return plan
}

func (s *MigrationWorkflowSuite) TestExecutesMigrationPlan() {
	plan := s.createMigration()

	s.env.ExecuteWorkflow(models.MigrationExecutionWorkflowName, models.MigrationExecutionWorkflowInput{
		MigrationID: plan.ID,
		Actor:       "operator_workflow",
	})

	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())

	var record migration.ExecutionRecord
	s.Require().NoError(s.env.GetWorkflowResult(&record))
	s.Equal(types.ExecutionStatusCompleted, record.Status)
	s.Equal(2, record.BatchesProcessed)
	s.Equal("operator_workflow", record.ExecutedBy)

	for i := 1; i <= 3; i++ {
		sub, err := s.GetStores().SubscriptionStore.Get(s.GetContext(), fmt.Sprintf("sub_%d", i))
		s.Require().NoError(err)
		s.Equal("ecommerce", sub.PlanName)
	}

	stored, err := s.GetStores().MigrationRepo.Get(s.GetContext(), plan.ID)
	s.Require().NoError(err)
	s.Equal(types.MigrationStatusCompleted, stored.OverallStatus)
}

func (s *MigrationWorkflowSuite) TestUnknownMigrationIsNotRetried() {
	s.env.ExecuteWorkflow(models.MigrationExecutionWorkflowName, models.MigrationExecutionWorkflowInput{
		MigrationID: "mig_missing",
	})

	s.Require().True(s.env.IsWorkflowCompleted())
	err := s.env.GetWorkflowError()
	s.Require().Error(err)

	var appErr *temporalsdk.ApplicationError
	s.Require().True(errors.As(err, &appErr))
	s.Equal(models.ErrorTypeNotFound, appErr.Type())
	s.True(appErr.NonRetryable())
}

func (s *MigrationWorkflowSuite) TestRetriesTransientFailures() {
	calls := 0
	s.env.OnActivity(models.ExecuteMigrationPlanActivityName, mock.Anything, mock.Anything).
		Return(func(_ context.Context, input models.MigrationExecutionWorkflowInput) (*migration.ExecutionRecord, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("database connection reset")
			}
			return &migration.ExecutionRecord{
				ID:          "mexe_retry",
				MigrationID: input.MigrationID,
				Status:      types.ExecutionStatusCompleted,
			}, nil
		})

	s.env.ExecuteWorkflow(models.MigrationExecutionWorkflowName, models.MigrationExecutionWorkflowInput{
		MigrationID: "mig_retry",
	})

	s.Require().True(s.env.IsWorkflowCompleted())
	s.Require().NoError(s.env.GetWorkflowError())
	s.Equal(2, calls)

	var record migration.ExecutionRecord
	s.Require().NoError(s.env.GetWorkflowResult(&record))
	s.Equal("mexe_retry", record.ID)
}

func (s *MigrationWorkflowSuite) TestRejectsEmptyInput() {
	s.env.ExecuteWorkflow(models.MigrationExecutionWorkflowName, models.MigrationExecutionWorkflowInput{})

	s.Require().True(s.env.IsWorkflowCompleted())
	var appErr *temporalsdk.ApplicationError
	s.Require().True(errors.As(s.env.GetWorkflowError(), &appErr))
	s.Equal(models.ErrorTypeValidation, appErr.Type())
}
