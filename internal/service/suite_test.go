package service

import (
	"fmt"
	"time"

	"github.com/flexprice/planshift/internal/domain/planversion"
	"github.com/flexprice/planshift/internal/domain/subscription"
	"github.com/flexprice/planshift/internal/testutil"
	"github.com/flexprice/planshift/internal/types"
	"github.com/shopspring/decimal"
)

// planshiftSuite wires every service against the in-memory stores
type planshiftSuite struct {
	testutil.BaseServiceTestSuite
}

func (s *planshiftSuite) params() ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:            s.GetLogger(),
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
}

// createPlan stores an enabled plan priced in USD at the given monthly price
// and ten times that per year
func (s *planshiftSuite) createPlan(name string, monthly int64, features ...string) *planversion.PlanVersion {
	v, err := NewPlanVersionService(s.params()).CreatePlan(s.GetContext(), &planversion.PlanVersion{
		PlanName: name,
		Pricing: planversion.Pricing{
			MonthlyPrice: decimal.NewFromInt(monthly),
			YearlyPrice:  decimal.NewFromInt(monthly * 10),
			Currency:     "USD",
		},
		Features: features,
		Limits:   planversion.Limits{"seats": planversion.Limit(10)},
	}, "")
	s.Require().NoError(err)
	return v
}

// seedSubscriptions creates n active monthly subscriptions on v1 of the plan,
// ordered by creation time. IDs are prefix_1 .. prefix_n.
func (s *planshiftSuite) seedSubscriptions(planName, prefix string, n int, cycle types.BillingCycle) []*subscription.Subscription {
	subs := make([]*subscription.Subscription, 0, n)
	for i := 1; i <= n; i++ {
		subs = append(subs, &subscription.Subscription{
			ID:                fmt.Sprintf("%s_%d", prefix, i),
			CustomerID:        fmt.Sprintf("cust_%s_%d", prefix, i),
			PlanName:          planName,
			PlanVersionNumber: 1,
			Status:            types.SubscriptionStatusActive,
			BillingCycle:      cycle,
			CreatedAt:         s.GetNow().Add(time.Duration(i) * time.Minute),
		})
	}
	s.Require().NoError(s.GetStores().SubscriptionStore.Seed(s.GetContext(), subs...))
	return subs
}

func decimalPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
