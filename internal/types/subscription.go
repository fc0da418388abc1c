package types

import (
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/samber/lo"
)

// SubscriptionStatus is the status of a subscription as reported by the subscription store
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusActive,
		SubscriptionStatusPaused,
		SubscriptionStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Invalid subscription status").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// BillingCycle is the interval a subscription is charged on
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

func (b BillingCycle) String() string {
	return string(b)
}

func (b BillingCycle) Validate() error {
	allowed := []BillingCycle{
		BillingCycleMonthly,
		BillingCycleYearly,
	}
	if !lo.Contains(allowed, b) {
		return ierr.NewError("invalid billing cycle").
			WithHint("Billing cycle must be monthly or yearly").
			WithReportableDetails(map[string]any{
				"billing_cycle":  b,
				"allowed_cycles": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
