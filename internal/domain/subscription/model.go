package subscription

import (
	"time"

	"github.com/flexprice/planshift/internal/types"
)

// Subscription is the view of a customer subscription owned by the
// subscription system. The engine reads it and only ever changes its plan
// assignment.
type Subscription struct {
	ID                string                   `db:"id" json:"id"`
	CustomerID        string                   `db:"customer_id" json:"customer_id"`
	PlanName          string                   `db:"plan_name" json:"plan_name"`
	PlanVersionNumber int                      `db:"plan_version_number" json:"plan_version_number"`
	Status            types.SubscriptionStatus `db:"status" json:"status"`
	BillingCycle      types.BillingCycle       `db:"billing_cycle" json:"billing_cycle"`
	CreatedAt         time.Time                `db:"created_at" json:"created_at"`
}

// IsActive reports whether the subscription is currently billed
func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == types.SubscriptionStatusActive
}

// IsOn reports whether the subscription is assigned to the given plan version
func (s *Subscription) IsOn(planName string, versionNumber int) bool {
	return s.PlanName == planName && s.PlanVersionNumber == versionNumber
}
