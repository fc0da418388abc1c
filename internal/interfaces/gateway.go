package interfaces

import (
	"context"

	"github.com/flexprice/planshift/internal/domain/planversion"
)

// PlanChangeRequest carries everything a billing gateway needs to move one
// subscription to a new plan version
type PlanChangeRequest struct {
	SubscriptionID string
	PlanName       string
	VersionNumber  int
	Pricing        planversion.Pricing
	Features       []string
	Limits         planversion.Limits
	// IdempotencyKey is stable per migration, subscription and target version
	IdempotencyKey string
}

// BillingGateway applies plan changes in the payment processor.
// Errors returned are treated as a failure of that subscription only.
type BillingGateway interface {
	ApplyPlanChange(ctx context.Context, req PlanChangeRequest) error
}

// NotificationSender delivers customer notifications about plan changes.
// Delivery is best-effort: callers log failures and move on.
type NotificationSender interface {
	Notify(ctx context.Context, subscriptionID, eventType string, payload map[string]any) error
}
