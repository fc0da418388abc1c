package subscription

import (
	"context"
)

// Store is the narrow contract the engine needs from the subscription system
type Store interface {
	// FindActiveByPlan returns the active subscriptions on the plan, any version
	FindActiveByPlan(ctx context.Context, planName string) ([]*Subscription, error)

	// Get fails with ErrNotFound for unknown ids
	Get(ctx context.Context, id string) (*Subscription, error)

	// UpdatePlanAssignment moves a subscription to the given plan version
	UpdatePlanAssignment(ctx context.Context, id, planName string, planVersionNumber int) error

	// GetUsage returns the measured usage of a limit. known is false when the
	// usage is not tracked or could not be fetched.
	GetUsage(ctx context.Context, id, limitName string) (value int64, known bool, err error)
}
