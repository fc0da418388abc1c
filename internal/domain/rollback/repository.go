package rollback

import "context"

type Repository interface {
	Create(ctx context.Context, record *Record) error
	// ListByPlan returns the rollbacks of a plan, newest first
	ListByPlan(ctx context.Context, planName string) ([]*Record, error)
}
