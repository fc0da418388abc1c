package postgres

import (
	"context"

	"github.com/flexprice/planshift/internal/domain/subscription"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/postgres"
	"github.com/flexprice/planshift/internal/types"
)

// subscriptionStore reads the subscriptions table owned by the subscription
// system. The only write is the plan assignment.
type subscriptionStore struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSubscriptionStore(db *postgres.DB, logger *logger.Logger) subscription.Store {
	return &subscriptionStore{db: db, logger: logger}
}

const subscriptionColumns = `id, customer_id, plan_name, plan_version_number, status, billing_cycle, created_at`

func (s *subscriptionStore) FindActiveByPlan(ctx context.Context, planName string) ([]*subscription.Subscription, error) {
	var subs []*subscription.Subscription
	err := s.db.SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE plan_name = $1
		AND status = $2
		ORDER BY created_at ASC, id ASC
	`, planName, types.SubscriptionStatusActive)
	if err != nil {
		return nil, dbError(err, "find_active_subscriptions")
	}
	return subs, nil
}

func (s *subscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := s.db.GetContext(ctx, &sub, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE id = $1
	`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("subscription not found").
				WithHintf("Subscription %s does not exist", id).
				WithReportableDetails(map[string]any{
					"subscription_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, dbError(err, "get_subscription")
	}
	return &sub, nil
}

func (s *subscriptionStore) UpdatePlanAssignment(ctx context.Context, id, planName string, planVersionNumber int) error {
	s.logger.Debugw("updating subscription plan assignment",
		"subscription_id", id,
		"plan_name", planName,
		"plan_version_number", planVersionNumber,
	)

	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET plan_name = $1,
			plan_version_number = $2,
			updated_at = now()
		WHERE id = $3
	`, planName, planVersionNumber, id)
	if err != nil {
		return dbError(err, "update_plan_assignment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *subscriptionStore) GetUsage(ctx context.Context, id, limitName string) (int64, bool, error) {
	var value int64
	err := s.db.GetContext(ctx, &value, `
		SELECT value
		FROM subscription_usage
		WHERE subscription_id = $1
		AND limit_name = $2
	`, id, limitName)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, dbError(err, "get_usage")
	}
	return value, true, nil
}
