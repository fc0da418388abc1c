package service

import (
	"context"
	"sort"

	"github.com/flexprice/planshift/internal/domain/subscription"
	"github.com/samber/lo"
)

// SubscriptionIndex answers the read-only questions the engine asks of the
// subscription system
type SubscriptionIndex interface {
	// ActiveByPlan returns the active subscriptions on the plan, oldest first
	// with the id as tiebreak, so repeated calls on unchanged data agree
	ActiveByPlan(ctx context.Context, planName string) ([]*subscription.Subscription, error)
	// Usage returns the measured usage of a limit. Lookup failures are logged
	// and reported as unknown.
	Usage(ctx context.Context, subscriptionID, limitName string) (int64, bool)
}

type subscriptionIndex struct {
	ServiceParams
}

func NewSubscriptionIndex(params ServiceParams) SubscriptionIndex {
	return &subscriptionIndex{
		ServiceParams: params,
	}
}

func (s *subscriptionIndex) ActiveByPlan(ctx context.Context, planName string) ([]*subscription.Subscription, error) {
	subs, err := s.SubscriptionStore.FindActiveByPlan(ctx, planName)
	if err != nil {
		return nil, err
	}

	// the store contract says active, but it is not ours to trust
	subs = lo.Filter(subs, func(sub *subscription.Subscription, _ int) bool {
		return sub.IsActive() && sub.PlanName == planName
	})
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs, nil
}

func (s *subscriptionIndex) Usage(ctx context.Context, subscriptionID, limitName string) (int64, bool) {
	value, known, err := s.SubscriptionStore.GetUsage(ctx, subscriptionID, limitName)
	if err != nil {
		s.Logger.Warnw("failed to fetch subscription usage, treating it as unknown",
			"subscription_id", subscriptionID,
			"limit", limitName,
			"error", err)
		return 0, false
	}
	return value, known
}
