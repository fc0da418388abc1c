package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/planshift/internal/domain/subscription"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
)

// InMemorySubscriptionStore implements subscription.Store with seedable usage
// and injectable failures
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]

	mu           sync.RWMutex
	usage        map[string]map[string]int64
	usageErrors  map[string]error
	updateErrors map[string]error
	updates      map[string]int
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription]("subscription"),
		usage:         make(map[string]map[string]int64),
		usageErrors:   make(map[string]error),
		updateErrors:  make(map[string]error),
		updates:       make(map[string]int),
	}
}

// Seed stores the given subscriptions
func (s *InMemorySubscriptionStore) Seed(ctx context.Context, subs ...*subscription.Subscription) error {
	for _, sub := range subs {
		c := *sub
		if err := s.InMemoryStore.Create(ctx, sub.ID, &c); err != nil {
			return err
		}
	}
	return nil
}

// SetUsage records the measured usage of a limit
func (s *InMemorySubscriptionStore) SetUsage(subscriptionID, limitName string, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usage[subscriptionID] == nil {
		s.usage[subscriptionID] = make(map[string]int64)
	}
	s.usage[subscriptionID][limitName] = value
}

// FailUsage makes GetUsage return err for the subscription
func (s *InMemorySubscriptionStore) FailUsage(subscriptionID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usageErrors[subscriptionID] = err
}

// FailUpdate makes UpdatePlanAssignment return err for the subscription, nil clears it
func (s *InMemorySubscriptionStore) FailUpdate(subscriptionID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.updateErrors, subscriptionID)
		return
	}
	s.updateErrors[subscriptionID] = err
}

// SetStatus changes the status of a seeded subscription
func (s *InMemorySubscriptionStore) SetStatus(ctx context.Context, id string, status types.SubscriptionStatus) error {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	c := *sub
	c.Status = status
	return s.InMemoryStore.Update(ctx, id, &c)
}

// UpdateCount returns how many times the subscription's plan assignment was written
func (s *InMemorySubscriptionStore) UpdateCount(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates[id]
}

func (s *InMemorySubscriptionStore) FindActiveByPlan(ctx context.Context, planName string) ([]*subscription.Subscription, error) {
	subs, err := s.InMemoryStore.List(ctx, planName, func(_ context.Context, sub *subscription.Subscription, f interface{}) bool {
		return sub.IsActive() && sub.PlanName == f.(string)
	}, func(i, j *subscription.Subscription) bool {
		if i.CreatedAt.Equal(j.CreatedAt) {
			return i.ID < j.ID
		}
		return i.CreatedAt.Before(j.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(subs, func(sub *subscription.Subscription, _ int) *subscription.Subscription {
		c := *sub
		return &c
	}), nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c := *sub
	return &c, nil
}

func (s *InMemorySubscriptionStore) UpdatePlanAssignment(ctx context.Context, id, planName string, planVersionNumber int) error {
	s.mu.Lock()
	if err := s.updateErrors[id]; err != nil {
		s.mu.Unlock()
		return err
	}
	s.updates[id]++
	s.mu.Unlock()

	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	c := *sub
	c.PlanName = planName
	c.PlanVersionNumber = planVersionNumber
	return s.InMemoryStore.Update(ctx, id, &c)
}

func (s *InMemorySubscriptionStore) GetUsage(_ context.Context, id, limitName string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.usageErrors[id]; err != nil {
		return 0, false, err
	}
	v, ok := s.usage[id][limitName]
	return v, ok, nil
}

func (s *InMemorySubscriptionStore) Clear() {
	s.InMemoryStore.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage = make(map[string]map[string]int64)
	s.usageErrors = make(map[string]error)
	s.updateErrors = make(map[string]error)
	s.updates = make(map[string]int)
}
