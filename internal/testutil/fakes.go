package testutil

import (
	"context"
	"sync"
	"time"

	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/interfaces"
)

var (
	_ interfaces.BillingGateway     = (*FakeBillingGateway)(nil)
	_ interfaces.NotificationSender = (*RecordingNotifier)(nil)
)

// FakeBillingGateway records every plan change and fails the subscriptions it
// is told to fail
type FakeBillingGateway struct {
	mu       sync.Mutex
	failures map[string]error
	// transient failures are consumed one per call
	transient map[string]int
	delay     time.Duration
	calls     []interfaces.PlanChangeRequest
}

func NewFakeBillingGateway() *FakeBillingGateway {
	return &FakeBillingGateway{
		failures:  make(map[string]error),
		transient: make(map[string]int),
	}
}

// FailFor makes every call for the subscription fail with a billing error
func (g *FakeBillingGateway) FailFor(subscriptionID, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[subscriptionID] = ierr.NewError(reason).
		WithHint("The billing provider rejected the plan change").
		Mark(ierr.ErrBilling)
}

// FailTimes makes the next n calls for the subscription fail
func (g *FakeBillingGateway) FailTimes(subscriptionID string, n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transient[subscriptionID] = n
}

// Recover clears the failures of the subscription
func (g *FakeBillingGateway) Recover(subscriptionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.failures, subscriptionID)
	delete(g.transient, subscriptionID)
}

// SetDelay makes every call block for d or until its context is done
func (g *FakeBillingGateway) SetDelay(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.delay = d
}

func (g *FakeBillingGateway) ApplyPlanChange(ctx context.Context, req interfaces.PlanChangeRequest) error {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	delay := g.delay
	err := g.failures[req.SubscriptionID]
	if err == nil && g.transient[req.SubscriptionID] > 0 {
		g.transient[req.SubscriptionID]--
		err = ierr.NewError("billing provider unavailable").
			WithHint("The billing provider is temporarily unavailable").
			Mark(ierr.ErrBilling)
	}
	g.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Calls returns the recorded requests in call order
func (g *FakeBillingGateway) Calls() []interfaces.PlanChangeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]interfaces.PlanChangeRequest(nil), g.calls...)
}

// CallCount returns how many calls were made for the subscription
func (g *FakeBillingGateway) CallCount(subscriptionID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.SubscriptionID == subscriptionID {
			n++
		}
	}
	return n
}

func (g *FakeBillingGateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = make(map[string]error)
	g.transient = make(map[string]int)
	g.delay = 0
	g.calls = nil
}

// Notification is one recorded Notify call
type Notification struct {
	SubscriptionID string
	EventType      string
	Payload        map[string]any
}

// RecordingNotifier keeps the notifications it is asked to send
type RecordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

// FailWith makes every Notify call return err after recording it
func (n *RecordingNotifier) FailWith(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *RecordingNotifier) Notify(_ context.Context, subscriptionID, eventType string, payload map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, Notification{
		SubscriptionID: subscriptionID,
		EventType:      eventType,
		Payload:        payload,
	})
	return n.err
}

func (n *RecordingNotifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.sent...)
}

func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
	n.err = nil
}
