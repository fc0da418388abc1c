package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/planshift/internal/config"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/interfaces"
	"github.com/flexprice/planshift/internal/logger"
	"golang.org/x/time/rate"
)

// billingCaller wraps the billing gateway with a per-call timeout, a shared
// rate limit and bounded exponential retries. Every failure it returns is
// marked ErrBilling.
type billingCaller struct {
	gateway         interfaces.BillingGateway
	limiter         *rate.Limiter
	timeout         time.Duration
	maxRetries      uint64
	initialInterval time.Duration
	logger          *logger.Logger
}

func newBillingCaller(gateway interfaces.BillingGateway, cfg config.BillingConfig, logger *logger.Logger) *billingCaller {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return &billingCaller{
		gateway:         gateway,
		limiter:         limiter,
		timeout:         cfg.Timeout,
		maxRetries:      cfg.MaxRetries,
		initialInterval: cfg.InitialInterval,
		logger:          logger,
	}
}

func (c *billingCaller) apply(ctx context.Context, req interfaces.PlanChangeRequest) error {
	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		err := c.gateway.ApplyPlanChange(callCtx, req)
		switch {
		case err == nil:
			return nil
		case errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return ierr.WithError(err).
				WithHintf("Billing call timed out after %s", c.timeout).
				Mark(ierr.ErrBilling)
		case ierr.IsValidation(err) || ctx.Err() != nil:
			return backoff.Permanent(err)
		default:
			return err
		}
	}

	policy := backoff.NewExponentialBackOff()
	if c.initialInterval > 0 {
		policy.InitialInterval = c.initialInterval
	}
	// attempts are bounded by maxRetries, not elapsed time
	policy.MaxElapsedTime = 0

	err := backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx),
		func(err error, wait time.Duration) {
			c.logger.Debugw("retrying billing call",
				"subscription_id", req.SubscriptionID,
				"attempt", attempt,
				"wait", wait,
				"error", err)
		})
	if err == nil {
		return nil
	}
	if ierr.IsBilling(err) {
		return err
	}
	return ierr.WithError(err).
		WithHint("The billing provider did not apply the plan change").
		WithReportableDetails(map[string]any{
			"subscription_id": req.SubscriptionID,
			"attempts":        attempt,
		}).
		Mark(ierr.ErrBilling)
}
