package postgres

import (
	"context"

	"github.com/flexprice/planshift/internal/logger"
	sentryService "github.com/flexprice/planshift/internal/sentry"
)

// SentryClient wraps a client with a sentry span per transaction
type SentryClient struct {
	client IClient
	sentry *sentryService.Service
	logger *logger.Logger
}

// NewSentryClient creates a new Sentry-instrumented Postgres client
func NewSentryClient(client IClient, sentry *sentryService.Service, logger *logger.Logger) IClient {
	return &SentryClient{
		client: client,
		sentry: sentry,
		logger: logger,
	}
}

// WithTx wraps the given function in a transaction with Sentry span tracking
func (c *SentryClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	span, spanCtx := c.sentry.StartSpan(ctx, "db.postgres", "postgres.transaction", nil)
	err := c.client.WithTx(spanCtx, fn)
	sentryService.FinishSpan(span, err)
	return err
}
