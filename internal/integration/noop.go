package integration

import (
	"context"

	"github.com/flexprice/planshift/internal/interfaces"
	"github.com/flexprice/planshift/internal/logger"
)

// LogGateway is a billing gateway that only logs. It is used when no payment
// processor is configured.
type LogGateway struct {
	logger *logger.Logger
}

func NewLogGateway(logger *logger.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

func (g *LogGateway) ApplyPlanChange(_ context.Context, req interfaces.PlanChangeRequest) error {
	g.logger.Infow("no billing provider configured, plan change not sent",
		"subscription_id", req.SubscriptionID,
		"plan_name", req.PlanName,
		"plan_version", req.VersionNumber,
		"idempotency_key", req.IdempotencyKey,
	)
	return nil
}
