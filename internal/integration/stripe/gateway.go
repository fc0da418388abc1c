package stripe

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/interfaces"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/stripe/stripe-go/v82"
)

const (
	metadataSubscriptionID = "planshift_subscription_id"
	metadataPlanName       = "planshift_plan_name"
	metadataPlanVersion    = "planshift_plan_version"
	metadataMonthlyPrice   = "planshift_monthly_price"
	metadataYearlyPrice    = "planshift_yearly_price"
	metadataCurrency       = "planshift_currency"
	metadataFeatures       = "planshift_features"
	metadataLimitPrefix    = "planshift_limit_"

	// stripe caps metadata values at 500 characters
	maxMetadataValue = 500
)

// Gateway applies plan changes to the Stripe subscription that mirrors a
// planshift subscription. The mirror is found by its planshift_subscription_id
// metadata.
type Gateway struct {
	client *stripe.Client
	logger *logger.Logger
}

func NewGateway(secretKey string, logger *logger.Logger) *Gateway {
	return &Gateway{
		client: stripe.NewClient(secretKey, nil),
		logger: logger,
	}
}

var _ interfaces.BillingGateway = (*Gateway)(nil)

func (g *Gateway) ApplyPlanChange(ctx context.Context, req interfaces.PlanChangeRequest) error {
	stripeSubID, err := g.findSubscription(ctx, req.SubscriptionID)
	if err != nil {
		return err
	}

	params := &stripe.SubscriptionUpdateParams{}
	params.IdempotencyKey = stripe.String(req.IdempotencyKey)
	params.AddMetadata(metadataPlanName, req.PlanName)
	params.AddMetadata(metadataPlanVersion, strconv.Itoa(req.VersionNumber))
	params.AddMetadata(metadataMonthlyPrice, req.Pricing.MonthlyPrice.String())
	params.AddMetadata(metadataYearlyPrice, req.Pricing.YearlyPrice.String())
	params.AddMetadata(metadataCurrency, req.Pricing.Currency)
	params.AddMetadata(metadataFeatures, truncate(strings.Join(req.Features, ","), maxMetadataValue))
	for name, limit := range req.Limits {
		params.AddMetadata(metadataLimitPrefix+name, limit.String())
	}

	if _, err := g.client.V1Subscriptions.Update(ctx, stripeSubID, params); err != nil {
		g.logger.Errorw("failed to apply plan change in stripe",
			"error", err,
			"subscription_id", req.SubscriptionID,
			"stripe_subscription_id", stripeSubID,
			"plan_name", req.PlanName,
			"plan_version", req.VersionNumber,
		)
		return ierr.WithError(err).
			WithHint("Stripe rejected the plan change").
			WithReportableDetails(map[string]any{
				"subscription_id":        req.SubscriptionID,
				"stripe_subscription_id": stripeSubID,
			}).
			Mark(ierr.ErrBilling)
	}

	g.logger.Infow("applied plan change in stripe",
		"subscription_id", req.SubscriptionID,
		"stripe_subscription_id", stripeSubID,
		"plan_name", req.PlanName,
		"plan_version", req.VersionNumber,
	)
	return nil
}

func (g *Gateway) findSubscription(ctx context.Context, subscriptionID string) (string, error) {
	params := &stripe.SubscriptionSearchParams{}
	params.Query = fmt.Sprintf("metadata['%s']:'%s'", metadataSubscriptionID, subscriptionID)
	params.Limit = stripe.Int64(1)

	var (
		found    bool
		foundID  string
		foundErr error
	)
	g.client.V1Subscriptions.Search(ctx, params)(func(sub *stripe.Subscription, err error) bool {
		found = true
		if err != nil {
			foundErr = ierr.WithError(err).
				WithHint("Failed to look up the subscription in Stripe").
				Mark(ierr.ErrBilling)
			return false
		}
		foundID = sub.ID
		return false
	})
	if found {
		return foundID, foundErr
	}

	return "", ierr.NewError("stripe subscription not found").
		WithHintf("No Stripe subscription is linked to %s", subscriptionID).
		WithReportableDetails(map[string]any{
			"subscription_id": subscriptionID,
		}).
		Mark(ierr.ErrBilling)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
