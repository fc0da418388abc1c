package integration

import (
	"github.com/flexprice/planshift/internal/config"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/integration/stripe"
	"github.com/flexprice/planshift/internal/interfaces"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/types"
)

// NewBillingGateway returns the gateway for the configured provider
func NewBillingGateway(cfg *config.Configuration, logger *logger.Logger) (interfaces.BillingGateway, error) {
	switch cfg.Billing.Provider {
	case types.BillingProviderStripe:
		if cfg.Billing.Stripe.SecretKey == "" {
			return nil, ierr.NewError("stripe secret key is not configured").
				WithHint("Set billing.stripe.secret_key to use the stripe billing provider").
				Mark(ierr.ErrValidation)
		}
		return stripe.NewGateway(cfg.Billing.Stripe.SecretKey, logger), nil
	case types.BillingProviderNoop, "":
		return NewLogGateway(logger), nil
	default:
		return nil, ierr.NewErrorf("unknown billing provider %q", cfg.Billing.Provider).
			WithHint("Billing provider must be noop or stripe").
			Mark(ierr.ErrValidation)
	}
}
