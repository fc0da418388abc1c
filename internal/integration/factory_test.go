package integration

import (
	"testing"

	"github.com/flexprice/planshift/internal/config"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/integration/stripe"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBillingGateway(t *testing.T) {
	log := logger.NewNoopLogger()

	t.Run("noop by default", func(t *testing.T) {
		gw, err := NewBillingGateway(config.GetDefaultConfig(), log)
		require.NoError(t, err)
		assert.IsType(t, &LogGateway{}, gw)
	})

	t.Run("stripe requires a secret key", func(t *testing.T) {
		cfg := config.GetDefaultConfig()
		cfg.Billing.Provider = types.BillingProviderStripe
		_, err := NewBillingGateway(cfg, log)
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	})

	t.Run("stripe", func(t *testing.T) {
		cfg := config.GetDefaultConfig()
		cfg.Billing.Provider = types.BillingProviderStripe
		cfg.Billing.Stripe.SecretKey = "sk_test_123"
		gw, err := NewBillingGateway(cfg, log)
		require.NoError(t, err)
		assert.IsType(t, &stripe.Gateway{}, gw)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := config.GetDefaultConfig()
		cfg.Billing.Provider = "paypal"
		_, err := NewBillingGateway(cfg, log)
		assert.True(t, ierr.IsValidation(err))
	})
}
