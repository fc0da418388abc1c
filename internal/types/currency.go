package types

import (
	"strings"

	ierr "github.com/flexprice/planshift/internal/errors"
)

// DefaultCurrency is used when a plan is created without an explicit currency
const DefaultCurrency = "usd"

// NormalizeCurrency lowercases and trims an ISO 4217 currency code
func NormalizeCurrency(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// ValidateCurrencyCode checks that the code looks like a 3 letter ISO currency code
func ValidateCurrencyCode(code string) error {
	code = NormalizeCurrency(code)
	if len(code) != 3 {
		return ierr.NewError("invalid currency code").
			WithHint("Currency must be a 3 letter ISO code").
			WithReportableDetails(map[string]any{
				"currency": code,
			}).
			Mark(ierr.ErrValidation)
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return ierr.NewError("invalid currency code").
				WithHint("Currency must be a 3 letter ISO code").
				WithReportableDetails(map[string]any{
					"currency": code,
				}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}
