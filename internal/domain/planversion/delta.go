package planversion

import (
	"strings"

	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Delta is a proposed change to one part of a plan. The concrete types are
// PricingDelta, FeaturesDelta, LimitsDelta and DisableDelta; consumers switch
// on the concrete type rather than inspecting payload keys.
type Delta interface {
	ChangeType() types.ChangeType
	Validate() error
	// Apply mutates the given version in place
	Apply(v *PlanVersion)
	isDelta()
}

// PricingDelta overrides the list prices of a plan. Nil prices keep the current value.
type PricingDelta struct {
	MonthlyPrice *decimal.Decimal `json:"monthly_price,omitempty" swaggertype:"string"`
	YearlyPrice  *decimal.Decimal `json:"yearly_price,omitempty" swaggertype:"string"`
	Currency     *string          `json:"currency,omitempty"`
}

func (PricingDelta) ChangeType() types.ChangeType { return types.ChangeTypePricing }
func (PricingDelta) isDelta()                     {}

func (d PricingDelta) Validate() error {
	if d.MonthlyPrice == nil && d.YearlyPrice == nil && d.Currency == nil {
		return ierr.NewError("pricing change is empty").
			WithHint("Provide a new monthly price, yearly price or currency").
			Mark(ierr.ErrValidation)
	}
	if (d.MonthlyPrice != nil && d.MonthlyPrice.IsNegative()) || (d.YearlyPrice != nil && d.YearlyPrice.IsNegative()) {
		return ierr.NewError("price cannot be negative").
			WithHint("Prices must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if d.Currency != nil {
		return types.ValidateCurrencyCode(*d.Currency)
	}
	return nil
}

func (d PricingDelta) Apply(v *PlanVersion) {
	v.Pricing = d.ApplyToPricing(v.Pricing)
}

// ApplyToPricing returns the pricing that results from applying the delta
func (d PricingDelta) ApplyToPricing(p Pricing) Pricing {
	if d.MonthlyPrice != nil {
		p.MonthlyPrice = *d.MonthlyPrice
	}
	if d.YearlyPrice != nil {
		p.YearlyPrice = *d.YearlyPrice
	}
	if d.Currency != nil {
		p.Currency = types.NormalizeCurrency(*d.Currency)
	}
	return p
}

// FeaturesDelta adds and removes features from the plan's feature set
type FeaturesDelta struct {
	FeaturesAdded   []string `json:"features_added,omitempty"`
	FeaturesRemoved []string `json:"features_removed,omitempty"`
}

func (FeaturesDelta) ChangeType() types.ChangeType { return types.ChangeTypeFeatures }
func (FeaturesDelta) isDelta()                     {}

func (d FeaturesDelta) Validate() error {
	added := NormalizeFeatures(d.FeaturesAdded)
	removed := NormalizeFeatures(d.FeaturesRemoved)
	if len(added) == 0 && len(removed) == 0 {
		return ierr.NewError("features change is empty").
			WithHint("Provide at least one feature to add or remove").
			Mark(ierr.ErrValidation)
	}
	if both := lo.Intersect(added, removed); len(both) > 0 {
		return ierr.NewError("feature both added and removed").
			WithHintf("Features cannot be added and removed at once: %s", strings.Join(both, ", ")).
			WithReportableDetails(map[string]any{
				"features": both,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (d FeaturesDelta) Apply(v *PlanVersion) {
	removed := NormalizeFeatures(d.FeaturesRemoved)
	kept := lo.Without(v.Features, removed...)
	v.Features = NormalizeFeatures(append(kept, d.FeaturesAdded...))
}

// Diff returns the features the delta would really add and remove relative to
// the given version; no-op additions and removals are dropped.
func (d FeaturesDelta) Diff(v *PlanVersion) (gained, lost []string) {
	for _, f := range NormalizeFeatures(d.FeaturesAdded) {
		if !v.HasFeature(f) {
			gained = append(gained, f)
		}
	}
	for _, f := range NormalizeFeatures(d.FeaturesRemoved) {
		if v.HasFeature(f) {
			lost = append(lost, f)
		}
	}
	return gained, lost
}

// LimitsDelta sets new values for the named limits, other limits are kept
type LimitsDelta struct {
	Limits Limits `json:"limits"`
}

func (LimitsDelta) ChangeType() types.ChangeType { return types.ChangeTypeLimits }
func (LimitsDelta) isDelta()                     {}

func (d LimitsDelta) Validate() error {
	if len(d.Limits) == 0 {
		return ierr.NewError("limits change is empty").
			WithHint("Provide at least one limit").
			Mark(ierr.ErrValidation)
	}
	return d.Limits.Validate()
}

func (d LimitsDelta) Apply(v *PlanVersion) {
	if v.Limits == nil {
		v.Limits = Limits{}
	}
	for name, value := range d.Limits {
		v.Limits[name] = value
	}
}

// DisableDelta stops new sign-ups for a plan. Existing subscriptions keep billing.
type DisableDelta struct{}

func (DisableDelta) ChangeType() types.ChangeType { return types.ChangeTypeDisable }
func (DisableDelta) isDelta()                     {}
func (DisableDelta) Validate() error              { return nil }

func (DisableDelta) Apply(v *PlanVersion) {
	v.Status = types.PlanStatusDisabled
}
