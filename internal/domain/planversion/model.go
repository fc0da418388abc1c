package planversion

import (
	"sort"
	"strings"
	"time"

	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Plan is the mutable pointer to the version that is in effect for a plan name.
// Everything else about a plan lives on its immutable versions.
type Plan struct {
	Name                 string    `db:"name" json:"name"`
	CurrentVersionNumber int       `db:"current_version_number" json:"current_version_number"`
	Enabled              bool      `db:"enabled" json:"enabled"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// Pricing is the list price of a plan version per billing cycle
type Pricing struct {
	MonthlyPrice decimal.Decimal `json:"monthly_price" swaggertype:"string"`
	YearlyPrice  decimal.Decimal `json:"yearly_price" swaggertype:"string"`
	Currency     string          `json:"currency"`
}

// PriceFor returns the list price charged on the given billing cycle
func (p Pricing) PriceFor(cycle types.BillingCycle) decimal.Decimal {
	if cycle == types.BillingCycleYearly {
		return p.YearlyPrice
	}
	return p.MonthlyPrice
}

func (p Pricing) Validate() error {
	if p.MonthlyPrice.IsNegative() || p.YearlyPrice.IsNegative() {
		return ierr.NewError("price cannot be negative").
			WithHint("Monthly and yearly prices must be zero or positive").
			WithReportableDetails(map[string]any{
				"monthly_price": p.MonthlyPrice.String(),
				"yearly_price":  p.YearlyPrice.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return types.ValidateCurrencyCode(p.Currency)
}

// PlanVersion is an immutable snapshot of a plan. A version is never edited,
// only superseded by a higher version number.
type PlanVersion struct {
	ID            string           `json:"id"`
	PlanName      string           `json:"plan_name"`
	VersionNumber int              `json:"version_number"`
	Pricing       Pricing          `json:"pricing"`
	Features      []string         `json:"features"`
	Limits        Limits           `json:"limits"`
	Status        types.PlanStatus `json:"status"`
	ChangeSummary string           `json:"change_summary,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	CreatedBy     string           `json:"created_by"`
}

// IsEnabled reports whether the version accepts new sign-ups
func (v *PlanVersion) IsEnabled() bool {
	return v != nil && v.Status == types.PlanStatusEnabled
}

// HasFeature reports whether the feature is part of the version's feature set
func (v *PlanVersion) HasFeature(feature string) bool {
	i := sort.SearchStrings(v.Features, feature)
	return i < len(v.Features) && v.Features[i] == feature
}

// Clone returns a deep copy so callers can derive a new version without
// touching the stored snapshot
func (v *PlanVersion) Clone() *PlanVersion {
	if v == nil {
		return nil
	}
	c := *v
	c.Features = append([]string(nil), v.Features...)
	c.Limits = v.Limits.Clone()
	return &c
}

func (v *PlanVersion) Validate() error {
	if v.PlanName == "" {
		return ierr.NewError("plan name is required").
			WithHint("Plan name is required").
			Mark(ierr.ErrValidation)
	}
	if v.VersionNumber < 1 {
		return ierr.NewError("version number must be positive").
			WithHint("Version numbers start at 1").
			WithReportableDetails(map[string]any{
				"version_number": v.VersionNumber,
			}).
			Mark(ierr.ErrValidation)
	}
	if err := v.Pricing.Validate(); err != nil {
		return err
	}
	if err := v.Limits.Validate(); err != nil {
		return err
	}
	return v.Status.Validate()
}

// NormalizeFeatures trims, dedupes and sorts a feature list so it behaves as a set
func NormalizeFeatures(features []string) []string {
	out := lo.Uniq(lo.FilterMap(features, func(f string, _ int) (string, bool) {
		f = strings.TrimSpace(f)
		return f, f != ""
	}))
	sort.Strings(out)
	return out
}

// Change is a partial override applied on top of the current version to
// produce the next one. Nil fields are left as they are.
type Change struct {
	Pricing       *PricingDelta
	Features      *FeaturesDelta
	Limits        *LimitsDelta
	Status        *types.PlanStatus
	ChangeSummary string
}

// IsEmpty reports whether the change would produce an identical version
func (c Change) IsEmpty() bool {
	return c.Pricing == nil && c.Features == nil && c.Limits == nil && c.Status == nil
}

// Deltas returns the populated deltas in pricing, features, limits order
func (c Change) Deltas() []Delta {
	var deltas []Delta
	if c.Pricing != nil {
		deltas = append(deltas, *c.Pricing)
	}
	if c.Features != nil {
		deltas = append(deltas, *c.Features)
	}
	if c.Limits != nil {
		deltas = append(deltas, *c.Limits)
	}
	return deltas
}

func (c Change) Validate() error {
	if c.IsEmpty() {
		return ierr.NewError("change is empty").
			WithHint("At least one of pricing, features, limits or status must be changed").
			Mark(ierr.ErrValidation)
	}
	for _, d := range c.Deltas() {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	if c.Status != nil {
		return c.Status.Validate()
	}
	return nil
}

// ApplyTo derives the next version from the given one. The result has no
// identity yet: the store assigns id, number and timestamps.
func (c Change) ApplyTo(current *PlanVersion) *PlanVersion {
	next := current.Clone()
	for _, d := range c.Deltas() {
		d.Apply(next)
	}
	if c.Status != nil {
		next.Status = *c.Status
	}
	next.ChangeSummary = c.ChangeSummary
	return next
}
