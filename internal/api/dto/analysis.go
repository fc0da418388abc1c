package dto

import (
	"github.com/flexprice/planshift/internal/domain/planversion"
	"github.com/flexprice/planshift/internal/validator"
	"github.com/shopspring/decimal"
)

type AnalyzePricingChangeRequest struct {
	PlanName     string           `json:"plan_name" validate:"required"`
	MonthlyPrice *decimal.Decimal `json:"monthly_price,omitempty" swaggertype:"string"`
	YearlyPrice  *decimal.Decimal `json:"yearly_price,omitempty" swaggertype:"string"`
	Currency     *string          `json:"currency,omitempty"`
	Actor        string           `json:"actor,omitempty"`
}

func (r *AnalyzePricingChangeRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.ToDelta().Validate()
}

func (r *AnalyzePricingChangeRequest) ToDelta() planversion.PricingDelta {
	return planversion.PricingDelta{
		MonthlyPrice: r.MonthlyPrice,
		YearlyPrice:  r.YearlyPrice,
		Currency:     r.Currency,
	}
}

type AnalyzeFeatureChangeRequest struct {
	PlanName        string   `json:"plan_name" validate:"required"`
	FeaturesAdded   []string `json:"features_added,omitempty"`
	FeaturesRemoved []string `json:"features_removed,omitempty"`
	Actor           string   `json:"actor,omitempty"`
}

func (r *AnalyzeFeatureChangeRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.ToDelta().Validate()
}

func (r *AnalyzeFeatureChangeRequest) ToDelta() planversion.FeaturesDelta {
	return planversion.FeaturesDelta{
		FeaturesAdded:   r.FeaturesAdded,
		FeaturesRemoved: r.FeaturesRemoved,
	}
}

type AnalyzeLimitChangeRequest struct {
	PlanName string             `json:"plan_name" validate:"required"`
	Limits   planversion.Limits `json:"limits" validate:"required"`
	Actor    string             `json:"actor,omitempty"`
}

func (r *AnalyzeLimitChangeRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.ToDelta().Validate()
}

func (r *AnalyzeLimitChangeRequest) ToDelta() planversion.LimitsDelta {
	return planversion.LimitsDelta{Limits: r.Limits}
}

type AnalyzePlanDisableRequest struct {
	PlanName string `json:"plan_name" validate:"required"`
	Actor    string `json:"actor,omitempty"`
}

func (r *AnalyzePlanDisableRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// SimulateChangeRequest carries up to three parts of a composite change.
// Every part present is analyzed.
type SimulateChangeRequest struct {
	PlanName string                     `json:"plan_name" validate:"required"`
	Pricing  *planversion.PricingDelta  `json:"pricing,omitempty"`
	Features *planversion.FeaturesDelta `json:"features,omitempty"`
	Limits   *planversion.LimitsDelta   `json:"limits,omitempty"`
	Actor    string                     `json:"actor,omitempty"`
}

func (r *SimulateChangeRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func (r *SimulateChangeRequest) ToChange() planversion.Change {
	return planversion.Change{
		Pricing:  r.Pricing,
		Features: r.Features,
		Limits:   r.Limits,
	}
}
