package dto

import (
	"github.com/flexprice/planshift/internal/domain/planversion"
	"github.com/flexprice/planshift/internal/types"
	"github.com/flexprice/planshift/internal/validator"
	"github.com/shopspring/decimal"
)

type CreatePlanRequest struct {
	Name          string             `json:"name" validate:"required"`
	MonthlyPrice  decimal.Decimal    `json:"monthly_price" swaggertype:"string"`
	YearlyPrice   decimal.Decimal    `json:"yearly_price" swaggertype:"string"`
	Currency      string             `json:"currency" validate:"required"`
	Features      []string           `json:"features"`
	Limits        planversion.Limits `json:"limits"`
	Status        types.PlanStatus   `json:"status,omitempty"`
	ChangeSummary string             `json:"change_summary,omitempty"`
	Actor         string             `json:"actor,omitempty"`
}

func (r *CreatePlanRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return validator.ValidatePlanName(r.Name)
}

func (r *CreatePlanRequest) ToPlanVersion() *planversion.PlanVersion {
	return &planversion.PlanVersion{
		PlanName: r.Name,
		Pricing: planversion.Pricing{
			MonthlyPrice: r.MonthlyPrice,
			YearlyPrice:  r.YearlyPrice,
			Currency:     r.Currency,
		},
		Features:      r.Features,
		Limits:        r.Limits,
		Status:        r.Status,
		ChangeSummary: r.ChangeSummary,
	}
}

// CreateVersionRequest is a partial override of the current version.
// Omitted parts carry over unchanged.
type CreateVersionRequest struct {
	Pricing       *planversion.PricingDelta  `json:"pricing,omitempty"`
	Features      *planversion.FeaturesDelta `json:"features,omitempty"`
	Limits        *planversion.LimitsDelta   `json:"limits,omitempty"`
	Status        *types.PlanStatus          `json:"status,omitempty"`
	ChangeSummary string                     `json:"change_summary,omitempty"`
	Actor         string                     `json:"actor,omitempty"`
}

func (r *CreateVersionRequest) ToChange() planversion.Change {
	return planversion.Change{
		Pricing:       r.Pricing,
		Features:      r.Features,
		Limits:        r.Limits,
		Status:        r.Status,
		ChangeSummary: r.ChangeSummary,
	}
}

func (r *CreateVersionRequest) Validate() error {
	return r.ToChange().Validate()
}

type PlanResponse struct {
	*planversion.Plan
	CurrentVersion *planversion.PlanVersion `json:"current_version"`
}

type ListPlansResponse = types.ListResponse[*planversion.Plan]

type ListPlanVersionsResponse = types.ListResponse[*planversion.PlanVersion]
