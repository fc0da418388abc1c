package service

import (
	"github.com/flexprice/planshift/internal/config"
	"github.com/flexprice/planshift/internal/types"
	"github.com/shopspring/decimal"
)

// riskInput is what the classifier looks at for one analysis
type riskInput struct {
	AffectedCount         int
	AtRiskCount           int
	MonthlyDeltaTotal     decimal.Decimal
	CurrentMonthlyRevenue decimal.Decimal
}

// classifyRisk applies the configured thresholds:
//
//	high   affected > risk.high_affected_count, or |monthly delta| exceeds
//	       risk.high_revenue_fraction of the current monthly revenue
//	medium affected > risk.medium_affected_count, or any subscription is
//	       already over a proposed limit
//	low    otherwise
func classifyRisk(cfg config.RiskConfig, in riskInput) types.RiskLevel {
	if in.AffectedCount > cfg.HighAffectedCount {
		return types.RiskLevelHigh
	}
	if in.CurrentMonthlyRevenue.IsPositive() && !in.MonthlyDeltaTotal.IsZero() {
		fraction := in.MonthlyDeltaTotal.Abs().Div(in.CurrentMonthlyRevenue)
		if fraction.GreaterThan(decimal.NewFromFloat(cfg.HighRevenueFraction)) {
			return types.RiskLevelHigh
		}
	}
	if in.AffectedCount > cfg.MediumAffectedCount || in.AtRiskCount > 0 {
		return types.RiskLevelMedium
	}
	return types.RiskLevelLow
}
