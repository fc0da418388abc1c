package impact

import (
	"time"

	"github.com/flexprice/planshift/internal/domain/planversion"
	"github.com/flexprice/planshift/internal/types"
	"github.com/shopspring/decimal"
)

// FinancialImpact is the revenue effect of a pricing change across the
// affected subscriptions. Yearly deltas are normalised to monthly in
// MonthlyDeltaTotal and also summed as is in YearlyDeltaTotal.
type FinancialImpact struct {
	MonthlyDeltaTotal     decimal.Decimal `json:"monthly_delta_total" swaggertype:"string"`
	YearlyDeltaTotal      decimal.Decimal `json:"yearly_delta_total" swaggertype:"string"`
	CurrentMonthlyRevenue decimal.Decimal `json:"current_monthly_revenue" swaggertype:"string"`
	Currency              string          `json:"currency"`
}

// FeatureImpact lists the features a change really gains or loses
type FeatureImpact struct {
	FeaturesGained []string `json:"features_gained"`
	FeaturesLost   []string `json:"features_lost"`
	GainedCount    int      `json:"gained_count"`
	LostCount      int      `json:"lost_count"`
}

// ImpactAnalysis is the result of analysing one proposed delta against the
// current version of a plan. It is computed fresh for every request.
type ImpactAnalysis struct {
	AnalysisID        string            `json:"analysis_id"`
	PlanName          string            `json:"plan_name"`
	PlanVersionNumber int               `json:"plan_version_number"`
	ChangeType        types.ChangeType  `json:"change_type"`
	ProposedDelta     planversion.Delta `json:"proposed_delta"`

	AffectedSubscriptionCount int      `json:"affected_subscription_count"`
	AffectedSubscriptionIDs   []string `json:"affected_subscription_ids"`
	AffectedIDsTruncated      bool     `json:"affected_ids_truncated"`
	// AtRiskSubscriptionCount is the part of the affected subscriptions whose
	// known usage exceeds a new limit
	AtRiskSubscriptionCount int `json:"at_risk_subscription_count"`
	UnknownUsageCount       int `json:"unknown_usage_count"`

	FinancialImpact FinancialImpact `json:"financial_impact"`
	FeatureImpact   FeatureImpact   `json:"feature_impact"`
	RiskLevel       types.RiskLevel `json:"risk_level"`
	CreatedAt       time.Time       `json:"created_at"`
	AnalyzedBy      string          `json:"analyzed_by"`
}

// SimulationResult aggregates the analyses of a composite change
type SimulationResult struct {
	SimulationID string            `json:"simulation_id"`
	PlanName     string            `json:"plan_name"`
	Analyses     []*ImpactAnalysis `json:"analyses"`
	OverallRisk  types.RiskLevel   `json:"overall_risk"`
	CreatedAt    time.Time         `json:"created_at"`
	SimulatedBy  string            `json:"simulated_by"`
}

// RiskAssessment summarises the recorded analyses and open migrations of a plan
type RiskAssessment struct {
	PlanName             string                  `json:"plan_name"`
	CurrentVersion       int                     `json:"current_version"`
	AnalysisCount        int                     `json:"analysis_count"`
	RiskCounts           map[types.RiskLevel]int `json:"risk_counts"`
	HighestRisk          types.RiskLevel         `json:"highest_risk"`
	LatestAnalysisID     string                  `json:"latest_analysis_id,omitempty"`
	LatestRiskLevel      types.RiskLevel         `json:"latest_risk_level,omitempty"`
	LatestAnalysisAt     *time.Time              `json:"latest_analysis_at,omitempty"`
	OpenMigrationIDs     []string                `json:"open_migration_ids"`
	PartiallyFailedCount int                     `json:"partially_failed_migrations"`
	AssessedAt           time.Time               `json:"assessed_at"`
}
