package types

import (
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/samber/lo"
)

// ChangeType identifies which part of a plan a proposed change touches
type ChangeType string

const (
	ChangeTypePricing  ChangeType = "pricing"
	ChangeTypeFeatures ChangeType = "features"
	ChangeTypeLimits   ChangeType = "limits"
	ChangeTypeDisable  ChangeType = "disable"
)

func (c ChangeType) String() string {
	return string(c)
}

func (c ChangeType) Validate() error {
	allowed := []ChangeType{
		ChangeTypePricing,
		ChangeTypeFeatures,
		ChangeTypeLimits,
		ChangeTypeDisable,
	}
	if !lo.Contains(allowed, c) {
		return ierr.NewError("invalid change type").
			WithHint("Change type must be one of pricing, features, limits or disable").
			WithReportableDetails(map[string]any{
				"change_type":   c,
				"allowed_types": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RiskLevel is the coarse risk classification of a proposed change
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

func (r RiskLevel) String() string {
	return string(r)
}

// Rank orders risk levels, unknown values rank lowest
func (r RiskLevel) Rank() int {
	switch r {
	case RiskLevelHigh:
		return 3
	case RiskLevelMedium:
		return 2
	case RiskLevelLow:
		return 1
	default:
		return 0
	}
}

// MaxRiskLevel returns the highest of the given levels, low when none are given
func MaxRiskLevel(levels ...RiskLevel) RiskLevel {
	max := RiskLevelLow
	for _, l := range levels {
		if l.Rank() > max.Rank() {
			max = l
		}
	}
	return max
}
