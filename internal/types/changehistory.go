package types

import (
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/samber/lo"
)

// HistoryEntryType identifies what kind of record a change history entry points at
type HistoryEntryType string

const (
	HistoryEntryTypeImpactAnalysis     HistoryEntryType = "impact_analysis"
	HistoryEntryTypeSimulation         HistoryEntryType = "simulation"
	HistoryEntryTypePlanVersion        HistoryEntryType = "plan_version"
	HistoryEntryTypeMigrationPlan      HistoryEntryType = "migration_plan"
	HistoryEntryTypeMigrationExecution HistoryEntryType = "migration_execution"
	HistoryEntryTypeRollback           HistoryEntryType = "rollback"
)

func (t HistoryEntryType) String() string {
	return string(t)
}

func (t HistoryEntryType) Validate() error {
	allowed := []HistoryEntryType{
		HistoryEntryTypeImpactAnalysis,
		HistoryEntryTypeSimulation,
		HistoryEntryTypePlanVersion,
		HistoryEntryTypeMigrationPlan,
		HistoryEntryTypeMigrationExecution,
		HistoryEntryTypeRollback,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid history entry type").
			WithHint("Invalid history entry type").
			WithReportableDetails(map[string]any{
				"entry_type":    t,
				"allowed_types": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
