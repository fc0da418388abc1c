package types

import (
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/samber/lo"
)

// PlanStatus is the availability of a plan version for new sign-ups.
// Disabling a plan never cancels existing subscriptions.
type PlanStatus string

const (
	PlanStatusEnabled  PlanStatus = "enabled"
	PlanStatusDisabled PlanStatus = "disabled"
)

func (s PlanStatus) String() string {
	return string(s)
}

func (s PlanStatus) Validate() error {
	allowed := []PlanStatus{
		PlanStatusEnabled,
		PlanStatusDisabled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid plan status").
			WithHint("Plan status must be enabled or disabled").
			WithReportableDetails(map[string]any{
				"status":         s,
				"allowed_status": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
