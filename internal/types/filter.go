package types

import (
	"time"

	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/samber/lo"
)

const (
	FILTER_DEFAULT_LIMIT = 50
	FILTER_MAX_LIMIT     = 1000

	OrderDesc = "desc"
	OrderAsc  = "asc"
)

// BaseFilter defines common filtering capabilities
type BaseFilter interface {
	GetLimit() int
	GetOffset() int
	GetOrder() string
	Validate() error
	IsUnlimited() bool
}

// QueryFilter represents a generic query filter with optional fields
type QueryFilter struct {
	Limit  *int    `json:"limit,omitempty" form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset *int    `json:"offset,omitempty" form:"offset" validate:"omitempty,min=0"`
	Order  *string `json:"order,omitempty" form:"order" validate:"omitempty,oneof=asc desc"`
}

// NewDefaultQueryFilter defines default values for query filters
func NewDefaultQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  lo.ToPtr(FILTER_DEFAULT_LIMIT),
		Offset: lo.ToPtr(0),
		Order:  lo.ToPtr(OrderDesc),
	}
}

// NewNoLimitQueryFilter returns a filter with no pagination limits
func NewNoLimitQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  nil,
		Offset: lo.ToPtr(0),
		Order:  lo.ToPtr(OrderAsc),
	}
}

// IsUnlimited returns true if this is an unlimited query
func (f QueryFilter) IsUnlimited() bool {
	return f.Limit == nil
}

// GetLimit returns the limit value, 0 for unlimited queries
func (f QueryFilter) GetLimit() int {
	if f.Limit == nil {
		return 0
	}
	return *f.Limit
}

// GetOffset returns the offset value or default if not set
func (f QueryFilter) GetOffset() int {
	if f.Offset == nil {
		return 0
	}
	return *f.Offset
}

// GetOrder returns the order value or default if not set
func (f QueryFilter) GetOrder() string {
	if f.Order == nil {
		return OrderDesc
	}
	return *f.Order
}

func (f QueryFilter) Validate() error {
	if f.Limit != nil && (*f.Limit < 1 || *f.Limit > FILTER_MAX_LIMIT) {
		return ierr.NewError("invalid limit").
			WithHintf("Limit must be between 1 and %d", FILTER_MAX_LIMIT).
			Mark(ierr.ErrValidation)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return ierr.NewError("invalid offset").
			WithHint("Offset cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if f.Order != nil && *f.Order != OrderAsc && *f.Order != OrderDesc {
		return ierr.NewError("invalid order").
			WithHint("Order must be asc or desc").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ChangeHistoryFilter filters the change history log
type ChangeHistoryFilter struct {
	*QueryFilter
	PlanName  string             `json:"plan_name,omitempty" form:"plan_name"`
	EntryType []HistoryEntryType `json:"entry_type,omitempty" form:"entry_type"`
	StartTime *time.Time         `json:"start_time,omitempty" form:"start_time" time_format:"2006-01-02T15:04:05Z07:00"`
	EndTime   *time.Time         `json:"end_time,omitempty" form:"end_time" time_format:"2006-01-02T15:04:05Z07:00"`
}

// NewChangeHistoryFilter creates a filter with the default pagination
func NewChangeHistoryFilter() *ChangeHistoryFilter {
	return &ChangeHistoryFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

func (f *ChangeHistoryFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}
	for _, t := range f.EntryType {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	if f.StartTime != nil && f.EndTime != nil && f.EndTime.Before(*f.StartTime) {
		return ierr.NewError("end time must be after start time").
			WithHint("End time must be after start time").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetLimit returns the page size, honouring a nil embedded query filter
func (f *ChangeHistoryFilter) GetLimit() int {
	if f == nil || f.QueryFilter == nil {
		return FILTER_DEFAULT_LIMIT
	}
	return f.QueryFilter.GetLimit()
}

// GetOffset returns the page offset, honouring a nil embedded query filter
func (f *ChangeHistoryFilter) GetOffset() int {
	if f == nil || f.QueryFilter == nil {
		return 0
	}
	return f.QueryFilter.GetOffset()
}

// GetOrder returns the sort order, honouring a nil embedded query filter
func (f *ChangeHistoryFilter) GetOrder() string {
	if f == nil || f.QueryFilter == nil {
		return OrderDesc
	}
	return f.QueryFilter.GetOrder()
}

// IsUnlimited reports whether the filter disables pagination
func (f *ChangeHistoryFilter) IsUnlimited() bool {
	return f != nil && f.QueryFilter != nil && f.QueryFilter.IsUnlimited()
}

// MigrationPlanFilter filters migration plans
type MigrationPlanFilter struct {
	*QueryFilter
	SourcePlan string            `json:"source_plan,omitempty" form:"source_plan"`
	TargetPlan string            `json:"target_plan,omitempty" form:"target_plan"`
	Status     []MigrationStatus `json:"status,omitempty" form:"status"`
}

// NewMigrationPlanFilter creates a filter with the default pagination
func NewMigrationPlanFilter() *MigrationPlanFilter {
	return &MigrationPlanFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

func (f *MigrationPlanFilter) Validate() error {
	if f == nil || f.QueryFilter == nil {
		return nil
	}
	return f.QueryFilter.Validate()
}

// GetLimit returns the page size, honouring a nil embedded query filter
func (f *MigrationPlanFilter) GetLimit() int {
	if f == nil || f.QueryFilter == nil {
		return FILTER_DEFAULT_LIMIT
	}
	return f.QueryFilter.GetLimit()
}

// GetOffset returns the page offset, honouring a nil embedded query filter
func (f *MigrationPlanFilter) GetOffset() int {
	if f == nil || f.QueryFilter == nil {
		return 0
	}
	return f.QueryFilter.GetOffset()
}

// GetOrder returns the sort order, honouring a nil embedded query filter
func (f *MigrationPlanFilter) GetOrder() string {
	if f == nil || f.QueryFilter == nil {
		return OrderDesc
	}
	return f.QueryFilter.GetOrder()
}

// IsUnlimited reports whether the filter disables pagination
func (f *MigrationPlanFilter) IsUnlimited() bool {
	return f != nil && f.QueryFilter != nil && f.QueryFilter.IsUnlimited()
}
