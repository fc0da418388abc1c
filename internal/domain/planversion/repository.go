package planversion

import (
	"context"
)

// Repository persists plans and their versions
type Repository interface {
	// CreatePlan stores the plan together with its first version.
	// Fails with ErrAlreadyExists when the plan name is taken.
	CreatePlan(ctx context.Context, plan *Plan, first *PlanVersion) error

	// GetPlan fails with a plan-not-found error for unknown names
	GetPlan(ctx context.Context, name string) (*Plan, error)

	ListPlans(ctx context.Context) ([]*Plan, error)

	// CreateVersion numbers the version one above the highest existing version
	// of the plan, inserts it and repoints the plan to it, but only if the
	// plan's current version is still expectedCurrent. Otherwise it fails with
	// ErrVersionConflict and nothing is written. version.VersionNumber is set
	// to the allocated number.
	CreateVersion(ctx context.Context, version *PlanVersion, expectedCurrent int) error

	// MaxVersionNumber is the highest version number ever created for the
	// plan. After a rollback it is above the current version.
	MaxVersionNumber(ctx context.Context, planName string) (int, error)

	// GetVersion fails with ErrNotFound when the version does not exist
	GetVersion(ctx context.Context, planName string, versionNumber int) (*PlanVersion, error)

	// ListVersions returns all versions of a plan in ascending order
	ListVersions(ctx context.Context, planName string) ([]*PlanVersion, error)

	// SetCurrentVersion repoints the plan to an existing version, guarded by the
	// same expected-current check as CreateVersion
	SetCurrentVersion(ctx context.Context, planName string, expectedCurrent, versionNumber int, enabled bool) error
}
