package rollback

import "time"

// Record is the audit record of repointing a plan to an earlier version.
// Subscriptions are not touched by a rollback.
type Record struct {
	ID                    string    `db:"id" json:"rollback_id"`
	PlanName              string    `db:"plan_name" json:"plan_name"`
	RolledBackFromVersion int       `db:"rolled_back_from_version" json:"rolled_back_from_version"`
	RolledBackToVersion   int       `db:"rolled_back_to_version" json:"rolled_back_to_version"`
	Reason                string    `db:"reason" json:"reason"`
	RolledBackBy          string    `db:"rolled_back_by" json:"rolled_back_by"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}
