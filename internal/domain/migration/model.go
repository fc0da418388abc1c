package migration

import (
	"time"

	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
)

// MigrationPlan moves the active subscriptions of a source plan to a pinned
// version of a target plan in ordered batches. Batch membership is captured
// when the plan is created and never recomputed.
type MigrationPlan struct {
	ID                  string                  `db:"id" json:"migration_id"`
	SourcePlan          string                  `db:"source_plan" json:"source_plan"`
	TargetPlan          string                  `db:"target_plan" json:"target_plan"`
	TargetVersionNumber int                     `db:"target_version_number" json:"target_version_number"`
	Strategy            types.MigrationStrategy `db:"strategy" json:"strategy"`
	BatchSize           int                     `db:"batch_size" json:"batch_size"`
	BatchDelay          time.Duration           `db:"batch_delay" json:"batch_delay" swaggertype:"integer"`
	OverallStatus       types.MigrationStatus   `db:"overall_status" json:"overall_status"`
	Batches             []*Batch                `db:"-" json:"batches"`
	CreatedAt           time.Time               `db:"created_at" json:"created_at"`
	CreatedBy           string                  `db:"created_by" json:"created_by"`
	UpdatedAt           time.Time               `db:"updated_at" json:"updated_at"`
}

// Batch is a fixed slice of the subscriptions of a migration plan
type Batch struct {
	ID                    string            `db:"id" json:"batch_id"`
	MigrationID           string            `db:"migration_id" json:"-"`
	Sequence              int               `db:"sequence" json:"sequence"`
	SubscriptionIDs       []string          `db:"-" json:"subscription_ids"`
	Status                types.BatchStatus `db:"status" json:"status"`
	FailureReason         string            `db:"failure_reason" json:"failure_reason,omitempty"`
	FailedSubscriptionIDs []string          `db:"-" json:"failed_subscription_ids,omitempty"`
	Attempts              int               `db:"attempts" json:"attempts"`
	UpdatedAt             time.Time         `db:"updated_at" json:"updated_at"`
}

// TotalSubscriptions counts the subscriptions captured across all batches
func (p *MigrationPlan) TotalSubscriptions() int {
	return lo.SumBy(p.Batches, func(b *Batch) int { return len(b.SubscriptionIDs) })
}

// IsGrandfathered reports whether batches are informational only
func (p *MigrationPlan) IsGrandfathered() bool {
	return p.Strategy == types.MigrationStrategyGrandfather
}

// IsOpen reports whether the plan can still make progress
func (p *MigrationPlan) IsOpen() bool {
	return p.OverallStatus == types.MigrationStatusCreated ||
		p.OverallStatus == types.MigrationStatusExecuting ||
		p.OverallStatus == types.MigrationStatusPartiallyFailed
}

// CountBatches returns how many batches are in the given status
func (p *MigrationPlan) CountBatches(status types.BatchStatus) int {
	return lo.CountBy(p.Batches, func(b *Batch) bool { return b.Status == status })
}

// Clone returns a deep copy of the plan and its batches
func (p *MigrationPlan) Clone() *MigrationPlan {
	if p == nil {
		return nil
	}
	c := *p
	c.Batches = lo.Map(p.Batches, func(b *Batch, _ int) *Batch { return b.Clone() })
	return &c
}

func (b *Batch) Clone() *Batch {
	if b == nil {
		return nil
	}
	c := *b
	c.SubscriptionIDs = append([]string(nil), b.SubscriptionIDs...)
	c.FailedSubscriptionIDs = append([]string(nil), b.FailedSubscriptionIDs...)
	return &c
}

// BatchResult is the outcome of one batch within one execution
type BatchResult struct {
	BatchID              string            `json:"batch_id"`
	Sequence             int               `json:"sequence"`
	Status               types.BatchStatus `json:"status"`
	DryRun               bool              `json:"dry_run"`
	FailureReason        string            `json:"failure_reason,omitempty"`
	SubscriptionsApplied int               `json:"subscriptions_applied"`
	SubscriptionsSkipped int               `json:"subscriptions_skipped"`
}

// ExecutionRecord is the audit record of one executeMigrationPlan call
type ExecutionRecord struct {
	ID               string                `db:"id" json:"execution_id"`
	MigrationID      string                `db:"migration_id" json:"migration_id"`
	DryRun           bool                  `db:"dry_run" json:"dry_run"`
	Status           types.ExecutionStatus `db:"status" json:"status"`
	BatchesProcessed int                   `db:"batches_processed" json:"batches_processed"`
	BatchesFailed    int                   `db:"batches_failed" json:"batches_failed"`
	BatchesSkipped   int                   `db:"batches_skipped" json:"batches_skipped"`
	BatchResults     []BatchResult         `db:"-" json:"batch_results"`
	StartedAt        time.Time             `db:"started_at" json:"started_at"`
	CompletedAt      *time.Time            `db:"completed_at" json:"completed_at,omitempty"`
	ExecutedBy       string                `db:"executed_by" json:"executed_by"`
}
