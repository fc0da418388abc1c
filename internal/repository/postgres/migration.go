package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/planshift/internal/domain/migration"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/postgres"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
)

type migrationRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewMigrationRepository(db *postgres.DB, logger *logger.Logger) migration.Repository {
	return &migrationRepository{db: db, logger: logger}
}

type batchRow struct {
	ID                    string    `db:"id"`
	MigrationID           string    `db:"migration_id"`
	Sequence              int       `db:"sequence"`
	SubscriptionIDs       []byte    `db:"subscription_ids"`
	Status                string    `db:"status"`
	FailureReason         string    `db:"failure_reason"`
	FailedSubscriptionIDs []byte    `db:"failed_subscription_ids"`
	Attempts              int       `db:"attempts"`
	UpdatedAt             time.Time `db:"updated_at"`
}

func toBatchRow(b *migration.Batch) (*batchRow, error) {
	subs, err := stringList(b.SubscriptionIDs).value()
	if err != nil {
		return nil, err
	}
	failed, err := stringList(b.FailedSubscriptionIDs).value()
	if err != nil {
		return nil, err
	}
	return &batchRow{
		ID:                    b.ID,
		MigrationID:           b.MigrationID,
		Sequence:              b.Sequence,
		SubscriptionIDs:       subs,
		Status:                string(b.Status),
		FailureReason:         b.FailureReason,
		FailedSubscriptionIDs: failed,
		Attempts:              b.Attempts,
		UpdatedAt:             b.UpdatedAt,
	}, nil
}

func (r *batchRow) toDomain() (*migration.Batch, error) {
	subs, err := parseStringList(r.SubscriptionIDs)
	if err != nil {
		return nil, err
	}
	failed, err := parseStringList(r.FailedSubscriptionIDs)
	if err != nil {
		return nil, err
	}
	return &migration.Batch{
		ID:                    r.ID,
		MigrationID:           r.MigrationID,
		Sequence:              r.Sequence,
		SubscriptionIDs:       subs,
		Status:                types.BatchStatus(r.Status),
		FailureReason:         r.FailureReason,
		FailedSubscriptionIDs: failed,
		Attempts:              r.Attempts,
		UpdatedAt:             r.UpdatedAt,
	}, nil
}

func (r *migrationRepository) Create(ctx context.Context, plan *migration.MigrationPlan) error {
	r.logger.Debugw("creating migration plan",
		"migration_id", plan.ID,
		"source_plan", plan.SourcePlan,
		"target_plan", plan.TargetPlan,
		"batches", len(plan.Batches),
	)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		_, err := r.db.NamedExecContext(ctx, `
			INSERT INTO migration_plans (
				id,
				source_plan,
				target_plan,
				target_version_number,
				strategy,
				batch_size,
				batch_delay,
				overall_status,
				created_at,
				created_by,
				updated_at
			)
			VALUES (
				:id,
				:source_plan,
				:target_plan,
				:target_version_number,
				:strategy,
				:batch_size,
				:batch_delay,
				:overall_status,
				:created_at,
				:created_by,
				:updated_at
			)
		`, plan)
		if err != nil {
			return dbError(err, "create_migration_plan")
		}

		for _, b := range plan.Batches {
			row, err := toBatchRow(b)
			if err != nil {
				return dbError(err, "encode_migration_batch")
			}
			_, err = r.db.NamedExecContext(ctx, `
				INSERT INTO migration_batches (
					id,
					migration_id,
					sequence,
					subscription_ids,
					status,
					failure_reason,
					failed_subscription_ids,
					attempts,
					updated_at
				)
				VALUES (
					:id,
					:migration_id,
					:sequence,
					:subscription_ids,
					:status,
					:failure_reason,
					:failed_subscription_ids,
					:attempts,
					:updated_at
				)
			`, row)
			if err != nil {
				return dbError(err, "create_migration_batch")
			}
		}
		return nil
	})
}

const migrationPlanColumns = `id, source_plan, target_plan, target_version_number, strategy, batch_size,
	batch_delay, overall_status, created_at, created_by, updated_at`

func (r *migrationRepository) Get(ctx context.Context, id string) (*migration.MigrationPlan, error) {
	var plan migration.MigrationPlan
	err := r.db.GetContext(ctx, &plan, `SELECT `+migrationPlanColumns+` FROM migration_plans WHERE id = $1`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("migration plan not found").
				WithHintf("Migration plan %s does not exist", id).
				WithReportableDetails(map[string]any{
					"migration_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, dbError(err, "get_migration_plan")
	}

	var rows []*batchRow
	err = r.db.SelectContext(ctx, &rows, `
		SELECT * FROM migration_batches
		WHERE migration_id = $1
		ORDER BY sequence ASC
	`, id)
	if err != nil {
		return nil, dbError(err, "list_migration_batches")
	}

	plan.Batches = make([]*migration.Batch, 0, len(rows))
	for _, row := range rows {
		b, err := row.toDomain()
		if err != nil {
			return nil, dbError(err, "decode_migration_batch")
		}
		plan.Batches = append(plan.Batches, b)
	}
	return &plan, nil
}

func migrationFilterWhere(filter *types.MigrationPlanFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if filter == nil {
		return "", nil
	}
	if filter.SourcePlan != "" {
		args = append(args, filter.SourcePlan)
		conds = append(conds, fmt.Sprintf("source_plan = $%d", len(args)))
	}
	if filter.TargetPlan != "" {
		args = append(args, filter.TargetPlan)
		conds = append(conds, fmt.Sprintf("target_plan = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := lo.Map(filter.Status, func(s types.MigrationStatus, _ int) string {
			args = append(args, string(s))
			return fmt.Sprintf("$%d", len(args))
		})
		conds = append(conds, "overall_status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns plans without their batches
func (r *migrationRepository) List(ctx context.Context, filter *types.MigrationPlanFilter) ([]*migration.MigrationPlan, error) {
	where, args := migrationFilterWhere(filter)
	query := `SELECT ` + migrationPlanColumns + ` FROM migration_plans` + where

	order := "DESC"
	if filter.GetOrder() == types.OrderAsc {
		order = "ASC"
	}
	query += " ORDER BY created_at " + order + ", id " + order
	if !filter.IsUnlimited() {
		args = append(args, filter.GetLimit(), filter.GetOffset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var plans []*migration.MigrationPlan
	if err := r.db.SelectContext(ctx, &plans, query, args...); err != nil {
		return nil, dbError(err, "list_migration_plans")
	}
	return plans, nil
}

func (r *migrationRepository) Count(ctx context.Context, filter *types.MigrationPlanFilter) (int, error) {
	where, args := migrationFilterWhere(filter)
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM migration_plans`+where, args...); err != nil {
		return 0, dbError(err, "count_migration_plans")
	}
	return count, nil
}

func (r *migrationRepository) UpdateStatus(ctx context.Context, id string, status types.MigrationStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE migration_plans
		SET overall_status = $1,
			updated_at = $2
		WHERE id = $3
	`, string(status), time.Now().UTC(), id)
	if err != nil {
		return dbError(err, "update_migration_status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ierr.NewError("migration plan not found").
			WithHintf("Migration plan %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *migrationRepository) UpdateBatch(ctx context.Context, batch *migration.Batch) error {
	row, err := toBatchRow(batch)
	if err != nil {
		return dbError(err, "encode_migration_batch")
	}
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE migration_batches
		SET status = :status,
			failure_reason = :failure_reason,
			failed_subscription_ids = :failed_subscription_ids,
			attempts = :attempts,
			updated_at = :updated_at
		WHERE id = :id
	`, row)
	if err != nil {
		return dbError(err, "update_migration_batch")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ierr.NewError("migration batch not found").
			WithHintf("Migration batch %s does not exist", batch.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

type executionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewExecutionRepository(db *postgres.DB, logger *logger.Logger) migration.ExecutionRepository {
	return &executionRepository{db: db, logger: logger}
}

type executionRow struct {
	migration.ExecutionRecord
	BatchResultsJSON []byte `db:"batch_results"`
}

func toExecutionRow(rec *migration.ExecutionRecord) (*executionRow, error) {
	results := rec.BatchResults
	if results == nil {
		results = []migration.BatchResult{}
	}
	data, err := json.Marshal(results)
	if err != nil {
		return nil, err
	}
	return &executionRow{ExecutionRecord: *rec, BatchResultsJSON: data}, nil
}

func (r *executionRow) toDomain() (*migration.ExecutionRecord, error) {
	rec := r.ExecutionRecord
	rec.BatchResults = []migration.BatchResult{}
	if len(r.BatchResultsJSON) > 0 {
		if err := json.Unmarshal(r.BatchResultsJSON, &rec.BatchResults); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func (r *executionRepository) Create(ctx context.Context, rec *migration.ExecutionRecord) error {
	row, err := toExecutionRow(rec)
	if err != nil {
		return dbError(err, "encode_execution")
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO migration_executions (
			id,
			migration_id,
			dry_run,
			status,
			batches_processed,
			batches_failed,
			batches_skipped,
			batch_results,
			started_at,
			completed_at,
			executed_by
		)
		VALUES (
			:id,
			:migration_id,
			:dry_run,
			:status,
			:batches_processed,
			:batches_failed,
			:batches_skipped,
			:batch_results,
			:started_at,
			:completed_at,
			:executed_by
		)
	`, row)
	if err != nil {
		return dbError(err, "create_execution")
	}
	return nil
}

func (r *executionRepository) Update(ctx context.Context, rec *migration.ExecutionRecord) error {
	row, err := toExecutionRow(rec)
	if err != nil {
		return dbError(err, "encode_execution")
	}
	_, err = r.db.NamedExecContext(ctx, `
		UPDATE migration_executions
		SET status = :status,
			batches_processed = :batches_processed,
			batches_failed = :batches_failed,
			batches_skipped = :batches_skipped,
			batch_results = :batch_results,
			completed_at = :completed_at
		WHERE id = :id
	`, row)
	if err != nil {
		return dbError(err, "update_execution")
	}
	return nil
}

func (r *executionRepository) Get(ctx context.Context, id string) (*migration.ExecutionRecord, error) {
	var row executionRow
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM migration_executions WHERE id = $1`, id); err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("migration execution not found").
				WithHintf("Migration execution %s does not exist", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, dbError(err, "get_execution")
	}
	rec, err := row.toDomain()
	if err != nil {
		return nil, dbError(err, "decode_execution")
	}
	return rec, nil
}

func (r *executionRepository) ListByMigration(ctx context.Context, migrationID string) ([]*migration.ExecutionRecord, error) {
	var rows []*executionRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM migration_executions
		WHERE migration_id = $1
		ORDER BY started_at ASC, id ASC
	`, migrationID)
	if err != nil {
		return nil, dbError(err, "list_executions")
	}

	out := make([]*migration.ExecutionRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toDomain()
		if err != nil {
			return nil, dbError(err, "decode_execution")
		}
		out = append(out, rec)
	}
	return out, nil
}
