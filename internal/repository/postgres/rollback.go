package postgres

import (
	"context"

	"github.com/flexprice/planshift/internal/domain/rollback"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/postgres"
)

type rollbackRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewRollbackRepository(db *postgres.DB, logger *logger.Logger) rollback.Repository {
	return &rollbackRepository{db: db, logger: logger}
}

func (r *rollbackRepository) Create(ctx context.Context, record *rollback.Record) error {
	r.logger.Debugw("creating rollback record",
		"rollback_id", record.ID,
		"plan_name", record.PlanName,
		"from_version", record.RolledBackFromVersion,
		"to_version", record.RolledBackToVersion,
	)

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO plan_rollbacks (
			id,
			plan_name,
			rolled_back_from_version,
			rolled_back_to_version,
			reason,
			rolled_back_by,
			created_at
		)
		VALUES (
			:id,
			:plan_name,
			:rolled_back_from_version,
			:rolled_back_to_version,
			:reason,
			:rolled_back_by,
			:created_at
		)
	`, record)
	if err != nil {
		return dbError(err, "create_rollback")
	}
	return nil
}

func (r *rollbackRepository) ListByPlan(ctx context.Context, planName string) ([]*rollback.Record, error) {
	var records []*rollback.Record
	err := r.db.SelectContext(ctx, &records, `
		SELECT * FROM plan_rollbacks
		WHERE plan_name = $1
		ORDER BY created_at DESC, id DESC
	`, planName)
	if err != nil {
		return nil, dbError(err, "list_rollbacks")
	}
	return records, nil
}
