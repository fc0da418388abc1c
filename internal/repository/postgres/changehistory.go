package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flexprice/planshift/internal/domain/changehistory"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/postgres"
	"github.com/flexprice/planshift/internal/types"
	"github.com/samber/lo"
)

type changeHistoryRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewChangeHistoryRepository(db *postgres.DB, logger *logger.Logger) changehistory.Repository {
	return &changeHistoryRepository{db: db, logger: logger}
}

type historyRow struct {
	ID                string    `db:"id"`
	Sequence          int64     `db:"sequence"`
	EntryType         string    `db:"entry_type"`
	ReferenceID       string    `db:"reference_id"`
	PlanName          string    `db:"plan_name"`
	PlanVersionNumber int       `db:"plan_version_number"`
	RiskLevel         string    `db:"risk_level"`
	Summary           string    `db:"summary"`
	Details           string    `db:"details"`
	Actor             string    `db:"actor"`
	CreatedAt         time.Time `db:"created_at"`
	PreviousHash      string    `db:"previous_hash"`
	Hash              string    `db:"hash"`
}

func toHistoryRow(e *changehistory.Entry) *historyRow {
	return &historyRow{
		ID:                e.ID,
		Sequence:          e.Sequence,
		EntryType:         string(e.EntryType),
		ReferenceID:       e.ReferenceID,
		PlanName:          e.PlanName,
		PlanVersionNumber: e.PlanVersionNumber,
		RiskLevel:         string(e.RiskLevel),
		Summary:           e.Summary,
		Details:           string(e.Details),
		Actor:             e.Actor,
		CreatedAt:         e.CreatedAt,
		PreviousHash:      e.PreviousHash,
		Hash:              e.Hash,
	}
}

func (r *historyRow) toDomain() *changehistory.Entry {
	return &changehistory.Entry{
		ID:                r.ID,
		Sequence:          r.Sequence,
		EntryType:         types.HistoryEntryType(r.EntryType),
		ReferenceID:       r.ReferenceID,
		PlanName:          r.PlanName,
		PlanVersionNumber: r.PlanVersionNumber,
		RiskLevel:         types.RiskLevel(r.RiskLevel),
		Summary:           r.Summary,
		Details:           []byte(r.Details),
		Actor:             r.Actor,
		CreatedAt:         r.CreatedAt.UTC(),
		PreviousHash:      r.PreviousHash,
		Hash:              r.Hash,
	}
}

// Append links the entry to the head of the chain under an advisory lock so
// concurrent appends cannot fork it
func (r *changeHistoryRepository) Append(ctx context.Context, entry *changehistory.Entry) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if err := r.db.LockKey(ctx, postgres.HistoryLockKey); err != nil {
			return dbError(err, "lock_change_history")
		}

		var head []historyRow
		err := r.db.SelectContext(ctx, &head, `
			SELECT sequence, hash FROM change_history
			ORDER BY sequence DESC
			LIMIT 1
		`)
		if err != nil {
			return dbError(err, "read_change_history_head")
		}

		entry.Sequence = 1
		entry.PreviousHash = ""
		if len(head) == 1 {
			entry.Sequence = head[0].Sequence + 1
			entry.PreviousHash = head[0].Hash
		}
		// timestamptz keeps microseconds, hash what will be read back
		entry.CreatedAt = entry.CreatedAt.UTC().Truncate(time.Microsecond)
		entry.Hash = entry.ComputeHash()

		_, err = r.db.NamedExecContext(ctx, `
			INSERT INTO change_history (
				id,
				sequence,
				entry_type,
				reference_id,
				plan_name,
				plan_version_number,
				risk_level,
				summary,
				details,
				actor,
				created_at,
				previous_hash,
				hash
			)
			VALUES (
				:id,
				:sequence,
				:entry_type,
				:reference_id,
				:plan_name,
				:plan_version_number,
				:risk_level,
				:summary,
				:details,
				:actor,
				:created_at,
				:previous_hash,
				:hash
			)
		`, toHistoryRow(entry))
		if err != nil {
			return dbError(err, "append_change_history")
		}

		r.logger.Debugw("appended change history entry",
			"entry_id", entry.ID,
			"sequence", entry.Sequence,
			"entry_type", entry.EntryType,
			"plan_name", entry.PlanName,
		)
		return nil
	})
}

func historyFilterWhere(filter *types.ChangeHistoryFilter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}
	var conds []string
	var args []interface{}
	if filter.PlanName != "" {
		args = append(args, filter.PlanName)
		conds = append(conds, fmt.Sprintf("plan_name = $%d", len(args)))
	}
	if len(filter.EntryType) > 0 {
		placeholders := lo.Map(filter.EntryType, func(t types.HistoryEntryType, _ int) string {
			args = append(args, string(t))
			return fmt.Sprintf("$%d", len(args))
		})
		conds = append(conds, "entry_type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.StartTime != nil {
		args = append(args, *filter.StartTime)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.EndTime != nil {
		args = append(args, *filter.EndTime)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *changeHistoryRepository) List(ctx context.Context, filter *types.ChangeHistoryFilter) ([]*changehistory.Entry, error) {
	where, args := historyFilterWhere(filter)
	query := `SELECT * FROM change_history` + where

	if filter.GetOrder() == types.OrderAsc {
		query += " ORDER BY sequence ASC"
	} else {
		query += " ORDER BY sequence DESC"
	}
	if !filter.IsUnlimited() {
		args = append(args, filter.GetLimit(), filter.GetOffset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	var rows []*historyRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, dbError(err, "list_change_history")
	}
	return lo.Map(rows, func(row *historyRow, _ int) *changehistory.Entry { return row.toDomain() }), nil
}

func (r *changeHistoryRepository) Count(ctx context.Context, filter *types.ChangeHistoryFilter) (int, error) {
	where, args := historyFilterWhere(filter)
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM change_history`+where, args...); err != nil {
		return 0, dbError(err, "count_change_history")
	}
	return count, nil
}

func (r *changeHistoryRepository) ListAll(ctx context.Context) ([]*changehistory.Entry, error) {
	var rows []*historyRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT * FROM change_history ORDER BY sequence ASC`); err != nil {
		return nil, dbError(err, "list_change_history")
	}
	return lo.Map(rows, func(row *historyRow, _ int) *changehistory.Entry { return row.toDomain() }), nil
}
