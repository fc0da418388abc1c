package postgres

import (
	"context"
	"time"

	"github.com/flexprice/planshift/internal/domain/planversion"
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/postgres"
	"github.com/flexprice/planshift/internal/types"
	"github.com/shopspring/decimal"
)

type planVersionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewPlanVersionRepository(db *postgres.DB, logger *logger.Logger) planversion.Repository {
	return &planVersionRepository{db: db, logger: logger}
}

type planVersionRow struct {
	ID            string             `db:"id"`
	PlanName      string             `db:"plan_name"`
	VersionNumber int                `db:"version_number"`
	MonthlyPrice  decimal.Decimal    `db:"monthly_price"`
	YearlyPrice   decimal.Decimal    `db:"yearly_price"`
	Currency      string             `db:"currency"`
	Features      []byte             `db:"features"`
	Limits        planversion.Limits `db:"limits"`
	Status        string             `db:"status"`
	ChangeSummary string             `db:"change_summary"`
	CreatedAt     time.Time          `db:"created_at"`
	CreatedBy     string             `db:"created_by"`
}

func toPlanVersionRow(v *planversion.PlanVersion) (*planVersionRow, error) {
	features, err := stringList(v.Features).value()
	if err != nil {
		return nil, err
	}
	return &planVersionRow{
		ID:            v.ID,
		PlanName:      v.PlanName,
		VersionNumber: v.VersionNumber,
		MonthlyPrice:  v.Pricing.MonthlyPrice,
		YearlyPrice:   v.Pricing.YearlyPrice,
		Currency:      v.Pricing.Currency,
		Features:      features,
		Limits:        v.Limits,
		Status:        string(v.Status),
		ChangeSummary: v.ChangeSummary,
		CreatedAt:     v.CreatedAt,
		CreatedBy:     v.CreatedBy,
	}, nil
}

func (r *planVersionRow) toDomain() (*planversion.PlanVersion, error) {
	features, err := parseStringList(r.Features)
	if err != nil {
		return nil, err
	}
	limits := r.Limits
	if limits == nil {
		limits = planversion.Limits{}
	}
	return &planversion.PlanVersion{
		ID:            r.ID,
		PlanName:      r.PlanName,
		VersionNumber: r.VersionNumber,
		Pricing: planversion.Pricing{
			MonthlyPrice: r.MonthlyPrice,
			YearlyPrice:  r.YearlyPrice,
			Currency:     r.Currency,
		},
		Features:      features,
		Limits:        limits,
		Status:        types.PlanStatus(r.Status),
		ChangeSummary: r.ChangeSummary,
		CreatedAt:     r.CreatedAt,
		CreatedBy:     r.CreatedBy,
	}, nil
}

const insertPlanVersionQuery = `
	INSERT INTO plan_versions (
		id,
		plan_name,
		version_number,
		monthly_price,
		yearly_price,
		currency,
		features,
		limits,
		status,
		change_summary,
		created_at,
		created_by
	)
	VALUES (
		:id,
		:plan_name,
		:version_number,
		:monthly_price,
		:yearly_price,
		:currency,
		:features,
		:limits,
		:status,
		:change_summary,
		:created_at,
		:created_by
	)
`

func (r *planVersionRepository) insertVersion(ctx context.Context, v *planversion.PlanVersion) error {
	row, err := toPlanVersionRow(v)
	if err != nil {
		return dbError(err, "encode_plan_version")
	}
	_, err = r.db.NamedExecContext(ctx, insertPlanVersionQuery, row)
	return err
}

func (r *planVersionRepository) CreatePlan(ctx context.Context, plan *planversion.Plan, first *planversion.PlanVersion) error {
	r.logger.Debugw("creating plan", "plan_name", plan.Name)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		_, err := r.db.NamedExecContext(ctx, `
			INSERT INTO plans (name, current_version_number, enabled, created_at, updated_at)
			VALUES (:name, :current_version_number, :enabled, :created_at, :updated_at)
		`, plan)
		if err != nil {
			if isUniqueViolation(err) {
				return ierr.WithError(err).
					WithHintf("Plan %q already exists", plan.Name).
					WithReportableDetails(map[string]any{
						"plan_name": plan.Name,
					}).
					Mark(ierr.ErrAlreadyExists)
			}
			return dbError(err, "create_plan")
		}

		if err := r.insertVersion(ctx, first); err != nil {
			return dbError(err, "create_plan_version")
		}
		return nil
	})
}

func (r *planVersionRepository) GetPlan(ctx context.Context, name string) (*planversion.Plan, error) {
	var p planversion.Plan
	err := r.db.GetContext(ctx, &p, `
		SELECT name, current_version_number, enabled, created_at, updated_at
		FROM plans
		WHERE name = $1
	`, name)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewPlanNotFound(name)
		}
		return nil, dbError(err, "get_plan")
	}
	return &p, nil
}

func (r *planVersionRepository) ListPlans(ctx context.Context) ([]*planversion.Plan, error) {
	var plans []*planversion.Plan
	err := r.db.SelectContext(ctx, &plans, `
		SELECT name, current_version_number, enabled, created_at, updated_at
		FROM plans
		ORDER BY name
	`)
	if err != nil {
		return nil, dbError(err, "list_plans")
	}
	return plans, nil
}

// CreateVersion holds the plan's advisory lock for the whole write so two
// writers on one plan queue up; the guarded pointer update catches writers
// that read a stale current version before taking the lock.
func (r *planVersionRepository) CreateVersion(ctx context.Context, v *planversion.PlanVersion, expectedCurrent int) error {
	r.logger.Debugw("creating plan version",
		"plan_name", v.PlanName,
		"version_number", v.VersionNumber,
		"expected_current", expectedCurrent,
	)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if err := r.db.LockKey(ctx, postgres.PlanLockKey(v.PlanName)); err != nil {
			return dbError(err, "lock_plan")
		}

		// numbers are allocated under the lock, above any version a rollback
		// moved the pointer away from
		maxVersion, err := r.MaxVersionNumber(ctx, v.PlanName)
		if err != nil {
			return err
		}
		v.VersionNumber = maxVersion + 1

		if err := r.movePointer(ctx, v.PlanName, expectedCurrent, v.VersionNumber, v.IsEnabled()); err != nil {
			return err
		}

		if err := r.insertVersion(ctx, v); err != nil {
			if isUniqueViolation(err) {
				return versionConflict(v.PlanName, expectedCurrent, err)
			}
			return dbError(err, "create_plan_version")
		}
		return nil
	})
}

func (r *planVersionRepository) MaxVersionNumber(ctx context.Context, planName string) (int, error) {
	var maxVersion int
	err := r.db.GetContext(ctx, &maxVersion, `
		SELECT COALESCE(MAX(version_number), 0)
		FROM plan_versions
		WHERE plan_name = $1
	`, planName)
	if err != nil {
		return 0, dbError(err, "max_plan_version")
	}
	if maxVersion == 0 {
		if _, err := r.GetPlan(ctx, planName); err != nil {
			return 0, err
		}
	}
	return maxVersion, nil
}

func (r *planVersionRepository) SetCurrentVersion(ctx context.Context, planName string, expectedCurrent, versionNumber int, enabled bool) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if err := r.db.LockKey(ctx, postgres.PlanLockKey(planName)); err != nil {
			return dbError(err, "lock_plan")
		}
		return r.movePointer(ctx, planName, expectedCurrent, versionNumber, enabled)
	})
}

func (r *planVersionRepository) movePointer(ctx context.Context, planName string, expectedCurrent, versionNumber int, enabled bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE plans
		SET current_version_number = $1,
			enabled = $2,
			updated_at = $3
		WHERE name = $4
		AND current_version_number = $5
	`, versionNumber, enabled, time.Now().UTC(), planName, expectedCurrent)
	if err != nil {
		return dbError(err, "update_plan_pointer")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err, "update_plan_pointer")
	}
	if n == 1 {
		return nil
	}

	// tell a missing plan apart from a lost race
	if _, err := r.GetPlan(ctx, planName); err != nil {
		return err
	}
	return versionConflict(planName, expectedCurrent, nil)
}

func versionConflict(planName string, expected int, cause error) error {
	b := ierr.NewError("plan version conflict")
	if cause != nil {
		b = ierr.WithError(cause)
	}
	return b.
		WithHintf("Plan %q was changed concurrently, reload and retry", planName).
		WithReportableDetails(map[string]any{
			"plan_name":        planName,
			"expected_version": expected,
		}).
		Mark(ierr.ErrVersionConflict)
}

func (r *planVersionRepository) GetVersion(ctx context.Context, planName string, versionNumber int) (*planversion.PlanVersion, error) {
	var row planVersionRow
	err := r.db.GetContext(ctx, &row, `
		SELECT * FROM plan_versions
		WHERE plan_name = $1
		AND version_number = $2
	`, planName, versionNumber)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.NewError("plan version not found").
				WithHintf("Version %d of plan %q does not exist", versionNumber, planName).
				WithReportableDetails(map[string]any{
					"plan_name":      planName,
					"version_number": versionNumber,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, dbError(err, "get_plan_version")
	}

	v, err := row.toDomain()
	if err != nil {
		return nil, dbError(err, "decode_plan_version")
	}
	return v, nil
}

func (r *planVersionRepository) ListVersions(ctx context.Context, planName string) ([]*planversion.PlanVersion, error) {
	var rows []*planVersionRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM plan_versions
		WHERE plan_name = $1
		ORDER BY version_number ASC
	`, planName)
	if err != nil {
		return nil, dbError(err, "list_plan_versions")
	}

	versions := make([]*planversion.PlanVersion, 0, len(rows))
	for _, row := range rows {
		v, err := row.toDomain()
		if err != nil {
			return nil, dbError(err, "decode_plan_version")
		}
		versions = append(versions, v)
	}
	return versions, nil
}
