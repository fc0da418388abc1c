package postgres

import (
	"context"
	"fmt"
)

// LockKey takes a transaction scoped advisory lock on the key, waiting for
// other holders. It is released on commit or rollback and must be called
// inside WithTx.
func (db *DB) LockKey(ctx context.Context, key string) error {
	tx, ok := GetTx(ctx)
	if !ok {
		return fmt.Errorf("LockKey must be called inside a transaction")
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("failed to acquire advisory lock %q: %w", key, err)
	}
	return nil
}

// PlanLockKey serializes version writes of one plan
func PlanLockKey(planName string) string {
	return "plan_version:" + planName
}

// HistoryLockKey serializes appends to the change history chain
const HistoryLockKey = "change_history:append"
