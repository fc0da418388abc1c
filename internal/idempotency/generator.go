package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Scope represents the scope of idempotency
type Scope string

const (
	// ScopePlanMigration keys one billing change of one subscription within a migration
	ScopePlanMigration Scope = "plan_migration"
)

// Generator generates idempotency keys
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateKey generates an idempotency key from a scope and parameters.
// Parameter order does not matter.
func (g *Generator) GenerateKey(scope Scope, params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s-%s", scope, hex.EncodeToString(hash[:8]))
}

// PlanMigrationKey is the key sent to the billing gateway for one subscription
// of a migration, so a retried batch cannot apply the same change twice
func (g *Generator) PlanMigrationKey(migrationID, subscriptionID string, targetVersion int) string {
	return g.GenerateKey(ScopePlanMigration, map[string]interface{}{
		"migration_id":    migrationID,
		"subscription_id": subscriptionID,
		"target_version":  targetVersion,
	})
}

// ValidateKey validates if an idempotency key matches expected parameters
func (g *Generator) ValidateKey(scope Scope, params map[string]interface{}, key string) bool {
	return g.GenerateKey(scope, params) == key
}
