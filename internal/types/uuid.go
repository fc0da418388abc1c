package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex mig_01HZX4M3W8Q2V7P0A9S6N5K1TD
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_PLAN_VERSION        = "pv"
	UUID_PREFIX_IMPACT_ANALYSIS     = "ana"
	UUID_PREFIX_SIMULATION          = "sim"
	UUID_PREFIX_MIGRATION           = "mig"
	UUID_PREFIX_MIGRATION_BATCH     = "mbat"
	UUID_PREFIX_MIGRATION_EXECUTION = "mexe"
	UUID_PREFIX_ROLLBACK            = "rbk"
	UUID_PREFIX_CHANGE_HISTORY      = "chg"
	UUID_PREFIX_NOTIFICATION        = "ntf"
)
