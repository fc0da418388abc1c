package changehistory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"time"

	"github.com/flexprice/planshift/internal/types"
)

// Entry is one append-only record of the change history log. Each entry's
// hash covers the previous entry's hash, so editing or dropping an entry
// breaks every hash after it.
type Entry struct {
	ID                string                 `db:"id" json:"entry_id"`
	Sequence          int64                  `db:"sequence" json:"sequence"`
	EntryType         types.HistoryEntryType `db:"entry_type" json:"entry_type"`
	ReferenceID       string                 `db:"reference_id" json:"reference_id"`
	PlanName          string                 `db:"plan_name" json:"plan_name"`
	PlanVersionNumber int                    `db:"plan_version_number" json:"plan_version_number"`
	RiskLevel         types.RiskLevel        `db:"risk_level" json:"risk_level,omitempty"`
	Summary           string                 `db:"summary" json:"summary"`
	// Details is the JSON snapshot of the referenced record
	Details      json.RawMessage `db:"details" json:"details" swaggertype:"object"`
	Actor        string          `db:"actor" json:"actor"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	PreviousHash string          `db:"previous_hash" json:"previous_hash"`
	Hash         string          `db:"hash" json:"hash"`
}

// ComputeHash returns the chain hash of the entry. Fields are length
// prefixed so values containing the separator cannot collide.
func (e *Entry) ComputeHash() string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	write(e.PreviousHash)
	write(strconv.FormatInt(e.Sequence, 10))
	write(e.ID)
	write(string(e.EntryType))
	write(e.ReferenceID)
	write(e.PlanName)
	write(strconv.Itoa(e.PlanVersionNumber))
	write(string(e.RiskLevel))
	write(e.Summary)
	write(string(e.Details))
	write(e.Actor)
	write(e.CreatedAt.UTC().Format(time.RFC3339Nano))
	return hex.EncodeToString(h.Sum(nil))
}

// ChainVerification is the result of recomputing the hash chain
type ChainVerification struct {
	Valid          bool   `json:"valid"`
	EntriesChecked int    `json:"entries_checked"`
	BrokenSequence *int64 `json:"broken_sequence,omitempty"`
	Reason         string `json:"reason,omitempty"`
}
