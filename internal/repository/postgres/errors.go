package postgres

import (
	"database/sql"
	"errors"

	ierr "github.com/flexprice/planshift/internal/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// dbError wraps an unexpected driver error
func dbError(err error, op string) error {
	return ierr.WithError(err).
		WithHint("A database error occurred").
		WithReportableDetails(map[string]any{
			"operation": op,
		}).
		Mark(ierr.ErrDatabase)
}

// stringList is a []string stored as a jsonb array
type stringList []string

func (l stringList) value() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func parseStringList(data []byte) ([]string, error) {
	if len(data) == 0 {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
