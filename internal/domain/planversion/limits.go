package planversion

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strconv"

	ierr "github.com/flexprice/planshift/internal/errors"
	jsoniter "github.com/json-iterator/go"
)

const unlimitedLiteral = "unlimited"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LimitValue is either a finite non-negative quota or unlimited.
// It is encoded in JSON as a number or the string "unlimited".
type LimitValue struct {
	Value     int64
	Unlimited bool
}

// Unlimited returns a limit without a ceiling
func Unlimited() LimitValue {
	return LimitValue{Unlimited: true}
}

// Limit returns a finite limit
func Limit(n int64) LimitValue {
	return LimitValue{Value: n}
}

// IsExceededBy reports whether the usage is above a finite limit
func (l LimitValue) IsExceededBy(usage int64) bool {
	return !l.Unlimited && usage > l.Value
}

func (l LimitValue) String() string {
	if l.Unlimited {
		return unlimitedLiteral
	}
	return strconv.FormatInt(l.Value, 10)
}

func (l LimitValue) MarshalJSON() ([]byte, error) {
	if l.Unlimited {
		return []byte(`"` + unlimitedLiteral + `"`), nil
	}
	return []byte(strconv.FormatInt(l.Value, 10)), nil
}

func (l *LimitValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte(`"`+unlimitedLiteral+`"`)) {
		*l = Unlimited()
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("limit must be an integer or %q, got %s", unlimitedLiteral, string(data))
	}
	*l = Limit(n)
	return nil
}

// Limits maps a limit name to its value
type Limits map[string]LimitValue

func (l Limits) Clone() Limits {
	if l == nil {
		return Limits{}
	}
	out := make(Limits, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

func (l Limits) Validate() error {
	for name, v := range l {
		if name == "" {
			return ierr.NewError("limit name is required").
				WithHint("Limit names cannot be empty").
				Mark(ierr.ErrValidation)
		}
		if !v.Unlimited && v.Value < 0 {
			return ierr.NewError("limit cannot be negative").
				WithHintf("Limit %q must be zero, positive or unlimited", name).
				WithReportableDetails(map[string]any{
					"limit_name": name,
					"value":      v.Value,
				}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// Value implements driver.Valuer, limits are stored as jsonb
func (l Limits) Value() (driver.Value, error) {
	if l == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *Limits) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = Limits{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Limits", src)
	}
	out := Limits{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*l = out
	return nil
}
