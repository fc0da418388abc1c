package validator

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once

	planNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]{0,63}$`)
)

// NewValidator returns the process wide validator, creating it on first use
func NewValidator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// report json field names so API clients can map errors back to their payload
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		_ = v.RegisterValidation("plan_name", func(fl validator.FieldLevel) bool {
			return planNamePattern.MatchString(fl.Field().String())
		})

		validate = v
	})
	return validate
}

// ValidatePlanName checks a plan name outside of struct validation
func ValidatePlanName(name string) error {
	if !planNamePattern.MatchString(name) {
		return ierr.NewError("invalid plan name").
			WithHint("Plan name must be lowercase alphanumeric with - or _, up to 64 characters").
			WithReportableDetails(map[string]any{
				"plan_name": name,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func ValidateRequest(req interface{}) error {
	if err := NewValidator().Struct(req); err != nil {
		details := make(map[string]any)
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, err := range validateErrs {
				details[err.Field()] = err.Error()
			}
		}
		return ierr.WithError(err).
			WithHint("Request validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
