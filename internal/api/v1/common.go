package v1

import (
	ierr "github.com/flexprice/planshift/internal/errors"
	"github.com/gin-gonic/gin"
)

type validatable interface {
	Validate() error
}

// bindRequest decodes the JSON body into req and validates it. On failure the
// error is attached to the context and false is returned.
func bindRequest(c *gin.Context, req validatable) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return false
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return false
	}
	return true
}
