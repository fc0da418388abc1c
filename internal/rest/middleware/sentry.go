package middleware

import (
	"time"

	"github.com/flexprice/planshift/internal/config"
	"github.com/flexprice/planshift/internal/types"
	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// SentryMiddleware attaches a sentry hub to every request and reports panics
func SentryMiddleware(cfg *config.Configuration) gin.HandlerFunc {
	if !cfg.Sentry.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return sentrygin.New(sentrygin.Options{
		Repanic: true,
		Timeout: 2 * time.Second,
	})
}

// SentryScopeMiddleware tags the request hub with the request id and the
// operator. It must run after RequestIDMiddleware and OperatorMiddleware.
func SentryScopeMiddleware(c *gin.Context) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		ctx := c.Request.Context()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("request_id", types.GetRequestID(ctx))
			scope.SetUser(sentry.User{ID: types.GetUserID(ctx)})
		})
	}
	c.Next()
}
