package middleware

import (
	"net/http"

	"github.com/flexprice/planshift/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx := types.SetRequestID(c.Request.Context(), requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}

// OperatorMiddleware puts the operator named in X-User-ID on the request
// context. Requests without the header act as types.DefaultUserID.
func OperatorMiddleware(c *gin.Context) {
	userID := c.GetHeader(types.HeaderUserID)
	if userID == "" {
		userID = types.DefaultUserID
	}

	ctx := types.SetUserID(c.Request.Context(), userID)
	c.Request = c.Request.WithContext(ctx)

	c.Next()
}

// CORSMiddleware allows browser based operator consoles to call the API and
// read the request id of the response
func CORSMiddleware(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, "+types.HeaderRequestID+", "+types.HeaderUserID)
	h.Set("Access-Control-Expose-Headers", types.HeaderRequestID)
	h.Set("Access-Control-Max-Age", "86400")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}
