package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/fhe-content-hub/pkg/logger"
	"github.com/d60-Lab/fhe-content-hub/pkg/response"
)

// Recovery turns panics into 500 responses and reports them, together with
// errors attached to 5xx responses, to Sentry. Without a configured Sentry
// client the hub calls are no-ops.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(c.Request)
		if id, ok := c.Get(requestIDKey); ok {
			hub.Scope().SetTag("request_id", fmt.Sprint(id))
		}

		defer func() {
			if r := recover(); r != nil {
				hub.RecoverWithContext(c.Request.Context(), r)
				logger.Error("panic recovered", zap.Any("panic", r), zap.String("path", c.Request.URL.Path), zap.Stack("stack"))
				c.Abort()
				response.Error(c, http.StatusInternalServerError, "internal server error")
			}
		}()

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			for _, e := range c.Errors {
				hub.CaptureException(e.Err)
			}
		}
	}
}
