package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/response"
)

// Deadline attaches a per-request deadline to the request context. Handlers
// and the storage layer observe it through ctx cancellation.
func Deadline(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			response.AbortError(c, http.StatusInternalServerError, "REQUEST_TIMEOUT", "request deadline exceeded")
		}
	}
}
