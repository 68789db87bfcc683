package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "change-request-tracker/internal/transport/http/response"
)

// ConcurrencyLimit caps in-flight requests. Waiters give up when their
// request context ends.
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			resp.Abort(c, resp.Error(resp.CodeTooMany, "server busy"))
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
