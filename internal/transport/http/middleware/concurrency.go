package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"tenant-console-api/internal/domain"
	resp "tenant-console-api/internal/transport/http/response"
)

// ConcurrencyLimit caps in-flight requests to protect the connection pool
// downstream.
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if err := sem.Acquire(c, 1); err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, resp.ErrorBody{
				Error:     string(domain.KindTransient),
				Retryable: true,
			})
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
