package ratelimit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// New builds a per-client throttle from a formatted rate such as "60-M".
// An unparseable rate falls back to 60 requests per minute.
func New(formatted string) gin.HandlerFunc {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		rate, _ = limiter.NewRateFromFormatted("60-M")
	}

	instance := limiter.New(memory.NewStore(), rate)
	wrapped := stdlib.NewMiddleware(instance)

	return func(c *gin.Context) {
		wrapped.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)

		if c.Writer.Status() == http.StatusTooManyRequests {
			c.Abort()
		}
	}
}
