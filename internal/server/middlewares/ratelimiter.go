package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openmined/songbox/internal/server/handlers/api"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
)

// RateLimiter limits requests per client IP. The rate uses the limiter format,
// e.g. "30-M". An empty rate disables limiting. Panics on a malformed rate.
func RateLimiter(formattedRate string) gin.HandlerFunc {
	if formattedRate == "" {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	rate, err := limiter.NewRateFromFormatted(formattedRate)
	if err != nil {
		panic(err)
	}
	limiter := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(
		limiter,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.PureJSON(http.StatusTooManyRequests, api.APIError{
				Code:    api.CodeRateLimited,
				Message: "rate limit exceeded",
			})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			c.PureJSON(http.StatusInternalServerError, api.APIError{
				Code:    api.CodeInternalError,
				Message: err.Error(),
			})
		}),
	)
}
