package middleware

import (
	"net/http"

	"github.com/01moynul/refuel-storefront/internal/apperr"
	"github.com/01moynul/refuel-storefront/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimit throttles requests per client IP within the named scope.
// A limiter backend failure lets the request through.
func RateLimit(limiter ratelimit.Limiter, scope string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apperr.Body{Message: "Too many requests, please try again later"})
			return
		}
		c.Next()
	}
}
