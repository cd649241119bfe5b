package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/olehtrofimiuk/MechMapOnline/internal/repository"
)

// RateLimit returns a gin middleware limiting each client IP to
// maxRequests per window, counted in the room cache's Redis backend.
func RateLimit(cache repository.RoomCache, maxRequests int, window time.Duration) gin.HandlerFunc {
	if cache == nil {
		panic("RoomCache cannot be nil for RateLimit middleware")
	}
	if maxRequests <= 0 {
		panic("maxRequests must be positive for RateLimit middleware")
	}
	if window <= 0 {
		panic("window duration must be positive for RateLimit middleware")
	}

	return func(c *gin.Context) {
		// Behind a reverse proxy ClientIP honors X-Forwarded-For via gin's
		// trusted proxy settings.
		exceeded, err := cache.CheckRateLimit(c.Request.Context(), c.ClientIP(), maxRequests, window)
		if err != nil {
			logrus.WithError(err).Error("RateLimit: counter update failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limiting error"})
			c.Abort()
			return
		}
		if exceeded {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
