package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BrandonDHaskell/Parkgate/server/internal/logging"
)

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()
		logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"from", c.ClientIP(),
			"dur", time.Since(start).String(),
		)
	}
}
