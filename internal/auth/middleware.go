package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OperatorKey is the gin context key holding the authenticated operator.
const OperatorKey = "operator"

// RequireBearer rejects requests without a valid admin token. An empty
// secret disables the check.
func RequireBearer(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.Next()
			return
		}

		h := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": ErrMissingToken.Error(),
			})
			return
		}

		op, err := ParseToken(strings.TrimSpace(raw), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": ErrInvalidToken.Error(),
			})
			return
		}

		c.Set(OperatorKey, op)
		c.Next()
	}
}
