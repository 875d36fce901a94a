package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OperatorKey gates the console API behind a shared key, replacing the
// auth_token gate the browser console kept in localStorage.
func OperatorKey(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if required == "" {
			c.Next()
			return
		}
		key := c.GetHeader("X-Operator-Key")
		if key != required {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid operator key",
				},
			})
			return
		}
		c.Next()
	}
}
