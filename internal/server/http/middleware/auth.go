package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	pkgAuth "paygate/internal/pkg/auth"
)

// MerchantCodeContextKey is a gin context key for the authenticated
// merchant code.
const MerchantCodeContextKey = "merchantCode"

// TokenParser validates an API token and returns the merchant code it
// was issued for.
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// AuthRequired ensures the merchant is authenticated before accessing
// the handler.
func AuthRequired(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		merchantCode, err := parser.ParseToken(token)
		if err != nil {
			if errors.Is(err, pkgAuth.ErrInvalidToken) {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.Set(MerchantCodeContextKey, merchantCode)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
