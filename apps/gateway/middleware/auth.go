package middleware

import (
	"net/http"
	"strings"

	"go-pos/pkg/jwt"
	"go-pos/pkg/response"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

func AuthMiddleware(m *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		claims, err := m.ParseToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "Invalid token")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// bearer reads "Authorization: Bearer <token>". EventSource cannot set headers, so the
// token may also come as ?access_token=.
func bearer(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("access_token")
}

// Claims returns the session claims set by AuthMiddleware.
func Claims(c *gin.Context) *jwt.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*jwt.Claims); ok {
			return claims
		}
	}
	return &jwt.Claims{}
}
