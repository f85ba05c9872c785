package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const tokenKey = "bearerToken"

// RequireBearer rejects requests without a bearer credential.
func RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := parseBearer(c.GetHeader("Authorization"))
		if token == "" {
			Abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		c.Set(tokenKey, token)
		c.Next()
	}
}

// BearerToken returns the credential accepted by RequireBearer.
func BearerToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}

func parseBearer(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
