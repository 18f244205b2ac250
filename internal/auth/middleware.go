package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

// APIKeyMiddleware guards the crawler-facing endpoints. The key comes from
// the X-API-Key header or, for clients that cannot set headers, the api_key
// query parameter.
func APIKeyMiddleware(keys *KeyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader("X-API-Key")
		if presented == "" {
			presented = c.Query("api_key")
		}
		if presented == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API key required. Provide X-API-Key header or api_key parameter."})
			c.Abort()
			return
		}

		ok, err := keys.Verify(c.Request.Context(), presented)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "key verification failed"})
			c.Abort()
			return
		}
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// AdminMiddleware guards the admin endpoints with a bearer token issued by
// the login handler.
func AdminMiddleware(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}

		raw := strings.TrimSpace(h[len("Bearer "):])
		claims, err := tokens.Parse(raw)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
