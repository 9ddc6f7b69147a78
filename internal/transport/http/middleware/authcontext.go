package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tenant-console-api/internal/core/auth"
	"tenant-console-api/internal/domain"
	resp "tenant-console-api/internal/transport/http/response"
)

const keyRequestContext = "requestContext"

// AuthContext parses the bearer token and converts its claims into the typed
// RequestContext at the trust boundary. Handlers read the context from gin,
// never the raw claims.
func AuthContext(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.ErrorBody{Error: "unauthorized"})
			return
		}
		claims, err := v.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.ErrorBody{Error: "unauthorized"})
			return
		}
		rc, err := auth.ContextFromClaims(claims)
		if err != nil {
			resp.WriteError(c, err)
			return
		}
		c.Set(keyRequestContext, rc)
		c.Next()
	}
}

// GetRequestContext pulls the typed context a prior AuthContext stored.
func GetRequestContext(c *gin.Context) (domain.RequestContext, bool) {
	v, ok := c.Get(keyRequestContext)
	if !ok {
		return domain.RequestContext{}, false
	}
	rc, ok := v.(domain.RequestContext)
	return rc, ok
}

// ServiceToken guards the operator API with a static bearer token.
func ServiceToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if token == "" || ah != "Bearer "+token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.ErrorBody{Error: "unauthorized"})
			return
		}
		c.Next()
	}
}
