package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-notice/internal/domain"
	resp "campus-notice/internal/transport/http/response"
)

const (
	KeyIdentity = "identity"
	KeyUserID   = "userId"
	KeyRole     = "role"
)

// Authenticator resolves a bearer token to a verified identity of the wanted kind.
type Authenticator interface {
	Authenticate(ctx context.Context, token string, want domain.IdentityKind) (domain.Identity, error)
}

// Auth 校验 Bearer token，并把身份写入 gin.Context
func Auth(a Authenticator, want domain.IdentityKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusOK, resp.Fail(resp.CodeUnauthorized, domain.KindInvalidToken, "missing token"))
			return
		}
		id, err := a.Authenticate(c.Request.Context(), strings.TrimSpace(strings.TrimPrefix(ah, "Bearer ")), want)
		if err != nil {
			r := resp.FromError(err)
			// 鉴权阶段的无效 token 一律 401
			if r.Kind == domain.KindInvalidToken {
				r.Code = resp.CodeUnauthorized
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusOK, r)
			return
		}
		c.Set(KeyIdentity, id)
		c.Set(KeyUserID, id.ID())
		c.Set(KeyRole, string(id.Kind))
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(KeyIdentity)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok && id.ID() != ""
}
