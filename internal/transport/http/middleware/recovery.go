package middleware

import (
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-notice/internal/domain"
	resp "campus-notice/internal/transport/http/response"
)

// Recovery logs the panic with its stack and answers with the envelope.
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(l, true, func(c *gin.Context, _ any) {
		c.AbortWithStatusJSON(http.StatusOK, resp.Fail(resp.CodeServerError, domain.KindInternal, "internal error"))
	})
}
