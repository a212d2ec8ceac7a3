package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewAdminEngine builds the admin engine; every module mounts under /admin/v1
// and applies the admin authentication itself (register/login stay public).
func NewAdminEngine(l *zap.Logger, o Options, reg *Registry) *gin.Engine {
	r := newEngine(l, "admin", o)
	admin := r.Group("/admin/v1")
	reg.MountAllAdmin(admin)
	return r
}
