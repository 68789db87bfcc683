package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"change-request-tracker/internal/core/auth"
	"change-request-tracker/internal/core/server"
	"change-request-tracker/internal/domain"
	"change-request-tracker/internal/transport/http/ez"
	"change-request-tracker/internal/transport/http/handler"
	mdw "change-request-tracker/internal/transport/http/middleware"
)

// NewAdminEngine serves /admin/v1; every route requires the admin role.
// Tokens come from the API engine's login.
func NewAdminEngine(l *zap.Logger, h *handler.Handlers, jwter *auth.JWTer, o server.Options, lim Limits) *gin.Engine {
	r := server.NewRouter(l, o)
	r.Use(common(l, "admin", lim)...)

	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, string(domain.RoleAdmin)))
	adminEZ := ez.New(admin, l)
	h.MountRequests(adminEZ)
	h.MountAdmin(adminEZ)
	return r
}
