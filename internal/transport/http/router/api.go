package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"change-request-tracker/internal/core/auth"
	"change-request-tracker/internal/core/server"
	"change-request-tracker/internal/transport/http/ez"
	"change-request-tracker/internal/transport/http/handler"
	mdw "change-request-tracker/internal/transport/http/middleware"
)

type Limits struct {
	RPS             float64
	Burst           int
	LoginPerIPRPS   float64
	LoginPerIPBurst int
	MaxInFlight     int64
	MaxBodyBytes    int64
	RequestTimeout  time.Duration
	SlowRequest     time.Duration
}

// DefaultLimits leave room for a summarizer call inside RequestTimeout.
var DefaultLimits = Limits{
	RPS:             200,
	Burst:           400,
	LoginPerIPRPS:   1,
	LoginPerIPBurst: 10,
	MaxInFlight:     300,
	MaxBodyBytes:    1 << 20,
	RequestTimeout:  30 * time.Second,
	SlowRequest:     2 * time.Second,
}

func common(l *zap.Logger, engine string, lim Limits) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.Metrics(engine),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.ConcurrencyLimit(lim.MaxInFlight),
		mdw.MaxBodyBytes(lim.MaxBodyBytes),
		mdw.Timeout(lim.RequestTimeout),
		mdw.AccessLog(l, lim.SlowRequest, "/health", "/metrics"),
	}
}

// NewAPIEngine serves /api/v1 for every signed-in user.
func NewAPIEngine(l *zap.Logger, h *handler.Handlers, jwter *auth.JWTer, o server.Options, lim Limits) *gin.Engine {
	r := server.NewRouter(l, o)
	r.Use(common(l, "api", lim)...)

	api := r.Group("/api/v1")
	public := api.Group("")
	public.Use(mdw.RateLimitPerIP(rate.Limit(lim.LoginPerIPRPS), lim.LoginPerIPBurst))
	h.MountLogin(ez.New(public, l))

	authed := api.Group("")
	authed.Use(mdw.AuthJWT(jwter, ""))
	authedEZ := ez.New(authed, l)
	h.MountAccount(authedEZ)
	h.MountRequests(authedEZ)
	return r
}
