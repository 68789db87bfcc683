// Package ez registers typed gin handlers: bind the input, run the handler,
// answer with the response envelope.
package ez

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"change-request-tracker/internal/domain"
	"change-request-tracker/internal/feature/user"
	mdw "change-request-tracker/internal/transport/http/middleware"
	resp "change-request-tracker/internal/transport/http/response"
)

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ { return EZ{g: g, log: l} }

type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none" // handler reads c.Param itself

	// BindOptionalJSON binds only when a body was sent.
	BindOptionalJSON Binder = "json?"
)

// Action describes one endpoint: I is the bound input, O the data payload.
type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Auth    bool          // requires AuthJWT upstream
	Roles   []domain.Role // empty means any role
	Handler func(c *gin.Context, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		if a.Auth {
			if c.GetString(mdw.KeyUserID) == "" {
				resp.JSON(c, resp.Error(resp.CodeUnauthorized, "unauthorized"))
				return
			}
			if len(a.Roles) > 0 && !slices.Contains(a.Roles, domain.Role(c.GetString(mdw.KeyRole))) {
				resp.JSON(c, resp.Error(resp.CodeForbidden, "forbidden"))
				return
			}
		}

		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		case BindOptionalJSON:
			if c.Request.ContentLength != 0 {
				bindErr = c.ShouldBindJSON(&in)
			}
		}
		if bindErr != nil {
			resp.JSON(c, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			ae := FromError(err)
			if ae.Code >= resp.CodeServerError && e.log != nil {
				e.log.Error("action failed",
					zap.String("path", c.FullPath()),
					zap.String("rid", c.GetString(mdw.KeyRequestID)),
					zap.Error(err))
			}
			resp.JSON(c, resp.Error(ae.Code, ae.Error()))
			return
		}
		resp.JSON(c, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

// Viewer is the identity AuthJWT put on the context.
func Viewer(c *gin.Context) user.Identity {
	return user.Identity{
		ID:   c.GetString(mdw.KeyUserID),
		Role: domain.Role(c.GetString(mdw.KeyRole)),
		Name: c.GetString(mdw.KeyName),
	}
}
