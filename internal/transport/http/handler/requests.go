package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"change-request-tracker/internal/domain"
	"change-request-tracker/internal/transport/http/ez"
)

// MountRequests registers the endpoints shared by both roles: visibility
// follows the caller's role.
func (h *Handlers) MountRequests(authed ez.EZ) {
	ez.RegisterAction(authed, ez.Action[statusQ, []domain.ChangeRequest]{
		Method: http.MethodGet,
		Path:   "/requests",
		Binder: ez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *statusQ) ([]domain.ChangeRequest, error) {
			return h.app.VisibleRequests(ez.Viewer(c), in.Status)
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, *domain.ChangeRequest]{
		Method: http.MethodGet,
		Path:   "/requests/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.ChangeRequest, error) {
			return h.app.Request(ez.Viewer(c), c.Param("id"))
		},
	})

	ez.RegisterAction(authed, ez.Action[domain.NewChangeRequest, *domain.ChangeRequest]{
		Method: http.MethodPost,
		Path:   "/requests",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *domain.NewChangeRequest) (*domain.ChangeRequest, error) {
			return h.app.SubmitRequest(c.Request.Context(), ez.Viewer(c), *in)
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, []string]{
		Method: http.MethodGet,
		Path:   "/departments",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) ([]string, error) {
			if _, err := h.app.Resolve(ez.Viewer(c)); err != nil {
				return nil, err
			}
			return h.app.Departments(), nil
		},
	})

	ez.RegisterAction(authed, ez.Action[struct{}, []string]{
		Method: http.MethodGet,
		Path:   "/requester-options",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) ([]string, error) {
			if _, err := h.app.Resolve(ez.Viewer(c)); err != nil {
				return nil, err
			}
			return h.app.RequesterOptions(), nil
		},
	})
}
