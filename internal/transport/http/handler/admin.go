package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"change-request-tracker/internal/app"
	"change-request-tracker/internal/domain"
	"change-request-tracker/internal/transport/http/ez"
)

type createUserIn struct {
	ID       string `json:"id"       binding:"required"`
	Name     string `json:"name"     binding:"required"`
	Password string `json:"password" binding:"required"`
}

type setPasswordIn struct {
	Password string `json:"password" binding:"required"`
}

type departmentIn struct {
	Name string `json:"name" binding:"required"`
}

var adminOnly = []domain.Role{domain.RoleAdmin}

// MountAdmin registers user, department and review management.
func (h *Handlers) MountAdmin(admin ez.EZ) {
	ez.RegisterAction(admin, ez.Action[struct{}, []domain.User]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.User, error) {
			return h.app.ManagedUsers(ez.Viewer(c))
		},
	})

	ez.RegisterAction(admin, ez.Action[createUserIn, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, in *createUserIn) (*domain.User, error) {
			return h.app.CreateUser(c.Request.Context(), ez.Viewer(c), in.Name, in.ID, in.Password)
		},
	})

	ez.RegisterAction(admin, ez.Action[setPasswordIn, *domain.User]{
		Method: http.MethodPut,
		Path:   "/users/:id/password",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, in *setPasswordIn) (*domain.User, error) {
			return h.app.SetPassword(c.Request.Context(), ez.Viewer(c), c.Param("id"), in.Password)
		},
	})

	ez.RegisterAction(admin, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			if err := h.app.DeleteUser(c.Request.Context(), ez.Viewer(c), id); err != nil {
				return nil, err
			}
			return gin.H{"id": domain.NormalizeUserID(id)}, nil
		},
	})

	ez.RegisterAction(admin, ez.Action[departmentIn, gin.H]{
		Method: http.MethodPost,
		Path:   "/departments",
		Binder: ez.BindJSON,
		Auth:   true,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, in *departmentIn) (gin.H, error) {
			name, err := h.app.AddDepartment(c.Request.Context(), ez.Viewer(c), in.Name)
			if err != nil {
				return nil, err
			}
			return gin.H{"name": name}, nil
		},
	})

	ez.RegisterAction(admin, ez.Action[struct{}, gin.H]{
		Method: http.MethodDelete,
		Path:   "/departments/:name",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			name := c.Param("name")
			if err := h.app.DeleteDepartment(c.Request.Context(), ez.Viewer(c), name); err != nil {
				return nil, err
			}
			return gin.H{"name": name}, nil
		},
	})

	h.mountTransition(admin, "/requests/:id/review", func(c *gin.Context, _ *remarksIn) (bool, error) {
		return h.app.MarkReviewed(c.Request.Context(), ez.Viewer(c), c.Param("id"))
	})
	h.mountTransition(admin, "/requests/:id/approve", func(c *gin.Context, in *remarksIn) (bool, error) {
		return h.app.Approve(c.Request.Context(), ez.Viewer(c), c.Param("id"), in.Remarks)
	})
	h.mountTransition(admin, "/requests/:id/reject", func(c *gin.Context, in *remarksIn) (bool, error) {
		return h.app.Reject(c.Request.Context(), ez.Viewer(c), c.Param("id"), in.Remarks)
	})

	ez.RegisterAction(admin, ez.Action[struct{}, *app.Snapshot]{
		Method: http.MethodGet,
		Path:   "/snapshot",
		Binder: ez.BindNone,
		Auth:   true,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, _ *struct{}) (*app.Snapshot, error) {
			return h.app.Snapshot(), nil
		},
	})
}

// mountTransition answers with applied=false when the move was not legal;
// the request is echoed either way so the caller sees its current status,
// and is null for an unknown id.
func (h *Handlers) mountTransition(admin ez.EZ, path string, fn func(*gin.Context, *remarksIn) (bool, error)) {
	ez.RegisterAction(admin, ez.Action[remarksIn, transitionOut]{
		Method: http.MethodPost,
		Path:   path,
		Binder: ez.BindOptionalJSON,
		Auth:   true,
		Roles:  adminOnly,
		Handler: func(c *gin.Context, in *remarksIn) (transitionOut, error) {
			applied, err := fn(c, in)
			if err != nil {
				return transitionOut{}, err
			}
			cr, err := h.app.Request(ez.Viewer(c), c.Param("id"))
			if !applied && errors.Is(err, domain.ErrNotFound) {
				return transitionOut{}, nil
			}
			if err != nil {
				return transitionOut{}, err
			}
			return transitionOut{Applied: applied, Request: cr}, nil
		},
	})
}
