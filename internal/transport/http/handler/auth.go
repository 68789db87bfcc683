package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"change-request-tracker/internal/domain"
	"change-request-tracker/internal/feature/user"
	"change-request-tracker/internal/transport/http/ez"
)

type loginIn struct {
	ID       string `json:"id"       binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginOut struct {
	Token string        `json:"token"`
	User  user.Identity `json:"user"`
}

type changePasswordIn struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword"     binding:"required"`
}

// MountLogin registers POST /auth/login on a public group.
func (h *Handlers) MountLogin(public ez.EZ) {
	ez.RegisterAction(public, ez.Action[loginIn, loginOut]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (loginOut, error) {
			id, err := h.app.Login(c.Request.Context(), in.ID, in.Password)
			if err != nil {
				return loginOut{}, err
			}
			tok, err := h.jwter.Issue(id.ID, string(id.Role), id.Name)
			if err != nil {
				return loginOut{}, ez.Internal("issue token failed", err)
			}
			return loginOut{Token: tok, User: *id}, nil
		},
	})
}

// MountAccount registers the signed-in user's own endpoints.
func (h *Handlers) MountAccount(authed ez.EZ) {
	ez.RegisterAction(authed, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: ez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			who, err := h.app.Resolve(ez.Viewer(c))
			if err != nil {
				return nil, err
			}
			return h.app.User(who.ID)
		},
	})

	ez.RegisterAction(authed, ez.Action[changePasswordIn, struct{}]{
		Method: http.MethodPost,
		Path:   "/me/password",
		Binder: ez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *changePasswordIn) (struct{}, error) {
			return struct{}{}, h.app.ChangePassword(c.Request.Context(), ez.Viewer(c), in.CurrentPassword, in.NewPassword)
		},
	})
}
