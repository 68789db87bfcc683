// Package handler mounts the change-request endpoints on gin groups.
package handler

import (
	"change-request-tracker/internal/app"
	"change-request-tracker/internal/core/auth"
	"change-request-tracker/internal/domain"
)

type Handlers struct {
	app   *app.Coordinator
	jwter *auth.JWTer
}

func New(c *app.Coordinator, j *auth.JWTer) *Handlers {
	return &Handlers{app: c, jwter: j}
}

type statusQ struct {
	Status string `form:"status"`
}

type remarksIn struct {
	Remarks string `json:"remarks"`
}

type transitionOut struct {
	Applied bool                  `json:"applied"`
	Request *domain.ChangeRequest `json:"request"`
}
