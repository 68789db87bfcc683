package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"change-request-tracker/internal/app"
	"change-request-tracker/internal/core/auth"
	"change-request-tracker/internal/core/database"
	"change-request-tracker/internal/core/server"
	"change-request-tracker/internal/domain"
	"change-request-tracker/internal/feature/changerequest"
	"change-request-tracker/internal/feature/department"
	"change-request-tracker/internal/feature/summary"
	"change-request-tracker/internal/feature/user"
	"change-request-tracker/internal/repo"
	"change-request-tracker/internal/transport/http/handler"
	"change-request-tracker/internal/transport/http/router"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type fixedSummarizer struct{}

func (fixedSummarizer) Summarize(context.Context, summary.Input) (string, error) {
	return "Summary.", nil
}

type env struct {
	api, admin *gin.Engine
}

func newEnv(t *testing.T) env {
	t.Helper()
	s := repo.NewStore(database.Opts{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "http.db"),
		LogLevel: "silent",
	})
	t.Cleanup(func() { _ = s.Close() })

	log := zap.NewNop()
	c := app.New(
		user.NewService(s.Users, nil, log),
		changerequest.NewService(s.Requests, fixedSummarizer{}, changerequest.Options{}, log),
		department.NewService(s.Departments, s.Requests, []string{"Engineering", "Operations"}, log),
		log,
	)
	require.NoError(t, c.Start(context.Background()))

	jwter := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "test", TTL: time.Hour}
	h := handler.New(c, jwter)
	opts := server.Options{Name: "test", Mode: gin.TestMode}
	return env{
		api:   router.NewAPIEngine(log, h, jwter, opts, router.DefaultLimits),
		admin: router.NewAdminEngine(log, h, jwter, opts, router.DefaultLimits),
	}
}

func call(t *testing.T, e *gin.Engine, method, path, token string, body any) envelope {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var out envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func login(t *testing.T, e env, id, password string) string {
	t.Helper()
	out := call(t, e.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"id": id, "password": password})
	require.Equal(t, 0, out.Code, out.Msg)
	var data struct {
		Token string        `json:"token"`
		User  user.Identity `json:"user"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func newRequestBody() gin.H {
	return gin.H{
		"title":              "Upgrade database",
		"system":             "Billing",
		"requester":          "Bob Johnson",
		"department":         "Operations",
		"description":        "Move to the next major version",
		"reason":             "End of support",
		"impact":             "Thirty minutes of downtime",
		"priority":           "Medium",
		"implementationDate": "2026-12-01",
	}
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t)
	for _, p := range []string{"/health", "/metrics"} {
		w := httptest.NewRecorder()
		e.api.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusOK, w.Code, p)
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	out := call(t, e.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"id": "asmith", "password": "wrong-password"})
	assert.Equal(t, 401, out.Code)
	assert.Equal(t, "invalid credentials", out.Msg)

	out = call(t, e.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{"id": "asmith"})
	assert.Equal(t, 400, out.Code)

	tok := login(t, e, "ASmith", "password123")
	out = call(t, e.api, http.MethodGet, "/api/v1/me", tok, nil)
	require.Equal(t, 0, out.Code, out.Msg)
	var me map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &me))
	assert.Equal(t, "asmith", me["id"])
	assert.Equal(t, "Alice Smith", me["name"])
	assert.NotContains(t, me, "passwordHash")
}

func TestMissingToken(t *testing.T) {
	e := newEnv(t)
	out := call(t, e.api, http.MethodGet, "/api/v1/requests", "", nil)
	assert.Equal(t, 401, out.Code)
	out = call(t, e.api, http.MethodGet, "/api/v1/requests", "garbage", nil)
	assert.Equal(t, 401, out.Code)
}

func TestSubmitAndReview(t *testing.T) {
	e := newEnv(t)
	alice := login(t, e, "asmith", "password123")
	admin := login(t, e, "admin", "adminpassword")

	out := call(t, e.api, http.MethodPost, "/api/v1/requests", alice, newRequestBody())
	require.Equal(t, 0, out.Code, out.Msg)
	var cr domain.ChangeRequest
	require.NoError(t, json.Unmarshal(out.Data, &cr))
	assert.Equal(t, "Alice Smith", cr.Requester)
	assert.Equal(t, domain.StatusPending, cr.Status)
	assert.Equal(t, "Summary.", cr.Summary)

	out = call(t, e.api, http.MethodGet, "/api/v1/requests?status=Pending", alice, nil)
	require.Equal(t, 0, out.Code, out.Msg)
	var list []domain.ChangeRequest
	require.NoError(t, json.Unmarshal(out.Data, &list))
	require.Len(t, list, 1)

	// ordinary tokens are refused by the admin engine
	out = call(t, e.admin, http.MethodPost, "/admin/v1/requests/"+cr.ID+"/review", alice, nil)
	assert.Equal(t, 403, out.Code)

	out = call(t, e.admin, http.MethodPost, "/admin/v1/requests/"+cr.ID+"/review", admin, nil)
	require.Equal(t, 0, out.Code, out.Msg)
	var tr struct {
		Applied bool                 `json:"applied"`
		Request domain.ChangeRequest `json:"request"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &tr))
	assert.True(t, tr.Applied)
	assert.Equal(t, domain.StatusReviewed, tr.Request.Status)

	out = call(t, e.admin, http.MethodPost, "/admin/v1/requests/"+cr.ID+"/reject", admin, gin.H{"remarks": " "})
	assert.Equal(t, 400, out.Code)

	out = call(t, e.admin, http.MethodPost, "/admin/v1/requests/"+cr.ID+"/approve", admin, gin.H{"remarks": "scheduled"})
	require.Equal(t, 0, out.Code, out.Msg)
	require.NoError(t, json.Unmarshal(out.Data, &tr))
	assert.True(t, tr.Applied)
	assert.Equal(t, domain.StatusApproved, tr.Request.Status)
	require.NotNil(t, tr.Request.Remarks)
	assert.Equal(t, "scheduled", *tr.Request.Remarks)

	out = call(t, e.admin, http.MethodPost, "/admin/v1/requests/"+cr.ID+"/reject", admin, gin.H{"remarks": "late"})
	require.Equal(t, 0, out.Code, out.Msg)
	require.NoError(t, json.Unmarshal(out.Data, &tr))
	assert.False(t, tr.Applied)
	assert.Equal(t, domain.StatusApproved, tr.Request.Status)
}

func TestSubmitValidation(t *testing.T) {
	e := newEnv(t)
	alice := login(t, e, "asmith", "password123")

	body := newRequestBody()
	body["priority"] = "Urgent"
	out := call(t, e.api, http.MethodPost, "/api/v1/requests", alice, body)
	assert.Equal(t, 400, out.Code)

	body = newRequestBody()
	body["department"] = "Legal"
	out = call(t, e.api, http.MethodPost, "/api/v1/requests", alice, body)
	assert.Equal(t, 400, out.Code)
}

func TestAdminUserManagement(t *testing.T) {
	e := newEnv(t)
	admin := login(t, e, "admin", "adminpassword")

	out := call(t, e.admin, http.MethodPost, "/admin/v1/users", admin, gin.H{"id": "eadams", "name": "Eve Adams", "password": "short"})
	assert.Equal(t, 400, out.Code)

	out = call(t, e.admin, http.MethodPost, "/admin/v1/users", admin, gin.H{"id": "eadams", "name": "Eve Adams", "password": "password123"})
	require.Equal(t, 0, out.Code, out.Msg)

	out = call(t, e.admin, http.MethodPost, "/admin/v1/users", admin, gin.H{"id": "EAdams", "name": "Eve Again", "password": "password123"})
	assert.Equal(t, 409, out.Code)

	out = call(t, e.admin, http.MethodPut, "/admin/v1/users/eadams/password", admin, gin.H{"password": "password456"})
	require.Equal(t, 0, out.Code, out.Msg)
	login(t, e, "eadams", "password456")

	out = call(t, e.admin, http.MethodPut, "/admin/v1/users/admin/password", admin, gin.H{"password": "password456"})
	assert.Equal(t, 403, out.Code)

	out = call(t, e.admin, http.MethodDelete, "/admin/v1/users/eadams", admin, nil)
	require.Equal(t, 0, out.Code, out.Msg)

	out = call(t, e.admin, http.MethodGet, "/admin/v1/users", admin, nil)
	require.Equal(t, 0, out.Code, out.Msg)
	var users []domain.User
	require.NoError(t, json.Unmarshal(out.Data, &users))
	assert.Len(t, users, 4)
}

func TestDepartmentEndpoints(t *testing.T) {
	e := newEnv(t)
	admin := login(t, e, "admin", "adminpassword")
	alice := login(t, e, "asmith", "password123")

	out := call(t, e.admin, http.MethodPost, "/admin/v1/departments", admin, gin.H{"name": "Legal"})
	require.Equal(t, 0, out.Code, out.Msg)
	out = call(t, e.admin, http.MethodPost, "/admin/v1/departments", admin, gin.H{"name": "legal"})
	assert.Equal(t, 409, out.Code)

	out = call(t, e.api, http.MethodGet, "/api/v1/departments", alice, nil)
	require.Equal(t, 0, out.Code, out.Msg)
	var names []string
	require.NoError(t, json.Unmarshal(out.Data, &names))
	assert.Equal(t, []string{"Engineering", "Legal", "Operations"}, names)

	out = call(t, e.api, http.MethodPost, "/api/v1/requests", alice, newRequestBody())
	require.Equal(t, 0, out.Code, out.Msg)
	out = call(t, e.admin, http.MethodDelete, "/admin/v1/departments/Operations", admin, nil)
	assert.Equal(t, 400, out.Code)
	out = call(t, e.admin, http.MethodDelete, "/admin/v1/departments/Legal", admin, nil)
	assert.Equal(t, 0, out.Code, out.Msg)
}

func TestDeletedUserTokenRejected(t *testing.T) {
	e := newEnv(t)
	admin := login(t, e, "admin", "adminpassword")
	bob := login(t, e, "bjohnson", "password123")

	out := call(t, e.admin, http.MethodDelete, "/admin/v1/users/bjohnson", admin, nil)
	require.Equal(t, 0, out.Code, out.Msg)

	out = call(t, e.api, http.MethodPost, "/api/v1/requests", bob, newRequestBody())
	assert.Equal(t, 401, out.Code)
	out = call(t, e.api, http.MethodGet, "/api/v1/requests", bob, nil)
	assert.Equal(t, 401, out.Code)
	out = call(t, e.api, http.MethodGet, "/api/v1/me", bob, nil)
	assert.Equal(t, 401, out.Code)
}

func TestTransitionUnknownID(t *testing.T) {
	e := newEnv(t)
	admin := login(t, e, "admin", "adminpassword")

	out := call(t, e.admin, http.MethodPost, "/admin/v1/requests/does-not-exist/approve", admin, gin.H{"remarks": "ok"})
	require.Equal(t, 0, out.Code, out.Msg)
	var tr map[string]any
	require.NoError(t, json.Unmarshal(out.Data, &tr))
	assert.Equal(t, false, tr["applied"])
	assert.Nil(t, tr["request"])
}
