package app_test

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"change-request-tracker/internal/app"
	"change-request-tracker/internal/core/database"
	"change-request-tracker/internal/domain"
	"change-request-tracker/internal/feature/changerequest"
	"change-request-tracker/internal/feature/department"
	"change-request-tracker/internal/feature/summary"
	"change-request-tracker/internal/feature/user"
	"change-request-tracker/internal/repo"
)

type stubSummarizer struct{}

func (stubSummarizer) Summarize(context.Context, summary.Input) (string, error) {
	return "A short summary.", nil
}

var (
	admin = user.Identity{ID: "admin", Role: domain.RoleAdmin, Name: "Admin"}
	alice = user.Identity{ID: "asmith", Role: domain.RoleUser, Name: "Alice Smith"}
	bob   = user.Identity{ID: "bjohnson", Role: domain.RoleUser, Name: "Bob Johnson"}
)

func newCoordinator(t *testing.T) *app.Coordinator {
	t.Helper()
	s := repo.NewStore(database.Opts{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "app.db"),
		LogLevel: "silent",
	})
	t.Cleanup(func() { _ = s.Close() })
	log := zap.NewNop()
	c := app.New(
		user.NewService(s.Users, nil, log),
		changerequest.NewService(s.Requests, stubSummarizer{}, changerequest.Options{}, log),
		department.NewService(s.Departments, s.Requests, []string{"Engineering", "Finance"}, log),
		log,
	)
	require.NoError(t, c.Start(context.Background()))
	return c
}

func request(requester, dept string) domain.NewChangeRequest {
	return domain.NewChangeRequest{
		Title:              "Rotate certificates",
		System:             "Gateway",
		Requester:          requester,
		Department:         dept,
		Description:        "Replace expiring TLS certificates",
		Reason:             "Expiry",
		Impact:             "None expected",
		Priority:           domain.PriorityHigh,
		ImplementationDate: "2026-11-01",
	}
}

func TestStart_SeedsAndLoads(t *testing.T) {
	c := newCoordinator(t)
	snap := c.Snapshot()
	assert.Len(t, snap.Users, len(user.DefaultSeed))
	assert.Equal(t, []string{"Engineering", "Finance"}, snap.Departments)
	assert.Empty(t, snap.Requests)
	assert.NotZero(t, snap.Revision)
}

func TestMutationsRepublishSnapshot(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t)
	rev := c.Snapshot().Revision

	cr, err := c.SubmitRequest(ctx, alice, request("", "Engineering"))
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", cr.Requester)

	snap := c.Snapshot()
	assert.Greater(t, snap.Revision, rev)
	require.Len(t, snap.Requests, 1)
	assert.Equal(t, cr.ID, snap.Requests[0].ID)

	ok, err := c.MarkReviewed(ctx, admin, cr.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.StatusReviewed, c.Snapshot().Requests[0].Status)

	ok, err = c.Approve(ctx, admin, cr.ID, "go ahead")
	require.NoError(t, err)
	assert.True(t, ok)
	got := c.Snapshot().Requests[0]
	assert.Equal(t, domain.StatusApproved, got.Status)
	require.NotNil(t, got.Remarks)
	assert.Equal(t, "go ahead", *got.Remarks)

	ok, err = c.Reject(ctx, admin, cr.ID, "too late")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrdinaryUserCannotOverrideRequester(t *testing.T) {
	c := newCoordinator(t)
	cr, err := c.SubmitRequest(context.Background(), alice, request("Bob Johnson", "Finance"))
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", cr.Requester)
}

func TestAdminFilesOnBehalf(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t)

	cr, err := c.SubmitRequest(ctx, admin, request("Bob Johnson", "Finance"))
	require.NoError(t, err)
	assert.Equal(t, "Bob Johnson", cr.Requester)

	_, err = c.SubmitRequest(ctx, admin, request("Nobody", "Finance"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSubmitUnknownDepartment(t *testing.T) {
	c := newCoordinator(t)
	_, err := c.SubmitRequest(context.Background(), alice, request("", "Legal"))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, c.Snapshot().Requests)
}

func TestVisibleRequests(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t)

	a, err := c.SubmitRequest(ctx, alice, request("", "Engineering"))
	require.NoError(t, err)
	_, err = c.SubmitRequest(ctx, bob, request("", "Finance"))
	require.NoError(t, err)
	_, err = c.Reject(ctx, admin, a.ID, "not now")
	require.NoError(t, err)

	all, err := c.VisibleRequests(admin, app.StatusAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := c.VisibleRequests(alice, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)

	pending, err := c.VisibleRequests(admin, string(domain.StatusPending))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Bob Johnson", pending[0].Requester)

	_, err = c.VisibleRequests(admin, "Archived")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = c.Request(bob, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	got, err := c.Request(admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, got.Status)
}

func TestAdminOnlyOperations(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t)

	_, err := c.CreateUser(ctx, alice, "Eve", "eve", "password123")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = c.SetPassword(ctx, alice, "bjohnson", "password456")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, c.DeleteUser(ctx, alice, "bjohnson"), domain.ErrForbidden)
	_, err = c.MarkReviewed(ctx, alice, "x")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = c.AddDepartment(ctx, alice, "Legal")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, c.DeleteDepartment(ctx, alice, "Finance"), domain.ErrForbidden)
	_, err = c.ManagedUsers(alice)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUserManagement(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t)

	u, err := c.CreateUser(ctx, admin, "Eve Adams", "EAdams", "password123")
	require.NoError(t, err)
	assert.Equal(t, "eadams", u.ID)
	assert.Contains(t, c.RequesterOptions(), "Eve Adams")

	managed, err := c.ManagedUsers(admin)
	require.NoError(t, err)
	names := make([]string, 0, len(managed))
	for _, m := range managed {
		assert.False(t, m.IsAdmin())
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Alice Smith", "Bob Johnson", "Charlie Brown", "Diana Prince", "Eve Adams"}, names)

	require.NoError(t, c.DeleteUser(ctx, admin, "eadams"))
	assert.NotContains(t, c.RequesterOptions(), "Eve Adams")
	assert.ErrorIs(t, c.DeleteUser(ctx, admin, "admin"), domain.ErrProtectedAccount)
}

func TestChangePasswordThenLogin(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t)

	require.NoError(t, c.ChangePassword(ctx, alice, "password123", "newpass123"))
	_, err := c.Login(ctx, "asmith", "password123")
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	id, err := c.Login(ctx, "ASMITH", "newpass123")
	require.NoError(t, err)
	assert.Equal(t, alice, *id)
}

func TestDepartments(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t)

	name, err := c.AddDepartment(ctx, admin, "  Legal ")
	require.NoError(t, err)
	assert.Equal(t, "Legal", name)
	assert.Contains(t, c.Departments(), "Legal")

	_, err = c.SubmitRequest(ctx, alice, request("", "Legal"))
	require.NoError(t, err)
	assert.ErrorIs(t, c.DeleteDepartment(ctx, admin, "Legal"), department.ErrInUse)

	require.NoError(t, c.DeleteDepartment(ctx, admin, "Finance"))
	assert.NotContains(t, c.Departments(), "Finance")
}

func TestConcurrentSubmissions(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.SubmitRequest(ctx, bob, request("", "Engineering"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, c.Snapshot().Requests, 8)
}

func TestWatchPicksUpForeignWrites(t *testing.T) {
	s := repo.NewStore(database.Opts{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "watch.db"),
		LogLevel: "silent",
	})
	t.Cleanup(func() { _ = s.Close() })
	log := zap.NewNop()
	users := user.NewService(s.Users, nil, log)
	c := app.New(
		users,
		changerequest.NewService(s.Requests, stubSummarizer{}, changerequest.Options{}, log),
		department.NewService(s.Departments, s.Requests, nil, log),
		log,
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.Start(ctx))

	// written behind the coordinator's back
	_, err := users.CreateUser(ctx, "Frank Ocean", "focean", "password123")
	require.NoError(t, err)
	assert.NotContains(t, c.RequesterOptions(), "Frank Ocean")

	go c.Watch(ctx, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return slices.Contains(c.RequesterOptions(), "Frank Ocean")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDeletedAccountLosesAccess(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t)

	_, err := c.SubmitRequest(ctx, bob, request("", "Engineering"))
	require.NoError(t, err)
	require.NoError(t, c.DeleteUser(ctx, admin, bob.ID))

	_, err = c.SubmitRequest(ctx, bob, request("", "Engineering"))
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	_, err = c.VisibleRequests(bob, app.StatusAll)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	assert.ErrorIs(t, c.ChangePassword(ctx, bob, "password123", "password456"), domain.ErrAuthFailed)

	all, err := c.VisibleRequests(admin, app.StatusAll)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStoredIdentityOverridesTokenClaims(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t)

	_, err := c.SubmitRequest(ctx, bob, request("", "Engineering"))
	require.NoError(t, err)

	claimsAdmin := user.Identity{ID: alice.ID, Role: domain.RoleAdmin, Name: "Bob Johnson"}
	_, err = c.CreateUser(ctx, claimsAdmin, "Mallory", "mallory", "password123")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	visible, err := c.VisibleRequests(claimsAdmin, app.StatusAll)
	require.NoError(t, err)
	assert.Empty(t, visible)

	cr, err := c.SubmitRequest(ctx, claimsAdmin, request("Bob Johnson", "Engineering"))
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", cr.Requester)
}
