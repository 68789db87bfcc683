// Package app coordinates the services behind the HTTP surface. Every
// mutation is followed by a full re-read of the store, and readers get that
// immutable snapshot: after a write returns, the caller never sees older
// state.
package app

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"change-request-tracker/internal/domain"
	"change-request-tracker/internal/feature/changerequest"
	"change-request-tracker/internal/feature/department"
	"change-request-tracker/internal/feature/user"
)

// StatusAll disables the status filter in VisibleRequests.
const StatusAll = "All"

type Snapshot struct {
	Users       []domain.User          `json:"users"`
	Requests    []domain.ChangeRequest `json:"requests"`
	Departments []string               `json:"departments"`
	Revision    uint64                 `json:"revision"`
	FetchedAt   time.Time              `json:"fetchedAt"`
}

type Coordinator struct {
	users       *user.Service
	requests    *changerequest.Service
	departments *department.Service
	log         *zap.Logger

	mu   sync.Mutex // serializes mutations and their refresh
	rev  atomic.Uint64
	snap atomic.Pointer[Snapshot]
}

func New(users *user.Service, requests *changerequest.Service, departments *department.Service, l *zap.Logger) *Coordinator {
	c := &Coordinator{users: users, requests: requests, departments: departments, log: l}
	c.snap.Store(&Snapshot{Users: []domain.User{}, Requests: []domain.ChangeRequest{}, Departments: []string{}})
	return c
}

// Start seeds users and departments when their collections are empty and
// loads the first snapshot.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.users.SeedInitialUsers(ctx); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	if _, err := c.departments.Seed(ctx); err != nil {
		return fmt.Errorf("seed departments: %w", err)
	}
	_, err := c.refresh(ctx)
	return err
}

func (c *Coordinator) Snapshot() *Snapshot { return c.snap.Load() }

// Refresh re-reads every collection and publishes the result.
func (c *Coordinator) Refresh(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresh(ctx)
}

// Watch refreshes every interval until ctx ends, picking up writes made by
// other processes sharing the store.
func (c *Coordinator) Watch(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				c.log.Warn("periodic refresh failed", zap.Error(err))
			}
		}
	}
}

func (c *Coordinator) refresh(ctx context.Context) (*Snapshot, error) {
	var (
		users []domain.User
		reqs  []domain.ChangeRequest
		deps  []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { users, err = c.users.List(gctx); return })
	g.Go(func() (err error) { reqs, err = c.requests.List(gctx); return })
	g.Go(func() (err error) { deps, err = c.departments.List(gctx); return })
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("refresh snapshot: %w", err)
	}
	s := &Snapshot{
		Users:       users,
		Requests:    reqs,
		Departments: deps,
		Revision:    c.rev.Add(1),
		FetchedAt:   time.Now().UTC(),
	}
	c.snap.Store(s)
	return s, nil
}

func (c *Coordinator) mutateLocked(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	if _, err := c.refresh(ctx); err != nil {
		c.log.Error("snapshot refresh after mutation failed", zap.String("op", op), zap.Error(err))
		return err
	}
	return nil
}

// mutateAs resolves viewer under the mutation lock, so an account deleted by
// an earlier mutation can no longer act, then runs fn as the stored identity.
func (c *Coordinator) mutateAs(ctx context.Context, viewer user.Identity, adminOnly bool, op string, fn func(ctx context.Context, who user.Identity) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	who, err := c.Resolve(viewer)
	if err != nil {
		return err
	}
	if adminOnly && !who.IsAdmin() {
		return domain.ErrForbidden
	}
	return c.mutateLocked(ctx, op, func(ctx context.Context) error { return fn(ctx, who) })
}

// Resolve maps the identity carried by a token to the stored account. Role
// and name come from the store; a deleted account fails authentication.
func (c *Coordinator) Resolve(viewer user.Identity) (user.Identity, error) {
	u, err := c.User(viewer.ID)
	if err != nil {
		return user.Identity{}, fmt.Errorf("%w: account %q no longer exists", domain.ErrAuthFailed, viewer.ID)
	}
	return user.Identity{ID: u.ID, Role: u.Role, Name: u.Name}, nil
}

func (c *Coordinator) resolveAdmin(viewer user.Identity) (user.Identity, error) {
	who, err := c.Resolve(viewer)
	if err != nil {
		return who, err
	}
	if !who.IsAdmin() {
		return who, domain.ErrForbidden
	}
	return who, nil
}

// ---- identity ----

func (c *Coordinator) Login(ctx context.Context, id, password string) (*user.Identity, error) {
	return c.users.Login(ctx, id, password)
}

func (c *Coordinator) ChangePassword(ctx context.Context, viewer user.Identity, current, next string) error {
	return c.mutateAs(ctx, viewer, false, "change_password", func(ctx context.Context, who user.Identity) error {
		return c.users.ChangePassword(ctx, who.ID, current, next)
	})
}

func (c *Coordinator) CreateUser(ctx context.Context, viewer user.Identity, name, id, password string) (*domain.User, error) {
	var u *domain.User
	err := c.mutateAs(ctx, viewer, true, "create_user", func(ctx context.Context, _ user.Identity) (err error) {
		u, err = c.users.CreateUser(ctx, name, id, password)
		return
	})
	return u, err
}

func (c *Coordinator) SetPassword(ctx context.Context, viewer user.Identity, id, password string) (*domain.User, error) {
	var u *domain.User
	err := c.mutateAs(ctx, viewer, true, "set_password", func(ctx context.Context, _ user.Identity) (err error) {
		u, err = c.users.SetPassword(ctx, id, password)
		return
	})
	return u, err
}

func (c *Coordinator) DeleteUser(ctx context.Context, viewer user.Identity, id string) error {
	return c.mutateAs(ctx, viewer, true, "delete_user", func(ctx context.Context, _ user.Identity) error {
		return c.users.DeleteUser(ctx, id)
	})
}

// User looks id up in the current snapshot.
func (c *Coordinator) User(id string) (*domain.User, error) {
	id = domain.NormalizeUserID(id)
	for _, u := range c.Snapshot().Users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %q", domain.ErrNotFound, id)
}

// ManagedUsers lists the ordinary accounts by name.
func (c *Coordinator) ManagedUsers(viewer user.Identity) ([]domain.User, error) {
	if _, err := c.resolveAdmin(viewer); err != nil {
		return nil, err
	}
	var out []domain.User
	for _, u := range c.Snapshot().Users {
		if !u.IsAdmin() {
			out = append(out, u)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RequesterOptions are the names an administrator may file a request for.
func (c *Coordinator) RequesterOptions() []string {
	var out []string
	for _, u := range c.Snapshot().Users {
		if !u.IsAdmin() {
			out = append(out, u.Name)
		}
	}
	sort.Strings(out)
	return out
}

// ---- change requests ----

// SubmitRequest files in. Ordinary users always file under their own name;
// administrators pick one of RequesterOptions.
func (c *Coordinator) SubmitRequest(ctx context.Context, viewer user.Identity, in domain.NewChangeRequest) (*domain.ChangeRequest, error) {
	var cr *domain.ChangeRequest
	err := c.mutateAs(ctx, viewer, false, "submit_request", func(ctx context.Context, who user.Identity) error {
		if !who.IsAdmin() {
			in.Requester = who.Name
		}
		if !c.hasDepartment(strings.TrimSpace(in.Department)) {
			return fmt.Errorf("%w: unknown department %q", domain.ErrValidation, in.Department)
		}
		if who.IsAdmin() && !slices.Contains(c.RequesterOptions(), strings.TrimSpace(in.Requester)) {
			return fmt.Errorf("%w: unknown requester %q", domain.ErrValidation, in.Requester)
		}
		var err error
		cr, err = c.requests.Create(ctx, in)
		return err
	})
	return cr, err
}

func (c *Coordinator) hasDepartment(name string) bool {
	return slices.Contains(c.Snapshot().Departments, name)
}

// MarkReviewed is called when an administrator opens a request.
func (c *Coordinator) MarkReviewed(ctx context.Context, viewer user.Identity, id string) (bool, error) {
	return c.transition(ctx, viewer, "mark_reviewed", func(ctx context.Context) (bool, error) {
		return c.requests.MarkReviewed(ctx, id)
	})
}

func (c *Coordinator) Approve(ctx context.Context, viewer user.Identity, id, remarks string) (bool, error) {
	return c.transition(ctx, viewer, "approve", func(ctx context.Context) (bool, error) {
		return c.requests.Approve(ctx, id, remarks)
	})
}

func (c *Coordinator) Reject(ctx context.Context, viewer user.Identity, id, remarks string) (bool, error) {
	return c.transition(ctx, viewer, "reject", func(ctx context.Context) (bool, error) {
		return c.requests.Reject(ctx, id, remarks)
	})
}

func (c *Coordinator) transition(ctx context.Context, viewer user.Identity, op string, fn func(context.Context) (bool, error)) (bool, error) {
	var changed bool
	err := c.mutateAs(ctx, viewer, true, op, func(ctx context.Context, _ user.Identity) (err error) {
		changed, err = fn(ctx)
		return
	})
	return changed, err
}

// VisibleRequests filters the snapshot for viewer: administrators see every
// request, others only their own. status is a domain.Status or StatusAll.
func (c *Coordinator) VisibleRequests(viewer user.Identity, status string) ([]domain.ChangeRequest, error) {
	if status == "" {
		status = StatusAll
	}
	if status != StatusAll && !domain.Status(status).Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	who, err := c.Resolve(viewer)
	if err != nil {
		return nil, err
	}
	out := []domain.ChangeRequest{}
	for _, r := range c.Snapshot().Requests {
		if status != StatusAll && string(r.Status) != status {
			continue
		}
		if !who.IsAdmin() && r.Requester != who.Name {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Request returns one request if viewer may see it.
func (c *Coordinator) Request(viewer user.Identity, id string) (*domain.ChangeRequest, error) {
	who, err := c.Resolve(viewer)
	if err != nil {
		return nil, err
	}
	for _, r := range c.Snapshot().Requests {
		if r.ID != id {
			continue
		}
		if !who.IsAdmin() && r.Requester != who.Name {
			break
		}
		return &r, nil
	}
	return nil, fmt.Errorf("%w: change request %q", domain.ErrNotFound, id)
}

// ---- departments ----

func (c *Coordinator) Departments() []string { return c.Snapshot().Departments }

func (c *Coordinator) AddDepartment(ctx context.Context, viewer user.Identity, name string) (string, error) {
	var added string
	err := c.mutateAs(ctx, viewer, true, "add_department", func(ctx context.Context, _ user.Identity) (err error) {
		added, err = c.departments.Add(ctx, name)
		return
	})
	return added, err
}

func (c *Coordinator) DeleteDepartment(ctx context.Context, viewer user.Identity, name string) error {
	return c.mutateAs(ctx, viewer, true, "delete_department", func(ctx context.Context, _ user.Identity) error {
		return c.departments.Delete(ctx, name)
	})
}
