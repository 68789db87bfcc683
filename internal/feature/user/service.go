// Package user manages identities: bootstrap seeding, credential checks and
// administrator-driven account changes.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"change-request-tracker/internal/domain"
	"change-request-tracker/pkg/utils"
)

type Service struct {
	repo domain.UserRepository
	seed []SeedUser
	log  *zap.Logger
}

func NewService(repo domain.UserRepository, seed []SeedUser, l *zap.Logger) *Service {
	if seed == nil {
		seed = DefaultSeed
	}
	return &Service{repo: repo, seed: seed, log: l}
}

// SeedInitialUsers writes the bootstrap accounts in one transaction when no
// user exists yet. It is safe on every start.
func (s *Service) SeedInitialUsers(ctx context.Context) (bool, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	users := make([]domain.User, 0, len(s.seed))
	for _, su := range s.seed {
		hash, err := utils.HashPassword(su.Password)
		if err != nil {
			return false, fmt.Errorf("hash seed password: %w", err)
		}
		users = append(users, domain.User{ID: su.ID, Name: su.Name, PasswordHash: hash, Role: su.Role})
	}
	seeded, err := s.repo.SeedIfEmpty(ctx, users)
	if err != nil {
		return false, err
	}
	if seeded {
		s.log.Info("seeded initial users", zap.Int("count", len(users)))
	}
	return seeded, nil
}

// Login matches id case-insensitively and password exactly. Unknown ids and
// wrong passwords both yield domain.ErrAuthFailed.
func (s *Service) Login(ctx context.Context, id, password string) (*Identity, error) {
	if strings.TrimSpace(id) == "" || password == "" {
		return nil, domain.ErrAuthFailed
	}
	u, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrAuthFailed
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.ErrAuthFailed
	}
	return &Identity{ID: u.ID, Role: u.Role, Name: u.Name}, nil
}

// CreateUser adds an ordinary account. There is no way to create an admin
// through it.
func (s *Service) CreateUser(ctx context.Context, name, id, password string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	id = domain.NormalizeUserID(id)
	if name == "" || id == "" || strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: all fields are required", domain.ErrValidation)
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{ID: id, Name: name, PasswordHash: hash, Role: domain.RoleUser}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user created", zap.String("user_id", u.ID))
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(currentPassword, u.PasswordHash) {
		return fmt.Errorf("%w: current password does not match", domain.ErrAuthFailed)
	}
	if err := s.setHash(ctx, u, newPassword); err != nil {
		return err
	}
	s.log.Info("password changed", zap.String("user_id", u.ID))
	return nil
}

// SetPassword is the administrator reset; it skips the current password.
func (s *Service) SetPassword(ctx context.Context, userID, newPassword string) (*domain.User, error) {
	if err := checkPassword(newPassword); err != nil {
		return nil, err
	}
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.IsAdmin() {
		return nil, fmt.Errorf("%w: %q is an administrator", domain.ErrProtectedAccount, u.ID)
	}
	if err := s.setHash(ctx, u, newPassword); err != nil {
		return nil, err
	}
	s.log.Info("password reset", zap.String("user_id", u.ID))
	return u, nil
}

// DeleteUser removes an ordinary account. Missing ids are a no-op.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	u, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.IsAdmin() {
		return fmt.Errorf("%w: %q is an administrator", domain.ErrProtectedAccount, u.ID)
	}
	if err := s.repo.Delete(ctx, u.ID); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("user_id", u.ID))
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.User, error) { return s.repo.List(ctx) }

func (s *Service) setHash(ctx context.Context, u *domain.User, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	return s.repo.Update(ctx, u)
}

func checkPassword(pw string) error {
	if len(pw) < MinPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", domain.ErrValidation, MinPasswordLen)
	}
	if len(pw) > MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes long", domain.ErrValidation, MaxPasswordBytes)
	}
	return nil
}
