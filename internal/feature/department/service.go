package department

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"change-request-tracker/internal/domain"
)

// ErrInUse is returned when deleting a department still referenced by a
// change request.
var ErrInUse = fmt.Errorf("%w: department is in use", domain.ErrValidation)

type Service struct {
	repo     domain.DepartmentRepository
	requests domain.ChangeRequestRepository
	seed     []string
	log      *zap.Logger
}

func NewService(repo domain.DepartmentRepository, requests domain.ChangeRequestRepository, seed []string, l *zap.Logger) *Service {
	return &Service{repo: repo, requests: requests, seed: seed, log: l}
}

func (s *Service) Seed(ctx context.Context) (bool, error) {
	seeded, err := s.repo.SeedIfEmpty(ctx, s.seed)
	if err == nil && seeded {
		s.log.Info("seeded departments", zap.Strings("names", s.seed))
	}
	return seeded, err
}

func (s *Service) List(ctx context.Context) ([]string, error) {
	ds, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Name)
	}
	return out, nil
}

// Add registers a trimmed name, unique regardless of case.
func (s *Service) Add(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: department name is required", domain.ErrValidation)
	}
	exists, err := s.repo.Exists(ctx, name)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%w: department %q", domain.ErrDuplicateKey, name)
	}
	if err := s.repo.Create(ctx, &domain.Department{Name: name}); err != nil {
		return "", err
	}
	s.log.Info("department added", zap.String("name", name))
	return name, nil
}

func (s *Service) Delete(ctx context.Context, name string) error {
	n, err := s.requests.CountByDepartment(ctx, name)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %q has %d change requests", ErrInUse, name, n)
	}
	if err := s.repo.Delete(ctx, name); err != nil {
		return err
	}
	s.log.Info("department deleted", zap.String("name", name))
	return nil
}
