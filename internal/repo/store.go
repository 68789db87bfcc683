package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"change-request-tracker/internal/core/database"
	"change-request-tracker/internal/domain"
)

// Migrations is the durable schema. Later versions must only add.
var Migrations = []database.Migration{
	{
		Version: 1,
		Name:    "users and change requests",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&domain.User{}, &domain.ChangeRequest{})
		},
	},
	{
		Version: 2,
		Name:    "departments",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&domain.Department{})
		},
	},
}

// Store owns the durable copies of every collection. Construct it once per
// process and hand it to the services.
type Store struct {
	h *database.Handle

	Users       *UserRepo
	Requests    *ChangeRequestRepo
	Departments *DepartmentRepo
}

func NewStore(o database.Opts) *Store {
	return newStore(database.NewHandle(o, Migrations))
}

func newStore(h *database.Handle) *Store {
	return &Store{
		h:           h,
		Users:       &UserRepo{h: h},
		Requests:    &ChangeRequestRepo{h: h},
		Departments: &DepartmentRepo{h: h},
	}
}

// Initialize opens the database and applies the schema. Safe to call
// repeatedly and concurrently.
func (s *Store) Initialize(ctx context.Context) error {
	_, err := s.h.Initialize(ctx)
	return err
}

func (s *Store) SchemaVersion() int { return s.h.Version() }

func (s *Store) Close() error { return s.h.Close() }

func conn(ctx context.Context, h *database.Handle) (*gorm.DB, error) {
	db, err := h.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	return db.WithContext(ctx), nil
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}
