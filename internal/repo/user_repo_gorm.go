package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"change-request-tracker/internal/core/database"
	"change-request-tracker/internal/domain"
)

type UserRepo struct{ h *database.Handle }

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	db, err := conn(ctx, r.h)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.Model(&domain.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepo) List(ctx context.Context) ([]domain.User, error) {
	db, err := conn(ctx, r.h)
	if err != nil {
		return nil, err
	}
	users := []domain.User{}
	if err := db.Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	db, err := conn(ctx, r.h)
	if err != nil {
		return nil, err
	}
	var u domain.User
	err = db.First(&u, "id = ?", domain.NormalizeUserID(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %q", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// Create inserts u with its id normalized. An id differing only in case from
// an existing one is a duplicate.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	db, err := conn(ctx, r.h)
	if err != nil {
		return err
	}
	u.ID = domain.NormalizeUserID(u.ID)
	return db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.User{}).Where("LOWER(id) = ?", u.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("check user id: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: user %q", domain.ErrDuplicateKey, u.ID)
		}
		if err := tx.Create(u).Error; err != nil {
			if isDupKey(err) {
				return fmt.Errorf("%w: user %q", domain.ErrDuplicateKey, u.ID)
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
}

func (r *UserRepo) SeedIfEmpty(ctx context.Context, users []domain.User) (bool, error) {
	db, err := conn(ctx, r.h)
	if err != nil {
		return false, err
	}
	seeded := false
	err = db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.User{}).Count(&n).Error; err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if n > 0 || len(users) == 0 {
			return nil
		}
		batch := make([]domain.User, len(users))
		for i, u := range users {
			u.ID = domain.NormalizeUserID(u.ID)
			batch[i] = u
		}
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		seeded = true
		return nil
	})
	return seeded, err
}

// Update writes u by id, inserting it when absent.
func (r *UserRepo) Update(ctx context.Context, u *domain.User) error {
	db, err := conn(ctx, r.h)
	if err != nil {
		return err
	}
	u.ID = domain.NormalizeUserID(u.ID)
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(u).Error; err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// Delete removes the user; a missing id is not an error.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	db, err := conn(ctx, r.h)
	if err != nil {
		return err
	}
	if err := db.Where("id = ?", domain.NormalizeUserID(id)).Delete(&domain.User{}).Error; err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
