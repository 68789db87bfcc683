package repo

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"change-request-tracker/internal/core/database"
	"change-request-tracker/internal/domain"
)

type DepartmentRepo struct{ h *database.Handle }

var _ domain.DepartmentRepository = (*DepartmentRepo)(nil)

func (r *DepartmentRepo) List(ctx context.Context) ([]domain.Department, error) {
	db, err := conn(ctx, r.h)
	if err != nil {
		return nil, err
	}
	out := []domain.Department{}
	if err := db.Order("name ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return out, nil
}

// Exists matches name case-insensitively.
func (r *DepartmentRepo) Exists(ctx context.Context, name string) (bool, error) {
	db, err := conn(ctx, r.h)
	if err != nil {
		return false, err
	}
	var n int64
	err = db.Model(&domain.Department{}).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check department: %w", err)
	}
	return n > 0, nil
}

func (r *DepartmentRepo) Create(ctx context.Context, d *domain.Department) error {
	db, err := conn(ctx, r.h)
	if err != nil {
		return err
	}
	if err := db.Create(d).Error; err != nil {
		if isDupKey(err) {
			return fmt.Errorf("%w: department %q", domain.ErrDuplicateKey, d.Name)
		}
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

func (r *DepartmentRepo) SeedIfEmpty(ctx context.Context, names []string) (bool, error) {
	db, err := conn(ctx, r.h)
	if err != nil {
		return false, err
	}
	seeded := false
	err = db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.Department{}).Count(&n).Error; err != nil {
			return fmt.Errorf("count departments: %w", err)
		}
		if n > 0 || len(names) == 0 {
			return nil
		}
		batch := make([]domain.Department, 0, len(names))
		for _, name := range names {
			batch = append(batch, domain.Department{Name: name})
		}
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("seed departments: %w", err)
		}
		seeded = true
		return nil
	})
	return seeded, err
}

func (r *DepartmentRepo) Delete(ctx context.Context, name string) error {
	db, err := conn(ctx, r.h)
	if err != nil {
		return err
	}
	if err := db.Where("name = ?", name).Delete(&domain.Department{}).Error; err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return nil
}
