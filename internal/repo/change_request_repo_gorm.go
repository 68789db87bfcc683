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

type ChangeRequestRepo struct{ h *database.Handle }

var _ domain.ChangeRequestRepository = (*ChangeRequestRepo)(nil)

// List returns every request ordered by requestDate, newest first. Ties on
// requestDate fall back to id so the order is stable.
func (r *ChangeRequestRepo) List(ctx context.Context) ([]domain.ChangeRequest, error) {
	db, err := conn(ctx, r.h)
	if err != nil {
		return nil, err
	}
	out := []domain.ChangeRequest{}
	err = db.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: "request_date"}, Desc: true},
		{Column: clause.Column{Name: "id"}, Desc: true},
	}}).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	for i := range out {
		out[i].RequestDate = out[i].RequestDate.UTC()
	}
	return out, nil
}

func (r *ChangeRequestRepo) FindByID(ctx context.Context, id string) (*domain.ChangeRequest, error) {
	db, err := conn(ctx, r.h)
	if err != nil {
		return nil, err
	}
	var cr domain.ChangeRequest
	err = db.First(&cr, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: change request %q", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find change request: %w", err)
	}
	cr.RequestDate = cr.RequestDate.UTC()
	return &cr, nil
}

func (r *ChangeRequestRepo) Create(ctx context.Context, cr *domain.ChangeRequest) error {
	db, err := conn(ctx, r.h)
	if err != nil {
		return err
	}
	cr.RequestDate = NormalizeTime(cr.RequestDate)
	if err := db.Create(cr).Error; err != nil {
		if isDupKey(err) {
			return fmt.Errorf("%w: change request %q", domain.ErrDuplicateKey, cr.ID)
		}
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// Update writes cr by id, inserting it when absent. Last write wins.
func (r *ChangeRequestRepo) Update(ctx context.Context, cr *domain.ChangeRequest) error {
	db, err := conn(ctx, r.h)
	if err != nil {
		return err
	}
	cr.RequestDate = NormalizeTime(cr.RequestDate)
	if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(cr).Error; err != nil {
		return fmt.Errorf("put change request: %w", err)
	}
	return nil
}

func (r *ChangeRequestRepo) CountByDepartment(ctx context.Context, department string) (int64, error) {
	db, err := conn(ctx, r.h)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.Model(&domain.ChangeRequest{}).Where("department = ?", department).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count change requests: %w", err)
	}
	return n, nil
}
