package domain

import "context"

type Department struct {
	Name string `gorm:"primaryKey;size:128" json:"name"`
}

func (Department) TableName() string { return "departments" }

type DepartmentRepository interface {
	List(ctx context.Context) ([]Department, error)
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, d *Department) error
	SeedIfEmpty(ctx context.Context, names []string) (bool, error)
	Delete(ctx context.Context, name string) error
}
