package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
)

// Migration is one additive schema step. Versions are applied in ascending
// order and never re-applied.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

type schemaVersion struct {
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:128;not null"`
	AppliedAt time.Time
}

func (schemaVersion) TableName() string { return "schema_versions" }

// Migrate applies every migration newer than the recorded version, each in
// its own transaction, and returns the resulting version.
func Migrate(ctx context.Context, db *gorm.DB, migrations []Migration) (int, error) {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(&schemaVersion{}); err != nil {
		return 0, fmt.Errorf("create schema_versions: %w", err)
	}
	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return 0, err
	}

	ms := append([]Migration(nil), migrations...)
	sort.Slice(ms, func(i, j int) bool { return ms[i].Version < ms[j].Version })

	for _, m := range ms {
		if m.Version <= current {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&schemaVersion{Version: m.Version, Name: m.Name, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return current, fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		current = m.Version
	}
	return current, nil
}

func CurrentVersion(ctx context.Context, db *gorm.DB) (int, error) {
	var v int64
	row := db.WithContext(ctx).Model(&schemaVersion{}).Select("COALESCE(MAX(version), 0)").Row()
	if err := row.Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v), nil
}
