package database

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Handle opens the database and applies migrations on first use. Every
// caller, concurrent or not, gets the same connection or the same error.
type Handle struct {
	opts       Opts
	migrations []Migration

	once    sync.Once
	db      *gorm.DB
	version int
	err     error
}

func NewHandle(o Opts, migrations []Migration) *Handle {
	return &Handle{opts: o, migrations: migrations}
}

// Initialize opens the connection and migrates once. The outcome is shared by
// every caller, so the first caller's cancellation does not apply to it.
func (h *Handle) Initialize(ctx context.Context) (*gorm.DB, error) {
	h.once.Do(func() {
		ctx := context.WithoutCancel(ctx)
		db, err := NewGorm(h.opts)
		if err != nil {
			h.err = err
			return
		}
		v, err := Migrate(ctx, db, h.migrations)
		if err != nil {
			if sqlDB, e := db.DB(); e == nil {
				_ = sqlDB.Close()
			}
			h.err = err
			return
		}
		h.db, h.version = db, v
	})
	return h.db, h.err
}

// Version is the schema version applied by Initialize, 0 before it ran.
func (h *Handle) Version() int { return h.version }

func (h *Handle) Close() error {
	if h.db == nil {
		return nil
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
