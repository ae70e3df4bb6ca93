package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/intralign/internal/model"
)

// Diagnostics describes the persistence topology and its health
type Diagnostics struct {
	Mode           model.StorageMode `json:"mode"`
	Primary        string            `json:"primary"`
	Secondary      string            `json:"secondary,omitempty"`
	Active         string            `json:"active"`
	Degraded       bool              `json:"degraded"`
	FallbackActive bool              `json:"fallback_active"`
	LastError      string            `json:"last_error,omitempty"`
}

// Backend is an opened Repository together with how it was opened
type Backend struct {
	Repository
	mode     model.StorageMode
	fallback bool
	openErr  string
}

// NewBackend wraps an already opened repository
func NewBackend(repo Repository, mode model.StorageMode) *Backend {
	return &Backend{Repository: repo, mode: mode}
}

// WriteResult writes m and reports whether it landed degraded
func (b *Backend) WriteResult(ctx context.Context, m Mutation) (WriteResult, error) {
	if d, ok := b.Repository.(*Dual); ok {
		return d.WriteResult(ctx, m)
	}
	return WriteResult{}, b.Repository.Write(ctx, m)
}

// Diagnostics reports the current state of the backend
func (b *Backend) Diagnostics() Diagnostics {
	diag := Diagnostics{
		Mode:           b.mode,
		Primary:        b.Repository.Name(),
		Active:         b.Repository.Name(),
		FallbackActive: b.fallback,
		LastError:      b.openErr,
	}
	if b.fallback {
		diag.Primary = "sqlite"
		diag.Degraded = true
	}
	if d, ok := b.Repository.(*Dual); ok {
		diag.Primary = d.primary.Name()
		diag.Secondary = d.secondary.Name()
		degraded, lastErr := d.Health()
		diag.Degraded = degraded
		if lastErr != "" {
			diag.LastError = lastErr
		}
	}
	return diag
}

// Open builds the backend selected by cfg.Mode. In fallback mode a SQLite
// database that cannot be opened is replaced by the filesystem backend.
func Open(cfg model.StorageConfig, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Mode {
	case model.StorageFS:
		fs, err := NewFS(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return &Backend{Repository: fs, mode: cfg.Mode}, nil

	case model.StorageSQLite:
		db, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Backend{Repository: db, mode: cfg.Mode}, nil

	case model.StorageDual:
		db, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		fs, err := NewFS(cfg.Dir)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Backend{Repository: NewDual(db, fs, logger), mode: cfg.Mode}, nil

	case model.StorageFallback, "":
		db, err := NewSQLite(cfg.SQLitePath)
		if err == nil {
			return &Backend{Repository: db, mode: model.StorageFallback}, nil
		}
		logger.Warn("sqlite unavailable, falling back to filesystem storage",
			zap.String("path", cfg.SQLitePath),
			zap.Error(err))
		fs, ferr := NewFS(cfg.Dir)
		if ferr != nil {
			return nil, model.Wrap(fmt.Errorf("sqlite: %v; fs: %w", err, ferr), model.KindPersistenceUnavailable, "storage.Open")
		}
		return &Backend{Repository: fs, mode: model.StorageFallback, fallback: true, openErr: err.Error()}, nil
	}

	return nil, model.E(model.KindValidation, "storage.Open", "unknown storage mode %q", cfg.Mode)
}

// OpenKind opens a single backend by name for migration
func OpenKind(kind model.StorageMode, cfg model.StorageConfig) (Repository, error) {
	switch kind {
	case model.StorageFS:
		return NewFS(cfg.Dir)
	case model.StorageSQLite:
		return NewSQLite(cfg.SQLitePath)
	}
	return nil, model.E(model.KindValidation, "storage.OpenKind", "migration endpoints must be fs or sqlite, got %q", kind)
}

// MigrateStats counts copied records
type MigrateStats struct {
	Sessions    int `json:"sessions"`
	Annotations int `json:"annotations"`
	Events      int `json:"events"`
}

// Migrate copies every session from one backend to another, preserving
// ids, timestamps and audit sequence numbers
func Migrate(ctx context.Context, from, to Repository, logger *zap.Logger) (MigrateStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var stats MigrateStats

	sessions, err := from.Sessions(ctx)
	if err != nil {
		return stats, fmt.Errorf("list sessions: %w", err)
	}

	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		anns, err := from.List(ctx, s)
		if err != nil {
			return stats, fmt.Errorf("read session %s: %w", s, err)
		}
		events, err := from.Audit(ctx, s)
		if err != nil {
			return stats, fmt.Errorf("read audit %s: %w", s, err)
		}
		if err := to.Import(ctx, s, anns, events); err != nil {
			return stats, fmt.Errorf("import session %s: %w", s, err)
		}

		stats.Sessions++
		stats.Annotations += len(anns)
		stats.Events += len(events)
		logger.Info("session migrated",
			zap.String("session", s),
			zap.Int("annotations", len(anns)),
			zap.Int("events", len(events)))
	}
	return stats, nil
}
