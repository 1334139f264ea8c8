package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Note model related methods.
	// CreateNotes and UpdateNotes apply all rows in one transaction.
	CreateNotes(ctx context.Context, creates []*Note) ([]*Note, error)
	ListNotes(ctx context.Context, find *FindNote) ([]*Note, error)
	UpdateNotes(ctx context.Context, updates []*UpdateNote) error
	DeleteNote(ctx context.Context, delete *DeleteNote) error
}
