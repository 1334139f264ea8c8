package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hrygo/quillnote/internal/profile"
	"github.com/hrygo/quillnote/store"
	"github.com/hrygo/quillnote/store/db"
)

// NewTestingStore opens a migrated store for the driver named by
// QUILLNOTE_TEST_DRIVER (sqlite by default).
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()

	prof := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(prof)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	s := store.New(dbDriver, prof)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	t.Helper()

	dir := t.TempDir()
	mode := "dev"
	driver := getDriverFromEnv()

	var dsn string
	switch driver {
	case "sqlite":
		dsn = filepath.Join(dir, fmt.Sprintf("quillnote_%s.db", mode))
	case "postgres":
		dsn = GetPostgresDSN(t)
	default:
		t.Fatalf("unsupported test driver: %s", driver)
	}

	return &profile.Profile{
		Mode:    mode,
		Data:    dir,
		DSN:     dsn,
		Driver:  driver,
		Version: "test",
	}
}

func getDriverFromEnv() string {
	driver := os.Getenv("QUILLNOTE_TEST_DRIVER")
	if driver == "" {
		driver = "sqlite"
	}
	return driver
}
