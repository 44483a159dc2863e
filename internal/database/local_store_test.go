package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/zmuhls/cloze-reader/backend/internal/hub"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "store.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	store, err := NewLocalStore(db, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to build local store: %v", err)
	}
	return store
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite("", zap.NewNop()); err == nil {
		t.Fatalf("expected error for empty database path")
	}
}

func TestNewLocalStoreRequiresDatabase(t *testing.T) {
	if _, err := NewLocalStore(nil, zap.NewNop()); err == nil {
		t.Fatalf("expected error for missing database handle")
	}
}

func TestFetchMissingKeyReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Fetch(context.Background(), "leaderboard.json")
	if !errors.Is(err, hub.ErrNotFound) {
		t.Fatalf("expected hub.ErrNotFound, got %v", err)
	}
}

func TestCommitThenFetchRoundTrips(t *testing.T) {
	store := newTestStore(t)
	content := []byte(`{"leaderboard":[],"last_updated":"2024-06-15T12:30:45Z","version":"1.0"}`)

	if err := store.Commit(context.Background(), "leaderboard.json", content, "update"); err != nil {
		t.Fatalf("unexpected commit error: %v", err)
	}

	fetched, err := store.Fetch(context.Background(), "leaderboard.json")
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if string(fetched) != string(content) {
		t.Fatalf("fetched content does not match committed content")
	}
}

func TestCommitReplacesPreviousContent(t *testing.T) {
	store := newTestStore(t)

	if err := store.Commit(context.Background(), "leaderboard.json", []byte("first"), "one"); err != nil {
		t.Fatalf("unexpected commit error: %v", err)
	}
	if err := store.Commit(context.Background(), "leaderboard.json", []byte("second"), "two"); err != nil {
		t.Fatalf("unexpected commit error: %v", err)
	}

	fetched, err := store.Fetch(context.Background(), "leaderboard.json")
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if string(fetched) != "second" {
		t.Fatalf("expected last commit to win, got %q", fetched)
	}
}

func TestLocalStoreIsAlwaysWritable(t *testing.T) {
	if !newTestStore(t).CanWrite() {
		t.Fatalf("local store should always be writable")
	}
}
