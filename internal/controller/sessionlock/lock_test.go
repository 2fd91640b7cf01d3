package sessionlock_test

import (
	"errors"
	"path/filepath"
	"testing"

	"surgitrack/internal/controller/sessionlock"
)

func TestAcquireIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.lock")

	first, err := sessionlock.Acquire(path)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if first.Path() != path {
		t.Fatalf("Path = %q, want %q", first.Path(), path)
	}

	if _, err := sessionlock.Acquire(path); !errors.Is(err, sessionlock.ErrSessionLocked) {
		t.Fatalf("expected ErrSessionLocked, got %v", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}

	second, err := sessionlock.Acquire(path)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	t.Cleanup(func() { _ = second.Release() })
}
