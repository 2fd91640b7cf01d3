package testsupport

import (
	"context"
	"testing"

	"surgitrack/internal/config"
	"surgitrack/internal/history"
)

// MustOpenHistory opens the ledger configured in cfg and closes it when the
// test finishes.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
