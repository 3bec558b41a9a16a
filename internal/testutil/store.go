package testutil

import (
	"context"
	"testing"

	"github.com/leapstack-labs/promgen/internal/state"
	"github.com/stretchr/testify/require"
)

// NewStore returns a migrated in-memory store that is closed when the test
// ends.
func NewStore(t testing.TB) *state.SQLiteStore {
	t.Helper()
	store, err := state.OpenStore(context.Background(), ":memory:", NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
