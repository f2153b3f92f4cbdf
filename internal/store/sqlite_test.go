package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := NewSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	t.Run("GetMissing", func(t *testing.T) {
		_, ok, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SetOverwritesOnConflict", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "k", "v1"))
		require.NoError(t, s.Set(ctx, "k", "v2"))

		val, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "v2", val)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "gone", "v"))
		require.NoError(t, s.Delete(ctx, "gone"))

		_, ok, err := s.Get(ctx, "gone")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SurvivesReopen", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, SessionKey("p1"), `{"answers":{}}`))
		require.NoError(t, s.Close())

		reopened, err := NewSQLite(path)
		require.NoError(t, err)
		defer reopened.Close()

		val, ok, err := reopened.Get(ctx, SessionKey("p1"))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, `{"answers":{}}`, val)
	})
}
