package dataset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotAt(t *testing.T, generatedAt time.Time) Snapshot {
	t.Helper()
	snap, err := NewSnapshot(validMonths(), validRecords(), nil, generatedAt)
	require.NoError(t, err)
	return snap
}

func TestStore(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("empty store is not ready", func(t *testing.T) {
		s := NewStore()

		_, ok := s.Snapshot()
		assert.False(t, ok)
		assert.Error(t, s.CheckReadiness(context.Background()))
	})

	t.Run("replace installs and readiness flips", func(t *testing.T) {
		s := NewStore()
		snap := snapshotAt(t, base)

		assert.True(t, s.Replace(snap))

		got, ok := s.Snapshot()
		require.True(t, ok)
		assert.Equal(t, snap.Version, got.Version)
		assert.NoError(t, s.CheckReadiness(context.Background()))
	})

	t.Run("newer snapshot wins", func(t *testing.T) {
		s := NewStore()
		older := snapshotAt(t, base)
		newer := snapshotAt(t, base.Add(time.Hour))

		require.True(t, s.Replace(older))
		require.True(t, s.Replace(newer))

		got, _ := s.Snapshot()
		assert.Equal(t, newer.Version, got.Version)
	})

	t.Run("staler snapshot never overwrites", func(t *testing.T) {
		s := NewStore()
		newer := snapshotAt(t, base.Add(time.Hour))
		older := snapshotAt(t, base)

		require.True(t, s.Replace(newer))
		assert.False(t, s.Replace(older))

		got, _ := s.Snapshot()
		assert.Equal(t, newer.Version, got.Version)
	})
}
