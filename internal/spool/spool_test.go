package spool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminjonard/sagittarius/internal/stats"
)

func newTestSpool(t *testing.T) *Spool {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "stats_backup.json"))
}

func TestSpool_SaveLoadRoundTrip(t *testing.T) {
	sp := newTestSpool(t)

	snap := stats.Snapshot{
		TotalKeys:   10,
		TotalClicks: 4,
		TotalWheels: 7,
		Events: map[string]uint64{
			"KEY_A":          6,
			"KEY_SPACE":      4,
			"CLICK_LEFT":     4,
			"WHEEL_VERTICAL": 7,
		},
	}

	require.NoError(t, sp.Save(snap))

	loaded, err := sp.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snap, *loaded)
}

func TestSpool_LoadMissingFile(t *testing.T) {
	sp := newTestSpool(t)

	loaded, err := sp.Load()
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSpool_LoadCorruptFileIsNotFatal(t *testing.T) {
	sp := newTestSpool(t)
	require.NoError(t, os.WriteFile(sp.Path(), []byte("{not json"), 0644))

	loaded, err := sp.Load()
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSpool_SaveOverwritesPrevious(t *testing.T) {
	sp := newTestSpool(t)

	require.NoError(t, sp.Save(stats.Snapshot{
		TotalKeys: 1,
		Events:    map[string]uint64{"KEY_A": 1},
	}))
	require.NoError(t, sp.Save(stats.Snapshot{
		TotalKeys: 5,
		Events:    map[string]uint64{"KEY_A": 5},
	}))

	loaded, err := sp.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, uint64(5), loaded.TotalKeys)
	assert.Equal(t, uint64(5), loaded.Events["KEY_A"])
}

func TestSpool_Clear(t *testing.T) {
	sp := newTestSpool(t)

	// Clearing a clean state is not an error.
	assert.NoError(t, sp.Clear())

	require.NoError(t, sp.Save(stats.Snapshot{TotalKeys: 1, Events: map[string]uint64{"KEY_A": 1}}))
	require.NoError(t, sp.Clear())

	_, err := os.Stat(sp.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestSpool_LoadNormalizesNilEvents(t *testing.T) {
	sp := newTestSpool(t)
	require.NoError(t, os.WriteFile(sp.Path(), []byte(`{"total_keys":2,"total_clicks":0,"total_wheels":0}`), 0644))

	loaded, err := sp.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.NotNil(t, loaded.Events)
	assert.Equal(t, uint64(2), loaded.TotalKeys)
}
