package sqlitestore

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ink"
	"github.com/gogpu/ink/retention"
)

func openTestStore(t *testing.T, capacity int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "backup.db"), capacity)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func entry(id string, points ...float64) retention.BackupEntry {
	return retention.BackupEntry{
		Stroke: &ink.Stroke{
			ID:        id,
			Points:    points,
			Color:     "#ff0000",
			Size:      3,
			Timestamp: 1700000000000,
			UserID:    "user-1",
		},
		EvictedAt: time.UnixMilli(1700000100000),
	}
}

func TestPutTakeRoundTrip(t *testing.T) {
	s := openTestStore(t, 10)

	e := entry("a", 1, 2, 3.5, -4)
	e.Collaborative = true
	e.Stroke.Pressure = []float64{0.25, 0.75}
	s.Put(e)
	require.Equal(t, 1, s.Len())

	got, ok := s.Take("a")
	require.True(t, ok)
	assert.Equal(t, e.Stroke, got.Stroke)
	assert.True(t, got.Collaborative)
	assert.True(t, got.EvictedAt.Equal(e.EvictedAt))
	assert.Equal(t, 0, s.Len())

	_, ok = s.Take("a")
	assert.False(t, ok)
	assert.Zero(t, s.Errors())
}

func TestPutWithoutPressure(t *testing.T) {
	s := openTestStore(t, 10)
	s.Put(entry("a", 0, 0, 10, 10))

	got, ok := s.Take("a")
	require.True(t, ok)
	assert.Empty(t, got.Stroke.Pressure)
	assert.NoError(t, got.Stroke.Validate())
}

func TestDelete(t *testing.T) {
	s := openTestStore(t, 10)
	s.Put(entry("a", 1, 2))
	s.Put(entry("b", 3, 4))

	assert.True(t, s.Delete("a"))
	assert.False(t, s.Delete("a"))
	assert.Equal(t, 1, s.Len())

	_, ok := s.Take("a")
	assert.False(t, ok)
	_, ok = s.Take("b")
	assert.True(t, ok)
	assert.Zero(t, s.Errors())
}

func TestCapacityDisplacesOldest(t *testing.T) {
	s := openTestStore(t, 3)
	for i := 0; i < 5; i++ {
		s.Put(entry(fmt.Sprintf("s%d", i), float64(i), 0))
	}
	require.Equal(t, 3, s.Len())

	for _, id := range []string{"s0", "s1"} {
		_, ok := s.Take(id)
		assert.False(t, ok, "%s should be displaced", id)
	}
	for _, id := range []string{"s2", "s3", "s4"} {
		_, ok := s.Take(id)
		assert.True(t, ok, "%s should be stored", id)
	}
}

func TestPutReplacesAndRefreshes(t *testing.T) {
	s := openTestStore(t, 2)
	s.Put(entry("a", 1, 1))
	s.Put(entry("b", 2, 2))
	s.Put(entry("a", 9, 9, 8, 8))
	s.Put(entry("c", 3, 3))

	assert.Equal(t, 2, s.Len())
	_, ok := s.Take("b")
	assert.False(t, ok, "b was the least recently written")

	got, ok := s.Take("a")
	require.True(t, ok)
	assert.Equal(t, []float64{9, 9, 8, 8}, got.Stroke.Points)
}

func TestOpenRejectsZeroCapacity(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x.db"), 0)
	assert.ErrorIs(t, err, ink.ErrInvalidConfig)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.db")
	s, err := Open(path, 10)
	require.NoError(t, err)
	s.Put(entry("a", 1, 2))
	require.NoError(t, s.Close())

	s, err = Open(path, 10)
	require.NoError(t, err)
	defer s.Close()
	_, ok := s.Take("a")
	assert.True(t, ok)
}

func TestManagerRestoresFromSQLite(t *testing.T) {
	s := openTestStore(t, 10)
	m, err := retention.New(retention.DefaultConfig(), retention.WithBackupStore(s))
	require.NoError(t, err)

	st := entry("a", 1, 2, 3, 4).Stroke
	m.Add(st, false)
	require.True(t, m.Remove("a", true))
	require.Equal(t, 1, s.Len())

	got, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, st.Points, got.Points)
	assert.Equal(t, 0, s.Len())
}

func TestManagerDeleteReachesSQLite(t *testing.T) {
	s := openTestStore(t, 10)
	m, err := retention.New(retention.DefaultConfig(), retention.WithBackupStore(s))
	require.NoError(t, err)

	m.Add(entry("a", 1, 2, 3, 4).Stroke, false)
	require.True(t, m.Remove("a", true))
	require.Equal(t, 1, s.Len())

	assert.True(t, m.Remove("a", false))
	assert.Equal(t, 0, s.Len())
	_, ok := m.Get("a")
	assert.False(t, ok)
}
