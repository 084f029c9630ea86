package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/ink"
	"github.com/gogpu/ink/render"
	"github.com/gogpu/ink/surface"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ink.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	f, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), f)

	sc, err := f.Surface()
	require.NoError(t, err)
	assert.Equal(t, surface.DefaultConfig(), sc)
	assert.Equal(t, render.DefaultOptions(), f.RenderOptions())
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeFile(t, `
[cull]
enable_lod = true
margin = 50.0

[retention]
max_memory_mb = 12.5
max_stroke_age = "2h"

[retention.scoring]
collaborative_boost = 2.0
`)
	f, err := Load(viper.New(), path)
	require.NoError(t, err)

	sc, err := f.Surface()
	require.NoError(t, err)
	assert.True(t, sc.Cull.EnableLOD)
	assert.Equal(t, 50.0, sc.Cull.Margin)
	assert.Equal(t, 12.5, sc.Retention.MaxMemoryMB)
	assert.Equal(t, 2*time.Hour, sc.Retention.MaxStrokeAge)
	assert.Equal(t, 2.0, sc.Retention.Scoring.CollaborativeBoost)

	def := surface.DefaultConfig()
	assert.Equal(t, def.Pool, sc.Pool)
	assert.Equal(t, def.Retention.MaxHistorySize, sc.Retention.MaxHistorySize)
	assert.Equal(t, def.Retention.CleanupInterval, sc.Retention.CleanupInterval)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "[retention]\nmax_history_size = 300\n")
	t.Setenv("INK_RETENTION_MAX_HISTORY_SIZE", "200")
	t.Setenv("INK_CACHE_MAX_AGE", "90s")

	f, err := Load(viper.New(), path)
	require.NoError(t, err)

	sc, err := f.Surface()
	require.NoError(t, err)
	assert.Equal(t, 200, sc.Retention.MaxHistorySize)
	assert.Equal(t, 90*time.Second, sc.Cache.MaxAge)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	_, err := Load(viper.New(), writeFile(t, "[pool\nmax_size = "))
	assert.Error(t, err)
}

func TestSurfaceRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*File)
	}{
		{"bad duration", func(f *File) { f.Retention.CleanupInterval = "soon" }},
		{"zero pool size", func(f *File) { f.Pool.MaxSize = 0 }},
		{"warm fraction above one", func(f *File) { f.Cache.WarmFraction = 1.5 }},
		{"negative sweep", func(f *File) { f.Maintenance.CacheSweepInterval = "-1s" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Default()
			tt.mutate(&f)
			_, err := f.Surface()
			assert.ErrorIs(t, err, ink.ErrInvalidConfig)
		})
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDefault(&buf))
	assert.Contains(t, buf.String(), "max_history_size = 5000")
	assert.Contains(t, buf.String(), "[retention.scoring]")

	path := writeFile(t, buf.String())
	f, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, Default(), f)
}

func TestRenderOptions(t *testing.T) {
	f := Default()
	f.Render.ShowBounds = true
	f.Render.Margin = 25
	f.Render.Background = "#101010"

	ro := f.RenderOptions()
	assert.True(t, ro.ShowBounds)
	assert.Equal(t, 25.0, ro.Margin)
	assert.Equal(t, "#101010", ro.Background)
	assert.Equal(t, render.DefaultOptions().BoundsColor, ro.BoundsColor)
}
