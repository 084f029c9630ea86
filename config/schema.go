package config

import (
	"fmt"
	"time"

	"github.com/gogpu/ink"
	"github.com/gogpu/ink/render"
	"github.com/gogpu/ink/surface"
)

// File is the on-disk configuration schema. Durations are Go duration
// strings such as "5m" or "24h".
type File struct {
	Pool        PoolSection        `toml:"pool" mapstructure:"pool"`
	Cull        CullSection        `toml:"cull" mapstructure:"cull"`
	Cache       CacheSection       `toml:"cache" mapstructure:"cache"`
	Retention   RetentionSection   `toml:"retention" mapstructure:"retention"`
	Maintenance MaintenanceSection `toml:"maintenance" mapstructure:"maintenance"`
	Render      RenderSection      `toml:"render" mapstructure:"render"`
}

type PoolSection struct {
	InitialSize        int `toml:"initial_size" mapstructure:"initial_size"`
	MaxSize            int `toml:"max_size" mapstructure:"max_size"`
	MaxPointsPerStroke int `toml:"max_points_per_stroke" mapstructure:"max_points_per_stroke"`
	PointCapacity      int `toml:"point_capacity" mapstructure:"point_capacity"`
	MaxMemoryMB        int `toml:"max_memory_mb" mapstructure:"max_memory_mb"`
}

type CullSection struct {
	MinStrokesPerCell int     `toml:"min_strokes_per_cell" mapstructure:"min_strokes_per_cell"`
	MaxDepth          int     `toml:"max_depth" mapstructure:"max_depth"`
	Margin            float64 `toml:"margin" mapstructure:"margin"`
	EnableLOD         bool    `toml:"enable_lod" mapstructure:"enable_lod"`
	LODDistance       float64 `toml:"lod_distance" mapstructure:"lod_distance"`
	LODMinWidth       float64 `toml:"lod_min_width" mapstructure:"lod_min_width"`
}

type CacheSection struct {
	MaxEntries   int     `toml:"max_entries" mapstructure:"max_entries"`
	MaxMemoryMB  float64 `toml:"max_memory_mb" mapstructure:"max_memory_mb"`
	MaxAge       string  `toml:"max_age" mapstructure:"max_age"`
	WarmFraction float64 `toml:"warm_fraction" mapstructure:"warm_fraction"`
}

type RetentionSection struct {
	MaxHistorySize     int     `toml:"max_history_size" mapstructure:"max_history_size"`
	MaxMemoryMB        float64 `toml:"max_memory_mb" mapstructure:"max_memory_mb"`
	MinRetainedStrokes int     `toml:"min_retained_strokes" mapstructure:"min_retained_strokes"`
	MaxStrokeAge       string  `toml:"max_stroke_age" mapstructure:"max_stroke_age"`
	CleanupInterval    string  `toml:"cleanup_interval" mapstructure:"cleanup_interval"`
	BackupCapacity     int     `toml:"backup_capacity" mapstructure:"backup_capacity"`
	// BackupPath, when set, keeps evicted strokes in a SQLite database
	// instead of memory.
	BackupPath string         `toml:"backup_path" mapstructure:"backup_path"`
	Scoring    ScoringSection `toml:"scoring" mapstructure:"scoring"`
}

type ScoringSection struct {
	CollaborativeBoost float64 `toml:"collaborative_boost" mapstructure:"collaborative_boost"`
	AgeHalfLife        string  `toml:"age_half_life" mapstructure:"age_half_life"`
	RecencyWindow      string  `toml:"recency_window" mapstructure:"recency_window"`
	MinImportance      float64 `toml:"min_importance" mapstructure:"min_importance"`
}

type MaintenanceSection struct {
	PoolMaintainInterval string `toml:"pool_maintain_interval" mapstructure:"pool_maintain_interval"`
	CacheSweepInterval   string `toml:"cache_sweep_interval" mapstructure:"cache_sweep_interval"`
}

type RenderSection struct {
	Background    string  `toml:"background" mapstructure:"background"`
	FallbackColor string  `toml:"fallback_color" mapstructure:"fallback_color"`
	ShowBounds    bool    `toml:"show_bounds" mapstructure:"show_bounds"`
	Margin        float64 `toml:"margin" mapstructure:"margin"`
}

// Default returns the schema filled with every component default.
func Default() File {
	sc := surface.DefaultConfig()
	ro := render.DefaultOptions()
	return File{
		Pool: PoolSection{
			InitialSize:        sc.Pool.InitialSize,
			MaxSize:            sc.Pool.MaxSize,
			MaxPointsPerStroke: sc.Pool.MaxPointsPerStroke,
			PointCapacity:      sc.Pool.PointCapacity,
			MaxMemoryMB:        sc.Pool.MaxMemoryMB,
		},
		Cull: CullSection{
			MinStrokesPerCell: sc.Cull.MinStrokesPerCell,
			MaxDepth:          sc.Cull.MaxDepth,
			Margin:            sc.Cull.Margin,
			EnableLOD:         sc.Cull.EnableLOD,
			LODDistance:       sc.Cull.LODDistance,
			LODMinWidth:       sc.Cull.LODMinWidth,
		},
		Cache: CacheSection{
			MaxEntries:   sc.Cache.MaxEntries,
			MaxMemoryMB:  sc.Cache.MaxMemoryMB,
			MaxAge:       sc.Cache.MaxAge.String(),
			WarmFraction: sc.Cache.WarmFraction,
		},
		Retention: RetentionSection{
			MaxHistorySize:     sc.Retention.MaxHistorySize,
			MaxMemoryMB:        sc.Retention.MaxMemoryMB,
			MinRetainedStrokes: sc.Retention.MinRetainedStrokes,
			MaxStrokeAge:       sc.Retention.MaxStrokeAge.String(),
			CleanupInterval:    sc.Retention.CleanupInterval.String(),
			BackupCapacity:     sc.Retention.BackupCapacity,
			Scoring: ScoringSection{
				CollaborativeBoost: sc.Retention.Scoring.CollaborativeBoost,
				AgeHalfLife:        sc.Retention.Scoring.AgeHalfLife.String(),
				RecencyWindow:      sc.Retention.Scoring.RecencyWindow.String(),
				MinImportance:      sc.Retention.Scoring.MinImportance,
			},
		},
		Maintenance: MaintenanceSection{
			PoolMaintainInterval: sc.PoolMaintainInterval.String(),
			CacheSweepInterval:   sc.CacheSweepInterval.String(),
		},
		Render: RenderSection{
			Background:    ro.Background,
			FallbackColor: ro.FallbackColor,
			ShowBounds:    ro.ShowBounds,
			Margin:        ro.Margin,
		},
	}
}

// Surface converts the schema into a validated surface configuration.
// Scoring parameters not exposed in the file keep their defaults.
func (f File) Surface() (surface.Config, error) {
	sc := surface.DefaultConfig()

	sc.Pool.InitialSize = f.Pool.InitialSize
	sc.Pool.MaxSize = f.Pool.MaxSize
	sc.Pool.MaxPointsPerStroke = f.Pool.MaxPointsPerStroke
	sc.Pool.PointCapacity = f.Pool.PointCapacity
	sc.Pool.MaxMemoryMB = f.Pool.MaxMemoryMB

	sc.Cull.MinStrokesPerCell = f.Cull.MinStrokesPerCell
	sc.Cull.MaxDepth = f.Cull.MaxDepth
	sc.Cull.Margin = f.Cull.Margin
	sc.Cull.EnableLOD = f.Cull.EnableLOD
	sc.Cull.LODDistance = f.Cull.LODDistance
	sc.Cull.LODMinWidth = f.Cull.LODMinWidth

	sc.Cache.MaxEntries = f.Cache.MaxEntries
	sc.Cache.MaxMemoryMB = f.Cache.MaxMemoryMB
	sc.Cache.WarmFraction = f.Cache.WarmFraction

	sc.Retention.MaxHistorySize = f.Retention.MaxHistorySize
	sc.Retention.MaxMemoryMB = f.Retention.MaxMemoryMB
	sc.Retention.MinRetainedStrokes = f.Retention.MinRetainedStrokes
	sc.Retention.BackupCapacity = f.Retention.BackupCapacity
	sc.Retention.Scoring.CollaborativeBoost = f.Retention.Scoring.CollaborativeBoost
	sc.Retention.Scoring.MinImportance = f.Retention.Scoring.MinImportance

	for _, d := range []struct {
		field string
		raw   string
		dst   *time.Duration
	}{
		{"cache.max_age", f.Cache.MaxAge, &sc.Cache.MaxAge},
		{"retention.max_stroke_age", f.Retention.MaxStrokeAge, &sc.Retention.MaxStrokeAge},
		{"retention.cleanup_interval", f.Retention.CleanupInterval, &sc.Retention.CleanupInterval},
		{"retention.scoring.age_half_life", f.Retention.Scoring.AgeHalfLife, &sc.Retention.Scoring.AgeHalfLife},
		{"retention.scoring.recency_window", f.Retention.Scoring.RecencyWindow, &sc.Retention.Scoring.RecencyWindow},
		{"maintenance.pool_maintain_interval", f.Maintenance.PoolMaintainInterval, &sc.PoolMaintainInterval},
		{"maintenance.cache_sweep_interval", f.Maintenance.CacheSweepInterval, &sc.CacheSweepInterval},
	} {
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return surface.Config{}, &ink.ConfigError{Component: "config", Field: d.field, Reason: fmt.Sprintf("bad duration %q", d.raw)}
		}
		*d.dst = v
	}

	if err := sc.Validate(); err != nil {
		return surface.Config{}, err
	}
	return sc, nil
}

// RenderOptions converts the render section, keeping default overlay
// colors.
func (f File) RenderOptions() render.Options {
	ro := render.DefaultOptions()
	ro.Background = f.Render.Background
	ro.FallbackColor = f.Render.FallbackColor
	ro.ShowBounds = f.Render.ShowBounds
	ro.Margin = f.Render.Margin
	return ro
}
