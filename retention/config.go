package retention

import (
	"time"

	"github.com/gogpu/ink"
)

// Default configuration constants.
const (
	DefaultMaxHistorySize     = 5000
	DefaultMaxMemoryMB        = 100
	DefaultMinRetainedStrokes = 100
	DefaultMaxStrokeAge       = 24 * time.Hour
	DefaultCleanupInterval    = 5 * time.Minute
	DefaultBackupCapacity     = 1000

	// historyLen is the number of cleanup results kept for inspection.
	historyLen = 32
)

// Config configures a Manager.
type Config struct {
	// MaxHistorySize caps the resident stroke count after a cleanup.
	MaxHistorySize int
	// MaxMemoryMB is the resident memory budget. Fractional values are
	// allowed.
	MaxMemoryMB float64
	// MinRetainedStrokes is the floor no cleanup goes below.
	MinRetainedStrokes int
	// MaxStrokeAge is the stroke age (from its Timestamp) past which a
	// stroke is evicted by the first cleanup pass.
	MaxStrokeAge time.Duration
	// CleanupInterval is the period at which owners should call Cleanup.
	CleanupInterval time.Duration
	// BackupCapacity bounds the default in-memory backup store.
	// Zero disables backup unless a store is supplied with WithBackupStore.
	BackupCapacity int
	// Scoring tunes the importance heuristic.
	Scoring Scoring
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() Config {
	return Config{
		MaxHistorySize:     DefaultMaxHistorySize,
		MaxMemoryMB:        DefaultMaxMemoryMB,
		MinRetainedStrokes: DefaultMinRetainedStrokes,
		MaxStrokeAge:       DefaultMaxStrokeAge,
		CleanupInterval:    DefaultCleanupInterval,
		BackupCapacity:     DefaultBackupCapacity,
		Scoring:            DefaultScoring(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for _, err := range []error{
		ink.RequirePositive("retention", "MaxHistorySize", c.MaxHistorySize),
		ink.RequirePositive("retention", "MaxMemoryMB", c.MaxMemoryMB),
		ink.RequireNonNegative("retention", "MinRetainedStrokes", c.MinRetainedStrokes),
		ink.RequirePositive("retention", "MaxStrokeAge", int64(c.MaxStrokeAge)),
		ink.RequirePositive("retention", "CleanupInterval", int64(c.CleanupInterval)),
		ink.RequireNonNegative("retention", "BackupCapacity", c.BackupCapacity),
	} {
		if err != nil {
			return err
		}
	}
	if c.MinRetainedStrokes > c.MaxHistorySize {
		return &ink.ConfigError{Component: "retention", Field: "MinRetainedStrokes", Reason: "exceeds MaxHistorySize"}
	}
	return c.Scoring.Validate()
}
