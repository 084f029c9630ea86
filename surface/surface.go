// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/ink"
	"github.com/gogpu/ink/cache"
	"github.com/gogpu/ink/cull"
	"github.com/gogpu/ink/maintenance"
	"github.com/gogpu/ink/pool"
	"github.com/gogpu/ink/retention"
)

// Maintenance job names.
const (
	JobRetentionCleanup = "retention-cleanup"
	JobDeferredCleanup  = "retention-cleanup-deferred"
	JobPoolMaintain     = "pool-maintain"
	JobCacheSweep       = "cache-sweep"
)

// Default maintenance intervals not owned by a component config.
const (
	DefaultPoolMaintainInterval = 30 * time.Second
	DefaultCacheSweepInterval   = time.Minute
)

// Config configures a Surface.
type Config struct {
	Pool      pool.Config
	Cull      cull.Config
	Cache     cache.Config
	Retention retention.Config

	// PoolMaintainInterval is the period of pool trimming.
	PoolMaintainInterval time.Duration
	// CacheSweepInterval is the period of geometry expiry.
	CacheSweepInterval time.Duration
}

// DefaultConfig returns the default configuration of every component.
func DefaultConfig() Config {
	return Config{
		Pool:                 pool.DefaultConfig(),
		Cull:                 cull.DefaultConfig(),
		Cache:                cache.DefaultConfig(),
		Retention:            retention.DefaultConfig(),
		PoolMaintainInterval: DefaultPoolMaintainInterval,
		CacheSweepInterval:   DefaultCacheSweepInterval,
	}
}

// Validate checks the configuration of every component.
func (c Config) Validate() error {
	for _, err := range []error{
		c.Pool.Validate(),
		c.Cull.Validate(),
		c.Cache.Validate(),
		c.Retention.Validate(),
		ink.RequirePositive("surface", "PoolMaintainInterval", int64(c.PoolMaintainInterval)),
		ink.RequirePositive("surface", "CacheSweepInterval", int64(c.CacheSweepInterval)),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Option configures a Surface.
type Option func(*options)

type options struct {
	now    func() time.Time
	backup retention.BackupStore
	custom bool
}

// WithClock replaces the wall clock of the surface, its retention manager
// and its scheduler.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithBackupStore replaces the retention manager's in-memory backup store,
// for example with a sqlitestore.Store.
func WithBackupStore(s retention.BackupStore) Option {
	return func(o *options) {
		o.backup = s
		o.custom = true
	}
}

// Surface is the stroke memory of one drawing surface.
//
// Surface is safe for concurrent use.
type Surface struct {
	pool      *pool.Pool
	culler    *cull.Culler
	cache     *cache.GeometryCache
	retention *retention.Manager
	sched     *maintenance.Scheduler
	now       func() time.Time

	mu     sync.Mutex
	active map[string]*pool.Stroke

	// version counts resident set changes; Frame compares it around a
	// rebuild to detect changes the rebuild did not see.
	version atomic.Uint64

	frames     atomic.Uint64
	lastFrame  atomic.Int64
	committed  atomic.Uint64
	cancelled  atomic.Uint64
	unknownIDs atomic.Uint64
}

// New creates a surface and registers its maintenance jobs. The scheduler
// is idle until Start or Tick.
func New(cfg Config, opts ...Option) (*Surface, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	p, err := pool.New(cfg.Pool)
	if err != nil {
		return nil, err
	}
	c, err := cull.New(cfg.Cull)
	if err != nil {
		return nil, err
	}
	gc, err := cache.New(cfg.Cache)
	if err != nil {
		return nil, err
	}

	s := &Surface{
		pool:   p,
		culler: c,
		cache:  gc,
		sched:  maintenance.New(maintenance.WithClock(o.now)),
		now:    o.now,
		active: make(map[string]*pool.Stroke),
	}

	ropts := []retention.Option{
		retention.WithClock(o.now),
		retention.WithDeferrer(s.sched.Deferrer(JobDeferredCleanup)),
		retention.WithEvictionHandler(s.evicted),
		retention.WithRestoreHandler(s.restored),
	}
	if o.custom {
		ropts = append(ropts, retention.WithBackupStore(o.backup))
	}
	s.retention, err = retention.New(cfg.Retention, ropts...)
	if err != nil {
		return nil, err
	}

	jobs := []struct {
		name     string
		interval time.Duration
		fn       func()
	}{
		{JobRetentionCleanup, cfg.Retention.CleanupInterval, func() { s.retention.Cleanup() }},
		{JobPoolMaintain, cfg.PoolMaintainInterval, func() { s.pool.Maintain() }},
		{JobCacheSweep, cfg.CacheSweepInterval, func() { s.cache.Sweep() }},
	}
	for _, j := range jobs {
		if err := s.sched.Every(j.name, j.interval, j.fn); err != nil {
			return nil, fmt.Errorf("surface: register %s: %w", j.name, err)
		}
	}
	return s, nil
}

// evicted runs under the retention lock for every stroke leaving the
// resident set.
func (s *Surface) evicted(id string, _ retention.EvictReason) {
	s.cache.Invalidate(id)
	s.changed()
}

// restored runs under the retention lock for every stroke re-admitted
// from backup.
func (s *Surface) restored(*ink.Stroke) {
	s.changed()
}

func (s *Surface) changed() {
	s.version.Add(1)
	s.culler.MarkDirty()
}

// Start runs maintenance on a background goroutine until ctx is cancelled
// or Stop is called.
func (s *Surface) Start(ctx context.Context) error {
	return s.sched.Start(ctx)
}

// Stop stops background maintenance.
func (s *Surface) Stop() {
	s.sched.Stop()
}

// Tick runs due maintenance jobs synchronously, for hosts that drive the
// surface from their own frame loop. It returns the number of jobs run.
func (s *Surface) Tick(now time.Time) int {
	return s.sched.Tick(now)
}

// MaintenanceJobs reports the schedule of the repeating maintenance jobs.
func (s *Surface) MaintenanceJobs() []maintenance.JobStatus {
	return s.sched.Jobs()
}

// AddStroke commits a complete stroke, such as one received from a remote
// collaborator or loaded from storage. The surface takes ownership of s.
func (s *Surface) AddStroke(st *ink.Stroke, collaborative bool) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.retention.Add(st, collaborative)
	s.committed.Add(1)
	s.changed()
	return nil
}

// UpdateStroke replaces a committed stroke with an edited version.
func (s *Surface) UpdateStroke(st *ink.Stroke) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.retention.Update(st)
	s.cache.Invalidate(st.ID)
	s.changed()
	return nil
}

// RemoveStroke deletes a committed stroke, resident or already evicted to
// backup. Deleted strokes cannot be restored.
func (s *Surface) RemoveStroke(id string) bool {
	return s.retention.Remove(id, false)
}

// Stroke returns a committed stroke, restoring it from backup if it was
// evicted.
func (s *Surface) Stroke(id string) (*ink.Stroke, bool) {
	return s.retention.Get(id)
}

// Warm tessellates the most recent resident strokes ahead of the first
// frame, typically after loading a session. It returns the number of
// strokes tessellated.
func (s *Surface) Warm() int {
	return s.cache.Warm(s.retention.Strokes())
}

// Len returns the number of resident committed strokes.
func (s *Surface) Len() int {
	return s.retention.Len()
}

// Cleanup runs a retention sweep immediately.
func (s *Surface) Cleanup() retention.CleanupResult {
	return s.retention.Cleanup()
}

// newID returns a fresh stroke identifier.
func newID() string {
	return uuid.NewString()
}
