// Package pool recycles stroke records during active drawing.
//
// Pointer input produces many short-lived strokes. Pool keeps a free list of
// cleared records whose point buffers retain their capacity, so steady-state
// drawing allocates nothing.
//
// Usage:
//
//	p, _ := pool.New(pool.DefaultConfig())
//	s := p.Acquire()
//	s.ID = id
//	s.AppendPoint(x, y)
//	// ... stroke completes, copy it out ...
//	p.Release(s)
//
// Misuse never breaks drawing: invalid releases are logged, ignored and
// counted in Stats.
package pool

import (
	"slices"
	"sync"
	"time"

	"github.com/gogpu/ink"
)

// Default configuration constants.
const (
	DefaultInitialSize        = 100
	DefaultMaxSize            = 1000
	DefaultMaxPointsPerStroke = 10000
	DefaultPointCapacity      = 1024
	DefaultMaxMemoryMB        = 10
)

// Config configures a Pool.
type Config struct {
	// InitialSize is the number of records created up front.
	InitialSize int
	// MaxSize caps the number of free records kept for reuse.
	MaxSize int
	// MaxPointsPerStroke is the largest point count a released record may
	// carry and still be pooled. Larger records are dropped.
	MaxPointsPerStroke int
	// PointCapacity is the initial coordinate capacity of new records.
	PointCapacity int
	// MaxMemoryMB is the free-list memory above which Maintain trims.
	MaxMemoryMB int
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		InitialSize:        DefaultInitialSize,
		MaxSize:            DefaultMaxSize,
		MaxPointsPerStroke: DefaultMaxPointsPerStroke,
		PointCapacity:      DefaultPointCapacity,
		MaxMemoryMB:        DefaultMaxMemoryMB,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for _, err := range []error{
		ink.RequireNonNegative("pool", "InitialSize", c.InitialSize),
		ink.RequirePositive("pool", "MaxSize", c.MaxSize),
		ink.RequirePositive("pool", "MaxPointsPerStroke", c.MaxPointsPerStroke),
		ink.RequireNonNegative("pool", "PointCapacity", c.PointCapacity),
		ink.RequirePositive("pool", "MaxMemoryMB", c.MaxMemoryMB),
	} {
		if err != nil {
			return err
		}
	}
	if c.InitialSize > c.MaxSize {
		return &ink.ConfigError{Component: "pool", Field: "InitialSize", Reason: "exceeds MaxSize"}
	}
	return nil
}

// Stroke is a pooled stroke record. The embedded ink.Stroke is filled by
// the caller between Acquire and Release.
type Stroke struct {
	ink.Stroke

	owner    *Pool
	inUse    bool
	lastUsed time.Time
}

// AppendPoint adds one coordinate pair, growing the buffer only when the
// retained capacity is exhausted.
func (s *Stroke) AppendPoint(x, y float64) {
	s.Points = append(s.Points, x, y)
}

// AppendPressure adds one pressure sample.
func (s *Stroke) AppendPressure(p float64) {
	s.Pressure = append(s.Pressure, p)
}

// InUse reports whether the record is currently acquired.
func (s *Stroke) InUse() bool {
	return s.inUse
}

// Snapshot returns an independent copy of the filled stroke, suitable for
// handing to components that outlive the pooled record.
func (s *Stroke) Snapshot() *ink.Stroke {
	return s.Stroke.Clone()
}

// reset clears every field while keeping buffer capacity.
func (s *Stroke) reset() {
	points := s.Points[:0]
	pressure := s.Pressure[:0]
	s.Stroke = ink.Stroke{Points: points, Pressure: pressure}
}

func (s *Stroke) byteSize() int64 {
	return int64(cap(s.Points)+cap(s.Pressure))*8 + 128
}

// Pool manages reusable stroke records.
//
// Pool is safe for concurrent use.
type Pool struct {
	mu   sync.Mutex
	cfg  Config
	free []*Stroke
	now  func() time.Time

	inUse           int
	hits            uint64
	misses          uint64
	released        uint64
	discarded       uint64
	invalidReleases uint64
	trimmed         uint64
}

// New creates a pool and pre-allocates cfg.InitialSize records.
func New(cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pool{
		cfg:  cfg,
		free: make([]*Stroke, 0, cfg.MaxSize),
		now:  time.Now,
	}
	p.Warmup(cfg.InitialSize)
	return p, nil
}

// Warmup tops the free list up to count records so that the next count
// acquisitions do not allocate.
func (p *Pool) Warmup(count int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	count = min(count, p.cfg.MaxSize)
	for len(p.free) < count {
		p.free = append(p.free, p.newStroke())
	}
}

// Acquire returns a cleared record marked in use. A record is popped from
// the free list when available; otherwise a new one is constructed and
// counted as a miss.
func (p *Pool) Acquire() *Stroke {
	p.mu.Lock()
	defer p.mu.Unlock()

	var s *Stroke
	if n := len(p.free); n > 0 {
		s = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.hits++
	} else {
		s = p.newStroke()
		p.misses++
	}
	s.reset()
	s.inUse = true
	s.lastUsed = p.now()
	p.inUse++
	return s
}

// Release returns a record to the pool.
//
// Releasing nil, a record that is not in use, or a record from another pool
// is logged and ignored. Records holding more than MaxPointsPerStroke
// points, or arriving when the free list is full, are dropped instead of
// pooled.
func (p *Pool) Release(s *Stroke) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s == nil || s.owner != p || !s.inUse {
		p.invalidReleases++
		id := ""
		if s != nil {
			id = s.ID
		}
		ink.Logger().Warn("pool: ignoring release of stroke not acquired from this pool", "id", id)
		return
	}

	s.inUse = false
	s.lastUsed = p.now()
	p.inUse--
	p.released++

	if s.NumPoints() > p.cfg.MaxPointsPerStroke || len(p.free) >= p.cfg.MaxSize {
		p.discarded++
		s.owner = nil
		return
	}
	s.reset()
	p.free = append(p.free, s)
}

// Maintain trims the free list when its estimated memory exceeds
// MaxMemoryMB: the least recently used quarter of free records is dropped.
// It returns the number of records removed.
func (p *Pool) Maintain() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.freeBytes() <= int64(p.cfg.MaxMemoryMB)*ink.BytesPerMB {
		return 0
	}

	slices.SortFunc(p.free, func(a, b *Stroke) int {
		return a.lastUsed.Compare(b.lastUsed)
	})
	drop := max(len(p.free)/4, 1)
	for i := 0; i < drop; i++ {
		p.free[i].owner = nil
		p.free[i] = nil
	}
	p.free = slices.Delete(p.free, 0, drop)
	p.trimmed += uint64(drop)

	ink.Logger().Debug("pool: trimmed free list", "dropped", drop, "remaining", len(p.free))
	return drop
}

// Len returns the number of free records.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Stats contains pool statistics for monitoring.
type Stats struct {
	// Free is the number of records available for reuse.
	Free int
	// InUse is the number of records currently acquired.
	InUse int
	// Hits is the number of acquisitions served from the free list.
	Hits uint64
	// Misses is the number of acquisitions that constructed a new record.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0.0 to 1.0.
	HitRate float64
	// Released is the number of valid releases.
	Released uint64
	// Discarded is the number of released records dropped for size or
	// capacity reasons.
	Discarded uint64
	// InvalidReleases is the number of ignored releases.
	InvalidReleases uint64
	// Trimmed is the number of free records dropped by Maintain.
	Trimmed uint64
	// EstimatedBytes is the memory held by free records.
	EstimatedBytes int64
}

// Stats returns current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var hitRate float64
	if total := p.hits + p.misses; total > 0 {
		hitRate = float64(p.hits) / float64(total)
	}
	return Stats{
		Free:            len(p.free),
		InUse:           p.inUse,
		Hits:            p.hits,
		Misses:          p.misses,
		HitRate:         hitRate,
		Released:        p.released,
		Discarded:       p.discarded,
		InvalidReleases: p.invalidReleases,
		Trimmed:         p.trimmed,
		EstimatedBytes:  p.freeBytes(),
	}
}

// Caller must hold p.mu.
func (p *Pool) newStroke() *Stroke {
	return &Stroke{
		Stroke: ink.Stroke{
			Points: make([]float64, 0, p.cfg.PointCapacity),
		},
		owner:    p,
		lastUsed: p.now(),
	}
}

// Caller must hold p.mu.
func (p *Pool) freeBytes() int64 {
	var n int64
	for _, s := range p.free {
		n += s.byteSize()
	}
	return n
}
