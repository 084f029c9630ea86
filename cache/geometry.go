package cache

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/ink"
	"github.com/gogpu/ink/internal/lru"
	"github.com/gogpu/ink/internal/parallel"
	"github.com/gogpu/ink/internal/stroke"
)

// Default configuration constants.
const (
	DefaultMaxEntries   = 1000
	DefaultMaxMemoryMB  = 50
	DefaultMaxAge       = 5 * time.Minute
	DefaultWarmFraction = 0.25

	// geometryOverhead approximates the fixed cost of a Geometry value.
	geometryOverhead = 160

	// parallelWarmMin is the smallest Warm batch tessellated on a
	// worker pool.
	parallelWarmMin = 32
)

// Config configures a GeometryCache.
type Config struct {
	// MaxEntries caps the number of cached geometries.
	MaxEntries int
	// MaxMemoryMB is the memory budget in megabytes. Fractional values are
	// allowed.
	MaxMemoryMB float64
	// MaxAge bounds how long an entry may stay cached regardless of use.
	// Enforced by Sweep.
	MaxAge time.Duration
	// WarmFraction is the share of MaxEntries that Warm may fill.
	WarmFraction float64
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxEntries:   DefaultMaxEntries,
		MaxMemoryMB:  DefaultMaxMemoryMB,
		MaxAge:       DefaultMaxAge,
		WarmFraction: DefaultWarmFraction,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for _, err := range []error{
		ink.RequirePositive("cache", "MaxEntries", c.MaxEntries),
		ink.RequirePositive("cache", "MaxMemoryMB", c.MaxMemoryMB),
		ink.RequirePositive("cache", "MaxAge", int64(c.MaxAge)),
		ink.RequireNonNegative("cache", "WarmFraction", c.WarmFraction),
	} {
		if err != nil {
			return err
		}
	}
	if c.WarmFraction > 1 {
		return &ink.ConfigError{Component: "cache", Field: "WarmFraction", Reason: "must be <= 1"}
	}
	return nil
}

// Geometry is the renderable form of one stroke.
//
// Vertices and Normals hold interleaved x,y float32 pairs, two vertices per
// stroke point. Indices is a triangle list. None of the buffers alias the
// source stroke.
type Geometry struct {
	StrokeID string
	Color    string
	Vertices []float32
	Normals  []float32
	Indices  []uint32
	Bounds   ink.Rect
	// Hash is the content hash of the stroke this geometry was built from.
	Hash uint64

	CreatedAt time.Time

	size int64
}

// Empty reports whether the geometry has no triangles (a stroke with fewer
// than 2 points).
func (g *Geometry) Empty() bool {
	return len(g.Indices) == 0
}

// ByteSize returns the estimated memory held by the geometry.
func (g *Geometry) ByteSize() int64 {
	return g.size
}

// build tessellates s into a new Geometry.
func build(s *ink.Stroke, now time.Time) *Geometry {
	m := stroke.Tessellate(s.Points, s.Size)
	g := &Geometry{
		StrokeID:     s.ID,
		Color:        s.Color,
		Vertices:     m.Vertices,
		Normals:      m.Normals,
		Indices:      m.Indices,
		Bounds:       m.Bounds,
		Hash:      s.Hash(),
		CreatedAt: now,
	}
	g.size = m.ByteSize() + int64(len(g.StrokeID)+len(g.Color)) + geometryOverhead
	return g
}

// entry owns the access metadata so that a *Geometry handed to callers is
// never written after build.
type entry struct {
	geom         *Geometry
	node         int32
	lastAccessed time.Time
	accessCount  uint64
}

// Access describes how a cached geometry has been used.
type Access struct {
	CreatedAt    time.Time
	LastAccessed time.Time
	Count        uint64
}

// GeometryCache is an LRU cache of stroke geometry with a memory budget.
type GeometryCache struct {
	mu       sync.Mutex
	cfg      Config
	maxBytes int64
	entries  map[string]*entry
	lru      *lru.List[string] // front = most recently used
	bytes    int64
	now      func() time.Time
	workers  int

	// Statistics (atomic for zero-allocation reads)
	hits          atomic.Uint64
	misses        atomic.Uint64
	evictions     atomic.Uint64
	expired       atomic.Uint64
	invalidations atomic.Uint64
	oversized     atomic.Uint64
	tessellations atomic.Uint64
}

// Option configures a GeometryCache.
type Option func(*GeometryCache)

// WithWarmWorkers sets how many goroutines Warm tessellates on. Zero, the
// default, uses GOMAXPROCS; one keeps Warm on the calling goroutine.
func WithWarmWorkers(n int) Option {
	return func(c *GeometryCache) {
		c.workers = n
	}
}

// New creates a geometry cache.
func New(cfg Config, opts ...Option) (*GeometryCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &GeometryCache{
		cfg:      cfg,
		maxBytes: int64(cfg.MaxMemoryMB * ink.BytesPerMB),
		entries:  make(map[string]*entry, cfg.MaxEntries),
		lru:      lru.New[string](cfg.MaxEntries),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the cached geometry for a stroke ID.
// On a hit the entry becomes most recently used; a miss only increments
// the miss counter.
func (c *GeometryCache) Get(id string) (*Geometry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.touch(e)
	c.hits.Add(1)
	return e.geom, true
}

// Access returns the access metadata for id without updating LRU order.
func (c *GeometryCache) Access(id string) (Access, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return Access{}, false
	}
	return Access{CreatedAt: e.geom.CreatedAt, LastAccessed: e.lastAccessed, Count: e.accessCount}, true
}

// Contains reports whether id is cached without updating LRU order.
func (c *GeometryCache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// GetOrCreate returns the geometry for s, tessellating it when it is not
// cached or when the cached entry was built from different content.
// Eviction runs inline before returning.
//
// A geometry larger than the whole memory budget is returned without being
// cached.
func (c *GeometryCache) GetOrCreate(s *ink.Stroke) *Geometry {
	if s == nil {
		return nil
	}
	hash := s.Hash()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[s.ID]; ok {
		if e.geom.Hash == hash {
			c.touch(e)
			c.hits.Add(1)
			return e.geom
		}
		c.remove(s.ID, e)
		c.invalidations.Add(1)
	}
	c.misses.Add(1)

	g := build(s, c.now())
	c.tessellations.Add(1)
	c.insert(g)
	return g
}

// insert caches g, replacing any entry for the same stroke, then evicts.
// Geometry larger than the whole budget is not cached.
// Caller must hold c.mu.
func (c *GeometryCache) insert(g *Geometry) {
	if e, ok := c.entries[g.StrokeID]; ok {
		c.remove(g.StrokeID, e)
		if e.geom.Hash != g.Hash {
			c.invalidations.Add(1)
		}
	}
	if g.size > c.maxBytes {
		c.oversized.Add(1)
		ink.Logger().Debug("cache: geometry exceeds budget, not cached", "id", g.StrokeID, "bytes", g.size)
		return
	}
	c.entries[g.StrokeID] = &entry{geom: g, node: c.lru.PushFront(g.StrokeID), lastAccessed: g.CreatedAt}
	c.bytes += g.size
	c.evict()
}

// Invalidate removes the entry for id. Unknown IDs are ignored.
func (c *GeometryCache) Invalidate(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return false
	}
	c.remove(id, e)
	c.invalidations.Add(1)
	return true
}

// InvalidateMany removes the entries for ids and returns how many existed.
func (c *GeometryCache) InvalidateMany(ids []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, id := range ids {
		if e, ok := c.entries[id]; ok {
			c.remove(id, e)
			n++
		}
	}
	c.invalidations.Add(uint64(n))
	return n
}

// Clear removes every entry.
func (c *GeometryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidations.Add(uint64(len(c.entries)))
	clear(c.entries)
	c.lru.Clear()
	c.bytes = 0
}

// Warm builds geometry ahead of first access for the most recent strokes,
// at most WarmFraction of MaxEntries of them. Higher-priority strokes end
// up nearer the most-recently-used position. It returns the number of
// strokes tessellated.
func (c *GeometryCache) Warm(strokes []*ink.Stroke) int {
	limit := int(c.cfg.WarmFraction * float64(c.cfg.MaxEntries))
	if limit <= 0 || len(strokes) == 0 {
		return 0
	}

	ordered := slices.Clone(strokes)
	ordered = slices.DeleteFunc(ordered, func(s *ink.Stroke) bool { return s == nil })
	slices.SortStableFunc(ordered, func(a, b *ink.Stroke) int {
		switch {
		case a.Timestamp > b.Timestamp:
			return -1
		case a.Timestamp < b.Timestamp:
			return 1
		}
		return 0
	})
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}

	c.mu.Lock()
	todo := make([]*ink.Stroke, 0, len(ordered))
	for _, st := range ordered {
		if e, ok := c.entries[st.ID]; ok && e.geom.Hash == st.Hash() {
			continue
		}
		todo = append(todo, st)
	}
	c.mu.Unlock()
	if len(todo) == 0 {
		return 0
	}

	now := c.now()
	var geoms []*Geometry
	if len(todo) < parallelWarmMin || c.workers == 1 {
		geoms = make([]*Geometry, len(todo))
		for i, st := range todo {
			geoms[i] = build(st, now)
		}
	} else {
		p := parallel.NewWorkerPool(c.workers)
		geoms = parallel.Map(p, todo, func(st *ink.Stroke) *Geometry { return build(st, now) })
		p.Close()
	}
	c.tessellations.Add(uint64(len(geoms)))

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(geoms) - 1; i >= 0; i-- {
		c.insert(geoms[i])
	}
	return len(geoms)
}

// Sweep removes entries older than MaxAge regardless of their LRU
// position and returns how many were removed.
func (c *GeometryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.cfg.MaxAge)
	var stale []string
	c.lru.Each(func(_ int32, id string) bool {
		if c.entries[id].geom.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
		return true
	})
	for _, id := range stale {
		c.remove(id, c.entries[id])
	}
	c.expired.Add(uint64(len(stale)))
	if len(stale) > 0 {
		ink.Logger().Debug("cache: swept expired geometry", "removed", len(stale), "remaining", len(c.entries))
	}
	return len(stale)
}

// Keys returns the cached stroke IDs from most to least recently used.
func (c *GeometryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.lru.Len())
	c.lru.Each(func(_ int32, id string) bool {
		keys = append(keys, id)
		return true
	})
	return keys
}

// Len returns the number of cached entries.
func (c *GeometryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// MemoryUsage returns the estimated bytes held by cached geometry.
func (c *GeometryCache) MemoryUsage() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// touch marks e as most recently used.
// Caller must hold c.mu.
func (c *GeometryCache) touch(e *entry) {
	c.lru.MoveToFront(e.node)
	e.lastAccessed = c.now()
	e.accessCount++
}

// Caller must hold c.mu.
func (c *GeometryCache) remove(id string, e *entry) {
	c.lru.Remove(e.node)
	c.bytes -= e.geom.size
	delete(c.entries, id)
}

// evict drops least recently used entries until both budgets hold.
// Caller must hold c.mu.
func (c *GeometryCache) evict() {
	for c.bytes > c.maxBytes || len(c.entries) > c.cfg.MaxEntries {
		id, ok := c.lru.RemoveBack()
		if !ok {
			break
		}
		e := c.entries[id]
		c.bytes -= e.geom.size
		delete(c.entries, id)
		c.evictions.Add(1)
	}
}

// Stats contains cache statistics for monitoring.
type Stats struct {
	// Entries is the number of cached geometries.
	Entries int
	// Bytes is the current memory usage.
	Bytes int64
	// MaxBytes is the memory budget.
	MaxBytes int64
	// Hits is the number of cache hits.
	Hits uint64
	// Misses is the number of cache misses.
	Misses uint64
	// HitRate is the cache hit rate (0.0 to 1.0).
	HitRate float64
	// Evictions is the number of entries evicted by the LRU budgets.
	Evictions uint64
	// Expired is the number of entries removed by Sweep.
	Expired uint64
	// Invalidations is the number of entries removed explicitly or because
	// their content changed.
	Invalidations uint64
	// Oversized is the number of geometries too large to cache.
	Oversized uint64
	// Tessellations is the number of strokes tessellated.
	Tessellations uint64
}

// Stats returns current cache statistics.
func (c *GeometryCache) Stats() Stats {
	c.mu.Lock()
	entries, bytes := len(c.entries), c.bytes
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{
		Entries:       entries,
		Bytes:         bytes,
		MaxBytes:      c.maxBytes,
		Hits:          hits,
		Misses:        misses,
		HitRate:       hitRate,
		Evictions:     c.evictions.Load(),
		Expired:       c.expired.Load(),
		Invalidations: c.invalidations.Load(),
		Oversized:     c.oversized.Load(),
		Tessellations: c.tessellations.Load(),
	}
}

// ResetStats resets all statistics counters to zero.
func (c *GeometryCache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
	c.expired.Store(0)
	c.invalidations.Store(0)
	c.oversized.Store(0)
	c.tessellations.Store(0)
}
