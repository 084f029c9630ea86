package cull

import (
	"slices"
	"sync"
	"time"

	"github.com/gogpu/ink"
)

// Default configuration constants.
const (
	DefaultMinStrokesPerCell = 10
	DefaultMaxDepth          = 8
	DefaultMargin            = 100
	DefaultLODDistance       = 2000
	DefaultLODMinWidth       = 2
)

// Config configures a Culler.
type Config struct {
	// MinStrokesPerCell is the population above which a cell is split.
	MinStrokesPerCell int
	// MaxDepth bounds the tree depth. The root is depth 0.
	MaxDepth int
	// Margin expands every query viewport on all sides.
	Margin float64
	// EnableLOD drops thin strokes far from the viewport center.
	// It trades recall for throughput on dense far-field content.
	EnableLOD bool
	// LODDistance is the distance from the viewport center beyond which
	// thin strokes are dropped.
	LODDistance float64
	// LODMinWidth is the stroke size above which strokes are always kept.
	LODMinWidth float64
}

// DefaultConfig returns the default culler configuration.
func DefaultConfig() Config {
	return Config{
		MinStrokesPerCell: DefaultMinStrokesPerCell,
		MaxDepth:          DefaultMaxDepth,
		Margin:            DefaultMargin,
		LODDistance:       DefaultLODDistance,
		LODMinWidth:       DefaultLODMinWidth,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for _, err := range []error{
		ink.RequirePositive("cull", "MinStrokesPerCell", c.MinStrokesPerCell),
		ink.RequireNonNegative("cull", "MaxDepth", c.MaxDepth),
		ink.RequireNonNegative("cull", "Margin", c.Margin),
		ink.RequirePositive("cull", "LODDistance", c.LODDistance),
		ink.RequireNonNegative("cull", "LODMinWidth", c.LODMinWidth),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// box is a rectangle kept as exact min/max corners. Cells split on these
// corners so a child never ends short of its parent's edge, which an
// origin plus size rebuilt as X+Width can do after rounding.
type box struct {
	minX, minY, maxX, maxY float64
}

func boxOf(r ink.Rect) box {
	return box{minX: r.X, minY: r.Y, maxX: r.MaxX(), maxY: r.MaxY()}
}

// intersects matches ink.Rect.Intersects: edges are inclusive.
func (b box) intersects(o box) bool {
	return b.minX <= o.maxX && o.minX <= b.maxX &&
		b.minY <= o.maxY && o.minY <= b.maxY
}

func (b box) union(o box) box {
	return box{
		minX: min(b.minX, o.minX), minY: min(b.minY, o.minY),
		maxX: max(b.maxX, o.maxX), maxY: max(b.maxY, o.maxY),
	}
}

// quadrants splits b at its midpoint: top-left, top-right, bottom-left,
// bottom-right. Shared edges are the same float value on both sides.
func (b box) quadrants() [4]box {
	midX := b.minX + (b.maxX-b.minX)/2
	midY := b.minY + (b.maxY-b.minY)/2
	return [4]box{
		{b.minX, b.minY, midX, midY},
		{midX, b.minY, b.maxX, midY},
		{b.minX, midY, midX, b.maxY},
		{midX, midY, b.maxX, b.maxY},
	}
}

func (b box) rect() ink.Rect {
	return ink.RectFromBounds(b.minX, b.minY, b.maxX, b.maxY)
}

// entry is one indexed stroke with its precomputed bounds.
type entry struct {
	stroke *ink.Stroke
	bounds box
}

// cell is a quadtree node: either a leaf holding entry indices or an inner
// node with exactly four children.
type cell struct {
	bounds   box
	depth    int
	items    []int32
	children *[4]cell
}

func (c *cell) leaf() bool { return c.children == nil }

// Culler is a quadtree viewport culler.
//
// Culler is safe for concurrent use. Queries serialize on the same mutex
// as rebuilds because they share the deduplication scratch buffer.
type Culler struct {
	mu      sync.Mutex
	cfg     Config
	entries []entry
	root    *cell
	dirty   bool

	// seen[i] == gen marks entry i as already visited by the current query.
	seen []uint32
	gen  uint32

	stats Stats
}

// New creates an empty culler. It needs a rebuild before the first query.
func New(cfg Config) (*Culler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Culler{cfg: cfg, dirty: true}, nil
}

// MarkDirty records that the stroke set changed. The tree is rebuilt by the
// next Cull; several changes between two frames cost one rebuild.
func (c *Culler) MarkDirty() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// NeedsRebuild reports whether a rebuild is pending.
func (c *Culler) NeedsRebuild() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// SetLOD toggles the level-of-detail filter.
func (c *Culler) SetLOD(enabled bool) {
	c.mu.Lock()
	c.cfg.EnableLOD = enabled
	c.mu.Unlock()
}

// Rebuild replaces the tree with one built over strokes. It costs O(n·d)
// where d is the resulting depth.
func (c *Culler) Rebuild(strokes []*ink.Stroke) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebuild(strokes)
}

// Cull rebuilds over strokes if a rebuild is pending, then queries.
func (c *Culler) Cull(strokes []*ink.Stroke, viewport ink.Rect) []*ink.Stroke {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty {
		c.rebuild(strokes)
	}
	return c.query(viewport)
}

// Query returns the strokes whose bounding box intersects the viewport
// expanded by Margin, in the order they were passed to Rebuild.
func (c *Culler) Query(viewport ink.Rect) []*ink.Stroke {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query(viewport)
}

// Caller must hold c.mu.
func (c *Culler) rebuild(strokes []*ink.Stroke) {
	start := time.Now()

	c.entries = c.entries[:0]
	c.root = nil
	c.dirty = false
	c.stats.Rebuilds++

	if len(strokes) == 0 {
		c.stats.Strokes, c.stats.Cells, c.stats.Leaves, c.stats.Depth = 0, 0, 0, 0
		c.stats.LastRebuild = time.Since(start)
		return
	}

	items := make([]int32, 0, len(strokes))
	var bounds box
	for _, s := range strokes {
		if s == nil {
			continue
		}
		b := boxOf(s.Bounds())
		if len(c.entries) == 0 {
			bounds = b
		} else {
			bounds = bounds.union(b)
		}
		items = append(items, int32(len(c.entries)))
		c.entries = append(c.entries, entry{stroke: s, bounds: b})
	}

	if cap(c.seen) < len(c.entries) {
		c.seen = make([]uint32, len(c.entries))
	} else {
		c.seen = c.seen[:len(c.entries)]
		clear(c.seen)
	}
	c.gen = 0

	c.root = &cell{bounds: bounds, items: items}
	c.stats.Cells, c.stats.Leaves, c.stats.Depth = 0, 0, 0
	c.subdivide(c.root)

	c.stats.Strokes = len(c.entries)
	c.stats.LastRebuild = time.Since(start)
	ink.Logger().Debug("cull: rebuilt quadtree",
		"strokes", c.stats.Strokes, "cells", c.stats.Cells,
		"depth", c.stats.Depth, "took", c.stats.LastRebuild)
}

// subdivide splits n while it is over population and under MaxDepth.
// A split that leaves every child with the full population is abandoned:
// it would only duplicate references without narrowing any query.
//
// Caller must hold c.mu.
func (c *Culler) subdivide(n *cell) {
	c.stats.Cells++
	c.stats.Depth = max(c.stats.Depth, n.depth)

	if len(n.items) <= c.cfg.MinStrokesPerCell || n.depth >= c.cfg.MaxDepth {
		c.stats.Leaves++
		return
	}

	quads := n.bounds.quadrants()
	var buckets [4][]int32
	reduced := false
	for q := range quads {
		for _, it := range n.items {
			if c.entries[it].bounds.intersects(quads[q]) {
				buckets[q] = append(buckets[q], it)
			}
		}
		if len(buckets[q]) < len(n.items) {
			reduced = true
		}
	}
	if !reduced {
		c.stats.Leaves++
		return
	}

	children := new([4]cell)
	for q := range children {
		children[q] = cell{bounds: quads[q], depth: n.depth + 1, items: buckets[q]}
	}
	n.children = children
	n.items = nil
	for q := range children {
		c.subdivide(&children[q])
	}
}

// Caller must hold c.mu.
func (c *Culler) query(viewport ink.Rect) []*ink.Stroke {
	c.stats.Queries++
	c.stats.LastVisited = 0
	c.stats.LastVisible = 0
	if c.root == nil {
		return nil
	}

	c.gen++
	if c.gen == 0 {
		clear(c.seen)
		c.gen = 1
	}

	expanded := boxOf(viewport.Expand(c.cfg.Margin))
	var hits []int32
	c.walk(c.root, expanded, &hits)
	slices.Sort(hits)

	center := viewport.Center()
	out := make([]*ink.Stroke, 0, len(hits))
	for _, it := range hits {
		e := &c.entries[it]
		if c.cfg.EnableLOD && e.stroke.Size <= c.cfg.LODMinWidth &&
			e.bounds.rect().Center().Distance(center) > c.cfg.LODDistance {
			continue
		}
		out = append(out, e.stroke)
	}
	c.stats.LastVisible = len(out)
	return out
}

// Caller must hold c.mu.
func (c *Culler) walk(n *cell, area box, hits *[]int32) {
	if !n.bounds.intersects(area) {
		return
	}
	if !n.leaf() {
		for q := range n.children {
			c.walk(&n.children[q], area, hits)
		}
		return
	}
	for _, it := range n.items {
		if c.seen[it] == c.gen {
			continue
		}
		c.seen[it] = c.gen
		c.stats.LastVisited++
		if c.entries[it].bounds.intersects(area) {
			*hits = append(*hits, it)
		}
	}
}

// Stats contains culler statistics for monitoring.
type Stats struct {
	// Strokes is the number of indexed strokes.
	Strokes int
	// Cells is the total number of tree nodes.
	Cells int
	// Leaves is the number of leaf cells.
	Leaves int
	// Depth is the deepest cell level.
	Depth int
	// Rebuilds counts wholesale rebuilds.
	Rebuilds uint64
	// LastRebuild is the duration of the most recent rebuild.
	LastRebuild time.Duration
	// Queries counts viewport queries.
	Queries uint64
	// LastVisited is the number of strokes tested by the last query.
	LastVisited int
	// LastVisible is the number of strokes returned by the last query.
	LastVisible int
}

// Stats returns current culler statistics.
func (c *Culler) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
