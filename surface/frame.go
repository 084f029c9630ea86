// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"time"

	"github.com/gogpu/ink"
	"github.com/gogpu/ink/cache"
	"github.com/gogpu/ink/cull"
	"github.com/gogpu/ink/maintenance"
	"github.com/gogpu/ink/pool"
	"github.com/gogpu/ink/retention"
)

// Frame is the per-frame output of a Surface.
type Frame struct {
	// Viewport is the queried region, before the culler's margin.
	Viewport ink.Rect
	// Geometry holds the meshes of visible strokes in creation order.
	// Degenerate strokes produce no entry.
	Geometry []*cache.Geometry
	// Visible is the number of strokes returned by the culler.
	Visible int
	// Resident is the number of committed strokes in memory.
	Resident int
	// Duration is the time spent building the frame.
	Duration time.Duration
}

// Frame returns the geometry of the committed strokes near viewport. The
// spatial index is rebuilt first if the resident set changed since the
// last frame.
func (s *Surface) Frame(viewport ink.Rect) Frame {
	start := time.Now()

	version := s.version.Load()
	strokes := s.retention.Strokes()
	visible := s.culler.Cull(strokes, viewport)
	if s.version.Load() != version {
		// The set changed while the tree was being rebuilt from the
		// snapshot; rebuild again next frame.
		s.culler.MarkDirty()
	}

	geometry := make([]*cache.Geometry, 0, len(visible))
	for _, st := range visible {
		if g := s.cache.GetOrCreate(st); g != nil && !g.Empty() {
			geometry = append(geometry, g)
		}
	}

	f := Frame{
		Viewport: viewport,
		Geometry: geometry,
		Visible:  len(visible),
		Resident: len(strokes),
		Duration: time.Since(start),
	}
	s.frames.Add(1)
	s.lastFrame.Store(int64(f.Duration))
	return f
}

// Stats aggregates the statistics of every component.
type Stats struct {
	Frames    uint64
	LastFrame time.Duration
	// Active is the number of strokes being drawn.
	Active int
	// Committed counts strokes added through EndStroke or AddStroke.
	Committed uint64
	// Cancelled counts strokes abandoned or discarded as empty.
	Cancelled uint64
	// UnknownIDs counts input calls naming no active stroke.
	UnknownIDs uint64

	Pool        pool.Stats
	Cull        cull.Stats
	Cache       cache.Stats
	Retention   retention.Stats
	Maintenance maintenance.Stats
}

// Stats returns current statistics.
func (s *Surface) Stats() Stats {
	s.mu.Lock()
	active := len(s.active)
	s.mu.Unlock()

	return Stats{
		Frames:      s.frames.Load(),
		LastFrame:   time.Duration(s.lastFrame.Load()),
		Active:      active,
		Committed:   s.committed.Load(),
		Cancelled:   s.cancelled.Load(),
		UnknownIDs:  s.unknownIDs.Load(),
		Pool:        s.pool.Stats(),
		Cull:        s.culler.Stats(),
		Cache:       s.cache.Stats(),
		Retention:   s.retention.Stats(),
		Maintenance: s.sched.Stats(),
	}
}
