// Package ink provides the data model shared by the ink memory and
// visibility subsystem: strokes, rectangles, content hashing and the
// package-wide logger.
//
// # Overview
//
// A long collaborative drawing session accumulates strokes without bound.
// The sub-packages keep per-frame cost and steady-state memory bounded:
//
//   - [github.com/gogpu/ink/pool]: recycles stroke records during active drawing
//   - [github.com/gogpu/ink/cull]: quadtree viewport culling
//   - [github.com/gogpu/ink/cache]: tessellated geometry cache with LRU and a memory budget
//   - [github.com/gogpu/ink/retention]: importance-scored resident stroke set
//
// The [github.com/gogpu/ink/surface] package composes all four for a drawing
// surface owner:
//
//	s, err := surface.New(surface.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	s.Start(ctx)
//	defer s.Stop()
//
//	id := s.BeginStroke("#1e88e5", 3, "alice")
//	s.AddPoint(id, 10, 10, 0.5)
//	s.AddPoint(id, 40, 25, 0.6)
//	s.EndStroke(id, false)
//
//	frame := s.Frame(ink.Rect{X: 0, Y: 0, Width: 800, Height: 600})
//	for _, g := range frame.Geometry {
//	    // upload g.Vertices / g.Indices to the GPU
//	}
//
// # Thread Safety
//
// Every component guards its mutable state with a single mutex. Strokes
// handed to a component must not be mutated in place afterwards; pass an
// updated copy through the component's Update method instead.
//
// # Logging
//
// ink is silent by default. See [SetLogger].
package ink
