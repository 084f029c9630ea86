// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package surface owns the stroke memory of one drawing surface.
//
// A Surface composes the four memory components and the maintenance
// scheduler:
//
//   - pool.Pool recycles the records of strokes being drawn
//   - retention.Manager owns committed strokes and evicts the least
//     important ones under memory pressure
//   - cull.Culler indexes resident strokes for viewport queries
//   - cache.GeometryCache holds tessellated meshes for visible strokes
//
// Pointer input flows from BeginStroke through AddPoint to EndStroke, which
// snapshots the pooled record into the retention manager. Each frame,
// Frame asks the culler for the strokes near the viewport and returns their
// cached geometry for the GPU renderer.
//
// Evictions keep the components consistent: a stroke leaving the resident
// set has its geometry invalidated and marks the spatial index dirty, so
// the next frame rebuilds the tree once.
//
// # Usage
//
//	s, err := surface.New(surface.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	if err := s.Start(ctx); err != nil {
//	    return err
//	}
//	defer s.Stop()
//
//	id := s.BeginStroke("#1e90ff", 3, userID)
//	s.AddPoint(id, 10, 10, 0.5)
//	s.AddPoint(id, 40, 25, 0.7)
//	s.EndStroke(id, false)
//
//	frame := s.Frame(ink.Rect{Width: 1920, Height: 1080})
//	for _, g := range frame.Geometry {
//	    // upload g.Vertices, g.Normals, g.Indices
//	}
//
// Hosts with their own frame loop may skip Start and call Tick once per
// frame instead.
package surface
