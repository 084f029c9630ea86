// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render rasterizes cached stroke geometry on the CPU.
//
// It is a reference and debugging renderer: the production path uploads
// cache.Geometry buffers to the GPU using the layout from cache.Layout.
// Renderer draws the same triangle lists with rasterx so that previews,
// golden tests and the inkbench CLI can see what the GPU would draw.
//
// # Usage
//
//	target := render.NewPixmapTarget(800, 600)
//	r, err := render.NewRenderer(render.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	frame := s.Frame(viewport)
//	r.Render(target, viewport, frame.Geometry)
//	err = target.WritePNG(w)
//
// # Thread Safety
//
// Renderers are NOT thread-safe. Each renderer should be used from a single
// goroutine, or external synchronization must be used.
package render
