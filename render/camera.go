// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"math"

	"golang.org/x/image/math/fixed"

	"github.com/gogpu/ink"
)

// Camera maps world coordinates inside a viewport to target pixels. The
// scale is uniform; the viewport is centered when aspect ratios differ.
type Camera struct {
	Viewport ink.Rect
	scale    float64
	offX     float64
	offY     float64
}

// NewCamera fits viewport into a width x height target.
func NewCamera(viewport ink.Rect, width, height int) Camera {
	c := Camera{Viewport: viewport, scale: 1}
	if viewport.Width > 0 && viewport.Height > 0 {
		c.scale = math.Min(float64(width)/viewport.Width, float64(height)/viewport.Height)
	}
	c.offX = (float64(width) - viewport.Width*c.scale) / 2
	c.offY = (float64(height) - viewport.Height*c.scale) / 2
	return c
}

// Scale returns pixels per world unit.
func (c Camera) Scale() float64 {
	return c.scale
}

// ToPixel maps a world point to pixel coordinates.
func (c Camera) ToPixel(x, y float64) (float64, float64) {
	return (x-c.Viewport.X)*c.scale + c.offX, (y-c.Viewport.Y)*c.scale + c.offY
}

func (c Camera) fixed(x, y float64) fixed.Point26_6 {
	px, py := c.ToPixel(x, y)
	return fixed.Point26_6{X: toFixed(px), Y: toFixed(py)}
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
