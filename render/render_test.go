// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"testing"

	"github.com/gogpu/ink"
	"github.com/gogpu/ink/cache"
)

var white = color.RGBA{255, 255, 255, 255}

func geometryFor(t *testing.T, strokes ...*ink.Stroke) []*cache.Geometry {
	t.Helper()
	gc, err := cache.New(cache.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	out := make([]*cache.Geometry, 0, len(strokes))
	for _, s := range strokes {
		out = append(out, gc.GetOrCreate(s))
	}
	return out
}

func horizontal(id, color string, y float64) *ink.Stroke {
	return &ink.Stroke{ID: id, Points: []float64{10, y, 90, y}, Color: color, Size: 10}
}

func TestRenderFillsStroke(t *testing.T) {
	r, err := NewRenderer(DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	target := NewPixmapTarget(100, 100)
	geoms := geometryFor(t, horizontal("a", "#ff0000", 50))

	res := r.Render(target, ink.Rect{Width: 100, Height: 100}, geoms)
	if res.Drawn != 1 || res.Triangles != 2 {
		t.Fatalf("Render = %+v, want 1 geometry, 2 triangles", res)
	}
	if got := target.RGBAAt(50, 50); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("pixel inside stroke = %v, want red", got)
	}
	if got := target.RGBAAt(50, 20); got != white {
		t.Errorf("pixel outside stroke = %v, want white", got)
	}
	if got := target.RGBAAt(95, 50); got != white {
		t.Errorf("pixel past butt end = %v, want white", got)
	}
}

func TestRenderPolyline(t *testing.T) {
	r, _ := NewRenderer(DefaultOptions())
	target := NewPixmapTarget(100, 100)
	s := &ink.Stroke{ID: "v", Points: []float64{20, 20, 80, 20, 80, 80}, Color: "#0000ff", Size: 6}

	res := r.Render(target, ink.Rect{Width: 100, Height: 100}, geometryFor(t, s))
	if res.Triangles != 4 {
		t.Errorf("Triangles = %d, want 4", res.Triangles)
	}
	for _, p := range [][2]int{{50, 20}, {80, 50}} {
		if got := target.RGBAAt(p[0], p[1]); got != (color.RGBA{0, 0, 255, 255}) {
			t.Errorf("pixel %v = %v, want blue", p, got)
		}
	}
}

func TestRenderBadColorAndSkips(t *testing.T) {
	r, _ := NewRenderer(DefaultOptions())
	target := NewPixmapTarget(100, 100)
	geoms := geometryFor(t,
		horizontal("a", "not-a-color", 50),
		&ink.Stroke{ID: "dot", Points: []float64{5, 5}, Color: "#ff0000", Size: 2},
	)
	geoms = append(geoms, nil)

	res := r.Render(target, ink.Rect{Width: 100, Height: 100}, geoms)
	if res.Drawn != 1 || res.Skipped != 2 || res.BadColors != 1 {
		t.Errorf("Render = %+v, want 1 drawn, 2 skipped, 1 bad color", res)
	}
	if got := target.RGBAAt(50, 50); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("pixel = %v, want fallback black", got)
	}
	if _, ok := r.Color("not-a-color"); ok {
		t.Error("cached parse failure reported valid")
	}
}

func TestRenderBoundsOverlay(t *testing.T) {
	opts := DefaultOptions()
	opts.ShowBounds = true
	r, _ := NewRenderer(opts)
	target := NewPixmapTarget(100, 100)

	r.Render(target, ink.Rect{Width: 100, Height: 100}, geometryFor(t, horizontal("a", "#ff0000", 50)))
	// Bounds start at x = 5; the outline is 1px wide, centered on it.
	if got := target.RGBAAt(4, 50); got == white {
		t.Error("no bounds outline left of the stroke")
	}
	if got := target.RGBAAt(1, 50); got != white {
		t.Errorf("pixel far left = %v, want white", got)
	}
}

func TestRenderMarginOverlay(t *testing.T) {
	opts := DefaultOptions()
	opts.Margin = 10
	r, _ := NewRenderer(opts)
	target := NewPixmapTarget(100, 100)

	// The area 10..90 fills the target at scale 1.25, so the viewport
	// outline lands at pixel 12.5.
	r.Render(target, ink.Rect{X: 20, Y: 20, Width: 60, Height: 60}, nil)
	img := target.Image()
	var drawn int
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i+1] != 255 {
			drawn++
		}
	}
	if drawn == 0 {
		t.Error("viewport outline not drawn")
	}
	if got := target.RGBAAt(50, 50); got != white {
		t.Errorf("center pixel = %v, want white", got)
	}
}

func TestNewRendererRejectsBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Background = "blue-ish"
	if _, err := NewRenderer(opts); !errors.Is(err, ink.ErrInvalidConfig) {
		t.Errorf("bad background error = %v, want ErrInvalidConfig", err)
	}
	opts = DefaultOptions()
	opts.Margin = -1
	if _, err := NewRenderer(opts); !errors.Is(err, ink.ErrInvalidConfig) {
		t.Errorf("negative margin error = %v, want ErrInvalidConfig", err)
	}
}

func TestCamera(t *testing.T) {
	cam := NewCamera(ink.Rect{Width: 200, Height: 100}, 100, 100)
	if cam.Scale() != 0.5 {
		t.Fatalf("Scale = %v, want 0.5", cam.Scale())
	}
	tests := []struct {
		x, y   float64
		px, py float64
	}{
		{0, 0, 0, 25},
		{200, 100, 100, 75},
		{100, 50, 50, 50},
	}
	for _, tt := range tests {
		px, py := cam.ToPixel(tt.x, tt.y)
		if px != tt.px || py != tt.py {
			t.Errorf("ToPixel(%v, %v) = (%v, %v), want (%v, %v)", tt.x, tt.y, px, py, tt.px, tt.py)
		}
	}
}

func TestPixmapTarget(t *testing.T) {
	target := NewPixmapTarget(8, 4)
	if target.Width() != 8 || target.Height() != 4 {
		t.Fatalf("size = %dx%d, want 8x4", target.Width(), target.Height())
	}
	target.Clear(color.RGBA{10, 20, 30, 255})
	if got := target.RGBAAt(7, 3); got != (color.RGBA{10, 20, 30, 255}) {
		t.Errorf("RGBAAt after Clear = %v", got)
	}

	var buf bytes.Buffer
	if err := target.WritePNG(&buf); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("decoded bounds = %v", b)
	}
}
