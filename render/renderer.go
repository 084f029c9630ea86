// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/srwiley/rasterx"

	"github.com/gogpu/ink"
	"github.com/gogpu/ink/cache"
)

// Options configures a Renderer. Colors are "#rrggbb" hex strings.
type Options struct {
	// Background is the clear color.
	Background string
	// FallbackColor replaces stroke colors that fail to parse.
	FallbackColor string
	// ShowBounds outlines every geometry's bounding box.
	ShowBounds  bool
	BoundsColor string
	// Margin, when positive, widens the rendered area by Margin on every
	// side and outlines the viewport dashed, showing the band the culler
	// keeps around it.
	Margin      float64
	MarginColor string
}

// DefaultOptions returns white background, black fallback and no overlays.
func DefaultOptions() Options {
	return Options{
		Background:    "#ffffff",
		FallbackColor: "#000000",
		BoundsColor:   "#ff00ff",
		MarginColor:   "#808080",
	}
}

// Result summarizes one Render call.
type Result struct {
	// Drawn is the number of geometries rasterized.
	Drawn int
	// Skipped is the number of nil or empty geometries.
	Skipped int
	// Triangles is the number of triangles filled.
	Triangles int
	// BadColors is the number of geometries drawn with FallbackColor.
	BadColors int
}

// Renderer draws cache.Geometry triangle lists into a PixmapTarget.
type Renderer struct {
	opts       Options
	background color.RGBA
	fallback   color.RGBA
	bounds     color.RGBA
	margin     color.RGBA

	// colors caches parsed stroke colors; nil entries mark parse failures.
	colors map[string]*color.RGBA
}

// NewRenderer creates a renderer. Invalid option colors are configuration
// errors.
func NewRenderer(opts Options) (*Renderer, error) {
	r := &Renderer{opts: opts, colors: make(map[string]*color.RGBA)}
	for _, c := range []struct {
		field string
		hex   string
		dst   *color.RGBA
	}{
		{"Background", opts.Background, &r.background},
		{"FallbackColor", opts.FallbackColor, &r.fallback},
		{"BoundsColor", opts.BoundsColor, &r.bounds},
		{"MarginColor", opts.MarginColor, &r.margin},
	} {
		rgba, err := parseColor(c.hex)
		if err != nil {
			return nil, &ink.ConfigError{Component: "render", Field: c.field, Reason: err.Error()}
		}
		*c.dst = rgba
	}
	if err := ink.RequireNonNegative("render", "Margin", opts.Margin); err != nil {
		return nil, err
	}
	return r, nil
}

func parseColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// Color returns the parsed stroke color and whether it was valid.
func (r *Renderer) Color(hex string) (color.RGBA, bool) {
	if c, ok := r.colors[hex]; ok {
		if c == nil {
			return r.fallback, false
		}
		return *c, true
	}
	c, err := parseColor(hex)
	if err != nil {
		ink.Logger().Debug("render: invalid stroke color", "color", hex, "err", err)
		r.colors[hex] = nil
		return r.fallback, false
	}
	r.colors[hex] = &c
	return c, true
}

// Render clears the target and draws geometry as seen through viewport,
// in slice order. With a Margin the visible area grows by Margin.
func (r *Renderer) Render(t *PixmapTarget, viewport ink.Rect, geometry []*cache.Geometry) Result {
	var res Result
	w, h := t.Width(), t.Height()
	img := t.Image()
	t.Clear(r.background)
	area := viewport
	if r.opts.Margin > 0 {
		area = viewport.Expand(r.opts.Margin)
	}
	cam := NewCamera(area, w, h)

	filler := rasterx.NewFiller(w, h, rasterx.NewScannerGV(w, h, img, img.Bounds()))
	filler.SetWinding(true)
	for _, g := range geometry {
		if g == nil || g.Empty() {
			res.Skipped++
			continue
		}
		c, ok := r.Color(g.Color)
		if !ok {
			res.BadColors++
		}
		filler.Clear()
		filler.Scanner.SetColor(c)
		res.Triangles += addTriangles(filler, cam, g)
		filler.Draw()
		res.Drawn++
	}

	if r.opts.ShowBounds || r.opts.Margin > 0 {
		dasher := rasterx.NewDasher(w, h, rasterx.NewScannerGV(w, h, img, img.Bounds()))
		if r.opts.ShowBounds {
			setOutline(dasher, nil)
			dasher.Scanner.SetColor(r.bounds)
			for _, g := range geometry {
				if g != nil && !g.Empty() {
					addRect(dasher, cam, g.Bounds)
				}
			}
			dasher.Draw()
		}
		if r.opts.Margin > 0 {
			dasher.Clear()
			setOutline(dasher, []float64{4, 4})
			dasher.Scanner.SetColor(r.margin)
			addRect(dasher, cam, viewport)
			dasher.Draw()
		}
	}
	return res
}

// addTriangles adds every triangle of g as its own closed subpath. Each is
// wound the same way so that overlapping triangles union under the
// non-zero rule.
func addTriangles(f *rasterx.Filler, cam Camera, g *cache.Geometry) int {
	v := g.Vertices
	n := 0
	for i := 0; i+2 < len(g.Indices); i += 3 {
		a, b, c := g.Indices[i], g.Indices[i+1], g.Indices[i+2]
		if int(max(a, b, c))*2+1 >= len(v) {
			continue
		}
		ax, ay := float64(v[2*a]), float64(v[2*a+1])
		bx, by := float64(v[2*b]), float64(v[2*b+1])
		cx, cy := float64(v[2*c]), float64(v[2*c+1])
		if (bx-ax)*(cy-ay)-(by-ay)*(cx-ax) < 0 {
			bx, by, cx, cy = cx, cy, bx, by
		}
		f.Start(cam.fixed(ax, ay))
		f.Line(cam.fixed(bx, by))
		f.Line(cam.fixed(cx, cy))
		f.Stop(true)
		n++
	}
	return n
}

func setOutline(d *rasterx.Dasher, dashes []float64) {
	d.SetStroke(toFixed(1), toFixed(4), rasterx.ButtCap, rasterx.ButtCap, rasterx.FlatGap, rasterx.Miter, dashes, 0)
}

func addRect(d *rasterx.Dasher, cam Camera, r ink.Rect) {
	d.Start(cam.fixed(r.X, r.Y))
	d.Line(cam.fixed(r.MaxX(), r.Y))
	d.Line(cam.fixed(r.MaxX(), r.MaxY()))
	d.Line(cam.fixed(r.X, r.MaxY()))
	d.Stop(true)
}
