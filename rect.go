package ink

import "math"

// Rect is an axis-aligned rectangle. It is used both for viewports and for
// stroke bounding boxes. Width and Height are never negative for rectangles
// produced by this package.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// RectFromBounds builds a Rect from min/max corners.
func RectFromBounds(minX, minY, maxX, maxY float64) Rect {
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Center returns the center point.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Empty reports whether r has zero area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersects reports whether r and o overlap. Edges are inclusive, so
// touching rectangles and zero-size boxes on an edge intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.MaxX() && o.X <= r.MaxX() &&
		r.Y <= o.MaxY() && o.Y <= r.MaxY()
}

// Contains reports whether p lies inside r (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// Expand grows r by m on every side. Negative m shrinks, clamped at zero size.
func (r Rect) Expand(m float64) Rect {
	out := Rect{X: r.X - m, Y: r.Y - m, Width: r.Width + 2*m, Height: r.Height + 2*m}
	if out.Width < 0 {
		out.X += out.Width / 2
		out.Width = 0
	}
	if out.Height < 0 {
		out.Y += out.Height / 2
		out.Height = 0
	}
	return out
}

// Union returns the smallest rectangle containing r and o.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	return RectFromBounds(minX, minY, math.Max(r.MaxX(), o.MaxX()), math.Max(r.MaxY(), o.MaxY()))
}

// Quadrants splits r into four children that exactly cover it:
// top-left, top-right, bottom-left, bottom-right.
func (r Rect) Quadrants() [4]Rect {
	midX := r.X + r.Width/2
	midY := r.Y + r.Height/2
	return [4]Rect{
		RectFromBounds(r.X, r.Y, midX, midY),
		RectFromBounds(midX, r.Y, r.MaxX(), midY),
		RectFromBounds(r.X, midY, midX, r.MaxY()),
		RectFromBounds(midX, midY, r.MaxX(), r.MaxY()),
	}
}

// Point is a 2D point.
type Point struct {
	X, Y float64
}

// Distance returns the Euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}
