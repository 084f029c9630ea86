package stroke

import (
	"math"

	"github.com/gogpu/ink"
)

// minSegmentLength is the length below which a segment is treated as
// zero-length and the previous normal is reused.
const minSegmentLength = 1e-9

// Mesh is the triangulated form of a stroke centerline.
//
// Vertices and Normals are interleaved x,y float32 pairs, two vertices per
// input point (left side first, then right side). Indices form a triangle
// list with two triangles per segment.
type Mesh struct {
	Vertices []float32
	Normals  []float32
	Indices  []uint32
	Bounds   ink.Rect
}

// Tessellate converts a flat x,y point sequence into a mesh of the given
// width in one pass.
//
// For every point the unit perpendicular of its segment direction (the
// outgoing segment, or the incoming one for the last point) is scaled by
// half the width and one vertex is emitted on each side of the centerline.
// Each segment then contributes the two triangles joining its four nearest
// vertices, which is equivalent to a triangle strip.
//
// Fewer than 2 points produce an empty mesh.
func Tessellate(points []float64, width float64) Mesh {
	n := len(points) / 2
	if n < 2 {
		return Mesh{}
	}

	m := Mesh{
		Vertices: make([]float32, 0, n*4),
		Normals:  make([]float32, 0, n*4),
		Indices:  make([]uint32, 0, (n-1)*6),
	}

	hw := width / 2
	nx, ny := 0.0, 1.0
	minX, minY := points[0], points[1]
	maxX, maxY := minX, minY

	for i := 0; i < n; i++ {
		x, y := points[2*i], points[2*i+1]

		var dx, dy float64
		if i < n-1 {
			dx, dy = points[2*i+2]-x, points[2*i+3]-y
		} else {
			dx, dy = x-points[2*i-2], y-points[2*i-1]
		}
		if l := math.Hypot(dx, dy); l > minSegmentLength {
			nx, ny = -dy/l, dx/l
		}

		m.Vertices = append(m.Vertices,
			float32(x+nx*hw), float32(y+ny*hw),
			float32(x-nx*hw), float32(y-ny*hw),
		)
		m.Normals = append(m.Normals,
			float32(nx), float32(ny),
			float32(-nx), float32(-ny),
		)

		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)

		if i > 0 {
			base := uint32(2 * (i - 1))
			m.Indices = append(m.Indices,
				base, base+1, base+2,
				base+1, base+3, base+2,
			)
		}
	}

	m.Bounds = ink.RectFromBounds(minX-hw, minY-hw, maxX+hw, maxY+hw)
	return m
}

// ByteSize returns the memory held by the mesh buffers.
func (m *Mesh) ByteSize() int64 {
	return int64(len(m.Vertices)+len(m.Normals)+len(m.Indices)) * 4
}
