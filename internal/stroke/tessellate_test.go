package stroke

import (
	"math"
	"slices"
	"testing"

	"github.com/gogpu/ink"
)

func TestTessellateHorizontalSegment(t *testing.T) {
	m := Tessellate([]float64{0, 0, 10, 0}, 2)

	wantVerts := []float32{0, 1, 0, -1, 10, 1, 10, -1}
	if !slices.Equal(m.Vertices, wantVerts) {
		t.Errorf("Vertices = %v, want %v", m.Vertices, wantVerts)
	}
	wantNormals := []float32{0, 1, 0, -1, 0, 1, 0, -1}
	if !slices.Equal(m.Normals, wantNormals) {
		t.Errorf("Normals = %v, want %v", m.Normals, wantNormals)
	}
	wantIdx := []uint32{0, 1, 2, 1, 3, 2}
	if !slices.Equal(m.Indices, wantIdx) {
		t.Errorf("Indices = %v, want %v", m.Indices, wantIdx)
	}
	wantBounds := ink.Rect{X: -1, Y: -1, Width: 12, Height: 2}
	if m.Bounds != wantBounds {
		t.Errorf("Bounds = %+v, want %+v", m.Bounds, wantBounds)
	}
}

func TestTessellateBufferSizes(t *testing.T) {
	tests := []struct {
		name        string
		points      int
		wantVerts   int
		wantIndices int
	}{
		{"empty", 0, 0, 0},
		{"single point", 1, 0, 0},
		{"two points", 2, 8, 6},
		{"polyline", 50, 200, 294},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts := make([]float64, 0, tt.points*2)
			for i := 0; i < tt.points; i++ {
				pts = append(pts, float64(i), math.Sin(float64(i)))
			}
			m := Tessellate(pts, 3)
			if len(m.Vertices) != tt.wantVerts {
				t.Errorf("len(Vertices) = %d, want %d", len(m.Vertices), tt.wantVerts)
			}
			if len(m.Normals) != tt.wantVerts {
				t.Errorf("len(Normals) = %d, want %d", len(m.Normals), tt.wantVerts)
			}
			if len(m.Indices) != tt.wantIndices {
				t.Errorf("len(Indices) = %d, want %d", len(m.Indices), tt.wantIndices)
			}
			for _, idx := range m.Indices {
				if int(idx) >= len(m.Vertices)/2 {
					t.Fatalf("index %d out of range for %d vertices", idx, len(m.Vertices)/2)
				}
			}
		})
	}
}

func TestTessellateNormalsAreUnit(t *testing.T) {
	m := Tessellate([]float64{0, 0, 3, 4, 3, 4, 10, -2}, 5)
	for i := 0; i+1 < len(m.Normals); i += 2 {
		l := math.Hypot(float64(m.Normals[i]), float64(m.Normals[i+1]))
		if math.Abs(l-1) > 1e-6 {
			t.Errorf("normal %d has length %v, want 1", i/2, l)
		}
	}
}

func TestTessellateZeroLengthSegmentReusesNormal(t *testing.T) {
	// The repeated point must not produce NaN vertices.
	m := Tessellate([]float64{0, 0, 5, 0, 5, 0}, 2)
	for i, v := range m.Vertices {
		if math.IsNaN(float64(v)) {
			t.Fatalf("vertex component %d is NaN", i)
		}
	}
	if m.Normals[4] != 0 || m.Normals[5] != 1 {
		t.Errorf("normal at repeated point = (%v, %v), want (0, 1)", m.Normals[4], m.Normals[5])
	}
}

func TestTessellateBoundsMatchStroke(t *testing.T) {
	s := &ink.Stroke{Points: []float64{3, 7, -4, 2, 9, 11, 0, 0}, Size: 6}
	m := Tessellate(s.Points, s.Size)
	if m.Bounds != s.Bounds() {
		t.Errorf("mesh bounds %+v != stroke bounds %+v", m.Bounds, s.Bounds())
	}
}

func BenchmarkTessellate(b *testing.B) {
	pts := make([]float64, 0, 1000)
	for i := 0; i < 500; i++ {
		pts = append(pts, float64(i), math.Cos(float64(i)/10)*50)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Tessellate(pts, 4)
	}
}
