package ink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"slices"
	"time"
)

// Size accounting constants used by every component's memory estimate.
const (
	// BytesPerMB is the number of bytes in a megabyte.
	BytesPerMB = 1024 * 1024

	// strokeOverhead approximates the fixed cost of a Stroke value
	// (struct header, slice headers, string headers).
	strokeOverhead = 128
	float64Size    = 8
)

// ErrInvalidStroke is returned by Stroke.Validate.
var ErrInvalidStroke = errors.New("ink: invalid stroke")

// Stroke is one continuous pen or touch input.
//
// Points is a flat x,y coordinate sequence, so a stroke with n points has
// 2n values. Pressure, when present, holds one value per point.
//
// A Stroke is immutable once registered with a component. Use Clone to
// derive an edited copy.
type Stroke struct {
	ID        string
	Points    []float64
	Color     string
	Size      float64
	Timestamp int64 // milliseconds since the Unix epoch
	UserID    string
	Pressure  []float64
}

// NumPoints returns the number of coordinate pairs.
func (s *Stroke) NumPoints() int {
	return len(s.Points) / 2
}

// CreatedAt returns Timestamp as a time.Time.
func (s *Stroke) CreatedAt() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Validate checks the structural invariants of a stroke.
func (s *Stroke) Validate() error {
	switch {
	case s == nil:
		return fmt.Errorf("%w: nil stroke", ErrInvalidStroke)
	case s.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidStroke)
	case len(s.Points)%2 != 0:
		return fmt.Errorf("%w: %s has odd coordinate count %d", ErrInvalidStroke, s.ID, len(s.Points))
	case !(s.Size > 0):
		return fmt.Errorf("%w: %s has non-positive size %v", ErrInvalidStroke, s.ID, s.Size)
	case s.Pressure != nil && len(s.Pressure) != s.NumPoints():
		return fmt.Errorf("%w: %s has %d pressure values for %d points",
			ErrInvalidStroke, s.ID, len(s.Pressure), s.NumPoints())
	}
	return nil
}

// Clone returns a deep copy that shares no buffers with s.
func (s *Stroke) Clone() *Stroke {
	c := *s
	c.Points = slices.Clone(s.Points)
	c.Pressure = slices.Clone(s.Pressure)
	return &c
}

// EstimatedSize approximates the resident memory of the stroke in bytes.
func (s *Stroke) EstimatedSize() int64 {
	n := int64(strokeOverhead)
	n += int64(len(s.ID) + len(s.Color) + len(s.UserID))
	n += int64(len(s.Points)+len(s.Pressure)) * float64Size
	return n
}

// Hash returns an FNV-1a content hash over the geometry-relevant fields:
// points, pressure, color and size. Identity and timestamps are excluded,
// so two strokes that would tessellate identically hash identically.
func (s *Stroke) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	writeFloat := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	}

	binary.LittleEndian.PutUint64(buf[:], uint64(len(s.Points)))
	_, _ = h.Write(buf[:])
	for _, v := range s.Points {
		writeFloat(v)
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(len(s.Pressure)))
	_, _ = h.Write(buf[:])
	for _, v := range s.Pressure {
		writeFloat(v)
	}
	writeFloat(s.Size)
	_, _ = h.Write([]byte(s.Color))
	return h.Sum64()
}

// Bounds returns the axis-aligned bounding box of the stroke: the min/max
// of all coordinate pairs expanded by half the stroke width on every side.
//
// Strokes with fewer than 2 points get a zero-size box at their only point,
// or at the origin when they have none.
func (s *Stroke) Bounds() Rect {
	n := s.NumPoints()
	if n < 2 {
		if n == 1 {
			return Rect{X: s.Points[0], Y: s.Points[1]}
		}
		return Rect{}
	}

	minX, minY := s.Points[0], s.Points[1]
	maxX, maxY := minX, minY
	for i := 2; i+1 < len(s.Points); i += 2 {
		x, y := s.Points[i], s.Points[i+1]
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}
	hw := s.Size / 2
	return RectFromBounds(minX-hw, minY-hw, maxX+hw, maxY+hw)
}
