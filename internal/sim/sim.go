// Package sim drives a surface.Surface with a synthetic collaborative
// drawing session: one local user drawing through pointer input and any
// number of remote users whose strokes arrive complete. Time is simulated,
// so long sessions run in seconds and are reproducible from a seed.
package sim

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gogpu/ink"
	"github.com/gogpu/ink/surface"
)

// Clock is a manually advanced clock.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

// NewClock returns a clock set to start.
func NewClock(start time.Time) *Clock {
	return &Clock{t: start}
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Config describes a session.
type Config struct {
	// Users is the number of participants; user 0 is local.
	Users int
	// Strokes is the total number of strokes drawn.
	Strokes int
	// PointsPerStroke is the mean number of points per stroke.
	PointsPerStroke int
	// Canvas is the side of the square world the users draw in.
	Canvas float64
	// Viewport is the size of the local view, which pans over the canvas.
	ViewportWidth  float64
	ViewportHeight float64
	// FrameEvery renders a frame after this many strokes.
	FrameEvery int
	// StrokeInterval is the simulated time between two strokes.
	StrokeInterval time.Duration
	// Seed makes the session reproducible.
	Seed uint64
}

// DefaultConfig returns a four-user session of ten thousand strokes.
func DefaultConfig() Config {
	return Config{
		Users:           4,
		Strokes:         10000,
		PointsPerStroke: 24,
		Canvas:          20000,
		ViewportWidth:   1920,
		ViewportHeight:  1080,
		FrameEvery:      10,
		StrokeInterval:  2 * time.Second,
		Seed:            1,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	for _, err := range []error{
		ink.RequirePositive("sim", "Users", c.Users),
		ink.RequireNonNegative("sim", "Strokes", c.Strokes),
		ink.RequirePositive("sim", "PointsPerStroke", c.PointsPerStroke),
		ink.RequirePositive("sim", "Canvas", c.Canvas),
		ink.RequirePositive("sim", "ViewportWidth", c.ViewportWidth),
		ink.RequirePositive("sim", "ViewportHeight", c.ViewportHeight),
		ink.RequirePositive("sim", "FrameEvery", c.FrameEvery),
		ink.RequirePositive("sim", "StrokeInterval", int64(c.StrokeInterval)),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Report summarizes a session.
type Report struct {
	Strokes       int
	LocalStrokes  int
	RemoteStrokes int
	Frames        int
	// FrameTotal and FrameMax are wall-clock frame build times.
	FrameTotal time.Duration
	FrameMax   time.Duration
	// Simulated is the simulated session length.
	Simulated time.Duration
	// Elapsed is the wall-clock run time.
	Elapsed time.Duration
	// Viewport and LastFrame describe the final frame.
	Viewport  ink.Rect
	LastFrame surface.Frame
	Stats     surface.Stats
}

// AvgFrame returns the mean frame build time.
func (r Report) AvgFrame() time.Duration {
	if r.Frames == 0 {
		return 0
	}
	return r.FrameTotal / time.Duration(r.Frames)
}

var palette = []string{"#1e90ff", "#ff4500", "#2e8b57", "#8a2be2", "#ff1493", "#000000"}

// Run plays a session against s, advancing clock and ticking maintenance
// after every stroke. It stops early when ctx is cancelled.
func Run(ctx context.Context, s *surface.Surface, clock *Clock, cfg Config) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	start := time.Now()
	simStart := clock.Now()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	var rep Report
	vp := ink.Rect{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight}
	for i := 0; i < cfg.Strokes; i++ {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("sim: stopped after %d strokes: %w", i, err)
		}

		user := rng.IntN(cfg.Users)
		points := randomWalk(rng, cfg, vp, user == 0)
		color := palette[user%len(palette)]
		size := 1 + rng.Float64()*5

		if user == 0 {
			id := s.BeginStroke(color, size, "user-0")
			for p := 0; p+1 < len(points); p += 2 {
				s.AddPoint(id, points[p], points[p+1], 0.3+0.7*rng.Float64())
			}
			if _, ok := s.EndStroke(id, false); ok {
				rep.LocalStrokes++
			}
		} else {
			st := &ink.Stroke{
				ID:        uuid.NewString(),
				Points:    points,
				Color:     color,
				Size:      size,
				Timestamp: clock.Now().UnixMilli(),
				UserID:    fmt.Sprintf("user-%d", user),
			}
			if err := s.AddStroke(st, true); err != nil {
				return rep, fmt.Errorf("sim: add remote stroke: %w", err)
			}
			rep.RemoteStrokes++
		}
		rep.Strokes++

		clock.Advance(cfg.StrokeInterval)
		s.Tick(clock.Now())

		if (i+1)%cfg.FrameEvery == 0 {
			vp = pan(rng, cfg, vp)
			f := s.Frame(vp)
			rep.Frames++
			rep.FrameTotal += f.Duration
			rep.FrameMax = max(rep.FrameMax, f.Duration)
			rep.LastFrame = f
		}
	}

	rep.Viewport = vp
	rep.Simulated = clock.Now().Sub(simStart)
	rep.Elapsed = time.Since(start)
	rep.Stats = s.Stats()
	return rep, nil
}

// randomWalk returns a stroke near the viewport for the local user and
// anywhere on the canvas for remote users.
func randomWalk(rng *rand.Rand, cfg Config, vp ink.Rect, local bool) []float64 {
	area := ink.Rect{Width: cfg.Canvas, Height: cfg.Canvas}
	if local {
		area = vp
	}
	n := max(2, cfg.PointsPerStroke/2+rng.IntN(cfg.PointsPerStroke+1))
	x := area.X + rng.Float64()*area.Width
	y := area.Y + rng.Float64()*area.Height
	heading := rng.Float64() * 2 * math.Pi

	pts := make([]float64, 0, 2*n)
	for range n {
		pts = append(pts, x, y)
		heading += (rng.Float64() - 0.5) * 0.6
		step := 2 + rng.Float64()*6
		x += math.Cos(heading) * step
		y += math.Sin(heading) * step
	}
	return pts
}

// pan drifts the viewport, keeping it on the canvas.
func pan(rng *rand.Rand, cfg Config, vp ink.Rect) ink.Rect {
	vp.X += (rng.Float64() - 0.5) * vp.Width * 0.2
	vp.Y += (rng.Float64() - 0.5) * vp.Height * 0.2
	vp.X = math.Min(math.Max(vp.X, 0), math.Max(cfg.Canvas-vp.Width, 0))
	vp.Y = math.Min(math.Max(vp.Y, 0), math.Max(cfg.Canvas-vp.Height, 0))
	return vp
}
