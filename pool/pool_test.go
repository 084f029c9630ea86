package pool

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/ink"
)

func newTestPool(t *testing.T, mutate func(*Config)) *Pool {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max size", func(c *Config) { c.MaxSize = 0 }},
		{"negative initial size", func(c *Config) { c.InitialSize = -1 }},
		{"zero max points", func(c *Config) { c.MaxPointsPerStroke = 0 }},
		{"zero memory budget", func(c *Config) { c.MaxMemoryMB = 0 }},
		{"initial above max", func(c *Config) { c.InitialSize = c.MaxSize + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg); !errors.Is(err, ink.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestWarmupPreallocates(t *testing.T) {
	p := newTestPool(t, func(c *Config) { c.InitialSize = 5 })
	if p.Len() != 5 {
		t.Errorf("Len() = %d, want 5", p.Len())
	}
}

func TestAcquireMissCounting(t *testing.T) {
	p := newTestPool(t, func(c *Config) { c.InitialSize = 2 })

	a := p.Acquire()
	b := p.Acquire()
	c := p.Acquire()

	st := p.Stats()
	if st.Misses != 1 {
		t.Errorf("Misses = %d, want 1", st.Misses)
	}
	if st.Hits != 2 {
		t.Errorf("Hits = %d, want 2", st.Hits)
	}
	if st.InUse != 3 {
		t.Errorf("InUse = %d, want 3", st.InUse)
	}
	for _, s := range []*Stroke{a, b, c} {
		if !s.InUse() {
			t.Error("acquired stroke not marked in use")
		}
	}
}

func TestAcquireResetsButKeepsCapacity(t *testing.T) {
	p := newTestPool(t, func(c *Config) {
		c.InitialSize = 0
		c.PointCapacity = 8
	})

	s := p.Acquire()
	s.ID = "s1"
	s.Color = "#ff0000"
	s.Size = 3
	s.UserID = "u"
	for i := 0; i < 100; i++ {
		s.AppendPoint(float64(i), float64(i))
		s.AppendPressure(0.5)
	}
	grown := cap(s.Points)
	p.Release(s)

	again := p.Acquire()
	if again != s {
		t.Fatal("expected the released record to be reused")
	}
	if again.ID != "" || again.Color != "" || again.Size != 0 || again.UserID != "" {
		t.Errorf("record not reset: %+v", again.Stroke)
	}
	if len(again.Points) != 0 || len(again.Pressure) != 0 {
		t.Errorf("buffers not truncated: %d points, %d pressure", len(again.Points), len(again.Pressure))
	}
	if cap(again.Points) != grown {
		t.Errorf("cap(Points) = %d, want retained %d", cap(again.Points), grown)
	}
}

func TestReleaseInvalid(t *testing.T) {
	p := newTestPool(t, func(c *Config) { c.InitialSize = 1 })
	other := newTestPool(t, nil)

	s := p.Acquire()
	p.Release(s)
	p.Release(s) // double release
	p.Release(nil)
	p.Release(&Stroke{})       // never acquired
	p.Release(other.Acquire()) // foreign pool

	st := p.Stats()
	if st.InvalidReleases != 4 {
		t.Errorf("InvalidReleases = %d, want 4", st.InvalidReleases)
	}
	if st.Free != 1 {
		t.Errorf("Free = %d, want 1 (free list corrupted)", st.Free)
	}
	if st.InUse != 0 {
		t.Errorf("InUse = %d, want 0", st.InUse)
	}

	// The free list still hands out a single distinct record.
	a := p.Acquire()
	b := p.Acquire()
	if a == b {
		t.Error("free list returned the same record twice")
	}
}

func TestReleaseDropsOversized(t *testing.T) {
	p := newTestPool(t, func(c *Config) {
		c.InitialSize = 0
		c.MaxPointsPerStroke = 10
	})

	s := p.Acquire()
	for i := 0; i < 11; i++ {
		s.AppendPoint(0, 0)
	}
	p.Release(s)

	st := p.Stats()
	if st.Discarded != 1 {
		t.Errorf("Discarded = %d, want 1", st.Discarded)
	}
	if st.Free != 0 {
		t.Errorf("Free = %d, want 0", st.Free)
	}
	// A dropped record can no longer be released.
	p.Release(s)
	if p.Stats().InvalidReleases != 1 {
		t.Error("release of dropped record should be invalid")
	}
}

func TestReleaseRespectsMaxSize(t *testing.T) {
	p := newTestPool(t, func(c *Config) {
		c.InitialSize = 0
		c.MaxSize = 2
	})

	held := []*Stroke{p.Acquire(), p.Acquire(), p.Acquire()}
	for _, s := range held {
		p.Release(s)
	}
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}
	if p.Stats().Discarded != 1 {
		t.Errorf("Discarded = %d, want 1", p.Stats().Discarded)
	}
}

func TestAcquireReleaseCycleBounded(t *testing.T) {
	const n = 50
	p := newTestPool(t, func(c *Config) { c.InitialSize = 0 })

	for i := 0; i < n; i++ {
		s := p.Acquire()
		s.AppendPoint(1, 2)
		p.Release(s)
		if p.Len() > n {
			t.Fatalf("pool grew to %d records after %d cycles", p.Len(), i+1)
		}
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1 for strictly sequential reuse", p.Len())
	}
	if st := p.Stats(); st.Misses != 1 || st.Hits != n-1 {
		t.Errorf("Misses = %d, Hits = %d, want 1 and %d", st.Misses, st.Hits, n-1)
	}
}

func TestMaintainTrimsOldestQuarter(t *testing.T) {
	p := newTestPool(t, func(c *Config) {
		c.InitialSize = 0
		c.MaxMemoryMB = 1
		c.PointCapacity = 20000 // ~160KB per record
	})

	clock := time.Unix(1000, 0)
	p.now = func() time.Time { return clock }

	var held []*Stroke
	for i := 0; i < 8; i++ {
		held = append(held, p.Acquire())
	}
	// Release in order, each later than the last.
	for _, s := range held {
		clock = clock.Add(time.Second)
		p.Release(s)
	}

	if got := p.Maintain(); got != 2 {
		t.Fatalf("Maintain() = %d, want 2", got)
	}
	for _, s := range p.free {
		if s == held[0] || s == held[1] {
			t.Error("Maintain kept one of the two oldest records")
		}
	}
	if p.Stats().Trimmed != 2 {
		t.Errorf("Trimmed = %d, want 2", p.Stats().Trimmed)
	}

	// Below budget nothing happens.
	for p.Stats().EstimatedBytes > ink.BytesPerMB {
		p.Maintain()
	}
	if got := p.Maintain(); got != 0 {
		t.Errorf("Maintain() under budget = %d, want 0", got)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	p := newTestPool(t, nil)
	s := p.Acquire()
	s.ID = "s"
	s.Size = 1
	s.AppendPoint(1, 1)
	snap := s.Snapshot()
	p.Release(s)

	next := p.Acquire()
	next.AppendPoint(9, 9)
	if snap.Points[0] != 1 {
		t.Error("snapshot aliases the pooled buffer")
	}
}

func BenchmarkAcquireRelease(b *testing.B) {
	p, _ := New(DefaultConfig())
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s := p.Acquire()
		s.AppendPoint(1, 2)
		p.Release(s)
	}
}
