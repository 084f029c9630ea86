package maintenance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/ink"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestScheduler() (*Scheduler, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return New(WithClock(clk.now)), clk
}

func TestEveryRunsWhenDue(t *testing.T) {
	s, clk := newTestScheduler()
	var runs int
	if err := s.Every("sweep", time.Minute, func() { runs++ }); err != nil {
		t.Fatalf("Every: %v", err)
	}

	if n := s.Tick(clk.t.Add(30 * time.Second)); n != 0 || runs != 0 {
		t.Fatalf("early Tick ran %d jobs, runs = %d", n, runs)
	}
	if n := s.Tick(clk.t.Add(time.Minute)); n != 1 || runs != 1 {
		t.Fatalf("due Tick ran %d jobs, runs = %d", n, runs)
	}
	// A late tick runs once, not once per missed period.
	if n := s.Tick(clk.t.Add(10 * time.Minute)); n != 1 || runs != 2 {
		t.Fatalf("late Tick ran %d jobs, runs = %d", n, runs)
	}
	if n := s.Tick(clk.t.Add(10*time.Minute + 59*time.Second)); n != 0 {
		t.Errorf("Tick before next period ran %d jobs", n)
	}
}

func TestEveryValidation(t *testing.T) {
	s, _ := newTestScheduler()

	if err := s.Every("bad", 0, func() {}); !errors.Is(err, ink.ErrInvalidConfig) {
		t.Errorf("zero interval error = %v, want ErrInvalidConfig", err)
	}
	if err := s.Every("nil", time.Second, nil); err == nil {
		t.Error("nil func accepted")
	}
	if err := s.Every("a", time.Second, func() {}); err != nil {
		t.Fatalf("Every(a): %v", err)
	}
	if err := s.Every("a", time.Second, func() {}); err == nil {
		t.Error("duplicate name accepted")
	}
	if got := s.Stats().Jobs; got != 1 {
		t.Errorf("Jobs = %d, want 1", got)
	}
}

func TestRemoveStopsRepeatingJob(t *testing.T) {
	s, clk := newTestScheduler()
	var runs int
	if err := s.Every("sweep", time.Minute, func() { runs++ }); err != nil {
		t.Fatalf("Every: %v", err)
	}
	s.Tick(clk.t.Add(time.Minute))

	if !s.Remove("sweep") {
		t.Fatal("Remove(sweep) = false")
	}
	if s.Remove("sweep") {
		t.Error("second Remove(sweep) = true")
	}
	if _, ok := s.Job("sweep"); ok {
		t.Error("Job(sweep) found after Remove")
	}
	if n := s.Tick(clk.t.Add(time.Hour)); n != 0 || runs != 1 {
		t.Errorf("Tick after Remove ran %d jobs, runs = %d", n, runs)
	}
	if got := s.Stats().Jobs; got != 0 {
		t.Errorf("Jobs = %d, want 0", got)
	}

	// The name is free again.
	if err := s.Every("sweep", time.Second, func() {}); err != nil {
		t.Errorf("re-register after Remove: %v", err)
	}
}

func TestJobStatus(t *testing.T) {
	s, clk := newTestScheduler()
	start := clk.t
	if err := s.Every("a", time.Minute, func() {}); err != nil {
		t.Fatal(err)
	}
	if err := s.Every("b", time.Hour, func() {}); err != nil {
		t.Fatal(err)
	}

	st, ok := s.Job("a")
	if !ok {
		t.Fatal("Job(a) not found")
	}
	want := JobStatus{Name: "a", Interval: time.Minute, NextRun: start.Add(time.Minute)}
	if st != want {
		t.Errorf("Job(a) = %+v, want %+v", st, want)
	}

	tick := start.Add(90 * time.Second)
	s.Tick(tick)
	st, _ = s.Job("a")
	if st.Runs != 1 || !st.LastRun.Equal(tick) || !st.NextRun.Equal(tick.Add(time.Minute)) {
		t.Errorf("Job(a) after Tick = %+v", st)
	}

	jobs := s.Jobs()
	if len(jobs) != 2 || jobs[0].Name != "a" || jobs[1].Name != "b" {
		t.Fatalf("Jobs() = %+v, want [a b]", jobs)
	}
	if jobs[1].Runs != 0 || !jobs[1].LastRun.IsZero() {
		t.Errorf("Jobs()[1] = %+v, want not yet run", jobs[1])
	}
	if _, ok := s.Job("missing"); ok {
		t.Error("Job(missing) found")
	}
}

func TestDeferCoalesces(t *testing.T) {
	s, clk := newTestScheduler()
	var runs int

	if !s.Defer("cleanup", func() { runs++ }) {
		t.Fatal("first Defer = false")
	}
	if s.Defer("cleanup", func() { runs += 100 }) {
		t.Error("second Defer = true, want coalesced")
	}
	if runs != 0 {
		t.Fatal("Defer ran inline")
	}
	if got := s.Stats().Pending; got != 1 {
		t.Errorf("Pending = %d, want 1", got)
	}

	s.Tick(clk.t)
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
	if !s.Defer("cleanup", func() { runs++ }) {
		t.Error("Defer after run was coalesced")
	}
	st := s.Stats()
	if st.Coalesced != 1 || st.Runs != 1 {
		t.Errorf("stats = %+v, want Coalesced 1, Runs 1", st)
	}
}

func TestDeferrerAdapter(t *testing.T) {
	s, clk := newTestScheduler()
	d := s.Deferrer("retention")
	var runs int
	d(func() { runs++ })
	d(func() { runs++ })
	s.Tick(clk.t)
	if runs != 1 {
		t.Errorf("runs = %d, want 1", runs)
	}
	h := s.History()
	if len(h) != 1 || h[0].Job != "retention" || !h[0].Deferred {
		t.Errorf("history = %+v", h)
	}
}

func TestPanicRecovered(t *testing.T) {
	s, clk := newTestScheduler()
	var after bool
	s.Defer("boom", func() { panic("boom") })
	s.Defer("after", func() { after = true })

	if n := s.Tick(clk.t); n != 2 {
		t.Fatalf("Tick ran %d jobs, want 2", n)
	}
	if !after {
		t.Error("job after a panic did not run")
	}
	st := s.Stats()
	if st.Panics != 1 || st.Runs != 2 {
		t.Errorf("stats = %+v, want Panics 1, Runs 2", st)
	}
	if h := s.History(); !h[0].Panicked || h[1].Panicked {
		t.Errorf("history = %+v", h)
	}
}

func TestHistoryBounded(t *testing.T) {
	s, clk := newTestScheduler()
	for i := 0; i < historyLen+5; i++ {
		s.Defer("job", func() {})
		s.Tick(clk.t)
	}
	if got := len(s.History()); got != historyLen {
		t.Errorf("len(History) = %d, want %d", got, historyLen)
	}
}

func TestStartStop(t *testing.T) {
	s := New()
	done := make(chan struct{})
	var runs atomic.Int32

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}

	s.Defer("once", func() {
		runs.Add(1)
		close(done)
	})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deferred job did not run")
	}

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Error("Running = true after Stop")
	}
	if runs.Load() != 1 {
		t.Errorf("runs = %d, want 1", runs.Load())
	}
}

func TestStartRunsRepeatingJob(t *testing.T) {
	s := New()
	ticks := make(chan struct{}, 8)
	if err := s.Every("fast", 5*time.Millisecond, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	for i := 0; i < 2; i++ {
		select {
		case <-ticks:
		case <-time.After(5 * time.Second):
			t.Fatalf("repeating job ran %d times, want 2", i)
		}
	}
}
