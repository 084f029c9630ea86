// Package maintenance runs the periodic and deferred housekeeping of a
// drawing session: retention sweeps, pool trimming and cache expiry.
//
// A Scheduler is an explicit instance owned by its caller. It can run its
// own goroutine (Start/Stop) or be driven by the host's frame loop (Tick).
// Jobs run outside the scheduler lock, one at a time; a panicking job is
// recovered, logged and counted without stopping the scheduler.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/ink"
)

const (
	historyLen = 64

	// idleWait bounds how long the goroutine sleeps with nothing scheduled.
	idleWait = time.Hour
)

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("maintenance: scheduler already started")

// Execution records one job run.
type Execution struct {
	Job      string
	Deferred bool
	Started  time.Time
	Duration time.Duration
	Panicked bool
}

type job struct {
	name     string
	interval time.Duration
	fn       func()
	next     time.Time
	last     time.Time
	runs     uint64
}

// JobStatus describes a registered repeating job.
type JobStatus struct {
	Name     string
	Interval time.Duration
	// NextRun is the earliest Tick time at which the job is due.
	NextRun time.Time
	// LastRun is the Tick time of the latest dispatch; zero before the first.
	LastRun time.Time
	Runs    uint64
}

func (j *job) status() JobStatus {
	return JobStatus{Name: j.name, Interval: j.interval, NextRun: j.next, LastRun: j.last, Runs: j.runs}
}

type deferredJob struct {
	name string
	fn   func()
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock used to decide which jobs are due.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// Scheduler runs repeating jobs and coalesced one-shot jobs.
//
// Scheduler is safe for concurrent use.
type Scheduler struct {
	mu       sync.Mutex
	jobs     []*job
	deferred []deferredJob
	now      func() time.Time
	history  []Execution
	stats    Stats

	// runMu serializes job execution between Tick callers.
	runMu sync.Mutex

	wake      chan struct{}
	startedMu sync.Mutex
	started   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates an idle scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		now:     time.Now,
		wake:    make(chan struct{}, 1),
		history: make([]Execution, 0, historyLen),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Every registers fn to run every interval, first one interval from now.
// Names must be unique.
func (s *Scheduler) Every(name string, interval time.Duration, fn func()) error {
	if err := ink.RequirePositive("maintenance", name+".interval", int64(interval)); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("maintenance: job %q has nil func", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.name == name {
			return fmt.Errorf("maintenance: job %q already registered", name)
		}
	}
	s.jobs = append(s.jobs, &job{
		name:     name,
		interval: interval,
		fn:       fn,
		next:     s.now().Add(interval),
	})
	s.signal()
	return nil
}

// Remove unregisters the repeating job name and reports whether it was
// registered. A Tick already running the job finishes that run.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.jobs, func(j *job) bool { return j.name == name })
	if i < 0 {
		return false
	}
	s.jobs = slices.Delete(s.jobs, i, i+1)
	s.signal()
	return true
}

// Job returns the status of the repeating job name.
func (s *Scheduler) Job(name string) (JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.name == name {
			return j.status(), true
		}
	}
	return JobStatus{}, false
}

// Jobs returns the status of every repeating job in registration order.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, len(s.jobs))
	for i, j := range s.jobs {
		out[i] = j.status()
	}
	return out
}

// Defer queues fn to run once on the next Tick. While a job with the same
// name is queued, further Defer calls are coalesced into it and return
// false. Defer never runs fn inline.
func (s *Scheduler) Defer(name string, fn func()) bool {
	if fn == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.deferred {
		if d.name == name {
			s.stats.Coalesced++
			return false
		}
	}
	s.deferred = append(s.deferred, deferredJob{name: name, fn: fn})
	s.signal()
	return true
}

// Deferrer adapts Defer to the func(func()) shape components accept for
// scheduling their own deferred work.
func (s *Scheduler) Deferrer(name string) func(fn func()) {
	return func(fn func()) {
		s.Defer(name, fn)
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Tick runs every deferred job and every repeating job due at now. Missed
// periods are not replayed: a job's next run is one interval after now.
// It returns the number of jobs run.
func (s *Scheduler) Tick(now time.Time) int {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.Lock()
	deferred := s.deferred
	s.deferred = nil
	var due []*job
	for _, j := range s.jobs {
		if !j.next.After(now) {
			due = append(due, j)
			j.next = now.Add(j.interval)
			j.last = now
			j.runs++
		}
	}
	s.stats.Ticks++
	s.mu.Unlock()

	for _, d := range deferred {
		s.run(d.name, true, d.fn)
	}
	for _, j := range due {
		s.run(j.name, false, j.fn)
	}
	return len(deferred) + len(due)
}

func (s *Scheduler) run(name string, deferred bool, fn func()) {
	exec := Execution{Job: name, Deferred: deferred, Started: s.now()}
	func() {
		defer func() {
			if r := recover(); r != nil {
				exec.Panicked = true
				ink.Logger().Error("maintenance: job panicked",
					"job", name, "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
	exec.Duration = s.now().Sub(exec.Started)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == historyLen {
		copy(s.history, s.history[1:])
		s.history = s.history[:historyLen-1]
	}
	s.history = append(s.history, exec)
	s.stats.Runs++
	if exec.Panicked {
		s.stats.Panics++
	}
}

// Start runs the scheduler on its own goroutine until ctx is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.startedMu.Lock()
	defer s.startedMu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop stops the goroutine started by Start and waits for a running job to
// finish. It is a no-op on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.startedMu.Lock()
	defer s.startedMu.Unlock()

	if !s.started {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.started = false
}

// Running reports whether the scheduler goroutine is active.
func (s *Scheduler) Running() bool {
	s.startedMu.Lock()
	defer s.startedMu.Unlock()
	return s.started
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.untilNext())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-timer.C:
		}
		s.Tick(s.now())
		timer.Reset(s.untilNext())
	}
}

// untilNext returns the wait until the earliest due job.
func (s *Scheduler) untilNext() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.deferred) > 0 {
		return 0
	}
	wait := idleWait
	now := s.now()
	for _, j := range s.jobs {
		wait = min(wait, j.next.Sub(now))
	}
	return max(wait, 0)
}

// History returns the most recent executions, oldest first.
func (s *Scheduler) History() []Execution {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// Stats contains scheduler statistics.
type Stats struct {
	// Jobs is the number of repeating jobs.
	Jobs int
	// Pending is the number of queued deferred jobs.
	Pending int
	// Ticks counts Tick calls, including those from the goroutine.
	Ticks uint64
	// Runs counts job executions; Panics those that panicked.
	Runs   uint64
	Panics uint64
	// Coalesced counts Defer calls merged into a queued job.
	Coalesced uint64
}

// Stats returns current scheduler statistics.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.Jobs = len(s.jobs)
	st.Pending = len(s.deferred)
	return st
}
