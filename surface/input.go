// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"github.com/gogpu/ink"
	"github.com/gogpu/ink/pool"
)

// BeginStroke starts a stroke drawn on this surface and returns its ID.
// The stroke record comes from the pool and stays there until EndStroke
// or CancelStroke.
func (s *Surface) BeginStroke(color string, size float64, userID string) string {
	rec := s.pool.Acquire()
	rec.ID = newID()
	rec.Color = color
	rec.Size = size
	rec.UserID = userID
	rec.Timestamp = s.now().UnixMilli()

	s.mu.Lock()
	s.active[rec.ID] = rec
	s.mu.Unlock()
	return rec.ID
}

// AddPoint appends one input sample to an active stroke. It reports false
// for unknown or finished strokes.
func (s *Surface) AddPoint(id string, x, y, pressure float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.active[id]
	if !ok {
		s.unknownIDs.Add(1)
		return false
	}
	rec.AppendPoint(x, y)
	rec.AppendPressure(pressure)
	return true
}

// EndStroke commits an active stroke: the pooled record is copied into an
// independent stroke, released, and the copy handed to retention. Strokes
// without points or failing validation are discarded and reported false.
func (s *Surface) EndStroke(id string, collaborative bool) (*ink.Stroke, bool) {
	rec, ok := s.take(id)
	if !ok {
		return nil, false
	}
	st := rec.Snapshot()
	s.pool.Release(rec)

	if st.NumPoints() == 0 {
		s.cancelled.Add(1)
		return nil, false
	}
	if err := s.AddStroke(st, collaborative); err != nil {
		ink.Logger().Warn("surface: discarding stroke", "id", id, "err", err)
		s.cancelled.Add(1)
		return nil, false
	}
	return st, true
}

// CancelStroke abandons an active stroke and returns its record to the
// pool.
func (s *Surface) CancelStroke(id string) bool {
	rec, ok := s.take(id)
	if !ok {
		return false
	}
	s.pool.Release(rec)
	s.cancelled.Add(1)
	return true
}

// ActiveStroke returns a copy of an in-progress stroke, for rendering the
// stroke under the pen before it is committed.
func (s *Surface) ActiveStroke(id string) (*ink.Stroke, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.active[id]
	if !ok {
		return nil, false
	}
	return rec.Snapshot(), true
}

func (s *Surface) take(id string) (*pool.Stroke, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.active[id]
	if !ok {
		s.unknownIDs.Add(1)
		return nil, false
	}
	delete(s.active, id)
	return rec, true
}
