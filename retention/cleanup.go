package retention

import (
	"cmp"
	"slices"
	"time"

	"github.com/gogpu/ink"
)

// CleanupResult records one Cleanup call.
type CleanupResult struct {
	Started  time.Time
	Duration time.Duration

	StrokesBefore int
	StrokesAfter  int
	BytesBefore   int64
	BytesAfter    int64

	EvictedByAge    int
	EvictedByMemory int
	EvictedByCount  int

	// Skipped is set when the resident count was already at the floor.
	Skipped bool
	// FloorReached is set when a pass stopped at MinRetainedStrokes while
	// its threshold was still exceeded.
	FloorReached bool
}

// Evicted returns the total number of strokes evicted.
func (r CleanupResult) Evicted() int {
	return r.EvictedByAge + r.EvictedByMemory + r.EvictedByCount
}

// Cleanup recomputes importance for every resident stroke and runs the
// age, memory and count passes in order of ascending importance. Evicted
// strokes go to the backup store. The resident count never drops below
// MinRetainedStrokes, and an immediate second call evicts nothing.
func (m *Manager) Cleanup() CleanupResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	res := CleanupResult{
		Started:       now,
		StrokesBefore: len(m.strokes),
		BytesBefore:   m.bytes,
	}
	floor := m.cfg.MinRetainedStrokes

	if len(m.strokes) <= floor {
		res.Skipped = true
		res.StrokesAfter, res.BytesAfter = res.StrokesBefore, res.BytesBefore
		m.recordLocked(res)
		return res
	}

	candidates := make([]*managedStroke, 0, len(m.strokes))
	for _, ms := range m.strokes {
		ms.importance = m.cfg.Scoring.recompute(ms, now)
		candidates = append(candidates, ms)
	}
	slices.SortFunc(candidates, func(a, b *managedStroke) int {
		return cmp.Or(
			cmp.Compare(a.importance, b.importance),
			cmp.Compare(a.stroke.Timestamp, b.stroke.Timestamp),
			cmp.Compare(a.stroke.ID, b.stroke.ID),
		)
	})

	evict := func(ms *managedStroke, reason EvictReason) {
		m.removeLocked(ms.stroke.ID, true, reason)
		switch reason {
		case EvictAge:
			res.EvictedByAge++
		case EvictMemory:
			res.EvictedByMemory++
		case EvictCount:
			res.EvictedByCount++
		}
	}
	resident := func(ms *managedStroke) bool {
		cur, ok := m.strokes[ms.stroke.ID]
		return ok && cur == ms
	}

	cutoff := now.Add(-m.cfg.MaxStrokeAge)
	for _, ms := range candidates {
		if !ms.stroke.CreatedAt().Before(cutoff) {
			continue
		}
		if len(m.strokes) <= floor {
			res.FloorReached = true
			break
		}
		evict(ms, EvictAge)
	}

	for _, ms := range candidates {
		if m.bytes <= m.maxBytes {
			break
		}
		if len(m.strokes) <= floor {
			res.FloorReached = true
			break
		}
		if resident(ms) {
			evict(ms, EvictMemory)
		}
	}

	for _, ms := range candidates {
		if len(m.strokes) <= m.cfg.MaxHistorySize {
			break
		}
		if len(m.strokes) <= floor {
			res.FloorReached = true
			break
		}
		if resident(ms) {
			evict(ms, EvictCount)
		}
	}

	res.StrokesAfter = len(m.strokes)
	res.BytesAfter = m.bytes
	res.Duration = m.now().Sub(now)
	m.recordLocked(res)

	if n := res.Evicted(); n > 0 {
		ink.Logger().Debug("retention: cleanup evicted strokes",
			"evicted", n,
			"age", res.EvictedByAge,
			"memory", res.EvictedByMemory,
			"count", res.EvictedByCount,
			"resident", res.StrokesAfter,
			"bytes", res.BytesAfter)
	}
	if res.FloorReached {
		ink.Logger().Warn("retention: cleanup stopped at retention floor",
			"floor", floor, "bytes", res.BytesAfter, "maxBytes", m.maxBytes)
	}
	return res
}

// Caller must hold m.mu.
func (m *Manager) recordLocked(res CleanupResult) {
	if len(m.history) == historyLen {
		copy(m.history, m.history[1:])
		m.history = m.history[:historyLen-1]
	}
	m.history = append(m.history, res)

	m.stats.Cleanups++
	if res.Skipped {
		m.stats.SkippedCleanups++
	}
	if res.FloorReached {
		m.stats.FloorReached++
	}
	m.stats.EvictedByAge += uint64(res.EvictedByAge)
	m.stats.EvictedByMemory += uint64(res.EvictedByMemory)
	m.stats.EvictedByCount += uint64(res.EvictedByCount)
	m.stats.CleanupTime += res.Duration
	m.stats.LastCleanup = res.Started
}

// History returns the most recent cleanup results, oldest first.
func (m *Manager) History() []CleanupResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.history)
}

// Stats contains retention statistics for monitoring.
type Stats struct {
	// Resident is the number of resident strokes.
	Resident int
	// Bytes and MaxBytes are the estimated resident memory and its budget.
	Bytes    int64
	MaxBytes int64
	// Added, Updated and Removed count owner calls that changed the set.
	Added   uint64
	Updated uint64
	Removed uint64
	// Hits and Misses count Get lookups against the resident set.
	Hits   uint64
	Misses uint64
	// BackedUp is the number of strokes copied to the backup store.
	BackedUp uint64
	// Restored is the number of strokes re-admitted from backup.
	Restored uint64
	// Purged is the number of backup copies discarded by deletions or by
	// newer content for the same ID.
	Purged uint64
	// BackupLen is the current backup store size.
	BackupLen int
	// Cleanups counts every Cleanup call, including skipped ones.
	Cleanups        uint64
	SkippedCleanups uint64
	FloorReached    uint64
	// Scheduled counts deferred cleanups handed to the deferrer.
	Scheduled uint64

	EvictedByAge    uint64
	EvictedByMemory uint64
	EvictedByCount  uint64

	CleanupTime time.Duration
	LastCleanup time.Time
}

// Evicted returns the total number of strokes evicted by cleanups.
func (s Stats) Evicted() uint64 {
	return s.EvictedByAge + s.EvictedByMemory + s.EvictedByCount
}

// Stats returns current retention statistics.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.Resident = len(m.strokes)
	s.Bytes = m.bytes
	s.MaxBytes = m.maxBytes
	if m.backup != nil {
		s.BackupLen = m.backup.Len()
	}
	return s
}
