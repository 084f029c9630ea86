package retention

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/ink"
)

// EvictReason tells why a stroke left the resident set.
type EvictReason uint8

const (
	// EvictExplicit is a Remove call by the owner.
	EvictExplicit EvictReason = iota
	// EvictAge is the first cleanup pass.
	EvictAge
	// EvictMemory is the second cleanup pass.
	EvictMemory
	// EvictCount is the third cleanup pass.
	EvictCount
)

func (r EvictReason) String() string {
	switch r {
	case EvictExplicit:
		return "explicit"
	case EvictAge:
		return "age"
	case EvictMemory:
		return "memory"
	case EvictCount:
		return "count"
	default:
		return "unknown"
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock used for ages and access times.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithDeferrer sets how threshold-triggered cleanups are scheduled.
// The deferrer must run fn after it returns, never inline: it is invoked
// while the manager is locked. The default runs fn on a timer goroutine.
func WithDeferrer(deferFn func(fn func())) Option {
	return func(m *Manager) {
		if deferFn != nil {
			m.deferFn = deferFn
		}
	}
}

// WithBackupStore replaces the default in-memory backup store.
// A nil store disables backup.
func WithBackupStore(s BackupStore) Option {
	return func(m *Manager) {
		m.backup = s
		m.customBackup = true
	}
}

// WithEvictionHandler registers fn to be told about every stroke that
// leaves the resident set. fn runs with the manager locked and must not
// call back into it.
func WithEvictionHandler(fn func(id string, reason EvictReason)) Option {
	return func(m *Manager) {
		m.onEvict = fn
	}
}

// WithRestoreHandler registers fn to be told about strokes re-admitted from
// backup by Get. The same locking rule as WithEvictionHandler applies.
func WithRestoreHandler(fn func(s *ink.Stroke)) Option {
	return func(m *Manager) {
		m.onRestore = fn
	}
}

type managedStroke struct {
	stroke        *ink.Stroke
	addedAt       time.Time
	lastAccessed  time.Time
	accessCount   uint64
	modCount      uint64
	collaborative bool
	size          int64
	importance    float64
}

// Manager owns the resident stroke set.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	cfg      Config
	maxBytes int64
	strokes  map[string]*managedStroke
	bytes    int64

	// ordered is the resident set sorted by creation time; nil when stale.
	ordered []*ink.Stroke

	backup       BackupStore
	customBackup bool
	now          func() time.Time
	deferFn      func(fn func())
	onEvict      func(id string, reason EvictReason)
	onRestore    func(s *ink.Stroke)

	pending atomic.Bool
	history []CleanupResult
	stats   Stats
}

// New creates a manager.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:      cfg,
		maxBytes: int64(cfg.MaxMemoryMB * ink.BytesPerMB),
		strokes:  make(map[string]*managedStroke),
		now:      time.Now,
		deferFn:  func(fn func()) { time.AfterFunc(0, fn) },
		history:  make([]CleanupResult, 0, historyLen),
	}
	for _, opt := range opts {
		opt(m)
	}
	if !m.customBackup && cfg.BackupCapacity > 0 {
		m.backup = NewMemoryBackup(cfg.BackupCapacity)
	}
	return m, nil
}

// Config returns the manager configuration.
func (m *Manager) Config() Config {
	return m.cfg
}

// Add inserts a stroke into the resident set. Adding an ID that is
// already resident replaces the stroke as Update does. Invalid strokes are
// logged and ignored. Crossing a threshold schedules a deferred cleanup.
func (m *Manager) Add(s *ink.Stroke, collaborative bool) {
	if err := s.Validate(); err != nil {
		ink.Logger().Warn("retention: ignoring stroke", "err", err)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropBackupLocked(s.ID)
	if _, ok := m.strokes[s.ID]; ok {
		m.updateLocked(s)
		return
	}
	m.addLocked(s, collaborative)
	m.stats.Added++
}

// dropBackupLocked discards a backed-up copy of id so that it cannot
// later be restored over newer content or after a deletion.
// Caller must hold m.mu.
func (m *Manager) dropBackupLocked(id string) bool {
	if m.backup == nil || !m.backup.Delete(id) {
		return false
	}
	m.stats.Purged++
	return true
}

// Caller must hold m.mu.
func (m *Manager) addLocked(s *ink.Stroke, collaborative bool) {
	now := m.now()
	ms := &managedStroke{
		stroke:        s,
		addedAt:       now,
		lastAccessed:  now,
		collaborative: collaborative,
		size:          s.EstimatedSize(),
	}
	ms.importance = m.cfg.Scoring.initial(s, collaborative, now)
	m.strokes[s.ID] = ms
	m.bytes += ms.size
	m.ordered = nil
	m.maybeScheduleLocked()
}

// Get returns the stroke with the given ID and records an access. A
// stroke that was evicted to backup is re-admitted with fresh metadata.
func (m *Manager) Get(id string) (*ink.Stroke, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ms, ok := m.strokes[id]; ok {
		now := m.now()
		ms.accessCount++
		ms.lastAccessed = now
		ms.importance = m.cfg.Scoring.recompute(ms, now)
		m.stats.Hits++
		return ms.stroke, true
	}
	m.stats.Misses++
	if m.backup == nil {
		return nil, false
	}
	e, ok := m.backup.Take(id)
	if !ok || e.Stroke == nil {
		return nil, false
	}
	m.addLocked(e.Stroke, e.Collaborative)
	m.stats.Restored++
	ink.Logger().Debug("retention: restored stroke from backup", "id", id)
	if m.onRestore != nil {
		m.onRestore(e.Stroke)
	}
	return e.Stroke, true
}

// Contains reports whether id is resident, without recording an access.
func (m *Manager) Contains(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.strokes[id]
	return ok
}

// Update replaces a resident stroke, adjusting tracked memory and counting
// a modification. Updating an unknown ID adds it.
func (m *Manager) Update(s *ink.Stroke) {
	if err := s.Validate(); err != nil {
		ink.Logger().Warn("retention: ignoring update", "err", err)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dropBackupLocked(s.ID)
	if _, ok := m.strokes[s.ID]; !ok {
		m.addLocked(s, false)
		m.stats.Added++
		return
	}
	m.updateLocked(s)
}

// Caller must hold m.mu and s.ID must be resident.
func (m *Manager) updateLocked(s *ink.Stroke) {
	ms := m.strokes[s.ID]
	size := s.EstimatedSize()
	m.bytes += size - ms.size
	ms.size = size
	ms.stroke = s
	ms.modCount++
	ms.importance = m.cfg.Scoring.recompute(ms, m.now())
	m.ordered = nil
	m.stats.Updated++
	m.maybeScheduleLocked()
}

// Remove drops a stroke. With backup set, a resident stroke is copied to
// the backup store first. Without it the stroke is deleted: any copy in
// the backup store is discarded too, so a stroke evicted earlier cannot
// be restored afterwards. It reports whether the stroke was resident or,
// for a deletion, held in backup.
func (m *Manager) Remove(id string, backup bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := false
	if !backup {
		purged = m.dropBackupLocked(id)
	}
	if _, ok := m.strokes[id]; !ok {
		return purged
	}
	m.removeLocked(id, backup, EvictExplicit)
	m.stats.Removed++
	return true
}

// Caller must hold m.mu and id must be resident.
func (m *Manager) removeLocked(id string, backup bool, reason EvictReason) {
	ms := m.strokes[id]
	if backup && m.backup != nil {
		m.backup.Put(BackupEntry{
			Stroke:        ms.stroke,
			Collaborative: ms.collaborative,
			EvictedAt:     m.now(),
		})
		m.stats.BackedUp++
	}
	delete(m.strokes, id)
	m.bytes -= ms.size
	m.ordered = nil
	if m.onEvict != nil {
		m.onEvict(id, reason)
	}
}

// Strokes returns the resident strokes ordered by creation time, then ID.
// The returned slice is shared until the resident set changes and must
// not be modified.
func (m *Manager) Strokes() []*ink.Stroke {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ordered == nil {
		ordered := make([]*ink.Stroke, 0, len(m.strokes))
		for _, ms := range m.strokes {
			ordered = append(ordered, ms.stroke)
		}
		slices.SortFunc(ordered, func(a, b *ink.Stroke) int {
			return cmp.Or(cmp.Compare(a.Timestamp, b.Timestamp), cmp.Compare(a.ID, b.ID))
		})
		m.ordered = ordered
	}
	return m.ordered
}

// Len returns the resident stroke count.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.strokes)
}

// MemoryUsage returns the estimated resident bytes.
func (m *Manager) MemoryUsage() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bytes
}

// Importance returns the current importance score of a resident stroke
// without recording an access.
func (m *Manager) Importance(id string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms, ok := m.strokes[id]
	if !ok {
		return 0, false
	}
	return ms.importance, true
}

// Entry describes one resident stroke.
type Entry struct {
	ID                string
	AddedAt           time.Time
	LastAccessed      time.Time
	AccessCount       uint64
	ModificationCount uint64
	Collaborative     bool
	Size              int64
	Importance        float64
}

// Entries returns the resident strokes' metadata, most important first.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, 0, len(m.strokes))
	for id, ms := range m.strokes {
		out = append(out, Entry{
			ID:                id,
			AddedAt:           ms.addedAt,
			LastAccessed:      ms.lastAccessed,
			AccessCount:       ms.accessCount,
			ModificationCount: ms.modCount,
			Collaborative:     ms.collaborative,
			Size:              ms.size,
			Importance:        ms.importance,
		})
	}
	slices.SortFunc(out, func(a, b Entry) int {
		return cmp.Or(cmp.Compare(b.Importance, a.Importance), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// Caller must hold m.mu.
func (m *Manager) overLocked() bool {
	return m.bytes > m.maxBytes || len(m.strokes) > m.cfg.MaxHistorySize
}

// maybeScheduleLocked hands one cleanup to the deferrer when a threshold
// is crossed. Further crossings before it runs are coalesced.
//
// Caller must hold m.mu.
func (m *Manager) maybeScheduleLocked() {
	if !m.overLocked() || !m.pending.CompareAndSwap(false, true) {
		return
	}
	m.stats.Scheduled++
	m.deferFn(func() {
		m.pending.Store(false)
		m.Cleanup()
	})
}

// CleanupPending reports whether a deferred cleanup is scheduled but has
// not run yet.
func (m *Manager) CleanupPending() bool {
	return m.pending.Load()
}
