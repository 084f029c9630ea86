package retention

import (
	"sync"
	"time"

	"github.com/gogpu/ink"
	"github.com/gogpu/ink/internal/lru"
)

// BackupEntry is an evicted stroke held for possible re-admission.
type BackupEntry struct {
	Stroke        *ink.Stroke
	Collaborative bool
	EvictedAt     time.Time
}

// BackupStore holds evicted strokes. Implementations must be bounded and
// safe for concurrent use. Put replaces an existing entry with the same
// stroke ID. Take removes and returns the entry. Delete discards it and
// reports whether it existed.
type BackupStore interface {
	Put(e BackupEntry)
	Take(id string) (BackupEntry, bool)
	Delete(id string) bool
	Len() int
}

// MemoryBackup is a bounded in-memory BackupStore. When full, the least
// recently written entry is displaced.
type MemoryBackup struct {
	mu        sync.Mutex
	capacity  int
	entries   map[string]backupSlot
	order     *lru.List[string]
	displaced uint64
}

type backupSlot struct {
	entry BackupEntry
	node  int32
}

// NewMemoryBackup creates a store holding at most capacity entries.
// A capacity below 1 is raised to 1.
func NewMemoryBackup(capacity int) *MemoryBackup {
	capacity = max(capacity, 1)
	return &MemoryBackup{
		capacity: capacity,
		entries:  make(map[string]backupSlot, capacity),
		order:    lru.New[string](capacity),
	}
}

// Put stores e, displacing the oldest entry when at capacity.
func (b *MemoryBackup) Put(e BackupEntry) {
	if e.Stroke == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	id := e.Stroke.ID
	if slot, ok := b.entries[id]; ok {
		b.order.MoveToFront(slot.node)
		b.entries[id] = backupSlot{entry: e, node: slot.node}
		return
	}
	for b.order.Len() >= b.capacity {
		old, ok := b.order.RemoveBack()
		if !ok {
			break
		}
		delete(b.entries, old)
		b.displaced++
	}
	b.entries[id] = backupSlot{entry: e, node: b.order.PushFront(id)}
}

// Take removes and returns the entry for id.
func (b *MemoryBackup) Take(id string) (BackupEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	slot, ok := b.entries[id]
	if !ok {
		return BackupEntry{}, false
	}
	b.order.Remove(slot.node)
	delete(b.entries, id)
	return slot.entry, true
}

// Delete discards the entry for id.
func (b *MemoryBackup) Delete(id string) bool {
	_, ok := b.Take(id)
	return ok
}

// Len returns the number of stored entries.
func (b *MemoryBackup) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Displaced returns the number of entries dropped to stay within capacity.
func (b *MemoryBackup) Displaced() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.displaced
}
