// Package lru provides an arena-indexed doubly-linked LRU list.
//
// Nodes live in a single slice and link to each other by int32 index, so
// the list holds no pointers between nodes and freed slots are recycled
// through an internal free list. Callers keep a map from key to index.
//
// The list is not thread-safe; callers must handle synchronization.
package lru

// Nil is the index that marks "no node".
const Nil int32 = -1

type node[K comparable] struct {
	key  K
	prev int32
	next int32
	live bool
}

// List is an arena-backed LRU list. The front is the most recently used
// entry, the back the least recently used.
type List[K comparable] struct {
	nodes []node[K]
	head  int32
	tail  int32
	free  int32 // head of the free-slot chain, linked through next
	len   int
}

// New creates an empty list with room for capacityHint nodes.
func New[K comparable](capacityHint int) *List[K] {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &List[K]{
		nodes: make([]node[K], 0, capacityHint),
		head:  Nil,
		tail:  Nil,
		free:  Nil,
	}
}

// Len returns the number of live nodes.
func (l *List[K]) Len() int {
	return l.len
}

// PushFront inserts key at the front and returns its stable index.
// The index stays valid until the node is removed.
func (l *List[K]) PushFront(key K) int32 {
	idx := l.alloc()
	n := &l.nodes[idx]
	n.key = key
	n.live = true
	n.prev = Nil
	n.next = l.head
	if l.head != Nil {
		l.nodes[l.head].prev = idx
	}
	l.head = idx
	if l.tail == Nil {
		l.tail = idx
	}
	l.len++
	return idx
}

// MoveToFront marks the node at idx as most recently used.
func (l *List[K]) MoveToFront(idx int32) {
	if !l.valid(idx) || idx == l.head {
		return
	}
	l.unlink(idx)
	n := &l.nodes[idx]
	n.prev = Nil
	n.next = l.head
	if l.head != Nil {
		l.nodes[l.head].prev = idx
	}
	l.head = idx
	if l.tail == Nil {
		l.tail = idx
	}
}

// Remove unlinks the node at idx, recycles its slot and returns its key.
// Removing an invalid index is a no-op returning the zero key.
func (l *List[K]) Remove(idx int32) K {
	var zero K
	if !l.valid(idx) {
		return zero
	}
	l.unlink(idx)
	n := &l.nodes[idx]
	key := n.key
	n.key = zero
	n.live = false
	n.prev = Nil
	n.next = l.free
	l.free = idx
	l.len--
	return key
}

// Back returns the index of the least recently used node.
func (l *List[K]) Back() (int32, bool) {
	if l.tail == Nil {
		return Nil, false
	}
	return l.tail, true
}

// RemoveBack removes and returns the least recently used key.
func (l *List[K]) RemoveBack() (K, bool) {
	idx, ok := l.Back()
	if !ok {
		var zero K
		return zero, false
	}
	return l.Remove(idx), true
}

// Key returns the key stored at idx.
func (l *List[K]) Key(idx int32) K {
	if !l.valid(idx) {
		var zero K
		return zero
	}
	return l.nodes[idx].key
}

// Each calls fn for every key from front (most recent) to back.
// Iteration stops when fn returns false. fn must not modify the list.
func (l *List[K]) Each(fn func(idx int32, key K) bool) {
	for i := l.head; i != Nil; i = l.nodes[i].next {
		if !fn(i, l.nodes[i].key) {
			return
		}
	}
}

// Clear removes all nodes and releases the arena.
func (l *List[K]) Clear() {
	l.nodes = l.nodes[:0]
	l.head = Nil
	l.tail = Nil
	l.free = Nil
	l.len = 0
}

func (l *List[K]) valid(idx int32) bool {
	return idx >= 0 && int(idx) < len(l.nodes) && l.nodes[idx].live
}

func (l *List[K]) alloc() int32 {
	if l.free != Nil {
		idx := l.free
		l.free = l.nodes[idx].next
		return idx
	}
	l.nodes = append(l.nodes, node[K]{})
	return int32(len(l.nodes) - 1)
}

// unlink detaches idx from its neighbours without touching len.
func (l *List[K]) unlink(idx int32) {
	n := &l.nodes[idx]
	if n.prev != Nil {
		l.nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}
	if n.next != Nil {
		l.nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}
}
