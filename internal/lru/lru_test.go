package lru

import (
	"slices"
	"testing"
)

func keys(l *List[string]) []string {
	var out []string
	l.Each(func(_ int32, k string) bool {
		out = append(out, k)
		return true
	})
	return out
}

func TestPushFrontOrder(t *testing.T) {
	l := New[string](4)
	l.PushFront("a")
	l.PushFront("b")
	l.PushFront("c")

	if got, want := keys(l), []string{"c", "b", "a"}; !slices.Equal(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if l.Len() != 3 {
		t.Errorf("Len() = %d, want 3", l.Len())
	}
}

func TestMoveToFront(t *testing.T) {
	l := New[string](0)
	a := l.PushFront("a")
	l.PushFront("b")
	c := l.PushFront("c")

	l.MoveToFront(a)
	if got, want := keys(l), []string{"a", "c", "b"}; !slices.Equal(got, want) {
		t.Errorf("after MoveToFront(a) keys = %v, want %v", got, want)
	}

	l.MoveToFront(c)
	if got, want := keys(l), []string{"c", "a", "b"}; !slices.Equal(got, want) {
		t.Errorf("after MoveToFront(c) keys = %v, want %v", got, want)
	}

	idx, _ := l.Back()
	if l.Key(idx) != "b" {
		t.Errorf("Back() key = %q, want b", l.Key(idx))
	}
}

func TestRemoveRecyclesSlots(t *testing.T) {
	l := New[string](0)
	a := l.PushFront("a")
	l.PushFront("b")

	if got := l.Remove(a); got != "a" {
		t.Errorf("Remove() = %q, want a", got)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}

	d := l.PushFront("d")
	if d != a {
		t.Errorf("PushFront reused index %d, want recycled %d", d, a)
	}
	if len(l.nodes) != 2 {
		t.Errorf("arena grew to %d nodes, want 2", len(l.nodes))
	}
}

func TestRemoveInvalidIsNoop(t *testing.T) {
	l := New[string](0)
	a := l.PushFront("a")
	l.Remove(a)

	if got := l.Remove(a); got != "" {
		t.Errorf("double Remove() = %q, want zero", got)
	}
	if got := l.Remove(42); got != "" {
		t.Errorf("Remove(out of range) = %q, want zero", got)
	}
	l.MoveToFront(a)
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}

func TestRemoveBack(t *testing.T) {
	l := New[int](0)
	for i := 0; i < 5; i++ {
		l.PushFront(i)
	}
	for want := 0; want < 5; want++ {
		got, ok := l.RemoveBack()
		if !ok || got != want {
			t.Fatalf("RemoveBack() = %d, %v, want %d, true", got, ok, want)
		}
	}
	if _, ok := l.RemoveBack(); ok {
		t.Error("RemoveBack() on empty list returned true")
	}
}

func TestClear(t *testing.T) {
	l := New[string](0)
	l.PushFront("a")
	l.PushFront("b")
	l.Clear()

	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
	if _, ok := l.Back(); ok {
		t.Error("Back() on cleared list returned true")
	}
	l.PushFront("c")
	if got := keys(l); !slices.Equal(got, []string{"c"}) {
		t.Errorf("keys after Clear+Push = %v", got)
	}
}

func BenchmarkMoveToFront(b *testing.B) {
	l := New[int](1024)
	idx := make([]int32, 1024)
	for i := range idx {
		idx[i] = l.PushFront(i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.MoveToFront(idx[i&1023])
	}
}
