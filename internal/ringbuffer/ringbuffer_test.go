package ringbuffer

import (
	"reflect"
	"testing"
)

func TestPushKeepsLastNInOrder(t *testing.T) {
	for _, capacity := range []int{1, 3, 15, 20} {
		r := New[int](capacity, OldestFirst)
		var pushed []int
		for i := 0; i < capacity*3+1; i++ {
			r.Push(i)
			pushed = append(pushed, i)
			if r.Len() > capacity {
				t.Fatalf("cap %d: length %d exceeds capacity", capacity, r.Len())
			}
			start := len(pushed) - capacity
			if start < 0 {
				start = 0
			}
			if got := r.Slice(); !reflect.DeepEqual(got, pushed[start:]) {
				t.Fatalf("cap %d after %d pushes: got %v want %v", capacity, i+1, got, pushed[start:])
			}
		}
	}
}

func TestNewestFirstOrder(t *testing.T) {
	r := New[string](3, NewestFirst)
	for _, s := range []string{"a", "b", "c", "d"} {
		r.Push(s)
	}
	want := []string{"d", "c", "b"}
	if got := r.Slice(); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestPushEvictsExactlyOne(t *testing.T) {
	r := New[int](2, OldestFirst)
	if _, ok := r.Push(1); ok {
		t.Fatalf("unexpected eviction on first push")
	}
	r.Push(2)
	evicted, ok := r.Push(3)
	if !ok || evicted != 1 {
		t.Fatalf("expected eviction of 1, got %v %v", evicted, ok)
	}
	if r.Len() != 2 {
		t.Fatalf("expected len 2, got %d", r.Len())
	}
}

func TestNewestAndReset(t *testing.T) {
	r := New[int](4, NewestFirst)
	if _, ok := r.Newest(); ok {
		t.Fatalf("empty ring reported a newest element")
	}
	for i := 1; i <= 6; i++ {
		r.Push(i)
	}
	if v, _ := r.Newest(); v != 6 {
		t.Fatalf("expected newest 6, got %d", v)
	}
	r.Reset()
	if r.Len() != 0 || len(r.Slice()) != 0 {
		t.Fatalf("reset left %d elements", r.Len())
	}
	r.Push(9)
	if got := r.Slice(); !reflect.DeepEqual(got, []int{9}) {
		t.Fatalf("after reset got %v", got)
	}
}

func TestNewPanicsOnZeroCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	New[int](0, OldestFirst)
}
