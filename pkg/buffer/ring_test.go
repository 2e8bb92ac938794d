package buffer

import (
	"slices"
	"sync"
	"testing"
)

func TestRing_FillAndEvict(t *testing.T) {
	r := NewRing[int](4)
	for i := 1; i <= 3; i++ {
		r.Add(i)
	}
	if r.Len() != 3 {
		t.Fatalf("Len = %d, want 3", r.Len())
	}
	if got := r.Snapshot(); !slices.Equal(got, []int{1, 2, 3}) {
		t.Fatalf("Snapshot = %v", got)
	}

	r.Add(4)
	r.Add(5)
	if got := r.Snapshot(); !slices.Equal(got, []int{2, 3, 4, 5}) {
		t.Fatalf("after eviction Snapshot = %v", got)
	}
	if r.Len() != 4 {
		t.Fatalf("Len = %d, want 4", r.Len())
	}
}

func TestRing_WriteSlices(t *testing.T) {
	tests := []struct {
		name   string
		cap    int
		writes [][]int16
		want   []int16
	}{
		{"partial fill", 5, [][]int16{{1, 2}}, []int16{1, 2}},
		{"exact fill", 3, [][]int16{{1, 2, 3}}, []int16{1, 2, 3}},
		{"wraps", 3, [][]int16{{1, 2}, {3, 4}}, []int16{2, 3, 4}},
		{"oversized write keeps tail", 3, [][]int16{{1, 2, 3, 4, 5, 6, 7}}, []int16{5, 6, 7}},
		{"successive frames", 4, [][]int16{{1, 2, 3}, {4, 5, 6}, {7}}, []int16{4, 5, 6, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRing[int16](tt.cap)
			for _, w := range tt.writes {
				if n, err := r.Write(w); err != nil || n != len(w) {
					t.Fatalf("Write = %d, %v", n, err)
				}
			}
			if got := r.Snapshot(); !slices.Equal(got, tt.want) {
				t.Errorf("Snapshot = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRing_Reset(t *testing.T) {
	r := NewRing[string](2)
	r.Add("a")
	r.Add("b")
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("Len after Reset = %d", r.Len())
	}
	r.Add("c")
	if got := r.Snapshot(); !slices.Equal(got, []string{"c"}) {
		t.Fatalf("Snapshot = %v", got)
	}
}

func TestRing_SnapshotIsCopy(t *testing.T) {
	r := NewRing[int](2)
	r.Add(1)
	snap := r.Snapshot()
	snap[0] = 99
	if got := r.Snapshot(); got[0] != 1 {
		t.Fatalf("Snapshot aliased internal storage: %v", got)
	}
}

func TestRing_ConcurrentWriters(t *testing.T) {
	r := NewRing[int](64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Add(i)
			}
		}()
	}
	wg.Wait()
	if r.Len() != 64 {
		t.Fatalf("Len = %d, want full window", r.Len())
	}
}
