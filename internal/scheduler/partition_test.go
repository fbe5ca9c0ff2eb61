package scheduler

import (
	"errors"
	"testing"
)

func TestNormalizePages(t *testing.T) {
	tests := []struct {
		pages     [2]int
		count     int
		wantStart int
		wantEnd   int
		wantErr   error
	}{
		{[2]int{0, -1}, 50, 0, 49, nil},
		{[2]int{0, -1}, 1, 0, 0, nil},
		{[2]int{-10, -1}, 50, 40, 49, nil},
		{[2]int{5, 9}, 10, 5, 9, nil},
		{[2]int{0, 50}, 50, 0, 0, ErrPageIndex},
		{[2]int{-51, -1}, 50, 0, 0, ErrPageIndex},
		{[2]int{7, 3}, 10, 0, 0, ErrPageIndex},
		{[2]int{0, -1}, 0, 0, 0, ErrNoPages},
	}
	for _, tt := range tests {
		start, end, err := NormalizePages(tt.pages, tt.count)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NormalizePages(%v, %d) error = %v, want %v", tt.pages, tt.count, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizePages(%v, %d) unexpected error %v", tt.pages, tt.count, err)
			continue
		}
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("NormalizePages(%v, %d) = [%d, %d], want [%d, %d]", tt.pages, tt.count, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}

func TestPartitionCoversRangeExactly(t *testing.T) {
	for count := 1; count <= 40; count++ {
		for threads := 1; threads <= count+3; threads++ {
			for _, start := range []int{0, count / 3} {
				r := PageRange{Start: start, End: count}
				ranges := Partition(r, threads)
				if len(ranges) != threads {
					t.Fatalf("count=%d threads=%d: got %d ranges", count, threads, len(ranges))
				}
				seen := make(map[int]int)
				next := r.Start
				for _, pr := range ranges {
					if pr.Start != next {
						t.Fatalf("count=%d threads=%d: range %v not contiguous (expected start %d)", count, threads, pr, next)
					}
					if pr.End < pr.Start {
						t.Fatalf("count=%d threads=%d: inverted range %v", count, threads, pr)
					}
					for i := pr.Start; i < pr.End; i++ {
						seen[i]++
					}
					next = pr.End
				}
				if next != r.End {
					t.Fatalf("count=%d threads=%d: ranges end at %d, want %d", count, threads, next, r.End)
				}
				for i := r.Start; i < r.End; i++ {
					if seen[i] != 1 {
						t.Fatalf("count=%d threads=%d: index %d covered %d times", count, threads, i, seen[i])
					}
				}
			}
		}
	}
}

func TestPartitionRemainderOnLastWorker(t *testing.T) {
	ranges := Partition(PageRange{Start: 0, End: 10}, 3)
	want := []PageRange{{0, 3}, {3, 6}, {6, 10}}
	for i := range want {
		if ranges[i] != want[i] {
			t.Errorf("range %d = %v, want %v", i, ranges[i], want[i])
		}
	}
}

func TestPartitionMoreThreadsThanPages(t *testing.T) {
	ranges := Partition(PageRange{Start: 2, End: 5}, 6)
	for i, r := range ranges {
		if i < 3 && r.Len() != 1 {
			t.Errorf("worker %d expected one page, got %v", i, r)
		}
		if i >= 3 && r.Len() != 0 {
			t.Errorf("trailing worker %d expected empty range, got %v", i, r)
		}
	}
}

func TestPartitionInvalidThreads(t *testing.T) {
	ranges := Partition(PageRange{Start: 0, End: 4}, 0)
	if len(ranges) != 1 || ranges[0] != (PageRange{0, 4}) {
		t.Errorf("expected a single full range, got %v", ranges)
	}
}
