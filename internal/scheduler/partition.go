package scheduler

import (
	"errors"
	"fmt"
)

var (
	ErrPageIndex = errors.New("scheduler: page index out of range")
	ErrNoPages   = errors.New("scheduler: gallery has no pages")
)

// PageRange is a half-open range [Start, End) of zero-based page indices.
type PageRange struct {
	Start int
	End   int
}

func (r PageRange) Len() int {
	return r.End - r.Start
}

// NormalizePages resolves a [start, end] selection against count using
// sequence-style negative indices (-1 is the last page). Both bounds are
// inclusive in the result.
func NormalizePages(pages [2]int, count int) (int, int, error) {
	if count <= 0 {
		return 0, 0, ErrNoPages
	}
	resolved := [2]int{}
	for i, p := range pages {
		idx := p
		if idx < 0 {
			idx += count
		}
		if idx < 0 || idx >= count {
			return 0, 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrPageIndex, p, -count, count-1)
		}
		resolved[i] = idx
	}
	if resolved[0] > resolved[1] {
		return 0, 0, fmt.Errorf("%w: start %d is after end %d", ErrPageIndex, pages[0], pages[1])
	}
	return resolved[0], resolved[1], nil
}

// Partition splits r into threads contiguous chunks of r.Len()/threads pages;
// the last chunk also takes the remainder. When threads exceeds the page
// count, leading chunks hold one page each and trailing chunks are empty.
func Partition(r PageRange, threads int) []PageRange {
	if threads < 1 {
		threads = 1
	}
	n := r.Len()
	size := n / threads
	ranges := make([]PageRange, threads)
	for i := range threads {
		if size == 0 {
			ranges[i] = PageRange{Start: r.Start + min(i, n), End: r.Start + min(i+1, n)}
			continue
		}
		start := r.Start + size*i
		end := start + size
		if i == threads-1 {
			end = r.End
		}
		ranges[i] = PageRange{Start: start, End: end}
	}
	return ranges
}
