package analysis

import (
	"sort"
)

// Window is one aligned time bucket and the positions of the samples in it.
type Window struct {
	Indices   []int
	StartTime int64
	EndTime   int64
}

// -----------------------------------------------------------------------------

// ResampleIndices groups sorted timestamps into windowSeconds wide buckets
// aligned to multiples of windowSeconds. Empty buckets are skipped.
func ResampleIndices(timestamps []int64, windowSeconds int64) []Window {
	if len(timestamps) == 0 || windowSeconds <= 0 {
		return nil
	}

	first, _ := CalculateWindowBoundaries(timestamps[0], windowSeconds)
	last := timestamps[len(timestamps)-1]

	var windows []Window
	for start := first; start <= last; start += windowSeconds {
		end := start + windowSeconds
		lo := SearchSorted(timestamps, start, "left")
		hi := SearchSorted(timestamps, end, "left")
		if lo >= hi {
			continue
		}

		indices := make([]int, hi-lo)
		for i := range indices {
			indices[i] = lo + i
		}
		windows = append(windows, Window{Indices: indices, StartTime: start, EndTime: end})
	}
	return windows
}

// -----------------------------------------------------------------------------

// SearchSorted returns the insertion point of value in arr. side "left" gives
// the first index with arr[i] >= value, anything else the first with arr[i] > value.
func SearchSorted(arr []int64, value int64, side string) int {
	if side == "left" {
		return sort.Search(len(arr), func(i int) bool {
			return arr[i] >= value
		})
	}
	return sort.Search(len(arr), func(i int) bool {
		return arr[i] > value
	})
}

// -----------------------------------------------------------------------------

// CalculateWindowBoundaries returns the aligned window containing ts.
func CalculateWindowBoundaries(ts int64, window int64) (int64, int64) {
	start := ts - (ts % window)
	if ts < 0 && ts%window != 0 {
		start -= window
	}
	return start, start + window
}
