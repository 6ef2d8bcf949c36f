// Package layout assigns timeline entries to display rows.
package layout

// Number is the set of types an interval can be measured in
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Interval is a closed span identified by ID
type Interval[K comparable, N Number] struct {
	ID    K
	Start N
	End   N
}

// Assign returns the slot of each interval, in input order.
//
// Intervals are processed in the order given, not sorted by start, so rows stay
// stable as entries are discovered. A slot is free for an interval when its last
// occupied end lies strictly before the interval start. Among free slots the one
// idle the longest wins (lowest slot on ties); otherwise a new slot is opened.
// The slot count is an upper bound on the minimum, not the optimum.
func Assign[K comparable, N Number](intervals []Interval[K, N]) []int {
	out := make([]int, len(intervals))
	var ends []N // slot -> last occupied end
	for i, iv := range intervals {
		end := max(iv.End, iv.Start)
		slot := -1
		for s, last := range ends {
			if last < iv.Start && (slot < 0 || last < ends[slot]) {
				slot = s
			}
		}
		if slot < 0 {
			slot = len(ends)
			ends = append(ends, end)
		} else {
			ends[slot] = end
		}
		out[i] = slot
	}
	return out
}

// Pack maps each interval ID to its slot. When IDs repeat, the last wins.
func Pack[K comparable, N Number](intervals []Interval[K, N]) map[K]int {
	slots := Assign(intervals)
	out := make(map[K]int, len(intervals))
	for i, iv := range intervals {
		out[iv.ID] = slots[i]
	}
	return out
}

// SlotCount returns the number of rows an assignment uses
func SlotCount(slots []int) int {
	n := 0
	for _, s := range slots {
		n = max(n, s+1)
	}
	return n
}
