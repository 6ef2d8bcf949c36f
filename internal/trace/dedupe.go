package trace

// dedupeFilter keeps the first record per unit and counts repeats.
// Some artifacts report the same unit twice; only one timeline row may result.
type dedupeFilter struct {
	seen map[string]*dedupeEntry
}

type dedupeEntry struct {
	count     int
	firstSeen int64 // trace timestamp of the kept record
	lastSeen  int64
}

func newDedupeFilter() *dedupeFilter {
	return &dedupeFilter{seen: make(map[string]*dedupeEntry)}
}

// Check reports whether the record for unit should be kept
func (f *dedupeFilter) Check(unit string, ts int64) bool {
	if existing, ok := f.seen[unit]; ok {
		existing.count++
		existing.lastSeen = ts
		return false
	}
	f.seen[unit] = &dedupeEntry{count: 1, firstSeen: ts, lastSeen: ts}
	return true
}

// Duplicates returns units seen more than once with their record count
func (f *dedupeFilter) Duplicates() map[string]int {
	result := make(map[string]int)
	for unit, entry := range f.seen {
		if entry.count > 1 {
			result[unit] = entry.count
		}
	}
	return result
}
