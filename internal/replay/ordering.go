package replay

import (
	"sort"

	"wallet-winrate/internal/domain"
)

// SortRecords orders swaps by (timestamp ASC, signature ASC).
// Average-cost accounting is order dependent, so a backfill must apply a
// wallet's swaps in chain order to reproduce live results.
func SortRecords(records []*domain.SwapRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return compareRecords(records[i], records[j]) < 0
	})
}

// compareRecords returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (timestamp ASC, signature ASC)
func compareRecords(a, b *domain.SwapRecord) int {
	if a.Timestamp != b.Timestamp {
		if a.Timestamp < b.Timestamp {
			return -1
		}
		return 1
	}
	if a.Signature != b.Signature {
		if a.Signature < b.Signature {
			return -1
		}
		return 1
	}
	return 0
}

// IsSorted reports whether records are already in replay order.
func IsSorted(records []*domain.SwapRecord) bool {
	for i := 1; i < len(records); i++ {
		if compareRecords(records[i-1], records[i]) > 0 {
			return false
		}
	}
	return true
}
