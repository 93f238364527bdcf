package utils

import (
	"fmt"
	"strconv"
	"time"
)

// SortedPair returns the two ids in ascending order.
func SortedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// PairKey is the canonical key of the unordered pair {a, b}: PairKey(a, b) == PairKey(b, a).
// The first id is length-prefixed, so ids containing the separator cannot
// make two different pairs share a key.
func PairKey(a, b string) string {
	lo, hi := SortedPair(a, b)
	return strconv.Itoa(len(lo)) + ":" + lo + "#" + hi
}

// SamePair reports whether {x, y} and {a, b} are the same unordered pair.
func SamePair(x, y, a, b string) bool {
	return (x == a && y == b) || (x == b && y == a)
}

// TimeSortKey builds a lexicographically sortable key from a timestamp,
// zero padded to 19 digits so string order matches chronological order.
// The id breaks ties between records written in the same nanosecond.
func TimeSortKey(at time.Time, id string) string {
	return fmt.Sprintf("%019d#%s", at.UnixNano(), id)
}
