package engine

import (
	"sort"

	"github.com/txnlab/ccproc/pkg/txn"
)

// unionKeys returns the deduplicated union of a and b, in the order a's
// elements appear followed by b's elements not already seen.
func unionKeys(a, b []txn.Key) []txn.Key {
	seen := make(map[txn.Key]bool, len(a)+len(b))
	out := make([]txn.Key, 0, len(a)+len(b))
	for _, k := range a {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range b {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func containsKey(set []txn.Key, k txn.Key) bool {
	for _, s := range set {
		if s == k {
			return true
		}
	}
	return false
}

// sortedKeys returns a copy of keys sorted ascending. Used to acquire
// per-key storage locks in a deterministic order and avoid deadlock
// between transactions that write overlapping key sets.
func sortedKeys(keys []txn.Key) []txn.Key {
	out := make([]txn.Key, len(keys))
	copy(out, keys)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
