package utils

import "hash/fnv"

// StableKey hashes a string to a fixed ordering key. Allocation previews
// sort leads by it so the same input always produces the same split,
// independent of fetch order.
func StableKey(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
