package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/skyhop/flightcache/internal/provider"
)

// Fingerprint derives the cache key for a query: the canonical parameter map
// (lower-cased values, empty optionals dropped) marshaled with sorted keys,
// hashed with sha256. Two queries that differ only in field order or letter
// case produce the same key; any semantic difference changes it.
func Fingerprint(params provider.SearchParams) string {
	canonical := params.Canonical()

	// encoding/json marshals map keys in sorted order.
	data, err := json.Marshal(canonical)
	if err != nil {
		// A map[string]string cannot fail to marshal.
		panic(err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
