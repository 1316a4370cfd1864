package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// keyLength is the number of hex characters kept from the digest. Matches the
// on-disk names produced by earlier versions of the cache.
const keyLength = 16

// Key derives the content-addressed cache key for an operation. The key is a
// pure function of the canonicalized inputs: two calls whose content differs
// only in incidental whitespace, or whose params arrive in different order,
// map to the same key.
func Key(operation, content string, params map[string]string) string {
	var b strings.Builder
	b.WriteString(operation)
	b.WriteString(":")
	b.WriteString(normalize(content))

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(":")
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(params[name])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:keyLength]
}

// normalize collapses runs of whitespace to single spaces and trims the ends,
// so formatting-only differences between near-duplicate submissions do not
// defeat the cache.
func normalize(content string) string {
	return strings.Join(strings.Fields(content), " ")
}
