// README: Canonical cache keys for (destination, preference set) pairs.
package examples

import (
	"sort"
	"strings"
)

const (
	keyDelimiter   = "|"
	prefsDelimiter = ","
	scopeDelimiter = "::"
)

// CacheKey canonicalizes a destination and preference set: lower-cased, whitespace
// collapsed, preferences deduplicated and sorted, joined with fixed delimiters.
// Ordering or casing differences in the input always produce the same key.
func CacheKey(destination string, preferences []string) string {
	set := toSet(preferences)
	prefs := make([]string, 0, len(set))
	for p := range set {
		prefs = append(prefs, p)
	}
	sort.Strings(prefs)
	return NormalizeDestination(destination) + keyDelimiter + strings.Join(prefs, prefsDelimiter)
}

// ScopedKey prefixes key with an owner so entries built from one user's history stay private.
// Owner ids are case-sensitive.
func ScopedKey(scope, key string) string {
	return strings.TrimSpace(scope) + scopeDelimiter + key
}
