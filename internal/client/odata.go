package client

import (
	"fmt"
	"sort"
	"strings"
)

// EscapeString escapes a string literal for use inside a query or key
// segment. Single quotes are doubled per the OData convention.
func EscapeString(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// AlternateKeySegment builds an entity address of the form
// entityset(attr1='v1',attr2='v2'). Keys are emitted in sorted order so the
// same inputs always produce the same URL.
func AlternateKeySegment(entitySet string, keys map[string]string) string {
	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}

	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s='%s'", name, EscapeString(keys[name])))
	}

	return fmt.Sprintf("%s(%s)", entitySet, strings.Join(pairs, ","))
}
