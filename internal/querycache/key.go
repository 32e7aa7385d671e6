package querycache

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a cached query. Elements are compared by their JSON encoding, so
// maps and structs match structurally and map keys are order-independent.
type Key []any

func encodePart(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(b)
}

func (k Key) parts() []string {
	out := make([]string, len(k))
	for i, v := range k {
		out[i] = encodePart(v)
	}
	return out
}

// Hash is the canonical string form of the key.
func (k Key) Hash() string {
	return "[" + strings.Join(k.parts(), ",") + "]"
}

func (k Key) String() string {
	return k.Hash()
}

// HasPrefix reports whether prefix matches the leading elements of k.
func (k Key) HasPrefix(prefix Key) bool {
	return hasPrefix(k.parts(), prefix.parts())
}

func hasPrefix(parts, prefix []string) bool {
	if len(prefix) > len(parts) {
		return false
	}
	for i := range prefix {
		if parts[i] != prefix[i] {
			return false
		}
	}
	return true
}
