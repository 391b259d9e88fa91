package cache

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Key identifies a logical remote resource, including any parameters that
// distinguish it. Parts are compared structurally by their JSON encoding, so
// two keys built from equal values are equal.
type Key struct {
	parts []string
}

func NewKey(parts ...any) Key {
	encoded := make([]string, len(parts))
	for i, part := range parts {
		encoded[i] = encodeKeyPart(part)
	}
	return Key{parts: encoded}
}

func encodeKeyPart(part any) string {
	data, err := json.Marshal(part)
	if err != nil {
		// Fall back to the go syntax representation for values json can't handle (channels, funcs, ...)
		return fmt.Sprintf("%#v", part)
	}
	return string(data)
}

func (k Key) String() string {
	return "[" + strings.Join(k.parts, ",") + "]"
}

func (k Key) Len() int {
	return len(k.parts)
}

func (k Key) Equal(other Key) bool {
	return slices.Equal(k.parts, other.parts)
}

func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix.parts) > len(k.parts) {
		return false
	}
	return slices.Equal(k.parts[:len(prefix.parts)], prefix.parts)
}

// Matcher selects a family of keys, e.g. for invalidation
type Matcher interface {
	Matches(key Key) bool
}

type MatcherFunc func(key Key) bool

func (f MatcherFunc) Matches(key Key) bool {
	return f(key)
}

func Exact(key Key) Matcher {
	return MatcherFunc(func(other Key) bool {
		return other.Equal(key)
	})
}

// Prefix matches every key starting with the given parts.
// Prefix("notes") matches ["notes"], ["notes","<id>"] and ["notes",{...params}].
func Prefix(parts ...any) Matcher {
	prefix := NewKey(parts...)
	return MatcherFunc(func(key Key) bool {
		return key.HasPrefix(prefix)
	})
}

func MatchAll() Matcher {
	return MatcherFunc(func(Key) bool {
		return true
	})
}

func AnyOf(matchers ...Matcher) Matcher {
	return MatcherFunc(func(key Key) bool {
		for _, matcher := range matchers {
			if matcher.Matches(key) {
				return true
			}
		}
		return false
	})
}
