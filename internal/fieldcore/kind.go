// Package fieldcore holds the types shared by every other package in this
// module: the field-kind enum, the per-field flag bits, the position-space
// constants, and the pseudo-field ids used inside field operations. None of
// these types carry behavior of their own beyond simple validity checks —
// the registry, session store, and field-operations packages build on them.
package fieldcore

import "fmt"

// FieldKind is the closed set of backing-store shapes a field can have.
// Map-like kinds (strMap/intMap/floatMap/ipMap) differ from the
// corresponding set-like kinds only in storage trade-off: map-like values
// hold bare key-to-nothing bindings, set-like values hold a richer entry
// (length, UTF-8 flag, opaque user word).
type FieldKind uint8

const (
	KindInvalid FieldKind = iota
	KindString
	KindStringArray
	KindStringSet
	KindStringMap
	KindInt
	KindIntArray
	KindIntSet
	KindIntMap
	KindFloat
	KindFloatArray
	KindFloatMap
	KindIP
	KindIPMap
	KindObject
)

var kindNames = map[FieldKind]string{
	KindInvalid:     "invalid",
	KindString:      "str",
	KindStringArray: "strArray",
	KindStringSet:   "strSet",
	KindStringMap:   "strMap",
	KindInt:         "int",
	KindIntArray:    "intArray",
	KindIntSet:      "intSet",
	KindIntMap:      "intMap",
	KindFloat:       "float",
	KindFloatArray:  "floatArray",
	KindFloatMap:    "floatMap",
	KindIP:          "ip",
	KindIPMap:       "ipMap",
	KindObject:      "object",
}

var namesToKind = func() map[string]FieldKind {
	m := make(map[string]FieldKind, len(kindNames))
	for k, v := range kindNames {
		m[v] = k
	}
	return m
}()

// String implements fmt.Stringer.
func (k FieldKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("FieldKind(%d)", uint8(k))
}

// ParseKind resolves a schema-side kind string (e.g. "strSet") to a
// FieldKind. Unknown strings return KindInvalid and false.
func ParseKind(s string) (FieldKind, bool) {
	k, ok := namesToKind[s]
	return k, ok
}

// IsSet reports whether the kind is one of the rich multi-value "set" kinds
// (as opposed to the bare-key "map" kinds).
func (k FieldKind) IsSet() bool {
	return k == KindStringSet || k == KindIntSet
}

// IsMap reports whether the kind is one of the bare-key "map" kinds.
func (k FieldKind) IsMap() bool {
	return k == KindStringMap || k == KindIntMap || k == KindFloatMap || k == KindIPMap
}

// IsArray reports whether the kind appends unconditionally (subject to
// DIFF_FROM_LAST) rather than deduplicating or overwriting.
func (k FieldKind) IsArray() bool {
	return k == KindStringArray || k == KindIntArray || k == KindFloatArray
}

// IsScalar reports whether a second add overwrites (and frees) the prior
// value rather than appending or deduplicating.
func (k FieldKind) IsScalar() bool {
	return k == KindString || k == KindInt || k == KindFloat || k == KindIP
}

// Multi reports whether the kind holds more than one value.
func (k FieldKind) Multi() bool {
	return !k.IsScalar() && k != KindInvalid
}
