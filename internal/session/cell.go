// Package session implements the per-session typed multi-value field store
// and its serialization-cost accountant: the containers a capture-side
// parser writes into through a field position, and the running byte-cost
// estimate that drives the midSave trigger.
package session

import (
	"net/netip"

	"fieldcore/internal/fieldcore"
)

// FieldMaxElementSize is FIELD_MAX_ELEMENT_SIZE: any added value longer
// than this is truncated and the session tagged.
const FieldMaxElementSize = 16384

// FieldMaxJSONSize is FIELD_MAX_JSON_SIZE: crossing this on any single
// cell raises MidSave.
const FieldMaxJSONSize = 20000

// setEntry is one entry of a strSet-kind cell: the rich multi-value variant
// that additionally tracks length, a UTF-8 validity flag, and an opaque
// caller-supplied "user word" (addStringUserWord), as opposed to the bare
// key-to-nothing bindings a strMap cell holds.
type setEntry struct {
	Length int
	UTF8   bool
	UW     any
}

// objEntry is one deduplicated object-kind value, keyed by the registered
// codec's Hash.
type objEntry struct {
	hash  uint64
	value any
}

// Cell is the tagged-union session field cell: one populated container
// field per Kind, plus the running serialization-cost estimate.
type Cell struct {
	Kind     fieldcore.FieldKind
	JSONSize int

	str      *string
	strArray []string
	strSet   map[string]setEntry
	strMap   map[string]struct{}

	intVal    int64
	intValSet bool
	intArray  []int64
	intSet    map[int64]struct{}
	intMap    map[int64]struct{}

	floatVal    float64
	floatValSet bool
	floatArray  []float64
	floatMap    map[float64]struct{}

	ipVal    netip.Addr
	ipValSet bool
	ipMap    map[netip.Addr]struct{}

	objEntries []objEntry
}

// count reports this cell's element cardinality, per the // "container cardinality (1 for scalars)".
func (c *Cell) count() int {
	switch c.Kind {
	case fieldcore.KindString:
		if c.str != nil {
			return 1
		}
		return 0
	case fieldcore.KindStringArray:
		return len(c.strArray)
	case fieldcore.KindStringSet:
		return len(c.strSet)
	case fieldcore.KindStringMap:
		return len(c.strMap)
	case fieldcore.KindInt:
		if c.intValSet {
			return 1
		}
		return 0
	case fieldcore.KindIntArray:
		return len(c.intArray)
	case fieldcore.KindIntSet:
		return len(c.intSet)
	case fieldcore.KindIntMap:
		return len(c.intMap)
	case fieldcore.KindFloat:
		if c.floatValSet {
			return 1
		}
		return 0
	case fieldcore.KindFloatArray:
		return len(c.floatArray)
	case fieldcore.KindFloatMap:
		return len(c.floatMap)
	case fieldcore.KindIP:
		if c.ipValSet {
			return 1
		}
		return 0
	case fieldcore.KindIPMap:
		return len(c.ipMap)
	case fieldcore.KindObject:
		return len(c.objEntries)
	default:
		return 0
	}
}

// addJSONCost adds delta to the cell's running cost estimate. JSONSize is
// monotonically non-decreasing: callers must not call this for a
// dedup-rejected add.
func (c *Cell) addJSONCost(delta int) {
	c.JSONSize += delta
}
