// Package fieldreg implements the process-wide field registry:
// name<->position resolution, schema metadata, and the group interning
// table and remap matrix that sit alongside it.
//
// The registry is built during a single-threaded startup phase (see
// Bootstrap) and then treated as read-mostly at packet time. The
// by-db/by-expression maps and the dense position
// slice are guarded by a deadlock-instrumented RWMutex (grounded in
// lazydocker's pkg/gui/gui.go use of the same package for its own shared
// mutexes); position counters share that same mutex, since every mutation
// already has to hold it to check the two counters against each other.
package fieldreg

import (
	"fmt"

	"github.com/go-errors/errors"
	"github.com/sasha-s/go-deadlock"

	"fieldcore/internal/fieldcore"
	"fieldcore/internal/indexclient"
)

// Registry is the process-wide field table. The zero value is not usable;
// construct with New.
type Registry struct {
	mu deadlock.RWMutex

	byDB  map[string]*fieldcore.FieldInfo
	byExp map[string]*fieldcore.FieldInfo

	// fields is the dense position -> FieldInfo slice ("config.fields" in
	// spec terms). Index i holds the FieldInfo registered at position i, or
	// nil if that position has never been assigned (can only happen for
	// positions >= maxDbField and < minInternalField, the reserved gap).
	fields []*fieldcore.FieldInfo

	maxDbField       int32 // guarded by mu; checked against minInternalField on every grow
	minInternalField int32
	fieldsMax        int32

	groupIDs   map[string]int32
	nextGroup  int32
	groupOrder []string

	// remap[x][m] = y means: an op whose nominal target is x, executed in a
	// rule whose match position is m, should instead apply to y. A sparse
	// nested map is used instead of a dense [FieldsMax][FieldsMax] array,
	// since most (x, m) pairs are never remapped.
	remap map[int32]map[int32]int32

	// CommunityID/OUILookup are injected external collaborators; nil is a
	// valid "not wired" placeholder since neither is implemented by this
	// core.
	CommunityIDFunc func(session any) string
	OUILookupFunc   func(mac [6]byte) string

	// Index is the external schema channel Define announces updates to
	// when a redefinition unifies with a differing existing entry; nil is
	// a valid "not wired" placeholder, same as CommunityIDFunc/OUILookupFunc.
	Index indexclient.Client
}

// New constructs an empty registry. fieldsMax bounds the position space
// exactly as the FIELDS_MAX constant does; pass
// fieldcore.FieldsMax for the default.
func New(fieldsMax int32) *Registry {
	return &Registry{
		byDB:             make(map[string]*fieldcore.FieldInfo),
		byExp:            make(map[string]*fieldcore.FieldInfo),
		fields:           make([]*fieldcore.FieldInfo, fieldsMax),
		maxDbField:       0,
		minInternalField: fieldsMax,
		fieldsMax:        fieldsMax,
		groupIDs:         make(map[string]int32),
		remap:            make(map[int32]map[int32]int32),
	}
}

// fatalf raises a fatal startup/logic error: a stack-trace carrying
// error, intended to be recovered exactly once at the top of
// cmd/fieldcore and logged via logging.Fatalf.
func fatalf(format string, args ...any) {
	panic(errors.Wrap(fmt.Errorf(format, args...), 1))
}

// MaxDbField returns the current high-water mark of the persisted position
// space.
func (r *Registry) MaxDbField() int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.maxDbField
}

// MinInternalField returns the current low-water mark of the internal
// position space.
func (r *Registry) MinInternalField() int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.minInternalField
}

// FieldsMax returns the compile-time (or config-overridden) bound on the
// position space. Sessions size their cell slice to this so any valid pos
// can be indexed directly.
func (r *Registry) FieldsMax() int32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fieldsMax
}

// FieldAt returns the FieldInfo registered at pos, or nil if pos has never
// been assigned. Used by tests to verify invariant 1 ("config.fields[pos]
// == f").
func (r *Registry) FieldAt(pos int32) *fieldcore.FieldInfo {
	if pos < 0 {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(pos) >= len(r.fields) {
		return nil
	}
	return r.fields[pos]
}

// groupNum interns a dbField group prefix, assigning dense ids in
// insertion order starting at 1. Must be called with r.mu held for write.
func (r *Registry) groupNum(group string) int32 {
	if group == "" {
		return 0
	}
	if id, ok := r.groupIDs[group]; ok {
		return id
	}
	r.nextGroup++
	r.groupIDs[group] = r.nextGroup
	r.groupOrder = append(r.groupOrder, group)
	return r.nextGroup
}

// allocDbPos allocates the next dense position in the persisted region.
// Must be called with r.mu held for write. Fatal (per the ) on overflow
// into the internal region.
func (r *Registry) allocDbPos() int32 {
	pos := r.maxDbField
	r.maxDbField++
	if r.maxDbField > r.minInternalField {
		fatalf("fieldreg: position space exhausted: maxDbField %d crossed minInternalField %d", r.maxDbField, r.minInternalField)
	}
	r.growFields()
	return pos
}

// allocInternalPos allocates the next dense position in the internal
// region, growing downward from fieldsMax. Must be called with r.mu held
// for write.
func (r *Registry) allocInternalPos() int32 {
	r.minInternalField--
	if r.maxDbField > r.minInternalField {
		fatalf("fieldreg: internal position space exhausted: minInternalField %d crossed maxDbField %d", r.minInternalField, r.maxDbField)
	}
	return r.minInternalField
}

// growFields grows the dense fields slice if maxDbField has reached its
// length. New already sizes the slice to fieldsMax (a config override of
// FIELDS_MAX is passed to New), so allocDbPos's overflow check fires first.
func (r *Registry) growFields() {
	if int(r.maxDbField) < len(r.fields) {
		return
	}
	grown := make([]*fieldcore.FieldInfo, r.maxDbField+1)
	copy(grown, r.fields)
	r.fields = grown
}

// setPos records fi at pos in the dense slice. Must be called with r.mu
// held for write.
func (r *Registry) setPos(pos int32, fi *fieldcore.FieldInfo) {
	if int(pos) >= len(r.fields) {
		grown := make([]*fieldcore.FieldInfo, pos+1)
		copy(grown, r.fields)
		r.fields = grown
	}
	r.fields[pos] = fi
	fi.Pos = pos
}
