package fieldcore

import "sync/atomic"

// ObjectCodec supplies the save/free/hash/cmp capability hooks a
// KindObject field needs to dedup and eventually serialize its values.
// A concrete field registration for an object-kind field must provide one;
// the session store calls Hash+Equal to dedup adds and Release when a
// session tears down.
type ObjectCodec interface {
	// Hash returns a dedup key for obj. Two values that Equal reports equal
	// must return the same Hash.
	Hash(obj any) uint64
	// Equal reports whether a and b should be treated as the same value for
	// the purposes of add-time deduplication.
	Equal(a, b any) bool
	// Release is called once when the owning session tears down.
	Release(obj any)
	// Save renders obj for the eventual serialized record. Only invoked by
	// the emitter (out of scope for this core, but the hook has to exist so
	// a registration can supply it).
	Save(obj any) ([]byte, error)
}

// Options is the finite set of named registration options recognized by
// Define/DefineJSON/DefineText. Unlike the C source's NULL-terminated
// varargs convention, unknown options are a compile error here — the three
// names below are the only ones a caller can set.
type Options struct {
	Category  string
	Transform string
	Aliases   []string
}

// InternalGetter reads a computed internal field's value out of a session.
// The concrete session type is passed as `any` to avoid an import cycle
// between fieldcore and session; callers type-assert to *session.Session.
type InternalGetter func(session any) any

// InternalSetter writes a computed internal field's value into a session.
type InternalSetter func(session any, value any)

// FieldInfo is the process-wide, immutable-after-registration description
// of one field. The few genuinely mutable bits (RuleEnabled, and the
// DISABLED flag bit, which SetDisabled flips, e.g. from DefineJSON's
// "disabled" key) are atomics so concurrent byExp promotions never race a
// flag flip.
type FieldInfo struct {
	// Expression is the user-facing dotted name, e.g. "http.uri".
	Expression string
	// DBField is the backing-store name, e.g. "http.uri" or "srcIp".
	DBField string
	// DBGroup is the prefix of DBField up to and including the first dot,
	// or "" if DBField has no dot.
	DBGroup string
	// DBGroupNum is the dense integer id assigned to DBGroup by the
	// registry's group-name interning table.
	DBGroupNum int32

	Group     string
	Kind      FieldKind
	Category  string
	Transform string
	Aliases   []string

	// SchemaKind is the raw "kind" string as loaded from the external
	// index by DefineJSON, kept around because a schema-only entry
	// (Pos == -1) doesn't know its session-side container kind until the
	// promotion rule in the runs at first ByExp lookup.
	SchemaKind string

	// Shortcut is the one-character BPF-like filter alias DefineText's
	// "shortcut" key installs, stored verbatim and not otherwise
	// interpreted (no filter language exists in this core).
	Shortcut string

	Type FieldKind // alias of Kind kept for parity with spec naming; same value

	flags atomic.Uint32 // Flags, boxed for atomic DISABLED flips

	// Pos is this field's dense position, or -1 if not yet materialized
	// (schema-only entries loaded from the external index start this way).
	Pos int32

	// CntForPos, if >= 0, marks this FieldInfo as a synthetic "count
	// companion": its value at serialization time is the element count of
	// the field at CntForPos, not anything ever written through AddX.
	CntForPos int32

	Codec ObjectCodec // only meaningful when Kind == KindObject

	Getter InternalGetter // only set for internal (computed) fields
	Setter InternalSetter

	ruleEnabled atomic.Bool
}

// NewFieldInfo builds a FieldInfo with Pos/CntForPos defaulted to "unset"
// (-1) and the given kind mirrored into both Kind and Type.
func NewFieldInfo(expression, dbField string, kind FieldKind) *FieldInfo {
	fi := &FieldInfo{
		Expression: expression,
		DBField:    dbField,
		Kind:       kind,
		Type:       kind,
		Pos:        -1,
		CntForPos:  -1,
	}
	return fi
}

// Flags returns the current flag bits.
func (fi *FieldInfo) Flags() Flags {
	return Flags(fi.flags.Load())
}

// SetFlags overwrites the flag bits.
func (fi *FieldInfo) SetFlags(f Flags) {
	fi.flags.Store(uint32(f))
}

// Disabled reports whether the FlagDisabled bit is set.
func (fi *FieldInfo) Disabled() bool {
	return Flags(fi.flags.Load()).Has(FlagDisabled)
}

// SetDisabled atomically sets or clears the FlagDisabled bit.
func (fi *FieldInfo) SetDisabled(disabled bool) {
	for {
		old := fi.flags.Load()
		var next uint32
		if disabled {
			next = old | uint32(FlagDisabled)
		} else {
			next = old &^ uint32(FlagDisabled)
		}
		if fi.flags.CompareAndSwap(old, next) {
			return
		}
	}
}

// RuleEnabled reports whether any compiled rule predicate references Pos.
func (fi *FieldInfo) RuleEnabled() bool {
	return fi.ruleEnabled.Load()
}

// SetRuleEnabled flips the cached rule-enabled bit.
func (fi *FieldInfo) SetRuleEnabled(enabled bool) {
	fi.ruleEnabled.Store(enabled)
}

// IsCompanion reports whether fi is a synthetic count companion.
func (fi *FieldInfo) IsCompanion() bool {
	return fi.CntForPos >= 0
}
