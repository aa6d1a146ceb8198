package fieldcore

// Flags is a bit set over the field-definition flags.
type Flags uint16

const (
	// FlagDisabled marks a field as inert: every public AddX call on its
	// position is a no-op and never allocates storage.
	FlagDisabled Flags = 1 << iota
	// FlagCnt synthesizes a companion integer field that mirrors the
	// element count of this field's container.
	FlagCnt
	// FlagLinkedSessions marks a field as cross-session-linkable (consumed
	// by the rule engine / emitter; the core only needs to carry the bit).
	FlagLinkedSessions
	// FlagForceUTF8 marks string values as always re-encoded to valid UTF-8
	// before storage.
	FlagForceUTF8
	// FlagFake marks a registration as transient: the field never gets a
	// durable position and is dropped from the registry after its one use.
	FlagFake
	// FlagNoDB marks a field as never persisted to the external index.
	FlagNoDB
	// FlagIPPre marks an IP field for geo-enrichment companion synthesis
	// using the "IPPRE" naming scheme (country.<suffix>/asn.<suffix>/rir.<suffix>).
	FlagIPPre
	// FlagECSCnt selects the "-cnt" (ECS-style) dbField suffix for the CNT
	// companion instead of the default "Cnt" suffix.
	FlagECSCnt
	// FlagDiffFromLast rejects appending a value equal to the array's last
	// element (strArray/intArray/floatArray only).
	FlagDiffFromLast
	// FlagNoSave marks a field as excluded from the eventual serialized
	// record (still tracked for rule evaluation).
	FlagNoSave
)

// Has reports whether all bits in mask are set in f.
func (f Flags) Has(mask Flags) bool {
	return f&mask == mask
}
