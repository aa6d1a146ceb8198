// Package indexclient implements the external-index boundary: the schema
// channel the field registry fires schema add/update/delete calls at. The
// registry's in-memory view stays authoritative for the running process
// (the channel is advisory, best-effort); nothing here blocks the registry
// or changes its behavior if a call fails.
package indexclient

// Client is the schema channel a field registry announces changes to. All
// three methods are fire-and-forget: callers never check a returned error
// (there isn't one) — a failure is logged by the implementation and
// otherwise swallowed. The calls are synchronous: Memory returns at once,
// MySQL runs each statement with a 5-second timeout.
type Client interface {
	// AddField emits a schema add for a newly registered field.
	AddField(group string, kind, expression, friendly, dbField, help string, haveECS bool, opts FieldOptions)
	// UpdateField emits a schema patch for a single key/value pair.
	UpdateField(expression, key, value string)
	// DeleteField emits a schema removal.
	DeleteField(expression string)
}

// FieldOptions mirrors fieldcore.Options; duplicated here (rather than
// imported) so indexclient has no dependency on fieldcore, keeping the
// external-index boundary a leaf package other packages can depend on
// without a cycle.
type FieldOptions struct {
	Category  string
	Transform string
	Aliases   []string
}
