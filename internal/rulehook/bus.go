// Package rulehook implements a tiny notification bus: every successful
// field add on a rule-enabled position calls back into the rule engine,
// which lives entirely outside this module as an external collaborator.
// The bus only knows how to fan a (session, pos, value) triple out to
// whatever was registered; it has no opinion about what a hook does with
// it.
package rulehook

// Hook is the callback signature a rule engine registers. session is typed
// as `any` (mirroring fieldcore.InternalGetter/InternalSetter) to avoid a
// session<->rulehook import cycle; a concrete hook type-asserts to
// *session.Session.
type Hook func(session any, pos int32, value any)

// Bus fans field-set notifications out to every registered hook, in
// registration order. The zero value is ready to use.
type Bus struct {
	hooks []Hook
}

// Register adds fn to the bus. Called once at startup, well before any
// packet processing begins; Bus itself does no locking since the treats
// rule wiring as part of the single-threaded startup phase.
func (b *Bus) Register(fn Hook) {
	b.hooks = append(b.hooks, fn)
}

// Notify calls every registered hook synchronously, on the packet thread,
// per the "called synchronously on the packet thread" contract.
func (b *Bus) Notify(session any, pos int32, value any) {
	for _, h := range b.hooks {
		h(session, pos, value)
	}
}
