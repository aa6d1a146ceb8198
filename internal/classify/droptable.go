package classify

import (
	"sync"

	"fieldcore/internal/fieldops"
	"fieldcore/internal/session"
)

// DropEntry is one pending packet-drop instruction: drop side's future
// packets on this session for TTL seconds.
type DropEntry struct {
	Side fieldops.Side
	TTL  int32
}

// DropTable is a minimal stand-in for the packet-engine boundary
// ("packetDropHashAdd(session, side, ttl)"): the packet engine itself is
// an external collaborator this core does not implement, but fieldops.Run
// needs a concrete DropHook to call, and tests need somewhere to observe
// what Run asked for.
type DropTable struct {
	mu      sync.Mutex
	entries map[string][]DropEntry
}

// NewDropTable constructs an empty table.
func NewDropTable() *DropTable {
	return &DropTable{entries: make(map[string][]DropEntry)}
}

// Add implements fieldops.DropHook.
func (t *DropTable) Add(s *session.Session, side fieldops.Side, ttl int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[s.Key] = append(t.entries[s.Key], DropEntry{Side: side, TTL: ttl})
}

// Entries returns a copy of every drop entry recorded for a session key,
// for test assertions.
func (t *DropTable) Entries(sessionKey string) []DropEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]DropEntry, len(t.entries[sessionKey]))
	copy(out, t.entries[sessionKey])
	return out
}
