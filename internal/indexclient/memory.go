package indexclient

import "sync"

// fieldRecord is what Memory keeps per expression; it exists so tests can
// assert on exactly what the registry told the index, mirroring how a real
// index would store schema rows.
type fieldRecord struct {
	Group      string
	Kind       string
	Expression string
	Friendly   string
	DBField    string
	Help       string
	HaveECS    bool
	Options    FieldOptions
	Deleted    bool
}

// Memory is an in-process Client, authoritative nowhere but useful for
// tests and as the default when no external index is configured.
type Memory struct {
	mu     sync.Mutex
	fields map[string]*fieldRecord
	// updates records every UpdateField call in order, since a single
	// expression can receive many patches over its lifetime.
	updates []updateRecord
}

type updateRecord struct {
	Expression string
	Key        string
	Value      string
}

// NewMemory constructs an empty in-memory index client.
func NewMemory() *Memory {
	return &Memory{fields: make(map[string]*fieldRecord)}
}

func (m *Memory) AddField(group string, kind, expression, friendly, dbField, help string, haveECS bool, opts FieldOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields[expression] = &fieldRecord{
		Group: group, Kind: kind, Expression: expression, Friendly: friendly,
		DBField: dbField, Help: help, HaveECS: haveECS, Options: opts,
	}
}

func (m *Memory) UpdateField(expression, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, updateRecord{Expression: expression, Key: key, Value: value})
	rec, ok := m.fields[expression]
	if !ok {
		return
	}
	switch key {
	case "category":
		rec.Options.Category = value
	case "transform":
		rec.Options.Transform = value
	}
}

func (m *Memory) DeleteField(expression string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.fields[expression]; ok {
		rec.Deleted = true
	}
}

// Field returns a copy of the tracked state for expression, for test
// assertions. The second return is false if the expression was never
// added.
func (m *Memory) Field(expression string) (fieldRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.fields[expression]
	if !ok {
		return fieldRecord{}, false
	}
	return *rec, true
}

// Updates returns a copy of every UpdateField call observed so far.
func (m *Memory) Updates() []updateRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]updateRecord, len(m.updates))
	copy(out, m.updates)
	return out
}
