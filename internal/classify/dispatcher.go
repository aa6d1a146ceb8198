// Package classify implements the protocol classifier that inspects early
// session bytes to pick a parser, and the per-session parser chain that
// then consumes subsequent payload chunks.
package classify

import (
	"bytes"

	"github.com/samber/lo"

	"fieldcore/internal/session"
)

// Action is a parser's per-chunk return value.
type Action int

const (
	// Continue asks the dispatcher to keep calling this parser on future
	// payload chunks.
	Continue Action = iota
	// Unregister removes this parser from the session's chain; its
	// FreeFn runs once, immediately.
	Unregister
)

// ParseFunc consumes one payload chunk for a parser already registered on a
// session.
type ParseFunc func(s *session.Session, userData any, data []byte, direction int) Action

// FreeFunc releases a parser's userData when it is unregistered or the
// session ends.
type FreeFunc func(userData any)

// ClassifyFunc inspects a first-packet payload and, if it recognizes the
// protocol, calls AddProtocol/RegisterParser on state and returns true.
type ClassifyFunc func(state *SessionState, data []byte, direction int) bool

// Classifier is one registered {name, offset, magic, classifyFn} entry in a
// transport's classifier table.
type Classifier struct {
	Name      string
	Offset    int
	Magic     []byte
	ClassifyFn ClassifyFunc
}

// matches reports whether data carries this classifier's magic bytes at
// Offset.
func (c Classifier) matches(data []byte) bool {
	if len(data) < c.Offset+len(c.Magic) {
		return false
	}
	return bytes.Equal(data[c.Offset:c.Offset+len(c.Magic)], c.Magic)
}

// parserRecord is one entry of a session's parser chain.
type parserRecord struct {
	parse ParseFunc
	data  any
	free  FreeFunc
}

// SessionState is the classify-level bookkeeping that rides alongside a
// *session.Session: whether first-packet classification has already run,
// which protocols were attached, and the ordered parser chain. Kept as a
// separate struct (rather than fields on session.Session) so the session
// package never needs to import classify.
type SessionState struct {
	Session    *session.Session
	classified bool
	protocols  map[string]struct{}
	parsers    []*parserRecord
}

// NewSessionState wraps s for classification and parsing.
func NewSessionState(s *session.Session) *SessionState {
	return &SessionState{Session: s, protocols: make(map[string]struct{})}
}

// AddProtocol idempotently attaches a protocol name to the session.
func (st *SessionState) AddProtocol(name string) {
	st.protocols[name] = struct{}{}
}

// HasProtocol reports whether AddProtocol(name) was ever called.
func (st *SessionState) HasProtocol(name string) bool {
	_, ok := st.protocols[name]
	return ok
}

// Protocols returns every attached protocol name.
func (st *SessionState) Protocols() []string {
	return lo.Keys(st.protocols)
}

// RegisterParser appends a parser to the session's chain.
func (st *SessionState) RegisterParser(parse ParseFunc, userData any, free FreeFunc) {
	st.parsers = append(st.parsers, &parserRecord{parse: parse, data: userData, free: free})
}

// Dispatcher owns the process-wide classifier tables (one per transport),
// registered once at startup.
type Dispatcher struct {
	udp []Classifier
	tcp []Classifier
}

// RegisterUDP installs a UDP classifier.
func (d *Dispatcher) RegisterUDP(c Classifier) {
	d.udp = append(d.udp, c)
}

// RegisterTCP installs a TCP classifier.
func (d *Dispatcher) RegisterTCP(c Classifier) {
	d.tcp = append(d.tcp, c)
}

// ClassifyUDP runs first-packet classification against the UDP classifier
// table. A no-op once state has already been classified (successfully or
// not — the only classifies on the first packet).
func (d *Dispatcher) ClassifyUDP(state *SessionState, data []byte, direction int) {
	d.classify(d.udp, state, data, direction)
}

// ClassifyTCP is ClassifyUDP's TCP counterpart.
func (d *Dispatcher) ClassifyTCP(state *SessionState, data []byte, direction int) {
	d.classify(d.tcp, state, data, direction)
}

func (d *Dispatcher) classify(table []Classifier, state *SessionState, data []byte, direction int) {
	if state.classified {
		return
	}
	state.classified = true
	for _, c := range table {
		if !c.matches(data) {
			continue
		}
		if c.ClassifyFn(state, data, direction) {
			return
		}
	}
}

// Dispatch feeds one payload chunk to every parser currently registered on
// state, in order. Parsers returning Unregister are removed and their
// FreeFn run immediately.
func (d *Dispatcher) Dispatch(state *SessionState, data []byte, direction int) {
	kept := state.parsers[:0]
	for _, rec := range state.parsers {
		action := rec.parse(state.Session, rec.data, data, direction)
		if action == Unregister {
			rec.free(rec.data)
			continue
		}
		kept = append(kept, rec)
	}
	state.parsers = kept
}

// SessionFree runs every remaining parser's FreeFn, generalizing the
// classic "free both buffers when the session ends" teardown to every
// parser's own resources.
func (d *Dispatcher) SessionFree(state *SessionState) {
	for _, rec := range state.parsers {
		rec.free(rec.data)
	}
	state.parsers = nil
}
