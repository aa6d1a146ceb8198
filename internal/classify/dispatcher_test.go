package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldcore/internal/fieldreg"
	"fieldcore/internal/rulehook"
	"fieldcore/internal/session"
)

func newTestState(t *testing.T) *SessionState {
	t.Helper()
	r := fieldreg.New(64)
	fieldreg.Bootstrap(r)
	session.RegisterInternalFields(r)
	s := session.New(r, &rulehook.Bus{})
	return NewSessionState(s)
}

func TestClassifyRunsOnlyOnFirstPacket(t *testing.T) {
	d := &Dispatcher{}
	calls := 0
	d.RegisterUDP(Classifier{
		Name:  "test",
		Magic: []byte("HI"),
		ClassifyFn: func(state *SessionState, data []byte, direction int) bool {
			calls++
			state.AddProtocol("test")
			return true
		},
	})

	state := newTestState(t)
	d.ClassifyUDP(state, []byte("HI there"), 0)
	d.ClassifyUDP(state, []byte("HI there"), 0)

	assert.Equal(t, 1, calls, "classification must run only on the first packet")
	assert.True(t, state.HasProtocol("test"))
}

func TestClassifyStopsAtFirstMatchingClassifier(t *testing.T) {
	d := &Dispatcher{}
	d.RegisterUDP(Classifier{Name: "a", Magic: []byte("AA"), ClassifyFn: func(state *SessionState, data []byte, direction int) bool {
		state.AddProtocol("a")
		return true
	}})
	d.RegisterUDP(Classifier{Name: "b", Magic: []byte("AA"), ClassifyFn: func(state *SessionState, data []byte, direction int) bool {
		state.AddProtocol("b")
		return true
	}})

	state := newTestState(t)
	d.ClassifyUDP(state, []byte("AA"), 0)

	assert.True(t, state.HasProtocol("a"))
	assert.False(t, state.HasProtocol("b"))
}

func TestDispatchRunsParsersInOrderAndHonorsUnregister(t *testing.T) {
	d := &Dispatcher{}
	state := newTestState(t)

	var order []string
	state.RegisterParser(func(s *session.Session, userData any, data []byte, direction int) Action {
		order = append(order, "first")
		return Continue
	}, nil, func(any) {})

	freed := false
	state.RegisterParser(func(s *session.Session, userData any, data []byte, direction int) Action {
		order = append(order, "second")
		return Unregister
	}, nil, func(any) { freed = true })

	d.Dispatch(state, []byte("x"), 0)

	assert.Equal(t, []string{"first", "second"}, order)
	assert.True(t, freed)

	// Dispatch again: only "first" should still be registered.
	order = nil
	d.Dispatch(state, []byte("y"), 0)
	assert.Equal(t, []string{"first"}, order)
}

func TestSessionFreeRunsEveryRemainingParserFree(t *testing.T) {
	d := &Dispatcher{}
	state := newTestState(t)

	freedCount := 0
	state.RegisterParser(func(s *session.Session, userData any, data []byte, direction int) Action {
		return Continue
	}, nil, func(any) { freedCount++ })
	state.RegisterParser(func(s *session.Session, userData any, data []byte, direction int) Action {
		return Continue
	}, nil, func(any) { freedCount++ })

	d.SessionFree(state)
	assert.Equal(t, 2, freedCount)
	require.Empty(t, state.parsers)
}
