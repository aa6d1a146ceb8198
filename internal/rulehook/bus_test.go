package rulehook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusNotifiesEveryHookInRegistrationOrder(t *testing.T) {
	var order []int

	var bus Bus
	bus.Register(func(session any, pos int32, value any) { order = append(order, 1) })
	bus.Register(func(session any, pos int32, value any) { order = append(order, 2) })

	bus.Notify("sess", 5, "value")

	assert.Equal(t, []int{1, 2}, order)
}

func TestBusWithNoHooksIsNoOp(t *testing.T) {
	var bus Bus
	assert.NotPanics(t, func() {
		bus.Notify("sess", 1, nil)
	})
}

func TestBusPassesArgumentsThrough(t *testing.T) {
	var bus Bus
	var gotSession any
	var gotPos int32
	var gotValue any

	bus.Register(func(session any, pos int32, value any) {
		gotSession, gotPos, gotValue = session, pos, value
	})

	bus.Notify("sess-1", 7, "hello")

	assert.Equal(t, "sess-1", gotSession)
	assert.Equal(t, int32(7), gotPos)
	assert.Equal(t, "hello", gotValue)
}
