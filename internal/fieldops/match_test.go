package fieldops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldcore/internal/fieldcore"
)

// TestAddMatchAcceptsStopSPI pins the Open Question decision documented in
// match.go: fieldcore.PosStopSPI == -1 must remain a valid AddMatch target.
func TestAddMatchAcceptsStopSPI(t *testing.T) {
	ops := &List{}
	ok := AddMatch(ops, fieldcore.PosStopSPI, 5, 100, true, "=1", 2, true)
	require.True(t, ok)
	require.Len(t, ops.Ops, 1)
	assert.Equal(t, fieldcore.PosStopSPI, ops.Ops[0].FieldPos)
	assert.Equal(t, Set, ops.Ops[0].Compare)
	assert.Equal(t, int64(1), ops.Ops[0].IntVal)
}

func TestAddMatchRejectsRealPositionPastMaxDbField(t *testing.T) {
	ops := &List{}
	ok := AddMatch(ops, 200, 5, 100, false, "x", 1, false)
	assert.False(t, ok)
	assert.Empty(t, ops.Ops)
}

func TestAddMatchStoresStringTarget(t *testing.T) {
	ops := &List{}
	ok := AddMatch(ops, 3, 5, 100, false, "hello", 5, false)
	require.True(t, ok)
	require.Len(t, ops.Ops, 1)
	assert.True(t, ops.Ops[0].HasStr)
	assert.Equal(t, "hello", ops.Ops[0].Str)
	assert.Equal(t, int64(5), ops.Ops[0].IntVal)
}

func TestAddMatchStoresNumericTarget(t *testing.T) {
	ops := &List{}
	ok := AddMatch(ops, 3, 5, 100, false, ">10", 3, true)
	require.True(t, ok)
	require.Len(t, ops.Ops, 1)
	assert.False(t, ops.Ops[0].HasStr)
	assert.Equal(t, SetIfMore, ops.Ops[0].Compare)
	assert.Equal(t, int64(10), ops.Ops[0].IntVal)
}
