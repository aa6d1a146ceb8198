package fieldops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldcore/internal/fieldcore"
	"fieldcore/internal/fieldreg"
	"fieldcore/internal/rulehook"
	"fieldcore/internal/session"
)

func newTestRegistryForRun(t *testing.T) *fieldreg.Registry {
	t.Helper()
	r := fieldreg.New(64)
	fieldreg.Bootstrap(r)
	session.RegisterInternalFields(r)
	return r
}

func TestRunPseudoStopSPIClampsAndSets(t *testing.T) {
	r := newTestRegistryForRun(t)
	s := session.New(r, &rulehook.Bus{})

	ops := &List{}
	ops.Grow(Op{FieldPos: fieldcore.PosStopSPI, IntVal: 5})

	Run(s, r, ops, -1, nil)

	v, set := s.StopSPIValue()
	require.True(t, set)
	assert.Equal(t, uint8(1), v, "stop-spi value must be clamped into [0,1]")
}

func TestRunPseudoDropCallsHook(t *testing.T) {
	r := newTestRegistryForRun(t)
	s := session.New(r, &rulehook.Bus{})

	var gotSide Side
	var gotTTL int32
	drop := func(sess *session.Session, side Side, ttl int32) {
		gotSide = side
		gotTTL = ttl
	}

	ops := &List{}
	ops.Grow(Op{FieldPos: fieldcore.PosDropSrc, IntVal: 30})
	Run(s, r, ops, -1, drop)

	assert.Equal(t, SideSrc, gotSide)
	assert.Equal(t, int32(30), gotTTL)
}

func TestRunRealFieldSetIfMore(t *testing.T) {
	r := newTestRegistryForRun(t)
	pos := r.Define("g", fieldcore.KindInt, "counter", "", "counter", "", 0, fieldcore.Options{})
	s := session.New(r, &rulehook.Bus{})

	ops := &List{}
	ops.Grow(Op{FieldPos: pos, Compare: SetIfMore, IntVal: 10})
	Run(s, r, ops, -1, nil)

	cur, ok := s.IntScalar(pos)
	require.True(t, ok)
	assert.Equal(t, int64(10), cur)

	// A smaller SetIfMore value must not overwrite the larger existing one.
	ops2 := &List{}
	ops2.Grow(Op{FieldPos: pos, Compare: SetIfMore, IntVal: 3})
	Run(s, r, ops2, -1, nil)

	cur, ok = s.IntScalar(pos)
	require.True(t, ok)
	assert.Equal(t, int64(10), cur)
}

func TestRunIgnoresInternalFieldTargets(t *testing.T) {
	r := newTestRegistryForRun(t)
	s := session.New(r, &rulehook.Bus{})

	ipSrcPos := r.ByExp("ip.src")

	ops := &List{}
	ops.Grow(Op{FieldPos: ipSrcPos, HasStr: true, Str: "10.0.0.1"})

	assert.NotPanics(t, func() {
		Run(s, r, ops, -1, nil)
	}, "rules must not be able to set internal computed fields")
}

func TestRunAppliesRemapSubstitution(t *testing.T) {
	r := newTestRegistryForRun(t)
	fieldPos := r.Define("g", fieldcore.KindInt, "field.a", "", "field.a", "", 0, fieldcore.Options{})
	newPos := r.Define("g", fieldcore.KindInt, "field.b", "", "field.b", "", 0, fieldcore.Options{})
	matchPos := r.Define("g", fieldcore.KindInt, "match.x", "", "match.x", "", 0, fieldcore.Options{})

	r.LoadRemap(map[string]string{"field.a": "match.x=field.b"})

	s := session.New(r, &rulehook.Bus{})
	ops := &List{}
	ops.Grow(Op{FieldPos: fieldPos, IntVal: 7})
	Run(s, r, ops, matchPos, nil)

	_, ok := s.IntScalar(fieldPos)
	assert.False(t, ok, "remapped rule must not write the nominal target")

	got, ok := s.IntScalar(newPos)
	require.True(t, ok)
	assert.Equal(t, int64(7), got)
}
