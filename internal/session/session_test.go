package session

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldcore/internal/fieldcore"
	"fieldcore/internal/fieldreg"
	"fieldcore/internal/rulehook"
)

func newTestSession(t *testing.T) (*Session, *fieldreg.Registry) {
	t.Helper()
	r := fieldreg.New(64)
	fieldreg.Bootstrap(r)
	RegisterInternalFields(r)
	return New(r, &rulehook.Bus{}), r
}

func TestAddStringScalarOverwritesAndCounts(t *testing.T) {
	s, r := newTestSession(t)
	pos := r.Define("g", fieldcore.KindString, "f", "", "f", "", 0, fieldcore.Options{})

	v, ok := s.AddString(pos, "hello", true)
	require.True(t, ok)
	assert.Equal(t, "hello", v)
	assert.Equal(t, 1, s.Count(pos))

	_, ok = s.AddString(pos, "world", true)
	require.True(t, ok)
	assert.Equal(t, 1, s.Count(pos), "a scalar string cell always counts as 1")
}

func TestAddStringSetDedups(t *testing.T) {
	s, r := newTestSession(t)
	pos := r.Define("g", fieldcore.KindStringSet, "f", "", "f", "", 0, fieldcore.Options{})

	_, ok := s.AddString(pos, "a", true)
	require.True(t, ok)
	_, ok = s.AddString(pos, "a", true)
	assert.False(t, ok, "a duplicate strSet add must be rejected")
	assert.Equal(t, 1, s.Count(pos))
}

func TestAddStringTruncatesAndTags(t *testing.T) {
	s, r := newTestSession(t)
	pos := r.Define("g", fieldcore.KindString, "f", "", "f", "", 0, fieldcore.Options{})

	long := strings.Repeat("x", FieldMaxElementSize+10)
	v, ok := s.AddString(pos, long, true)
	require.True(t, ok)
	assert.Len(t, v, FieldMaxElementSize)
	_, tagged := s.Tags["truncated-field-f"]
	assert.True(t, tagged)
}

func TestAddIntArrayDiffFromLastRejectsRepeat(t *testing.T) {
	s, r := newTestSession(t)
	pos := r.Define("g", fieldcore.KindIntArray, "f", "", "f", "", fieldcore.FlagDiffFromLast, fieldcore.Options{})

	_, ok := s.AddInt(pos, 5)
	require.True(t, ok)
	_, ok = s.AddInt(pos, 5)
	assert.False(t, ok, "DIFF_FROM_LAST must reject a value equal to the last appended one")

	_, ok = s.AddInt(pos, 6)
	assert.True(t, ok)
	assert.Equal(t, 2, s.Count(pos))
}

// TestFloatMapDedupMatchesOtherMaps pins the Open Question decision
// documented in session.go's AddFloat: floatMap dedups exactly like
// intMap/strMap (single conditional insert).
func TestFloatMapDedupMatchesOtherMaps(t *testing.T) {
	s, r := newTestSession(t)
	floatPos := r.Define("g", fieldcore.KindFloatMap, "ff", "", "ff", "", 0, fieldcore.Options{})
	intPos := r.Define("g", fieldcore.KindIntMap, "ii", "", "ii", "", 0, fieldcore.Options{})

	_, ok := s.AddFloat(floatPos, 1.5)
	require.True(t, ok)
	_, ok = s.AddFloat(floatPos, 1.5)
	assert.False(t, ok)

	_, ok = s.AddInt(intPos, 1)
	require.True(t, ok)
	_, ok = s.AddInt(intPos, 1)
	assert.False(t, ok)

	assert.Equal(t, s.Count(intPos), s.Count(floatPos))
}

func TestAddIpStrMapsV4IntoV6Space(t *testing.T) {
	s, r := newTestSession(t)
	pos := r.Define("g", fieldcore.KindIP, "f", "", "f", "", 0, fieldcore.Options{})

	addr, ok, err := s.AddIpStr(pos, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, addr.Is4In6())
}

func TestCellKindMismatchPanics(t *testing.T) {
	s, r := newTestSession(t)
	pos := r.Define("g", fieldcore.KindString, "f", "", "f", "", 0, fieldcore.Options{})

	_, ok := s.AddString(pos, "x", true)
	require.True(t, ok)

	assert.Panics(t, func() {
		s.AddInt(pos, 1)
	})
}

func TestDisabledFieldIsNoOp(t *testing.T) {
	s, r := newTestSession(t)
	pos := r.Define("g", fieldcore.KindString, "f", "", "f", "", fieldcore.FlagDisabled, fieldcore.Options{})

	_, ok := s.AddString(pos, "x", true)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Count(pos))
}

func TestMidSaveTransitionsOnceJSONSizeCrossesThreshold(t *testing.T) {
	s, r := newTestSession(t)
	pos := r.Define("g", fieldcore.KindStringArray, "f", "", "f", "", 0, fieldcore.Options{})

	require.False(t, s.MidSave)
	big := strings.Repeat("y", FieldMaxJSONSize)
	_, ok := s.AddString(pos, big, true)
	require.True(t, ok)
	assert.True(t, s.MidSave)
}

func TestFreeClearsCellsAndDrainsDeferred(t *testing.T) {
	s, r := newTestSession(t)
	pos := r.Define("g", fieldcore.KindString, "f", "", "f", "", 0, fieldcore.Options{})
	_, ok := s.AddString(pos, "x", true)
	require.True(t, ok)

	freed := false
	s.FreeLater("token", func(any) { freed = true })

	s.Free()
	assert.Equal(t, 0, s.Count(pos))
	assert.True(t, freed)
}

func TestRegisterInternalFieldsRoundTripsIPSrc(t *testing.T) {
	s, r := newTestSession(t)
	pos := r.ByExp("ip.src")
	fi := r.FieldAt(pos)
	require.NotNil(t, fi)
	require.NotNil(t, fi.Setter)

	fi.Setter(s, netip.MustParseAddr("192.168.1.1"))
	got := fi.Getter(s)
	assert.Equal(t, netip.MustParseAddr("192.168.1.1"), got)
}
