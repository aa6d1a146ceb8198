package fieldreg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldcore/internal/fieldcore"
	"fieldcore/internal/indexclient"
)

func newTestRegistry() *Registry {
	r := New(64)
	Bootstrap(r)
	return r
}

func TestDefineAssignsDensePosition(t *testing.T) {
	r := newTestRegistry()

	pos := r.Define("http", fieldcore.KindString, "http.uri", "URI", "http.uri", "request URI",
		0, fieldcore.Options{})

	require.GreaterOrEqual(t, pos, int32(0))
	fi := r.FieldAt(pos)
	require.NotNil(t, fi)
	assert.Equal(t, "http.uri", fi.Expression)
	assert.Equal(t, pos, fi.Pos)
}

func TestDefineFakeNeverGetsADurablePosition(t *testing.T) {
	r := newTestRegistry()

	pos := r.Define("http", fieldcore.KindString, "http.tmp", "tmp", "http.tmp", "scratch",
		fieldcore.FlagFake, fieldcore.Options{})

	assert.Equal(t, int32(-1), pos)
	assert.Nil(t, r.FieldAt(0))
}

func TestByExpResolvesDefinedField(t *testing.T) {
	r := newTestRegistry()
	pos := r.Define("http", fieldcore.KindString, "http.uri", "URI", "http.uri", "",
		0, fieldcore.Options{})

	assert.Equal(t, pos, r.ByExp("http.uri"))
}

func TestByExpFatalOnNeverDefined(t *testing.T) {
	r := newTestRegistry()

	assert.Panics(t, func() {
		r.ByExp("does.not.exist")
	})
}

func TestPositionAllocationNeverCrosses(t *testing.T) {
	r := New(4)
	Bootstrap(r)

	r.Define("g", fieldcore.KindInt, "f1", "", "f1", "", 0, fieldcore.Options{})
	r.Define("g", fieldcore.KindInt, "f2", "", "f2", "", 0, fieldcore.Options{})

	assert.Panics(t, func() {
		r.ByExpAddInternal("internal1", fieldcore.KindInt, nil, nil)
		r.ByExpAddInternal("internal2", fieldcore.KindInt, nil, nil)
		r.ByExpAddInternal("internal3", fieldcore.KindInt, nil, nil)
	}, "internal region must not be allowed to cross into the db region")
}

func TestDefineIPPreSynthesizesGeoCompanionsWithTrimmedDBField(t *testing.T) {
	r := newTestRegistry()

	r.Define("general", fieldcore.KindIP, "ip.src", "Src IP", "srcIp", "source IP",
		fieldcore.FlagIPPre, fieldcore.Options{})

	geoPos := r.ByDB("srcGEO")
	fi := r.FieldAt(geoPos)
	require.NotNil(t, fi)
	assert.Equal(t, "country.src", fi.Expression)

	assert.Equal(t, geoPos, r.ByDB("srcGEO"))
	assert.Equal(t, r.ByExp("asn.src"), r.ByDB("srcASN"))
	assert.Equal(t, r.ByExp("rir.src"), r.ByDB("srcRIR"))
}

func TestUnifyExistingAnnouncesChangedKeysToIndex(t *testing.T) {
	r := newTestRegistry()
	index := indexclient.NewMemory()
	r.Index = index
	index.AddField("http", "str", "http.uri", "URI", "http.uri", "", false, indexclient.FieldOptions{})

	r.Define("http", fieldcore.KindString, "http.uri", "URI", "http.uri", "",
		0, fieldcore.Options{})
	r.Define("http", fieldcore.KindString, "http.uri", "URI", "http.uri", "",
		0, fieldcore.Options{Category: "url", Transform: "lowercase", Aliases: []string{"uri"}})

	updates := index.Updates()
	require.Len(t, updates, 3)
	assert.Equal(t, "http.uri", updates[0].Expression)

	rec, ok := index.Field("http.uri")
	require.True(t, ok)
	assert.Equal(t, "url", rec.Options.Category)
	assert.Equal(t, "lowercase", rec.Options.Transform)
}

func TestUnifyExistingSkipsAnnounceWithNoIndexWired(t *testing.T) {
	r := newTestRegistry()

	assert.NotPanics(t, func() {
		r.Define("http", fieldcore.KindString, "http.uri", "URI", "http.uri", "",
			0, fieldcore.Options{})
		r.Define("http", fieldcore.KindString, "http.uri", "URI", "http.uri", "",
			0, fieldcore.Options{Category: "url"})
	})
}

func TestBootstrapInstallsPseudoFieldAliases(t *testing.T) {
	r := newTestRegistry()

	assert.Equal(t, fieldcore.PosStopSPI, r.ByExp("dontSaveSPI"))
	assert.Equal(t, fieldcore.PosStopSPI, r.ByExp("_dontSaveSPI"))
	assert.Equal(t, fieldcore.PosStopPCAP, r.ByExp("_maxPacketsToSave"))
	assert.Equal(t, fieldcore.PosMinSave, r.ByExp("_minPacketsBeforeSavingSPI"))
	assert.Equal(t, fieldcore.PosDropSrc, r.ByExp("_dropBySrc"))
	assert.Equal(t, fieldcore.PosDropDst, r.ByExp("_dropByDst"))
	assert.Equal(t, fieldcore.PosDropSession, r.ByExp("_dropBySession"))
	assert.Equal(t, fieldcore.PosStopYara, r.ByExp("_dontCheckYara"))
}

func TestDefineTextRegistersField(t *testing.T) {
	r := newTestRegistry()

	pos := r.DefineText("field:http.method;db:http.method;kind:termfield;friendly:Method")
	require.GreaterOrEqual(t, pos, int32(0))
	fi := r.FieldAt(pos)
	require.NotNil(t, fi)
	assert.Equal(t, "http.method", fi.Expression)
	assert.Equal(t, fieldcore.KindString, fi.Kind)
}

func TestRemapSubstitutesOnce(t *testing.T) {
	r := newTestRegistry()
	fieldPos := r.Define("g", fieldcore.KindInt, "field.a", "", "field.a", "", 0, fieldcore.Options{})
	newPos := r.Define("g", fieldcore.KindInt, "field.b", "", "field.b", "", 0, fieldcore.Options{})
	matchPos := r.Define("g", fieldcore.KindInt, "match.x", "", "match.x", "", 0, fieldcore.Options{})

	r.LoadRemap(map[string]string{
		"field.a": "match.x=field.b",
	})

	got, ok := r.Remap(fieldPos, matchPos)
	require.True(t, ok)
	assert.Equal(t, newPos, got)

	_, ok = r.Remap(newPos, matchPos)
	assert.False(t, ok, "remap must not apply transitively to the substituted target")
}

func TestRemapUnknownNameIsSkippedNotFatal(t *testing.T) {
	r := newTestRegistry()

	assert.NotPanics(t, func() {
		r.LoadRemap(map[string]string{
			"does.not.exist": "also.missing=field.b",
		})
	})
}
