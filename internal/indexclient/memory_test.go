package indexclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAddFieldRecordsRow(t *testing.T) {
	m := NewMemory()
	m.AddField("http", "str", "http.uri", "URI", "http.uri", "request URI", true,
		FieldOptions{Category: "url"})

	rec, ok := m.Field("http.uri")
	require.True(t, ok)
	assert.Equal(t, "http", rec.Group)
	assert.Equal(t, "url", rec.Options.Category)
	assert.False(t, rec.Deleted)
}

func TestMemoryUpdateFieldPatchesKnownKeys(t *testing.T) {
	m := NewMemory()
	m.AddField("http", "str", "http.uri", "URI", "http.uri", "", false, FieldOptions{})

	m.UpdateField("http.uri", "category", "url")
	m.UpdateField("http.uri", "transform", "lowercase")

	rec, ok := m.Field("http.uri")
	require.True(t, ok)
	assert.Equal(t, "url", rec.Options.Category)
	assert.Equal(t, "lowercase", rec.Options.Transform)
	assert.Len(t, m.Updates(), 2)
}

func TestMemoryUpdateFieldOnUnknownExpressionIsRecordedButIgnored(t *testing.T) {
	m := NewMemory()
	m.UpdateField("does.not.exist", "category", "x")

	_, ok := m.Field("does.not.exist")
	assert.False(t, ok)
	assert.Len(t, m.Updates(), 1)
}

func TestMemoryDeleteFieldMarksDeleted(t *testing.T) {
	m := NewMemory()
	m.AddField("http", "str", "http.uri", "URI", "http.uri", "", false, FieldOptions{})
	m.DeleteField("http.uri")

	rec, ok := m.Field("http.uri")
	require.True(t, ok)
	assert.True(t, rec.Deleted)
}
