package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fieldcore.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesFieldsAndRemap(t *testing.T) {
	path := writeConfig(t, `
fields_max = 4096
fields = [
  "field:http.uri;db:http.uri;kind:termfield",
]

[custom-fields-remap]
"field.a" = "match.x=field.b"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4096, cfg.FieldsMax)
	require.Len(t, cfg.Fields, 1)
	assert.Contains(t, cfg.Fields[0], "http.uri")
	assert.Equal(t, "match.x=field.b", cfg.CustomFieldsRemap["field.a"])
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}

func TestLoadMalformedTOMLReturnsError(t *testing.T) {
	path := writeConfig(t, `not = [valid toml`)
	_, err := Load(path)
	assert.Error(t, err)
}
