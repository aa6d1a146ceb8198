package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fieldcore/internal/fieldops"
	"fieldcore/internal/fieldreg"
	"fieldcore/internal/rulehook"
	"fieldcore/internal/session"
)

func TestDropTableRecordsEntriesPerSession(t *testing.T) {
	r := fieldreg.New(64)
	fieldreg.Bootstrap(r)
	session.RegisterInternalFields(r)
	s := session.New(r, &rulehook.Bus{})
	s.Key = "sess-1"

	table := NewDropTable()
	table.Add(s, fieldops.SideSrc, 30)
	table.Add(s, fieldops.SideBoth, 60)

	entries := table.Entries("sess-1")
	assert.Len(t, entries, 2)
	assert.Equal(t, fieldops.SideSrc, entries[0].Side)
	assert.Equal(t, int32(30), entries[0].TTL)

	assert.Empty(t, table.Entries("other-session"))
}
