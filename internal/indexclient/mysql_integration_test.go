//go:build integration

package indexclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
)

// TestMySQLAddUpdateDeleteRoundTrip spins up a real MySQL instance via
// testcontainers and exercises the Client implementation end to end
// against it.
func TestMySQLAddUpdateDeleteRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("fieldcore_test"),
		tcmysql.WithUsername("fieldcore"),
		tcmysql.WithPassword("fieldcore"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(container))
	})

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err)

	client, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	client.AddField("network", "string", "sip.user", "SIP User", "sip.user-term", "SIP user part", false, FieldOptions{
		Category: "user",
	})

	client.UpdateField("sip.user", "category", "user,sip")

	row := client.db.QueryRowContext(ctx, `SELECT category, deleted FROM fields WHERE expression = ?`, "sip.user")
	var category string
	var deleted bool
	require.NoError(t, row.Scan(&category, &deleted))
	require.Equal(t, "user,sip", category)
	require.False(t, deleted)

	client.DeleteField("sip.user")

	row = client.db.QueryRowContext(ctx, `SELECT deleted FROM fields WHERE expression = ?`, "sip.user")
	require.NoError(t, row.Scan(&deleted))
	require.True(t, deleted)
}
