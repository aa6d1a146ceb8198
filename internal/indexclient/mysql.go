package indexclient

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/go-sql-driver/mysql"

	"fieldcore/internal/logging"
)

// MySQL is a database/sql + go-sql-driver/mysql backed Client that persists
// field schema rows to a `fields` table. It connects with exponential
// backoff (cenkalti/backoff) the way a production index writer reconnects
// after a transient outage, rather than failing the whole process on the
// first dropped connection.
type MySQL struct {
	db  *sql.DB
	dsn string
}

// Connect opens (and pings, with retry/backoff) a MySQL connection and
// ensures the backing `fields` table exists. ctx bounds the whole connect
// sequence.
func Connect(ctx context.Context, dsn string) (*MySQL, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("indexclient: failed to open connection: %w", err)
	}

	boff := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	pingErr := backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, boff)
	if pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("indexclient: failed to ping database after retries: %w", pingErr)
	}

	m := &MySQL{db: db, dsn: dsn}
	if err := m.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

func (m *MySQL) ensureSchema(ctx context.Context) error {
	const stmt = `
		CREATE TABLE IF NOT EXISTS fields (
			expression VARCHAR(255) PRIMARY KEY,
			db_group   VARCHAR(128),
			kind       VARCHAR(64),
			friendly   VARCHAR(255),
			db_field   VARCHAR(255),
			help       TEXT,
			have_ecs   BOOLEAN,
			category   VARCHAR(128),
			transform  VARCHAR(128),
			aliases    TEXT,
			deleted    BOOLEAN DEFAULT FALSE,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`
	_, err := m.db.ExecContext(ctx, stmt)
	if err != nil {
		return fmt.Errorf("indexclient: failed to create fields table: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (m *MySQL) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// AddField implements Client. Failures are logged (per the // "schema-channel failures are advisory") and otherwise swallowed.
func (m *MySQL) AddField(group string, kind, expression, friendly, dbField, help string, haveECS bool, opts FieldOptions) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const stmt = `
		INSERT INTO fields (expression, db_group, kind, friendly, db_field, help, have_ecs, category, transform, aliases)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			db_group=VALUES(db_group), kind=VALUES(kind), friendly=VALUES(friendly),
			db_field=VALUES(db_field), help=VALUES(help), have_ecs=VALUES(have_ecs),
			category=VALUES(category), transform=VALUES(transform), aliases=VALUES(aliases),
			deleted=FALSE`
	_, err := m.db.ExecContext(ctx, stmt, expression, group, kind, friendly, dbField, help, haveECS,
		opts.Category, opts.Transform, joinAliases(opts.Aliases))
	if err != nil {
		logging.WithError(err).Warnf("indexclient: AddField(%s) failed", expression)
	}
}

// UpdateField implements Client.
func (m *MySQL) UpdateField(expression, key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	column, ok := updatableColumn(key)
	if !ok {
		logging.Warnf("indexclient: UpdateField(%s) unknown key %q", expression, key)
		return
	}

	stmt := fmt.Sprintf("UPDATE fields SET %s = ? WHERE expression = ?", column)
	if _, err := m.db.ExecContext(ctx, stmt, value, expression); err != nil {
		logging.WithError(err).Warnf("indexclient: UpdateField(%s, %s) failed", expression, key)
	}
}

// DeleteField implements Client.
func (m *MySQL) DeleteField(expression string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := m.db.ExecContext(ctx, `UPDATE fields SET deleted = TRUE WHERE expression = ?`, expression); err != nil {
		logging.WithError(err).Warnf("indexclient: DeleteField(%s) failed", expression)
	}
}

// updatableColumn maps the key names UpdateField callers use ("category",
// "transform", "aliases") to the backing column name, rejecting anything
// else to avoid building a query from an unchecked column name.
func updatableColumn(key string) (string, bool) {
	switch key {
	case "category", "transform":
		return key, true
	case "aliases":
		return "aliases", true
	default:
		return "", false
	}
}

func joinAliases(aliases []string) string {
	out := ""
	for i, a := range aliases {
		if i > 0 {
			out += ","
		}
		out += a
	}
	return out
}
