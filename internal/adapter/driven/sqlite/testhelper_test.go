package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
)

// setupTestDB opens a shared in-memory cache database with the same
// reader/writer split as production and applies the schema migrations. The
// database is named after the test so parallel tests stay isolated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// The test name lands in the DSN's filename slot; escape it so subtest
	// slashes cannot leak into the query string. In-memory databases have
	// no WAL journal, so the journal_mode pragma from NewDB is omitted.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)",
		url.PathEscape(t.Name()),
	)

	writer := openTestConn(t, dsn, 1)
	reader := openTestConn(t, dsn, 4)

	db := &DB{Writer: writer, Reader: reader, path: dsn}
	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

func openTestConn(t *testing.T, dsn string, maxConns int) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open test connection: %v", err)
	}
	conn.SetMaxOpenConns(maxConns)

	if err := conn.PingContext(context.Background()); err != nil {
		_ = conn.Close()
		t.Fatalf("ping test connection: %v", err)
	}

	return conn
}
