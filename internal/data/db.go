package data

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	invocation_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	command TEXT NOT NULL,
	driver TEXT NOT NULL,
	target TEXT,
	duration_ms INTEGER,
	status TEXT,
	error_message TEXT,
	row_count INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_audit_logs_timestamp ON audit_logs (timestamp);
`

// OpenAuditDB opens (creating if needed) the SQLite audit database at path
// and runs migrations. Concurrent bridge processes share the file, so writers
// wait on the lock instead of failing.
func OpenAuditDB(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create audit directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	return err
}
