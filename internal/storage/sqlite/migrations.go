package sqlite

import "database/sql"

// schema sets up the ledger tables. It runs on startup to ensure tables exist.
// ledger holds the current value of every key; ledger_log is append-only and
// keeps every committed value.
const schema = `
CREATE TABLE IF NOT EXISTS ledger (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_log (
    key TEXT NOT NULL,
    version INTEGER NOT NULL,
    value TEXT NOT NULL,
    commit_id TEXT NOT NULL,
    committed_at INTEGER NOT NULL,
    PRIMARY KEY (key, version)
);

CREATE INDEX IF NOT EXISTS idx_ledger_log_commit_id ON ledger_log(commit_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
