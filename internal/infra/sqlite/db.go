// Package sqlite implements domain.Store on a local SQLite database.
// Uses the pure-Go modernc.org/sqlite driver, so no CGO is required.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database inside dir and runs migrations.
func Open(dir string) (*DB, error) {
	path := filepath.Join(dir, "cogsched.db")
	conn, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	// SQLite handles one writer at a time.
	conn.SetMaxOpenConns(1)

	db := &DB{db: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.db.Close() }

// Migrations returns the schema statements. Each string is a single SQL
// statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id          TEXT PRIMARY KEY,
			external_id TEXT UNIQUE,
			email       TEXT NOT NULL DEFAULT '',
			name        TEXT NOT NULL DEFAULT '',
			avatar_url  TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		`CREATE TABLE IF NOT EXISTS profiles (
			user_id           TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			role              TEXT NOT NULL DEFAULT 'student',
			chronotype        TEXT NOT NULL DEFAULT 'normal',
			wake_time         TEXT NOT NULL DEFAULT '07:00',
			sleep_time        TEXT NOT NULL DEFAULT '23:00',
			sleep_hours       REAL NOT NULL DEFAULT 7.5,
			stress_level      INTEGER NOT NULL DEFAULT 2,
			daily_commitments TEXT NOT NULL DEFAULT '[]',
			break_preferences TEXT NOT NULL DEFAULT '[]',
			lectures_today    INTEGER NOT NULL DEFAULT 0,
			meetings_today    INTEGER NOT NULL DEFAULT 0,
			timetable         TEXT NOT NULL DEFAULT '{}',
			updated_at        TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		`CREATE TABLE IF NOT EXISTS schedules (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			schedule_data   TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			calendar_synced INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_user ON schedules(user_id, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS tlx_entries (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			block_index   INTEGER NOT NULL,
			mental_demand INTEGER NOT NULL,
			effort        INTEGER NOT NULL,
			created_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tlx_user ON tlx_entries(user_id, id)`,

		`CREATE TABLE IF NOT EXISTS user_weights (
			user_id               TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			fatigue_consec_weight REAL NOT NULL,
			fatigue_total_weight  REAL NOT NULL,
			fatigue_force_break   REAL NOT NULL,
			updated_at            TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		`CREATE TABLE IF NOT EXISTS streaks (
			user_id       TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			count         INTEGER NOT NULL DEFAULT 0,
			last_date     TEXT NOT NULL DEFAULT '',
			last_had_deep INTEGER NOT NULL DEFAULT 0
		)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
