// Package store persists the arena's side records in SQLite: chat lines,
// failed admin logins, finished game sessions and server settings.
package store

import (
	"database/sql"
	"errors"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// SessionRow is one finished game session
type SessionRow struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	PeakMass float64   `json:"peakMass"`
	Played   float64   `json:"played"` // seconds
	EatenBy  string    `json:"eatenBy,omitempty"`
	EndedAt  time.Time `json:"endedAt"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL lets the HTTP handlers read while the event writer commits.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS failed_logins (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		ip TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS game_sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		peak_mass REAL NOT NULL DEFAULT 0,
		played REAL NOT NULL DEFAULT 0,
		eaten_by TEXT NOT NULL DEFAULT '',
		ended_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_game_sessions_peak ON game_sessions(peak_mass DESC);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// GetSetting returns a stored setting, or "" when it is unset.
func (db *DB) GetSetting(key string) string {
	var v string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Printf("settings: read %s: %v", key, err)
	}
	return v
}

// SetSetting stores or replaces a setting.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// TopSessions returns the finished sessions with the highest peak mass.
func (db *DB) TopSessions(limit int) ([]SessionRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, peak_mass, played, eaten_by, ended_at
		FROM game_sessions
		ORDER BY peak_mass DESC, ended_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SessionRow
	for rows.Next() {
		var r SessionRow
		var ended string
		if err := rows.Scan(&r.ID, &r.Name, &r.PeakMass, &r.Played, &r.EatenBy, &ended); err != nil {
			return nil, err
		}
		r.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		result = append(result, r)
	}
	return result, rows.Err()
}

// CountChat returns the number of logged chat lines.
func (db *DB) CountChat() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM chat_messages").Scan(&n)
	return n, err
}

// CountFailedLogins returns failed admin logins since the given time.
func (db *DB) CountFailedLogins(since time.Time) (int, error) {
	var n int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM failed_logins WHERE created_at >= ?",
		since.UTC().Format(time.RFC3339Nano),
	).Scan(&n)
	return n, err
}
