package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/antibyte/retrosheet/pkg/configuration"
	"github.com/antibyte/retrosheet/pkg/logger"
	_ "modernc.org/sqlite"
)

// schemaVersion is bumped whenever the table layout changes.
const schemaVersion = 1

// SQLite is the default persistent backend.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens or creates the database file and ensures all tables exist.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Ensure the database is accessible
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	busy := configuration.GetDuration("Database", "busy_timeout", 5*time.Second)
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds())); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &SQLite{conn: conn}
	if err := s.createTables(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.checkSchemaVersion(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Info(logger.AreaStore, "sqlite store ready: %s", path)
	return s, nil
}

func (s *SQLite) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sheets (
			owner TEXT NOT NULL,
			name TEXT NOT NULL,
			body TEXT NOT NULL,
			formats TEXT NOT NULL DEFAULT '',
			has_headers INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (owner, name)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS plugin_data (
			plugin TEXT NOT NULL,
			key TEXT NOT NULL,
			value BLOB NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (plugin, key)
		)`,
		`CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return nil
}

// checkSchemaVersion records the schema version on first open and
// refuses databases written by a newer release.
func (s *SQLite) checkSchemaVersion() error {
	var stored int
	err := s.conn.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&stored)
	if err == sql.ErrNoRows {
		_, err = s.conn.Exec("INSERT INTO metadata (key, value) VALUES ('schema_version', ?)",
			fmt.Sprintf("%d", schemaVersion))
		if err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if stored > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", stored, schemaVersion)
	}
	return nil
}

// SaveSheet inserts or updates the sheet keyed by (Owner, Name).
func (s *SQLite) SaveSheet(rec *SheetRecord) error {
	now := time.Now().Unix()
	hasHeaders := 0
	if rec.HasHeaders {
		hasHeaders = 1
	}

	var count int
	err := s.conn.QueryRow("SELECT COUNT(*) FROM sheets WHERE owner = ? AND name = ?",
		rec.Owner, rec.Name).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check for sheet: %w", err)
	}

	if count == 0 {
		_, err = s.conn.Exec(`
			INSERT INTO sheets (owner, name, body, formats, has_headers, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, rec.Owner, rec.Name, rec.Body, rec.Formats, hasHeaders, now, now)
	} else {
		_, err = s.conn.Exec(`
			UPDATE sheets SET body = ?, formats = ?, has_headers = ?, updated_at = ?
			WHERE owner = ? AND name = ?
		`, rec.Body, rec.Formats, hasHeaders, now, rec.Owner, rec.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to save sheet: %w", err)
	}

	logger.Debug(logger.AreaStore, "saved sheet %s/%s (%d bytes)", rec.Owner, rec.Name, len(rec.Body))
	return nil
}

// LoadSheet returns the stored sheet or ErrNotFound.
func (s *SQLite) LoadSheet(owner, name string) (*SheetRecord, error) {
	rec := &SheetRecord{Owner: owner, Name: name}
	var hasHeaders int
	var created, updated int64

	err := s.conn.QueryRow(`
		SELECT body, formats, has_headers, created_at, updated_at
		FROM sheets WHERE owner = ? AND name = ?
	`, owner, name).Scan(&rec.Body, &rec.Formats, &hasHeaders, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sheet: %w", err)
	}

	rec.HasHeaders = hasHeaders != 0
	rec.CreatedAt = time.Unix(created, 0)
	rec.UpdatedAt = time.Unix(updated, 0)
	return rec, nil
}

// ListSheets returns the owner's sheet names sorted alphabetically.
func (s *SQLite) ListSheets(owner string) ([]string, error) {
	rows, err := s.conn.Query("SELECT name FROM sheets WHERE owner = ? ORDER BY name", owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan sheet name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteSheet removes the sheet or returns ErrNotFound.
func (s *SQLite) DeleteSheet(owner, name string) error {
	res, err := s.conn.Exec("DELETE FROM sheets WHERE owner = ? AND name = ?", owner, name)
	if err != nil {
		return fmt.Errorf("failed to delete sheet: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	logger.Debug(logger.AreaStore, "deleted sheet %s/%s", owner, name)
	return nil
}

// CreateUser stores a new account or returns ErrExists.
func (s *SQLite) CreateUser(username, passwordHash string) error {
	var count int
	err := s.conn.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check for user: %w", err)
	}
	if count > 0 {
		return ErrExists
	}

	_, err = s.conn.Exec(`
		INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)
	`, username, passwordHash, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info(logger.AreaStore, "created user: %s", username)
	return nil
}

// User returns the stored account or ErrNotFound.
func (s *SQLite) User(username string) (*UserRecord, error) {
	rec := &UserRecord{Username: username}
	var created int64

	err := s.conn.QueryRow(`
		SELECT password_hash, created_at FROM users WHERE username = ?
	`, username).Scan(&rec.PasswordHash, &created)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	rec.CreatedAt = time.Unix(created, 0)
	return rec, nil
}

// SavePluginData inserts or replaces one key of a plugin's data.
func (s *SQLite) SavePluginData(plugin, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.conn.Exec(`
		INSERT OR REPLACE INTO plugin_data (plugin, key, value, updated_at) VALUES (?, ?, ?, ?)
	`, plugin, key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save plugin data: %w", err)
	}
	return nil
}

// LoadPluginData returns the stored value or ErrNotFound.
func (s *SQLite) LoadPluginData(plugin, key string) ([]byte, error) {
	var value []byte
	err := s.conn.QueryRow(`
		SELECT value FROM plugin_data WHERE plugin = ? AND key = ?
	`, plugin, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin data: %w", err)
	}
	return value, nil
}

// DeletePluginData removes one key; missing keys are not an error.
func (s *SQLite) DeletePluginData(plugin, key string) error {
	_, err := s.conn.Exec("DELETE FROM plugin_data WHERE plugin = ? AND key = ?", plugin, key)
	if err != nil {
		return fmt.Errorf("failed to delete plugin data: %w", err)
	}
	return nil
}

// PluginDataSize returns the total value bytes stored for a plugin.
func (s *SQLite) PluginDataSize(plugin string) (int64, error) {
	var size sql.NullInt64
	err := s.conn.QueryRow(`
		SELECT SUM(LENGTH(value)) FROM plugin_data WHERE plugin = ?
	`, plugin).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("failed to sum plugin data: %w", err)
	}
	return size.Int64, nil
}

// Close shuts down the database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
