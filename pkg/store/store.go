package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/antibyte/retrosheet/pkg/configuration"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrExists is returned when creating a record whose key is already taken.
var ErrExists = errors.New("record already exists")

// SheetRecord is a persisted sheet. Body holds the tab-separated cell
// text (header row first when HasHeaders is set), Formats the encoded
// column format list.
type SheetRecord struct {
	Owner      string
	Name       string
	Body       string
	Formats    string
	HasHeaders bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserRecord is a registered account.
type UserRecord struct {
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Store persists sheets, user accounts and plugin key/value data.
// Implementations must be safe for concurrent use.
type Store interface {
	// SaveSheet inserts or updates the sheet keyed by (Owner, Name).
	// CreatedAt/UpdatedAt on the record are ignored; the store tracks
	// them itself.
	SaveSheet(rec *SheetRecord) error
	// LoadSheet returns ErrNotFound if no such sheet exists.
	LoadSheet(owner, name string) (*SheetRecord, error)
	// ListSheets returns the owner's sheet names sorted alphabetically.
	ListSheets(owner string) ([]string, error)
	// DeleteSheet returns ErrNotFound if no such sheet exists.
	DeleteSheet(owner, name string) error

	// CreateUser returns ErrExists if the username is taken.
	CreateUser(username, passwordHash string) error
	// User returns ErrNotFound if no such account exists.
	User(username string) (*UserRecord, error)

	// SavePluginData inserts or replaces one key of a plugin's data.
	SavePluginData(plugin, key string, value []byte) error
	// LoadPluginData returns ErrNotFound if the key was never saved.
	LoadPluginData(plugin, key string) ([]byte, error)
	DeletePluginData(plugin, key string) error
	// PluginDataSize returns the total value bytes stored for a plugin.
	PluginDataSize(plugin string) (int64, error)

	Close() error
}

// Open creates the store selected by the [Database] section of the
// settings file.
func Open() (Store, error) {
	backend := configuration.GetString("Database", "backend", "sqlite")
	switch strings.ToLower(backend) {
	case "sqlite":
		return OpenSQLite(configuration.GetString("Database", "file", "retrosheet.db"))
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown database backend: %s", backend)
	}
}
