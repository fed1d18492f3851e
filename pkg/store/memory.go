package store

import (
	"sort"
	"sync"
	"time"
)

type sheetKey struct {
	owner string
	name  string
}

// Memory is a non-persistent backend for tests and ephemeral runs.
type Memory struct {
	mu      sync.RWMutex
	sheets  map[sheetKey]*SheetRecord
	users   map[string]*UserRecord
	plugins map[string]map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sheets:  make(map[sheetKey]*SheetRecord),
		users:   make(map[string]*UserRecord),
		plugins: make(map[string]map[string][]byte),
	}
}

func (m *Memory) SaveSheet(rec *SheetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	key := sheetKey{rec.Owner, rec.Name}
	stored := *rec
	stored.UpdatedAt = now
	if old, ok := m.sheets[key]; ok {
		stored.CreatedAt = old.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	m.sheets[key] = &stored
	return nil
}

func (m *Memory) LoadSheet(owner, name string) (*SheetRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.sheets[sheetKey{owner, name}]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (m *Memory) ListSheets(owner string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for key := range m.sheets {
		if key.owner == owner {
			names = append(names, key.name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *Memory) DeleteSheet(owner, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sheetKey{owner, name}
	if _, ok := m.sheets[key]; !ok {
		return ErrNotFound
	}
	delete(m.sheets, key)
	return nil
}

func (m *Memory) CreateUser(username, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[username]; ok {
		return ErrExists
	}
	m.users[username] = &UserRecord{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	return nil
}

func (m *Memory) User(username string) (*UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.users[username]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (m *Memory) SavePluginData(plugin, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.plugins[plugin]
	if !ok {
		data = make(map[string][]byte)
		m.plugins[plugin] = data
	}
	data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) LoadPluginData(plugin, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.plugins[plugin][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *Memory) DeletePluginData(plugin, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.plugins[plugin], key)
	return nil
}

func (m *Memory) PluginDataSize(plugin string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, value := range m.plugins[plugin] {
		total += int64(len(value))
	}
	return total, nil
}

func (m *Memory) Close() error {
	return nil
}
