package editor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/antibyte/retrosheet/pkg/configuration"
	"github.com/antibyte/retrosheet/pkg/document"
	"github.com/antibyte/retrosheet/pkg/logger"
	"github.com/antibyte/retrosheet/pkg/shared"
	"github.com/antibyte/retrosheet/pkg/store"
	"github.com/antibyte/retrosheet/pkg/tabular"
)

// Mode is the editor's input mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeInsert
	ModeCommand
)

func (m Mode) String() string {
	switch m {
	case ModeInsert:
		return "insert"
	case ModeCommand:
		return "command"
	default:
		return "normal"
	}
}

// Manager tracks the active editor sessions.
type Manager struct {
	editors map[string]*Editor // sessionID -> Editor
	mu      sync.RWMutex
}

var globalManager = &Manager{
	editors: make(map[string]*Editor),
}

// GetManager returns the global editor manager instance.
func GetManager() *Manager {
	return globalManager
}

// Config holds everything a new editor session needs.
type Config struct {
	SessionID string
	Owner     string // store owner key for :w and :o
	Rows      int    // terminal rows in character cells
	Cols      int    // terminal columns in character cells
	Output    chan shared.Message
	Registry  *tabular.Registry
	Store     store.Store // nil disables :w and :o
}

// Start creates a new editor session, replacing any existing one for
// the same session ID.
func (m *Manager) Start(config Config) *Editor {
	logger.Info(logger.AreaEditor, "Start called for session: %s", config.SessionID)
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.editors[config.SessionID]; exists {
		logger.Info(logger.AreaEditor, "Closing existing editor for session: %s", config.SessionID)
		existing.Close()
	}

	ed := New(config)
	m.editors[config.SessionID] = ed
	ed.Start()
	return ed
}

// Get returns the editor for a session, if any.
func (m *Manager) Get(sessionID string) *Editor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.editors[sessionID]
}

// CloseSession closes and removes an editor session.
func (m *Manager) CloseSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ed, exists := m.editors[sessionID]; exists {
		ed.Close()
		delete(m.editors, sessionID)
	}
}

// ProcessKey forwards a key event to the session's editor. It returns
// false when the session has no editor or the editor has quit.
func (m *Manager) ProcessKey(sessionID, key string) bool {
	m.mu.RLock()
	ed := m.editors[sessionID]
	m.mu.RUnlock()

	if ed == nil {
		return false
	}
	return ed.ProcessKey(key)
}

// CloseIdle closes every editor inactive for longer than maxInactive
// and returns how many were closed.
func (m *Manager) CloseIdle(maxInactive time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	closed := 0
	for sessionID, ed := range m.editors {
		if ed.IdleFor() > maxInactive {
			logger.Info(logger.AreaEditor, "Closing idle editor for session: %s", sessionID)
			ed.Close()
			delete(m.editors, sessionID)
			closed++
		}
	}
	return closed
}

// Editor is one sheet editing session. A single goroutine owns it: all
// key events for a session arrive through the same websocket reader.
type Editor struct {
	sheet *document.Sheet
	reg   *tabular.Registry
	store store.Store
	owner string

	mode Mode
	row  int // cursor data row, 0-based
	col  int // cursor column, 0-based

	scrollRow int // first visible data row
	scrollCol int // first visible column

	screenRows int // terminal height in character cells
	screenCols int
	colWidth   int

	count   int  // pending count prefix
	pending byte // pending operator, 'd' after the first d of dd

	buffer []rune // insert/command line buffer
	caret  int

	out        chan shared.Message
	sessionID  string
	active     bool
	lastActive int64 // unix nanos, updated on every key
}

// New creates an editor with a fresh sheet sized from configuration.
func New(config Config) *Editor {
	rows := config.Rows
	cols := config.Cols
	if rows <= 0 {
		rows = 24
	}
	if cols <= 0 {
		cols = 80
	}

	colWidth := configuration.GetInt("Editor", "column_width", 10)
	if colWidth < 4 {
		colWidth = 4
	}
	if colWidth > 40 {
		colWidth = 40
	}

	sheet := document.NewSheet("untitled")
	sheet.Ensure(
		configuration.GetInt("Editor", "default_rows", 20),
		configuration.GetInt("Editor", "default_cols", 10),
	)
	sheet.MarkClean()

	ed := &Editor{
		sheet:      sheet,
		reg:        config.Registry,
		store:      config.Store,
		owner:      config.Owner,
		mode:       ModeNormal,
		screenRows: rows,
		screenCols: cols,
		colWidth:   colWidth,
		out:        config.Output,
		sessionID:  config.SessionID,
		active:     true,
	}
	ed.touch()
	return ed
}

// Start sends the initial mode and frame to the client.
func (e *Editor) Start() {
	e.sendMode()
	e.Render()
	e.sendStatus("ready")
}

// Close deactivates the editor. Pending edits are discarded.
func (e *Editor) Close() {
	e.active = false
}

// Active reports whether the editor still accepts input.
func (e *Editor) Active() bool {
	return e.active
}

// Sheet exposes the session's sheet, for tests and batch tooling.
func (e *Editor) Sheet() *document.Sheet {
	return e.sheet
}

// Mode returns the current input mode.
func (e *Editor) Mode() Mode {
	return e.mode
}

// IdleFor returns the time since the last key event.
func (e *Editor) IdleFor() time.Duration {
	return time.Since(time.Unix(0, atomic.LoadInt64(&e.lastActive)))
}

func (e *Editor) touch() {
	atomic.StoreInt64(&e.lastActive, time.Now().UnixNano())
}

// Resize updates the terminal geometry and redraws.
func (e *Editor) Resize(rows, cols int) {
	if !e.active || rows <= 0 || cols <= 0 {
		return
	}
	e.screenRows = rows
	e.screenCols = cols
	e.clampCursor()
	e.adjustScroll()
	e.Render()
}

// ProcessKey handles one key event. It returns false once the editor
// has quit; input arriving after that is dropped.
func (e *Editor) ProcessKey(key string) bool {
	if !e.active {
		logger.Warn(logger.AreaEditor, "ProcessKey called on inactive editor for session %s, key %q ignored", e.sessionID, key)
		return false
	}
	e.touch()

	switch e.mode {
	case ModeNormal:
		e.handleNormalKey(key)
	case ModeInsert:
		e.handleInsertKey(key)
	case ModeCommand:
		e.handleCommandKey(key)
	}

	if !e.active {
		return false
	}

	e.clampCursor()
	e.adjustScroll()
	e.Render()
	return true
}

// quit ends the session.
func (e *Editor) quit() {
	e.sendText("goodbye")
	e.active = false
	logger.Info(logger.AreaEditor, "Editor quit for session: %s", e.sessionID)
}

// clampCursor keeps the cursor inside the sheet.
func (e *Editor) clampCursor() {
	maxRow := e.sheet.Rows() - 1
	maxCol := e.sheet.Cols() - 1
	if maxRow < 0 {
		maxRow = 0
	}
	if maxCol < 0 {
		maxCol = 0
	}
	if e.row > maxRow {
		e.row = maxRow
	}
	if e.row < 0 {
		e.row = 0
	}
	if e.col > maxCol {
		e.col = maxCol
	}
	if e.col < 0 {
		e.col = 0
	}
}
