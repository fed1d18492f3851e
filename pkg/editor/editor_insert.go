package editor

import (
	"github.com/antibyte/retrosheet/pkg/configuration"
)

// handleInsertKey processes one key event in insert mode. The buffer
// holds the cell text being edited; nothing touches the sheet until
// the edit commits.
func (e *Editor) handleInsertKey(key string) {
	switch key {
	case "Enter":
		e.commitInsert()
	case "Tab":
		// Commit and move to the next column, spreadsheet style.
		e.commitInsert()
		e.col++
	case "Escape":
		e.cancelInsert()
	case "Backspace":
		if e.caret > 0 {
			e.buffer = append(e.buffer[:e.caret-1], e.buffer[e.caret:]...)
			e.caret--
		}
	case "Delete":
		if e.caret < len(e.buffer) {
			e.buffer = append(e.buffer[:e.caret], e.buffer[e.caret+1:]...)
		}
	case "ArrowLeft":
		if e.caret > 0 {
			e.caret--
		}
	case "ArrowRight":
		if e.caret < len(e.buffer) {
			e.caret++
		}
	case "Home":
		e.caret = 0
	case "End":
		e.caret = len(e.buffer)
	default:
		e.insertRune(key)
	}
}

// commitInsert writes the buffer into the current cell and returns to
// normal mode. With auto_calc on, every commit runs a silent calculate
// pass, so formulas resolve as soon as they are typed.
func (e *Editor) commitInsert() {
	e.sheet.SetCell(e.row, e.col, string(e.buffer))
	e.leaveLineEdit()
	if configuration.GetBool("Engine", "auto_calc", false) {
		e.sheet.Calc(e.reg)
	}
}

// cancelInsert discards the buffer and returns to normal mode.
func (e *Editor) cancelInsert() {
	e.leaveLineEdit()
}

func (e *Editor) leaveLineEdit() {
	e.buffer = e.buffer[:0]
	e.caret = 0
	e.mode = ModeNormal
	e.sendMode()
}

// insertRune inserts a single printable character at the caret. Control
// keys arrive as multi-character names and are dropped here.
func (e *Editor) insertRune(key string) {
	runes := []rune(key)
	if len(runes) != 1 {
		return
	}
	if len(e.buffer) >= configuration.GetInt("Engine", "max_formula_length", 1000) {
		e.bell()
		return
	}
	e.buffer = append(e.buffer, 0)
	copy(e.buffer[e.caret+1:], e.buffer[e.caret:])
	e.buffer[e.caret] = runes[0]
	e.caret++
}
