package editor

import (
	"github.com/antibyte/retrosheet/pkg/configuration"
)

// Counts above this are meaningless for any sheet we allow.
const maxCountPrefix = 1000000

// handleNormalKey processes one key event in normal mode.
func (e *Editor) handleNormalKey(key string) {
	// A pending operator consumes the next key before anything else.
	if e.pending != 0 {
		e.finishPending(key)
		return
	}

	// Digits accumulate into the count prefix. A bare 0 is the
	// first-column motion instead.
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		if key[0] != '0' || e.count > 0 {
			e.count = e.count*10 + int(key[0]-'0')
			if e.count > maxCountPrefix {
				e.count = maxCountPrefix
			}
			return
		}
	}

	switch key {
	case "h", "ArrowLeft":
		e.col -= e.takeCount()
	case "j", "ArrowDown", "Enter":
		e.row += e.takeCount()
	case "k", "ArrowUp":
		e.row -= e.takeCount()
	case "l", "ArrowRight", "Tab":
		e.col += e.takeCount()
	case "0", "Home":
		e.count = 0
		e.col = 0
	case "$", "End":
		e.count = 0
		e.col = e.sheet.Cols() - 1
	case "g":
		e.count = 0
		e.row = 0
	case "G":
		if e.count > 0 {
			e.row = e.takeCount() - 1
		} else {
			e.row = e.sheet.Rows() - 1
		}
	case "PageUp":
		e.row -= e.takeCount() * e.dataRows()
	case "PageDown":
		e.row += e.takeCount() * e.dataRows()
	case "i":
		e.count = 0
		e.enterInsert(e.sheet.Cell(e.row, e.col), 0)
	case "a":
		e.count = 0
		text := e.sheet.Cell(e.row, e.col)
		e.enterInsert(text, len([]rune(text)))
	case "c":
		e.count = 0
		e.enterInsert("", 0)
	case "x":
		n := e.takeCount()
		for i := 0; i < n && e.col+i < e.sheet.Cols(); i++ {
			e.sheet.SetCell(e.row, e.col+i, "")
		}
	case "d":
		e.pending = 'd'
	case "o":
		e.insertRows(e.row+1, e.takeCount())
		e.row++
	case "O":
		e.insertRows(e.row, e.takeCount())
	case ":":
		e.count = 0
		e.mode = ModeCommand
		e.buffer = e.buffer[:0]
		e.caret = 0
		e.sendMode()
	case "Escape":
		e.count = 0
	default:
		e.count = 0
		e.bell()
	}
}

// finishPending completes a two-key operator sequence. Anything other
// than the expected second key cancels the operator.
func (e *Editor) finishPending(key string) {
	op := e.pending
	e.pending = 0

	if op == 'd' && key == "d" {
		e.deleteRows(e.row, e.takeCount())
		return
	}
	e.count = 0
	e.bell()
}

// takeCount consumes the pending count prefix, defaulting to one.
func (e *Editor) takeCount() int {
	n := e.count
	e.count = 0
	if n <= 0 {
		n = 1
	}
	return n
}

// enterInsert switches to insert mode with the buffer seeded from text.
func (e *Editor) enterInsert(text string, caret int) {
	e.mode = ModeInsert
	e.buffer = []rune(text)
	if caret > len(e.buffer) {
		caret = len(e.buffer)
	}
	e.caret = caret
	e.sendMode()
}

// insertRows inserts n empty rows before index at, bounded by the
// configured row limit.
func (e *Editor) insertRows(at, n int) {
	maxRows := configuration.GetInt("Editor", "max_rows", 10000)
	for i := 0; i < n; i++ {
		if e.sheet.Rows() >= maxRows {
			e.errStatus("sheet is at the row limit")
			return
		}
		e.sheet.InsertRow(at)
	}
}

// deleteRows removes up to n rows starting at index at, always leaving
// at least one row.
func (e *Editor) deleteRows(at, n int) {
	for i := 0; i < n; i++ {
		if e.sheet.Rows() <= 1 {
			e.errStatus("cannot delete the last row")
			return
		}
		e.sheet.DeleteRow(at)
	}
}

// insertCols inserts n empty columns before index at, bounded by the
// configured column limit.
func (e *Editor) insertCols(at, n int) {
	maxCols := configuration.GetInt("Editor", "max_cols", 702)
	for i := 0; i < n; i++ {
		if e.sheet.Cols() >= maxCols {
			e.errStatus("sheet is at the column limit")
			return
		}
		e.sheet.InsertCol(at)
	}
}

// deleteCols removes up to n columns starting at index at, always
// leaving at least one column.
func (e *Editor) deleteCols(at, n int) {
	for i := 0; i < n; i++ {
		if e.sheet.Cols() <= 1 {
			e.errStatus("cannot delete the last column")
			return
		}
		e.sheet.DeleteCol(at)
	}
}
