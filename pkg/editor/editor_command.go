package editor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/antibyte/retrosheet/pkg/configuration"
	"github.com/antibyte/retrosheet/pkg/document"
	"github.com/antibyte/retrosheet/pkg/logger"
	"github.com/antibyte/retrosheet/pkg/store"
	"github.com/antibyte/retrosheet/pkg/tabular"
)

// handleCommandKey processes one key event in command mode. The buffer
// holds the command line without the leading colon.
func (e *Editor) handleCommandKey(key string) {
	switch key {
	case "Enter":
		line := string(e.buffer)
		e.leaveLineEdit()
		e.execCommand(line)
	case "Escape":
		e.leaveLineEdit()
	case "Backspace":
		// Backspace on an empty command line leaves command mode.
		if len(e.buffer) == 0 {
			e.leaveLineEdit()
			return
		}
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

// execCommand runs one command line. A trailing "!" on the command word
// skips the unsaved-changes guard where one applies.
func (e *Editor) execCommand(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	force := strings.HasSuffix(cmd, "!")
	cmd = strings.TrimSuffix(cmd, "!")
	args := fields[1:]

	logger.Debug(logger.AreaEditor, "Command %q for session %s", line, e.sessionID)

	switch cmd {
	case "calc":
		e.cmdCalc()
	case "w":
		e.cmdWrite(args)
	case "o":
		e.cmdOpen(args, force)
	case "q":
		if e.sheet.Dirty() && !force {
			e.errStatus("unsaved changes (:q! to discard)")
			return
		}
		e.quit()
	case "ls":
		e.cmdList()
	case "rm":
		e.cmdRemove(args)
	case "sort":
		e.cmdSort(args)
	case "fmt":
		e.cmdFormat(args)
	case "ir":
		if n, ok := e.commandCount(args, "ir"); ok {
			e.insertRows(e.row, n)
		}
	case "ic":
		if n, ok := e.commandCount(args, "ic"); ok {
			e.insertCols(e.col, n)
		}
	case "dr":
		if n, ok := e.commandCount(args, "dr"); ok {
			e.deleteRows(e.row, n)
		}
	case "dc":
		if n, ok := e.commandCount(args, "dc"); ok {
			e.deleteCols(e.col, n)
		}
	case "new":
		e.cmdNew(args, force)
	default:
		e.errStatus("unknown command: " + cmd)
		e.bell()
	}
}

// commandCount reads the optional count argument of the row and column
// commands.
func (e *Editor) commandCount(args []string, cmd string) (int, bool) {
	if len(args) == 0 {
		return 1, true
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		e.errStatus("usage: " + cmd + " [count]")
		return 0, false
	}
	return n, true
}

// cmdCalc recalculates every formula in the sheet. Input is not read
// again until the pass finishes.
func (e *Editor) cmdCalc() {
	report := e.sheet.Calc(e.reg)
	if report.OK() {
		e.sendStatus(fmt.Sprintf("calc: %d formulas", report.Formulas))
		return
	}
	first := report.Errors[0]
	e.errStatus(fmt.Sprintf("calc: %d formulas, %d errors, first %s at %s",
		report.Formulas, len(report.Errors), first.Kind, first.Addr))
}

// cmdWrite saves the sheet under its name, or under a new name given as
// the argument.
func (e *Editor) cmdWrite(args []string) {
	if e.store == nil {
		e.errStatus("no storage backend")
		return
	}
	name := e.sheet.Name()
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		e.errStatus("usage: w name")
		return
	}

	body, err := document.EncodeBody(e.sheet)
	if err != nil {
		e.errStatus("write failed: " + err.Error())
		return
	}
	rec := &store.SheetRecord{
		Owner:      e.owner,
		Name:       name,
		Body:       body,
		Formats:    document.EncodeFormats(e.sheet.Formats()),
		HasHeaders: e.sheet.HasHeaders(),
	}
	if err := e.store.SaveSheet(rec); err != nil {
		logger.Error(logger.AreaEditor, "Failed to save sheet %q for %s: %v", name, e.owner, err)
		e.errStatus("write failed: " + err.Error())
		return
	}

	e.sheet.SetName(name)
	e.sheet.MarkClean()
	e.sendStatus(fmt.Sprintf("wrote %q", name))
}

// cmdOpen loads a saved sheet, replacing the current one.
func (e *Editor) cmdOpen(args []string, force bool) {
	if e.store == nil {
		e.errStatus("no storage backend")
		return
	}
	if len(args) == 0 {
		e.errStatus("usage: o name")
		return
	}
	if e.sheet.Dirty() && !force {
		e.errStatus("unsaved changes (:o! to discard)")
		return
	}

	name := args[0]
	rec, err := e.store.LoadSheet(e.owner, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.errStatus("no such sheet: " + name)
		} else {
			logger.Error(logger.AreaEditor, "Failed to load sheet %q for %s: %v", name, e.owner, err)
			e.errStatus("open failed: " + err.Error())
		}
		return
	}

	sheet, err := document.DecodeBody(rec.Name, rec.Body, rec.HasHeaders)
	if err != nil {
		e.errStatus("open failed: " + err.Error())
		return
	}
	formats, err := document.DecodeFormats(rec.Formats)
	if err != nil {
		e.errStatus("open failed: " + err.Error())
		return
	}
	sheet.SetFormats(formats)
	sheet.Ensure(1, 1)
	sheet.MarkClean()

	e.sheet = sheet
	e.row, e.col = 0, 0
	e.scrollRow, e.scrollCol = 0, 0
	e.sendStatus(fmt.Sprintf("opened %q", name))
}

// cmdList shows the caller's saved sheet names in the status line.
func (e *Editor) cmdList() {
	if e.store == nil {
		e.errStatus("no storage backend")
		return
	}
	names, err := e.store.ListSheets(e.owner)
	if err != nil {
		e.errStatus("list failed: " + err.Error())
		return
	}
	if len(names) == 0 {
		e.sendStatus("no saved sheets")
		return
	}
	e.sendStatus("sheets: " + strings.Join(names, ", "))
}

// cmdRemove deletes a saved sheet. The open sheet is untouched.
func (e *Editor) cmdRemove(args []string) {
	if e.store == nil {
		e.errStatus("no storage backend")
		return
	}
	if len(args) == 0 {
		e.errStatus("usage: rm name")
		return
	}
	name := args[0]
	if err := e.store.DeleteSheet(e.owner, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.errStatus("no such sheet: " + name)
		} else {
			e.errStatus("remove failed: " + err.Error())
		}
		return
	}
	e.sendStatus(fmt.Sprintf("removed %q", name))
}

// cmdSort orders the data rows by one column.
func (e *Editor) cmdSort(args []string) {
	if len(args) == 0 {
		e.errStatus("usage: sort column [desc]")
		return
	}
	col, err := tabular.ParseColumn(args[0])
	if err != nil {
		e.errStatus("bad column: " + args[0])
		return
	}
	if col > e.sheet.Cols() {
		e.errStatus("no such column: " + args[0])
		return
	}
	desc := len(args) > 1 && strings.EqualFold(args[1], "desc")
	e.sheet.SortByColumn(col-1, desc)

	order := "ascending"
	if desc {
		order = "descending"
	}
	e.sendStatus(fmt.Sprintf("sorted by %s %s", tabular.ColumnLetters(col), order))
}

// cmdFormat sets a column's display format.
func (e *Editor) cmdFormat(args []string) {
	if len(args) < 2 {
		e.errStatus("usage: fmt column kind[:options]")
		return
	}
	col, err := tabular.ParseColumn(args[0])
	if err != nil {
		e.errStatus("bad column: " + args[0])
		return
	}
	if col > e.sheet.Cols() {
		e.errStatus("no such column: " + args[0])
		return
	}
	f, err := tabular.ParseColumnFormat(args[1])
	if err != nil {
		e.errStatus(err.Error())
		return
	}
	e.sheet.SetFormat(col-1, f)
	e.sendStatus(fmt.Sprintf("format %s: %s", tabular.ColumnLetters(col), args[1]))
}

// cmdNew replaces the sheet with an empty one, sized from the arguments
// or the configured defaults.
func (e *Editor) cmdNew(args []string, force bool) {
	if e.sheet.Dirty() && !force {
		e.errStatus("unsaved changes (:new! to discard)")
		return
	}

	rows := configuration.GetInt("Editor", "default_rows", 20)
	cols := configuration.GetInt("Editor", "default_cols", 10)
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			e.errStatus("usage: new [rows [cols]]")
			return
		}
		rows = n
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			e.errStatus("usage: new [rows [cols]]")
			return
		}
		cols = n
	}
	if maxRows := configuration.GetInt("Editor", "max_rows", 10000); rows > maxRows {
		rows = maxRows
	}
	if maxCols := configuration.GetInt("Editor", "max_cols", 702); cols > maxCols {
		cols = maxCols
	}

	sheet := document.NewSheet("untitled")
	sheet.Ensure(rows, cols)
	sheet.MarkClean()

	e.sheet = sheet
	e.row, e.col = 0, 0
	e.scrollRow, e.scrollCol = 0, 0
	e.sendStatus("new sheet")
}
