// Package document holds the sheet model the editor and the store work
// on: a named grid of text cells with optional headers and per-column
// display formats. Cells stay plain strings; a calculate pass replaces
// formula text with rendered results.
package document

import (
	"github.com/antibyte/retrosheet/pkg/tabular"
)

// Sheet is one rectangular grid of cells. The header row is kept apart
// from the cells so formulas address data rows only and sorting never
// moves it.
type Sheet struct {
	name    string
	headers []string
	cells   [][]string
	formats []tabular.ColumnFormat
	cols    int
	dirty   bool
}

// NewSheet creates an empty sheet.
func NewSheet(name string) *Sheet {
	return &Sheet{name: name}
}

func (s *Sheet) Name() string { return s.name }

func (s *Sheet) SetName(name string) {
	if s.name != name {
		s.name = name
		s.dirty = true
	}
}

// HasHeaders reports whether a header row was loaded or set.
func (s *Sheet) HasHeaders() bool { return len(s.headers) > 0 }

// Headers returns the pinned header row, empty when there is none.
func (s *Sheet) Headers() []string { return s.headers }

// SetHeaders replaces the header row; nil removes it.
func (s *Sheet) SetHeaders(headers []string) {
	s.headers = headers
	if len(headers) > s.cols {
		s.growCols(len(headers))
	}
	s.dirty = true
}

// Header returns one header cell, or the column letters when the sheet
// has no header row.
func (s *Sheet) Header(col int) string {
	if col >= 0 && col < len(s.headers) && s.headers[col] != "" {
		return s.headers[col]
	}
	return tabular.ColumnLetters(col + 1)
}

// Rows is the data row count. Part of the engine grid interface.
func (s *Sheet) Rows() int { return len(s.cells) }

// Cols is the column count. Part of the engine grid interface.
func (s *Sheet) Cols() int { return s.cols }

// CellText reads a cell by 1-based engine address; outside the extent it
// reads as empty.
func (s *Sheet) CellText(addr tabular.Address) string {
	return s.Cell(addr.Row-1, addr.Col-1)
}

// SetCellText writes a cell by 1-based engine address. Writes outside
// the extent are dropped, per the grid contract; interactive editing
// goes through SetCell, which grows the sheet instead.
func (s *Sheet) SetCellText(addr tabular.Address, text string) {
	row, col := addr.Row-1, addr.Col-1
	if row < 0 || row >= len(s.cells) || col < 0 || col >= s.cols {
		return
	}
	if s.cells[row][col] != text {
		s.cells[row][col] = text
		s.dirty = true
	}
}

// Cell reads a cell by 0-based indexes; out of range reads as empty.
func (s *Sheet) Cell(row, col int) string {
	if row < 0 || row >= len(s.cells) || col < 0 || col >= s.cols {
		return ""
	}
	line := s.cells[row]
	if col >= len(line) {
		return ""
	}
	return line[col]
}

// SetCell writes a cell by 0-based indexes, growing the sheet to fit.
func (s *Sheet) SetCell(row, col int, text string) {
	if row < 0 || col < 0 {
		return
	}
	s.Ensure(row+1, col+1)
	if s.cells[row][col] != text {
		s.cells[row][col] = text
		s.dirty = true
	}
}

// Ensure grows the sheet to hold at least the given extent. Shrinking
// never happens here; deleting rows and columns is explicit.
func (s *Sheet) Ensure(rows, cols int) {
	if cols > s.cols {
		s.growCols(cols)
	}
	for len(s.cells) < rows {
		s.cells = append(s.cells, make([]string, s.cols))
	}
}

func (s *Sheet) growCols(cols int) {
	s.cols = cols
	for i, row := range s.cells {
		for len(row) < cols {
			row = append(row, "")
		}
		s.cells[i] = row
	}
}

// normalize pads ragged rows to a rectangle after a load.
func (s *Sheet) normalize() {
	cols := len(s.headers)
	for _, row := range s.cells {
		if len(row) > cols {
			cols = len(row)
		}
	}
	s.cols = cols
	s.growCols(cols)
}

// InsertRow inserts an empty row before 0-based index i; i past the end
// appends.
func (s *Sheet) InsertRow(i int) {
	if i < 0 {
		i = 0
	}
	if i > len(s.cells) {
		i = len(s.cells)
	}
	s.cells = append(s.cells, nil)
	copy(s.cells[i+1:], s.cells[i:])
	s.cells[i] = make([]string, s.cols)
	s.dirty = true
}

// DeleteRow removes the 0-based row i.
func (s *Sheet) DeleteRow(i int) {
	if i < 0 || i >= len(s.cells) {
		return
	}
	s.cells = append(s.cells[:i], s.cells[i+1:]...)
	s.dirty = true
}

// InsertCol inserts an empty column before 0-based index i, shifting
// headers and formats along with the cells.
func (s *Sheet) InsertCol(i int) {
	if i < 0 {
		i = 0
	}
	if i > s.cols {
		i = s.cols
	}
	s.cols++
	for r, row := range s.cells {
		row = append(row, "")
		copy(row[i+1:], row[i:])
		row[i] = ""
		s.cells[r] = row
	}
	if len(s.headers) > i {
		s.headers = append(s.headers, "")
		copy(s.headers[i+1:], s.headers[i:])
		s.headers[i] = ""
	}
	if len(s.formats) > i {
		s.formats = append(s.formats, tabular.ColumnFormat{})
		copy(s.formats[i+1:], s.formats[i:])
		s.formats[i] = tabular.ColumnFormat{}
	}
	s.dirty = true
}

// DeleteCol removes the 0-based column i together with its header and
// format.
func (s *Sheet) DeleteCol(i int) {
	if i < 0 || i >= s.cols {
		return
	}
	s.cols--
	for r, row := range s.cells {
		s.cells[r] = append(row[:i], row[i+1:]...)
	}
	if i < len(s.headers) {
		s.headers = append(s.headers[:i], s.headers[i+1:]...)
	}
	if i < len(s.formats) {
		s.formats = append(s.formats[:i], s.formats[i+1:]...)
	}
	s.dirty = true
}

// Format returns the display format of a 0-based column; columns never
// given one use the default.
func (s *Sheet) Format(col int) tabular.ColumnFormat {
	if col < 0 || col >= len(s.formats) {
		return tabular.ColumnFormat{}
	}
	return s.formats[col]
}

// SetFormat assigns a display format to a 0-based column.
func (s *Sheet) SetFormat(col int, f tabular.ColumnFormat) {
	if col < 0 || col >= s.cols {
		return
	}
	for len(s.formats) <= col {
		s.formats = append(s.formats, tabular.ColumnFormat{})
	}
	s.formats[col] = f
	s.dirty = true
}

// Formats returns the per-column formats, trimmed to the column count.
func (s *Sheet) Formats() []tabular.ColumnFormat {
	if len(s.formats) > s.cols {
		return s.formats[:s.cols]
	}
	return s.formats
}

// SetFormats replaces all column formats, used when loading a persisted
// sheet.
func (s *Sheet) SetFormats(formats []tabular.ColumnFormat) {
	s.formats = formats
}

// DisplayCell renders a cell through its column format for the screen.
// The stored text is untouched.
func (s *Sheet) DisplayCell(row, col int) string {
	return tabular.Format(s.Cell(row, col), s.Format(col))
}

// Dirty reports unsaved changes.
func (s *Sheet) Dirty() bool { return s.dirty }

// MarkClean clears the dirty flag after a save.
func (s *Sheet) MarkClean() { s.dirty = false }

// Calc runs one calculate pass over the sheet, replacing formulas with
// their rendered results. Replacements flow through SetCellText, so the
// dirty flag tracks them on its own.
func (s *Sheet) Calc(reg *tabular.Registry) tabular.Report {
	return tabular.Calculate(s, reg)
}
