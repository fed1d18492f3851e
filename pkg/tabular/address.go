package tabular

import (
	"fmt"
	"strconv"
	"strings"
)

// Address names one grid cell. Rows and columns are 1-based; column 1 is
// "A", column 27 is "AA". Row 0 or column 0 never name a cell.
type Address struct {
	Row int
	Col int
}

// String renders the address in letter-digit form, "B12".
func (a Address) String() string {
	return ColumnLetters(a.Col) + strconv.Itoa(a.Row)
}

// ColumnLetters encodes a 1-based column number in bijective base-26:
// 1 -> A, 26 -> Z, 27 -> AA, 52 -> AZ, 703 -> AAA. Returns "" for
// non-positive input.
func ColumnLetters(col int) string {
	if col < 1 {
		return ""
	}
	var buf [8]byte
	i := len(buf)
	for col > 0 {
		col--
		i--
		buf[i] = byte('A' + col%26)
		col /= 26
	}
	return string(buf[i:])
}

// ParseColumn decodes bijective base-26 column letters back into a 1-based
// column number. Case-insensitive; rejects empty input, non-letters and
// encodings that overflow int.
func ParseColumn(letters string) (int, error) {
	if letters == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidColumn)
	}
	col := 0
	for _, r := range letters {
		switch {
		case r >= 'A' && r <= 'Z':
			col = col*26 + int(r-'A') + 1
		case r >= 'a' && r <= 'z':
			col = col*26 + int(r-'a') + 1
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidColumn, letters)
		}
		if col < 0 || col > maxColumn {
			return 0, fmt.Errorf("%w: %q out of range", ErrInvalidColumn, letters)
		}
	}
	return col, nil
}

// maxColumn bounds parsed column numbers; wide enough for any real sheet
// while keeping overflow arithmetic trivial.
const maxColumn = 1 << 30

// ParseAddress parses letter-digit cell syntax ("A1", "aa12") into an
// Address. The letter block must be followed by a positive row number with
// nothing left over; row 0 is rejected.
func ParseAddress(s string) (Address, error) {
	split := 0
	for split < len(s) && isLetter(s[split]) {
		split++
	}
	if split == 0 || split == len(s) {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	col, err := ParseColumn(s[:split])
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	row, err := strconv.Atoi(s[split:])
	if err != nil || row < 1 {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return Address{Row: row, Col: col}, nil
}

// isCellWord reports whether s has the letters-then-digits shape of a cell
// reference. It does not validate the row value; ParseAddress does.
func isCellWord(s string) bool {
	i := 0
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	if i == 0 || i == len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Range names a rectangular block of cells. Explicit ranges carry all four
// bounds; whole-column ranges leave StartRow/EndRow zero and whole-row
// ranges leave StartCol/EndCol zero. Open bounds are filled in from the
// grid extent when the range is resolved, not when it is parsed, so a grid
// that grows between parse and evaluation is honored.
type Range struct {
	StartRow int
	StartCol int
	EndRow   int
	EndCol   int
}

// CellRange builds a normalized range between two explicit corners.
func CellRange(a, b Address) Range {
	r := Range{StartRow: a.Row, StartCol: a.Col, EndRow: b.Row, EndCol: b.Col}
	return r.normalized()
}

// ColRange builds a whole-column range spanning columns c1..c2.
func ColRange(c1, c2 int) Range {
	r := Range{StartCol: c1, EndCol: c2}
	return r.normalized()
}

// RowRange builds a whole-row range spanning rows r1..r2.
func RowRange(r1, r2 int) Range {
	r := Range{StartRow: r1, EndRow: r2}
	return r.normalized()
}

// normalized orders the bounds so the start corner is top-left regardless
// of how the user wrote the range.
func (r Range) normalized() Range {
	if r.StartRow > r.EndRow {
		r.StartRow, r.EndRow = r.EndRow, r.StartRow
	}
	if r.StartCol > r.EndCol {
		r.StartCol, r.EndCol = r.EndCol, r.StartCol
	}
	return r
}

// WholeCols reports whether the range spans entire columns.
func (r Range) WholeCols() bool { return r.StartRow == 0 }

// WholeRows reports whether the range spans entire rows.
func (r Range) WholeRows() bool { return r.StartCol == 0 }

// Resolve clamps the range to a grid of the given extent, filling open
// bounds. The returned bounds are inclusive and 1-based; ok is false when
// the intersection with the grid is empty.
func (r Range) Resolve(rows, cols int) (r1, c1, r2, c2 int, ok bool) {
	r1, c1, r2, c2 = r.StartRow, r.StartCol, r.EndRow, r.EndCol
	if r.WholeCols() {
		r1, r2 = 1, rows
	}
	if r.WholeRows() {
		c1, c2 = 1, cols
	}
	if r2 > rows {
		r2 = rows
	}
	if c2 > cols {
		c2 = cols
	}
	if r1 < 1 || c1 < 1 || r1 > r2 || c1 > c2 {
		return 0, 0, 0, 0, false
	}
	return r1, c1, r2, c2, true
}

// String renders the range in source syntax: "A1:B3", "A:C" or "2:5".
func (r Range) String() string {
	switch {
	case r.WholeCols():
		return ColumnLetters(r.StartCol) + ":" + ColumnLetters(r.EndCol)
	case r.WholeRows():
		return strconv.Itoa(r.StartRow) + ":" + strconv.Itoa(r.EndRow)
	default:
		start := Address{Row: r.StartRow, Col: r.StartCol}
		end := Address{Row: r.EndRow, Col: r.EndCol}
		return start.String() + ":" + end.String()
	}
}

// ParseRange parses range syntax: two cell addresses ("A1:B3"), two column
// letter blocks ("A:C") or two row numbers ("2:5") separated by a colon.
func ParseRange(s string) (Range, error) {
	left, right, found := strings.Cut(s, ":")
	if !found || left == "" || right == "" {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	if isCellWord(left) && isCellWord(right) {
		a, err := ParseAddress(left)
		if err != nil {
			return Range{}, err
		}
		b, err := ParseAddress(right)
		if err != nil {
			return Range{}, err
		}
		return CellRange(a, b), nil
	}
	if isLetters(left) && isLetters(right) {
		c1, err := ParseColumn(left)
		if err != nil {
			return Range{}, err
		}
		c2, err := ParseColumn(right)
		if err != nil {
			return Range{}, err
		}
		return ColRange(c1, c2), nil
	}
	if isDigits(left) && isDigits(right) {
		r1, err := strconv.Atoi(left)
		if err != nil || r1 < 1 {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
		}
		r2, err := strconv.Atoi(right)
		if err != nil || r2 < 1 {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
		}
		return RowRange(r1, r2), nil
	}
	return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
}

func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
