package document

import (
	"sort"
	"strings"

	"github.com/antibyte/retrosheet/pkg/tabular"
)

// SortByColumn orders the data rows by one 0-based column. Cells that
// read as numbers sort numerically and come before text; text compares
// case-insensitively, with blank cells at the front of the text block.
// Equal keys keep their relative order and the header row never moves.
func (s *Sheet) SortByColumn(col int, desc bool) {
	if col < 0 || col >= s.cols {
		return
	}
	sort.SliceStable(s.cells, func(i, j int) bool {
		if desc {
			return rowLess(s.cells[j], s.cells[i], col)
		}
		return rowLess(s.cells[i], s.cells[j], col)
	})
	s.dirty = true
}

func rowLess(a, b []string, col int) bool {
	an, at, aNum := sortKey(a, col)
	bn, bt, bNum := sortKey(b, col)
	switch {
	case aNum && bNum:
		return an < bn
	case aNum:
		return true
	case bNum:
		return false
	default:
		return at < bt
	}
}

// sortKey classifies one cell for comparison. Blank cells count as text
// so the empty-means-zero coercion does not shuffle them in between
// numbers.
func sortKey(row []string, col int) (num float64, text string, isNum bool) {
	cell := ""
	if col < len(row) {
		cell = row[col]
	}
	if strings.TrimSpace(cell) == "" {
		return 0, "", false
	}
	if n, ok := tabular.Text(cell).AsNumber(); ok {
		return n, "", true
	}
	return 0, strings.ToLower(cell), false
}
