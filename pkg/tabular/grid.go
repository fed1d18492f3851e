package tabular

// Grid is the cell storage the engine works against. Cells hold raw text;
// typing happens at evaluation time. CellText must return "" for
// addresses outside the extent, and SetCellText must ignore them, so the
// engine never needs bounds checks of its own.
type Grid interface {
	Rows() int
	Cols() int
	CellText(addr Address) string
	SetCellText(addr Address, text string)
}

// SliceGrid is a fixed-extent Grid over a row-major cell matrix. It backs
// batch calculation and tests; interactive editing uses the document
// layer's sheet type instead.
type SliceGrid struct {
	cells [][]string
	cols  int
}

// NewSliceGrid creates an empty grid of the given extent.
func NewSliceGrid(rows, cols int) *SliceGrid {
	cells := make([][]string, rows)
	for i := range cells {
		cells[i] = make([]string, cols)
	}
	return &SliceGrid{cells: cells, cols: cols}
}

// SliceGridFrom wraps existing rows in a grid. Ragged rows are allowed;
// the extent is the longest row, and short rows read as empty cells.
func SliceGridFrom(rows [][]string) *SliceGrid {
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return &SliceGrid{cells: rows, cols: cols}
}

func (g *SliceGrid) Rows() int { return len(g.cells) }

func (g *SliceGrid) Cols() int { return g.cols }

func (g *SliceGrid) CellText(addr Address) string {
	if addr.Row < 1 || addr.Row > len(g.cells) {
		return ""
	}
	row := g.cells[addr.Row-1]
	if addr.Col < 1 || addr.Col > len(row) {
		return ""
	}
	return row[addr.Col-1]
}

func (g *SliceGrid) SetCellText(addr Address, text string) {
	if addr.Row < 1 || addr.Row > len(g.cells) {
		return
	}
	row := g.cells[addr.Row-1]
	if addr.Col < 1 || addr.Col > len(row) {
		return
	}
	row[addr.Col-1] = text
}

// RowSlices exposes the underlying rows, mainly for writing results back
// out after a batch calculation.
func (g *SliceGrid) RowSlices() [][]string { return g.cells }
