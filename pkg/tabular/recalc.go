package tabular

import (
	"sort"
	"strings"
)

// IsFormula reports whether raw cell text is a formula, marked by a
// leading '='.
func IsFormula(text string) bool {
	return strings.HasPrefix(text, "=")
}

// FormulaBody strips the '=' marker off formula text.
func FormulaBody(text string) string {
	return strings.TrimPrefix(text, "=")
}

// CellIssue records one failed formula cell in a pass report.
type CellIssue struct {
	Addr   Address
	Kind   ErrKind
	Detail string
}

// Report summarizes one calculate pass for the caller's status line and
// logs.
type Report struct {
	Formulas int
	Errors   []CellIssue
}

// OK reports whether the pass finished without any failed cells.
func (r Report) OK() bool { return len(r.Errors) == 0 }

type cellState int

const (
	cellUnvisited cellState = iota
	cellInProgress
	cellDone
)

type passCell struct {
	src    string
	state  cellState
	result Value
	detail string
}

// pass carries the state of one calculate run. It doubles as the
// evaluator's Resolver: resolving a reference to a formula cell
// evaluates that cell first, depth-first, with results cached so every
// formula runs exactly once per pass.
type pass struct {
	grid  Grid
	cells map[Address]*passCell
	stack []Address
	eval  *Evaluator
}

// Calculate runs one destructive calculate pass over the grid: every
// formula cell is evaluated against the values the other cells settle
// to, then replaced by its rendered result. Failures never abort the
// pass; each failed cell is written as NaN and listed in the report.
// Running again on the now formula-free grid changes nothing.
func Calculate(g Grid, reg *Registry) Report {
	p := &pass{grid: g, cells: make(map[Address]*passCell)}
	p.eval = NewEvaluator(reg, p)

	rows, cols := g.Rows(), g.Cols()
	var order []Address
	for row := 1; row <= rows; row++ {
		for col := 1; col <= cols; col++ {
			addr := Address{Row: row, Col: col}
			if src := g.CellText(addr); IsFormula(src) {
				p.cells[addr] = &passCell{src: src}
				order = append(order, addr)
			}
		}
	}

	for _, addr := range order {
		if pc := p.cells[addr]; pc.state == cellUnvisited {
			p.evalCell(addr, pc)
		}
	}

	// Replacement happens only after every formula has settled, so no
	// formula ever reads a half-updated grid.
	report := Report{Formulas: len(order)}
	for _, addr := range order {
		pc := p.cells[addr]
		g.SetCellText(addr, pc.result.Render())
		if pc.result.IsError() {
			detail := pc.detail
			if detail == "" {
				detail = pc.result.ErrorKind().String()
			}
			report.Errors = append(report.Errors, CellIssue{Addr: addr, Kind: pc.result.ErrorKind(), Detail: detail})
		}
	}
	sort.Slice(report.Errors, func(i, j int) bool {
		a, b := report.Errors[i].Addr, report.Errors[j].Addr
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})
	return report
}

func (p *pass) Extent() (rows, cols int) {
	return p.grid.Rows(), p.grid.Cols()
}

// Cell resolves a reference during the pass. Non-formula cells read
// straight from the grid; formula cells evaluate on first touch, and a
// reference back into the evaluation stack is a cycle.
func (p *pass) Cell(addr Address) Value {
	pc, ok := p.cells[addr]
	if !ok {
		return Text(p.grid.CellText(addr))
	}
	switch pc.state {
	case cellDone:
		return pc.result
	case cellInProgress:
		p.markCycle(addr)
		return Errorv(ErrCycle)
	}
	return p.evalCell(addr, pc)
}

func (p *pass) evalCell(addr Address, pc *passCell) Value {
	pc.state = cellInProgress
	p.stack = append(p.stack, addr)

	var result Value
	expr, err := Parse(FormulaBody(pc.src))
	if err != nil {
		result = errValue(err)
		pc.detail = err.Error()
	} else {
		result = p.eval.Eval(expr)
	}

	p.stack = p.stack[:len(p.stack)-1]

	// markCycle may have finished this cell already; the cycle error
	// wins over whatever the unwinding evaluation computed.
	if pc.state == cellInProgress {
		pc.state = cellDone
		pc.result = result
	}
	return pc.result
}

// markCycle finishes every cell from the referenced in-progress cell up
// to the top of the stack as a cycle error. Cells deeper in the stack
// are not part of the loop; they continue evaluating and see the error
// as an ordinary dependency value.
func (p *pass) markCycle(target Address) {
	start := -1
	for i, a := range p.stack {
		if a == target {
			start = i
			break
		}
	}
	if start == -1 {
		return
	}
	for _, a := range p.stack[start:] {
		pc := p.cells[a]
		if pc.state != cellDone {
			pc.state = cellDone
			pc.result = Errorv(ErrCycle)
			pc.detail = "circular reference through " + target.String()
		}
	}
}
