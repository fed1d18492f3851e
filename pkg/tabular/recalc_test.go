package tabular

import (
	"reflect"
	"strings"
	"testing"
)

func cellText(t *testing.T, g Grid, ref string) string {
	t.Helper()
	addr, err := ParseAddress(ref)
	if err != nil {
		t.Fatalf("ParseAddress(%q) failed: %v", ref, err)
	}
	return g.CellText(addr)
}

func TestCalculateBasic(t *testing.T) {
	g := SliceGridFrom([][]string{
		{"1", "=A1+1", "=B1*2"},
		{"=B2+C1", "=10/4", "plain"},
	})
	report := Calculate(g, NewRegistry())

	if report.Formulas != 4 {
		t.Errorf("report.Formulas = %d, want 4", report.Formulas)
	}
	if !report.OK() {
		t.Fatalf("report has errors: %+v", report.Errors)
	}

	want := map[string]string{
		"A1": "1",
		"B1": "2",
		"C1": "4",
		// A2 references B2 before row order reaches it; the pass
		// evaluates B2 on demand.
		"A2": "6.5",
		"B2": "2.5",
		"C2": "plain",
	}
	for ref, text := range want {
		if got := cellText(t, g, ref); got != text {
			t.Errorf("cell %s = %q, want %q", ref, got, text)
		}
	}
}

func TestCalculateEvaluatesEachFormulaOnce(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	if err := reg.Register("TICK", 0, 0, func(args []Value) (Value, error) {
		calls++
		return Integer(int64(calls)), nil
	}); err != nil {
		t.Fatalf("Register(TICK) failed: %v", err)
	}

	g := SliceGridFrom([][]string{
		{"=B1+B1+C1", "=tick()", "=tick()"},
	})
	Calculate(g, reg)

	if calls != 2 {
		t.Errorf("tick ran %d times, want 2", calls)
	}
	if got := cellText(t, g, "A1"); got != "4" {
		t.Errorf("A1 = %q, want %q", got, "4")
	}
	if got := cellText(t, g, "B1"); got != "1" {
		t.Errorf("B1 = %q, want %q", got, "1")
	}
	if got := cellText(t, g, "C1"); got != "2" {
		t.Errorf("C1 = %q, want %q", got, "2")
	}
}

func TestCalculateCycles(t *testing.T) {
	t.Run("pair cycle stays confined", func(t *testing.T) {
		g := SliceGridFrom([][]string{
			{"=B1", "=A1", "=A1+1", "5", "=D1*2"},
		})
		report := Calculate(g, NewRegistry())

		for _, ref := range []string{"A1", "B1", "C1"} {
			if got := cellText(t, g, ref); got != "NaN" {
				t.Errorf("cell %s = %q, want %q", ref, got, "NaN")
			}
		}
		if got := cellText(t, g, "E1"); got != "10" {
			t.Errorf("E1 = %q, want %q", got, "10")
		}

		if len(report.Errors) != 3 {
			t.Fatalf("len(report.Errors) = %d, want 3", len(report.Errors))
		}
		for i, ref := range []string{"A1", "B1", "C1"} {
			addr, _ := ParseAddress(ref)
			if report.Errors[i].Addr != addr {
				t.Errorf("report.Errors[%d].Addr = %v, want %s", i, report.Errors[i].Addr, ref)
			}
			if report.Errors[i].Kind != ErrCycle {
				t.Errorf("report.Errors[%d].Kind = %v, want %v", i, report.Errors[i].Kind, ErrCycle)
			}
		}
		if !strings.Contains(report.Errors[0].Detail, "circular") {
			t.Errorf("cycle detail = %q, want it to mention a circular reference", report.Errors[0].Detail)
		}
	})

	t.Run("self reference", func(t *testing.T) {
		g := SliceGridFrom([][]string{{"=A1"}})
		report := Calculate(g, NewRegistry())
		if got := cellText(t, g, "A1"); got != "NaN" {
			t.Errorf("A1 = %q, want %q", got, "NaN")
		}
		if len(report.Errors) != 1 || report.Errors[0].Kind != ErrCycle {
			t.Errorf("report.Errors = %+v, want one cycle error", report.Errors)
		}
	})

	t.Run("range including itself", func(t *testing.T) {
		g := SliceGridFrom([][]string{{"=sum(A1:B1)", "2"}})
		report := Calculate(g, NewRegistry())
		if got := cellText(t, g, "A1"); got != "NaN" {
			t.Errorf("A1 = %q, want %q", got, "NaN")
		}
		if got := cellText(t, g, "B1"); got != "2" {
			t.Errorf("B1 = %q, want %q", got, "2")
		}
		if len(report.Errors) != 1 || report.Errors[0].Kind != ErrCycle {
			t.Errorf("report.Errors = %+v, want one cycle error", report.Errors)
		}
	})
}

func TestCalculateErrorCells(t *testing.T) {
	g := SliceGridFrom([][]string{
		{"=1+", "=", "=2*3"},
	})
	report := Calculate(g, NewRegistry())

	if got := cellText(t, g, "A1"); got != "NaN" {
		t.Errorf("A1 = %q, want %q", got, "NaN")
	}
	if got := cellText(t, g, "B1"); got != "NaN" {
		t.Errorf("B1 = %q, want %q", got, "NaN")
	}
	if got := cellText(t, g, "C1"); got != "6" {
		t.Errorf("C1 = %q, want %q", got, "6")
	}

	if report.Formulas != 3 {
		t.Errorf("report.Formulas = %d, want 3", report.Formulas)
	}
	if len(report.Errors) != 2 {
		t.Fatalf("len(report.Errors) = %d, want 2", len(report.Errors))
	}
	for _, issue := range report.Errors {
		if issue.Kind != ErrParse {
			t.Errorf("issue %v kind = %v, want %v", issue.Addr, issue.Kind, ErrParse)
		}
		if issue.Detail == "" {
			t.Errorf("issue %v has no detail", issue.Addr)
		}
	}
}

func TestCalculateIdempotent(t *testing.T) {
	g := SliceGridFrom([][]string{
		{"=1+1", "x", "=1/0", "=nosuch()"},
		{"", "3.5", "=sum(A1:B2)", "15%"},
	})
	reg := NewRegistry()
	Calculate(g, reg)

	snapshot := make([][]string, 0, g.Rows())
	for _, row := range g.RowSlices() {
		snapshot = append(snapshot, append([]string(nil), row...))
	}

	report := Calculate(g, reg)
	if report.Formulas != 0 {
		t.Errorf("second pass found %d formulas, want 0", report.Formulas)
	}
	if !reflect.DeepEqual(g.RowSlices(), snapshot) {
		t.Errorf("second pass changed the grid: %v != %v", g.RowSlices(), snapshot)
	}
}

func TestCalculateRegeneratedFormula(t *testing.T) {
	g := SliceGridFrom([][]string{
		{`=concat("=", "1+1")`},
	})
	reg := NewRegistry()

	report := Calculate(g, reg)
	if got := cellText(t, g, "A1"); got != "=1+1" {
		t.Fatalf("after first pass A1 = %q, want %q", got, "=1+1")
	}
	if report.Formulas != 1 {
		t.Errorf("first pass found %d formulas, want 1", report.Formulas)
	}

	// The regenerated text is a formula again, so the next pass picks
	// it up.
	Calculate(g, reg)
	if got := cellText(t, g, "A1"); got != "2" {
		t.Errorf("after second pass A1 = %q, want %q", got, "2")
	}
}

func TestCalculateShortCircuitGuards(t *testing.T) {
	g := SliceGridFrom([][]string{
		{"0", "=A1 <> 0 AND nosuch(A1)", "=A1 = 0 OR nosuch(A1)", "=if(A1 <> 0, 10/A1, -1)"},
	})
	report := Calculate(g, NewRegistry())

	if !report.OK() {
		t.Fatalf("report has errors: %+v", report.Errors)
	}
	if got := cellText(t, g, "B1"); got != "0" {
		t.Errorf("B1 = %q, want %q", got, "0")
	}
	if got := cellText(t, g, "C1"); got != "1" {
		t.Errorf("C1 = %q, want %q", got, "1")
	}
	if got := cellText(t, g, "D1"); got != "-1" {
		t.Errorf("D1 = %q, want %q", got, "-1")
	}
}

func TestCalculateOpenRanges(t *testing.T) {
	g := SliceGridFrom([][]string{
		{"1", "=sum(A:A)"},
		{"2", "=sum(1:1)"},
		{"3", ""},
	})
	Calculate(g, NewRegistry())

	if got := cellText(t, g, "B1"); got != "6" {
		t.Errorf("B1 = %q, want %q", got, "6")
	}
	// Row 1 holds A1=1 and B1, which itself sums column A. B1 settles
	// to 6 before B2 reads it.
	if got := cellText(t, g, "B2"); got != "7" {
		t.Errorf("B2 = %q, want %q", got, "7")
	}
}
