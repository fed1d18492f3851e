package plugins

import (
	"bytes"
	"errors"
	"testing"

	"github.com/antibyte/retrosheet/pkg/document"
	"github.com/antibyte/retrosheet/pkg/store"
	"github.com/antibyte/retrosheet/pkg/tabular"
)

func TestInstallRegistersPacks(t *testing.T) {
	reg := tabular.NewRegistry()
	h := NewHost(reg, store.NewMemory())
	if err := Install(h); err != nil {
		t.Fatalf("Install: %v", err)
	}

	for _, name := range []string{"PMT", "FV", "PV", "NPV", "SLUG", "INITIALS", "WORDS", "PROPER", "REVERSE"} {
		if _, ok := reg.Lookup(name); !ok {
			t.Errorf("function %s not registered", name)
		}
	}
}

func TestRegisteredFunctionInFormula(t *testing.T) {
	reg := tabular.NewRegistry()
	h := NewHost(reg, nil)
	err := h.RegisterFunction("DOUBLE", 1, 1, func(args []tabular.Value) (tabular.Value, error) {
		n, ok := args[0].AsNumber()
		if !ok {
			return tabular.Value{}, tabular.NewCalcError(tabular.ErrTypeCoercion, "DOUBLE needs a number")
		}
		return tabular.Number(2 * n), nil
	})
	if err != nil {
		t.Fatalf("RegisterFunction: %v", err)
	}

	sheet := document.NewSheet("t")
	sheet.SetCell(0, 0, "21")
	sheet.SetCell(0, 1, "=DOUBLE(A1)")
	report := sheet.Calc(reg)
	if !report.OK() {
		t.Fatalf("calc errors: %+v", report.Errors)
	}
	if got := sheet.Cell(0, 1); got != "42" {
		t.Errorf("cell = %q, want 42", got)
	}
}

func TestPanicConfinedToCell(t *testing.T) {
	reg := tabular.NewRegistry()
	h := NewHost(reg, nil)
	err := h.RegisterFunction("BOOM", 0, 0, func(args []tabular.Value) (tabular.Value, error) {
		panic("kaboom")
	})
	if err != nil {
		t.Fatalf("RegisterFunction: %v", err)
	}

	sheet := document.NewSheet("t")
	sheet.SetCell(0, 0, "=BOOM()")
	sheet.SetCell(0, 1, "=1+1")
	report := sheet.Calc(reg)

	if got := sheet.Cell(0, 0); got != "NaN" {
		t.Errorf("panicking cell = %q, want NaN", got)
	}
	if got := sheet.Cell(0, 1); got != "2" {
		t.Errorf("neighbor cell = %q, want 2", got)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("report errors = %d, want 1", len(report.Errors))
	}
	issue := report.Errors[0]
	if issue.Kind != tabular.ErrPlugin {
		t.Errorf("error kind = %v, want %v", issue.Kind, tabular.ErrPlugin)
	}
	if issue.Addr.String() != "A1" {
		t.Errorf("error address = %s, want A1", issue.Addr)
	}
}

func TestSaveLoadData(t *testing.T) {
	h := &Host{reg: tabular.NewRegistry(), store: store.NewMemory(), quota: 100}

	payload := []byte("persisted pack state")
	if err := h.SaveData("demo", "state", payload); err != nil {
		t.Fatalf("SaveData: %v", err)
	}
	got, err := h.LoadData("demo", "state")
	if err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("LoadData = %q, want %q", got, payload)
	}

	if err := h.DeleteData("demo", "state"); err != nil {
		t.Fatalf("DeleteData: %v", err)
	}
	if _, err := h.LoadData("demo", "state"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("LoadData after delete = %v, want ErrNotFound", err)
	}
}

func TestSaveDataQuota(t *testing.T) {
	h := &Host{reg: tabular.NewRegistry(), store: store.NewMemory(), quota: 100}

	if err := h.SaveData("demo", "a", make([]byte, 60)); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := h.SaveData("demo", "b", make([]byte, 50)); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("over-quota save = %v, want ErrQuotaExceeded", err)
	}

	// Replacing a value only charges the size difference.
	if err := h.SaveData("demo", "a", make([]byte, 90)); err != nil {
		t.Errorf("replace within quota: %v", err)
	}

	// Quotas are per pack.
	if err := h.SaveData("other", "a", make([]byte, 90)); err != nil {
		t.Errorf("other pack save: %v", err)
	}
}

func TestHostWithoutStore(t *testing.T) {
	h := NewHost(tabular.NewRegistry(), nil)
	if err := h.SaveData("demo", "k", []byte("v")); !errors.Is(err, ErrNoStore) {
		t.Errorf("SaveData = %v, want ErrNoStore", err)
	}
	if _, err := h.LoadData("demo", "k"); !errors.Is(err, ErrNoStore) {
		t.Errorf("LoadData = %v, want ErrNoStore", err)
	}
	if err := h.DeleteData("demo", "k"); !errors.Is(err, ErrNoStore) {
		t.Errorf("DeleteData = %v, want ErrNoStore", err)
	}
}

func TestColumnType(t *testing.T) {
	sheet := document.NewSheet("t")
	sheet.Ensure(3, 5)
	// Column A: plain numbers.
	sheet.SetCell(0, 0, "1")
	sheet.SetCell(1, 0, "2")
	sheet.SetCell(2, 0, "3")
	// Column B: text.
	sheet.SetCell(0, 1, "alpha")
	sheet.SetCell(1, 1, "beta")
	sheet.SetCell(2, 1, "gamma")
	// Column C: numeric majority, loose formats included.
	sheet.SetCell(0, 2, "$1,200")
	sheet.SetCell(1, 2, "50%")
	sheet.SetCell(2, 2, "n/a")
	// Column D: exactly half numeric is not a majority.
	sheet.SetCell(0, 3, "1")
	sheet.SetCell(1, 3, "x")
	// Column E stays empty.

	h := NewHost(tabular.NewRegistry(), nil)
	tests := []struct {
		col  int
		want string
	}{
		{0, "number"},
		{1, "text"},
		{2, "number"},
		{3, "text"},
		{4, "empty"},
	}
	for _, tt := range tests {
		if got := h.ColumnType(sheet, tt.col); got != tt.want {
			t.Errorf("ColumnType(col %d) = %q, want %q", tt.col, got, tt.want)
		}
	}
}

func TestPackNames(t *testing.T) {
	names := PackNames()
	if len(names) != 2 {
		t.Fatalf("PackNames = %v, want 2 packs", names)
	}
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["finance"] || !found["textutils"] {
		t.Errorf("PackNames = %v, want finance and textutils", names)
	}
}
