package document

import "testing"

func sortFixture() *Sheet {
	s := NewSheet("t")
	rows := [][]string{
		{"30", "c"},
		{"2", "a"},
		{"x", "b"},
		{"", ""},
		{"10", "d"},
	}
	for r, row := range rows {
		for c, text := range row {
			s.SetCell(r, c, text)
		}
	}
	return s
}

func column(s *Sheet, col int) []string {
	out := make([]string, s.Rows())
	for r := range out {
		out[r] = s.Cell(r, col)
	}
	return out
}

func TestSortByColumn(t *testing.T) {
	s := sortFixture()
	s.SetHeaders([]string{"value", "tag"})

	s.SortByColumn(0, false)
	want := []string{"2", "10", "30", "", "x"}
	got := column(s, 0)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ascending order = %v, want %v", got, want)
		}
	}
	if s.Header(0) != "value" {
		t.Errorf("header moved during sort: %q", s.Header(0))
	}

	s.SortByColumn(0, true)
	want = []string{"x", "", "30", "10", "2"}
	got = column(s, 0)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("descending order = %v, want %v", got, want)
		}
	}
}

func TestSortKeepsRowsTogether(t *testing.T) {
	s := sortFixture()
	s.SortByColumn(0, false)
	// Row cells travel with their key: "10" was paired with "d".
	if got := s.Cell(1, 1); got != "d" {
		t.Errorf("Cell(1,1) = %q, want %q", got, "d")
	}
}

func TestSortStable(t *testing.T) {
	s := NewSheet("t")
	s.SetCell(0, 0, "1")
	s.SetCell(0, 1, "first")
	s.SetCell(1, 0, "1.0")
	s.SetCell(1, 1, "second")

	s.SortByColumn(0, false)
	if got := s.Cell(0, 1); got != "first" {
		t.Errorf("equal keys reordered: row 0 tag = %q, want %q", got, "first")
	}
}

func TestSortOutOfRangeColumn(t *testing.T) {
	s := sortFixture()
	before := column(s, 0)
	s.SortByColumn(9, false)
	after := column(s, 0)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("out-of-range sort changed rows: %v != %v", after, before)
		}
	}
}
