package document

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/antibyte/retrosheet/pkg/tabular"
)

// DelimFor guesses the field delimiter from a file name: tab for .tsv,
// comma for everything else.
func DelimFor(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}

// Read parses delimiter-separated rows into a sheet. With hasHeaders the
// first record becomes the pinned header row. Ragged records are allowed
// and padded to the widest row.
func Read(r io.Reader, name string, delim rune, hasHeaders bool) (*Sheet, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	s := NewSheet(name)
	if hasHeaders && len(records) > 0 {
		s.headers = records[0]
		records = records[1:]
	}
	s.cells = records
	s.normalize()
	return s, nil
}

// Write emits the sheet as delimiter-separated rows, header row first
// when the sheet has one.
func Write(w io.Writer, s *Sheet, delim rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delim
	if s.HasHeaders() {
		if err := cw.Write(s.paddedHeaders()); err != nil {
			return err
		}
	}
	for _, row := range s.cells {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Sheet) paddedHeaders() []string {
	h := append([]string(nil), s.headers...)
	for len(h) < s.cols {
		h = append(h, "")
	}
	return h
}

// LoadFile reads a sheet from disk, naming it after the file.
func LoadFile(path string, delim rune, hasHeaders bool) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s, err := Read(f, name, delim, hasHeaders)
	if err != nil {
		return nil, err
	}
	s.dirty = false
	return s, nil
}

// SaveFile writes the sheet to disk and clears its dirty flag.
func SaveFile(s *Sheet, path string, delim rune) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, s, delim); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// EncodeBody renders the sheet as TSV, the form sheet bodies persist in.
func EncodeBody(s *Sheet) (string, error) {
	var b strings.Builder
	if err := Write(&b, s, '\t'); err != nil {
		return "", err
	}
	return b.String(), nil
}

// DecodeBody parses a persisted TSV body back into a sheet.
func DecodeBody(name, body string, hasHeaders bool) (*Sheet, error) {
	return Read(strings.NewReader(body), name, '\t', hasHeaders)
}

// EncodeFormats joins per-column format specs for persistence, one spec
// per column, comma separated.
func EncodeFormats(formats []tabular.ColumnFormat) string {
	if len(formats) == 0 {
		return ""
	}
	specs := make([]string, len(formats))
	for i, f := range formats {
		specs[i] = f.String()
	}
	return strings.Join(specs, ",")
}

// DecodeFormats parses a joined format spec list.
func DecodeFormats(spec string) ([]tabular.ColumnFormat, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, nil
	}
	parts := strings.Split(spec, ",")
	formats := make([]tabular.ColumnFormat, len(parts))
	for i, p := range parts {
		f, err := tabular.ParseColumnFormat(p)
		if err != nil {
			return nil, err
		}
		formats[i] = f
	}
	return formats, nil
}
