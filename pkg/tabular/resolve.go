package tabular

import (
	"strconv"
	"strings"
)

// Resolver supplies cell values and the grid extent to the evaluator.
// The engine ships two implementations: GridResolver for formula-free
// lookup and the recalculation pass's dependency-evaluating resolver.
type Resolver interface {
	Extent() (rows, cols int)
	Cell(addr Address) Value
}

// GridResolver resolves references directly against stored cell text.
// Formulas in referenced cells are not evaluated; their raw text is what
// a reference sees. Recalculation wraps the grid in its own resolver.
type GridResolver struct {
	G Grid
}

func (r GridResolver) Extent() (rows, cols int) {
	return r.G.Rows(), r.G.Cols()
}

func (r GridResolver) Cell(addr Address) Value {
	return Text(r.G.CellText(addr))
}

// parseLooseNumber interprets free-form cell text as a number. The
// accepted shapes, tried in order: plain integers and decimals (with
// optional thousands separators and exponent), percentages ("15%" is
// 0.15), currency amounts ("$1,234.56", "-$5" and the accounting
// negative "($5)"), and the words true/false. Whitespace around the
// value is ignored and empty text counts as zero.
func parseLooseNumber(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, true
	}

	if f, err := strconv.ParseFloat(stripThousands(t), 64); err == nil {
		return f, true
	}

	if strings.HasSuffix(t, "%") {
		body := strings.TrimSpace(strings.TrimSuffix(t, "%"))
		if f, err := strconv.ParseFloat(stripThousands(body), 64); err == nil {
			return f / 100, true
		}
	}

	if f, ok := parseCurrency(t); ok {
		return f, true
	}

	switch strings.ToLower(t) {
	case "true":
		return 1, true
	case "false":
		return 0, true
	}

	return 0, false
}

// currencySymbols are tried as prefixes when coercing text to numbers.
var currencySymbols = []string{"$", "€", "£", "¥"}

// parseCurrency handles currency-prefixed amounts. A leading minus or an
// accounting-style paren wrapper marks the amount negative; the currency
// symbol itself is required, plain "(5)" is not a number.
func parseCurrency(t string) (float64, bool) {
	neg := false
	if len(t) > 2 && strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		t = strings.TrimSpace(t[1 : len(t)-1])
		neg = true
	}
	if strings.HasPrefix(t, "-") {
		t = strings.TrimSpace(t[1:])
		neg = !neg
	}

	stripped := false
	for _, sym := range currencySymbols {
		if strings.HasPrefix(t, sym) {
			t = strings.TrimSpace(strings.TrimPrefix(t, sym))
			stripped = true
			break
		}
	}
	if !stripped {
		return 0, false
	}

	f, err := strconv.ParseFloat(stripThousands(t), 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// stripThousands drops comma group separators. Separator placement is not
// validated; "1,23,4" coerces the same as "1234".
func stripThousands(t string) string {
	if !strings.Contains(t, ",") {
		return t
	}
	return strings.ReplaceAll(t, ",", "")
}
