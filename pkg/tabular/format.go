package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatKind selects how a column displays numeric cells.
type FormatKind int

const (
	FormatDefault FormatKind = iota
	FormatCurrency
	FormatPercent
	FormatScientific
	FormatThousands
)

// ColumnFormat describes display-time rendering for one column. The
// stored cell text is never rewritten; formatting applies on the way to
// the screen, so references and recalculation keep seeing the raw
// value. Symbol and Decimals are used as given; ParseColumnFormat fills
// in the usual defaults ("$", two decimals).
type ColumnFormat struct {
	Kind     FormatKind
	Symbol   string
	Decimals int
}

// Format renders stored cell text under a column format. Text that does
// not read as a number passes through unchanged, as do NaN and the
// infinities and anything under the default format.
func Format(text string, f ColumnFormat) string {
	if f.Kind == FormatDefault || strings.TrimSpace(text) == "" {
		return text
	}
	n, ok := parseLooseNumber(text)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return text
	}

	switch f.Kind {
	case FormatCurrency:
		sym := f.Symbol
		if sym == "" {
			sym = "$"
		}
		body := groupThousands(strconv.FormatFloat(math.Abs(n), 'f', f.Decimals, 64))
		if n < 0 {
			return "-" + sym + body
		}
		return sym + body
	case FormatPercent:
		return strconv.FormatFloat(n*100, 'f', f.Decimals, 64) + "%"
	case FormatScientific:
		return strconv.FormatFloat(n, 'e', f.Decimals, 64)
	case FormatThousands:
		return groupThousands(renderFloat(n))
	}
	return text
}

// groupThousands inserts comma separators into the integer digits of an
// already formatted decimal number.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	out := intPart
	if len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(intPart[i : i+3])
		}
		out = b.String()
	}

	if hasFrac {
		out += "." + frac
	}
	return sign + out
}

// formatNames maps the spellings accepted by ParseColumnFormat to kinds.
var formatNames = map[string]FormatKind{
	"default":    FormatDefault,
	"currency":   FormatCurrency,
	"percent":    FormatPercent,
	"sci":        FormatScientific,
	"scientific": FormatScientific,
	"thousands":  FormatThousands,
}

// ParseColumnFormat reads a colon-separated format spec as used by the
// fmt command and the persisted sheet metadata: "default", "thousands",
// "percent[:decimals]", "sci[:decimals]", "currency[:symbol[:decimals]]".
// Omitted decimals default to 2 and the omitted currency symbol to "$".
func ParseColumnFormat(s string) (ColumnFormat, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	kind, ok := formatNames[strings.ToLower(parts[0])]
	if !ok {
		return ColumnFormat{}, fmt.Errorf("unknown format %q", parts[0])
	}

	cf := ColumnFormat{Kind: kind}
	rest := parts[1:]
	switch kind {
	case FormatDefault, FormatThousands:
		if len(rest) > 0 {
			return ColumnFormat{}, fmt.Errorf("format %q takes no arguments", parts[0])
		}
		return cf, nil
	case FormatCurrency:
		cf.Symbol = "$"
		if len(rest) > 0 {
			if rest[0] != "" {
				cf.Symbol = rest[0]
			}
			rest = rest[1:]
		}
		fallthrough
	default:
		cf.Decimals = 2
		if len(rest) > 1 {
			return ColumnFormat{}, fmt.Errorf("trailing arguments in format %q", s)
		}
		if len(rest) == 1 && rest[0] != "" {
			d, err := strconv.Atoi(rest[0])
			if err != nil || d < 0 || d > 10 {
				return ColumnFormat{}, fmt.Errorf("bad decimals %q in format %q", rest[0], s)
			}
			cf.Decimals = d
		}
	}
	return cf, nil
}

// String encodes the format back into the text form ParseColumnFormat
// reads. Round-tripping through String and ParseColumnFormat is how
// sheet formats persist.
func (f ColumnFormat) String() string {
	switch f.Kind {
	case FormatCurrency:
		sym := f.Symbol
		if sym == "" {
			sym = "$"
		}
		return fmt.Sprintf("currency:%s:%d", sym, f.Decimals)
	case FormatPercent:
		return fmt.Sprintf("percent:%d", f.Decimals)
	case FormatScientific:
		return fmt.Sprintf("sci:%d", f.Decimals)
	case FormatThousands:
		return "thousands"
	}
	return "default"
}
