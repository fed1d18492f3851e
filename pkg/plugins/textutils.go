package plugins

import (
	"strings"
	"unicode"

	"github.com/antibyte/retrosheet/pkg/tabular"
)

// registerTextUtils installs text helpers beyond the engine builtins.
func registerTextUtils(h *Host) error {
	fns := []struct {
		name string
		fn   tabular.Callable
	}{
		{"SLUG", textSlug},
		{"INITIALS", textInitials},
		{"WORDS", textWords},
		{"PROPER", textProper},
		{"REVERSE", textReverse},
	}
	for _, f := range fns {
		if err := h.RegisterFunction(f.name, 1, 1, f.fn); err != nil {
			return err
		}
	}
	return nil
}

// textSlug lowercases the input and reduces it to letter and digit runs
// joined by single hyphens: "Net Profit (Q3)" -> "net-profit-q3".
func textSlug(args []tabular.Value) (tabular.Value, error) {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(args[0].AsText()) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	return tabular.Text(b.String()), nil
}

// textInitials concatenates the uppercased first rune of every word.
func textInitials(args []tabular.Value) (tabular.Value, error) {
	var b strings.Builder
	for _, word := range strings.Fields(args[0].AsText()) {
		for _, r := range word {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	return tabular.Text(b.String()), nil
}

// textWords counts whitespace-separated words.
func textWords(args []tabular.Value) (tabular.Value, error) {
	return tabular.Integer(int64(len(strings.Fields(args[0].AsText())))), nil
}

// textProper title-cases every word: first rune upper, the rest lower.
func textProper(args []tabular.Value) (tabular.Value, error) {
	words := strings.Fields(args[0].AsText())
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return tabular.Text(strings.Join(words, " ")), nil
}

// textReverse reverses the input rune by rune.
func textReverse(args []tabular.Value) (tabular.Value, error) {
	runes := []rune(args[0].AsText())
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return tabular.Text(string(runes)), nil
}
