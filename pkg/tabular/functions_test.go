package tabular

import (
	"errors"
	"sort"
	"testing"
)

// statFixture holds three numeric columns:
//
//	A = 1..5, B has a tie between 3 and 5, C = 2*A.
func statFixture() Resolver {
	g := SliceGridFrom([][]string{
		{"1", "2", "2"},
		{"2", "3", "4"},
		{"3", "3", "6"},
		{"4", "5", "8"},
		{"5", "5", "10"},
	})
	return GridResolver{G: g}
}

func TestStatFunctions(t *testing.T) {
	reg := NewRegistry()
	res := statFixture()

	tests := []struct {
		name    string
		formula string
		want    string
	}{
		{"sum", "sum(A1:A5)", "15"},
		{"product", "product(A1:A5)", "120"},
		{"sumsq", "sumsq(A1:A5)", "55"},
		{"count", "count(A1:A5)", "5"},
		{"avg", "avg(A1:A5)", "3"},
		{"avg is sum over count", "avg(A1:A5) = sum(A1:A5) / count(A1:A5)", "1"},
		{"mean alias", "mean(A1:A5)", "3"},
		{"median odd", "median(A1:A5)", "3"},
		{"median even", "median(A1:A4)", "2.5"},
		{"mode tie picks smallest", "mode(B1:B5)", "3"},
		{"min", "min(A1:A5)", "1"},
		{"max", "max(A1:A5)", "5"},
		{"range is max minus min", "range(A1:A5) = max(A1:A5) - min(A1:A5)", "1"},
		{"var sample", "var(A1:A5)", "2.5"},
		{"varp population", "varp(A1:A5)", "2"},
		{"stdev squared is var", "abs(stdev(A1:A5)^2 - var(A1:A5)) < 0.000001", "1"},
		{"stdevp squared is varp", "abs(stdevp(A1:A5)^2 - varp(A1:A5)) < 0.000001", "1"},
		{"stdev of one value", "stdev(A1:A1)", "NaN"},
		{"quartile zero is min", "quartile(A1:A5, 0) = min(A1:A5)", "1"},
		{"quartile four is max", "quartile(A1:A5, 4) = max(A1:A5)", "1"},
		{"quartile two is median", "quartile(A1:A5, 2) = median(A1:A5)", "1"},
		{"percentile half is median", "percentile(A1:A5, 0.5) = median(A1:A5)", "1"},
		{"percentile interpolates", "percentile(A1:A5, 0.25)", "2"},
		{"correl of linear data", "correl(A1:A5, C1:C5)", "1"},
		{"covar", "covar(A1:A5, C1:C5)", "4"},
		{"skew symmetric", "skew(A1:A5)", "0"},
		{"kurt", "kurt(A1:A5)", "-1.3"},
		{"geomean below mean", "geomean(A1:A5) <= avg(A1:A5)", "1"},
		{"harmean", "harmean(A1:A5)", "2.1897810219"},
		{"nan poisons min", "min(A1:A5, 0/0)", "NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvalFormula(tt.formula, reg, res).Render()
			if got != tt.want {
				t.Errorf("EvalFormula(%q) = %q, want %q", tt.formula, got, tt.want)
			}
		})
	}

	errTests := []struct {
		name    string
		formula string
		want    ErrKind
	}{
		{"correl size mismatch", "correl(A1:A5, C1:C4)", ErrArity},
		{"percentile out of range", "percentile(A1:A5, 1.5)", ErrDomain},
		{"scalar text is strict", `min(A1:A5, "abc")`, ErrTypeCoercion},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			v := EvalFormula(tt.formula, reg, res)
			if !v.IsError() || v.ErrorKind() != tt.want {
				t.Errorf("EvalFormula(%q) = %v kind %v, want error kind %v", tt.formula, v.Render(), v.ErrorKind(), tt.want)
			}
		})
	}
}

func TestMathFunctions(t *testing.T) {
	reg := NewRegistry()
	res := statFixture()

	tests := []struct {
		name    string
		formula string
		want    string
	}{
		{"abs", "abs(-3)", "3"},
		{"abs float", "abs(-2.5)", "2.5"},
		{"sqrt", "sqrt(16)", "4"},
		{"pow matches sqrt", "pow(2, 0.5) = sqrt(2)", "1"},
		{"power alias", "power(2, 10)", "1024"},
		{"exp zero", "exp(0)", "1"},
		{"ln one", "ln(1)", "0"},
		{"log base ten", "log(1000)", "3"},
		{"log10 alias", "log10(100)", "2"},
		{"log2", "log2(8)", "3"},
		{"floor", "floor(2.7)", "2"},
		{"ceil", "ceil(2.1)", "3"},
		{"ceiling alias", "ceiling(2.1)", "3"},
		{"round half away", "round(2.5)", "3"},
		{"round negative half away", "round(-2.5)", "-3"},
		{"round at digits", "round(1.237, 2)", "1.24"},
		{"round negative digits", "round(1234, -2)", "1200"},
		{"trunc toward zero", "trunc(-2.9)", "-2"},
		{"int floors", "int(-2.9)", "-3"},
		{"sign", "sign(-7)", "-1"},
		{"mod keeps dividend sign", "mod(-7, 3)", "-1"},
		{"gcd variadic", "gcd(12, 18, 24)", "6"},
		{"gcd with zero", "gcd(0, 5)", "5"},
		{"lcm", "lcm(4, 6)", "12"},
		{"fact", "fact(5)", "120"},
		{"combin", "combin(5, 2)", "10"},
		{"permut", "permut(5, 2)", "20"},
		{"atan2 takes y then x", "abs(atan2(1, 1) - pi() / 4) < 0.000001", "1"},
		{"radians", "abs(radians(180) - pi()) < 0.000001", "1"},
		{"degrees", "abs(degrees(pi()) - 180) < 0.000001", "1"},
		{"trig identity", "abs(sin(1)^2 + cos(1)^2 - 1) < 0.000001", "1"},
		{"rand stays in unit range", "rand() >= 0 AND rand() < 1", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvalFormula(tt.formula, reg, res).Render()
			if got != tt.want {
				t.Errorf("EvalFormula(%q) = %q, want %q", tt.formula, got, tt.want)
			}
		})
	}

	t.Run("lcm overflow", func(t *testing.T) {
		v := EvalFormula("lcm(4611686018427387904, 3)", reg, res)
		if !v.IsError() || v.ErrorKind() != ErrDomain {
			t.Errorf("lcm overflow = %v kind %v, want kind %v", v.Render(), v.ErrorKind(), ErrDomain)
		}
	})

	t.Run("rand uses injected source", func(t *testing.T) {
		reg := NewRegistry()
		reg.SetRand(func() float64 { return 0.42 })
		if got := EvalFormula("rand()", reg, res).Render(); got != "0.42" {
			t.Errorf("rand() = %q, want %q", got, "0.42")
		}
	})
}

func TestTextFunctions(t *testing.T) {
	reg := NewRegistry()
	res := statFixture()

	tests := []struct {
		name    string
		formula string
		want    string
	}{
		{"concat", `concat("a", "b", "c")`, "abc"},
		{"concatenate alias", `concatenate("x", 1)`, "x1"},
		{"len of number", "len(123.4)", "5"},
		{"upper", `upper("abc")`, "ABC"},
		{"lower", `lower("AbC")`, "abc"},
		{"trim", `trim("  pad  ")`, "pad"},
		{"left default", `left("abc")`, "a"},
		{"left counts runes", `left("héllo", 2)`, "hé"},
		{"right", `right("héllo", 3)`, "llo"},
		{"right clamps", `right("ab", 10)`, "ab"},
		{"mid", `mid("abcdef", 2, 3)`, "bcd"},
		{"mid beyond end", `mid("abc", 10, 2)`, ""},
		{"rept", `rept("ab", 3)`, "ababab"},
		{"rept zero", `rept("ab", 0)`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvalFormula(tt.formula, reg, res).Render()
			if got != tt.want {
				t.Errorf("EvalFormula(%q) = %q, want %q", tt.formula, got, tt.want)
			}
		})
	}

	t.Run("rept size cap", func(t *testing.T) {
		v := EvalFormula(`rept("x", 2000000)`, reg, res)
		if !v.IsError() || v.ErrorKind() != ErrDomain {
			t.Errorf("oversized rept = %v kind %v, want kind %v", v.Render(), v.ErrorKind(), ErrDomain)
		}
	})
}

func TestRegistryCustom(t *testing.T) {
	res := statFixture()

	t.Run("register and call", func(t *testing.T) {
		reg := NewRegistry()
		err := reg.Register("DOUBLE", 1, 1, func(args []Value) (Value, error) {
			n, _ := args[0].AsNumber()
			return Number(n * 2), nil
		})
		if err != nil {
			t.Fatalf("Register(DOUBLE) failed: %v", err)
		}
		if got := EvalFormula("double(21)", reg, res).Render(); got != "42" {
			t.Errorf("double(21) = %q, want %q", got, "42")
		}
	})

	t.Run("range counts once then flattens", func(t *testing.T) {
		reg := NewRegistry()
		err := reg.Register("SECOND", 2, -1, func(args []Value) (Value, error) {
			return args[1], nil
		})
		if err != nil {
			t.Fatalf("Register(SECOND) failed: %v", err)
		}
		// One range argument is one call-site argument, so this misses
		// the two-argument minimum even though it holds three values.
		if v := EvalFormula("second(A1:A3)", reg, res); !v.IsError() || v.ErrorKind() != ErrArity {
			t.Errorf("second(A1:A3) = %v kind %v, want kind %v", v.Render(), v.ErrorKind(), ErrArity)
		}
		// The implementation sees the flattened elements 1,2,3,99.
		if got := EvalFormula("second(A1:A3, 99)", reg, res).Render(); got != "2" {
			t.Errorf("second(A1:A3, 99) = %q, want %q", got, "2")
		}
	})

	t.Run("override builtin", func(t *testing.T) {
		reg := NewRegistry()
		err := reg.Register("sum", 0, -1, func(args []Value) (Value, error) {
			return Integer(99), nil
		})
		if err != nil {
			t.Fatalf("Register(sum) failed: %v", err)
		}
		if got := EvalFormula("sum(1, 2)", reg, res).Render(); got != "99" {
			t.Errorf("overridden sum(1, 2) = %q, want %q", got, "99")
		}
	})

	t.Run("unregister removes builtin", func(t *testing.T) {
		reg := NewRegistry()
		reg.Unregister("sum")
		if v := EvalFormula("sum(1)", reg, res); !v.IsError() || v.ErrorKind() != ErrParse {
			t.Errorf("sum after Unregister = %v kind %v, want kind %v", v.Render(), v.ErrorKind(), ErrParse)
		}
		_, err := reg.Call("SUM", nil)
		if !errors.Is(err, ErrUnknownFunction) {
			t.Errorf("Call(SUM) error = %v, want ErrUnknownFunction", err)
		}
	})

	t.Run("rejects bad registrations", func(t *testing.T) {
		reg := NewRegistry()
		ok := func(args []Value) (Value, error) { return Integer(0), nil }
		if err := reg.Register("1bad", 1, 1, ok); err == nil {
			t.Error("Register accepted a name starting with a digit")
		}
		if err := reg.Register("", 1, 1, ok); err == nil {
			t.Error("Register accepted an empty name")
		}
		if err := reg.Register("F", 3, 2, ok); err == nil {
			t.Error("Register accepted maxArgs below minArgs")
		}
		if err := reg.Register("F", -1, 2, ok); err == nil {
			t.Error("Register accepted negative minArgs")
		}
		if err := reg.Register("F", 1, 1, nil); err == nil {
			t.Error("Register accepted a nil implementation")
		}
	})

	t.Run("panic surfaces as plugin error", func(t *testing.T) {
		reg := NewRegistry()
		if err := reg.Register("BOOM", 0, 0, func(args []Value) (Value, error) {
			panic("kaboom")
		}); err != nil {
			t.Fatalf("Register(BOOM) failed: %v", err)
		}
		v := EvalFormula("boom()", reg, res)
		if !v.IsError() || v.ErrorKind() != ErrPlugin {
			t.Errorf("boom() = %v kind %v, want kind %v", v.Render(), v.ErrorKind(), ErrPlugin)
		}
		if v.Render() != "NaN" {
			t.Errorf("boom() renders %q, want %q", v.Render(), "NaN")
		}
	})

	t.Run("names are sorted", func(t *testing.T) {
		reg := NewRegistry()
		names := reg.Names()
		if !sort.StringsAreSorted(names) {
			t.Error("Names() is not sorted")
		}
		found := false
		for _, n := range names {
			if n == "SUM" {
				found = true
				break
			}
		}
		if !found {
			t.Error("Names() is missing SUM")
		}
	})
}
