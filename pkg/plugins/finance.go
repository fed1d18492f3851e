package plugins

import (
	"math"

	"github.com/antibyte/retrosheet/pkg/tabular"
)

// registerFinance installs the annuity and cash-flow functions. Sign
// conventions follow the usual spreadsheet ones: money paid out is
// negative, money received is positive.
func registerFinance(h *Host) error {
	fns := []struct {
		name     string
		min, max int
		fn       tabular.Callable
	}{
		{"PMT", 3, 5, financePMT},
		{"FV", 3, 5, financeFV},
		{"PV", 3, 5, financePV},
		{"NPV", 2, -1, financeNPV},
	}
	for _, f := range fns {
		if err := h.RegisterFunction(f.name, f.min, f.max, f.fn); err != nil {
			return err
		}
	}
	return nil
}

// numArg coerces a required argument, ErrTypeCoercion when it has no
// numeric reading.
func numArg(name string, args []tabular.Value, i int) (float64, error) {
	n, ok := args[i].AsNumber()
	if !ok {
		return 0, tabular.NewCalcError(tabular.ErrTypeCoercion,
			"%s argument %d is not numeric", name, i+1)
	}
	return n, nil
}

// optArg coerces an optional trailing argument, def when absent.
func optArg(name string, args []tabular.Value, i int, def float64) (float64, error) {
	if i >= len(args) {
		return def, nil
	}
	return numArg(name, args, i)
}

// annuityArgs reads the shared (rate, nper, amount, opt, type) argument
// shape of PMT, FV and PV.
func annuityArgs(name string, args []tabular.Value) (rate, nper, amount, opt, when float64, err error) {
	if rate, err = numArg(name, args, 0); err != nil {
		return
	}
	if nper, err = numArg(name, args, 1); err != nil {
		return
	}
	if amount, err = numArg(name, args, 2); err != nil {
		return
	}
	if opt, err = optArg(name, args, 3, 0); err != nil {
		return
	}
	if when, err = optArg(name, args, 4, 0); err != nil {
		return
	}
	if when != 0 {
		when = 1
	}
	return
}

// financePMT computes the per-period payment of an annuity:
// PMT(rate, nper, pv [, fv [, type]]).
func financePMT(args []tabular.Value) (tabular.Value, error) {
	rate, nper, pv, fv, when, err := annuityArgs("PMT", args)
	if err != nil {
		return tabular.Value{}, err
	}
	if nper == 0 {
		return tabular.Value{}, tabular.NewCalcError(tabular.ErrDomain, "PMT needs a non-zero period count")
	}
	if rate == 0 {
		return tabular.Number(-(pv + fv) / nper), nil
	}
	growth := math.Pow(1+rate, nper)
	if growth == 1 {
		return tabular.Value{}, tabular.NewCalcError(tabular.ErrDomain, "PMT rate too close to zero")
	}
	return tabular.Number(-rate * (pv*growth + fv) / ((growth - 1) * (1 + rate*when))), nil
}

// financeFV computes the future value of an annuity:
// FV(rate, nper, pmt [, pv [, type]]).
func financeFV(args []tabular.Value) (tabular.Value, error) {
	rate, nper, pmt, pv, when, err := annuityArgs("FV", args)
	if err != nil {
		return tabular.Value{}, err
	}
	if rate == 0 {
		return tabular.Number(-(pv + pmt*nper)), nil
	}
	growth := math.Pow(1+rate, nper)
	return tabular.Number(-(pv*growth + pmt*(1+rate*when)*(growth-1)/rate)), nil
}

// financePV computes the present value of an annuity:
// PV(rate, nper, pmt [, fv [, type]]).
func financePV(args []tabular.Value) (tabular.Value, error) {
	rate, nper, pmt, fv, when, err := annuityArgs("PV", args)
	if err != nil {
		return tabular.Value{}, err
	}
	if rate == 0 {
		return tabular.Number(-(fv + pmt*nper)), nil
	}
	growth := math.Pow(1+rate, nper)
	return tabular.Number(-(fv + pmt*(1+rate*when)*(growth-1)/rate) / growth), nil
}

// financeNPV computes the net present value of a cash-flow series
// discounted one period per value: NPV(rate, value, ...).
func financeNPV(args []tabular.Value) (tabular.Value, error) {
	rate, err := numArg("NPV", args, 0)
	if err != nil {
		return tabular.Value{}, err
	}
	if rate <= -1 {
		return tabular.Value{}, tabular.NewCalcError(tabular.ErrDomain, "NPV rate must be above -100%")
	}

	total := 0.0
	discount := 1.0
	for i := 1; i < len(args); i++ {
		// Blank range elements are skipped like the builtin
		// aggregates skip them.
		if args[i].IsEmptyText() {
			continue
		}
		n, err := numArg("NPV", args, i)
		if err != nil {
			return tabular.Value{}, err
		}
		discount *= 1 + rate
		total += n / discount
	}
	return tabular.Number(total), nil
}
