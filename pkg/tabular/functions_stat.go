package tabular

import (
	"math"
	"sort"
)

func registerStatFunctions(r *Registry) {
	r.register("SUM", 1, -1, fnSum)
	r.register("PRODUCT", 1, -1, fnProduct)
	r.register("AVG", 1, -1, fnAvg)
	r.alias("AVG", "AVERAGE", "MEAN")
	r.register("COUNT", 1, -1, fnCount)
	r.register("COUNTA", 1, -1, fnCountA)
	r.register("MIN", 1, -1, fnMin)
	r.register("MAX", 1, -1, fnMax)
	r.register("RANGE", 1, -1, fnSpread)
	r.register("MEDIAN", 1, -1, fnMedian)
	r.register("MODE", 1, -1, fnMode)
	r.register("STDEV", 1, -1, fnStdev)
	r.register("STDEVP", 1, -1, fnStdevP)
	r.register("VAR", 1, -1, fnVar)
	r.register("VARP", 1, -1, fnVarP)
	r.register("SKEW", 1, -1, fnSkew)
	r.register("KURT", 1, -1, fnKurt)
	r.register("GEOMEAN", 1, -1, fnGeomean)
	r.register("HARMEAN", 1, -1, fnHarmean)
	r.register("SUMSQ", 1, -1, fnSumsq)
	r.register("PERCENTILE", 2, 2, fnPercentile)
	r.register("QUARTILE", 2, 2, fnQuartile)
	r.register("CORREL", 2, 2, fnCorrel)
	r.register("COVAR", 2, 2, fnCovar)
}

func fnSum(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return Number(sum), nil
}

func fnProduct(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	prod := 1.0
	for _, n := range nums {
		prod *= n
	}
	return Number(prod), nil
}

// fnAvg divides by the count of numeric values only, so an all-empty
// range comes out NaN rather than zero.
func fnAvg(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	return Float(mean(nums)), nil
}

func fnCount(_ *Env, args []Arg) (Value, error) {
	count := int64(0)
	for _, v := range Flatten(args) {
		if v.IsError() {
			return Value{}, propagate(v)
		}
		if v.IsEmptyText() {
			continue
		}
		if _, ok := v.AsNumber(); ok {
			count++
		}
	}
	return Integer(count), nil
}

func fnCountA(_ *Env, args []Arg) (Value, error) {
	count := int64(0)
	for _, v := range Flatten(args) {
		if v.IsError() {
			return Value{}, propagate(v)
		}
		if !v.IsEmptyText() {
			count++
		}
	}
	return Integer(count), nil
}

func fnMin(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	if len(nums) == 0 || hasNaN(nums) {
		return Float(math.NaN()), nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return Number(m), nil
}

func fnMax(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	if len(nums) == 0 || hasNaN(nums) {
		return Float(math.NaN()), nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return Number(m), nil
}

// fnSpread implements RANGE, the max-min spread of its arguments.
func fnSpread(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	if len(nums) == 0 || hasNaN(nums) {
		return Float(math.NaN()), nil
	}
	lo, hi := nums[0], nums[0]
	for _, n := range nums[1:] {
		if n < lo {
			lo = n
		}
		if n > hi {
			hi = n
		}
	}
	return Number(hi - lo), nil
}

func fnMedian(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	if len(nums) == 0 || hasNaN(nums) {
		return Float(math.NaN()), nil
	}
	s := sortCopy(nums)
	n := len(s)
	if n%2 == 1 {
		return Float(s[n/2]), nil
	}
	return Float((s[n/2-1] + s[n/2]) / 2), nil
}

// fnMode returns the most frequent value; ties, including the case where
// no value repeats, resolve to the smallest candidate.
func fnMode(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	if len(nums) == 0 || hasNaN(nums) {
		return Float(math.NaN()), nil
	}
	counts := make(map[float64]int, len(nums))
	for _, n := range nums {
		counts[n]++
	}
	best := math.NaN()
	bestCount := 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return Number(best), nil
}

func fnStdev(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	return Float(math.Sqrt(sampleVariance(nums))), nil
}

func fnStdevP(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	return Float(math.Sqrt(populationVariance(nums))), nil
}

func fnVar(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	return Float(sampleVariance(nums)), nil
}

func fnVarP(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	return Float(populationVariance(nums)), nil
}

// fnSkew computes the population skewness m3 / m2^(3/2).
func fnSkew(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	m2 := centralMoment(nums, 2)
	m3 := centralMoment(nums, 3)
	return Float(m3 / math.Pow(m2, 1.5)), nil
}

// fnKurt computes excess kurtosis m4 / m2^2 - 3, zero for a normal
// distribution.
func fnKurt(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	m2 := centralMoment(nums, 2)
	m4 := centralMoment(nums, 4)
	return Float(m4/(m2*m2) - 3), nil
}

func fnGeomean(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	logSum := 0.0
	for _, n := range nums {
		logSum += math.Log(n)
	}
	return Float(math.Exp(logSum / float64(len(nums)))), nil
}

func fnHarmean(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	invSum := 0.0
	for _, n := range nums {
		invSum += 1 / n
	}
	return Float(float64(len(nums)) / invSum), nil
}

func fnSumsq(_ *Env, args []Arg) (Value, error) {
	nums, err := numbers(args)
	if err != nil {
		return Value{}, err
	}
	sum := 0.0
	for _, n := range nums {
		sum += n * n
	}
	return Number(sum), nil
}

func fnPercentile(_ *Env, args []Arg) (Value, error) {
	nums, err := rangeNumbers(args[0])
	if err != nil {
		return Value{}, err
	}
	k, err := scalarNum(args[1])
	if err != nil {
		return Value{}, err
	}
	if math.IsNaN(k) || k < 0 || k > 1 {
		return Value{}, NewCalcError(ErrDomain, "PERCENTILE needs k in [0, 1]")
	}
	return Float(percentile(nums, k)), nil
}

func fnQuartile(_ *Env, args []Arg) (Value, error) {
	nums, err := rangeNumbers(args[0])
	if err != nil {
		return Value{}, err
	}
	q, err := scalarNum(args[1])
	if err != nil {
		return Value{}, err
	}
	if q != math.Trunc(q) || q < 0 || q > 4 {
		return Value{}, NewCalcError(ErrDomain, "QUARTILE needs a whole q in 0..4")
	}
	return Float(percentile(nums, q/4)), nil
}

func fnCorrel(_ *Env, args []Arg) (Value, error) {
	xs, ys, err := pairNumbers(args[0], args[1])
	if err != nil {
		return Value{}, err
	}
	cov := covariance(xs, ys)
	sx := math.Sqrt(populationVariance(xs))
	sy := math.Sqrt(populationVariance(ys))
	return Float(cov / (sx * sy)), nil
}

func fnCovar(_ *Env, args []Arg) (Value, error) {
	xs, ys, err := pairNumbers(args[0], args[1])
	if err != nil {
		return Value{}, err
	}
	return Float(covariance(xs, ys)), nil
}

// pairNumbers collects the pairwise numeric view of two equally shaped
// arguments. The raw element counts must match; a pair drops out when
// either side is empty or has no numeric reading.
func pairNumbers(a, b Arg) (xs, ys []float64, err error) {
	av := argElements(a)
	bv := argElements(b)
	if len(av) != len(bv) {
		return nil, nil, NewCalcError(ErrArity, "arguments must have the same size, got %d and %d", len(av), len(bv))
	}
	for i := range av {
		if av[i].IsError() {
			return nil, nil, propagate(av[i])
		}
		if bv[i].IsError() {
			return nil, nil, propagate(bv[i])
		}
		if av[i].IsEmptyText() || bv[i].IsEmptyText() {
			continue
		}
		x, okx := av[i].AsNumber()
		y, oky := bv[i].AsNumber()
		if !okx || !oky {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return xs, ys, nil
}

func argElements(a Arg) []Value {
	if a.IsRange() {
		return a.Seq
	}
	return []Value{a.Val}
}

func mean(nums []float64) float64 {
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums))
}

func sampleVariance(nums []float64) float64 {
	n := len(nums)
	if n < 2 {
		return math.NaN()
	}
	m := mean(nums)
	sum := 0.0
	for _, x := range nums {
		d := x - m
		sum += d * d
	}
	return sum / float64(n-1)
}

func populationVariance(nums []float64) float64 {
	n := len(nums)
	if n == 0 {
		return math.NaN()
	}
	m := mean(nums)
	sum := 0.0
	for _, x := range nums {
		d := x - m
		sum += d * d
	}
	return sum / float64(n)
}

func covariance(xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 {
		return math.NaN()
	}
	mx := mean(xs)
	my := mean(ys)
	sum := 0.0
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(n)
}

func centralMoment(nums []float64, k int) float64 {
	m := mean(nums)
	sum := 0.0
	for _, x := range nums {
		sum += math.Pow(x-m, float64(k))
	}
	return sum / float64(len(nums))
}

// percentile computes the linear-interpolation quantile spreadsheets use:
// the rank k*(n-1) interpolated between its sorted neighbors.
func percentile(nums []float64, k float64) float64 {
	if len(nums) == 0 || hasNaN(nums) {
		return math.NaN()
	}
	s := sortCopy(nums)
	if len(s) == 1 {
		return s[0]
	}
	h := k * float64(len(s)-1)
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return s[lo]
	}
	frac := h - float64(lo)
	return s[lo] + frac*(s[hi]-s[lo])
}

func sortCopy(nums []float64) []float64 {
	s := make([]float64, len(nums))
	copy(s, nums)
	sort.Float64s(s)
	return s
}

func hasNaN(nums []float64) bool {
	for _, n := range nums {
		if math.IsNaN(n) {
			return true
		}
	}
	return false
}
