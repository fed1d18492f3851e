package tabular

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
)

// Arg is one evaluated function argument. Range arguments arrive with Seq
// holding the element values in row-major order; scalar arguments carry
// Val with Seq nil.
type Arg struct {
	Val Value
	Seq []Value
}

// IsRange reports whether the argument was written as a range.
func (a Arg) IsRange() bool { return a.Seq != nil }

// Callable is the signature external functions register. Range arguments
// are flattened before the call, so implementations only ever see scalar
// values. A returned error or a panic becomes a plugin error confined to
// the calling cell.
type Callable func(args []Value) (Value, error)

// Impl is the internal signature builtins use. It keeps range structure,
// letting aggregates treat range elements more leniently than scalars.
type Impl func(env *Env, args []Arg) (Value, error)

// Env carries ambient services for function implementations. Tests swap
// Rand for a fixed source to pin down RAND-dependent results.
type Env struct {
	Rand func() float64
}

// Function is one callable entry in the registry. MaxArgs -1 means
// variadic.
type Function struct {
	Name    string
	MinArgs int
	MaxArgs int
	impl    Impl
}

func (f *Function) arityText() string {
	switch {
	case f.MaxArgs == -1 && f.MinArgs == 0:
		return "any number of arguments"
	case f.MaxArgs == -1:
		return fmt.Sprintf("at least %d argument(s)", f.MinArgs)
	case f.MinArgs == f.MaxArgs:
		return fmt.Sprintf("exactly %d argument(s)", f.MinArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", f.MinArgs, f.MaxArgs)
	}
}

// Registry maps function names to implementations. Lookup is
// case-insensitive and all builtins are installed on construction.
// Registering an existing name replaces it, so external functions may
// override builtins. Register between calculate passes, never during one.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]*Function
	env   Env
}

// NewRegistry creates a registry with the builtin function set installed.
func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]*Function),
		env:   Env{Rand: rand.Float64},
	}
	registerMathFunctions(r)
	registerStatFunctions(r)
	registerLogicFunctions(r)
	registerTextFunctions(r)
	return r
}

// SetRand replaces the random source used by RAND().
func (r *Registry) SetRand(f func() float64) {
	r.mu.Lock()
	r.env.Rand = f
	r.mu.Unlock()
}

// register installs a builtin under its canonical name.
func (r *Registry) register(name string, minArgs, maxArgs int, impl Impl) {
	key := strings.ToUpper(name)
	r.mu.Lock()
	r.funcs[key] = &Function{Name: key, MinArgs: minArgs, MaxArgs: maxArgs, impl: impl}
	r.mu.Unlock()
}

// alias installs additional lookup names for an already registered
// function.
func (r *Registry) alias(canonical string, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.funcs[strings.ToUpper(canonical)]
	if !ok {
		return
	}
	for _, name := range names {
		r.funcs[strings.ToUpper(name)] = fn
	}
}

// Register makes fn callable from formulas under the given name,
// replacing any builtin or previously registered function of that name.
// Names are case-insensitive and must be a letter or underscore followed
// by letters, digits or underscores. minArgs and maxArgs bound the
// call-site argument count, maxArgs -1 for variadic; a range counts as
// one argument at the call site and is flattened into its element values
// before fn runs.
func (r *Registry) Register(name string, minArgs, maxArgs int, fn Callable) error {
	if !validFuncName(name) {
		return fmt.Errorf("invalid function name %q", name)
	}
	if minArgs < 0 || (maxArgs != -1 && maxArgs < minArgs) {
		return fmt.Errorf("invalid arity bounds %d..%d for %q", minArgs, maxArgs, name)
	}
	if fn == nil {
		return fmt.Errorf("nil implementation for %q", name)
	}
	r.register(name, minArgs, maxArgs, func(env *Env, args []Arg) (Value, error) {
		return fn(Flatten(args))
	})
	return nil
}

// Unregister removes a function by name. Removing a builtin is allowed;
// it simply becomes unknown to formulas afterwards.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	delete(r.funcs, strings.ToUpper(name))
	r.mu.Unlock()
}

// Lookup finds a function by name, case-insensitively.
func (r *Registry) Lookup(name string) (*Function, bool) {
	r.mu.RLock()
	fn, ok := r.funcs[strings.ToUpper(name)]
	r.mu.RUnlock()
	return fn, ok
}

// Names returns all registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Call invokes a function with evaluated arguments. Unknown names and
// argument-count violations are reported here; panics inside
// implementations are contained and surface as plugin errors.
func (r *Registry) Call(name string, args []Arg) (v Value, err error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return Value{}, &CalcError{
			Kind:   ErrParse,
			Detail: fmt.Sprintf("unknown function %q", name),
			Err:    ErrUnknownFunction,
		}
	}
	if len(args) < fn.MinArgs || (fn.MaxArgs != -1 && len(args) > fn.MaxArgs) {
		return Value{}, NewCalcError(ErrArity, "%s expects %s, got %d", fn.Name, fn.arityText(), len(args))
	}

	defer func() {
		if rec := recover(); rec != nil {
			v = Value{}
			err = NewCalcError(ErrPlugin, "%s panicked: %v", fn.Name, rec)
		}
	}()

	r.mu.RLock()
	env := r.env
	r.mu.RUnlock()
	return fn.impl(&env, args)
}

// Flatten expands range arguments into their element values in row-major
// order, keeping scalar arguments in place.
func Flatten(args []Arg) []Value {
	out := make([]Value, 0, len(args))
	for _, a := range args {
		if a.IsRange() {
			out = append(out, a.Seq...)
		} else {
			out = append(out, a.Val)
		}
	}
	return out
}

func validFuncName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isLetter(c) || c == '_' {
			continue
		}
		if i > 0 && isDigit(c) {
			continue
		}
		return false
	}
	return true
}
