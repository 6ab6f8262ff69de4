package depgraph

import "fmt"

// ParseFunc is the type-erased parse rule of a concrete value parser that a
// derived parser's factory has produced: given a raw token, it returns the
// parsed value or an error.
type ParseFunc func(token string) (any, error)

// Factory builds a ParseFunc from resolved source values, in the same order
// as DeriveSpec.Sources.
type Factory func(values []any) (ParseFunc, error)

// DeriveSpec bundles everything a derived parser needs to resolve: which
// sources it requires, how to build a concrete parser once they're known,
// and what to fall back to while they aren't (spec.md §3 "Derived value
// parser").
type DeriveSpec struct {
	Sources  []Identity
	Factory  Factory
	Defaults func() []any
}

// DeferredState is a provisional parse outcome awaiting resolution of its
// sources (spec.md §3 "Deferred parse state"). It carries everything needed
// to redo the parse once the real values are known: the raw token, the
// derive spec, and the preliminary result obtained against the defaults.
type DeferredState struct {
	Token       string
	Spec        DeriveSpec
	Preliminary any
	PrelimErr   error
}

// FactoryError wraps a panic or error raised while a derived parser's
// factory built its concrete parser (spec.md §7 `factory-error`). Factories
// are never allowed to propagate a panic out of this package.
type FactoryError struct {
	Cause error
}

func (e *FactoryError) Error() string { return "factory error: " + e.Cause.Error() }
func (e *FactoryError) Unwrap() error { return e.Cause }

// Parse runs a derived parser's parse rule (spec.md §4.2 "derive"). If every
// identity in spec.Sources is already resolved in reg, the concrete parser
// is built from the actual values and the token is parsed immediately — no
// deferred state results. Otherwise a preliminary parser is built from
// spec.Defaults() and a DeferredState is returned alongside it, carrying a
// preliminary result the caller may use until the state is resolved.
func Parse(token string, spec DeriveSpec, reg *Registry) (value any, deferred *DeferredState, err error) {
	if reg.HasAll(spec.Sources) {
		v, perr := runFactory(token, spec.Factory, reg.Values(spec.Sources))
		return v, nil, perr
	}

	prelimValue, prelimErr := runFactory(token, spec.Factory, spec.Defaults())
	return nil, &DeferredState{
		Token:       token,
		Spec:        spec,
		Preliminary: prelimValue,
		PrelimErr:   prelimErr,
	}, nil
}

// Resolve re-parses a deferred state's raw token against the concrete
// parser built from the now-current registry. If a required source is
// still missing, the preliminary result stands (spec.md §4.2
// "resolve-deferred": "if any source is missing, return the preliminary
// result. Never panic.").
func Resolve(d *DeferredState, reg *Registry) (any, error) {
	if !reg.HasAll(d.Spec.Sources) {
		return d.Preliminary, d.PrelimErr
	}
	return runFactory(d.Token, d.Spec.Factory, reg.Values(d.Spec.Sources))
}

func runFactory(token string, factory Factory, values []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, &FactoryError{Cause: fmt.Errorf("%v", r)}
		}
	}()

	parse, ferr := factory(values)
	if ferr != nil {
		return nil, &FactoryError{Cause: ferr}
	}
	return parse(token)
}
