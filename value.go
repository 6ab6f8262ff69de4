package optique

import (
	"context"
	"fmt"

	"github.com/dekarrin/optique/internal/depgraph"
)

// ValueParser is the C1 contract: parse a single token into a typed value,
// format it back out, optionally suggest completions for a prefix, and
// carry a non-empty metavar label for usage display.
type ValueParser[T any] interface {
	Parse(token string) Outcome[T]
	Format(value T) string
	Suggest(ctx context.Context, prefix string) Outcome[[]Suggestion]
	Metavar() string
	Mode() Mode
}

// SuggestionKind distinguishes a literal completion from a delegated file
// completion directive (spec.md §6 "Suggestion protocol").
type SuggestionKind int

const (
	SuggestLiteral SuggestionKind = iota
	SuggestFile
)

// FileSuggestionType narrows a SuggestFile suggestion.
type FileSuggestionType int

const (
	FileEither FileSuggestionType = iota
	FileOnly
	DirectoryOnly
)

// Suggestion is one shell-completion candidate.
type Suggestion struct {
	Kind        SuggestionKind
	Text        string
	Description string
	FileType    FileSuggestionType
	Extensions  []string
}

// NoSuggestions is a ready Outcome with no candidates, for value parsers
// that don't support completion.
func NoSuggestions() Outcome[[]Suggestion] {
	var none []Suggestion
	return Ready(none)
}

// Identity uniquely names a dependency source within the process (spec.md
// §3). It also carries the static Mode of the value parser it names, so a
// derived parser can compute its own Mode without re-invoking anything.
type Identity struct {
	id   depgraph.Identity
	mode Mode
}

// --- dependency source (C2 wrap-as-source) ---

type source[T any] struct {
	inner ValueParser[T]
	id    depgraph.Identity
}

// isSource tags source[T] as a dependency source. No code checks the tag;
// Dependency does not refuse to wrap a value parser that is already a
// source.
func (s *source[T]) isSource() {}

// Dependency wraps a value parser as a dependency source: a fresh, globally
// unique Identity is minted, and the combinator primitives that use the
// returned parser (option/argument) write every successful parse into the
// active registry under that Identity. p must not itself be a derived
// parser — "a derived parser is not itself a dependency source" (spec.md
// §3) is enforced here at construction time, matching the design note that
// this should be a structural, not duck-typed, check.
func Dependency[T any](p ValueParser[T]) (ValueParser[T], Identity) {
	if _, ok := p.(isDerivedMarker); ok {
		panic("optique: cannot wrap a derived value parser as a dependency source (no nesting)")
	}
	id := depgraph.NewIdentity()
	return &source[T]{inner: p, id: id}, Identity{id: id, mode: p.Mode()}
}

func (s *source[T]) Format(v T) string { return s.inner.Format(v) }
func (s *source[T]) Metavar() string   { return s.inner.Metavar() }
func (s *source[T]) Mode() Mode        { return s.inner.Mode() }

func (s *source[T]) Suggest(ctx context.Context, prefix string) Outcome[[]Suggestion] {
	return s.inner.Suggest(ctx, prefix)
}

func (s *source[T]) Parse(token string) Outcome[T] { return s.inner.Parse(token) }

func (s *source[T]) identity() depgraph.Identity { return s.id }

// isDerivedMarker is implemented only by *derived[T], for any T, so
// Dependency can refuse to wrap one without needing reflection.
type isDerivedMarker interface {
	isDerived()
}

// --- derived value parser (C2 derive) ---

// DeriveFactory builds a concrete ValueParser[T] from resolved source
// values, in the same order as the Identity list passed to Derive.
type DeriveFactory[T any] func(values []any) (ValueParser[T], error)

type derived[T any] struct {
	metavar  string
	sources  []depgraph.Identity
	factory  DeriveFactory[T]
	defaults func() []any
	mode     Mode
}

func (d *derived[T]) isDerived() {}

const modeAuto Mode = -1

// Derive returns a value parser whose parsing rule is chosen from the
// resolved values of sources. If the sources aren't all resolved yet when a
// token arrives, parsing yields a deferred parse state built from
// factory(defaults()) (spec.md §4.2). Mode is inferred once, at
// construction, as the union of the sources' modes and the Mode of the
// parser the factory produces from the default values; use DeriveSync /
// DeriveAsync to pin it explicitly instead.
func Derive[T any](metavar string, sources []Identity, factory DeriveFactory[T], defaults func() []any) ValueParser[T] {
	return newDerived(metavar, sources, factory, defaults, modeAuto)
}

// DeriveSync is Derive with the mode pinned to Sync.
func DeriveSync[T any](metavar string, sources []Identity, factory DeriveFactory[T], defaults func() []any) ValueParser[T] {
	return newDerived(metavar, sources, factory, defaults, Sync)
}

// DeriveAsync is Derive with the mode pinned to Async.
func DeriveAsync[T any](metavar string, sources []Identity, factory DeriveFactory[T], defaults func() []any) ValueParser[T] {
	return newDerived(metavar, sources, factory, defaults, Async)
}

func newDerived[T any](metavar string, sources []Identity, factory DeriveFactory[T], defaults func() []any, pinned Mode) *derived[T] {
	ids := make([]depgraph.Identity, len(sources))
	modes := make([]Mode, 0, len(sources)+1)
	for i, s := range sources {
		ids[i] = s.id
		modes = append(modes, s.mode)
	}

	mode := pinned
	if mode == modeAuto {
		mode = inferDerivedMode(factory, defaults, modes)
	}

	return &derived[T]{
		metavar:  metavar,
		sources:  ids,
		factory:  factory,
		defaults: defaults,
		mode:     mode,
	}
}

// inferDerivedMode probes the factory once, against the default values, to
// read the Mode of the parser it produces in that case — this is the one
// point at which "static" mode tracking requires actually calling user
// code, since nothing else reveals whether the factory's product is async.
// Any problem building the probe parser is treated conservatively as async.
func inferDerivedMode[T any](factory DeriveFactory[T], defaults func() []any, sourceModes []Mode) (mode Mode) {
	mode = combineModes(sourceModes...)
	if mode == Async {
		return Async
	}

	defer func() {
		if recover() != nil {
			mode = Async
		}
	}()
	vp, err := factory(defaults())
	if err != nil || vp == nil {
		return Async
	}
	return combineModes(mode, vp.Mode())
}

func (d *derived[T]) Metavar() string { return d.metavar }
func (d *derived[T]) Mode() Mode      { return d.mode }

// parseWithRegistry is the registry-aware entry point the option/argument
// primitives use for derived value parsers, instead of the plain Parse
// method below. It is what actually implements spec.md §4.2's "derive"
// operation.
func (d *derived[T]) parseWithRegistry(token string, reg *depgraph.Registry) (any, *depgraph.DeferredState, error) {
	spec := depgraph.DeriveSpec{
		Sources: d.sources,
		Factory: func(values []any) (depgraph.ParseFunc, error) {
			return factoryParseFunc(d.factory, values)
		},
		Defaults: d.defaults,
	}
	return depgraph.Parse(token, spec, reg)
}

func factoryParseFunc[T any](f DeriveFactory[T], values []any) (depgraph.ParseFunc, error) {
	vp, err := f(values)
	if err != nil {
		return nil, err
	}
	return func(token string) (any, error) {
		return vp.Parse(token).Await(context.Background())
	}, nil
}

// Parse satisfies ValueParser[T] so a derived parser can be passed wherever
// one is expected, but the engine itself never calls it directly — option
// and argument special-case *derived[T] via parseWithRegistry, since only
// that path can express "deferred". Called directly (e.g. a derived parser
// composed inside some other ValueParser), it has no registry to consult
// and so always behaves as if no sources are resolved yet.
func (d *derived[T]) Parse(token string) Outcome[T] {
	value, deferred, err := d.parseWithRegistry(token, depgraph.NewRegistry())
	if err != nil {
		return Failed[T](err)
	}
	if deferred != nil {
		if deferred.PrelimErr != nil {
			return Failed[T](deferred.PrelimErr)
		}
		v, _ := deferred.Preliminary.(T)
		return Ready(v)
	}
	v, _ := value.(T)
	return Ready(v)
}

func (d *derived[T]) Format(v T) string {
	vp, err := d.factory(d.defaults())
	if err != nil || vp == nil {
		return fmt.Sprint(v)
	}
	return vp.Format(v)
}

func (d *derived[T]) Suggest(ctx context.Context, prefix string) Outcome[[]Suggestion] {
	vp, err := d.factory(d.defaults())
	if err != nil || vp == nil {
		var none []Suggestion
		return Ready(none)
	}
	return vp.Suggest(ctx, prefix)
}
