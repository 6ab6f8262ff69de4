package optique

import (
	"context"

	"github.com/dekarrin/optique/internal/depgraph"
	"golang.org/x/sync/errgroup"
)

// Parse runs p synchronously against tokens (spec.md §5 "Parse"). It
// refuses outright if p.Mode() is Async, since a synchronous driver has no
// way to honor a suspension it might hit partway through — use ParseAsync
// instead.
func Parse[T any](p Parser[T], tokens []string) (T, error) {
	var zero T
	if p.Mode() == Async {
		return zero, NewError(KindFactoryError, text("parser requires ParseAsync: it contains an async value parser"))
	}
	return runPass(p, tokens)
}

// ParseAsync runs p on a goroutine and returns a Future the caller can
// Await, so a caller driving an async value parser (one that performs I/O,
// e.g. validating a value against a network service) never blocks the
// calling goroutine outright (spec.md §5 "ParseAsync"). The combinator walk
// itself still proceeds synchronously inside that goroutine; see the note
// on parseViaValueParser in primitives.go for why that is an acceptable
// simplification here.
func ParseAsync[T any](ctx context.Context, p Parser[T], tokens []string) Outcome[T] {
	future, resolve := NewFuture[T]()
	go func() {
		v, err := runPass(p, tokens)
		resolve(v, err)
	}()
	return Pending(future)
}

func runPass[T any](p Parser[T], tokens []string) (T, error) {
	var zero T
	cur := newCursor(tokens)
	reg := depgraph.NewRegistry()
	state := p.node.newState()

	for {
		c, matched := state.tryConsume(cur, reg)
		if !matched || c == 0 {
			break
		}
	}

	comp := state.complete(reg)
	errs := append([]*Error(nil), comp.errs...)
	if leftover := unknownOptionOrExcess(cur); leftover != nil && cur.remaining() > 0 {
		errs = append(errs, leftover)
	}
	if len(errs) > 0 {
		return zero, Errors(errs)
	}
	v, _ := comp.value.(T)
	return v, nil
}

// Suggest computes shell-completion candidates for the token currently
// being typed (spec.md §5 "Suggest"). It replays tokens[:len(tokens)-1],
// then asks every option and argument in the parser tree for suggestions
// for the last token, awaiting any async ones concurrently. The replayed
// state does not narrow the candidates: parsers that could no longer match
// at that position are asked too.
func Suggest[T any](ctx context.Context, p Parser[T], tokens []string) Outcome[[]Suggestion] {
	future, resolve := NewFuture[[]Suggestion]()
	go func() {
		v, err := collectSuggestions(ctx, p, tokens)
		resolve(v, err)
	}()
	return Pending(future)
}

func collectSuggestions[T any](ctx context.Context, p Parser[T], tokens []string) ([]Suggestion, error) {
	prefix := ""
	history := tokens
	if len(tokens) > 0 {
		prefix = tokens[len(tokens)-1]
		history = tokens[:len(tokens)-1]
	}

	cur := newCursor(history)
	reg := depgraph.NewRegistry()
	state := p.node.newState()
	for {
		c, matched := state.tryConsume(cur, reg)
		if !matched || c == 0 {
			break
		}
	}

	sources := collectSuggestSources(p.node)
	results := make([][]Suggestion, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			out := src.Suggest(gctx, prefix)
			v, err := out.Await(gctx)
			if err != nil {
				return nil
			}
			results[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Suggestion
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}

// suggestSource is implemented by any node that can offer completions for
// its own token position: option and argument delegate it to their wrapped
// ValueParser.
type suggestSource interface {
	Suggest(ctx context.Context, prefix string) Outcome[[]Suggestion]
}

// treeChildren is implemented by every composite node (object, tuple, or,
// longestMatch, concat, merge, group, and the single-child modifiers) so
// collectSuggestSources can walk the whole tree without a type switch over
// every construct.
type treeChildren interface {
	children() []parserNode
}

func collectSuggestSources(n parserNode) []suggestSource {
	var out []suggestSource
	if s, ok := n.(suggestSource); ok {
		out = append(out, s)
	}
	if tc, ok := n.(treeChildren); ok {
		for _, child := range tc.children() {
			out = append(out, collectSuggestSources(child)...)
		}
	}
	return out
}
