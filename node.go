package optique

import "github.com/dekarrin/optique/internal/depgraph"

// parserNode is the internal, type-erased half of the combinator protocol
// (spec.md §4.3). The tree of parserNodes is immutable and freely shared
// across runs; newState produces the mutable per-run half (spec.md §3
// "Lifecycle").
type parserNode interface {
	newState() runState
	usage() UsageEntry
	mode() Mode
}

// runState is the per-run mutable half of one parser.
type runState interface {
	// tryConsume attempts to match at the cursor's current position. It
	// reports how many tokens were consumed and whether it matched at all.
	tryConsume(cur *cursor, reg *depgraph.Registry) (consumed int, matched bool)

	// complete finalizes this node's state into a value or a list of
	// errors. It must only be called after the owning pass has finished
	// walking every token.
	complete(reg *depgraph.Registry) completion

	// reusable reports whether this state can match again after it has
	// already matched once. Options and flags are reusable (they detect
	// repetition themselves and raise duplicate-option); positional
	// arguments, constants, commands, and greedy passthrough are not. drain
	// (constructs.go) does not consult it: it offers every child a turn each
	// round, and a non-reusable state refuses further tokens on its own.
	reusable() bool
}

// completion is the result of finalizing one parser's state: a value, or
// one or more accumulated errors (spec.md §9 design note: the source's
// Success/Failure/Deferred sentinel is lifted into the result type, not
// signaled out of band).
type completion struct {
	value any
	errs  []*Error
}

func completed(v any) completion                 { return completion{value: v} }
func failedCompletion(errs ...*Error) completion  { return completion{errs: errs} }
func (c completion) ok() bool                     { return len(c.errs) == 0 }

// Parser is the public, statically-typed handle onto a parser tree. It
// wraps an internal parserNode so that objects, tuples, and alternations
// can hold children of differing value types without a reflection-based
// dispatch layer; Parser[T] itself is what gives each position in the tree
// back its concrete Go type.
type Parser[T any] struct {
	node parserNode
}

// Mode reports whether this parser (or any parser nested within it) can
// suspend during parsing.
func (p Parser[T]) Mode() Mode { return p.node.mode() }
