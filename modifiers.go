package optique

import "github.com/dekarrin/optique/internal/depgraph"

// --- optional ---

type optionalNode[T any] struct {
	inner parserNode
}

// Optional makes a missing-argument from inner a non-error: its completed
// value is the zero value of T instead (spec.md §4.4 "optional"). It is
// transparent to dependency identity — a source wrapped deeper inside inner
// still publishes to the registry exactly as if Optional were not there.
func Optional[T any](inner Parser[T]) Parser[T] {
	return Parser[T]{node: &optionalNode[T]{inner: inner.node}}
}

func (n *optionalNode[T]) newState() runState { return &optionalState[T]{inner: n.inner.newState()} }
func (n *optionalNode[T]) mode() Mode            { return n.inner.mode() }
func (n *optionalNode[T]) children() []parserNode { return []parserNode{n.inner} }
func (n *optionalNode[T]) usage() UsageEntry {
	entry := n.inner.usage()
	entry.DefaultHint = "optional"
	return entry
}

type optionalState[T any] struct {
	inner runState
}

func (s *optionalState[T]) reusable() bool { return s.inner.reusable() }

func (s *optionalState[T]) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	return s.inner.tryConsume(cur, reg)
}

func (s *optionalState[T]) complete(reg *depgraph.Registry) completion {
	comp := s.inner.complete(reg)
	if comp.ok() {
		return comp
	}
	for _, e := range comp.errs {
		if e.Kind != KindMissingArgument {
			return comp
		}
	}
	var zero T
	return completed(zero)
}

// --- withDefault ---

type withDefaultNode[T any] struct {
	inner        parserNode
	fallback     T
}

// WithDefault is like Optional, but the completed value when inner is
// absent is def rather than T's zero value (spec.md §4.4 "withDefault").
// When inner is an option or argument over a dependency source, def is also
// recorded in the registry under that source's Identity (unless a value is
// already there), so a Derive sourced from it sees def when inner was never
// matched; Optional(WithDefault(p, def)) keeps this behavior. WithDefault
// over Optional(p) does not: Optional already completes with T's zero
// value, so WithDefault returns that zero value, never def, and records
// nothing in the registry.
func WithDefault[T any](inner Parser[T], def T) Parser[T] {
	return Parser[T]{node: &withDefaultNode[T]{inner: inner.node, fallback: def}}
}

func (n *withDefaultNode[T]) newState() runState {
	return &withDefaultState[T]{node: n, inner: n.inner.newState()}
}
func (n *withDefaultNode[T]) mode() Mode            { return n.inner.mode() }
func (n *withDefaultNode[T]) children() []parserNode { return []parserNode{n.inner} }
func (n *withDefaultNode[T]) usage() UsageEntry {
	entry := n.inner.usage()
	entry.DefaultHint = "default"
	return entry
}

type withDefaultState[T any] struct {
	node  *withDefaultNode[T]
	inner runState
}

func (s *withDefaultState[T]) reusable() bool { return s.inner.reusable() }

func (s *withDefaultState[T]) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	return s.inner.tryConsume(cur, reg)
}

func (s *withDefaultState[T]) complete(reg *depgraph.Registry) completion {
	comp := s.inner.complete(reg)
	if comp.ok() {
		return comp
	}
	for _, e := range comp.errs {
		if e.Kind != KindMissingArgument {
			return comp
		}
	}
	if sw, ok := s.node.inner.(sourceNodeIdentity); ok {
		id := sw.sourceIdentity()
		if _, has := reg.Get(id); !has {
			reg.Set(id, s.node.fallback)
		}
	}
	return completed(s.node.fallback)
}

// --- multiple ---

type multipleNode struct {
	item parserNode
}

// Multiple allows inner to match any number of times — zero or more — and
// collects each occurrence's completed value, in the order seen, into a
// []any (spec.md §4.4 "multiple"). Each occurrence gets its own fresh inner
// run state, so inner itself never needs to know it is being repeated, and
// the ordinary duplicate-option detection inside a bare Option never fires
// for an Option wrapped in Multiple.
func Multiple(item Parser[any]) Parser[[]any] {
	return Parser[[]any]{node: &multipleNode{item: item.node}}
}

func (n *multipleNode) newState() runState { return &multipleState{node: n} }
func (n *multipleNode) mode() Mode            { return n.item.mode() }
func (n *multipleNode) children() []parserNode { return []parserNode{n.item} }
func (n *multipleNode) usage() UsageEntry {
	entry := n.item.usage()
	entry.DefaultHint = "repeatable"
	return entry
}

type multipleState struct {
	node       *multipleNode
	occurrence runState
	results    []completion
}

func (s *multipleState) reusable() bool { return true }

func (s *multipleState) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	total := 0
	for {
		occ := s.node.item.newState()
		c, matched := occ.tryConsume(cur, reg)
		if !matched || c == 0 {
			break
		}
		total += c
		s.results = append(s.results, occ.complete(reg))
	}
	return total, total > 0
}

func (s *multipleState) complete(reg *depgraph.Registry) completion {
	values := make([]any, 0, len(s.results))
	var errs []*Error
	for _, comp := range s.results {
		if !comp.ok() {
			errs = append(errs, comp.errs...)
			continue
		}
		values = append(values, comp.value)
	}
	if len(errs) > 0 {
		return failedCompletion(errs...)
	}
	return completed(values)
}

// --- map ---

type mapNode[A, B any] struct {
	inner parserNode
	fn    func(A) (B, error)
}

// Map transforms inner's completed value with fn (spec.md §4.4 "map"). An
// error from fn surfaces as an invalid-value completion error rather than a
// panic.
func Map[A, B any](inner Parser[A], fn func(A) (B, error)) Parser[B] {
	return Parser[B]{node: &mapNode[A, B]{inner: inner.node, fn: fn}}
}

func (n *mapNode[A, B]) newState() runState { return &mapState[A, B]{node: n, inner: n.inner.newState()} }
func (n *mapNode[A, B]) mode() Mode            { return n.inner.mode() }
func (n *mapNode[A, B]) children() []parserNode { return []parserNode{n.inner} }
func (n *mapNode[A, B]) usage() UsageEntry  { return n.inner.usage() }

type mapState[A, B any] struct {
	node  *mapNode[A, B]
	inner runState
}

func (s *mapState[A, B]) reusable() bool { return s.inner.reusable() }

func (s *mapState[A, B]) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	return s.inner.tryConsume(cur, reg)
}

func (s *mapState[A, B]) complete(reg *depgraph.Registry) completion {
	comp := s.inner.complete(reg)
	if !comp.ok() {
		return comp
	}
	a, _ := comp.value.(A)
	b, err := s.node.fn(a)
	if err != nil {
		return failedCompletion(toInvalidValue("", err))
	}
	return completed(b)
}
