package optique

import (
	"context"
	"strings"

	"github.com/dekarrin/optique/internal/depgraph"
)

// registryAwareParser is implemented by *derived[T]; option and argument use
// it to route a token through depgraph's deferred-parse machinery instead of
// ValueParser.Parse when the value parser passed in is a derived one.
type registryAwareParser interface {
	parseWithRegistry(token string, reg *depgraph.Registry) (any, *depgraph.DeferredState, error)
}

// sourceWriter is implemented by *source[T]; option and argument check for
// it so a successful parse gets recorded into the registry under its
// Identity (spec.md §3 "a dependency source publishes its parsed value").
type sourceWriter interface {
	identity() depgraph.Identity
}

func parseViaValueParser[T any](vp ValueParser[T], token string, reg *depgraph.Registry) (T, *depgraph.DeferredState, *Error) {
	if ra, ok := any(vp).(registryAwareParser); ok {
		v, deferred, err := ra.parseWithRegistry(token, reg)
		if err != nil {
			return *new(T), nil, toInvalidValue(token, err)
		}
		if deferred != nil {
			return *new(T), deferred, nil
		}
		tv, _ := v.(T)
		return tv, nil, nil
	}

	// Async value parsers are resolved here too: the combinator walk itself
	// stays synchronous, and it is ParseAsync that gives the caller a
	// non-blocking handle by running this whole walk on a goroutine behind a
	// Future (see driver.go) rather than by threading suspension through
	// every primitive's tryConsume/complete.
	outcome := vp.Parse(token)
	v, err := outcome.Await(context.Background())
	if err != nil {
		return *new(T), nil, toInvalidValue(token, err)
	}
	if sw, ok := any(vp).(sourceWriter); ok {
		reg.Set(sw.identity(), v)
	}
	return v, nil, nil
}

func toInvalidValue(token string, cause error) *Error {
	if e, ok := cause.(*Error); ok {
		return e
	}
	return wrapError(KindInvalidValue, cause, valueTerm(token))
}

// --- option ---

type optionNode[T any] struct {
	names   []string
	vp      ValueParser[T]
	desc    string
	group   string
}

// Option matches a named flag that takes a value, in either "--name value"
// or "--name=value" form (spec.md §4.1 "option"). Repeated use without
// wrapping in Multiple raises duplicate-option.
func Option[T any](vp ValueParser[T], names ...string) Parser[T] {
	return Parser[T]{node: &optionNode[T]{names: names, vp: vp}}
}

func (n *optionNode[T]) newState() runState { return &optionState[T]{node: n} }
func (n *optionNode[T]) mode() Mode         { return n.vp.Mode() }
func (n *optionNode[T]) usage() UsageEntry {
	return UsageEntry{Names: n.names, Metavar: n.vp.Metavar(), Description: n.desc, Group: n.group}
}

// Suggest delegates to the wrapped value parser, so Suggest (driver.go) can
// offer completions for this option's value without knowing T.
func (n *optionNode[T]) Suggest(ctx context.Context, prefix string) Outcome[[]Suggestion] {
	return n.vp.Suggest(ctx, prefix)
}

func (n *optionNode[T]) matchesName(tok string) (name string, inlineValue string, hasInline bool, ok bool) {
	for _, want := range n.names {
		if tok == want {
			return want, "", false, true
		}
		if prefix := want + "="; strings.HasPrefix(tok, prefix) {
			return want, tok[len(prefix):], true, true
		}
	}
	return "", "", false, false
}

type optionState[T any] struct {
	node        *optionNode[T]
	matched     bool
	value       T
	deferred    *depgraph.DeferredState
	errs        []*Error
}

func (s *optionState[T]) reusable() bool { return true }

func (s *optionState[T]) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	tok, ok := cur.peek()
	if !ok {
		return 0, false
	}
	name, inline, hasInline, matches := s.node.matchesName(tok)
	if !matches {
		return 0, false
	}

	if s.matched {
		s.errs = append(s.errs, NewError(KindDuplicateOption, optionNameTerm(name)))
		consumed := 1
		if !hasInline {
			consumed = 2
			if _, has := cur.peekAt(1); !has {
				consumed = 1
			}
		}
		cur.advance(consumed)
		return consumed, true
	}

	var valueTok string
	consumed := 1
	if hasInline {
		valueTok = inline
	} else {
		next, has := cur.peekAt(1)
		if !has {
			s.errs = append(s.errs, NewError(KindMissingValue, optionNameTerm(name), metavarTerm(s.node.vp.Metavar())))
			cur.advance(1)
			s.matched = true
			return 1, true
		}
		valueTok = next
		consumed = 2
	}

	v, deferred, perr := parseViaValueParser(s.node.vp, valueTok, reg)
	if perr != nil {
		s.errs = append(s.errs, perr)
	} else if deferred != nil {
		s.deferred = deferred
	} else {
		s.value = v
	}
	s.matched = true
	cur.advance(consumed)
	return consumed, true
}

func (s *optionState[T]) complete(reg *depgraph.Registry) completion {
	if len(s.errs) > 0 {
		return failedCompletion(s.errs...)
	}
	if !s.matched {
		name := ""
		if len(s.node.names) > 0 {
			name = s.node.names[0]
		}
		return failedCompletion(NewError(KindMissingArgument, optionNameTerm(name)))
	}
	if s.deferred != nil {
		v, err := depgraph.Resolve(s.deferred, reg)
		if err != nil {
			return failedCompletion(toInvalidValue(s.deferred.Token, err))
		}
		tv, _ := v.(T)
		return completed(tv)
	}
	return completed(s.value)
}

// --- flag ---

type flagNode struct {
	names []string
	desc  string
	group string
}

// Flag matches a presence-only switch (spec.md §4.1 "flag"): it never
// consumes a value token, and its completed value is simply whether it was
// seen at all.
func Flag(names ...string) Parser[bool] {
	return Parser[bool]{node: &flagNode{names: names}}
}

func (n *flagNode) newState() runState { return &flagState{node: n} }
func (n *flagNode) mode() Mode         { return Sync }
func (n *flagNode) usage() UsageEntry {
	return UsageEntry{Names: n.names, Description: n.desc, Group: n.group}
}

type flagState struct {
	node    *flagNode
	matched bool
	dup     bool
}

func (s *flagState) reusable() bool { return true }

func (s *flagState) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	tok, ok := cur.peek()
	if !ok {
		return 0, false
	}
	matchedName := ""
	for _, want := range s.node.names {
		if tok == want {
			matchedName = want
			break
		}
	}
	if matchedName == "" {
		return 0, false
	}
	if s.matched {
		s.dup = true
	}
	s.matched = true
	cur.advance(1)
	_ = matchedName
	return 1, true
}

func (s *flagState) complete(reg *depgraph.Registry) completion {
	if s.dup {
		return failedCompletion(NewError(KindDuplicateOption, optionNameTerm(s.node.names[0])))
	}
	return completed(s.matched)
}

// --- argument ---

type argumentNode[T any] struct {
	vp      ValueParser[T]
	desc    string
}

// Argument matches a single required positional token (spec.md §4.1
// "argument"). Missing at completion time raises missing-argument.
func Argument[T any](vp ValueParser[T]) Parser[T] {
	return Parser[T]{node: &argumentNode[T]{vp: vp}}
}

func (n *argumentNode[T]) newState() runState { return &argumentState[T]{node: n} }
func (n *argumentNode[T]) mode() Mode         { return n.vp.Mode() }
func (n *argumentNode[T]) usage() UsageEntry {
	return UsageEntry{Metavar: n.vp.Metavar(), Description: n.desc}
}

// Suggest delegates to the wrapped value parser.
func (n *argumentNode[T]) Suggest(ctx context.Context, prefix string) Outcome[[]Suggestion] {
	return n.vp.Suggest(ctx, prefix)
}

type argumentState[T any] struct {
	node     *argumentNode[T]
	matched  bool
	value    T
	deferred *depgraph.DeferredState
	err      *Error
}

func (s *argumentState[T]) reusable() bool { return false }

func (s *argumentState[T]) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	if s.matched {
		return 0, false
	}
	tok, ok := cur.peek()
	if !ok {
		return 0, false
	}
	if strings.HasPrefix(tok, "--") && tok != "--" {
		return 0, false
	}

	v, deferred, perr := parseViaValueParser(s.node.vp, tok, reg)
	s.matched = true
	cur.advance(1)
	if perr != nil {
		s.err = perr
	} else if deferred != nil {
		s.deferred = deferred
	} else {
		s.value = v
	}
	return 1, true
}

func (s *argumentState[T]) complete(reg *depgraph.Registry) completion {
	if !s.matched {
		return failedCompletion(NewError(KindMissingArgument, metavarTerm(s.node.vp.Metavar())))
	}
	if s.err != nil {
		return failedCompletion(s.err)
	}
	if s.deferred != nil {
		v, err := depgraph.Resolve(s.deferred, reg)
		if err != nil {
			return failedCompletion(toInvalidValue(s.deferred.Token, err))
		}
		tv, _ := v.(T)
		return completed(tv)
	}
	return completed(s.value)
}

// --- constant ---

type constantNode[T any] struct {
	literal string
	value   T
}

// Constant matches one fixed literal token and always completes to the
// same associated value (spec.md §4.1 "constant"); it is the building block
// behind command dispatch inside Or.
func Constant[T any](literal string, value T) Parser[T] {
	return Parser[T]{node: &constantNode[T]{literal: literal, value: value}}
}

func (n *constantNode[T]) newState() runState { return &constantState[T]{node: n} }
func (n *constantNode[T]) mode() Mode         { return Sync }
func (n *constantNode[T]) usage() UsageEntry  { return UsageEntry{Names: []string{n.literal}} }

type constantState[T any] struct {
	node    *constantNode[T]
	matched bool
}

func (s *constantState[T]) reusable() bool { return false }

func (s *constantState[T]) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	if s.matched {
		return 0, false
	}
	tok, ok := cur.peek()
	if !ok || tok != s.node.literal {
		return 0, false
	}
	s.matched = true
	cur.advance(1)
	return 1, true
}

func (s *constantState[T]) complete(reg *depgraph.Registry) completion {
	if !s.matched {
		return failedCompletion(NewError(KindMissingArgument, text(s.node.literal)))
	}
	return completed(s.node.value)
}

// --- command ---

// Command is Constant's natural partner for bare subcommand dispatch (no
// nested grammar of its own) — since a literal and its dispatched value are
// exactly what Constant already provides, this form is defined as an alias
// rather than a second type. Use Subcommand when the matched literal should
// delegate the rest of the cursor to an inner parser.
func Command(literal string) Parser[string] {
	return Constant(literal, literal)
}

type subcommandNode[T any] struct {
	name  string
	inner parserNode
}

// Subcommand matches a literal token and then delegates the remainder of
// the cursor to inner (spec.md §4.3 "command(name, inner)"): "matches a
// literal subcommand token, then delegates the remainder of the cursor to
// inner." Unlike Command, it carries inner's shape through to the result.
// A token present but not equal to name is an unknown-command error rather
// than a missing one; this only matters when Subcommand is reached at all —
// dispatch among several subcommands is ordinarily done with Or, which
// already picks whichever sibling's literal matched.
func Subcommand[T any](name string, inner Parser[T]) Parser[T] {
	return Parser[T]{node: &subcommandNode[T]{name: name, inner: inner.node}}
}

func (n *subcommandNode[T]) newState() runState { return &subcommandState[T]{node: n} }
func (n *subcommandNode[T]) mode() Mode         { return n.inner.mode() }
func (n *subcommandNode[T]) children() []parserNode {
	return []parserNode{n.inner}
}
func (n *subcommandNode[T]) usage() UsageEntry {
	entry := n.inner.usage()
	entry.Names = append([]string{n.name}, entry.Names...)
	return entry
}

type subcommandState[T any] struct {
	node     *subcommandNode[T]
	matched  bool
	sawToken bool
	delegate runState
}

func (s *subcommandState[T]) reusable() bool { return false }

func (s *subcommandState[T]) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	if s.delegate != nil {
		return s.delegate.tryConsume(cur, reg)
	}
	if s.matched {
		return 0, false
	}
	tok, ok := cur.peek()
	if !ok {
		return 0, false
	}
	if tok != s.node.name {
		s.sawToken = true
		return 0, false
	}
	s.matched = true
	cur.advance(1)
	s.delegate = s.node.inner.newState()
	more, _ := s.delegate.tryConsume(cur, reg)
	return 1 + more, true
}

func (s *subcommandState[T]) complete(reg *depgraph.Registry) completion {
	if !s.matched {
		if s.sawToken {
			return failedCompletion(NewError(KindUnknownCommand, text(s.node.name)))
		}
		return failedCompletion(NewError(KindMissingArgument, text(s.node.name)))
	}
	return s.delegate.complete(reg)
}

// --- passthrough ---

// PassthroughFormat selects passthrough's collection discipline (spec.md
// §4.1 "passthrough({format: "greedy"|"equalsOnly"})").
type PassthroughFormat int

const (
	// FormatGreedy claims the whole "--"-terminated tail verbatim.
	FormatGreedy PassthroughFormat = iota
	// FormatEqualsOnly collects unknown "--name=value" tokens interleaved
	// with the rest of the grammar; a "--" terminator is not required
	// (spec.md §6).
	FormatEqualsOnly
)

type passthroughNode struct {
	format PassthroughFormat
}

// Passthrough claims the entire "--"-terminated tail of the input verbatim,
// the "greedy" form of spec.md §4.1 "passthrough". It always succeeds, with
// an empty slice if there was no tail.
func Passthrough() Parser[[]string] {
	return Parser[[]string]{node: &passthroughNode{format: FormatGreedy}}
}

// PassthroughEqualsOnly collects any "--name=value"-shaped token that no
// earlier sibling claims, without requiring a "--" terminator (spec.md §4.1,
// §6 "-- is not required"). It must be declared after the options whose
// names it should defer to: drain (constructs.go) offers every child one
// turn per round in declaration order, so an option listed earlier always
// gets first refusal at a token before this one ever sees it.
func PassthroughEqualsOnly() Parser[[]string] {
	return Parser[[]string]{node: &passthroughNode{format: FormatEqualsOnly}}
}

func (n *passthroughNode) newState() runState { return &passthroughState{node: n} }
func (n *passthroughNode) mode() Mode         { return Sync }
func (n *passthroughNode) usage() UsageEntry  { return UsageEntry{Metavar: "-- ARGS..."} }

type passthroughState struct {
	node     *passthroughNode
	captured bool
	value    []string
}

func (s *passthroughState) reusable() bool { return s.node.format == FormatEqualsOnly }

func (s *passthroughState) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	if s.node.format == FormatEqualsOnly {
		tok, ok := cur.peek()
		if !ok || !isUnknownEqualsForm(tok) {
			return 0, false
		}
		s.value = append(s.value, tok)
		cur.advance(1)
		return 1, true
	}

	// Greedy form: cur.tail is only ever non-empty on the first visit. drain
	// (constructs.go) re-invokes every child once more after the round that
	// actually makes progress, so without this guard a nested passthrough
	// would see cur.tail already nil'd and clobber s.value back to nil.
	if s.captured {
		return 0, false
	}
	s.captured = true
	s.value = append([]string(nil), cur.tail...)
	cur.tail = nil
	return 0, true
}

func isUnknownEqualsForm(tok string) bool {
	if !strings.HasPrefix(tok, "--") {
		return false
	}
	return strings.Contains(tok[2:], "=")
}

func (s *passthroughState) complete(reg *depgraph.Registry) completion {
	return completed(s.value)
}
