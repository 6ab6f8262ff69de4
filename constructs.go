package optique

import (
	"strings"

	"github.com/dekarrin/optique/internal/depgraph"
	"github.com/dekarrin/optique/internal/idset"
)

// Any erases a Parser[T]'s static type so differently-typed parsers can
// share one Tuple or Group; read each position back out of the resulting
// []any with a type assertion, the same way Get does for Object fields.
func Any[T any](p Parser[T]) Parser[any] {
	return Parser[any]{node: p.node}
}

// erase discards T's static type, keeping only the internal node. object,
// tuple, and friends are implemented against parserNode directly so they can
// hold children of differing T without a single generic type parameter
// covering all of them.
func erase[T any](p Parser[T]) parserNode { return p.node }

// drain repeatedly offers tryConsume to every child, in declaration order,
// until a full round makes no further progress. This is the shared
// "interleaved options and positionals" loop behind object, tuple, and
// group: a child need not be exhausted on its first opportunity, since a
// later round (after a sibling consumes tokens ahead of it) may let it
// match again.
func drain(children []runState, cur *cursor, reg *depgraph.Registry) int {
	total := 0
	for {
		progressed := 0
		for _, child := range children {
			c, _ := child.tryConsume(cur, reg)
			progressed += c
		}
		total += progressed
		if progressed == 0 {
			break
		}
	}
	return total
}

// unknownOptionOrExcess builds the error for whatever the top-level pass
// (runPass in driver.go) left unconsumed.
func unknownOptionOrExcess(cur *cursor) *Error {
	tok, ok := cur.peek()
	if !ok {
		return nil
	}
	if strings.HasPrefix(tok, "-") {
		return NewError(KindUnknownOption, optionNameTerm(tok))
	}
	return NewError(KindUnknownOption, text("unexpected argument"), valueTerm(tok))
}

// --- object ---

// Field names one child of an Object by the key its value is stored under
// in the resulting map.
type Field struct {
	name string
	node parserNode
}

// F builds one Object field, erasing p's static type; the name given here
// is the key Get reads back out of the completed map[string]any.
func F[T any](name string, p Parser[T]) Field {
	return Field{name: name, node: p.node}
}

// Get reads a typed field back out of an Object's result map (spec.md §4.3
// "object"). It panics if name is absent or the stored value is not a T —
// both are programmer errors, since the Fields that built the Object are
// known statically at the call site.
func Get[T any](m map[string]any, name string) T {
	v, ok := m[name]
	if !ok {
		panic("optique: no such object field: " + name)
	}
	tv, ok := v.(T)
	if !ok {
		panic("optique: object field " + name + " is not of the requested type")
	}
	return tv
}

type objectNode struct {
	fields []Field
}

// Object combines named children into a single map-valued parser (spec.md
// §4.3 "object"). Children may be matched in any order and interleaved with
// each other on the command line; duplicate writes to the same dependency
// Identity across two fields raise duplicate-dependency.
func Object(fields ...Field) Parser[map[string]any] {
	return Parser[map[string]any]{node: &objectNode{fields: fields}}
}

func (n *objectNode) newState() runState {
	children := make([]runState, len(n.fields))
	for i, f := range n.fields {
		children[i] = f.node.newState()
	}
	return &objectState{node: n, children: children}
}

func (n *objectNode) mode() Mode {
	modes := make([]Mode, len(n.fields))
	for i, f := range n.fields {
		modes[i] = f.node.mode()
	}
	return combineModes(modes...)
}

func (n *objectNode) children() []parserNode {
	out := make([]parserNode, len(n.fields))
	for i, f := range n.fields {
		out[i] = f.node
	}
	return out
}

func (n *objectNode) usage() UsageEntry {
	entry := UsageEntry{}
	for _, f := range n.fields {
		child := f.node.usage()
		child.Description = f.name + ": " + child.Description
		entry.Children = append(entry.Children, child)
	}
	return entry
}

type objectState struct {
	node     *objectNode
	children []runState
}

func (s *objectState) reusable() bool { return true }

func (s *objectState) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	c := drain(s.children, cur, reg)
	return c, c > 0
}

func (s *objectState) complete(reg *depgraph.Registry) completion {
	result := make(map[string]any, len(s.children))
	var errs []*Error
	seen := idset.New[depgraph.Identity]()
	names := make(map[depgraph.Identity]string, len(s.children))
	for i, child := range s.children {
		comp := child.complete(reg)
		if !comp.ok() {
			errs = append(errs, comp.errs...)
			continue
		}
		result[s.node.fields[i].name] = comp.value
		if sw, ok := s.node.fields[i].node.(sourceNodeIdentity); ok && sw.sourceIdentity() != (depgraph.Identity{}) {
			id := sw.sourceIdentity()
			if seen.Has(id) {
				errs = append(errs, NewError(KindDuplicateDependency, text(names[id]), text(s.node.fields[i].name)))
			} else {
				seen.Add(id)
				names[id] = s.node.fields[i].name
			}
		}
	}
	if len(errs) > 0 {
		return failedCompletion(errs...)
	}
	return completed(result)
}

// sourceNodeIdentity is implemented by option and argument nodes; it
// returns the Identity of the wrapped *source[T], or the zero Identity when
// the value parser is not a dependency source. object and tuple use it to
// detect two sibling fields that both bind the same non-zero Identity
// (spec.md §3 "duplicate-dependency").
type sourceNodeIdentity interface {
	sourceIdentity() depgraph.Identity
}

func (n *optionNode[T]) sourceIdentity() depgraph.Identity {
	if sw, ok := any(n.vp).(sourceWriter); ok {
		return sw.identity()
	}
	return depgraph.Identity{}
}

func (n *argumentNode[T]) sourceIdentity() depgraph.Identity {
	if sw, ok := any(n.vp).(sourceWriter); ok {
		return sw.identity()
	}
	return depgraph.Identity{}
}

// --- tuple ---

type tupleNode struct {
	items []parserNode
}

// Tuple combines children positionally into an ordered []any (spec.md §4.3
// "tuple"). It resolves deferred dependency state the same way Object does:
// symmetrically, regardless of the children's declaration order.
func Tuple(ps ...Parser[any]) Parser[[]any] {
	items := make([]parserNode, len(ps))
	for i, p := range ps {
		items[i] = p.node
	}
	return Parser[[]any]{node: &tupleNode{items: items}}
}

func (n *tupleNode) newState() runState {
	children := make([]runState, len(n.items))
	for i, it := range n.items {
		children[i] = it.newState()
	}
	return &tupleState{node: n, children: children}
}

func (n *tupleNode) mode() Mode {
	modes := make([]Mode, len(n.items))
	for i, it := range n.items {
		modes[i] = it.mode()
	}
	return combineModes(modes...)
}

func (n *tupleNode) children() []parserNode { return n.items }

func (n *tupleNode) usage() UsageEntry {
	entry := UsageEntry{}
	for _, it := range n.items {
		entry.Children = append(entry.Children, it.usage())
	}
	return entry
}

type tupleState struct {
	node     *tupleNode
	children []runState
}

func (s *tupleState) reusable() bool { return true }

func (s *tupleState) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	c := drain(s.children, cur, reg)
	return c, c > 0
}

func (s *tupleState) complete(reg *depgraph.Registry) completion {
	result := make([]any, 0, len(s.children))
	var errs []*Error
	seen := idset.New[depgraph.Identity]()
	for i, child := range s.children {
		comp := child.complete(reg)
		if !comp.ok() {
			errs = append(errs, comp.errs...)
			continue
		}
		result = append(result, comp.value)
		if sw, ok := s.node.items[i].(sourceNodeIdentity); ok && sw.sourceIdentity() != (depgraph.Identity{}) {
			id := sw.sourceIdentity()
			if seen.Has(id) {
				errs = append(errs, NewError(KindDuplicateDependency, text("tuple position"), text(itoa(i))))
			} else {
				seen.Add(id)
			}
		}
	}
	if len(errs) > 0 {
		return failedCompletion(errs...)
	}
	return completed(result)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// --- group ---

// Group is Tuple with a usage-only label set on the group's own usage
// entry (its children's entries are left unlabeled), for renderers that want to cluster related options together (spec.md §4.3
// "group"); it has no effect on parsing.
func Group(label string, ps ...Parser[any]) Parser[[]any] {
	p := Tuple(ps...)
	if tn, ok := p.node.(*tupleNode); ok {
		p.node = &groupNode{tupleNode: tn, label: label}
	}
	return p
}

type groupNode struct {
	*tupleNode
	label string
}

func (n *groupNode) usage() UsageEntry {
	entry := n.tupleNode.usage()
	entry.Group = n.label
	return entry
}

// --- or ---

type orNode[T any] struct {
	branches []parserNode
}

// Or tries each branch in declaration order and commits to the first one
// that fully succeeds (spec.md §4.3 "or"). Trying a branch is speculative:
// it runs against a cloned cursor and a cloned registry, so a failed branch
// leaves no trace.
func Or[T any](branches ...Parser[T]) Parser[T] {
	nodes := make([]parserNode, len(branches))
	for i, b := range branches {
		nodes[i] = b.node
	}
	return Parser[T]{node: &orNode[T]{branches: nodes}}
}

func (n *orNode[T]) newState() runState { return &orState[T]{node: n} }

func (n *orNode[T]) mode() Mode {
	modes := make([]Mode, len(n.branches))
	for i, b := range n.branches {
		modes[i] = b.mode()
	}
	return combineModes(modes...)
}

func (n *orNode[T]) children() []parserNode { return n.branches }

func (n *orNode[T]) usage() UsageEntry {
	entry := UsageEntry{}
	for _, b := range n.branches {
		entry.Children = append(entry.Children, b.usage())
	}
	return entry
}

// branchAttempt is the outcome of speculatively running one branch.
type branchAttempt struct {
	state    runState
	cur      *cursor
	reg      *depgraph.Registry
	consumed int
	comp     completion
}

func attemptBranch(node parserNode, cur *cursor, reg *depgraph.Registry) branchAttempt {
	bc := cur.clone()
	br := reg.Clone()
	state := node.newState()
	consumed := 0
	for {
		c, matched := state.tryConsume(bc, br)
		consumed += c
		if !matched || c == 0 {
			break
		}
	}
	return branchAttempt{state: state, cur: bc, reg: br, consumed: consumed, comp: state.complete(br)}
}

type orState[T any] struct {
	node   *orNode[T]
	chosen *branchAttempt
	// failed remembers the best (most-tokens-consumed, tie: first-declared)
	// failing branch attempt so complete can surface its errors instead of a
	// bare no-branch message (spec.md §7: "when none [succeeds], they
	// surface the error set of the branch that consumed the most tokens").
	failed *branchAttempt
}

func (s *orState[T]) reusable() bool { return false }

func (s *orState[T]) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	if s.chosen != nil {
		return 0, false
	}
	for _, branch := range s.node.branches {
		attempt := attemptBranch(branch, cur, reg)
		if attempt.comp.ok() {
			a := attempt
			s.chosen = &a
			cur.pos = a.cur.pos
			cur.tail = a.cur.tail
			reg.Adopt(a.reg)
			return a.consumed, true
		}
		if s.failed == nil || attempt.consumed > s.failed.consumed {
			a := attempt
			s.failed = &a
		}
	}
	return 0, false
}

func (s *orState[T]) complete(reg *depgraph.Registry) completion {
	if s.chosen != nil {
		return s.chosen.comp
	}
	if s.failed != nil && s.failed.consumed > 0 {
		return s.failed.comp
	}
	return failedCompletion(NewError(KindNoBranch, text("no alternative matched")))
}

// --- longestMatch ---

type longestMatchNode[T any] struct {
	branches []parserNode
}

// LongestMatch tries every branch speculatively, like Or, but commits to
// whichever one consumed the most tokens rather than the first to succeed
// (spec.md §4.3 "longestMatch"). Ties go to the earlier-declared branch.
func LongestMatch[T any](branches ...Parser[T]) Parser[T] {
	nodes := make([]parserNode, len(branches))
	for i, b := range branches {
		nodes[i] = b.node
	}
	return Parser[T]{node: &longestMatchNode[T]{branches: nodes}}
}

func (n *longestMatchNode[T]) newState() runState { return &longestMatchState[T]{node: n} }

func (n *longestMatchNode[T]) mode() Mode {
	modes := make([]Mode, len(n.branches))
	for i, b := range n.branches {
		modes[i] = b.mode()
	}
	return combineModes(modes...)
}

func (n *longestMatchNode[T]) children() []parserNode { return n.branches }

func (n *longestMatchNode[T]) usage() UsageEntry {
	entry := UsageEntry{}
	for _, b := range n.branches {
		entry.Children = append(entry.Children, b.usage())
	}
	return entry
}

type longestMatchState[T any] struct {
	node   *longestMatchNode[T]
	chosen *branchAttempt
	// failed mirrors orState.failed: the best-consuming failing attempt,
	// surfaced when every branch fails (spec.md §7).
	failed *branchAttempt
}

func (s *longestMatchState[T]) reusable() bool { return false }

func (s *longestMatchState[T]) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	if s.chosen != nil {
		return 0, false
	}
	var best *branchAttempt
	var bestFailed *branchAttempt
	for _, branch := range s.node.branches {
		attempt := attemptBranch(branch, cur, reg)
		if !attempt.comp.ok() {
			if bestFailed == nil || attempt.consumed > bestFailed.consumed {
				a := attempt
				bestFailed = &a
			}
			continue
		}
		if best == nil || attempt.consumed > best.consumed {
			a := attempt
			best = &a
		}
	}
	if best == nil {
		s.failed = bestFailed
		return 0, false
	}
	s.chosen = best
	cur.pos = best.cur.pos
	cur.tail = best.cur.tail
	reg.Adopt(best.reg)
	return best.consumed, true
}

func (s *longestMatchState[T]) complete(reg *depgraph.Registry) completion {
	if s.chosen != nil {
		return s.chosen.comp
	}
	if s.failed != nil && s.failed.consumed > 0 {
		return s.failed.comp
	}
	return failedCompletion(NewError(KindNoBranch, text("no alternative matched")))
}

// --- concat ---

type concatNode[T any] struct {
	items []parserNode
}

// Concat joins the results of a sequence of []T-valued parsers, in
// declaration order, into a single flat slice (spec.md §4.3 "concat").
// Tokens are handed out by the same drain loop Object uses: each round
// offers the current token to every child in declaration order, so a later
// child can take a token while an earlier one is still unfinished. The
// children are not run strictly one after another.
func Concat[T any](ps ...Parser[[]T]) Parser[[]T] {
	items := make([]parserNode, len(ps))
	for i, p := range ps {
		items[i] = p.node
	}
	return Parser[[]T]{node: &concatNode[T]{items: items}}
}

func (n *concatNode[T]) newState() runState {
	children := make([]runState, len(n.items))
	for i, it := range n.items {
		children[i] = it.newState()
	}
	return &concatState[T]{node: n, children: children}
}

func (n *concatNode[T]) mode() Mode {
	modes := make([]Mode, len(n.items))
	for i, it := range n.items {
		modes[i] = it.mode()
	}
	return combineModes(modes...)
}

func (n *concatNode[T]) children() []parserNode { return n.items }

func (n *concatNode[T]) usage() UsageEntry {
	entry := UsageEntry{}
	for _, it := range n.items {
		entry.Children = append(entry.Children, it.usage())
	}
	return entry
}

type concatState[T any] struct {
	node     *concatNode[T]
	children []runState
}

func (s *concatState[T]) reusable() bool { return true }

func (s *concatState[T]) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	c := drain(s.children, cur, reg)
	return c, c > 0
}

func (s *concatState[T]) complete(reg *depgraph.Registry) completion {
	var result []T
	var errs []*Error
	for _, child := range s.children {
		comp := child.complete(reg)
		if !comp.ok() {
			errs = append(errs, comp.errs...)
			continue
		}
		if vs, ok := comp.value.([]T); ok {
			result = append(result, vs...)
		}
	}
	if len(errs) > 0 {
		return failedCompletion(errs...)
	}
	return completed(result)
}

// --- merge ---

type mergeNode struct {
	items []parserNode
}

// Merge unions the result maps of several map[string]any-valued parsers
// (typically Objects) (spec.md §4.3 "merge"). Its children take tokens
// interleaved, through the same drain loop Object uses; a key written by a
// later parser overwrites one written by an earlier one.
func Merge(ps ...Parser[map[string]any]) Parser[map[string]any] {
	items := make([]parserNode, len(ps))
	for i, p := range ps {
		items[i] = p.node
	}
	return Parser[map[string]any]{node: &mergeNode{items: items}}
}

func (n *mergeNode) newState() runState {
	children := make([]runState, len(n.items))
	for i, it := range n.items {
		children[i] = it.newState()
	}
	return &mergeState{node: n, children: children}
}

func (n *mergeNode) mode() Mode {
	modes := make([]Mode, len(n.items))
	for i, it := range n.items {
		modes[i] = it.mode()
	}
	return combineModes(modes...)
}

func (n *mergeNode) children() []parserNode { return n.items }

func (n *mergeNode) usage() UsageEntry {
	entry := UsageEntry{}
	for _, it := range n.items {
		entry.Children = append(entry.Children, it.usage())
	}
	return entry
}

type mergeState struct {
	node     *mergeNode
	children []runState
}

func (s *mergeState) reusable() bool { return true }

func (s *mergeState) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	c := drain(s.children, cur, reg)
	return c, c > 0
}

func (s *mergeState) complete(reg *depgraph.Registry) completion {
	result := make(map[string]any)
	var errs []*Error
	for _, child := range s.children {
		comp := child.complete(reg)
		if !comp.ok() {
			errs = append(errs, comp.errs...)
			continue
		}
		if m, ok := comp.value.(map[string]any); ok {
			for k, v := range m {
				result[k] = v
			}
		}
	}
	if len(errs) > 0 {
		return failedCompletion(errs...)
	}
	return completed(result)
}

// --- conditional ---

// ConditionalResult pairs a Conditional's parsed discriminator with its
// selected branch's completed value (spec.md §4.3 "conditional": "Returns a
// pair (discriminator, branch-value)").
type ConditionalResult[D, B any] struct {
	Discriminator D
	Branch        B
}

type conditionalNode[D comparable, B any] struct {
	discriminator parserNode
	branches      map[D]parserNode
	fallback      parserNode // nil if none given
}

// Conditional parses discriminator first, then looks its value up in
// branches and runs whichever one matches; if none match, it falls back to
// fallback when given (spec.md §4.3 "conditional(discriminator, {key:
// branch}, default?)"). The completed value is the pair (discriminator,
// branch-value), never the branch value alone.
func Conditional[D comparable, B any](discriminator Parser[D], branches map[D]Parser[B], fallback ...Parser[B]) Parser[ConditionalResult[D, B]] {
	branchNodes := make(map[D]parserNode, len(branches))
	for k, p := range branches {
		branchNodes[k] = p.node
	}
	var fb parserNode
	if len(fallback) > 0 {
		fb = fallback[0].node
	}
	return Parser[ConditionalResult[D, B]]{node: &conditionalNode[D, B]{
		discriminator: discriminator.node,
		branches:      branchNodes,
		fallback:      fb,
	}}
}

func (n *conditionalNode[D, B]) newState() runState {
	return &conditionalState[D, B]{node: n, discState: n.discriminator.newState()}
}

func (n *conditionalNode[D, B]) mode() Mode {
	modes := []Mode{n.discriminator.mode()}
	for _, b := range n.branches {
		modes = append(modes, b.mode())
	}
	if n.fallback != nil {
		modes = append(modes, n.fallback.mode())
	}
	return combineModes(modes...)
}

// children reports the discriminator and every statically-known branch
// (plus fallback, if any); which branch actually runs depends on a value
// that only exists mid-pass, so tree walks that happen outside one (e.g.
// Suggest before the discriminator token is typed) see every candidate.
func (n *conditionalNode[D, B]) children() []parserNode {
	out := []parserNode{n.discriminator}
	for _, b := range n.branches {
		out = append(out, b)
	}
	if n.fallback != nil {
		out = append(out, n.fallback)
	}
	return out
}

func (n *conditionalNode[D, B]) usage() UsageEntry {
	entry := UsageEntry{Children: []UsageEntry{n.discriminator.usage()}}
	for _, b := range n.branches {
		entry.Children = append(entry.Children, b.usage())
	}
	if n.fallback != nil {
		entry.Children = append(entry.Children, n.fallback.usage())
	}
	return entry
}

type conditionalState[D comparable, B any] struct {
	node      *conditionalNode[D, B]
	discState runState
	discDone  bool
	discValue D
	discErrs  []*Error
	branch    runState
	noBranch  bool
}

func (s *conditionalState[D, B]) reusable() bool { return false }

func (s *conditionalState[D, B]) tryConsume(cur *cursor, reg *depgraph.Registry) (int, bool) {
	if !s.discDone {
		total := 0
		for {
			c, matched := s.discState.tryConsume(cur, reg)
			if !matched || c == 0 {
				break
			}
			total += c
		}
		comp := s.discState.complete(reg)
		s.discDone = true
		if !comp.ok() {
			s.discErrs = comp.errs
			return total, total > 0
		}
		dv, _ := comp.value.(D)
		s.discValue = dv

		branchNode, ok := s.node.branches[dv]
		if !ok {
			branchNode = s.node.fallback
		}
		if branchNode == nil {
			s.noBranch = true
			return total, total > 0
		}
		s.branch = branchNode.newState()
		more, _ := s.branch.tryConsume(cur, reg)
		return total + more, true
	}
	if s.branch != nil {
		return s.branch.tryConsume(cur, reg)
	}
	return 0, false
}

func (s *conditionalState[D, B]) complete(reg *depgraph.Registry) completion {
	if len(s.discErrs) > 0 {
		return failedCompletion(s.discErrs...)
	}
	if !s.discDone {
		return failedCompletion(NewError(KindMissingArgument, text("discriminator")))
	}
	if s.noBranch {
		return failedCompletion(NewError(KindNoBranch, text("no conditional branch matched discriminator")))
	}
	bc := s.branch.complete(reg)
	if !bc.ok() {
		return failedCompletion(bc.errs...)
	}
	bv, _ := bc.value.(B)
	return completed(ConditionalResult[D, B]{Discriminator: s.discValue, Branch: bv})
}
