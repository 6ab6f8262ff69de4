package optique

import "context"

// Future is a not-yet-resolved result produced by an async value parser's
// Parse or Suggest, or by a derived parser's factory when it builds an
// async concrete parser. Futures are created only inside those leaves; the
// combinator protocol itself (tryConsume/complete) never suspends except to
// propagate a Future it received from below (spec.md §5 "Suspension
// points").
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// NewFuture returns a Future along with the function that resolves it. The
// resolve function must be called exactly once.
func NewFuture[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	resolve := func(v T, err error) {
		f.val, f.err = v, err
		close(f.done)
	}
	return f, resolve
}

// Await blocks until the Future resolves or ctx is canceled, whichever
// comes first.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

type outcomeKind int

const (
	outcomeReady outcomeKind = iota
	outcomeFailed
	outcomePending
)

// Outcome is a value parser's result: exactly one of an immediately-ready
// value, an immediate failure, or a pending Future to await. Lifting the
// source's sentinel-return convention into the result type itself (spec.md
// §9 design note) means a caller can never forget to handle suspension —
// the type makes the three cases explicit.
type Outcome[T any] struct {
	kind   outcomeKind
	value  T
	err    error
	future *Future[T]
}

// Ready constructs an Outcome that is already resolved, successfully.
func Ready[T any](v T) Outcome[T] {
	return Outcome[T]{kind: outcomeReady, value: v}
}

// Failed constructs an Outcome that is already resolved, unsuccessfully.
func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{kind: outcomeFailed, err: err}
}

// Pending constructs an Outcome that is not resolved yet.
func Pending[T any](f *Future[T]) Outcome[T] {
	return Outcome[T]{kind: outcomePending, future: f}
}

// Mode reports whether awaiting this particular outcome can suspend.
func (o Outcome[T]) Mode() Mode {
	if o.kind == outcomePending {
		return Async
	}
	return Sync
}

// Await resolves the outcome, blocking only if it is Pending.
func (o Outcome[T]) Await(ctx context.Context) (T, error) {
	switch o.kind {
	case outcomeReady:
		return o.value, nil
	case outcomeFailed:
		var zero T
		return zero, o.err
	default:
		return o.future.Await(ctx)
	}
}
