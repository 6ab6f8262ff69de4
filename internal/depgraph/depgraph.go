// Package depgraph implements the dependency-resolution subsystem (C2):
// identity issuance for dependency sources, the per-pass registry they
// write into, and the deferred-parsing machinery a derived value parser uses
// when its sources aren't resolved yet at the point it is asked to parse.
//
// This package is deliberately untyped (everything is any): the generic,
// statically-typed surface lives in the root optique package, which is the
// only caller. Keeping the type erasure down here means the combinator tree
// in optique can hold children of differing value types inside one object
// or tuple without a reflection-based dispatch layer.
package depgraph

import "github.com/google/uuid"

// Identity uniquely names a dependency source within the process (spec.md
// §3 invariant: "every dependency source has an identity unique within the
// process"). Backed by a UUID so two independently-constructed sources can
// never collide, matching spec.md §8 property 1 without a shared counter.
type Identity struct {
	id string
}

// NewIdentity mints a fresh, globally-unique Identity.
func NewIdentity() Identity {
	return Identity{id: uuid.NewString()}
}

func (i Identity) String() string {
	return i.id
}
