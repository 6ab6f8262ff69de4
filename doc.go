// Package optique is a declarative command-line argument parser built as a
// parser-combinator engine with value-dependent parsing. Small parsers for
// options, positional arguments, flags, constants, and subcommands compose
// into larger ones — objects, tuples, alternations — and a single driver
// entry point consumes a token stream and produces either a typed value or
// a structured error.
//
// The distinguishing feature is deferred parsing: one field's value parser
// can be chosen based on another field's already-parsed value, regardless
// of which one appears first on the command line. See Dependency and
// Derive.
//
// optique only implements the combinator engine and its dependency
// resolution. Help text rendering, shell completion script generation, and
// a fleshed-out library of value parsers (beyond the minimal ones in
// internal/values used by the demo binary) are left to callers.
package optique
