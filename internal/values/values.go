// Package values provides a handful of concrete ValueParser implementations
// used by the demo binary (the root package's tests use their own stubs,
// since this package imports optique). It is not the
// general-purpose value-parser library a real consumer would eventually
// want — optique.ValueParser is deliberately small so callers can write
// their own, and shipping an exhaustive set here is out of scope (see
// SPEC_FULL.md §4, Non-goals).
package values

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dekarrin/optique"
	"golang.org/x/text/cases"
)

func textTerm(s string) optique.Term { return optique.Term{Kind: optique.TermText, Text: s} }
func valueTerm(s string) optique.Term {
	return optique.Term{Kind: optique.TermValue, Text: s}
}
func valuesListTerm(vs []string) optique.Term {
	return optique.Term{Kind: optique.TermValuesList, Values: vs}
}

// String is the identity value parser: every token is accepted as itself.
type String struct {
	metavar string
}

func NewString(metavar string) String { return String{metavar: metavar} }

func (s String) Parse(token string) optique.Outcome[string] { return optique.Ready(token) }
func (s String) Format(v string) string                     { return v }
func (s String) Metavar() string                             { return s.metavar }
func (s String) Mode() optique.Mode                          { return optique.Sync }
func (s String) Suggest(ctx context.Context, prefix string) optique.Outcome[[]optique.Suggestion] {
	return optique.NoSuggestions()
}

// Int parses a token as a base-10 integer, reporting invalid-value on
// failure in the same structured shape the engine itself uses.
type Int struct {
	metavar string
}

func NewInt(metavar string) Int { return Int{metavar: metavar} }

func (p Int) Parse(token string) optique.Outcome[int] {
	n, err := strconv.Atoi(token)
	if err != nil {
		return optique.Failed[int](optique.NewError(
			optique.KindInvalidValue,
			valueTerm(token),
			textTerm("is not a valid "+p.metavar),
		))
	}
	return optique.Ready(n)
}

func (p Int) Format(v int) string { return strconv.Itoa(v) }
func (p Int) Metavar() string     { return p.metavar }
func (p Int) Mode() optique.Mode  { return optique.Sync }
func (p Int) Suggest(ctx context.Context, prefix string) optique.Outcome[[]optique.Suggestion] {
	return optique.NoSuggestions()
}

// Choice accepts one of a fixed set of case-folded string options, folding
// both the input token and the candidate set with golang.org/x/text/cases
// so "Info"/"info"/"INFO" are all accepted the same way (grounded on the
// teacher's go.mod dependency on golang.org/x/text, previously only an
// indirect dependency pulled in by its sqlite driver).
type Choice struct {
	metavar string
	options []string
	folder  cases.Caser
}

func NewChoice(metavar string, options ...string) Choice {
	return Choice{metavar: metavar, options: options, folder: cases.Fold()}
}

func (c Choice) fold(s string) string { return c.folder.String(s) }

func (c Choice) Parse(token string) optique.Outcome[string] {
	folded := c.fold(token)
	for _, opt := range c.options {
		if c.fold(opt) == folded {
			return optique.Ready(opt)
		}
	}
	return optique.Failed[string](optique.NewError(
		optique.KindInvalidValue,
		valueTerm(token),
		textTerm("is not one of"),
		valuesListTerm(c.options),
	))
}

func (c Choice) Format(v string) string { return v }
func (c Choice) Metavar() string        { return c.metavar }
func (c Choice) Mode() optique.Mode     { return optique.Sync }

func (c Choice) Suggest(ctx context.Context, prefix string) optique.Outcome[[]optique.Suggestion] {
	folded := c.fold(prefix)
	var out []optique.Suggestion
	for _, opt := range c.options {
		if strings.HasPrefix(c.fold(opt), folded) {
			out = append(out, optique.Suggestion{Kind: optique.SuggestLiteral, Text: opt})
		}
	}
	return optique.Ready(out)
}

// Path accepts any token as a filesystem path, and in Suggest delegates the
// actual directory listing to the shell/front-end via a SuggestFile
// directive rather than doing the stat calls itself (spec.md §6 "Suggestion
// protocol").
type Path struct {
	metavar  string
	mustExist bool
}

func NewPath(metavar string, mustExist bool) Path {
	return Path{metavar: metavar, mustExist: mustExist}
}

func (p Path) Parse(token string) optique.Outcome[string] {
	if p.mustExist {
		if _, err := os.Stat(token); err != nil {
			return optique.Failed[string](optique.NewError(
				optique.KindInvalidValue,
				valueTerm(token),
				textTerm(fmt.Sprintf("does not exist: %v", err)),
			))
		}
	}
	return optique.Ready(token)
}

func (p Path) Format(v string) string { return v }
func (p Path) Metavar() string        { return p.metavar }
func (p Path) Mode() optique.Mode     { return optique.Sync }

func (p Path) Suggest(ctx context.Context, prefix string) optique.Outcome[[]optique.Suggestion] {
	return optique.Ready([]optique.Suggestion{{
		Kind:     optique.SuggestFile,
		Text:     prefix,
		FileType: optique.FileEither,
	}})
}
