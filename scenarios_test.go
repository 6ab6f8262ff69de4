package optique

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests replicate the six literal end-to-end scenarios from spec.md
// §8 ("Concrete end-to-end scenarios"), each grounded directly in the
// worked "mode"/"log-level" dependency example the spec uses throughout.

type choiceValueParser struct {
	metavar string
	options []string
}

func (c choiceValueParser) Parse(token string) Outcome[string] {
	for _, o := range c.options {
		if o == token {
			return Ready(token)
		}
	}
	return Failed[string](NewError(KindInvalidValue, valueTerm(token), valuesListTerm(c.options)))
}
func (c choiceValueParser) Format(v string) string { return v }
func (c choiceValueParser) Metavar() string        { return c.metavar }
func (c choiceValueParser) Mode() Mode             { return Sync }
func (c choiceValueParser) Suggest(_ context.Context, _ string) Outcome[[]Suggestion] {
	return NoSuggestions()
}

// modeLogLevelGrammar builds spec.md §8 scenario 1-3's grammar: "mode" is a
// dependency-source option over {dev, prod}; "log-level" is a derived
// option whose factory returns {debug, verbose} when source=dev and
// {quiet, silent} when source=prod; default source = dev.
func modeLogLevelGrammar() Parser[map[string]any] {
	modeSrc, modeID := Dependency[string](choiceValueParser{metavar: "MODE", options: []string{"dev", "prod"}})

	logLevel := Derive[string](
		"LEVEL",
		[]Identity{modeID},
		func(resolved []any) (ValueParser[string], error) {
			mode, _ := resolved[0].(string)
			if mode == "prod" {
				return choiceValueParser{metavar: "LEVEL", options: []string{"quiet", "silent"}}, nil
			}
			return choiceValueParser{metavar: "LEVEL", options: []string{"debug", "verbose"}}, nil
		},
		func() []any { return []any{"dev"} },
	)

	return Object(
		F("mode", Option[string](modeSrc, "--mode")),
		F("log-level", Option[string](logLevel, "--log-level")),
	)
}

func Test_Scenario1_DependencyResolution_sourceBeforeDerived(t *testing.T) {
	p := modeLogLevelGrammar()
	v, err := Parse(p, []string{"--mode", "prod", "--log-level", "quiet"})
	require.NoError(t, err)
	assert.Equal(t, "prod", Get[string](v, "mode"))
	assert.Equal(t, "quiet", Get[string](v, "log-level"))
}

func Test_Scenario2_DependencyResolution_sourceAfterDerived(t *testing.T) {
	p := modeLogLevelGrammar()
	v, err := Parse(p, []string{"--log-level", "silent", "--mode", "prod"})
	require.NoError(t, err)
	assert.Equal(t, "prod", Get[string](v, "mode"))
	assert.Equal(t, "silent", Get[string](v, "log-level"))
}

func Test_Scenario3_MismatchedDerivedValue(t *testing.T) {
	p := modeLogLevelGrammar()
	_, err := Parse(p, []string{"--mode", "dev", "--log-level", "quiet"})
	require.Error(t, err)
	var es Errors
	require.ErrorAs(t, err, &es)
	found := false
	for _, e := range es {
		if e.Kind == KindInvalidValue {
			found = true
		}
	}
	assert.True(t, found)
}

func Test_Scenario4_LongestMatchDisambiguation(t *testing.T) {
	modeSrcA, modeIDA := Dependency[string](stubValueParser{metavar: "MODE"})
	derivedA := Derive[string]("DERIVED", []Identity{modeIDA},
		func(resolved []any) (ValueParser[string], error) { return stubValueParser{metavar: "DERIVED"}, nil },
		func() []any { return []any{""} })
	branchA := Object(
		F("mode", Option[string](modeSrcA, "--mode")),
		F("derived", Option[string](derivedA, "--derived")),
	)

	modeSrcB, modeIDB := Dependency[string](stubValueParser{metavar: "MODE"})
	derivedB := Derive[string]("DERIVED", []Identity{modeIDB},
		func(resolved []any) (ValueParser[string], error) { return stubValueParser{metavar: "DERIVED"}, nil },
		func() []any { return []any{""} })
	branchB := Object(
		F("mode", Option[string](modeSrcB, "--mode")),
		F("derived", Option[string](derivedB, "--derived")),
		F("extra", Option[string](stubValueParser{metavar: "EXTRA"}, "--extra")),
	)

	p := LongestMatch[map[string]any](branchA, branchB)
	v, err := Parse(p, []string{"--mode", "y", "--derived", "y1", "--extra", "value"})
	require.NoError(t, err)
	assert.Equal(t, "y", Get[string](v, "mode"))
	assert.Equal(t, "y1", Get[string](v, "derived"))
	assert.Equal(t, "value", Get[string](v, "extra"))
}

func Test_Scenario5_MultipleDerivedParsersFromOneSource(t *testing.T) {
	envSrc, envID := Dependency[string](stubValueParser{metavar: "ENV"})
	echo := func(resolved []any) (ValueParser[string], error) { return stubValueParser{metavar: "X"}, nil }

	logLevel := Derive[string]("LEVEL", []Identity{envID}, echo, func() []any { return []any{"dev"} })
	timeout := Derive[string]("TIMEOUT", []Identity{envID}, echo, func() []any { return []any{"dev"} })
	retries := Derive[string]("RETRIES", []Identity{envID}, echo, func() []any { return []any{"dev"} })

	p := Object(
		F("env", Option[string](envSrc, "--env")),
		F("log-level", Option[string](logLevel, "--log-level")),
		F("timeout", Option[string](timeout, "--timeout")),
		F("retries", Option[string](retries, "--retries")),
	)

	v, err := Parse(p, []string{"--env", "staging", "--log-level", "info", "--timeout", "10000", "--retries", "3"})
	require.NoError(t, err)
	assert.Equal(t, "staging", Get[string](v, "env"))
	assert.Equal(t, "info", Get[string](v, "log-level"))
	assert.Equal(t, "10000", Get[string](v, "timeout"))
	assert.Equal(t, "3", Get[string](v, "retries"))
}

func Test_Scenario6_WithDefaultOnSourceFeedsDerived(t *testing.T) {
	modeSrc, modeID := Dependency[string](choiceValueParser{metavar: "MODE", options: []string{"dev", "prod"}})

	logLevel := Derive[string](
		"LEVEL",
		[]Identity{modeID},
		func(resolved []any) (ValueParser[string], error) {
			mode, _ := resolved[0].(string)
			if mode == "prod" {
				return choiceValueParser{metavar: "LEVEL", options: []string{"warn", "error", "info"}}, nil
			}
			return choiceValueParser{metavar: "LEVEL", options: []string{"debug", "verbose"}}, nil
		},
		func() []any { return []any{"dev"} },
	)

	p := Object(
		F("mode", WithDefault(Option[string](modeSrc, "--mode"), "prod")),
		F("log-level", Option[string](logLevel, "--log-level")),
	)

	v, err := Parse(p, []string{"--log-level", "warn"})
	require.NoError(t, err)
	assert.Equal(t, "prod", Get[string](v, "mode"))
	assert.Equal(t, "warn", Get[string](v, "log-level"))
}
