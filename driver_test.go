package optique

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Parse_unknownOptionReported(t *testing.T) {
	p := Object(F("name", Argument[string](stubValueParser{metavar: "NAME"})))
	_, err := Parse(p, []string{"alice", "--bogus"})
	require.Error(t, err)
	var es Errors
	require.ErrorAs(t, err, &es)
	found := false
	for _, e := range es {
		if e.Kind == KindUnknownOption {
			found = true
		}
	}
	assert.True(t, found)
}

func Test_Parse_refusesAsyncParser(t *testing.T) {
	p := Argument[string](asyncStubValueParser{})
	_, err := Parse(p, []string{"x"})
	require.Error(t, err)
}

func Test_ParseAsync_resolvesEventually(t *testing.T) {
	p := Argument[string](asyncStubValueParser{})
	out := ParseAsync(context.Background(), p, []string{"hello"})
	v, err := out.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func Test_Suggest_choiceValueParser(t *testing.T) {
	p := Option[string](choiceStub{options: []string{"alpha", "beta", "gamma"}}, "--pick")
	out := Suggest(context.Background(), p, []string{"--pick", "al"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	suggestions, err := out.Await(ctx)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, "alpha", suggestions[0].Text)
}

// --- test-only stub value parsers ---

type asyncStubValueParser struct{}

func (asyncStubValueParser) Parse(token string) Outcome[string] {
	future, resolve := NewFuture[string]()
	go resolve(token, nil)
	return Pending(future)
}
func (asyncStubValueParser) Format(v string) string { return v }
func (asyncStubValueParser) Metavar() string         { return "ASYNC" }
func (asyncStubValueParser) Mode() Mode              { return Async }
func (asyncStubValueParser) Suggest(ctx context.Context, prefix string) Outcome[[]Suggestion] {
	return NoSuggestions()
}

type choiceStub struct {
	options []string
}

func (c choiceStub) Parse(token string) Outcome[string] { return Ready(token) }
func (c choiceStub) Format(v string) string             { return v }
func (c choiceStub) Metavar() string                    { return "CHOICE" }
func (c choiceStub) Mode() Mode                         { return Sync }
func (c choiceStub) Suggest(ctx context.Context, prefix string) Outcome[[]Suggestion] {
	var out []Suggestion
	for _, o := range c.options {
		if len(prefix) <= len(o) && o[:len(prefix)] == prefix {
			out = append(out, Suggestion{Kind: SuggestLiteral, Text: o})
		}
	}
	return Ready(out)
}
