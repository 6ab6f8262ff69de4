package optique

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValueParser struct {
	metavar string
}

func (s stubValueParser) Parse(token string) Outcome[string] { return Ready(token) }
func (s stubValueParser) Format(v string) string              { return v }
func (s stubValueParser) Metavar() string                     { return s.metavar }
func (s stubValueParser) Mode() Mode                          { return Sync }
func (s stubValueParser) Suggest(ctx context.Context, prefix string) Outcome[[]Suggestion] {
	return NoSuggestions()
}

func Test_Option_simpleSpaceForm(t *testing.T) {
	p := Option[string](stubValueParser{metavar: "VAL"}, "--name")
	v, err := Parse(p, []string{"--name", "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func Test_Option_equalsForm(t *testing.T) {
	p := Option[string](stubValueParser{metavar: "VAL"}, "--name")
	v, err := Parse(p, []string{"--name=hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func Test_Option_missingValue(t *testing.T) {
	p := Option[string](stubValueParser{metavar: "VAL"}, "--name")
	_, err := Parse(p, []string{"--name"})
	require.Error(t, err)
	var es Errors
	require.ErrorAs(t, err, &es)
	assert.Equal(t, KindMissingValue, es[0].Kind)
}

func Test_Option_duplicateWithoutMultiple(t *testing.T) {
	obj := Object(F("name", Option[string](stubValueParser{metavar: "VAL"}, "--name")))
	_, err := Parse(obj, []string{"--name", "a", "--name", "b"})
	require.Error(t, err)
	var es Errors
	require.ErrorAs(t, err, &es)
	assert.Equal(t, KindDuplicateOption, es[0].Kind)
}

func Test_Flag_presenceAndAbsence(t *testing.T) {
	p := Flag("--verbose", "-v")

	v, err := Parse(p, []string{"--verbose"})
	require.NoError(t, err)
	assert.True(t, v)

	v, err = Parse(p, []string{})
	require.NoError(t, err)
	assert.False(t, v)
}

func Test_Argument_requiredMissing(t *testing.T) {
	p := Argument[string](stubValueParser{metavar: "NAME"})
	_, err := Parse(p, []string{})
	require.Error(t, err)
	var es Errors
	require.ErrorAs(t, err, &es)
	assert.Equal(t, KindMissingArgument, es[0].Kind)
}

func Test_Argument_matchesSingleToken(t *testing.T) {
	p := Argument[string](stubValueParser{metavar: "NAME"})
	v, err := Parse(p, []string{"token"})
	require.NoError(t, err)
	assert.Equal(t, "token", v)
}

func Test_Constant_matchesLiteral(t *testing.T) {
	p := Constant("start", 42)
	v, err := Parse(p, []string{"start"})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func Test_Command_returnsItsOwnName(t *testing.T) {
	p := Command("build")
	v, err := Parse(p, []string{"build"})
	require.NoError(t, err)
	assert.Equal(t, "build", v)
}

func Test_Subcommand_delegatesRemainderToInner(t *testing.T) {
	inner := Object(F("target", Argument[string](stubValueParser{metavar: "TARGET"})))
	p := Subcommand("build", inner)

	v, err := Parse(p, []string{"build", "release"})
	require.NoError(t, err)
	assert.Equal(t, "release", Get[string](v, "target"))
}

func Test_Subcommand_unknownCommandWhenTokenDiffers(t *testing.T) {
	inner := Object(F("target", Argument[string](stubValueParser{metavar: "TARGET"})))
	p := Subcommand("build", inner)

	_, err := Parse(p, []string{"test", "release"})
	require.Error(t, err)
	var es Errors
	require.ErrorAs(t, err, &es)
	assert.Equal(t, KindUnknownCommand, es[0].Kind)
}

func Test_Subcommand_missingArgumentWhenAbsent(t *testing.T) {
	inner := Object(F("target", Argument[string](stubValueParser{metavar: "TARGET"})))
	p := Subcommand("build", inner)

	_, err := Parse(p, []string{})
	require.Error(t, err)
	var es Errors
	require.ErrorAs(t, err, &es)
	assert.Equal(t, KindMissingArgument, es[0].Kind)
}

func Test_Subcommand_dispatchViaOr(t *testing.T) {
	build := Subcommand("build", Object(F("target", Argument[string](stubValueParser{metavar: "TARGET"}))))
	test := Subcommand("test", Object(F("pkg", Argument[string](stubValueParser{metavar: "PKG"}))))
	p := Or(build, test)

	v, err := Parse(p, []string{"test", "./..."})
	require.NoError(t, err)
	assert.Equal(t, "./...", Get[string](v, "pkg"))
}

func Test_Passthrough_capturesTail(t *testing.T) {
	p := Passthrough()
	v, err := Parse(p, []string{"--", "a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, v)
}

func Test_Passthrough_emptyWithoutTerminator(t *testing.T) {
	p := Passthrough()
	v, err := Parse(p, []string{})
	require.NoError(t, err)
	assert.Empty(t, v)
}

func Test_Passthrough_nestedBesideConsumingSiblingKeepsTail(t *testing.T) {
	p := Object(
		F("format", Option[string](stubValueParser{metavar: "FORMAT"}, "--format")),
		F("extra", Passthrough()),
	)

	v, err := Parse(p, []string{"--format", "json", "--", "a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, "json", Get[string](v, "format"))
	assert.Equal(t, []string{"a", "b", "c"}, Get[[]string](v, "extra"))
}

func Test_PassthroughEqualsOnly_collectsUnknownEqualsTokensInterleaved(t *testing.T) {
	p := Object(
		F("format", Option[string](stubValueParser{metavar: "FORMAT"}, "--format")),
		F("verbose", Flag("--verbose")),
		F("extra", PassthroughEqualsOnly()),
	)

	v, err := Parse(p, []string{"--format", "json", "--unknown=foo", "--verbose", "--other=bar"})
	require.NoError(t, err)
	assert.Equal(t, "json", Get[string](v, "format"))
	assert.True(t, Get[bool](v, "verbose"))
	assert.Equal(t, []string{"--unknown=foo", "--other=bar"}, Get[[]string](v, "extra"))
}

func Test_PassthroughEqualsOnly_noTerminatorRequired(t *testing.T) {
	p := PassthroughEqualsOnly()
	v, err := Parse(p, []string{"--foo=bar"})
	require.NoError(t, err)
	assert.Equal(t, []string{"--foo=bar"}, v)
}
