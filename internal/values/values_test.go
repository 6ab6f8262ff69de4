package values

import (
	"context"
	"testing"

	"github.com/dekarrin/optique"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Int_parsesValidAndRejectsInvalid(t *testing.T) {
	p := NewInt("N")

	v, err := p.Parse("42").Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = p.Parse("not-a-number").Await(context.Background())
	require.Error(t, err)
}

func Test_Choice_acceptsCaseFoldedMatch(t *testing.T) {
	p := NewChoice("LEVEL", "Info", "Warn", "Error")

	v, err := p.Parse("WARN").Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Warn", v)
}

func Test_Choice_rejectsUnknownValue(t *testing.T) {
	p := NewChoice("LEVEL", "info", "warn")
	_, err := p.Parse("bogus").Await(context.Background())
	require.Error(t, err)
}

func Test_Choice_suggestFiltersOnPrefix(t *testing.T) {
	p := NewChoice("LEVEL", "info", "warn", "error")
	out, err := p.Suggest(context.Background(), "w").Await(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "warn", out[0].Text)
}

func Test_Path_suggestDelegatesToFileCompletion(t *testing.T) {
	p := NewPath("FILE", false)
	out, err := p.Suggest(context.Background(), "/tmp").Await(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, optique.SuggestFile, out[0].Kind)
}
