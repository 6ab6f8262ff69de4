package idset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Set_addAndHas(t *testing.T) {
	s := New[string]()
	assert.False(t, s.Has("a"))
	s.Add("a")
	assert.True(t, s.Has("a"))
}

func Test_Set_newWithInitialElements(t *testing.T) {
	s := New("a", "b")
	assert.True(t, s.Has("a"))
	assert.True(t, s.Has("b"))
	assert.False(t, s.Has("c"))
}
