package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type color string

func colors(t *testing.T) *Menu[color] {
	t.Helper()
	m, err := New(
		Item[color]{Label: "Red", Value: "r"},
		Item[color]{Label: "Green", Value: "g", Aliases: []string{"Зелёный"}},
	)
	require.NoError(t, err)
	return m
}

func TestLookupAccepts(t *testing.T) {
	m := colors(t)
	for _, in := range []string{"Red", "red", "  RED\n", "r", " R "} {
		v, ok := m.Lookup(in)
		assert.True(t, ok, "input %q", in)
		assert.Equal(t, color("r"), v)
	}
}

func TestLookupAlias(t *testing.T) {
	m := colors(t)
	v, ok := m.Lookup("зелёный")
	assert.True(t, ok)
	assert.Equal(t, color("g"), v)
	assert.NotContains(t, m.Labels(), "Зелёный")
}

func TestLookupRejects(t *testing.T) {
	m := colors(t)
	for _, in := range []string{"", "blue", "Re", "red green"} {
		_, ok := m.Lookup(in)
		assert.False(t, ok, "input %q", in)
	}
}

func TestLabelsKeepOrder(t *testing.T) {
	m := colors(t)
	assert.Equal(t, []string{"Red", "Green"}, m.Labels())
	assert.Equal(t, []color{"r", "g"}, m.Values())

	l, ok := m.Label("g")
	assert.True(t, ok)
	assert.Equal(t, "Green", l)
}

func TestNewRejectsAmbiguous(t *testing.T) {
	_, err := New(
		Item[color]{Label: "Red", Value: "r"},
		Item[color]{Label: "red", Value: "x"},
	)
	assert.Error(t, err)

	_, err = New[color]()
	assert.Error(t, err)

	_, err = New(Item[color]{Label: "  ", Value: "r"})
	assert.Error(t, err)
}

func TestMustPanics(t *testing.T) {
	assert.Panics(t, func() { Must[color]() })
}
