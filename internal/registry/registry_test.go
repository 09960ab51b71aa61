package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLookup(t *testing.T) {
	r := New[func() string]("greeter")
	r.Register("Hello", func() string { return "hello" })
	r.Register("bye", func() string { return "bye" })

	f, err := r.Lookup("  HELLO ")
	require.NoError(t, err)
	assert.Equal(t, "hello", f())

	assert.Equal(t, []string{"bye", "hello"}, r.Names())
}

func TestLookupUnknown(t *testing.T) {
	r := New[int]("number")
	r.Register("one", 1)

	_, err := r.Lookup("two")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknown))
	assert.Contains(t, err.Error(), `number "two"`)
	assert.Contains(t, err.Error(), "available: one")
}

func TestRegisterPanics(t *testing.T) {
	r := New[int]("number")
	r.Register("one", 1)

	assert.Panics(t, func() { r.Register("ONE", 2) })
	assert.Panics(t, func() { r.Register(" ", 3) })
}
