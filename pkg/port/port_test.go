package port

import (
	"testing"

	"github.com/ja7ad/coregov/pkg/numeric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RoundTrip(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Declare("a", "b", "c"))

	require.NoError(t, r.Publish([]string{"a", "c"}, numeric.VectorOf(1, 3)))
	v, err := r.Read([]string{"c", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, numeric.VectorOf(3, 1, 0), v)
}

func TestRegistry_DuplicateDeclare(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Declare("a"))
	require.ErrorIs(t, r.Declare("a"), ErrDuplicate)
}

func TestRegistry_UnknownChannel(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Declare("a"))

	_, err := r.Read([]string{"nope"})
	require.ErrorIs(t, err, ErrUnknown)
	require.ErrorIs(t, r.Publish([]string{"nope"}, numeric.VectorOf(1)), ErrUnknown)
}

func TestRegistry_WidthMismatch(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Declare("a", "b"))
	require.ErrorIs(t, r.Publish([]string{"a", "b"}, numeric.VectorOf(1)), ErrWidth)
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Declare("x", "y"))
	require.NoError(t, r.Declare("z"))
	assert.Equal(t, []string{"x", "y", "z"}, r.Names())
}
