package plugin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/playground/pkg/datasource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	noop := func(context.Context, Spec) (datasource.DataSource, error) { return &fakeSource{}, nil }

	t.Run("RegisterAndLookup", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register("b", noop))
		require.NoError(t, reg.Register("a", noop))

		factory, err := reg.Lookup("a")
		require.NoError(t, err)
		assert.NotNil(t, factory)
		assert.Equal(t, []string{"a", "b"}, reg.Kinds())
	})

	t.Run("Duplicate", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register("a", noop))
		assert.Error(t, reg.Register("a", noop))
	})

	t.Run("Invalid", func(t *testing.T) {
		reg := NewRegistry()
		assert.Error(t, reg.Register("", noop))
		assert.Error(t, reg.Register("a", nil))
	})

	t.Run("UnknownKind", func(t *testing.T) {
		_, err := NewRegistry().Lookup("nope")
		assert.ErrorIs(t, err, ErrUnknownKind)
	})
}

func TestSpec_ResolvePath(t *testing.T) {
	dir := t.TempDir()
	spec := Spec{Dir: dir}

	assert.Equal(t, filepath.Join(dir, "db"), spec.ResolvePath("db"))
	assert.Equal(t, "/abs/db", spec.ResolvePath("/abs/db"))
	assert.Equal(t, "", spec.ResolvePath(""))
}
