package builtin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/playground/pkg/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{"badger", "memory", "s3"}, reg.Kinds())

	assert.Error(t, Register(reg), "registering twice must fail")
}

func TestDiscoverBuiltinKinds(t *testing.T) {
	ctx := context.Background()
	folder := t.TempDir()

	write := func(owner, manifest string) {
		dir := filepath.Join(folder, owner)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.yaml"), []byte(manifest), 0644))
	}

	write("friendly_user_1", `
kind: memory
options:
  catalogs:
    - id: /CATALOG_1
`)
	write("friendly_user_2", `
kind: badger
options:
  db_path: db
`)

	discovered, err := plugin.NewLoader(NewRegistry()).Discover(ctx, folder)
	require.NoError(t, err)
	require.Len(t, discovered, 2)

	assert.Equal(t, "memory", discovered[0].Kind)
	assert.Equal(t, "badger", discovered[1].Kind)
	assert.DirExists(t, filepath.Join(folder, "friendly_user_2", "db"))

	for _, d := range discovered {
		if closer, ok := d.Source.(interface{ Close() error }); ok {
			require.NoError(t, closer.Close())
		}
	}
}
