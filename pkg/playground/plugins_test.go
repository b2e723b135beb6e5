package playground

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/playground/pkg/datasource"
	"github.com/marmos91/playground/pkg/datasource/badger"
	"github.com/marmos91/playground/pkg/plugin"
	"github.com/marmos91/playground/pkg/plugin/builtin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run the playground over real plugin folders and the builtin
// kinds, from manifest to rewritten result.

func writeManifest(t *testing.T, folder, owner, manifest string) {
	t.Helper()

	dir := filepath.Join(folder, owner)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.yaml"), []byte(manifest), 0644))
}

func newPluginPlayground(t *testing.T, folder string) *Playground {
	t.Helper()

	pg := New(plugin.NewLoader(builtin.NewRegistry()))
	require.NoError(t, pg.SetContext(context.Background(), &datasource.Context{
		SourceConfiguration: map[string]any{
			"mount-path":        "/MY/PATH",
			"playground-folder": folder,
		},
	}, nil))
	t.Cleanup(func() { _ = pg.Close() })

	return pg
}

func TestPlayground_MemoryPlugins(t *testing.T) {
	ctx := context.Background()
	folder := t.TempDir()

	writeManifest(t, folder, "friendly_user_1", `
kind: memory
options:
  catalogs:
    - id: /CATALOG_1
  fill: 1
`)
	writeManifest(t, folder, "friendly_user_2", `
kind: memory
options:
  catalogs:
    - id: /CATALOG_2
      resources:
        - id: resource_1
          representations:
            - data_type: FLOAT64
              sample_period: 1s
  fill: 42
`)

	pg := newPluginPlayground(t, folder)
	require.Equal(t, 2, pg.Mounts().Len())

	registrations, err := pg.GetCatalogRegistrations(ctx, "/")
	require.NoError(t, err)
	require.Len(t, registrations, 2)
	assert.Equal(t, "/MY/PATH/FRIENDLY_USER_1/CATALOG_1", registrations[0].Path)
	assert.Equal(t, "/MY/PATH/FRIENDLY_USER_2/CATALOG_2", registrations[1].Path)

	catalog, err := pg.GetCatalog(ctx, "/MY/PATH/FRIENDLY_USER_2/CATALOG_2")
	require.NoError(t, err)
	assert.Equal(t, "/MY/PATH/FRIENDLY_USER_2/CATALOG_2", catalog.ID)
	require.Len(t, catalog.Resources, 1)

	_, err = pg.GetCatalog(ctx, "/MY/PATH/FRIENDLY_USER_1/CATALOG_2")
	assert.ErrorIs(t, err, datasource.ErrCatalogNotFound)

	timeRange, err := pg.GetTimeRange(ctx, catalog.ID)
	require.NoError(t, err)
	assert.Equal(t, datasource.MinTime, timeRange.Begin)
	assert.Equal(t, datasource.MaxTime, timeRange.End)

	begin := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := begin.Add(4 * time.Second)

	availability, err := pg.GetAvailability(ctx, catalog.ID, begin, end)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(availability))

	resource := catalog.Resources[0]
	request, err := datasource.NewReadRequest(datasource.CatalogItem{
		Catalog:        catalog,
		Resource:       resource,
		Representation: resource.Representations[0],
	}, begin, end)
	require.NoError(t, err)

	require.NoError(t, pg.Read(ctx, begin, end, []datasource.ReadRequest{request}, nil, nil))
	assert.Equal(t, []byte{1, 1, 1, 1}, request.Status)
	for i := 0; i < 4; i++ {
		assert.Equal(t, 42.0, datasource.FLOAT64.Value(request.Data, i))
	}

	// The caller's catalog id is left untouched
	assert.Equal(t, "/MY/PATH/FRIENDLY_USER_2/CATALOG_2", request.CatalogItem.Catalog.ID)
}

func TestPlayground_BadgerPluginReinitialized(t *testing.T) {
	ctx := context.Background()
	folder := t.TempDir()

	writeManifest(t, folder, "friendly_user_3", `
kind: badger
options:
  db_path: ./data
`)

	pg := newPluginPlayground(t, folder)
	require.Equal(t, 1, pg.Mounts().Len())

	source, ok := pg.Mounts().Entries()[0].Source.(*badger.Source)
	require.True(t, ok)
	require.NoError(t, source.PutRegistration(ctx, "/", datasource.CatalogRegistration{Path: "CATALOG_3"}))

	dsCtx := &datasource.Context{
		SourceConfiguration: map[string]any{
			"mount-path":        "/MY/PATH",
			"playground-folder": folder,
		},
	}

	// The database of the first table holds the directory lock; it must be
	// released before the folder is scanned again
	for i := 0; i < 2; i++ {
		require.NoError(t, pg.SetContext(ctx, dsCtx, nil))
		require.Equal(t, 1, pg.Mounts().Len(), "owner lost after SetContext #%d", i+2)

		registrations, err := pg.GetCatalogRegistrations(ctx, "/")
		require.NoError(t, err)
		require.Len(t, registrations, 1)
		assert.Equal(t, "/MY/PATH/FRIENDLY_USER_3/CATALOG_3", registrations[0].Path)
	}
}
