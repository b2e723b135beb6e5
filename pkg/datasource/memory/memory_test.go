package memory

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/marmos91/playground/pkg/datasource"
	dstesting "github.com/marmos91/playground/pkg/datasource/testing"
	"github.com/marmos91/playground/pkg/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySource(t *testing.T) {
	fixture := dstesting.DefaultFixture()
	fixture.Sample = func(int) float64 { return 42 }

	suite := &dstesting.SourceTestSuite{
		Fixture: &fixture,
		NewSource: func(t *testing.T, f dstesting.Fixture) datasource.DataSource {
			full := 1.0
			source, err := New(Options{
				Catalogs:     []datasource.ResourceCatalog{f.Catalog},
				TimeRange:    &TimeRangeOptions{Begin: f.DataBegin, End: f.DataEnd},
				Availability: &full,
				Fill:         42,
			})
			require.NoError(t, err)
			return source
		},
	}
	suite.Run(t)
}

func TestRegister(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, Register(reg))
	assert.Equal(t, []string{Kind}, reg.Kinds())

	factory, err := reg.Lookup(Kind)
	require.NoError(t, err)

	// Options as decoded from a YAML manifest.
	ds, err := factory(context.Background(), plugin.Spec{
		Owner: "friendly_user_2",
		Options: map[string]any{
			"registrations": map[string]any{
				"/": []any{map[string]any{"path": "CATALOG_2", "title": "Second"}},
			},
			"catalogs": []any{
				map[string]any{
					"id": "/CATALOG_2",
					"resources": []any{
						map[string]any{
							"id": "resource_1",
							"representations": []any{
								map[string]any{"data_type": "FLOAT64", "sample_period": "1s"},
							},
						},
					},
				},
			},
			"fill": 2.5,
		},
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, ds.SetContext(ctx, &datasource.Context{}, nil))

	registrations, err := ds.GetCatalogRegistrations(ctx, "/")
	require.NoError(t, err)
	require.Len(t, registrations, 1)
	assert.Equal(t, "CATALOG_2", registrations[0].Path)
	assert.Equal(t, "Second", registrations[0].Title)

	catalog, err := ds.GetCatalog(ctx, "/CATALOG_2")
	require.NoError(t, err)
	require.Len(t, catalog.Resources, 1)
	rep := catalog.Resources[0].Representations[0]
	assert.Equal(t, datasource.FLOAT64, rep.DataType)
	assert.Equal(t, time.Second, rep.SamplePeriod)

	// No data configured: full range and undefined availability.
	tr, err := ds.GetTimeRange(ctx, "/CATALOG_2")
	require.NoError(t, err)
	assert.Equal(t, datasource.MinTime, tr.Begin)
	assert.Equal(t, datasource.MaxTime, tr.End)

	availability, err := ds.GetAvailability(ctx, "/CATALOG_2", time.Now(), time.Now())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(availability))
}

func TestRegister_InvalidOptions(t *testing.T) {
	reg := plugin.NewRegistry()
	require.NoError(t, Register(reg))
	factory, err := reg.Lookup(Kind)
	require.NoError(t, err)

	tests := []struct {
		name    string
		options map[string]any
	}{
		{"UnknownKey", map[string]any{"colour": "blue"}},
		{"BadDataType", map[string]any{"catalogs": []any{map[string]any{
			"id":        "/C",
			"resources": []any{map[string]any{"id": "r", "representations": []any{map[string]any{"data_type": "COMPLEX", "sample_period": "1s"}}}},
		}}}},
		{"MissingID", map[string]any{"catalogs": []any{map[string]any{}}}},
		{"AvailabilityOutOfRange", map[string]any{"availability": 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory(context.Background(), plugin.Spec{Owner: "x", Options: tt.options})
			assert.Error(t, err)
		})
	}
}

func TestNew_DuplicateCatalog(t *testing.T) {
	_, err := New(Options{Catalogs: []datasource.ResourceCatalog{{ID: "/A"}, {ID: "/A"}}})
	assert.Error(t, err)
}

func TestRead_Int16(t *testing.T) {
	rep := datasource.Representation{DataType: datasource.INT16, SamplePeriod: 100 * time.Millisecond}
	catalog := datasource.ResourceCatalog{
		ID:        "/C",
		Resources: []datasource.Resource{{ID: "r", Representations: []datasource.Representation{rep}}},
	}

	source, err := New(Options{Catalogs: []datasource.ResourceCatalog{catalog}, Fill: -3})
	require.NoError(t, err)

	begin := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	end := begin.Add(time.Second)

	request, err := datasource.NewReadRequest(datasource.CatalogItem{
		Catalog:        catalog,
		Resource:       catalog.Resources[0],
		Representation: rep,
	}, begin, end)
	require.NoError(t, err)
	require.Len(t, request.Data, 20)

	require.NoError(t, source.Read(context.Background(), begin, end, []datasource.ReadRequest{request}, nil, nil))
	assert.Equal(t, -3.0, datasource.INT16.Value(request.Data, 9))
}
