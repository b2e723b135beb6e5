package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNexusDataType_ElementSize(t *testing.T) {
	tests := []struct {
		dataType NexusDataType
		size     int
	}{
		{UINT8, 1},
		{INT8, 1},
		{INT16, 2},
		{UINT32, 4},
		{FLOAT32, 4},
		{INT64, 8},
		{FLOAT64, 8},
	}

	for _, tt := range tests {
		t.Run(tt.dataType.String(), func(t *testing.T) {
			assert.Equal(t, tt.size, tt.dataType.ElementSize())
		})
	}
}

func TestNexusDataType_PutValue(t *testing.T) {
	buf := make([]byte, 3*INT16.ElementSize())
	INT16.PutValue(buf, 1, -42)

	assert.Equal(t, float64(0), INT16.Value(buf, 0))
	assert.Equal(t, float64(-42), INT16.Value(buf, 1))

	f := make([]byte, FLOAT64.ElementSize())
	FLOAT64.PutValue(f, 0, math.Pi)
	assert.Equal(t, math.Pi, FLOAT64.Value(f, 0))
}

func TestParseDataType(t *testing.T) {
	dt, err := ParseDataType("float64")
	require.NoError(t, err)
	assert.Equal(t, FLOAT64, dt)

	_, err = ParseDataType("COMPLEX128")
	assert.Error(t, err)
}

func TestRepresentation_ID(t *testing.T) {
	assert.Equal(t, "1_s", Representation{DataType: FLOAT64, SamplePeriod: time.Second}.ID())
	assert.Equal(t, "100_ms", Representation{DataType: FLOAT64, SamplePeriod: 100 * time.Millisecond}.ID())
	assert.Equal(t, "10_min_mean", Representation{DataType: FLOAT64, SamplePeriod: 10 * time.Minute, Kind: KindMean}.ID())
	assert.Equal(t, "90_s", Representation{DataType: FLOAT64, SamplePeriod: 90 * time.Second}.ID())
}

func TestRepresentation_JSON(t *testing.T) {
	rep := Representation{DataType: FLOAT32, SamplePeriod: 250 * time.Millisecond}

	raw, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.JSONEq(t, `{"dataType":"FLOAT32","samplePeriod":"250ms"}`, string(raw))

	var decoded Representation
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, rep, decoded)
}

func TestCreateBuffers(t *testing.T) {
	rep := Representation{DataType: FLOAT64, SamplePeriod: time.Second}
	begin := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	data, status, err := CreateBuffers(rep, begin, begin.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, data, 60*8)
	assert.Len(t, status, 60)

	data, status, err = CreateBuffers(rep, begin, begin)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Empty(t, status)

	_, _, err = CreateBuffers(rep, begin, begin.Add(1500*time.Millisecond))
	assert.True(t, errors.Is(err, ErrInvalidInterval))

	_, _, err = CreateBuffers(rep, begin, begin.Add(-time.Second))
	assert.True(t, errors.Is(err, ErrInvalidInterval))

	// math.MaxInt64 one-nanosecond samples: the byte size overflows int
	nano := Representation{DataType: FLOAT64, SamplePeriod: time.Nanosecond}
	_, _, err = CreateBuffers(nano, begin, begin.Add(time.Duration(math.MaxInt64)))
	assert.True(t, errors.Is(err, ErrInvalidInterval))
}

func TestSimple_Defaults(t *testing.T) {
	var s Simple
	require.NoError(t, s.SetContext(context.Background(), &Context{}, nil))

	tr, err := s.GetTimeRange(context.Background(), "/A")
	require.NoError(t, err)
	assert.Equal(t, MinTime, tr.Begin)
	assert.Equal(t, MaxTime, tr.End)

	availability, err := s.GetAvailability(context.Background(), "/A", time.Now(), time.Now())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(availability))
}

type plainSource struct {
	Simple
	calls []string
}

func (p *plainSource) GetCatalogRegistrations(context.Context, string) ([]CatalogRegistration, error) {
	return nil, nil
}

func (p *plainSource) GetCatalog(_ context.Context, id string) (ResourceCatalog, error) {
	p.calls = append(p.calls, "get")
	return ResourceCatalog{ID: id}, nil
}

func (p *plainSource) Read(context.Context, time.Time, time.Time, []ReadRequest, ReadDataHandler, ProgressReporter) error {
	return nil
}

type enrichingSource struct {
	plainSource
}

func (e *enrichingSource) EnrichCatalog(_ context.Context, catalog ResourceCatalog) (ResourceCatalog, error) {
	e.calls = append(e.calls, "enrich")
	return ResourceCatalog{ID: catalog.ID, Properties: map[string]any{"enriched": true}}, nil
}

func TestFetchCatalog(t *testing.T) {
	ctx := context.Background()

	plain := &plainSource{}
	catalog, err := FetchCatalog(ctx, plain, "/A")
	require.NoError(t, err)
	assert.Equal(t, "/A", catalog.ID)
	assert.Equal(t, []string{"get"}, plain.calls)

	enriching := &enrichingSource{}
	catalog, err = FetchCatalog(ctx, enriching, "/B")
	require.NoError(t, err)
	assert.Equal(t, "/B", catalog.ID)
	assert.Equal(t, true, catalog.Properties["enriched"])
	assert.Equal(t, []string{"enrich"}, enriching.calls)
}
