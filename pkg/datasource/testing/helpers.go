package testing

import (
	"errors"
	"testing"

	"github.com/marmos91/playground/pkg/datasource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorIs asserts that err matches target with errors.Is.
func AssertErrorIs(t *testing.T, target, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, target), "expected %v, got %v", target, err)
}

// AssertSamples asserts that every sample of request is valid and equals
// f.Sample(offset + i).
func AssertSamples(t *testing.T, f Fixture, request datasource.ReadRequest, offset int) {
	t.Helper()

	dataType := request.CatalogItem.Representation.DataType
	for i := range request.Status {
		require.Equal(t, byte(1), request.Status[i], "status of sample %d", i)
		assert.Equal(t, f.Sample(offset+i), dataType.Value(request.Data, i), "value of sample %d", i)
	}
}

// mustNewRequest allocates a request over the fixture data interval.
func mustNewRequest(t *testing.T, item datasource.CatalogItem, f Fixture) datasource.ReadRequest {
	t.Helper()

	request, err := datasource.NewReadRequest(item, f.DataBegin, f.DataEnd)
	require.NoError(t, err)
	return request
}
