package testing

import (
	"testing"

	"github.com/marmos91/playground/pkg/datasource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunReadTests executes Read tests.
func (suite *SourceTestSuite) RunReadTests(t *testing.T) {
	t.Run("Read_FullData", suite.testReadFullData)
	t.Run("Read_SubInterval", suite.testReadSubInterval)
	t.Run("Read_ReportsProgress", suite.testReadReportsProgress)
	t.Run("Read_UnknownCatalog", suite.testReadUnknownCatalog)
	t.Run("Read_UnknownResource", suite.testReadUnknownResource)
	t.Run("Read_BadBuffers", suite.testReadBadBuffers)
}

func (suite *SourceTestSuite) testReadFullData(t *testing.T) {
	ds, f := suite.newInitialized(t)

	request := mustNewRequest(t, f.Item(), f)
	require.NoError(t, ds.Read(testContext(), f.DataBegin, f.DataEnd, []datasource.ReadRequest{request}, nil, nil))

	AssertSamples(t, f, request, 0)
}

func (suite *SourceTestSuite) testReadSubInterval(t *testing.T) {
	ds, f := suite.newInitialized(t)

	period := f.Representation.SamplePeriod
	begin := f.DataBegin.Add(10 * period)
	end := f.DataBegin.Add(20 * period)

	request, err := datasource.NewReadRequest(f.Item(), begin, end)
	require.NoError(t, err)

	require.NoError(t, ds.Read(testContext(), begin, end, []datasource.ReadRequest{request}, nil, nil))
	require.Len(t, request.Status, 10)

	AssertSamples(t, f, request, 10)
}

func (suite *SourceTestSuite) testReadReportsProgress(t *testing.T) {
	ds, f := suite.newInitialized(t)

	requests := []datasource.ReadRequest{
		mustNewRequest(t, f.Item(), f),
		mustNewRequest(t, f.Item(), f),
	}

	var progress []float64
	reporter := func(p float64) { progress = append(progress, p) }

	require.NoError(t, ds.Read(testContext(), f.DataBegin, f.DataEnd, requests, nil, reporter))

	require.NotEmpty(t, progress)
	assert.InDelta(t, 1.0, progress[len(progress)-1], 1e-9)
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1], "progress must not decrease")
	}
}

func (suite *SourceTestSuite) testReadUnknownCatalog(t *testing.T) {
	ds, f := suite.newInitialized(t)

	item := f.Item()
	item.Catalog = datasource.ResourceCatalog{ID: "/DOES/NOT/EXIST"}

	request := mustNewRequest(t, item, f)
	err := ds.Read(testContext(), f.DataBegin, f.DataEnd, []datasource.ReadRequest{request}, nil, nil)
	AssertErrorIs(t, datasource.ErrCatalogNotFound, err)
}

func (suite *SourceTestSuite) testReadUnknownResource(t *testing.T) {
	ds, f := suite.newInitialized(t)

	item := f.Item()
	item.Resource = datasource.Resource{ID: "NO_SUCH_RESOURCE"}

	request := mustNewRequest(t, item, f)
	err := ds.Read(testContext(), f.DataBegin, f.DataEnd, []datasource.ReadRequest{request}, nil, nil)
	AssertErrorIs(t, datasource.ErrResourceNotFound, err)
}

func (suite *SourceTestSuite) testReadBadBuffers(t *testing.T) {
	ds, f := suite.newInitialized(t)

	request := mustNewRequest(t, f.Item(), f)
	request.Status = request.Status[:len(request.Status)-1]

	err := ds.Read(testContext(), f.DataBegin, f.DataEnd, []datasource.ReadRequest{request}, nil, nil)
	assert.Error(t, err)
}
