package testing

import (
	"math"
	"testing"

	"github.com/marmos91/playground/pkg/datasource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTimeRangeTests executes time range and availability tests.
func (suite *SourceTestSuite) RunTimeRangeTests(t *testing.T) {
	t.Run("GetTimeRange_CoversData", suite.testTimeRangeCoversData)
	t.Run("GetTimeRange_NotFound", suite.testTimeRangeNotFound)
	t.Run("GetAvailability_FullData", suite.testAvailabilityFull)
	t.Run("GetAvailability_Bounds", suite.testAvailabilityBounds)
	t.Run("GetAvailability_NotFound", suite.testAvailabilityNotFound)
}

func (suite *SourceTestSuite) testTimeRangeCoversData(t *testing.T) {
	ds, f := suite.newInitialized(t)

	tr, err := ds.GetTimeRange(testContext(), f.Catalog.ID)
	require.NoError(t, err)

	assert.False(t, tr.Begin.After(f.DataBegin), "begin %s is after first sample %s", tr.Begin, f.DataBegin)
	assert.False(t, tr.End.Before(f.DataEnd), "end %s is before end of data %s", tr.End, f.DataEnd)
}

func (suite *SourceTestSuite) testTimeRangeNotFound(t *testing.T) {
	ds, _ := suite.newInitialized(t)

	_, err := ds.GetTimeRange(testContext(), "/DOES/NOT/EXIST")
	AssertErrorIs(t, datasource.ErrCatalogNotFound, err)
}

func (suite *SourceTestSuite) testAvailabilityFull(t *testing.T) {
	ds, f := suite.newInitialized(t)

	availability, err := ds.GetAvailability(testContext(), f.Catalog.ID, f.DataBegin, f.DataEnd)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, availability, 1e-9)
}

func (suite *SourceTestSuite) testAvailabilityBounds(t *testing.T) {
	ds, f := suite.newInitialized(t)

	// Half of the interval holds data.
	span := f.DataEnd.Sub(f.DataBegin)
	availability, err := ds.GetAvailability(testContext(), f.Catalog.ID, f.DataBegin.Add(-span), f.DataEnd)
	require.NoError(t, err)

	if math.IsNaN(availability) {
		return
	}
	assert.GreaterOrEqual(t, availability, 0.0)
	assert.LessOrEqual(t, availability, 1.0)
}

func (suite *SourceTestSuite) testAvailabilityNotFound(t *testing.T) {
	ds, f := suite.newInitialized(t)

	_, err := ds.GetAvailability(testContext(), "/DOES/NOT/EXIST", f.DataBegin, f.DataEnd)
	AssertErrorIs(t, datasource.ErrCatalogNotFound, err)
}
