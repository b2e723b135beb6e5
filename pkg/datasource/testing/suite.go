package testing

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/playground/pkg/datasource"
)

// SourceTestSuite is a conformance suite for datasource.DataSource
// implementations. It tests the interface contract, not implementation
// details, so every backend (memory, badger, s3, ...) runs the same checks.
//
// Usage:
//
//	func TestMySource(t *testing.T) {
//	    suite := &dstesting.SourceTestSuite{
//	        NewSource: func(t *testing.T, f dstesting.Fixture) datasource.DataSource {
//	            return mysource.NewSeeded(t, f)
//	        },
//	    }
//	    suite.Run(t)
//	}
type SourceTestSuite struct {
	// NewSource creates a fresh, not yet initialized data source holding the
	// fixture: its catalog, registered at "/", and one sample per period over
	// [DataBegin, DataEnd) with value Sample(i).
	NewSource func(t *testing.T, fixture Fixture) datasource.DataSource

	// Fixture overrides DefaultFixture when set.
	Fixture *Fixture
}

// Fixture describes the data a backend must hold for the suite.
type Fixture struct {
	Catalog        datasource.ResourceCatalog
	ResourceID     string
	Representation datasource.Representation

	DataBegin time.Time
	DataEnd   time.Time

	// Sample returns the value of the i-th sample after DataBegin.
	Sample func(i int) float64
}

// DefaultFixture is one FLOAT64 resource sampled every second for a minute.
func DefaultFixture() Fixture {
	rep := datasource.Representation{
		DataType:     datasource.FLOAT64,
		SamplePeriod: time.Second,
	}

	return Fixture{
		Catalog: datasource.ResourceCatalog{
			ID: "/TEST/CATALOG",
			Resources: []datasource.Resource{{
				ID:              "T1",
				Representations: []datasource.Representation{rep},
			}},
		},
		ResourceID:     "T1",
		Representation: rep,
		DataBegin:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		DataEnd:        time.Date(2020, 1, 1, 0, 1, 0, 0, time.UTC),
		Sample:         func(i int) float64 { return float64(i) * 0.5 },
	}
}

// Item returns the catalog item of the fixture resource.
func (f Fixture) Item() datasource.CatalogItem {
	resource, rep, _ := f.Catalog.Find(f.ResourceID, f.Representation.ID())
	return datasource.CatalogItem{
		Catalog:        f.Catalog,
		Resource:       resource,
		Representation: rep,
	}
}

// Run executes all tests in the suite.
func (suite *SourceTestSuite) Run(t *testing.T) {
	t.Run("Catalogs", suite.RunCatalogTests)
	t.Run("TimeRange", suite.RunTimeRangeTests)
	t.Run("Read", suite.RunReadTests)
}

func (suite *SourceTestSuite) fixture() Fixture {
	if suite.Fixture != nil {
		return *suite.Fixture
	}
	return DefaultFixture()
}

// newInitialized creates a source and calls SetContext on it.
func (suite *SourceTestSuite) newInitialized(t *testing.T) (datasource.DataSource, Fixture) {
	t.Helper()

	f := suite.fixture()
	ds := suite.NewSource(t, f)

	if err := ds.SetContext(testContext(), &datasource.Context{}, datasource.NopLogger); err != nil {
		t.Fatalf("SetContext failed: %v", err)
	}
	return ds, f
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
