package testing

import (
	"strings"
	"testing"

	"github.com/marmos91/playground/pkg/datasource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCatalogTests executes registration and catalog lookup tests.
func (suite *SourceTestSuite) RunCatalogTests(t *testing.T) {
	t.Run("Registrations_Root", suite.testRegistrationsRoot)
	t.Run("Registrations_UnknownPath", suite.testRegistrationsUnknownPath)
	t.Run("GetCatalog_Success", suite.testGetCatalogSuccess)
	t.Run("GetCatalog_NotFound", suite.testGetCatalogNotFound)
	t.Run("FetchCatalog_EchoesID", suite.testFetchCatalogEchoesID)
}

func (suite *SourceTestSuite) testRegistrationsRoot(t *testing.T) {
	ds, f := suite.newInitialized(t)

	registrations, err := ds.GetCatalogRegistrations(testContext(), "/")
	require.NoError(t, err)

	var paths []string
	for _, r := range registrations {
		paths = append(paths, resolveRegistration("/", r.Path))
	}
	assert.Contains(t, paths, f.Catalog.ID)
}

func (suite *SourceTestSuite) testRegistrationsUnknownPath(t *testing.T) {
	ds, _ := suite.newInitialized(t)

	registrations, err := ds.GetCatalogRegistrations(testContext(), "/DOES/NOT/EXIST/")
	require.NoError(t, err)
	assert.Empty(t, registrations)
}

func (suite *SourceTestSuite) testGetCatalogSuccess(t *testing.T) {
	ds, f := suite.newInitialized(t)

	catalog, err := ds.GetCatalog(testContext(), f.Catalog.ID)
	require.NoError(t, err)
	assert.Equal(t, f.Catalog.ID, catalog.ID)

	resource, rep, ok := catalog.Find(f.ResourceID, f.Representation.ID())
	require.True(t, ok, "catalog misses %s/%s", f.ResourceID, f.Representation.ID())
	assert.Equal(t, f.ResourceID, resource.ID)
	assert.Equal(t, f.Representation.DataType, rep.DataType)
	assert.Equal(t, f.Representation.SamplePeriod, rep.SamplePeriod)
}

func (suite *SourceTestSuite) testGetCatalogNotFound(t *testing.T) {
	ds, _ := suite.newInitialized(t)

	_, err := ds.GetCatalog(testContext(), "/DOES/NOT/EXIST")
	AssertErrorIs(t, datasource.ErrCatalogNotFound, err)
}

func (suite *SourceTestSuite) testFetchCatalogEchoesID(t *testing.T) {
	ds, f := suite.newInitialized(t)

	catalog, err := datasource.FetchCatalog(testContext(), ds, f.Catalog.ID)
	require.NoError(t, err)
	assert.Equal(t, f.Catalog.ID, catalog.ID)
}

// resolveRegistration applies the registration path rule: absolute paths
// stand alone, relative ones extend the queried path.
func resolveRegistration(queried, path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return queried + path
}
