package datasource

import "errors"

// Errors shared by data source implementations. Callers match them with
// errors.Is; implementations wrap them with the offending id.
var (
	// ErrCatalogNotFound is returned for unknown catalog ids.
	ErrCatalogNotFound = errors.New("catalog not found")

	// ErrResourceNotFound is returned when a read request names a resource or
	// representation its catalog does not have.
	ErrResourceNotFound = errors.New("resource not found")
)
