// Package datasource defines the capability interface every mounted backend
// implements, together with the catalog data model exchanged across it.
//
// A DataSource is initialized once through SetContext and then serves catalog
// discovery (GetCatalogRegistrations), metadata lookup (GetCatalog or, for
// sources implementing CatalogEnricher, EnrichCatalog), time range and
// availability queries, and data reads into caller-supplied buffers.
//
// Implementations must be safe for concurrent use once SetContext returned:
// callers may issue operations on the same instance from several goroutines.
package datasource

import (
	"context"
	"net/url"
	"time"
)

// DataSource is the backend capability interface.
type DataSource interface {
	// SetContext initializes the data source. It is called exactly once,
	// before any other method.
	SetContext(ctx context.Context, dsctx *Context, logger Logger) error

	// GetCatalogRegistrations lists the catalogs available below path.
	// Returned paths are either absolute or relative to path.
	GetCatalogRegistrations(ctx context.Context, path string) ([]CatalogRegistration, error)

	// GetCatalog returns the catalog identified by catalogID. The returned
	// catalog must carry exactly catalogID as its ID.
	GetCatalog(ctx context.Context, catalogID string) (ResourceCatalog, error)

	// GetTimeRange returns the interval for which the catalog holds data.
	GetTimeRange(ctx context.Context, catalogID string) (TimeRange, error)

	// GetAvailability returns the fraction in [0, 1] of data present in
	// [begin, end), or NaN if undefined.
	GetAvailability(ctx context.Context, catalogID string, begin, end time.Time) (float64, error)

	// Read fills the Data and Status buffers of every request for [begin, end).
	Read(ctx context.Context, begin, end time.Time, requests []ReadRequest, readData ReadDataHandler, progress ProgressReporter) error
}

// CatalogEnricher is implemented by data sources speaking the enrichment
// variant of the catalog protocol: they receive a (possibly partial) catalog
// and return a completed one with the same ID.
type CatalogEnricher interface {
	EnrichCatalog(ctx context.Context, catalog ResourceCatalog) (ResourceCatalog, error)
}

// ReadDataHandler lets a data source read data of other resources, addressed
// by resource path, while serving a Read call.
type ReadDataHandler func(ctx context.Context, resourcePath string, begin, end time.Time) ([]float64, error)

// ProgressReporter receives read progress in [0, 1]. It may be nil.
type ProgressReporter func(progress float64)

// Context carries the configuration handed to a data source at initialization.
type Context struct {
	// ResourceLocator points to the data the source should serve (optional).
	ResourceLocator *url.URL `json:"resourceLocator,omitempty"`

	// SystemConfiguration is shared by all data sources of a host.
	SystemConfiguration map[string]any `json:"systemConfiguration,omitempty"`

	// SourceConfiguration is specific to this data source instance.
	SourceConfiguration map[string]any `json:"sourceConfiguration,omitempty"`

	// RequestConfiguration carries per-request settings (optional).
	RequestConfiguration map[string]any `json:"requestConfiguration,omitempty"`
}

// LogLevel is the severity of a message sent through Logger.
type LogLevel int

const (
	LogTrace LogLevel = iota
	LogDebug
	LogInformation
	LogWarning
	LogError
	LogCritical
)

func (l LogLevel) String() string {
	switch l {
	case LogTrace:
		return "Trace"
	case LogDebug:
		return "Debug"
	case LogInformation:
		return "Information"
	case LogWarning:
		return "Warning"
	case LogError:
		return "Error"
	case LogCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Logger is the logging sink handed to a data source.
type Logger interface {
	Log(level LogLevel, message string)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(level LogLevel, message string)

func (f LoggerFunc) Log(level LogLevel, message string) { f(level, message) }

// NopLogger discards every message.
var NopLogger Logger = LoggerFunc(func(LogLevel, string) {})

// FetchCatalog retrieves catalogID from ds, preferring EnrichCatalog when
// the source implements CatalogEnricher.
func FetchCatalog(ctx context.Context, ds DataSource, catalogID string) (ResourceCatalog, error) {
	if enricher, ok := ds.(CatalogEnricher); ok {
		return enricher.EnrichCatalog(ctx, ResourceCatalog{ID: catalogID})
	}
	return ds.GetCatalog(ctx, catalogID)
}
