package playground

import (
	"context"
	"strings"
	"time"

	"github.com/marmos91/playground/pkg/datasource"
	"github.com/marmos91/playground/pkg/mount"
)

// GetCatalogRegistrations queries every mounted data source in mount order
// and returns the union of their registrations with prefixed paths.
//
// The path "/" is replaced, per data source, by "<prefix>/" so that each
// one is queried at its own mount root. A returned absolute path becomes
// prefix+path; a relative one becomes prefix+local+path where local is the
// path the data source was queried with.
//
// A failing data source is logged at debug level and left out of the
// result; it never fails the whole call.
func (p *Playground) GetCatalogRegistrations(ctx context.Context, path string) ([]datasource.CatalogRegistration, error) {
	table, err := p.mounted()
	if err != nil {
		return nil, err
	}

	var registrations []datasource.CatalogRegistration

	for _, entry := range table.Entries() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		actual := path
		if actual == "/" {
			actual = entry.Prefix + "/"
		}

		if !strings.HasPrefix(actual, entry.Prefix) {
			p.debug("Skipping data source of owner %s for path %s: not below %s", entry.Owner, actual, entry.Prefix)
			continue
		}

		local := mount.Strip(entry.Prefix, actual)

		start := time.Now()
		found, err := entry.Source.GetCatalogRegistrations(ctx, local)
		p.metrics.RecordOperation(opRegistrations, entry.Owner, time.Since(start), err)

		if err != nil {
			p.debug("Unable to get catalog registrations from data source of owner %s. Reason: %v", entry.Owner, err)
			p.metrics.RecordSuppressedError(opRegistrations, entry.Owner)
			continue
		}

		for _, registration := range found {
			registrations = append(registrations, rewriteRegistration(entry.Prefix, local, registration))
		}
	}

	return registrations, nil
}

func rewriteRegistration(prefix, local string, registration datasource.CatalogRegistration) datasource.CatalogRegistration {
	if strings.HasPrefix(registration.Path, "/") {
		registration.Path = mount.Extend(prefix, registration.Path)
	} else {
		registration.Path = mount.Extend(prefix, local+registration.Path)
	}
	return registration
}

// GetCatalog returns the catalog catalogID from its owning data source, with
// the id rewritten back into the aggregate namespace.
//
// Fails with NotFoundError if no prefix matches and ContractViolationError
// if the data source answers with a different catalog id.
func (p *Playground) GetCatalog(ctx context.Context, catalogID string) (catalog datasource.ResourceCatalog, err error) {
	entry, err := p.resolve(catalogID)
	if err != nil {
		return datasource.ResourceCatalog{}, err
	}

	start := time.Now()
	defer func() { p.metrics.RecordOperation(opGetCatalog, entry.Owner, time.Since(start), err) }()

	local := mount.Strip(entry.Prefix, catalogID)

	catalog, err = datasource.FetchCatalog(ctx, entry.Source, local)
	if err != nil {
		return datasource.ResourceCatalog{}, err
	}

	return extendCatalog(entry.Prefix, local, catalog)
}

// EnrichCatalog is GetCatalog for callers speaking the enrichment variant of
// the protocol: only catalog.ID is used to locate the data source.
func (p *Playground) EnrichCatalog(ctx context.Context, catalog datasource.ResourceCatalog) (enriched datasource.ResourceCatalog, err error) {
	entry, err := p.resolve(catalog.ID)
	if err != nil {
		return datasource.ResourceCatalog{}, err
	}

	start := time.Now()
	defer func() { p.metrics.RecordOperation(opEnrichCatalog, entry.Owner, time.Since(start), err) }()

	local := mount.Strip(entry.Prefix, catalog.ID)

	enriched, err = datasource.FetchCatalog(ctx, entry.Source, local)
	if err != nil {
		return datasource.ResourceCatalog{}, err
	}

	return extendCatalog(entry.Prefix, local, enriched)
}

func extendCatalog(prefix, local string, catalog datasource.ResourceCatalog) (datasource.ResourceCatalog, error) {
	if catalog.ID != local {
		return datasource.ResourceCatalog{}, contractViolation(local, catalog.ID)
	}

	catalog.ID = mount.Extend(prefix, catalog.ID)
	return catalog, nil
}

// GetTimeRange forwards to the owning data source.
func (p *Playground) GetTimeRange(ctx context.Context, catalogID string) (timeRange datasource.TimeRange, err error) {
	entry, err := p.resolve(catalogID)
	if err != nil {
		return datasource.TimeRange{}, err
	}

	start := time.Now()
	defer func() { p.metrics.RecordOperation(opGetTimeRange, entry.Owner, time.Since(start), err) }()

	return entry.Source.GetTimeRange(ctx, mount.Strip(entry.Prefix, catalogID))
}

// GetAvailability forwards to the owning data source. The result is a
// fraction in [0, 1] or NaN, unchanged.
func (p *Playground) GetAvailability(ctx context.Context, catalogID string, begin, end time.Time) (availability float64, err error) {
	entry, err := p.resolve(catalogID)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	defer func() { p.metrics.RecordOperation(opGetAvailability, entry.Owner, time.Since(start), err) }()

	return entry.Source.GetAvailability(ctx, mount.Strip(entry.Prefix, catalogID), begin, end)
}

// Read forwards every request, in order, to the data source owning its
// catalog. Each request is sent in its own single-element call, carrying a
// copy of its catalog item whose catalog id is backend-local; the caller's
// requests are not modified. Data and status buffers are shared, so the
// data source writes into the caller's buffers. handler and progress are
// passed through as is.
//
// The first failure aborts the remaining requests.
func (p *Playground) Read(
	ctx context.Context,
	begin, end time.Time,
	requests []datasource.ReadRequest,
	handler datasource.ReadDataHandler,
	progress datasource.ProgressReporter,
) error {
	for _, request := range requests {
		catalogID := request.CatalogItem.Catalog.ID

		entry, err := p.resolve(catalogID)
		if err != nil {
			return err
		}

		local := request
		local.CatalogItem.Catalog.ID = mount.Strip(entry.Prefix, catalogID)

		start := time.Now()
		err = entry.Source.Read(ctx, begin, end, []datasource.ReadRequest{local}, handler, progress)
		p.metrics.RecordOperation(opRead, entry.Owner, time.Since(start), err)

		if err != nil {
			return err
		}
	}

	return nil
}
