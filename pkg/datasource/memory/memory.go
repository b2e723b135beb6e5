// Package memory implements a data source whose catalogs are declared in
// its plugin options and whose samples are a constant.
//
// It is meant for wiring tests and demos:
//
//	# friendly_user_2/plugin.yaml
//	kind: memory
//	options:
//	  registrations:
//	    "/":
//	      - path: CATALOG_2
//	  catalogs:
//	    - id: /CATALOG_2
//	      resources:
//	        - id: resource_1
//	          representations:
//	            - data_type: FLOAT64
//	              sample_period: 1s
//	  fill: 42
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/playground/pkg/datasource"
	"github.com/marmos91/playground/pkg/plugin"
)

// Kind is the plugin kind under which Register installs the factory.
const Kind = "memory"

// TimeRangeOptions is a fixed time range.
type TimeRangeOptions struct {
	Begin time.Time `mapstructure:"begin"`
	End   time.Time `mapstructure:"end"`
}

// Options configures a memory data source.
type Options struct {
	// Registrations maps a queried path to the registrations returned for it.
	// When nil, "/" lists every catalog: ids starting with "/" are returned
	// as absolute paths, others as relative ones.
	Registrations map[string][]datasource.CatalogRegistration `mapstructure:"registrations"`

	// Catalogs are the catalogs served, by id.
	Catalogs []datasource.ResourceCatalog `mapstructure:"catalogs"`

	// TimeRange is reported for every catalog. Default: the full range.
	TimeRange *TimeRangeOptions `mapstructure:"time_range"`

	// Availability is reported for every catalog. Default: NaN.
	Availability *float64 `mapstructure:"availability"`

	// Fill is the value of every sample read.
	Fill float64 `mapstructure:"fill"`
}

// Source is an in-memory data source. It is immutable after New and safe for
// concurrent use.
type Source struct {
	datasource.Simple

	options  Options
	catalogs map[string]datasource.ResourceCatalog
}

var _ datasource.DataSource = (*Source)(nil)

// New creates a memory data source from options.
func New(options Options) (*Source, error) {
	catalogs := make(map[string]datasource.ResourceCatalog, len(options.Catalogs))

	for _, catalog := range options.Catalogs {
		if catalog.ID == "" {
			return nil, fmt.Errorf("memory data source: catalog without id")
		}
		if _, exists := catalogs[catalog.ID]; exists {
			return nil, fmt.Errorf("memory data source: duplicate catalog %q", catalog.ID)
		}
		for _, resource := range catalog.Resources {
			for _, rep := range resource.Representations {
				if err := rep.Validate(); err != nil {
					return nil, fmt.Errorf("memory data source: %s/%s: %w", catalog.ID, resource.ID, err)
				}
			}
		}
		catalogs[catalog.ID] = catalog
	}

	if options.Availability != nil && (*options.Availability < 0 || *options.Availability > 1) {
		return nil, fmt.Errorf("memory data source: availability must be within [0, 1], got %v", *options.Availability)
	}

	return &Source{options: options, catalogs: catalogs}, nil
}

// Register installs the memory factory in reg.
func Register(reg *plugin.Registry) error {
	return reg.Register(Kind, func(ctx context.Context, spec plugin.Spec) (datasource.DataSource, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var options Options
		if err := plugin.DecodeOptions(spec.Options, &options); err != nil {
			return nil, err
		}
		return New(options)
	})
}

func (s *Source) GetCatalogRegistrations(_ context.Context, path string) ([]datasource.CatalogRegistration, error) {
	if s.options.Registrations != nil {
		found := s.options.Registrations[path]
		registrations := make([]datasource.CatalogRegistration, len(found))
		copy(registrations, found)
		return registrations, nil
	}

	if path != "/" {
		return []datasource.CatalogRegistration{}, nil
	}

	registrations := make([]datasource.CatalogRegistration, 0, len(s.options.Catalogs))
	for _, catalog := range s.options.Catalogs {
		registrations = append(registrations, datasource.CatalogRegistration{Path: catalog.ID})
	}
	return registrations, nil
}

func (s *Source) GetCatalog(_ context.Context, catalogID string) (datasource.ResourceCatalog, error) {
	catalog, ok := s.catalogs[catalogID]
	if !ok {
		return datasource.ResourceCatalog{}, fmt.Errorf("%w: %s", datasource.ErrCatalogNotFound, catalogID)
	}
	return catalog, nil
}

func (s *Source) GetTimeRange(ctx context.Context, catalogID string) (datasource.TimeRange, error) {
	if _, err := s.GetCatalog(ctx, catalogID); err != nil {
		return datasource.TimeRange{}, err
	}

	if tr := s.options.TimeRange; tr != nil {
		return datasource.TimeRange{Begin: tr.Begin.UTC(), End: tr.End.UTC()}, nil
	}
	return s.Simple.GetTimeRange(ctx, catalogID)
}

func (s *Source) GetAvailability(ctx context.Context, catalogID string, begin, end time.Time) (float64, error) {
	if _, err := s.GetCatalog(ctx, catalogID); err != nil {
		return 0, err
	}

	if s.options.Availability != nil {
		return *s.options.Availability, nil
	}
	return s.Simple.GetAvailability(ctx, catalogID, begin, end)
}

// Read fills every requested sample with the configured fill value.
func (s *Source) Read(
	ctx context.Context,
	begin, end time.Time,
	requests []datasource.ReadRequest,
	_ datasource.ReadDataHandler,
	progress datasource.ProgressReporter,
) error {
	for i, request := range requests {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.check(request); err != nil {
			return err
		}

		n, err := request.CheckBuffers(begin, end)
		if err != nil {
			return err
		}

		dataType := request.CatalogItem.Representation.DataType
		for j := 0; j < n; j++ {
			dataType.PutValue(request.Data, j, s.options.Fill)
			request.Status[j] = 1
		}

		if progress != nil {
			progress(float64(i+1) / float64(len(requests)))
		}
	}

	return nil
}

// check verifies that the catalog item of request exists.
func (s *Source) check(request datasource.ReadRequest) error {
	item := request.CatalogItem

	catalog, ok := s.catalogs[item.Catalog.ID]
	if !ok {
		return fmt.Errorf("%w: %s", datasource.ErrCatalogNotFound, item.Catalog.ID)
	}

	if _, _, ok := catalog.Find(item.Resource.ID, item.Representation.ID()); !ok {
		return fmt.Errorf("%w: %s", datasource.ErrResourceNotFound, item.Path())
	}

	return nil
}
