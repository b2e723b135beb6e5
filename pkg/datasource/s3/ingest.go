package s3

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marmos91/playground/pkg/datasource"
)

// PutIndex replaces index.json.
func (s *Source) PutIndex(ctx context.Context, entries []IndexEntry) error {
	body, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return s.putObject(ctx, s.layout.index(), body)
}

// PutCatalog stores catalog, replacing any catalog with the same id.
func (s *Source) PutCatalog(ctx context.Context, catalog datasource.ResourceCatalog) error {
	if catalog.ID == "" {
		return fmt.Errorf("catalog id is empty")
	}
	for _, resource := range catalog.Resources {
		for _, rep := range resource.Representations {
			if err := rep.Validate(); err != nil {
				return fmt.Errorf("%s/%s: %w", catalog.ID, resource.ID, err)
			}
		}
	}

	body, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	return s.putObject(ctx, s.layout.catalog(catalog.ID), body)
}

// PutDay writes the day object of one representation. values[0] is the
// sample at 00:00 UTC of the day containing dayStart; at most one day of
// samples is accepted.
func (s *Source) PutDay(ctx context.Context, catalogID, resourceID string, rep datasource.Representation, dayStart time.Time, values []float64) error {
	catalog, err := s.GetCatalog(ctx, catalogID)
	if err != nil {
		return err
	}
	if _, _, ok := catalog.Find(resourceID, rep.ID()); !ok {
		return fmt.Errorf("%w: %s/%s/%s", datasource.ErrResourceNotFound, catalogID, resourceID, rep.ID())
	}

	if limit := int(day / rep.SamplePeriod); len(values) > limit {
		return fmt.Errorf("%d samples exceed one day (%d) of %s", len(values), limit, rep.ID())
	}

	body := make([]byte, len(values)*rep.DataType.ElementSize())
	for i, v := range values {
		rep.DataType.PutValue(body, i, v)
	}

	series := s.layout.series(catalogID, resourceID, rep.ID())
	return s.putObject(ctx, s.layout.dayObject(series, startOfDay(dayStart)), body)
}
