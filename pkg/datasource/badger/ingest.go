package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/playground/pkg/datasource"
)

// PutRegistration stores a registration returned for queries of parent.
func (s *Source) PutRegistration(ctx context.Context, parent string, registration datasource.CatalogRegistration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if registration.Path == "" {
		return fmt.Errorf("registration path is empty")
	}

	value, err := json.Marshal(registration)
	if err != nil {
		return fmt.Errorf("failed to encode registration: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyRegistration(parent, registration.Path), value)
	})
}

// PutCatalog stores catalog, replacing any catalog with the same id.
func (s *Source) PutCatalog(ctx context.Context, catalog datasource.ResourceCatalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
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

	value, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyCatalog(catalog.ID), value)
	})
}

// PutSamples stores values as consecutive samples of one representation,
// the first one at begin. The catalog must exist and contain the resource
// and representation.
func (s *Source) PutSamples(ctx context.Context, catalogID, resourceID string, rep datasource.Representation, begin time.Time, values []float64) error {
	catalog, err := s.GetCatalog(ctx, catalogID)
	if err != nil {
		return err
	}
	if _, _, ok := catalog.Find(resourceID, rep.ID()); !ok {
		return fmt.Errorf("%w: %s/%s/%s", datasource.ErrResourceNotFound, catalogID, resourceID, rep.ID())
	}

	if len(values) > 0 {
		last := begin.Add(time.Duration(len(values)-1) * rep.SamplePeriod)
		if !storable(begin) || !storable(last) || last.Before(begin) {
			return fmt.Errorf("%w: samples from %s must lie between %s and %s",
				datasource.ErrInvalidInterval, begin, minTimestamp, maxTimestamp)
		}
	}

	series := keySeries(catalogID, resourceID, rep.ID())
	size := rep.DataType.ElementSize()

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i, v := range values {
		value := make([]byte, size)
		rep.DataType.PutValue(value, 0, v)

		t := begin.Add(time.Duration(i) * rep.SamplePeriod)
		if err := wb.Set(keySample(series, t), value); err != nil {
			return fmt.Errorf("failed to stage sample %d: %w", i, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	return nil
}

// getJSON decodes the value stored at key into out.
// Returns badger.ErrKeyNotFound if the key does not exist.
func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}
