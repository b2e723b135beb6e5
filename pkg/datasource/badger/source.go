package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/playground/pkg/datasource"
)

func (s *Source) GetCatalogRegistrations(ctx context.Context, path string) ([]datasource.CatalogRegistration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	registrations := []datasource.CatalogRegistration{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyRegistrationPrefix(path)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var registration datasource.CatalogRegistration
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &registration)
			})
			if err != nil {
				return fmt.Errorf("failed to decode registration %q: %w", it.Item().Key(), err)
			}
			registrations = append(registrations, registration)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return registrations, nil
}

func (s *Source) GetCatalog(ctx context.Context, catalogID string) (datasource.ResourceCatalog, error) {
	if err := ctx.Err(); err != nil {
		return datasource.ResourceCatalog{}, err
	}

	var catalog datasource.ResourceCatalog
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, keyCatalog(catalogID), &catalog)
	})
	if isNotFound(err) {
		return datasource.ResourceCatalog{}, fmt.Errorf("%w: %s", datasource.ErrCatalogNotFound, catalogID)
	}
	if err != nil {
		return datasource.ResourceCatalog{}, fmt.Errorf("failed to load catalog %s: %w", catalogID, err)
	}

	return catalog, nil
}

// GetTimeRange returns the interval from the first sample to the end of the
// last sample over all series of the catalog, or the full range if the
// catalog holds no samples.
func (s *Source) GetTimeRange(ctx context.Context, catalogID string) (datasource.TimeRange, error) {
	catalog, err := s.GetCatalog(ctx, catalogID)
	if err != nil {
		return datasource.TimeRange{}, err
	}

	periods := seriesPeriods(catalog)

	var (
		begin, end time.Time
		found      bool
	)

	err = s.db.View(func(txn *badger.Txn) error {
		prefix := keyCatalogData(catalogID)

		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			series, t, ok := splitSampleKey(it.Item().Key()[len(prefix):])
			if !ok {
				continue
			}

			last := t.Add(periods[series])
			if !found || t.Before(begin) {
				begin = t
			}
			if !found || last.After(end) {
				end = last
			}
			found = true
		}
		return nil
	})
	if err != nil {
		return datasource.TimeRange{}, err
	}

	if !found {
		return s.Simple.GetTimeRange(ctx, catalogID)
	}
	return datasource.TimeRange{Begin: begin, End: end}, nil
}

// GetAvailability returns the fraction of expected samples of the first
// representation of the catalog that are stored in [begin, end), or NaN
// if the catalog holds no samples at all.
func (s *Source) GetAvailability(ctx context.Context, catalogID string, begin, end time.Time) (float64, error) {
	catalog, err := s.GetCatalog(ctx, catalogID)
	if err != nil {
		return 0, err
	}

	resource, rep, ok := firstRepresentation(catalog)
	if !ok {
		return math.NaN(), nil
	}

	hasData, err := s.hasData(catalogID)
	if err != nil {
		return 0, err
	}
	if !hasData {
		return math.NaN(), nil
	}

	if !end.After(begin) {
		return 0, nil
	}
	expected := int(end.Sub(begin) / rep.SamplePeriod)
	if expected == 0 {
		return 0, nil
	}

	series := keySeries(catalogID, resource.ID, rep.ID())
	stored := 0

	err = s.scanSeries(series, begin, end, false, func(time.Time, []byte) {
		stored++
	})
	if err != nil {
		return 0, err
	}

	return math.Min(1, float64(stored)/float64(expected)), nil
}

// Read copies the stored samples of every request into its buffers. Samples
// that are not stored keep status 0.
func (s *Source) Read(
	ctx context.Context,
	begin, end time.Time,
	requests []datasource.ReadRequest,
	_ datasource.ReadDataHandler,
	progress datasource.ProgressReporter,
) error {
	for i, request := range requests {
		if err := s.readOne(ctx, begin, end, request); err != nil {
			return err
		}

		if progress != nil {
			progress(float64(i+1) / float64(len(requests)))
		}
	}
	return nil
}

func (s *Source) readOne(ctx context.Context, begin, end time.Time, request datasource.ReadRequest) error {
	item := request.CatalogItem

	catalog, err := s.GetCatalog(ctx, item.Catalog.ID)
	if err != nil {
		return err
	}

	resource, rep, ok := catalog.Find(item.Resource.ID, item.Representation.ID())
	if !ok {
		return fmt.Errorf("%w: %s", datasource.ErrResourceNotFound, item.Path())
	}

	if _, err := request.CheckBuffers(begin, end); err != nil {
		return err
	}

	size := rep.DataType.ElementSize()
	series := keySeries(catalog.ID, resource.ID, rep.ID())

	return s.scanSeries(series, begin, end, true, func(t time.Time, value []byte) {
		offset := t.Sub(begin)
		if offset%rep.SamplePeriod != 0 || len(value) != size {
			return
		}

		index := int(offset / rep.SamplePeriod)
		copy(request.Data[index*size:(index+1)*size], value)
		request.Status[index] = 1
	})
}

// scanSeries calls fn for every sample of series in [begin, end), in
// chronological order. value is only valid during the call and is nil
// unless withValues is set.
func (s *Source) scanSeries(series []byte, begin, end time.Time, withValues bool, fn func(t time.Time, value []byte)) error {
	endKey := keySample(series, end)

	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = series
		opts.PrefetchValues = withValues

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(keySample(series, begin)); it.Valid(); it.Next() {
			key := it.Item().Key()
			if bytes.Compare(key, endKey) >= 0 {
				break
			}

			t := decodeTimestamp(key[len(series):])
			if !withValues {
				fn(t, nil)
				continue
			}

			if err := it.Item().Value(func(val []byte) error {
				fn(t, val)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Source) hasData(catalogID string) (bool, error) {
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyCatalogData(catalogID)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		it.Rewind()
		found = it.Valid()
		return nil
	})

	return found, err
}

// seriesPeriods maps "<resourceID>\x00<repID>" to the sample period.
func seriesPeriods(catalog datasource.ResourceCatalog) map[string]time.Duration {
	periods := make(map[string]time.Duration)
	for _, resource := range catalog.Resources {
		for _, rep := range resource.Representations {
			periods[resource.ID+separator+rep.ID()] = rep.SamplePeriod
		}
	}
	return periods
}

func firstRepresentation(catalog datasource.ResourceCatalog) (datasource.Resource, datasource.Representation, bool) {
	for _, resource := range catalog.Resources {
		if len(resource.Representations) > 0 {
			return resource, resource.Representations[0], true
		}
	}
	return datasource.Resource{}, datasource.Representation{}, false
}
