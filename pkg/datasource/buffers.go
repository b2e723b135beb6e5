package datasource

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidInterval is returned when an interval cannot be sampled by a
// representation.
var ErrInvalidInterval = errors.New("invalid interval")

// ElementCount returns the number of samples of rep in [begin, end).
func ElementCount(rep Representation, begin, end time.Time) (int, error) {
	if err := rep.Validate(); err != nil {
		return 0, err
	}
	if end.Before(begin) {
		return 0, fmt.Errorf("%w: end %s is before begin %s", ErrInvalidInterval, end, begin)
	}

	span := end.Sub(begin)
	if span%rep.SamplePeriod != 0 {
		return 0, fmt.Errorf("%w: %v is not a multiple of sample period %v", ErrInvalidInterval, span, rep.SamplePeriod)
	}
	return int(span / rep.SamplePeriod), nil
}

// CreateBuffers allocates data and status buffers for reading rep over
// [begin, end).
func CreateBuffers(rep Representation, begin, end time.Time) (data, status []byte, err error) {
	n, err := ElementCount(rep, begin, end)
	if err != nil {
		return nil, nil, err
	}
	if n > math.MaxInt/rep.DataType.ElementSize() {
		return nil, nil, fmt.Errorf("%w: %d samples of %s do not fit in memory", ErrInvalidInterval, n, rep.DataType)
	}
	return make([]byte, n*rep.DataType.ElementSize()), make([]byte, n), nil
}

// NewReadRequest builds a request for item with freshly allocated buffers.
func NewReadRequest(item CatalogItem, begin, end time.Time) (ReadRequest, error) {
	data, status, err := CreateBuffers(item.Representation, begin, end)
	if err != nil {
		return ReadRequest{}, err
	}
	return ReadRequest{CatalogItem: item, Data: data, Status: status}, nil
}

// CheckBuffers verifies that the buffers of r are sized for [begin, end).
func (r ReadRequest) CheckBuffers(begin, end time.Time) (int, error) {
	rep := r.CatalogItem.Representation
	n, err := ElementCount(rep, begin, end)
	if err != nil {
		return 0, err
	}
	if len(r.Status) != n || len(r.Data) != n*rep.DataType.ElementSize() {
		return 0, fmt.Errorf("buffers of %s are sized for %d/%d bytes, need %d/%d",
			r.CatalogItem.Path(), len(r.Data), len(r.Status), n*rep.DataType.ElementSize(), n)
	}
	return n, nil
}
