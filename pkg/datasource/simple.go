package datasource

import (
	"context"
	"math"
	"time"
)

// Simple provides default behavior for data sources that only know how to
// list, describe and read their catalogs. Embed it and override what the
// source actually supports.
//
// Without data, a Simple source reports the full representable time range and
// an undefined (NaN) availability.
type Simple struct {
	Context *Context
	Logger  Logger
}

// SetContext stores dsctx and logger for later use.
func (s *Simple) SetContext(_ context.Context, dsctx *Context, logger Logger) error {
	if logger == nil {
		logger = NopLogger
	}
	s.Context = dsctx
	s.Logger = logger
	return nil
}

func (s *Simple) GetTimeRange(_ context.Context, _ string) (TimeRange, error) {
	return TimeRange{Begin: MinTime, End: MaxTime}, nil
}

func (s *Simple) GetAvailability(_ context.Context, _ string, _, _ time.Time) (float64, error) {
	return math.NaN(), nil
}

// Log forwards to the configured logger, if any.
func (s *Simple) Log(level LogLevel, message string) {
	if s.Logger != nil {
		s.Logger.Log(level, message)
	}
}
