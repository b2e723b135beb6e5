package remoting

import (
	"context"
	"encoding/json"
	"time"

	"github.com/marmos91/playground/pkg/datasource"
)

type handlerFunc func(ctx context.Context, s *session, params []json.RawMessage) (any, *Error)

var handlers map[string]handlerFunc

func init() {
	handlers = map[string]handlerFunc{
		MethodGetAPIVersion:           handleGetAPIVersion,
		MethodSetContext:              handleSetContext,
		MethodGetCatalogRegistrations: handleGetCatalogRegistrations,
		MethodGetCatalog:              handleGetCatalog,
		MethodEnrichCatalog:           handleEnrichCatalog,
		MethodGetTimeRange:            handleGetTimeRange,
		MethodGetAvailability:         handleGetAvailability,
		MethodReadSingle:              handleReadSingle,
	}
}

// decodeParams unmarshals params positionally into targets.
func decodeParams(params []json.RawMessage, targets ...any) *Error {
	if len(params) != len(targets) {
		return invalidParams("expected %d parameter(s), got %d", len(targets), len(params))
	}
	for i, target := range targets {
		if err := json.Unmarshal(params[i], target); err != nil {
			return invalidParams("parameter %d: %v", i, err)
		}
	}
	return nil
}

// readEnvelopeSize is the room left in a frame for the response envelope
// around the encoded buffers.
const readEnvelopeSize = 4 << 10

// maxReadElements returns how many samples of dataType fit in one response
// frame. Data and status are base64 encoded: 4 bytes per 3 of payload.
func maxReadElements(dataType datasource.NexusDataType) int {
	return (maxFrameSize/4*3 - readEnvelopeSize) / (dataType.ElementSize() + 1)
}

func serverError(err error) *Error {
	return &Error{Code: CodeServerError, Message: err.Error()}
}

func handleGetAPIVersion(_ context.Context, _ *session, _ []json.RawMessage) (any, *Error) {
	return apiVersionResult{APIVersion: APIVersion}, nil
}

func handleSetContext(ctx context.Context, s *session, params []json.RawMessage) (any, *Error) {
	var wire contextJSON
	if rpcErr := decodeParams(params, &wire); rpcErr != nil {
		return nil, rpcErr
	}

	dsCtx, err := wire.toContext()
	if err != nil {
		return nil, invalidParams("%v", err)
	}

	if err := s.source.SetContext(ctx, dsCtx, s); err != nil {
		return nil, serverError(err)
	}
	return nil, nil
}

func handleGetCatalogRegistrations(ctx context.Context, s *session, params []json.RawMessage) (any, *Error) {
	var path string
	if rpcErr := decodeParams(params, &path); rpcErr != nil {
		return nil, rpcErr
	}

	registrations, err := s.source.GetCatalogRegistrations(ctx, path)
	if err != nil {
		return nil, serverError(err)
	}
	if registrations == nil {
		registrations = []datasource.CatalogRegistration{}
	}
	return registrationsResult{Registrations: registrations}, nil
}

func handleGetCatalog(ctx context.Context, s *session, params []json.RawMessage) (any, *Error) {
	var catalogID string
	if rpcErr := decodeParams(params, &catalogID); rpcErr != nil {
		return nil, rpcErr
	}

	catalog, err := s.source.GetCatalog(ctx, catalogID)
	if err != nil {
		return nil, serverError(err)
	}
	return catalogResult{Catalog: catalog}, nil
}

// handleEnrichCatalog falls back to GetCatalog for sources that only speak
// the plain variant.
func handleEnrichCatalog(ctx context.Context, s *session, params []json.RawMessage) (any, *Error) {
	var catalog datasource.ResourceCatalog
	if rpcErr := decodeParams(params, &catalog); rpcErr != nil {
		return nil, rpcErr
	}

	var (
		enriched datasource.ResourceCatalog
		err      error
	)
	if enricher, ok := s.source.(datasource.CatalogEnricher); ok {
		enriched, err = enricher.EnrichCatalog(ctx, catalog)
	} else {
		enriched, err = s.source.GetCatalog(ctx, catalog.ID)
	}
	if err != nil {
		return nil, serverError(err)
	}
	return catalogResult{Catalog: enriched}, nil
}

func handleGetTimeRange(ctx context.Context, s *session, params []json.RawMessage) (any, *Error) {
	var catalogID string
	if rpcErr := decodeParams(params, &catalogID); rpcErr != nil {
		return nil, rpcErr
	}

	tr, err := s.source.GetTimeRange(ctx, catalogID)
	if err != nil {
		return nil, serverError(err)
	}
	return timeRangeResult{Begin: tr.Begin, End: tr.End}, nil
}

func handleGetAvailability(ctx context.Context, s *session, params []json.RawMessage) (any, *Error) {
	var (
		catalogID  string
		begin, end time.Time
	)
	if rpcErr := decodeParams(params, &catalogID, &begin, &end); rpcErr != nil {
		return nil, rpcErr
	}

	availability, err := s.source.GetAvailability(ctx, catalogID, begin, end)
	if err != nil {
		return nil, serverError(err)
	}
	return newAvailabilityResult(availability), nil
}

func handleReadSingle(ctx context.Context, s *session, params []json.RawMessage) (any, *Error) {
	var (
		begin, end time.Time
		item       datasource.CatalogItem
	)
	if rpcErr := decodeParams(params, &begin, &end, &item); rpcErr != nil {
		return nil, rpcErr
	}

	n, err := datasource.ElementCount(item.Representation, begin, end)
	if err != nil {
		return nil, invalidParams("%v", err)
	}
	if limit := maxReadElements(item.Representation.DataType); n > limit {
		return nil, invalidParams("reading %d samples of %s exceeds the limit of %d per request", n, item.Path(), limit)
	}

	request, err := datasource.NewReadRequest(item, begin, end)
	if err != nil {
		return nil, invalidParams("%v", err)
	}

	// Reading other resources through the host is not offered: readData is nil.
	if err := s.source.Read(ctx, begin, end, []datasource.ReadRequest{request}, nil, nil); err != nil {
		return nil, serverError(err)
	}
	return readResult{Data: request.Data, Status: request.Status}, nil
}
