package remoting

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/marmos91/playground/pkg/datasource"
)

// APIVersion is reported by getApiVersion.
const APIVersion = 1

const jsonRPCVersion = "2.0"

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
)

// Method names.
const (
	MethodGetAPIVersion           = "getApiVersion"
	MethodSetContext              = "setContext"
	MethodGetCatalogRegistrations = "getCatalogRegistrations"
	MethodGetCatalog              = "getCatalog"
	MethodEnrichCatalog           = "enrichCatalog"
	MethodGetTimeRange            = "getTimeRange"
	MethodGetAvailability         = "getAvailability"
	MethodReadSingle              = "readSingle"

	// MethodLog is sent by the agent as a notification (no id).
	MethodLog = "log"
)

// Request is a JSON-RPC request or, without ID, a notification.
type Request struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id,omitempty"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params,omitempty"`
}

// Response carries either Result or Error.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("remoting error %d: %s", e.Code, e.Message)
}

// Notification is a request without id.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

func invalidParams(format string, v ...any) *Error {
	return &Error{Code: CodeInvalidParams, Message: fmt.Sprintf(format, v...)}
}

// contextJSON is the wire form of datasource.Context.
type contextJSON struct {
	ResourceLocator      string         `json:"resourceLocator,omitempty"`
	SystemConfiguration  map[string]any `json:"systemConfiguration,omitempty"`
	SourceConfiguration  map[string]any `json:"sourceConfiguration,omitempty"`
	RequestConfiguration map[string]any `json:"requestConfiguration,omitempty"`
}

func (c contextJSON) toContext() (*datasource.Context, error) {
	dsCtx := &datasource.Context{
		SystemConfiguration:  c.SystemConfiguration,
		SourceConfiguration:  c.SourceConfiguration,
		RequestConfiguration: c.RequestConfiguration,
	}

	if c.ResourceLocator != "" {
		locator, err := url.Parse(c.ResourceLocator)
		if err != nil {
			return nil, fmt.Errorf("invalid resource locator %q: %w", c.ResourceLocator, err)
		}
		dsCtx.ResourceLocator = locator
	}
	return dsCtx, nil
}

type apiVersionResult struct {
	APIVersion int `json:"apiVersion"`
}

type registrationsResult struct {
	Registrations []datasource.CatalogRegistration `json:"registrations"`
}

type catalogResult struct {
	Catalog datasource.ResourceCatalog `json:"catalog"`
}

type timeRangeResult struct {
	Begin time.Time `json:"begin"`
	End   time.Time `json:"end"`
}

// availabilityResult encodes NaN as null.
type availabilityResult struct {
	Availability *float64 `json:"availability"`
}

func newAvailabilityResult(v float64) availabilityResult {
	if math.IsNaN(v) {
		return availabilityResult{}
	}
	return availabilityResult{Availability: &v}
}

// readResult carries the buffers base64 encoded ([]byte in encoding/json).
type readResult struct {
	Data   []byte `json:"data"`
	Status []byte `json:"status"`
}
