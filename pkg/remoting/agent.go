// Package remoting connects a data source to its host process.
//
// The agent dials the host (the host listens, the agent connects) and then
// serves JSON-RPC 2.0 requests over the connection. Every message is one
// frame: a 4-byte big-endian length followed by UTF-8 JSON.
//
//	host  -> agent   {"jsonrpc":"2.0","id":1,"method":"getCatalog","params":["/A/B"]}
//	agent -> host    {"jsonrpc":"2.0","id":1,"result":{"catalog":{...}}}
//	agent -> host    {"jsonrpc":"2.0","method":"log","params":["Debug","..."]}
//
// Requests are handled concurrently, one goroutine each; responses may
// therefore arrive out of order and are matched by id.
package remoting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/marmos91/playground/internal/logger"
	"github.com/marmos91/playground/internal/ratelimiter"
	"github.com/marmos91/playground/pkg/datasource"
)

// Config configures an Agent.
type Config struct {
	// DialTimeout bounds a single connection attempt. Default: 10s.
	DialTimeout time.Duration

	// MaxElapsedTime bounds the total time spent retrying the dial.
	// 0 retries until the context is cancelled.
	MaxElapsedTime time.Duration

	// InitialInterval is the first retry delay. Default: 500ms.
	InitialInterval time.Duration

	// RequestsPerSecond throttles requests per session. 0 is unlimited.
	RequestsPerSecond uint

	// RequestBurst is the limiter bucket size.
	RequestBurst uint
}

func (c *Config) applyDefaults() {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 10 * time.Second
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
}

// Agent serves one data source to a host.
type Agent struct {
	source datasource.DataSource
	config Config

	// dial is replaced in tests.
	dial func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewAgent creates an agent serving source.
func NewAgent(source datasource.DataSource, config Config) *Agent {
	config.applyDefaults()

	dialer := &net.Dialer{Timeout: config.DialTimeout}
	return &Agent{
		source: source,
		config: config,
		dial:   dialer.DialContext,
	}
}

// Run connects to address:port and serves requests until the host closes
// the connection or ctx is cancelled.
func (a *Agent) Run(ctx context.Context, address string, port int) error {
	conn, err := a.connect(ctx, net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	return a.Serve(ctx, conn)
}

// connect dials target with exponential backoff.
func (a *Agent) connect(ctx context.Context, target string) (net.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.config.InitialInterval
	b.MaxElapsedTime = a.config.MaxElapsedTime

	var conn net.Conn
	operation := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, a.config.DialTimeout)
		defer cancel()

		c, err := a.dial(dialCtx, "tcp", target)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		conn = c
		return nil
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Failed to connect to %s: %v (retrying in %s)", target, err, wait)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}

	logger.Info("Connected to %s", target)
	return conn, nil
}

// Serve handles requests on conn until EOF or cancellation. conn is closed
// on return. In-flight requests are waited for.
func (a *Agent) Serve(ctx context.Context, conn net.Conn) error {
	ctx, cancel := context.WithCancel(ctx)

	s := &session{
		id:      uuid.NewString(),
		conn:    conn,
		source:  a.source,
		limiter: ratelimiter.New(a.config.RequestsPerSecond, a.config.RequestBurst),
	}

	var inflight sync.WaitGroup

	defer func() {
		cancel()
		_ = conn.Close()
		inflight.Wait()
		logger.Debug("[%s] Session closed", s.id)
	}()

	// Unblock ReadFrame on cancellation
	go func() {
		<-ctx.Done()
		_ = conn.SetReadDeadline(time.Now())
	}()

	logger.Debug("[%s] Session started with %s", s.id, conn.RemoteAddr())

	for {
		payload, err := ReadFrame(conn)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logger.Debug("[%s] Connection closed by host", s.id)
				return nil
			case ctx.Err() != nil:
				logger.Debug("[%s] Session cancelled", s.id)
				return nil
			default:
				return fmt.Errorf("session %s: %w", s.id, err)
			}
		}

		// Throttled requests queue here, which also stops reading the socket
		if !s.limiter.Allow() {
			logger.Debug("[%s] Request rate exceeded (%.2f tokens left), throttling", s.id, s.limiter.Tokens())
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			s.handle(ctx, payload)
		}()
	}
}

// session is one host connection.
type session struct {
	id      string
	conn    net.Conn
	source  datasource.DataSource
	limiter *ratelimiter.RateLimiter

	writeMu sync.Mutex
}

func (s *session) handle(ctx context.Context, payload []byte) {
	var req Request

	defer func() {
		if r := recover(); r != nil {
			logger.Error("[%s] Panic in %s handler: %v", s.id, req.Method, r)
			s.respond(req.ID, nil, &Error{Code: CodeServerError, Message: fmt.Sprintf("internal error: %v", r)})
		}
	}()

	if err := json.Unmarshal(payload, &req); err != nil {
		s.respond(json.RawMessage("null"), nil, &Error{Code: CodeParseError, Message: err.Error()})
		return
	}

	if len(req.ID) == 0 {
		logger.Debug("[%s] Ignoring notification %s", s.id, req.Method)
		return
	}

	handler, ok := handlers[req.Method]
	if !ok {
		s.respond(req.ID, nil, &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", req.Method)})
		return
	}

	start := time.Now()
	result, rpcErr := handler(ctx, s, req.Params)
	logger.Debug("[%s] %s id=%s completed in %s", s.id, req.Method, req.ID, time.Since(start))

	s.respond(req.ID, result, rpcErr)
}

func (s *session) respond(id json.RawMessage, result any, rpcErr *Error) {
	resp := Response{JSONRPC: jsonRPCVersion, ID: id}

	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		raw, err := json.Marshal(result)
		if err != nil {
			resp.Error = &Error{Code: CodeServerError, Message: fmt.Sprintf("failed to encode result: %v", err)}
		} else {
			resp.Result = raw
		}
	}

	err := s.write(resp)
	if errors.Is(err, ErrFrameTooLarge) && resp.Error == nil {
		// The host still gets an answer for this id
		logger.Warn("[%s] Response %s dropped: %v", s.id, id, err)
		err = s.write(Response{
			JSONRPC: jsonRPCVersion,
			ID:      id,
			Error:   &Error{Code: CodeServerError, Message: fmt.Sprintf("response too large: %v", err)},
		})
	}
	if err != nil {
		logger.Debug("[%s] Failed to send response %s: %v", s.id, id, err)
	}
}

// Log forwards data source log lines to the host as notifications.
func (s *session) Log(level datasource.LogLevel, message string) {
	logger.Debug("[%s] %s: %s", s.id, level, message)

	err := s.write(Notification{
		JSONRPC: jsonRPCVersion,
		Method:  MethodLog,
		Params:  []any{level.String(), message},
	})
	if err != nil {
		logger.Debug("[%s] Failed to send log notification: %v", s.id, err)
	}
}

func (s *session) write(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return WriteFrame(s.conn, payload)
}
