package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/polypad/internal/log"
	"github.com/zjrosen/polypad/internal/tracing"
)

// RequestIDHeader correlates client and service logs for one run.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes bounds how much of a reply is read.
const maxBodyBytes = 8 << 20

// Client posts requests to the execution service over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	tracer   trace.Tracer
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each request. Zero means no limit. The HTTP client
// itself is left untouched.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// WithTracer sets the tracer used for dispatch spans.
func WithTracer(t trace.Tracer) ClientOption {
	return func(c *Client) { c.tracer = t }
}

// NewClient creates a client for endpoint, or DefaultEndpoint when empty.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{},
		tracer:   otel.Tracer("polypad/execution"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Executor = (*Client)(nil)

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Execute posts req once and decodes the reply.
func (c *Client) Execute(ctx context.Context, req Request) (Response, error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanDispatch,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(tracing.AttrLanguage, req.Language),
			attribute.Int(tracing.AttrCodeBytes, len(req.Code)),
			attribute.String(tracing.AttrEndpoint, c.endpoint),
		),
	)
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.do(ctx, req, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request, span trace.Span) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, &TransportError{Op: "encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, &TransportError{Op: "build request", Err: err}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(RequestIDHeader, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	log.Debug(log.CatExec, "dispatching run", "request_id", requestID, "language", req.Language, "bytes", len(req.Code))
	start := time.Now()

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		log.ErrorErr(log.CatExec, "run transport failure", err, "request_id", requestID)
		return Response{}, &TransportError{Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()
	span.SetAttributes(attribute.Int(tracing.AttrHTTPStatus, httpResp.StatusCode))

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, &TransportError{Op: "read response", Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		var errBody ErrorResponse
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			log.Warn(log.CatExec, "run rejected by service", "request_id", requestID, "status", httpResp.StatusCode, "error", errBody.Error)
			return Response{}, &ServiceError{Status: httpResp.StatusCode, Message: errBody.Error}
		}
		return Response{}, &TransportError{Err: fmt.Errorf("request failed with status code %d", httpResp.StatusCode)}
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return Response{}, &TransportError{Op: "decode response", Err: err}
	}
	log.Debug(log.CatExec, "run completed", "request_id", requestID, "duration", time.Since(start), "output_bytes", len(out.Output))
	return out, nil
}

// IsCanceled reports whether err came from a cancelled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
