package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/polypad/internal/execution"
	"github.com/zjrosen/polypad/internal/log"
	"github.com/zjrosen/polypad/internal/tracing"
)

const requestIDKey = "request_id"

// RequestIDMiddleware echoes the caller's X-Request-ID or assigns one.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(execution.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(execution.RequestIDHeader, id)
		c.Next()
	}
}

// LoggingMiddleware writes one line per request to the server log.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start),
			"request_id", c.GetString(requestIDKey),
		}
		switch {
		case status >= 500:
			log.Error(log.CatServer, "request", fields...)
		case status >= 400:
			log.Warn(log.CatServer, "request", fields...)
		default:
			log.Info(log.CatServer, "request", fields...)
		}
	}
}

// TracingMiddleware continues the caller's trace from W3C headers and
// wraps the request in a server span.
func TracingMiddleware(tracer trace.Tracer) gin.HandlerFunc {
	if tracer == nil {
		tracer = otel.Tracer("polypad/server")
	}
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		span.SetAttributes(attribute.Int(tracing.AttrHTTPStatus, c.Writer.Status()))
	}
}
