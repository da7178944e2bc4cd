// Package execution is the boundary between an editing session and the
// remote code-execution service.
package execution

import (
	"context"
	"errors"
	"fmt"
)

// DefaultEndpoint is where the execution service listens by default.
const DefaultEndpoint = "http://127.0.0.1:8000/api/v1/editor/execute"

// ErrorPrefix precedes every failure shown in the output pane.
const ErrorPrefix = "Error executing code: "

// Request is the body sent to the service.
type Request struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Response is a successful service reply.
type Response struct {
	Output string `json:"output"`
}

// ErrorResponse is the body of a failed service reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Executor runs a request to completion. Implementations make exactly one
// attempt and honour ctx cancellation.
type Executor interface {
	Execute(ctx context.Context, req Request) (Response, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, req Request) (Response, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// TransportError means no usable reply was obtained: network failure,
// cancellation, a non-2xx status without a message, or a malformed body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServiceError carries the message the service returned with a failure.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Detail returns the user-facing description of err: the service message
// when there is one, otherwise the transport description.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var svc *ServiceError
	if errors.As(err, &svc) {
		return svc.Message
	}
	return err.Error()
}

// FormatFailure renders err the way the output pane shows it.
func FormatFailure(err error) string {
	return ErrorPrefix + Detail(err)
}
