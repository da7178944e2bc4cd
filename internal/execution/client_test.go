package execution

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Success(t *testing.T) {
	var got Request
	var requestID string
	srv := newService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		requestID = r.Header.Get(RequestIDHeader)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(Response{Output: "hello\n"})
	})

	resp, err := NewClient(srv.URL).Execute(context.Background(), Request{Code: "print('hello')", Language: "python"})
	require.NoError(t, err)
	require.Equal(t, "hello\n", resp.Output)
	require.Equal(t, Request{Code: "print('hello')", Language: "python"}, got)
	require.Len(t, requestID, 36)
}

func TestClient_ServiceErrorMessage(t *testing.T) {
	srv := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Language 'cobol' is not supported yet."}`))
	})

	_, err := NewClient(srv.URL).Execute(context.Background(), Request{Code: "x", Language: "cobol"})
	require.Error(t, err)

	var svc *ServiceError
	require.True(t, errors.As(err, &svc))
	require.Equal(t, http.StatusBadRequest, svc.Status)
	require.Equal(t, "Error executing code: Language 'cobol' is not supported yet.", FormatFailure(err))
}

func TestClient_StatusWithoutMessage(t *testing.T) {
	srv := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>oops</html>"))
	})

	_, err := NewClient(srv.URL).Execute(context.Background(), Request{Code: "x", Language: "ruby"})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, "Error executing code: request failed with status code 500", FormatFailure(err))
}

func TestClient_MalformedBody(t *testing.T) {
	srv := newService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := NewClient(srv.URL).Execute(context.Background(), Request{Code: "x", Language: "python"})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, "decode response", te.Op)
}

func TestClient_UnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Execute(context.Background(), Request{Code: "x", Language: "python"})
	var te *TransportError
	require.True(t, errors.As(err, &te))
	require.Contains(t, FormatFailure(err), ErrorPrefix)
}

func TestClient_SingleAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := newService(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := NewClient(srv.URL).Execute(context.Background(), Request{Code: "x", Language: "python"})
	require.Error(t, err)
	require.Equal(t, int32(1), hits.Load())
}

func TestClient_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := newService(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL).Execute(ctx, Request{Code: "x", Language: "python"})
	require.True(t, IsCanceled(err))
	var te *TransportError
	require.True(t, errors.As(err, &te))
}

func TestClient_TimeoutBoundsRequest(t *testing.T) {
	release := make(chan struct{})
	srv := newService(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := NewClient(srv.URL, WithTimeout(50*time.Millisecond)).Execute(context.Background(), Request{Code: "x", Language: "python"})
	require.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_TimeoutLeavesSharedClientAlone(t *testing.T) {
	shared := &http.Client{}
	NewClient("", WithHTTPClient(shared), WithTimeout(time.Second))
	NewClient("", WithHTTPClient(http.DefaultClient), WithTimeout(time.Second))

	require.Zero(t, shared.Timeout)
	require.Zero(t, http.DefaultClient.Timeout)
}

func TestClient_DefaultEndpoint(t *testing.T) {
	require.Equal(t, DefaultEndpoint, NewClient("").Endpoint())
}

func TestDetail(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"service", &ServiceError{Status: 400, Message: "bad"}, "bad"},
		{"wrapped service", &TransportError{Op: "x", Err: &ServiceError{Message: "inner"}}, "inner"},
		{"transport", &TransportError{Op: "read response", Err: errors.New("eof")}, "read response: eof"},
		{"bare transport", &TransportError{Err: errors.New("refused")}, "refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Detail(tt.err))
		})
	}
}

func TestExecutorFunc(t *testing.T) {
	var e Executor = ExecutorFunc(func(ctx context.Context, req Request) (Response, error) {
		return Response{Output: req.Language}, nil
	})
	resp, err := e.Execute(context.Background(), Request{Language: "ruby"})
	require.NoError(t, err)
	require.Equal(t, "ruby", resp.Output)
}
