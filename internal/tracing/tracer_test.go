package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.False(t, cfg.Enabled)
	require.Equal(t, ExporterFile, cfg.Exporter)
	require.Equal(t, 1.0, cfg.SampleRate)
	require.Equal(t, "polypad", cfg.ServiceName)
}

func TestNewProvider_DisabledIsNoop(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	require.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "noop")
	require.False(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_FileExporterWritesSpans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces", "spans.jsonl")
	p, err := NewProvider(Config{Enabled: true, Exporter: ExporterFile, FilePath: path})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), SpanDispatch, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String(AttrLanguage, "python"))
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan())
	var rec SpanRecord
	require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
	require.Equal(t, SpanDispatch, rec.Name)
	require.Equal(t, "client", rec.Kind)
	require.Equal(t, "python", rec.Attributes[AttrLanguage])
}

func TestNewProvider_Errors(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, Exporter: ExporterFile})
	require.ErrorContains(t, err, "file_path required")

	_, err = NewProvider(Config{Enabled: true, Exporter: "zipkin"})
	require.ErrorContains(t, err, "unsupported exporter type: zipkin")
}

func TestFileExporter_RecordsStatusAndParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spans.jsonl")
	exp, err := NewFileExporter(path)
	require.NoError(t, err)

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1},
		SpanID:  trace.SpanID{2},
	})
	stub := tracetest.SpanStub{
		Name:      SpanRunner,
		Parent:    parent,
		StartTime: time.Now(),
		EndTime:   time.Now().Add(25 * time.Millisecond),
		Status:    sdktrace.Status{Code: codes.Error, Description: "timed out"},
	}
	require.NoError(t, exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, exp.Shutdown(context.Background()))
	require.Error(t, exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec SpanRecord
	require.NoError(t, json.Unmarshal(data, &rec))
	require.Equal(t, "ERROR", rec.Status)
	require.Equal(t, "timed out", rec.StatusMsg)
	require.Equal(t, parent.SpanID().String(), rec.ParentID)
}
