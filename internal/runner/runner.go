// Package runner executes submitted source code for the execution service.
// Each language maps to a Runner; the Registry resolves languages,
// applies the run time limit and records spans.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/polypad/internal/log"
	"github.com/zjrosen/polypad/internal/tracing"
)

// DefaultTimeout bounds a single run.
const DefaultTimeout = 5 * time.Second

// ErrUnsupportedLanguage is matched by UnsupportedLanguageError.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// UnsupportedLanguageError names a language with no registered runner.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("Language '%s' is not supported yet.", e.Language)
}

func (e *UnsupportedLanguageError) Is(target error) bool {
	return target == ErrUnsupportedLanguage
}

// Status classifies how a run ended.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
	StatusMissing Status = "missing"
)

// Result is what a run produced. Output is shown to the user for every
// status: program output, error text, or a limit notice.
type Result struct {
	Output string
	Status Status
}

// Runner executes code for one language.
type Runner interface {
	// Run executes code until it finishes or ctx is done. Failures of the
	// program itself are reported in Result, not as an error. An expired
	// deadline is StatusTimeout; any other cancellation returns ctx.Err().
	Run(ctx context.Context, code string) (Result, error)
	// Kind names the mechanism, e.g. "subprocess" or "goja".
	Kind() string
}

// TimeoutMessage is the output of a run that exceeded its limit.
func TimeoutMessage(limit time.Duration) string {
	return fmt.Sprintf("Execution timed out (limit: %s)", formatLimit(limit))
}

func formatLimit(d time.Duration) string {
	if d%time.Second == 0 {
		n := int(d / time.Second)
		if n == 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", n)
	}
	return d.String()
}

// Registry maps language names to runners.
type Registry struct {
	runners map[string]Runner
	timeout time.Duration
	tracer  trace.Tracer
}

// NewRegistry creates an empty registry. A non-positive timeout selects
// DefaultTimeout.
func NewRegistry(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{
		runners: make(map[string]Runner),
		timeout: timeout,
		tracer:  otel.Tracer("polypad/runner"),
	}
}

// Register binds language (case-insensitive) to r.
func (reg *Registry) Register(language string, r Runner) {
	reg.runners[strings.ToLower(language)] = r
}

// Languages returns the registered languages in sorted order.
func (reg *Registry) Languages() []string {
	out := make([]string, 0, len(reg.runners))
	for lang := range reg.runners {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Timeout returns the per-run limit.
func (reg *Registry) Timeout() time.Duration {
	return reg.timeout
}

// Run executes code with the runner for language. The language is
// matched case-insensitively.
func (reg *Registry) Run(ctx context.Context, language, code string) (Result, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	r, ok := reg.runners[lang]
	if !ok {
		return Result{}, &UnsupportedLanguageError{Language: lang}
	}

	ctx, span := reg.tracer.Start(ctx, tracing.SpanRunner, trace.WithAttributes(
		attribute.String(tracing.AttrLanguage, lang),
		attribute.String(tracing.AttrRunnerKind, r.Kind()),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, reg.timeout)
	defer cancel()

	start := time.Now()
	res, err := r.Run(ctx, code)
	if errors.Is(err, context.Canceled) {
		log.Debug(log.CatRunner, "run abandoned by caller", "language", lang, "kind", r.Kind())
		return Result{}, fmt.Errorf("run %s: %w", lang, err)
	}
	if err != nil {
		span.RecordError(err)
		log.ErrorErr(log.CatRunner, "runner error", err, "language", lang, "kind", r.Kind())
		return Result{}, fmt.Errorf("run %s: %w", lang, err)
	}
	if res.Status == StatusTimeout {
		res.Output = TimeoutMessage(reg.timeout)
	}
	span.SetAttributes(attribute.String(tracing.AttrRunStatus, string(res.Status)))
	log.Debug(log.CatRunner, "run finished", "language", lang, "kind", r.Kind(), "status", res.Status, "duration", time.Since(start))
	return res, nil
}

// JavaScript engines accepted by NewDefault.
const (
	EngineGoja = "goja"
	EngineNode = "node"
)

// NewDefault registers python, ruby and javascript. javascript runs in
// goja unless jsEngine is EngineNode.
func NewDefault(timeout time.Duration, jsEngine string) *Registry {
	reg := NewRegistry(timeout)
	reg.Register("python", Python())
	reg.Register("ruby", Ruby())
	if jsEngine == EngineNode {
		reg.Register("javascript", Node())
	} else {
		reg.Register("javascript", GojaRunner{})
	}
	return reg
}
