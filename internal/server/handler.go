package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/polypad/internal/cachemanager"
	"github.com/zjrosen/polypad/internal/catalog"
	"github.com/zjrosen/polypad/internal/execution"
	"github.com/zjrosen/polypad/internal/history"
	"github.com/zjrosen/polypad/internal/log"
	"github.com/zjrosen/polypad/internal/runner"
	"github.com/zjrosen/polypad/internal/tracing"
)

// DefaultMaxCodeBytes bounds a submitted program.
const DefaultMaxCodeBytes = 256 << 10

// statusClientClosedRequest answers a request whose caller disconnected mid-run.
const statusClientClosedRequest = 499

// Runner executes code for a language; *runner.Registry implements it.
type Runner interface {
	Run(ctx context.Context, language, code string) (runner.Result, error)
	Languages() []string
}

// runInput is the cache fill argument.
type runInput struct {
	language string
	code     string
}

// Handler serves the editor API.
type Handler struct {
	runner       Runner
	runs         history.Repository
	results      *cachemanager.ReadThroughCache[string, runner.Result, runInput]
	resultTTL    time.Duration
	maxCodeBytes int
	tracer       trace.Tracer
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Runner Runner
	// Runs records each request when set.
	Runs history.Repository
	// ResultTTL enables result reuse for identical submissions when
	// positive. Timeouts and missing interpreters are never reused.
	ResultTTL    time.Duration
	MaxCodeBytes int
}

// NewHandler builds a handler from cfg.
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		runner:       cfg.Runner,
		runs:         cfg.Runs,
		resultTTL:    cfg.ResultTTL,
		maxCodeBytes: cfg.MaxCodeBytes,
		tracer:       otel.Tracer("polypad/server"),
	}
	if h.maxCodeBytes <= 0 {
		h.maxCodeBytes = DefaultMaxCodeBytes
	}

	cache := cachemanager.NewInMemoryCacheManager[string, runner.Result]("results", cfg.ResultTTL, cachemanager.DefaultCleanupInterval)
	h.results = cachemanager.NewReadThroughCache[string, runner.Result, runInput](
		cache,
		func(ctx context.Context, in runInput) (runner.Result, error) {
			return h.runner.Run(ctx, in.language, in.code)
		},
		cfg.ResultTTL <= 0,
	).WithKeep(func(r runner.Result) bool {
		return r.Status == runner.StatusOK || r.Status == runner.StatusFailed
	})
	return h
}

// Routes registers the API on r.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/health", h.Health)
	editor := r.Group("/api/v1/editor")
	editor.POST("/execute", h.Execute)
	editor.GET("/languages", h.Languages)
	editor.GET("/runs", h.Runs)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Execute handles POST /api/v1/editor/execute.
func (h *Handler) Execute(c *gin.Context) {
	var req execution.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, execution.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if err := h.validate(req); err != nil {
		c.JSON(http.StatusBadRequest, execution.ErrorResponse{Error: err.Error()})
		return
	}

	lang := strings.ToLower(strings.TrimSpace(req.Language))
	hash := history.Hash(lang, req.Code)

	ctx, span := h.tracer.Start(c.Request.Context(), tracing.SpanHandle, trace.WithAttributes(
		attribute.String(tracing.AttrLanguage, lang),
		attribute.String(tracing.AttrCodeHash, hash),
		attribute.Int(tracing.AttrCodeBytes, len(req.Code)),
	))
	defer span.End()

	start := time.Now()
	result, hit, err := h.results.GetWithRefresh(ctx, hash, runInput{language: lang, code: req.Code}, h.resultTTL)
	duration := time.Since(start)
	span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, hit))

	run := &history.Run{
		Language:  lang,
		CodeHash:  hash,
		CodeBytes: len(req.Code),
		CacheHit:  hit,
		Duration:  duration,
	}

	switch {
	case errors.Is(err, runner.ErrUnsupportedLanguage):
		run.Status = history.StatusUnsupported
		h.record(run)
		c.JSON(http.StatusBadRequest, execution.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, context.Canceled):
		// The caller went away; nobody reads the reply.
		run.Status = history.StatusCanceled
		h.record(run)
		log.Debug(log.CatServer, "execution abandoned", "language", lang, "request_id", c.GetString(requestIDKey))
		c.AbortWithStatus(statusClientClosedRequest)
		return
	case err != nil:
		span.RecordError(err)
		run.Status = history.StatusError
		h.record(run)
		log.ErrorErr(log.CatServer, "execution failed", err, "language", lang, "request_id", c.GetString(requestIDKey))
		c.JSON(http.StatusInternalServerError, execution.ErrorResponse{Error: err.Error()})
		return
	}

	run.Status = history.Status(result.Status)
	span.SetAttributes(attribute.String(tracing.AttrRunStatus, string(result.Status)))
	h.record(run)
	c.JSON(http.StatusOK, execution.Response{Output: result.Output})
}

func (h *Handler) validate(req execution.Request) error {
	if strings.TrimSpace(req.Code) == "" {
		return errors.New("code: this field may not be blank")
	}
	if strings.TrimSpace(req.Language) == "" {
		return errors.New("language: this field may not be blank")
	}
	if len(req.Code) > h.maxCodeBytes {
		return fmt.Errorf("code: exceeds %d bytes", h.maxCodeBytes)
	}
	return nil
}

func (h *Handler) record(run *history.Run) {
	if h.runs == nil {
		return
	}
	if err := h.runs.Save(run); err != nil {
		log.ErrorErr(log.CatDB, "failed to record run", err, "language", run.Language)
	}
}

// LanguageInfo describes a language the service accepts.
type LanguageInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Languages handles GET /api/v1/editor/languages.
func (h *Handler) Languages(c *gin.Context) {
	ids := h.runner.Languages()
	out := make([]LanguageInfo, 0, len(ids))
	for _, id := range ids {
		info := LanguageInfo{ID: id, Label: id}
		if opt, ok := catalog.Lookup(catalog.LanguageID(id)); ok {
			info.Label = opt.Label
		}
		out = append(out, info)
	}
	c.JSON(http.StatusOK, gin.H{"languages": out})
}

// Runs handles GET /api/v1/editor/runs?language=&limit=.
func (h *Handler) Runs(c *gin.Context) {
	filter := history.ListFilter{Language: strings.ToLower(c.Query("language"))}
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 1000 {
			c.JSON(http.StatusBadRequest, execution.ErrorResponse{Error: "limit must be between 1 and 1000"})
			return
		}
		filter.Limit = n
	}

	if h.runs == nil {
		c.JSON(http.StatusOK, gin.H{"runs": []*history.Run{}})
		return
	}
	runs, err := h.runs.Recent(filter)
	if err != nil {
		log.ErrorErr(log.CatServer, "list runs failed", err)
		c.JSON(http.StatusInternalServerError, execution.ErrorResponse{Error: "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
