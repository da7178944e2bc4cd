package tracing

// Span attribute keys.
const (
	AttrSessionID  = "session.id"
	AttrRunID      = "run.id"
	AttrLanguage   = "run.language"
	AttrCodeBytes  = "run.code_bytes"
	AttrCodeHash   = "run.code_hash"
	AttrRunStatus  = "run.status"
	AttrCacheHit   = "run.cache_hit"
	AttrRunnerKind = "runner.kind"
	AttrHTTPStatus = "http.status_code"
	AttrEndpoint   = "http.url"
)

// Span names.
const (
	SpanDispatch = "execution.dispatch"
	SpanHandle   = "server.execute"
	SpanRunner   = "runner.run"
	SpanRender   = "preview.render"
)
