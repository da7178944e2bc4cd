// Package render loads a preview artifact in headless Chrome with the
// sandbox permissions applied and reports what the document displays.
package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zjrosen/polypad/internal/log"
	"github.com/zjrosen/polypad/internal/preview"
	"github.com/zjrosen/polypad/internal/tracing"
)

// DefaultTimeout bounds one render.
const DefaultTimeout = 15 * time.Second

// suppressModals replaces the blocking dialog functions before any page
// script runs.
const suppressModals = `window.alert = function () {};
window.confirm = function () { return false; };
window.prompt = function () { return null; };`

// Result is what the rendered document shows.
type Result struct {
	Title string
	Text  string
	// Dialogs holds messages of dialogs the page opened. They are
	// accepted automatically.
	Dialogs []string
}

// Options configures a Renderer.
type Options struct {
	// ExecPath overrides the browser binary. Empty lets chromedp search.
	ExecPath string
	Timeout  time.Duration
}

// Renderer owns a browser allocator shared by renders.
type Renderer struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	timeout  time.Duration
}

// New prepares a headless allocator. The browser starts on first Render.
func New(opts Options) *Renderer {
	execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	if opts.ExecPath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), execOpts...)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Renderer{allocCtx: allocCtx, cancel: cancel, timeout: timeout}
}

// Close stops the browser.
func (r *Renderer) Close() {
	r.cancel()
}

// DataURL encodes an artifact as a navigable URL.
func DataURL(a preview.Artifact) string {
	return "data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(a))
}

// Render loads a in a fresh tab with sb applied.
func (r *Renderer) Render(ctx context.Context, a preview.Artifact, sb preview.Sandbox) (Result, error) {
	ctx, span := otel.Tracer("polypad/render").Start(ctx, tracing.SpanRender)
	defer span.End()
	span.SetAttributes(attribute.String("sandbox", sb.Attribute()))

	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var (
		res Result
		mu  sync.Mutex
	)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if opening, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			mu.Lock()
			res.Dialogs = append(res.Dialogs, opening.Message)
			mu.Unlock()
			go func() {
				_ = chromedp.Run(tabCtx, page.HandleJavaScriptDialog(true))
			}()
		}
	})

	start := time.Now()
	if err := chromedp.Run(tabCtx, Actions(a, sb, &res.Title, &res.Text)...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.ErrorErr(log.CatRender, "render failed", err)
		return Result{}, fmt.Errorf("render preview: %w", err)
	}
	log.Debug(log.CatRender, "rendered preview", "duration", time.Since(start), "title", res.Title)

	mu.Lock()
	defer mu.Unlock()
	return res, nil
}

// Actions returns the chromedp steps that apply sb, load a and read back
// its title and visible text.
func Actions(a preview.Artifact, sb preview.Sandbox, title, text *string) []chromedp.Action {
	var actions []chromedp.Action
	if !sb.Scripts {
		actions = append(actions, emulation.SetScriptExecutionDisabled(true))
	}
	if !sb.Modals {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(suppressModals).Do(ctx)
			return err
		}))
	}
	return append(actions,
		chromedp.Navigate(DataURL(a)),
		chromedp.Title(title),
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, text),
	)
}

// BrowserAvailable reports whether a Chrome-family binary is on PATH.
func BrowserAvailable() bool {
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "chrome"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}
