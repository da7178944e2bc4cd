package runner

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
)

// GojaRunner evaluates javascript in-process. console output is captured
// and becomes the run output, so no node binary is required.
type GojaRunner struct{}

// Kind implements Runner.
func (GojaRunner) Kind() string { return "goja" }

// capture collects console output. log goes to stdout; warn and error go
// to stderr, mirroring node.
type capture struct {
	mu     sync.Mutex
	stdout strings.Builder
	stderr strings.Builder
}

func (c *capture) Log(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stdout.WriteString(s)
	c.stdout.WriteByte('\n')
}

func (c *capture) Warn(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stderr.WriteString(s)
	c.stderr.WriteByte('\n')
}

func (c *capture) Error(s string) { c.Warn(s) }

// Run evaluates code in a fresh runtime. An uncaught exception yields its
// stack as failure output.
func (GojaRunner) Run(ctx context.Context, code string) (Result, error) {
	out := &capture{}
	vm := goja.New()
	registry := require.NewRegistry()
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(out))
	registry.Enable(vm)
	console.Enable(vm)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-stop:
		}
	}()

	_, err := vm.RunScript("script.js", code)
	if err == nil {
		return Result{Output: out.stdout.String(), Status: StatusOK}, nil
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{Status: StatusTimeout}, nil
		}
		return Result{}, ctx.Err()
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		out.Warn(exception.String())
		return Result{Output: out.stderr.String(), Status: StatusFailed}, nil
	}
	// Syntax errors are *goja.CompilerSyntaxError.
	out.Warn(err.Error())
	return Result{Output: out.stderr.String(), Status: StatusFailed}, nil
}
