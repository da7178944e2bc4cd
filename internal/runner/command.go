package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const waitDelay = 500 * time.Millisecond

// CommandRunner writes code to a file in a fresh temporary directory and
// runs an interpreter on it.
type CommandRunner struct {
	// Binary is the interpreter looked up on PATH.
	Binary string
	// Extension is the script file suffix, including the dot.
	Extension string
	// Display names the interpreter in user-facing messages.
	Display string
}

// Python runs code with the python interpreter.
func Python() *CommandRunner {
	return &CommandRunner{Binary: "python", Extension: ".py", Display: "Python"}
}

// Node runs code with Node.js.
func Node() *CommandRunner {
	return &CommandRunner{Binary: "node", Extension: ".js", Display: "Node.js"}
}

// Ruby runs code with the ruby interpreter.
func Ruby() *CommandRunner {
	return &CommandRunner{Binary: "ruby", Extension: ".rb", Display: "Ruby"}
}

// Kind implements Runner.
func (c *CommandRunner) Kind() string { return "subprocess" }

// Run returns stdout when the interpreter exits zero and stderr otherwise.
func (c *CommandRunner) Run(ctx context.Context, code string) (Result, error) {
	bin, err := exec.LookPath(c.Binary)
	if err != nil {
		return Result{
			Output: fmt.Sprintf("%s is not installed or not found in PATH", c.Display),
			Status: StatusMissing,
		}, nil
	}

	dir, err := os.MkdirTemp("", "polypad-run-")
	if err != nil {
		return Result{}, fmt.Errorf("create work dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	script := filepath.Join(dir, "script"+c.Extension)
	if err := os.WriteFile(script, []byte(code), 0600); err != nil {
		return Result{}, fmt.Errorf("write script: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, script) //nolint:gosec // G204: interpreter comes from server config
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Orphaned grandchildren may hold the pipes open after a kill.
	cmd.WaitDelay = waitDelay

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return Result{Status: StatusTimeout}, nil
		}
		return Result{}, ctxErr
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("start %s: %w", c.Binary, err)
		}
		return Result{Output: stderr.String(), Status: StatusFailed}, nil
	}
	return Result{Output: stdout.String(), Status: StatusOK}, nil
}
