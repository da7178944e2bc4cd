package runner

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	res  Result
	err  error
	seen string
}

func (s *stubRunner) Kind() string { return "stub" }

func (s *stubRunner) Run(ctx context.Context, code string) (Result, error) {
	s.seen = code
	return s.res, s.err
}

func TestRegistry_LowercasesLanguage(t *testing.T) {
	stub := &stubRunner{res: Result{Output: "ok", Status: StatusOK}}
	reg := NewRegistry(0)
	reg.Register("Python", stub)

	res, err := reg.Run(context.Background(), " PYTHON ", "print(1)")
	require.NoError(t, err)
	require.Equal(t, "ok", res.Output)
	require.Equal(t, "print(1)", stub.seen)
	require.Equal(t, DefaultTimeout, reg.Timeout())
}

func TestRegistry_Unsupported(t *testing.T) {
	reg := NewRegistry(time.Second)

	_, err := reg.Run(context.Background(), "COBOL", "x")
	require.ErrorIs(t, err, ErrUnsupportedLanguage)
	require.EqualError(t, err, "Language 'cobol' is not supported yet.")
}

func TestRegistry_TimeoutMessage(t *testing.T) {
	reg := NewRegistry(5 * time.Second)
	reg.Register("python", &stubRunner{res: Result{Status: StatusTimeout}})

	res, err := reg.Run(context.Background(), "python", "while True: pass")
	require.NoError(t, err)
	require.Equal(t, "Execution timed out (limit: 5 seconds)", res.Output)
}

func TestRegistry_RunnerErrorWrapped(t *testing.T) {
	boom := errors.New("disk full")
	reg := NewRegistry(0)
	reg.Register("ruby", &stubRunner{err: boom})

	_, err := reg.Run(context.Background(), "ruby", "puts 1")
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "run ruby")
}

func TestNewDefault(t *testing.T) {
	require.Equal(t, []string{"javascript", "python", "ruby"}, NewDefault(0, EngineGoja).Languages())

	reg := NewDefault(0, EngineNode)
	require.Equal(t, "subprocess", reg.runners["javascript"].Kind())
	require.Equal(t, "goja", NewDefault(0, "").runners["javascript"].Kind())
}

func TestTimeoutMessage(t *testing.T) {
	require.Equal(t, "Execution timed out (limit: 1 second)", TimeoutMessage(time.Second))
	require.Equal(t, "Execution timed out (limit: 1.5s)", TimeoutMessage(1500*time.Millisecond))
}

func shRunner(t *testing.T) *CommandRunner {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	return &CommandRunner{Binary: "sh", Extension: ".sh", Display: "Shell"}
}

func TestCommandRunner_Stdout(t *testing.T) {
	res, err := shRunner(t).Run(context.Background(), "echo hello\necho ignored >&2\n")
	require.NoError(t, err)
	require.Equal(t, StatusOK, res.Status)
	require.Equal(t, "hello\n", res.Output)
}

func TestCommandRunner_NonZeroExitReturnsStderr(t *testing.T) {
	res, err := shRunner(t).Run(context.Background(), "echo out\necho broken >&2\nexit 3\n")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, res.Status)
	require.Equal(t, "broken\n", res.Output)
}

func TestCommandRunner_Timeout(t *testing.T) {
	r := shRunner(t)
	reg := NewRegistry(100 * time.Millisecond)
	reg.Register("shell", r)

	res, err := reg.Run(context.Background(), "shell", "sleep 5\n")
	require.NoError(t, err)
	require.Equal(t, StatusTimeout, res.Status)
	require.Contains(t, res.Output, "Execution timed out")
}

func TestCommandRunner_CancelIsNotTimeout(t *testing.T) {
	reg := NewRegistry(5 * time.Second)
	reg.Register("shell", shRunner(t))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	res, err := reg.Run(ctx, "shell", "sleep 5\n")
	require.ErrorIs(t, err, context.Canceled)
	require.NotEqual(t, StatusTimeout, res.Status)
}

func TestCommandRunner_MissingInterpreter(t *testing.T) {
	r := &CommandRunner{Binary: "polypad-no-such-interpreter", Extension: ".x", Display: "Nothing"}
	res, err := r.Run(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, StatusMissing, res.Status)
	require.Equal(t, "Nothing is not installed or not found in PATH", res.Output)
}

func TestGojaRunner_CapturesConsole(t *testing.T) {
	code := "function greet(n) { return `Hello, ${n}!`; }\nconsole.log(greet('World'));\nconsole.log(1 + 2);\n"
	res, err := GojaRunner{}.Run(context.Background(), code)
	require.NoError(t, err)
	require.Equal(t, StatusOK, res.Status)
	require.Equal(t, "Hello, World!\n3\n", res.Output)
}

func TestGojaRunner_UncaughtException(t *testing.T) {
	res, err := GojaRunner{}.Run(context.Background(), "console.log('before');\nthrow new Error('kaput');\n")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, res.Status)
	require.Contains(t, res.Output, "kaput")
	require.NotContains(t, res.Output, "before")
}

func TestGojaRunner_SyntaxError(t *testing.T) {
	res, err := GojaRunner{}.Run(context.Background(), "function (")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, res.Status)
	require.NotEmpty(t, res.Output)
}

func TestGojaRunner_InterruptedByTimeout(t *testing.T) {
	reg := NewRegistry(50 * time.Millisecond)
	reg.Register("javascript", GojaRunner{})

	res, err := reg.Run(context.Background(), "javascript", "for(;;){}")
	require.NoError(t, err)
	require.Equal(t, StatusTimeout, res.Status)
	require.Equal(t, "Execution timed out (limit: 50ms)", res.Output)
}

func TestGojaRunner_CancelIsNotTimeout(t *testing.T) {
	reg := NewRegistry(5 * time.Second)
	reg.Register("javascript", GojaRunner{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	res, err := reg.Run(ctx, "javascript", "for(;;){}")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, res.Output)
}
