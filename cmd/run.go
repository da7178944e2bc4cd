package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/polypad/internal/catalog"
	"github.com/zjrosen/polypad/internal/config"
	"github.com/zjrosen/polypad/internal/execution"
	"github.com/zjrosen/polypad/internal/log"
)

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Run a script file through the execution service",
	Long: `Send a file to the execution service and print what it produced.

The language is inferred from the file extension unless --language is set.
Use "-" to read the program from standard input.

Example:
  polypad run hello.py
  polypad run --language ruby - < script.txt
  polypad run app.js --endpoint http://127.0.0.1:9000/api/v1/editor/execute`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("language", "l", "", "script language (default: from the file extension)")
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := config.ValidateExecution(cfg.Execution); err != nil {
		return fmt.Errorf("invalid execution configuration: %w", err)
	}

	path := args[0]
	language, _ := cmd.Flags().GetString("language")
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		id, ok := catalog.ForPath(path)
		if !ok {
			return fmt.Errorf("cannot infer the language of %q; pass --language", path)
		}
		language = string(id)
	}

	code, err := readSource(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	cleanupLog, err := initLogging("polypad-run")
	if err != nil {
		return err
	}
	defer cleanupLog()

	provider, shutdownTracing, err := initTracing()
	if err != nil {
		return err
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client := newExecutor(provider)
	log.Debug(log.CatExec, "one-shot run", "language", language, "file", path, "endpoint", client.Endpoint())

	resp, err := client.Execute(ctx, execution.Request{Code: code, Language: language})
	if err != nil {
		if execution.IsCanceled(err) && ctx.Err() != nil {
			return errors.New("run interrupted")
		}
		return errors.New(execution.FormatFailure(err))
	}

	out := resp.Output
	if out != "" && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err = io.WriteString(cmd.OutOrStdout(), out)
	return err
}

func readSource(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading standard input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-named script
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
