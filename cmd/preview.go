package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/polypad/internal/preview"
	"github.com/zjrosen/polypad/internal/render"
	"github.com/zjrosen/polypad/internal/session"
	uipreview "github.com/zjrosen/polypad/internal/ui/preview"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Compose markup and style into a preview document",
	Long: `Compose an HTML fragment and a stylesheet into the document the preview
shows, and print it.

Without --markup or --style the editor's starting content is used.

Output modes:
  (default)   the composed document
  --iframe    an <iframe> that embeds the document in a sandbox
  --pretty    a highlighted listing for the terminal
  --render    load the document in headless Chrome and print its text`,
	SilenceUsage: true,
	RunE:         runPreview,
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().String("markup", "", "HTML fragment file")
	previewCmd.Flags().String("style", "", "CSS file")
	previewCmd.Flags().Bool("iframe", false, "wrap the document in a sandboxed iframe")
	previewCmd.Flags().Bool("pretty", false, "print a highlighted listing")
	previewCmd.Flags().Bool("render", false, "render in headless Chrome and print the page text")
	previewCmd.Flags().Bool("no-scripts", false, "deny scripts when rendering or framing")
	previewCmd.Flags().String("browser", "", "browser binary for --render (default: search PATH)")
	previewCmd.Flags().Duration("timeout", render.DefaultTimeout, "render timeout")
	previewCmd.MarkFlagsMutuallyExclusive("iframe", "pretty", "render")
}

func runPreview(cmd *cobra.Command, _ []string) error {
	markup, err := readOptional(cmd, "markup", session.DefaultMarkup)
	if err != nil {
		return err
	}
	style, err := readOptional(cmd, "style", session.DefaultStyle)
	if err != nil {
		return err
	}
	artifact := preview.Compose(markup, style)

	sandbox := preview.DefaultSandbox()
	if noScripts, _ := cmd.Flags().GetBool("no-scripts"); noScripts {
		sandbox.Scripts = false
	}

	out := cmd.OutOrStdout()
	iframe, _ := cmd.Flags().GetBool("iframe")
	pretty, _ := cmd.Flags().GetBool("pretty")
	doRender, _ := cmd.Flags().GetBool("render")

	switch {
	case iframe:
		_, err = fmt.Fprintln(out, preview.IframeDocument(artifact, sandbox))
		return err
	case pretty:
		r, err := uipreview.New(100, cfg.Editor.Theme)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, r.Render(artifact))
		return err
	case doRender:
		return renderPreview(cmd, out, artifact, sandbox)
	default:
		_, err = io.WriteString(out, artifact.String())
		return err
	}
}

func renderPreview(cmd *cobra.Command, out io.Writer, a preview.Artifact, sb preview.Sandbox) error {
	browser, _ := cmd.Flags().GetString("browser")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if browser == "" && !render.BrowserAvailable() {
		return errors.New("no Chrome or Chromium binary found on PATH; pass --browser")
	}

	cleanupLog, err := initLogging("polypad-preview")
	if err != nil {
		return err
	}
	defer cleanupLog()

	_, shutdownTracing, err := initTracing()
	if err != nil {
		return err
	}
	defer shutdownTracing()

	r := render.New(render.Options{ExecPath: browser, Timeout: timeout})
	defer r.Close()

	start := time.Now()
	res, err := r.Render(cmd.Context(), a, sb)
	if err != nil {
		return err
	}

	if res.Title != "" {
		_, _ = fmt.Fprintf(out, "Title: %s\n\n", res.Title)
	}
	_, _ = fmt.Fprintln(out, strings.TrimRight(res.Text, "\n"))
	for _, msg := range res.Dialogs {
		_, _ = fmt.Fprintf(out, "dialog: %s\n", msg)
	}
	_, err = fmt.Fprintf(cmd.ErrOrStderr(), "rendered in %s\n", time.Since(start).Round(time.Millisecond))
	return err
}

// readOptional reads the file named by flag, or returns fallback when the
// flag is unset.
func readOptional(cmd *cobra.Command, flag, fallback string) (string, error) {
	path, _ := cmd.Flags().GetString(flag)
	if path == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-named input
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}
