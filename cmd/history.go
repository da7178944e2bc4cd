package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/polypad/internal/history"
	"github.com/zjrosen/polypad/internal/infrastructure/sqlite"
	"github.com/zjrosen/polypad/internal/presentation"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show runs recorded by the execution service",
	Long: `Show the runs 'polypad serve' has recorded, newest first.

Only the language, status, duration, size and a hash of each program are
stored; source code is never kept.

Examples:
  polypad history
  polypad history --language python --limit 10
  polypad history --json | jq '.[].status'`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("history", "", "run history database (overrides config)")
	historyCmd.Flags().StringP("language", "l", "", "only show runs of this language")
	historyCmd.Flags().IntP("limit", "n", history.DefaultLimit, "maximum number of runs")
	historyCmd.Flags().Bool("json", false, "print JSON")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	path := cfg.Server.ResolvedHistoryPath()
	if p, _ := cmd.Flags().GetString("history"); p != "" {
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no run history at %s (start 'polypad serve' first)", path)
	}

	db, err := sqlite.NewDB(path)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer func() { _ = db.Close() }()

	language, _ := cmd.Flags().GetString("language")
	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := db.Runs().Recent(history.ListFilter{Language: language, Limit: limit})
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	formatter := presentation.NewFormatter(cmd.OutOrStdout())
	dtos := presentation.FromRuns(runs)
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return formatter.FormatJSON(dtos)
	}
	return formatter.FormatRuns(dtos)
}
