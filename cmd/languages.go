package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/polypad/internal/catalog"
	"github.com/zjrosen/polypad/internal/presentation"
)

var languagesJSON bool

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List the script languages the editor can run",
	Long: `List the script languages the editor can run, in selector order.

Examples:
  polypad languages
  polypad languages --json | jq '.[].id'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatter := presentation.NewFormatter(cmd.OutOrStdout())
		dtos := presentation.FromCatalog(catalog.Options())
		if languagesJSON {
			return formatter.FormatJSON(dtos)
		}
		return formatter.FormatLanguages(dtos)
	},
}

func init() {
	languagesCmd.Flags().BoolVar(&languagesJSON, "json", false, "print JSON")
	rootCmd.AddCommand(languagesCmd)
}
