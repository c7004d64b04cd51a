package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agorino/catalog-service/internal/feed"
)

var parseOutput string

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a local XML feed file",
	Long: `Parse a local merchant XML feed file and print normalization
statistics: total records, valid records, drops, and warnings. Use
--output json to dump the normalized records.`,
	Example: `  catalog-service parse ./feeds/shop.xml
  catalog-service parse ./feeds/shop.xml --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&parseOutput, "output", "table", "Output format: table or json")
}

func runParse(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	logger.Info().Str("file", filePath).Msgf("Read %d bytes", len(content))

	result := feed.Parse(content)

	if parseOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Records)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "total records\t%d\n", result.TotalRecords)
	fmt.Fprintf(w, "valid records\t%d\n", len(result.Records))
	fmt.Fprintf(w, "dropped\t%d\n", result.Dropped)
	fmt.Fprintf(w, "warnings\t%d\n", len(result.Warnings))
	w.Flush()

	for _, warning := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warning)
	}
	return nil
}
