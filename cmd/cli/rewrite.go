package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agorino/catalog-service/internal/rewrite"
)

var rewriteUseLLM bool

// rewriteCmd represents the rewrite command
var rewriteCmd = &cobra.Command{
	Use:   "rewrite <query>",
	Short: "Show how a search query is rewritten",
	Example: `  catalog-service rewrite "aple iphne 15"
  catalog-service rewrite "samsung tv" --llm`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRewrite,
}

func init() {
	rootCmd.AddCommand(rewriteCmd)

	rewriteCmd.Flags().BoolVar(&rewriteUseLLM, "llm", false, "Use the LLM tier when an API key is configured")
}

func runRewrite(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	var llm rewrite.LLMClient
	if rewriteUseLLM && cfg != nil {
		if client := rewrite.NewOpenAIClient(
			cfg.Rewriter.LLMAPIKey,
			cfg.Rewriter.LLMEndpoint,
			cfg.Rewriter.LLMModel,
			cfg.Rewriter.LLMTimeout,
		); client != nil {
			llm = client
		}
	}

	result := rewrite.New(llm).Rewrite(context.Background(), query)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
