package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/yorulabs/leadgen-cli/pkg/llm"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Turn natural-language prospect queries into Apollo filters",
}

var queryAnswers string

// -- query assess --

var queryAssessCmd = &cobra.Command{
	Use:   "assess <query>",
	Short: "Check whether a query needs clarification before searching",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		// A missing key downgrades to a skip, not a failure.
		if cfg.LLM.Key == "" {
			return enc.Encode(map[string]string{
				"status": "skipped",
				"reason": "llm api key not configured (LEADGEN_LLM_KEY)",
			})
		}

		query := args[0]
		if queryAnswers != "" {
			var answers map[string]string
			if err := json.Unmarshal([]byte(queryAnswers), &answers); err != nil {
				return eris.Wrap(err, "query assess: parse --answers")
			}
			query = llm.EnrichQuery(query, answers)
		}

		client := llm.NewClient(cfg.LLM.Key, llm.WithModel(cfg.LLM.Model))
		assessment, err := client.Assess(cmd.Context(), query)
		if err != nil {
			return err
		}
		return enc.Encode(assessment)
	},
}

// -- query parse --

var queryParseCmd = &cobra.Command{
	Use:   "parse <query>",
	Short: "Parse a query into Apollo search filters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.LLM.Key == "" {
			return eris.New("anthropic API key is required (LEADGEN_LLM_KEY)")
		}

		client := llm.NewClient(cfg.LLM.Key, llm.WithModel(cfg.LLM.Model))
		filters, err := client.ParseFilters(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(filters)
	},
}

func init() {
	queryAssessCmd.Flags().StringVar(&queryAnswers, "answers", "", "JSON object of clarification answers to fold into the query")

	queryCmd.AddCommand(queryAssessCmd)
	queryCmd.AddCommand(queryParseCmd)
	rootCmd.AddCommand(queryCmd)
}
