package cli

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"paperrag/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Find the papers nearest to a query",
	Long: `Embed the query and return the nearest stored papers by L2 distance.

Examples:
  rag query -q "insulin resistance"
  rag query -q "statin therapy" --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), GetConfig(), GetLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	scored, err := a.retrieveUseCase().Retrieve(cmd.Context(), queryText, topK(queryTopK))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	results := usecase.ToResults(scored, 500)

	if queryJSON {
		output, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	cyan := color.New(color.FgCyan, color.Bold)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)

	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for _, r := range results {
		cyan.Printf("--- [%d] %s ", r.Rank, r.Title)
		gray.Printf("(distance: %.4f, %s)\n", r.Distance, r.SourceFile)
		if r.DOI != "" {
			green.Println(r.DOI)
		}
		if len(r.Keywords) > 0 {
			gray.Printf("Keywords: %v\n", r.Keywords)
		}
		fmt.Println(r.Excerpt)
		fmt.Println()
	}

	return nil
}
