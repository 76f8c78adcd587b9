package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"paperrag/internal/adapter/llm"
	"paperrag/internal/domain"
	"paperrag/internal/port"
	"paperrag/internal/usecase"
)

var (
	askText       string
	askTopK       int
	askPromptOnly bool
	askJSON       bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the nearest papers",
	Long: `Retrieve the nearest papers for the question and ask the configured LLM
to answer from them, listing the DOIs of the supporting papers.

Use --prompt-only to print the prompt instead of calling the LLM.

Examples:
  rag ask -q "What lowers LDL cholesterol?"
  rag ask -q "What lowers LDL cholesterol?" --prompt-only`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of supporting papers (default from config)")
	askCmd.Flags().BoolVar(&askPromptOnly, "prompt-only", false, "print the prompt without calling the LLM")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	a, err := openApp(ctx, cfg, GetLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	var model port.LLM
	if !askPromptOnly {
		model, err = llm.New(ctx, cfg.LLM)
		if err != nil {
			return fmt.Errorf("failed to create llm: %w", err)
		}
	}
	answerUC := usecase.NewAnswerUseCase(a.retrieveUseCase(), model, a.logger)

	if askPromptOnly {
		prompt, _, err := answerUC.Prompt(ctx, askText, topK(askTopK))
		if err != nil {
			return noDocumentsHint(err)
		}
		fmt.Println(prompt)
		return nil
	}

	answer, err := answerUC.Answer(ctx, askText, topK(askTopK))
	if err != nil {
		return noDocumentsHint(err)
	}

	if askJSON {
		output, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(answer.Text)
	if len(answer.DOILinks) > 0 {
		fmt.Println()
		color.New(color.FgCyan, color.Bold).Println("Sources:")
		for _, link := range answer.DOILinks {
			color.New(color.FgGreen).Printf("  - %s\n", link)
		}
	}
	return nil
}

func noDocumentsHint(err error) error {
	if errors.Is(err, domain.ErrNoDocuments) {
		return fmt.Errorf("%w; run 'rag ingest' first", err)
	}
	return err
}
