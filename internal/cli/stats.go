package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
}

type storeStats struct {
	Documents     int       `json:"documents"`
	Sources       int       `json:"sources"`
	Dimension     int       `json:"dimension"`
	Provider      string    `json:"provider"`
	Model         string    `json:"model"`
	SchemaVersion int       `json:"schema_version"`
	Fingerprint   string    `json:"embedding_fingerprint"`
	LastIngested  time.Time `json:"last_ingested,omitempty"`
	IndexPath     string    `json:"index_path"`
	DocumentsPath string    `json:"documents_path"`
	WithDOI       int       `json:"with_doi"`
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	a, err := openApp(cmd.Context(), cfg, GetLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	sources, err := a.manifest.List()
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	info, err := a.manifest.GetSchemaInfo()
	if err != nil {
		return fmt.Errorf("failed to read schema info: %w", err)
	}

	stats := storeStats{
		Documents:     a.store.Len(),
		Sources:       len(sources),
		Dimension:     a.store.Dimension(),
		Provider:      cfg.Embedding.Provider,
		Model:         a.embedder.ModelName(),
		SchemaVersion: info.Version,
		Fingerprint:   info.EmbeddingFingerprint,
		IndexPath:     cfg.IndexPath(),
		DocumentsPath: cfg.DocumentsPath(),
	}
	for _, s := range sources {
		if s.IngestedAt.After(stats.LastIngested) {
			stats.LastIngested = s.IngestedAt
		}
	}
	for _, d := range a.store.Documents() {
		if d.HasDOI() {
			stats.WithDOI++
		}
	}

	if statsJSON {
		output, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Documents:      %d (%d with DOI)\n", stats.Documents, stats.WithDOI)
	fmt.Printf("Sources:        %d\n", stats.Sources)
	fmt.Printf("Embedding:      %s/%s (%d dims)\n", stats.Provider, stats.Model, stats.Dimension)
	fmt.Printf("Schema:         v%d, fingerprint %s\n", stats.SchemaVersion, stats.Fingerprint)
	if !stats.LastIngested.IsZero() {
		fmt.Printf("Last ingested:  %s\n", stats.LastIngested.Local().Format(time.RFC1123))
	}
	fmt.Printf("Index:          %s\n", stats.IndexPath)
	fmt.Printf("Documents file: %s\n", stats.DocumentsPath)
	return nil
}
