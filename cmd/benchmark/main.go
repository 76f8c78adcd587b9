package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"paperrag/config"
	"paperrag/internal/adapter/cache"
	"paperrag/internal/adapter/embedding"
	"paperrag/internal/adapter/store"
	"paperrag/internal/domain"
	"paperrag/internal/usecase"
)

// Self-retrieval benchmark: each stored paper's title is used as a query and
// the rank of the paper itself is recorded. Good embeddings put it first.
func main() {
	dir := flag.String("dir", ".", "Directory holding rag.yaml")
	topK := flag.Int("k", 5, "Rank cutoff for recall@k")
	limit := flag.Int("n", 0, "Evaluate at most n documents (0 = all)")
	warm := flag.Bool("warm", true, "Repeat the queries once to time the query cache")
	flag.Parse()

	_ = godotenv.Load(filepath.Join(*dir, ".env"))

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if !filepath.IsAbs(cfg.Store.Dir) {
		cfg.Store.Dir = filepath.Join(*dir, cfg.Store.Dir)
	}

	ctx := context.Background()
	emb, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedder init failed: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Open(store.Options{
		IndexPath:     cfg.IndexPath(),
		DocumentsPath: cfg.DocumentsPath(),
		Dimension:     cfg.Embedding.Dimension,
	}, emb, zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}

	docs := st.Documents()
	if len(docs) == 0 {
		fmt.Println("No documents - run 'rag ingest' first")
		os.Exit(1)
	}

	fmt.Println("SELF-RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Documents: %d\n", len(docs))
	fmt.Printf("Model: %s (%s)\n", emb.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n\n", emb.Dimension())

	retrieve := usecase.NewRetrieveUseCase(st, cache.NewQueryCache(len(docs), time.Hour), nil)

	var (
		evaluated, top1, topk, skipped int
		rrSum                          float64
		queries                        []string
	)
	coldStart := time.Now()
	for pos, d := range docs {
		if *limit > 0 && evaluated >= *limit {
			break
		}
		if d.Title == "" || d.Title == domain.UnknownTitle {
			skipped++
			continue
		}

		results, err := retrieve.Retrieve(ctx, d.Title, *topK)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
			os.Exit(1)
		}
		evaluated++
		queries = append(queries, d.Title)

		rank := 0
		for i, r := range results {
			if r.Position == pos {
				rank = i + 1
				break
			}
		}

		status := "MISS"
		switch {
		case rank == 1:
			top1++
			topk++
			status = "TOP1"
		case rank > 0:
			topk++
			status = fmt.Sprintf("TOP%d", rank)
		}
		if rank > 0 {
			rrSum += 1 / float64(rank)
		}

		fmt.Printf("[%-4s] %s\n", status, truncate(d.Title, 64))
	}

	cold := time.Since(coldStart)

	if evaluated == 0 {
		fmt.Println("No documents with a detected title to evaluate.")
		os.Exit(1)
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS (%d evaluated, %d without title):\n", evaluated, skipped)
	fmt.Printf("  Recall@1:  %.3f\n", float64(top1)/float64(evaluated))
	fmt.Printf("  Recall@%d:  %.3f\n", *topK, float64(topk)/float64(evaluated))
	fmt.Printf("  MRR@%d:     %.3f\n", *topK, rrSum/float64(evaluated))

	fmt.Printf("\nLATENCY:\n")
	fmt.Printf("  Cold:  %v total, %v/query\n", cold.Round(time.Millisecond), (cold / time.Duration(evaluated)).Round(time.Microsecond))
	if *warm {
		warmStart := time.Now()
		for _, q := range queries {
			if _, err := retrieve.Retrieve(ctx, q, *topK); err != nil {
				fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
				os.Exit(1)
			}
		}
		w := time.Since(warmStart)
		fmt.Printf("  Warm:  %v total, %v/query (query cache)\n", w.Round(time.Millisecond), (w / time.Duration(evaluated)).Round(time.Microsecond))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
