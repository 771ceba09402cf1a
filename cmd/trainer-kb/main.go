// Package main provides the trainer-kb CLI for the fitness knowledge base.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/atlasfit/trainer-kb/internal/chunker"
	"github.com/atlasfit/trainer-kb/internal/embedding"
	"github.com/atlasfit/trainer-kb/internal/fetch"
	"github.com/atlasfit/trainer-kb/internal/ingest"
	"github.com/atlasfit/trainer-kb/internal/kb"
	"github.com/atlasfit/trainer-kb/internal/query"
	"github.com/atlasfit/trainer-kb/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "trainer-kb",
	Short: "Fitness research knowledge base",
	Long: `CLI for ingesting and querying a semantic knowledge base of
fitness and training research.

Environment variables:
  OPENAI_API_KEY OpenAI API key for embeddings (required)
  KB_STORE       Storage backend: sqlite or qdrant (default: sqlite)
  KB_PATH        SQLite database path (default: trainer-kb.db)
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  GITHUB_TOKEN   GitHub token for higher rate limits (optional)`,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest documents into the knowledge base",
	Long: `Chunks, classifies, embeds and stores documents.

Ingests local text or markdown files, or with --github, all markdown
files under a path of a GitHub repository.`,
	RunE: runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Search the knowledge base by semantic similarity",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var getCmd = &cobra.Command{
	Use:   "get <document-id>",
	Short: "Fetch a single document by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var (
	flagGitHubRepo string
	flagGitHubPath string
	flagTitle      string
	flagSource     string
	flagTopK       int
	flagMinScore   float32
	flagCategory   string
)

func init() {
	ingestCmd.Flags().StringVar(&flagGitHubRepo, "github", "", "GitHub repository as owner/repo")
	ingestCmd.Flags().StringVar(&flagGitHubPath, "path", "", "path within the GitHub repository")
	ingestCmd.Flags().StringVar(&flagTitle, "title", "", "document title (default: first line)")
	ingestCmd.Flags().StringVar(&flagSource, "source", "", "document source label (default: file name)")

	queryCmd.Flags().IntVar(&flagTopK, "top-k", kb.DefaultTopK, "maximum number of results")
	queryCmd.Flags().Float32Var(&flagMinScore, "min-score", kb.DefaultMinScore, "minimum similarity score")
	queryCmd.Flags().StringVar(&flagCategory, "category", "", "restrict results to one category")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(getCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	if flagGitHubRepo == "" && len(args) == 0 {
		return fmt.Errorf("nothing to ingest: pass files or --github owner/repo")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("creating embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0) // Use default batch size

	ch, err := chunker.New(chunker.DefaultMaxChunkSize, chunker.DefaultOverlap)
	if err != nil {
		return err
	}

	repo := kb.NewRepository(store, slog.Default())
	pipeline := ingest.NewPipeline(ch, embedder, repo, slog.Default())

	for _, path := range args {
		result, err := ingestOne(ctx, pipeline, path)
		if err != nil {
			color.Red("failed: %s: %v", path, err)
			continue
		}
		color.Green("ingested %s", path)
		fmt.Printf("  Title:    %s\n", result.Title)
		fmt.Printf("  Category: %s\n", result.Category)
		fmt.Printf("  Chunks:   %d\n", len(result.DocumentIDs))
	}

	if flagGitHubRepo != "" {
		owner, repoName, ok := strings.Cut(flagGitHubRepo, "/")
		if !ok {
			return fmt.Errorf("invalid --github value %q: expected owner/repo", flagGitHubRepo)
		}

		ghClient, err := fetch.NewClient()
		if err != nil {
			return fmt.Errorf("creating GitHub client: %w", err)
		}
		fetcher := fetch.NewFetcher(ghClient, owner, repoName, flagGitHubPath)

		fmt.Printf("Ingesting markdown from github.com/%s/%s...\n", owner, repoName)
		batch, err := pipeline.IngestGitHub(ctx, fetcher)
		if err != nil {
			return fmt.Errorf("GitHub ingestion failed: %w", err)
		}

		fmt.Println()
		fmt.Printf("  Documents: %d/%d\n", batch.SuccessfulDocs, batch.TotalDocs)
		fmt.Printf("  Chunks:    %d\n", batch.TotalChunks)
		for _, failed := range batch.Failed {
			color.Red("  failed %s: %s", failed.Source, failed.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func ingestOne(ctx context.Context, pipeline *ingest.Pipeline, path string) (*ingest.Result, error) {
	if flagTitle == "" && flagSource == "" {
		return pipeline.IngestFile(ctx, path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	source := flagSource
	if source == "" {
		source = path
	}
	return pipeline.IngestText(ctx, flagTitle, source, string(raw))
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("creating embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0)

	repo := kb.NewRepository(store, slog.Default())
	tool := query.NewTool(embedder, repo, query.WithMinScore(flagMinScore))

	var results []query.Result
	if flagCategory != "" {
		results, err = tool.QueryByCategory(ctx, args[0], flagCategory, flagTopK)
		if err != nil {
			return err
		}
	} else {
		results = tool.Query(ctx, args[0], flagTopK)
	}

	if len(results) == 0 {
		fmt.Println("No matching documents.")
		return nil
	}

	for i, r := range results {
		color.Cyan("%d. %s (%.4f)", i+1, r.Title, r.Similarity)
		fmt.Printf("   ID:       %s\n", r.DocumentID)
		fmt.Printf("   Category: %s\n", r.Category)
		fmt.Printf("   Source:   %s\n", r.Source)
		fmt.Printf("   %s\n", excerpt(r.Content, 200))
	}
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	doc, err := store.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("fetching document %s: %w", args[0], err)
	}

	color.Cyan("%s", doc.Title)
	fmt.Printf("ID:       %s\n", doc.ID)
	fmt.Printf("Category: %s\n", doc.Category)
	fmt.Printf("Source:   %s\n", doc.Source)
	fmt.Printf("Added:    %s\n", doc.DateAdded.Format(time.RFC3339))
	fmt.Println()
	fmt.Println(doc.Content)
	return nil
}

// openStore selects the storage backend from KB_STORE.
func openStore() (storage.Store, error) {
	switch backend := getEnv("KB_STORE", "sqlite"); backend {
	case "sqlite":
		return storage.NewSQLiteStore(getEnv("KB_PATH", "trainer-kb.db"))
	case "qdrant":
		store, err := storage.NewQdrantStore(getEnv("QDRANT_HOST", "localhost"), getEnvInt("QDRANT_PORT", 6334))
		if err != nil {
			return nil, fmt.Errorf("connecting to Qdrant: %w", err)
		}
		if err := store.EnsureCollection(context.Background()); err != nil {
			store.Close()
			return nil, fmt.Errorf("ensuring collection: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown KB_STORE %q: expected sqlite or qdrant", backend)
	}
}

func excerpt(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
