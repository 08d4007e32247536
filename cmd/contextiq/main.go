// Package main provides the ContextIQ command-line client.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/contextiq/internal/app"
	"github.com/bull/contextiq/internal/config"
	ghclient "github.com/bull/contextiq/internal/github"
	"github.com/bull/contextiq/internal/rag"
)

var (
	namespace  string
	verbose    bool
	fromGitHub bool
	topK       int
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
	red   = color.New(color.FgRed, color.Bold).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:           "contextiq",
	Short:         "Ask questions answered only from your documents",
	Long:          "CLI for ingesting a PDF, markdown or text document and asking questions grounded in it",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file | owner/repo/path[@ref]>",
	Short: "Replace the namespace with a document",
	Long: `Extracts, chunks and embeds a document, then replaces everything
stored in the namespace with it.

With --github the argument is a GitHub file reference; the file is read at
the latest commit touching it unless a ref is given.

Environment variables:
  OPENAI_API_KEY  model provider key (required)
  INDEX_NAME      base vector index name (required)
  QDRANT_HOST     Qdrant hostname (default: localhost)
  QDRANT_PORT     Qdrant gRPC port (default: 6334)
  GITHUB_TOKEN    GitHub token for higher rate limits (optional)`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the ingested document",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the resolved index and record count",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "namespace (default from NAMESPACE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")
	ingestCmd.Flags().BoolVar(&fromGitHub, "github", false, "treat the argument as owner/repo/path[@ref]")
	askCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "chunks to retrieve (default from TOP_K)")

	rootCmd.AddCommand(ingestCmd, askCmd, statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), rag.Explain(err))
		os.Exit(1)
	}
}

// setup loads configuration and assembles the pipeline.
func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var w io.Writer = io.Discard
	if verbose {
		w = os.Stderr
	}
	return app.New(ctx, cfg, app.NewLogger(cfg.Logging, w))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, origin, err := loadDocument(ctx, a.Fetcher, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Ingesting %s...\n", bold(origin))
	result, err := a.Service.Ingest(ctx, doc, namespace)
	if err != nil {
		return err
	}

	fmt.Println(green("Ingestion complete!"))
	fmt.Printf("  Index:      %s\n", result.Index)
	fmt.Printf("  Namespace:  %s\n", result.Namespace)
	fmt.Printf("  Chunks:     %d\n", result.Chunks)
	fmt.Printf("  Characters: %d\n", result.Characters)
	fmt.Printf("  Duration:   %s\n", result.Duration.Round(time.Millisecond))
	return nil
}

// loadDocument reads a local file, or a GitHub file when --github is set.
func loadDocument(ctx context.Context, fetcher *ghclient.Fetcher, arg string) (rag.Document, string, error) {
	if !fromGitHub {
		data, err := os.ReadFile(arg)
		if err != nil {
			return rag.Document{}, "", fmt.Errorf("failed to read %s: %w", arg, err)
		}
		return rag.Document{Name: filepath.Base(arg), Data: data}, arg, nil
	}

	src, err := ghclient.ParseSource(arg)
	if err != nil {
		return rag.Document{}, "", err
	}
	file, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return rag.Document{}, "", err
	}
	return rag.Document{Name: file.Name, Data: file.Content}, fmt.Sprintf("%s (commit %.7s)", src, file.CommitSHA), nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.Service.Ask(ctx, args[0], namespace, topK)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println()
		fmt.Println(bold("Sources:"))
		for _, s := range answer.Sources {
			fmt.Printf("  %s %s\n", faint(fmt.Sprintf("[%.3f]", s.Score)), preview(s.Text, 80))
		}
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.Service.Status(ctx, namespace)
	if err != nil {
		return err
	}

	fmt.Printf("  Index:     %s\n", bold(status.Index))
	fmt.Printf("  Namespace: %s\n", status.Namespace)
	fmt.Printf("  Dimension: %d\n", status.Dimension)
	fmt.Printf("  Records:   %d\n", status.Records)
	if status.Records == 0 {
		fmt.Println(faint("  No document ingested yet. Run: contextiq ingest <file>"))
	}
	return nil
}

// preview collapses whitespace and truncates s to n runes.
func preview(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
