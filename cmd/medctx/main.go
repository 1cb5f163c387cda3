package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"

	"github.com/brendon-colburn/medical-context-retrieval/matching"
	"github.com/brendon-colburn/medical-context-retrieval/matching/option"
	"github.com/brendon-colburn/medical-context-retrieval/service"
	"github.com/brendon-colburn/medical-context-retrieval/vectordb"
)

func main() {
	_ = godotenv.Load()
	startGops()
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "index":
		indexCmd(os.Args[2:])
	case "search":
		searchCmd(os.Args[2:])
	case "query":
		searchCmd(os.Args[2:])
	case "count":
		countCmd(os.Args[2:])
	case "ingest":
		ingestCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: medctx <command> [options]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  index   Build or reload the vector index from a chunk corpus")
	fmt.Fprintln(os.Stderr, "  search  Run a similarity query against the index")
	fmt.Fprintln(os.Stderr, "  query   Alias for search")
	fmt.Fprintln(os.Stderr, "  count   Report indexed chunk count")
	fmt.Fprintln(os.Stderr, "  ingest  Load source documents into the catalog")
}

func indexCmd(args []string) {
	flags := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := flags.String("config", "medctx.yaml", "config yaml path")
	chunksURL := flags.String("chunks", "", "chunk corpus file (required)")
	force := flags.Bool("force", false, "rebuild even when cached artifacts match")
	flags.Parse(args)
	if *chunksURL == "" {
		log.Fatal("index: --chunks is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := mustService(ctx, *configPath)
	defer svc.Close()
	result, err := svc.Index(ctx, *chunksURL, *force)
	if err != nil {
		log.Fatalf("index: %v", err)
	}
	source := "built"
	if result.FromCache {
		source = "cached"
	}
	fmt.Printf("indexed %d chunks (%s)\n", len(result.Metadata), source)
}

func searchCmd(args []string) {
	flags := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := flags.String("config", "medctx.yaml", "config yaml path")
	query := flags.String("query", "", "query text (required)")
	topK := flags.Int("top", 5, "number of results")
	filter := flags.String("filter", "", "remote filter expression")
	orgs := flags.String("orgs", "", "comma-separated source org allow list")
	flags.Parse(args)
	if *query == "" {
		log.Fatal("search: --query is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := mustService(ctx, *configPath)
	defer svc.Close()
	if err := svc.Load(ctx); err != nil {
		log.Fatalf("search: %v", err)
	}
	var opts []vectordb.Option
	if *filter != "" {
		opts = append(opts, vectordb.WithFilter(*filter))
	}
	if *orgs != "" {
		matcher := matching.New(option.WithOrgs(service.ParseCSV(*orgs)...))
		opts = append(opts, vectordb.WithMatcher(matcher))
	}
	results, err := svc.Search(ctx, *query, *topK, opts...)
	if err != nil {
		log.Fatalf("search: %v", err)
	}
	for _, result := range results {
		fmt.Printf("%2d. score=%.4f doc=%q section=%q\n", result.Rank, result.Score, result.DocTitle, result.SectionPath)
		fmt.Printf("    %s\n", result.RawChunk)
	}
}

func countCmd(args []string) {
	flags := flag.NewFlagSet("count", flag.ExitOnError)
	configPath := flags.String("config", "medctx.yaml", "config yaml path")
	flags.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := mustService(ctx, *configPath)
	defer svc.Close()
	if err := svc.Load(ctx); err != nil {
		log.Fatalf("count: %v", err)
	}
	count, err := svc.Count(ctx)
	if err != nil {
		log.Fatalf("count: %v", err)
	}
	fmt.Printf("%d\n", count)
}

func ingestCmd(args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := flags.String("config", "medctx.yaml", "config yaml path")
	sourceURL := flags.String("source", "", "source document folder (required)")
	flags.Parse(args)
	if *sourceURL == "" {
		log.Fatal("ingest: --source is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc := mustService(ctx, *configPath)
	defer svc.Close()
	documents, err := svc.IngestDocuments(ctx, *sourceURL)
	if err != nil {
		log.Fatalf("ingest: %v", err)
	}
	fmt.Printf("ingested %d documents\n", len(documents))
}

func mustService(ctx context.Context, configPath string) *service.Service {
	config, err := service.LoadConfig(ctx, configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	svc, err := service.New(ctx, config)
	if err != nil {
		log.Fatalf("init service: %v", err)
	}
	return svc
}

func startGops() {
	if err := agent.Listen(agent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("gops: %v", err)
	}
}
