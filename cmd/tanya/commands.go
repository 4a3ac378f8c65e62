package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hyperjump/tanya/internal/cli"
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/storage"
	"github.com/hyperjump/tanya/pkg/utils"
)

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	k := fs.Int("k", 0, "chunks retrieved (0 = from config)")
	formatFlag := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(flagsFirst(os.Args[2:]))

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: tanya ask [flags] <question> <files or dirs...>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	req := models.QuestionRequest{Question: fs.Arg(0)}
	if err := req.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *k != 0 {
		cfg.Retrieval.K = *k
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewCLILogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		fail("Failed to initialize", err)
	}
	defer components.Close()
	mgr, err := components.NewManager(cfg, logger)
	if err != nil {
		fail("Failed to initialize", err)
	}
	defer mgr.Close()

	ctx := context.Background()
	docs, err := loadDocuments(cfg, fs.Args()[1:])
	if err != nil {
		fail("Failed to read documents", err)
	}
	sess, err := mgr.Create(ctx)
	if err != nil {
		fail("Failed to start session", err)
	}
	if _, err := sess.Build(ctx, docs); err != nil {
		fail("Failed to build knowledge base", err)
	}
	start := time.Now()
	answer, err := sess.Ask(ctx, req.Question)
	if err != nil {
		fail("Failed to answer", err)
	}
	if err := cli.WriteAnswer(os.Stdout, answer, time.Since(start), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runChunks() {
	fs := flag.NewFlagSet("chunks", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	size := fs.Int("size", 0, "chunk size in characters (0 = from config)")
	overlap := fs.Int("overlap", -1, "chunk overlap in characters (-1 = from config)")
	formatFlag := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(flagsFirst(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tanya chunks [flags] <files or dirs...>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	chunks, report, err := previewChunks(cfg, fs.Args(), *size, *overlap)
	if err != nil {
		fail("Failed to chunk", err)
	}
	for _, s := range report.Skipped {
		fmt.Fprintf(os.Stderr, "skipped %s: %s\n", s.Name, s.Reason)
	}
	if err := cli.WriteChunks(os.Stdout, chunks, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// previewChunks extracts and chunks inputs without embedding them. size 0 and overlap -1
// take the configured values.
func previewChunks(cfg *config.Config, inputs []string, size, overlap int) ([]*models.Chunk, *indexer.BuildReport, error) {
	if size == 0 {
		size = cfg.Chunking.ChunkSize
	}
	if overlap < 0 {
		overlap = cfg.Chunking.Overlap()
	}
	chunker, err := indexer.NewChunker(size, overlap)
	if err != nil {
		return nil, nil, err
	}
	docs, err := loadDocuments(cfg, inputs)
	if err != nil {
		return nil, nil, err
	}
	report := &indexer.BuildReport{}
	units := indexer.NewIndexer(nil, chunker).ExtractPages(docs, report)
	chunks := chunker.Chunk(units)
	report.Chunks = len(chunks)
	return chunks, report, nil
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	sessionID := fs.String("session", "", "only turns from this session")
	offset := fs.Int("offset", 0, "skip this many turns")
	limit := fs.Int("limit", 20, "maximum turns to show")
	formatFlag := fs.String("format", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*formatFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.Storage.DatabasePath == "" {
		fail("History unavailable", models.NewConfigurationError("storage.database_path is not set; transcripts are not archived"))
	}
	archive, err := storage.NewSQLiteArchive(cfg.Storage.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open archive: %v\n", err)
		os.Exit(1)
	}
	defer archive.Close()

	turns, err := archive.ListTurns(context.Background(), *sessionID, *offset, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read archive: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteTranscript(os.Stdout, turns, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runConfig() {
	if len(os.Args) < 3 || os.Args[2] != "init" {
		fmt.Fprintln(os.Stderr, "Usage: tanya config init [--force] <path>")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(flagsFirst(os.Args[3:]))
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: tanya config init [--force] <path>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	if err := writeDefaultConfig(path, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default config to %s\n", path)
}

// writeDefaultConfig saves a config holding every default to path. Secrets are left empty
// so they come from the environment.
func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return config.Save(path, cfg)
}
