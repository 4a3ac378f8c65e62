// Package main is the tanya CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/tanya/internal/chat"
	"github.com/hyperjump/tanya/internal/cli"
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/llm"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/server"
	"github.com/hyperjump/tanya/internal/session"
	"github.com/hyperjump/tanya/internal/storage"
	"github.com/hyperjump/tanya/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tanya/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory wins if it exists, so that running from a project directory picks up its config.
// A missing default file is not an error: defaults plus environment apply. Returns the config
// and the path that was actually loaded ("" when none).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg, err := config.LoadOptional("")
			return cfg, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "serve", "server":
		runServe()
	case "chat":
		runChat()
	case "ask":
		runAsk()
	case "chunks":
		runChunks()
	case "history":
		runHistory()
	case "config":
		runConfig()
	case "version", "--version", "-v":
		fmt.Printf("tanya version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// fail prints err with recovery guidance for its kind and exits.
func fail(prefix string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", prefix, err)
	if hint := cli.Guidance(err); hint != "" {
		fmt.Fprintf(os.Stderr, "  %s\n", hint)
	}
	os.Exit(1)
}

// flagsFirst moves any flags (and their values) that appear after positional arguments
// to the front, since the flag package stops at the first non-flag argument.
func flagsFirst(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("llm_provider", cfg.LLM.Provider),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	mgr, err := components.NewManager(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize sessions", zap.Error(err))
	}
	defer mgr.Close()

	srv := server.NewServer(mgr, components.Archive, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// Components holds initialized services.
type Components struct {
	Embedder  embedding.Embedder
	Generator llm.Generator
	Indexer   *indexer.Indexer
	Engine    *chat.Engine
	Archive   storage.Archive // nil when storage.database_path is empty
}

// Close releases provider and archive resources.
func (c *Components) Close() {
	if c.Generator != nil {
		_ = c.Generator.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Archive != nil {
		_ = c.Archive.Close()
	}
}

// NewManager returns a session manager over the components.
func (c *Components) NewManager(cfg *config.Config, logger *zap.Logger) (*session.Manager, error) {
	opts := []session.Option{}
	if logger != nil {
		opts = append(opts, session.WithLogger(logger))
	}
	if c.Archive != nil {
		opts = append(opts, session.WithArchive(c.Archive))
	}
	return session.NewManager(c.Indexer, c.Engine, cfg.Retrieval.K, opts...)
}

// initializeComponents validates cfg and constructs the providers. Configuration problems
// surface here, before any document is read.
func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Components{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	embedder, err := embedding.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Embedder = embedder

	generator, err := llm.New(cfg)
	if err != nil {
		return nil, err
	}
	c.Generator = generator

	idxOpts := []indexer.IndexerOption{}
	engineOpts := []chat.EngineOption{}
	if debug && logger != nil {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
		engineOpts = append(engineOpts, chat.WithLogger(logger))
	}
	idx, err := indexer.NewIndexerFromConfig(cfg, embedder, idxOpts...)
	if err != nil {
		return nil, err
	}
	c.Indexer = idx
	c.Engine = chat.NewEngine(generator, engineOpts...)

	if cfg.Storage.DatabasePath != "" {
		archive, err := storage.NewSQLiteArchive(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize archive: %w", err)
		}
		c.Archive = archive
	}
	if logger != nil {
		logger.Debug("components initialized",
			zap.Int("chunk_size", cfg.Chunking.ChunkSize),
			zap.Int("chunk_overlap", cfg.Chunking.Overlap()),
			zap.Int("k", cfg.Retrieval.K),
			zap.String("retrieval_mode", cfg.Retrieval.Mode),
			zap.Bool("archive", c.Archive != nil))
	}
	ok = true
	return c, nil
}

// loadDocuments expands inputs (files or directories) and reads them.
func loadDocuments(cfg *config.Config, inputs []string) ([]models.SourceDocument, error) {
	files, err := indexer.CollectFiles(inputs, cfg.Watch.Extensions, cfg.Watch.RecursiveOrDefault())
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, models.NewEmptyInputError("load documents", "no supported files found in "+strings.Join(inputs, ", "))
	}
	return indexer.ReadDocuments(files)
}

func printUsage() {
	fmt.Println(`tanya - Chat with your documents

Usage:
  tanya serve [flags]                          Start the HTTP API
  tanya chat [flags] <files or dirs...>        Interactive chat over documents
  tanya ask [flags] <question> <files...>      Answer one question and exit
  tanya chunks [flags] <files...>              Print the chunks a build would index
  tanya history [flags]                        Show archived conversation turns
  tanya config init [--force] <path>           Write a default config file
  tanya version                                Show version
  tanya help                                   Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/tanya/config.yaml, or ./config.yaml)
  --debug            Enable debug logging

Chat Flags:
  -k int             Chunks retrieved per question (default from config, 4)
  --format string    Output format: text or json (default: text)
  --watch            Rebuild when files in the given directories change (clears history)

Chat Commands:
  :history   Show the conversation so far
  :sources   Show the chunks behind the last answer
  :reset     Rebuild from the same inputs and clear history
  :quit      Exit

Chunks Flags:
  --size int         Chunk size in characters (default from config)
  --overlap int      Chunk overlap in characters (default from config)
  --format string    Output format: text or json

History Flags:
  --session string   Only turns from this session
  --offset int       Skip this many turns
  --limit int        Maximum turns to show (default: 20)
  --format string    Output format: text or json

Environment:
  EMBEDDING_PROVIDER, LLM_PROVIDER, OPENAI_API_KEY, OPENAI_MODEL_NAME, HUGGINGFACE_API_TOKEN,
  HUGGINGFACE_EMBEDDING_MODEL, HUGGINGFACE_MODEL_PATH, OLLAMA_BASE_URL, RETRIEVER_K, CHUNK_SIZE, CHUNK_OVERLAP (also with a TANYA_ prefix; .env is read)

Examples:
  tanya chat ./papers
  tanya chat --watch -k 6 ./notes report.pdf
  tanya ask "What were the Q3 results?" report.pdf
  tanya ask --format json "Who signed the contract?" contract.docx
  tanya chunks --size 500 --overlap 50 report.pdf
  tanya history --limit 5
  tanya serve`)
}
