package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/tanya/internal/cli"
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/session"
	"github.com/hyperjump/tanya/internal/watcher"
	"github.com/hyperjump/tanya/pkg/utils"
	"go.uber.org/zap"
)

// repl runs the interactive loop for one session.
type repl struct {
	cfg     *config.Config
	sess    *session.Session
	inputs  []string
	format  cli.OutputFormat
	out     io.Writer
	logger  *zap.Logger
	mu      sync.Mutex // guards last
	last    *models.Answer
	rebuild sync.Mutex // one rebuild at a time
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	k := fs.Int("k", 0, "chunks retrieved per question (0 = from config)")
	formatFlag := fs.String("format", "text", "output format: text or json")
	watch := fs.Bool("watch", false, "rebuild when files in the given directories change")
	_ = fs.Parse(flagsFirst(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tanya chat [flags] <files or dirs...>")
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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sess, err := mgr.Create(ctx)
	if err != nil {
		fail("Failed to start session", err)
	}
	r := &repl{cfg: cfg, sess: sess, inputs: fs.Args(), format: format, out: os.Stdout, logger: logger}
	if err := r.build(ctx); err != nil {
		fail("Failed to build knowledge base", err)
	}

	if *watch {
		w, err := r.startWatcher(ctx, debugMode)
		if err != nil {
			fail("Failed to watch", err)
		}
		defer w.Stop()
	}

	fmt.Fprintln(os.Stderr, "Ask a question, or :history, :sources, :reset, :quit.")
	r.loop(ctx, os.Stdin)
}

func (r *repl) build(ctx context.Context) error {
	r.rebuild.Lock()
	defer r.rebuild.Unlock()
	docs, err := loadDocuments(r.cfg, r.inputs)
	if err != nil {
		return err
	}
	report, err := r.sess.Build(ctx, docs)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.last = nil
	r.mu.Unlock()
	cli.WriteBuildReport(os.Stderr, report)
	return nil
}

// startWatcher rebuilds the knowledge base after each burst of changes in the directory
// inputs. A failed rebuild keeps the previous knowledge base.
func (r *repl) startWatcher(ctx context.Context, debug bool) (*watcher.Watcher, error) {
	var dirs []string
	for _, in := range r.inputs {
		if info, err := os.Stat(in); err == nil && info.IsDir() {
			dirs = append(dirs, in)
		}
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("--watch needs at least one directory input")
	}
	opts := []watcher.WatcherOption{}
	if debug {
		opts = append(opts, watcher.WithLogger(r.logger))
	}
	w := watcher.NewWatcher(dirs, r.cfg.Watch.Extensions, r.cfg.Watch.RecursiveOrDefault(), func(paths []string) {
		fmt.Fprintf(os.Stderr, "\n%d change(s) detected, rebuilding...\n", len(paths))
		if err := r.build(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Rebuild failed, keeping previous knowledge base: %v\n", err)
			return
		}
		fmt.Fprintln(os.Stderr, "Knowledge base rebuilt; history cleared.")
	}, opts...)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *repl) loop(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(os.Stderr)
			return
		}
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !r.handle(ctx, line) {
			return
		}
	}
}

// handle processes one input line and reports whether the loop should continue.
func (r *repl) handle(ctx context.Context, line string) bool {
	switch line {
	case ":quit", ":exit", ":q":
		return false
	case ":history":
		cli.WriteHistory(r.out, r.sess.History())
		return true
	case ":sources":
		r.mu.Lock()
		last := r.last
		r.mu.Unlock()
		cli.WriteSources(r.out, last)
		return true
	case ":reset":
		if err := r.build(ctx); err != nil {
			r.printError(err)
		}
		return true
	}
	if strings.HasPrefix(line, ":") {
		fmt.Fprintf(os.Stderr, "Unknown command %s\n", line)
		return true
	}

	req := models.QuestionRequest{Question: line}
	if err := req.Validate(); err != nil {
		r.printError(err)
		return true
	}
	start := time.Now()
	answer, err := r.sess.Ask(ctx, req.Question)
	if err != nil {
		r.printError(err)
		return true
	}
	r.mu.Lock()
	r.last = answer
	r.mu.Unlock()
	if err := cli.WriteAnswer(r.out, answer, time.Since(start), r.format); err != nil {
		r.printError(err)
	}
	return true
}

func (r *repl) printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if hint := cli.Guidance(err); hint != "" {
		fmt.Fprintf(os.Stderr, "  %s\n", hint)
	}
}
