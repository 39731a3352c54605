// Package main is the kotae CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/index"
	"github.com/hyperjump/kotae/internal/querylog"
	"github.com/hyperjump/kotae/internal/retrieval"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used instead.
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
	case "build":
		runBuild()
	case "ask":
		runAsk()
	case "server":
		runServer()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`kotae - retrieval-based question answering over a document tree

Usage:
  kotae build  [-config path] [-debug]          build the index from the corpus
  kotae ask    [-config path] [-debug] <query>  answer a question from the index
  kotae server [-config path] [-debug]          run the HTTP API server
  kotae status [-config path]                   query a running server's status
  kotae version                                 print version
`)
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolvedPath))

	embedder, err := embedding.NewOpenAIEmbedder(&cfg.Embedding)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	defer embedder.Close()

	builder := index.NewBuilder(&cfg.Storage, &cfg.Corpus, &cfg.Retrieval, embedder,
		index.WithLogger(logger))
	started := time.Now()
	stats, err := builder.Build(context.Background())
	if err != nil {
		if errors.Is(err, index.ErrEmptyCorpus) {
			fmt.Printf("Corpus is empty: no indexable files under %s (extensions: %s)\n",
				cfg.Corpus.RootDir, strings.Join(cfg.Corpus.Extensions, ", "))
			os.Exit(1)
		}
		var embErr *index.EmbeddingError
		if errors.As(err, &embErr) {
			fmt.Printf("Embedding failed for %s: %v\nThe committed index was not touched.\n",
				embErr.Path, embErr.Err)
			os.Exit(1)
		}
		logger.Fatal("Build failed", zap.Error(err))
	}
	fmt.Printf("Indexed %d files into %d chunks in %s\n",
		stats.Files, stats.Chunks, time.Since(started).Round(time.Millisecond))
}

// askArgsReorder moves flags that appear after the query to the front so
// flag.Parse() sees them (the flag package stops at the first non-flag arg).
func askArgsReorder(args []string) []string {
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

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	retrieveOnly := fs.Bool("retrieve-only", false, "print retrieved chunks without generating an answer")
	_ = fs.Parse(askArgsReorder(os.Args[2:]))

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	embedder, err := embedding.NewOpenAIEmbedder(&cfg.Embedding)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	defer embedder.Close()

	retriever := retrieval.NewRetriever(&cfg.Retrieval, &cfg.Storage, embedder,
		retrieval.WithLogger(logger))
	if err := retriever.Reload(); err != nil {
		if errors.Is(err, index.ErrIndexNotFound) {
			fmt.Println("No index found. Run: kotae build")
			os.Exit(1)
		}
		logger.Fatal("Failed to load index", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	res, err := retriever.Retrieve(ctx, question)
	if err != nil {
		logger.Fatal("Retrieval failed", zap.Error(err))
	}

	if *retrieveOnly {
		fmt.Printf("Status: %s\n", res.Status)
		for i, c := range res.Chunks {
			fmt.Printf("%2d. %.4f (sim %.4f)  %s", i+1, c.Score, c.Similarity, c.Record.Path)
			if c.Record.Section != "" {
				fmt.Printf("  §%s", c.Record.Section)
			}
			fmt.Println()
		}
		return
	}

	generator, err := answer.NewOpenAIGenerator(&cfg.Embedding, &cfg.Answer)
	if err != nil {
		logger.Fatal("Failed to create answer generator", zap.Error(err))
	}
	text, err := generator.Generate(ctx, question, res)
	if err != nil {
		logger.Fatal("Answer generation failed", zap.Error(err))
	}
	fmt.Println(text)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedPath, err := loadConfig(*configPath)
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
		zap.String("config_path", resolvedPath),
		zap.Bool("debug", debugMode),
	)

	embedder, err := embedding.NewOpenAIEmbedder(&cfg.Embedding)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	defer embedder.Close()

	builder := index.NewBuilder(&cfg.Storage, &cfg.Corpus, &cfg.Retrieval, embedder,
		index.WithLogger(logger))
	retriever := retrieval.NewRetriever(&cfg.Retrieval, &cfg.Storage, embedder,
		retrieval.WithLogger(logger))
	if err := retriever.Reload(); err != nil {
		// A missing index is tolerated at startup; queries fail until a build.
		logger.Warn("no index loaded at startup", zap.Error(err))
	}

	generator, err := answer.NewOpenAIGenerator(&cfg.Embedding, &cfg.Answer)
	if err != nil {
		logger.Fatal("Failed to create answer generator", zap.Error(err))
	}

	var qlog *querylog.Log
	if cfg.Storage.QueryLogPath != "" {
		qlog, err = querylog.Open(cfg.Storage.QueryLogPath)
		if err != nil {
			logger.Fatal("Failed to open query log", zap.Error(err))
		}
		defer qlog.Close()
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled {
		watchOpts := []watcher.Option{watcher.WithDebounce(cfg.Watch.Debounce())}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		w := watcher.New(cfg.Corpus.RootDir, cfg.Corpus.Extensions, func() {
			if _, err := builder.Build(context.Background()); err != nil {
				logger.Error("watch rebuild failed", zap.Error(err))
				return
			}
			if err := retriever.Reload(); err != nil {
				logger.Error("watch reload failed", zap.Error(err))
			}
		}, watchOpts...)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(retriever, builder, generator, qlog, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	url := fmt.Sprintf("http://%s:%d/status", cfg.Server.Host, cfg.Server.Port)
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("Server not reachable at %s: %v\n", url, err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Failed to read response: %v\n", err)
		os.Exit(1)
	}
	var pretty map[string]interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
}
