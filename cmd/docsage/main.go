// Package main is the docsage CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docsage/internal/chunker"
	"github.com/hyperjump/docsage/internal/cli"
	"github.com/hyperjump/docsage/internal/config"
	"github.com/hyperjump/docsage/internal/embedding"
	"github.com/hyperjump/docsage/internal/extract"
	"github.com/hyperjump/docsage/internal/index"
	"github.com/hyperjump/docsage/internal/ingest"
	"github.com/hyperjump/docsage/internal/models"
	"github.com/hyperjump/docsage/internal/retrieval"
	"github.com/hyperjump/docsage/internal/server"
	"github.com/hyperjump/docsage/internal/storage"
	"github.com/hyperjump/docsage/internal/synthesis"
	"github.com/hyperjump/docsage/internal/themes"
	"github.com/hyperjump/docsage/internal/watcher"
	"github.com/hyperjump/docsage/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/docsage/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
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
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "remove":
		runRemove()
	case "search":
		runSearch()
	case "themes":
		runThemes()
	case "export":
		runExport()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("docsage version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
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
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var watchSvc *watcher.Watcher
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		watchSvc = watcher.New(
			components.Ingestor,
			cfg.Watch.Directories,
			cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(),
			logger,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		go watchSvc.SyncExisting(watchCtx)
	}

	srv := server.NewServer(
		components.Ingestor,
		components.Retriever,
		components.Aggregator,
		components.Index,
		watchSvc,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: docsage ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stat path: %v\n", err)
		os.Exit(1)
	}

	extractor := extract.NewExtractor()
	if info.IsDir() {
		n := 0
		err := filepath.WalkDir(path, func(p string, d os.DirEntry, walkErr error) error {
			if walkErr != nil || d.IsDir() {
				return walkErr
			}
			ext := strings.ToLower(filepath.Ext(p))
			if ext == "" || !extractor.Supported(ext) {
				return nil
			}
			report, upErr := uploadViaHTTP(*serverURL, p)
			if upErr != nil {
				return upErr
			}
			fmt.Printf("Ingested %s: %d chunk(s)\n", report.DocID, report.TotalChunks)
			n++
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}

	report, err := uploadViaHTTP(*serverURL, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	replaced := ""
	if report.Replaced {
		replaced = " (replaced previous version)"
	}
	fmt.Printf("Ingested %s: %d chunk(s)%s\n", report.DocID, report.TotalChunks, replaced)
}

func uploadViaHTTP(serverURL, path string) (*models.IngestReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/documents", mw.FormDataContentType(), &body)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var report models.IngestReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &report, nil
}

func runRemove() {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: docsage remove [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	req, err := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/documents/"+url.PathEscape(docID), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Remove failed: %v\n", err)
		os.Exit(1)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Remove failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		ChunksRemoved int64 `json:"chunks_removed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %s: %d chunk(s)\n", docID, out.ChunksRemoved)
}

// buildQuery joins positional args with spaces so multi-word queries work
// with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	topK := fs.Int("top-k", 0, "number of results (0 = server default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: docsage search [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	body, _ := json.Marshal(map[string]interface{}{"query": query, "top_k": *topK})
	resp, err := http.Post(*serverURL+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Search failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var session models.SearchSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSession(os.Stdout, &session, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runThemes() {
	fs := flag.NewFlagSet("themes", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: docsage themes [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	body, _ := json.Marshal(map[string]string{"query": query})
	resp, err := http.Post(*serverURL+"/api/v1/themes", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Themes failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Themes failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var report models.ThemeReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteThemeReport(os.Stdout, &report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	format := fs.String("format", "txt", "export format: csv or txt")
	outPath := fs.String("o", "", "output file (default: server-suggested filename in the current directory)")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/export?format=" + url.QueryEscape(*format))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Export failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}

	path := *outPath
	if path == "" {
		path = filenameFromDisposition(resp.Header.Get("Content-Disposition"))
		if path == "" {
			path = "search_results." + *format
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d byte(s) to %s\n", len(data), path)
}

// filenameFromDisposition extracts the filename from a Content-Disposition
// attachment header, or returns empty.
func filenameFromDisposition(header string) string {
	const marker = `filename="`
	i := strings.Index(header, marker)
	if i < 0 {
		return ""
	}
	rest := header[i+len(marker):]
	j := strings.Index(rest, `"`)
	if j < 0 {
		return ""
	}
	return rest[:j]
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Status failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}

	if format == cli.OutputJSON {
		if _, err := io.Copy(os.Stdout, resp.Body); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	var status struct {
		Documents       int64  `json:"documents"`
		Chunks          int64  `json:"chunks"`
		VectorIndexSize int    `json:"vector_index_size"`
		DiskUsageBytes  *int64 `json:"disk_usage_bytes,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("documents:          %d\n", status.Documents)
	fmt.Printf("chunks:             %d\n", status.Chunks)
	fmt.Printf("vector_index_size:  %d\n", status.VectorIndexSize)
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage_bytes:   %d\n", *status.DiskUsageBytes)
	}
}

// Components holds the initialized services shared by the server.
type Components struct {
	Storage    storage.Storage
	Index      *index.ChunkIndex
	Ingestor   *ingest.Ingestor
	Retriever  *retrieval.Coordinator
	Aggregator *themes.Aggregator
}

func (c *Components) Close() {
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, synthesizer := buildProviders(cfg, logger)
	if cfg.Embedding.CacheSize > 0 {
		embedder = embedding.NewCached(embedder, cfg.Embedding.CacheSize)
	}

	idx, err := index.Open(context.Background(), store, embedder, index.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open chunk index: %w", err)
	}

	ch, err := chunker.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap, cfg.Chunking.PageLength)
	if err != nil {
		_ = idx.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	return &Components{
		Storage:    store,
		Index:      idx,
		Ingestor:   ingest.NewIngestor(idx, extract.NewExtractor(), ch, logger),
		Retriever:  retrieval.NewCoordinator(idx, synthesizer, cfg.Retrieval, logger),
		Aggregator: themes.NewAggregator(idx, synthesizer, cfg.Themes, logger),
	}, nil
}

// buildProviders creates the embedding and synthesis providers. With no API
// key in the environment both fall back to deterministic mocks so the server
// still runs locally, with a logged warning.
func buildProviders(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, synthesis.Synthesizer) {
	apiKey := os.Getenv(cfg.Embedding.APIKeyEnv)
	if apiKey == "" {
		logger.Warn("no API key in environment, using mock embedding and synthesis",
			zap.String("api_key_env", cfg.Embedding.APIKeyEnv))
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions), &synthesis.MockSynthesizer{}
	}

	embedder, err := embedding.NewOpenAIEmbedder(embedding.OpenAIOptions{
		APIKey:     apiKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		logger.Warn("embedding provider init failed, using mock embedder", zap.Error(err))
		embedder = nil
	}

	synthKey := apiKey
	if cfg.Synthesis.APIKeyEnv != cfg.Embedding.APIKeyEnv {
		synthKey = os.Getenv(cfg.Synthesis.APIKeyEnv)
	}
	synthesizer, err := synthesis.NewOpenAISynthesizer(synthesis.Options{
		APIKey:      synthKey,
		BaseURL:     cfg.Synthesis.BaseURL,
		Model:       cfg.Synthesis.Model,
		MaxTokens:   cfg.Synthesis.MaxTokens,
		Temperature: cfg.Synthesis.Temperature,
		Timeout:     time.Duration(cfg.Synthesis.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		logger.Warn("synthesis provider init failed, answers will be degraded", zap.Error(err))
		synthesizer = nil
	}

	var emb embedding.Embedder = embedder
	if embedder == nil {
		emb = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	var syn synthesis.Synthesizer = synthesizer
	if synthesizer == nil {
		syn = &synthesis.MockSynthesizer{}
	}
	return emb, syn
}

func printUsage() {
	fmt.Println(`docsage - document research assistant with cited answers

Usage:
  docsage server [flags]            Start the HTTP server
  docsage ingest [flags] <path>     Ingest a file or directory
  docsage remove [flags] <doc-id>   Remove a document from the index
  docsage search [flags] <query>    Search with a synthesized, cited answer
  docsage themes [flags] <query>    Identify themes across documents
  docsage export [flags]            Download the last search results
  docsage status [flags]            Show index and configuration status
  docsage version                   Show version
  docsage help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/docsage/config.yaml)
  --debug            Enable debug logging

Common Flags (ingest, remove, search, themes, export, status):
  --server string    Server URL (default: http://localhost:8080)

Search Flags:
  --top-k int        Number of results (0 = server default)
  --output string    Output format: text or json (default: text)

Export Flags:
  --format string    Export format: csv or txt (default: txt)
  -o string          Output file path

Examples:
  docsage server
  docsage ingest report.pdf
  docsage ingest ./docs
  docsage search "what drove revenue growth"
  docsage search --top-k 10 --output json revenue
  docsage themes "risk factors"
  docsage export --format csv -o results.csv
  docsage remove report.pdf
  docsage status`)
}
