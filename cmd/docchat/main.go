package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docchat/internal/chunker"
	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/embedding/ollama"
	"docchat/internal/embedding/openai"
	"docchat/internal/extract"
	"docchat/internal/llm"
	"docchat/internal/service"
	"docchat/internal/store/sqlite"
	"docchat/internal/summarizer"
	"docchat/internal/tui"
	"docchat/internal/vectorstore"
	"docchat/internal/vectorstore/memory"
	"docchat/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var ownerID int64
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docchat/config.yaml if not provided)")
	flag.Int64Var(&ownerID, "owner", 1, "Owner ID whose documents to chat with")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	svc, st, err := buildService(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	if cfg.VectorStore.Ephemeral() {
		fmt.Fprintln(os.Stderr, "warning: vector store is in-memory; documents ingested in earlier runs are not searchable in this session")
	}

	ctx := context.Background()

	// Files on the command line are uploaded before the chat starts.
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		res, err := svc.Upload(ctx, ownerID, filepath.Base(path), data, "", "")
		if err != nil {
			log.Fatalf("upload %s: %v", path, err)
		}
		for _, w := range res.Warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
	}

	docs, err := svc.Documents(ctx, ownerID)
	if err != nil {
		log.Fatalf("list documents: %v", err)
	}
	header := fmt.Sprintf("%d document(s) loaded for owner %d. Type a question.", len(docs), ownerID)

	m := tui.New(svc, ownerID, header)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

// buildService assembles the service from the config. The returned store
// must be closed by the caller.
func buildService(cfg *config.AppConfig) (*service.DocService, *sqlite.Store, error) {
	st, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "ollama", "":
		ocfg := ollama.Config{}
		if cfg.Embedder.Ollama != nil {
			ocfg = ollama.Config{
				BaseURL: cfg.Embedder.Ollama.BaseURL,
				Model:   cfg.Embedder.Ollama.Model,
				Timeout: time.Duration(cfg.Embedder.Ollama.TimeoutSecs) * time.Second,
			}
		}
		emb = ollama.NewClient(ocfg)
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	default:
		return nil, nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var storage vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "memory", "":
		storage = memory.NewStorage()
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return nil, nil, fmt.Errorf("qdrant config missing")
		}
		storage = qdrant.NewStorage(qdrant.Config{
			URL:     cfg.VectorStore.Qdrant.URL,
			APIKey:  cfg.VectorStore.Qdrant.APIKey,
			Timeout: time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return nil, nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	var completer domain.Completer
	switch cfg.LLM.Type {
	case "openai", "":
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL:   cfg.LLM.OpenAI.BaseURL,
			APIKeyEnv: cfg.LLM.OpenAI.APIKeyEnv,
			Model:     cfg.LLM.OpenAI.Model,
			Timeout:   time.Duration(cfg.LLM.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("llm init failed: %w", err)
		}
		completer = client
	default:
		return nil, nil, fmt.Errorf("unknown llm: %s", cfg.LLM.Type)
	}

	ch, err := chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	if err != nil {
		return nil, nil, fmt.Errorf("chunker init failed: %w", err)
	}
	sum := summarizer.NewFrequencySummarizer(ch.Sentences)
	index := vectorstore.NewIndex(storage, emb)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := service.New(ch, st, index, extract.NewPlainText(), completer, sum, service.Config{
		DistanceThreshold:   cfg.Retrieval.DistanceThreshold,
		TopK:                cfg.Retrieval.TopK,
		SummaryMaxSentences: cfg.Summarizer.MaxSentences,
	}, logger)
	return svc, st, nil
}
