// Command docchat-ingest manages a document library from the shell:
// upload files or raw text, list documents, print a reassembled document,
// and delete documents.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fatih/color"
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
	"docchat/internal/vectorstore"
	"docchat/internal/vectorstore/memory"
	"docchat/internal/vectorstore/qdrant"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
)

func usage() {
	fmt.Println(`Usage: docchat-ingest [flags] <command> [args]

Commands:
  upload <file> [file...]   extract, chunk and index files
  text <raw text>           ingest a raw text snippet
  list                      list the owner's documents
  show <doc-id>             print the reassembled document text
  delete <doc-id>           remove a document and its vectors

Flags:
  -config path       config file (default ~/.config/docchat/config.yaml)
  -owner id          owner ID (default 1)
  -title string      document title (upload/text)
  -description text  document description (upload/text)`)
}

func main() {
	_ = godotenv.Load()

	var cfgPath, title, description string
	var ownerID int64
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file")
	flag.Int64Var(&ownerID, "owner", 1, "Owner ID")
	flag.StringVar(&title, "title", "", "Document title")
	flag.StringVar(&description, "description", "", "Document description")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

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
		warnColor.Fprintln(os.Stderr, "warning: vector store is in-memory; indexed vectors do not outlive this process")
	}

	ctx := context.Background()

	switch cmd, rest := args[0], args[1:]; cmd {
	case "upload":
		if len(rest) == 0 {
			errColor.Fprintln(os.Stderr, "upload needs at least one file")
			os.Exit(1)
		}
		for _, path := range rest {
			data, err := os.ReadFile(path)
			if err != nil {
				errColor.Fprintf(os.Stderr, "read %s: %v\n", path, err)
				os.Exit(1)
			}
			res, err := svc.Upload(ctx, ownerID, filepath.Base(path), data, title, description)
			if err != nil {
				errColor.Fprintf(os.Stderr, "upload %s: %v\n", path, err)
				os.Exit(1)
			}
			okColor.Printf("uploaded %s as document %d (%d chunks)\n", path, res.DocumentID, len(res.Chunks))
			for _, w := range res.Warnings {
				warnColor.Println("warning:", w)
			}
		}
	case "text":
		if len(rest) != 1 {
			errColor.Fprintln(os.Stderr, "text needs exactly one argument")
			os.Exit(1)
		}
		if title == "" {
			title = "snippet"
		}
		res, err := svc.Ingest(ctx, ownerID, rest[0], title, description)
		if err != nil {
			errColor.Fprintln(os.Stderr, "ingest:", err)
			os.Exit(1)
		}
		okColor.Printf("ingested document %d (%d chunks)\n", res.DocumentID, len(res.Chunks))
		for _, w := range res.Warnings {
			warnColor.Println("warning:", w)
		}
	case "list":
		docs, err := svc.Documents(ctx, ownerID)
		if err != nil {
			errColor.Fprintln(os.Stderr, "list:", err)
			os.Exit(1)
		}
		if len(docs) == 0 {
			dimColor.Println("no documents")
			return
		}
		for _, d := range docs {
			fmt.Printf("%6d  %s  %s\n", d.ID, d.UploadedAt.Format("2006-01-02 15:04"), d.Title)
			if d.Description != "" {
				dimColor.Printf("        %s\n", d.Description)
			}
		}
	case "show":
		docID := parseDocID(rest)
		text, err := svc.Reassemble(ctx, ownerID, docID)
		if err != nil {
			errColor.Fprintln(os.Stderr, "show:", err)
			os.Exit(1)
		}
		if text == "" {
			dimColor.Println("no such document")
			os.Exit(1)
		}
		fmt.Println(text)
	case "delete":
		docID := parseDocID(rest)
		res, err := svc.Delete(ctx, ownerID, docID)
		if err != nil {
			errColor.Fprintln(os.Stderr, "delete:", err)
			os.Exit(1)
		}
		if res.Deleted {
			okColor.Printf("deleted document %d\n", docID)
		} else {
			dimColor.Println("no such document")
		}
		for _, w := range res.Warnings {
			warnColor.Println("warning:", w)
		}
	default:
		errColor.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func parseDocID(rest []string) int64 {
	if len(rest) != 1 {
		errColor.Fprintln(os.Stderr, "expected exactly one document ID")
		os.Exit(1)
	}
	id, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		errColor.Fprintf(os.Stderr, "bad document ID %q\n", rest[0])
		os.Exit(1)
	}
	return id
}

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
