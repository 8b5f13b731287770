package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"newsqa/internal/chain"
	"newsqa/internal/chunker"
	"newsqa/internal/config"
	"newsqa/internal/console"
	"newsqa/internal/domain"
	"newsqa/internal/embedding/openai"
	"newsqa/internal/embedding/tfidf"
	"newsqa/internal/fetcher"
	"newsqa/internal/index"
	"newsqa/internal/llm"
	"newsqa/internal/logging"
	"newsqa/internal/memory"
	"newsqa/internal/session"
	"newsqa/internal/vectorstore"
	"newsqa/internal/vectorstore/chromem"
	vsmemory "newsqa/internal/vectorstore/memory"
)

func main() {
	_ = godotenv.Load()

	printer := console.New(os.Stdout, os.Stderr)
	if err := run(printer); err != nil {
		printer.Fatal(err)
		os.Exit(1)
	}
}

func run(printer *console.Printer) error {
	cfg, cfgPath, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Debug("config loaded", zap.String("path", cfgPath))

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()

	printer.Status("Inicializando Sistema de Consulta de Noticias...")
	printer.Status("Cargando noticias de CNN Español y CBC News...")
	fetchers := make([]domain.Fetcher, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		fetchers = append(fetchers, fetcher.NewCrawler(fetcher.SourceFromConfig(src), nil, logger))
	}
	docs := fetcher.FetchAll(ctx, logger, fetchers...)

	perSource := make(map[string]int, len(cfg.Sources))
	for _, d := range docs {
		perSource[d.Source]++
	}
	for _, src := range cfg.Sources {
		printer.SourceLoaded(src.Name, perSource[src.Name])
	}

	idx, err := buildIndex(ctx, cfg, docs, logger)
	if err != nil {
		return err
	}
	printer.IndexReady(len(docs))
	printer.Status("Noticias cargadas correctamente.")

	base, err := llm.NewOpenAI(llm.Config{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.APIKey(),
		Model:   cfg.LLM.Model,
	}, logger)
	if err != nil {
		return err
	}
	answerModel := base.WithTemperature(cfg.LLM.AnswerTemperature)

	classifier, err := chain.NewClassifier(base.WithTemperature(cfg.LLM.ClassifierTemperature))
	if err != nil {
		return err
	}
	news, err := chain.NewNewsGenerator(answerModel, idx, cfg.VectorStore.TopK, logger)
	if err != nil {
		return err
	}
	general, err := chain.NewGeneralGenerator(answerModel)
	if err != nil {
		return err
	}
	mem, err := newMemory(cfg, base, logger)
	if err != nil {
		return err
	}

	// Interrupts cancel the answer in progress, or end the session at the prompt
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	sess, err := session.New(session.Config{
		Classifier: classifier,
		News:       news,
		General:    general,
		Memory:     mem,
		In:         os.Stdin,
		Interrupts: interrupts,
		Printer:    printer,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	printer.Banner("=== Sistema de Consulta de Noticias ===", "Escribe tu pregunta o '"+session.ExitWord+"' para terminar")
	return sess.Run(ctx)
}

func buildIndex(ctx context.Context, cfg *config.AppConfig, docs []domain.Document, logger *zap.Logger) (*index.Index, error) {
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	case "tfidf":
		emb = tfidf.NewEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var st vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "chromem":
		st = chromem.NewStorage(cfg.VectorStore.Collection, logger)
	case "memory":
		st = vsmemory.NewStorage()
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	var ch domain.Chunker
	switch cfg.Chunker.Type {
	case "none":
		ch = chunker.Whole{}
	case "sentence":
		ch = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}

	idx, err := index.Build(ctx, docs, index.Options{
		Embedder: emb,
		Store:    st,
		Chunker:  ch,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building news index: %w", err)
	}
	return idx, nil
}

func newMemory(cfg *config.AppConfig, base *llm.Model, logger *zap.Logger) (*memory.ConversationMemory, error) {
	var sum domain.Summarizer
	switch cfg.Memory.Type {
	case "llm":
		s, err := memory.NewLLMSummarizer(base.WithTemperature(cfg.LLM.MemoryTemperature))
		if err != nil {
			return nil, err
		}
		sum = s
	case "frequency":
		sum = memory.NewFrequencySummarizer(cfg.Memory.MaxSentences)
	default:
		return nil, fmt.Errorf("unknown memory summarizer: %s", cfg.Memory.Type)
	}
	return memory.New(sum, logger)
}
