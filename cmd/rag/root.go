package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"ragqa/internal/chunker"
	"ragqa/internal/config"
	"ragqa/internal/embedding"
	"ragqa/internal/llm"
	"ragqa/internal/logger"
	"ragqa/internal/metrics"
	"ragqa/internal/service"
	"ragqa/internal/source"
	"ragqa/internal/summarizer"
	"ragqa/internal/vectorstore"
)

type globalFlags struct {
	configPath string
	verbose    bool
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "rag",
		Short:         "Answer questions about a reference document",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/ragqa/config.yaml)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		serveCmd(flags),
		askCmd(flags),
		queryCmd(flags),
	)
	return root
}

func loadConfig(flags *globalFlags) (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if flags.configPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(flags.configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// app holds the assembled pipeline and its ambient services.
type app struct {
	cfg      *config.AppConfig
	log      logger.Logger
	metrics  *metrics.Recorder
	pipeline *service.Pipeline
}

// newApp wires every component from cfg. logOut nil means stderr.
func newApp(cfg *config.AppConfig, logOut io.Writer) (*app, error) {
	log := logger.New(logger.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Output: logOut})

	ch, err := chunker.New(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	emb, err := embedding.New(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	model, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	stores, err := vectorstore.NewFactory(cfg.VectorStore)
	if err != nil {
		return nil, err
	}

	rec := metrics.New()
	p := service.New(service.Deps{
		Source:     source.NewFile(afero.NewOsFs(), cfg.Document.Path),
		Chunker:    ch,
		Embedder:   emb,
		ChatModel:  model,
		Stores:     stores,
		Summarizer: summarizer.NewFrequency(),
	}, service.Options{
		TopK:              cfg.Retrieval.TopK,
		MaxTopK:           cfg.Retrieval.MaxTopK,
		EmbedTimeout:      time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		ChatTimeout:       time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		OverviewSentences: cfg.Summarizer.MaxSentences,
		Logger:            log,
		Metrics:           rec,
	})
	log.Debug("pipeline assembled",
		"document", cfg.Document.Path,
		"embedder", emb.Name(),
		"llm", model.Name(),
		"store", cfg.VectorStore.Type,
	)
	return &app{cfg: cfg, log: log, metrics: rec, pipeline: p}, nil
}
