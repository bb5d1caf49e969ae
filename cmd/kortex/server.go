package kortex

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kortexhq/kortex/pkg/citation"
	"github.com/kortexhq/kortex/pkg/config"
	"github.com/kortexhq/kortex/pkg/embedder"
	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/llmclient"
	"github.com/kortexhq/kortex/pkg/logger"
	"github.com/kortexhq/kortex/pkg/mutation"
	"github.com/kortexhq/kortex/pkg/ontology"
	"github.com/kortexhq/kortex/pkg/orchestrator"
	"github.com/kortexhq/kortex/pkg/queue"
	"github.com/kortexhq/kortex/pkg/resolver"
	"github.com/kortexhq/kortex/pkg/search"
	"github.com/kortexhq/kortex/pkg/server"
)

var serverCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kortex HTTP server",
	Long: `Start the kortex HTTP server, exposing episode ingestion, hybrid search,
edge update, episode delete, and health over HTTP.

Configuration can be provided through config files, environment variables, or
command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
)

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "server port")

	serverCmd.Flags().String("graph-store-driver", "badger", "graph store driver (badger, neo4j)")
	serverCmd.Flags().String("graph-store-uri", "./kortex_data", "graph store URI/path")
	serverCmd.Flags().String("graph-store-username", "", "graph store username (neo4j only)")
	serverCmd.Flags().String("graph-store-password", "", "graph store password (neo4j only)")
	serverCmd.Flags().String("graph-store-database", "", "graph store database (neo4j only)")

	serverCmd.Flags().String("llm-provider", "openai", "LLM provider")
	serverCmd.Flags().String("llm-model", "gpt-4o-mini", "LLM model")
	serverCmd.Flags().String("llm-api-key", "", "LLM API key")
	serverCmd.Flags().String("llm-base-url", "", "LLM base URL")

	serverCmd.Flags().String("embedding-provider", "openai", "embedding provider")
	serverCmd.Flags().String("embedding-model", "text-embedding-3-small", "embedding model")
	serverCmd.Flags().String("embedding-api-key", "", "embedding API key")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrideConfigWithFlags(cmd, cfg)
	if err := validateServerConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.NewDefault(logger.ParseLevel(cfg.Log.Level))

	store, err := graphstore.New(graphstore.Options{
		Provider: graphstore.Provider(cfg.GraphStore.Driver),
		DataDir:  cfg.GraphStore.URI,
		URI:      cfg.GraphStore.URI,
		Username: cfg.GraphStore.Username,
		Password: cfg.GraphStore.Password,
		Database: cfg.GraphStore.Database,
	})
	if err != nil {
		return fmt.Errorf("failed to open graph store: %w", err)
	}

	embed, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	llm, err := newLLMClient(cfg, log)
	if err != nil {
		return err
	}

	reg := ontology.NewRegistry()
	res := resolver.New(store, embed, resolver.Options{})
	orch := orchestrator.New(orchestrator.Config{
		Store:    store,
		LLM:      llm,
		Embed:    embed,
		Resolver: res,
		Ontology: reg,
		Log:      log,
	})

	processor := queue.WithRetry(orch.Process, queue.RetryConfig{
		MaxAttempts: cfg.LLM.RetryMaxAttempt,
		BaseDelay:   time.Duration(cfg.LLM.RetryBaseMS) * time.Millisecond,
		CapDelay:    time.Duration(cfg.LLM.RetryCapMS) * time.Millisecond,
	})

	q := queue.New(queue.Config{
		MaxInflightEpisodes: cfg.Queue.MaxInflightEpisodes,
		LLMSemaphore:        cfg.LLM.Semaphore,
		EpisodeSpacing:      time.Duration(cfg.Queue.EpisodeSpacingMS) * time.Millisecond,
	}, store, processor, log)

	engine := search.New(store, embed)
	citations := citation.New(store)
	mutationSvc := mutation.New(store, embed, log)

	srv := server.New(cfg, store, q, engine, citations, mutationSvc)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	log.Info("kortex server listening", "host", cfg.Server.Host, "port", cfg.Server.Port)

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("received shutdown signal", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		log.Info("server stopped gracefully")
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("graph-store-driver") {
		cfg.GraphStore.Driver, _ = cmd.Flags().GetString("graph-store-driver")
	}
	if cmd.Flags().Changed("graph-store-uri") {
		cfg.GraphStore.URI, _ = cmd.Flags().GetString("graph-store-uri")
	}
	if cmd.Flags().Changed("graph-store-username") {
		cfg.GraphStore.Username, _ = cmd.Flags().GetString("graph-store-username")
	}
	if cmd.Flags().Changed("graph-store-password") {
		cfg.GraphStore.Password, _ = cmd.Flags().GetString("graph-store-password")
	}
	if cmd.Flags().Changed("graph-store-database") {
		cfg.GraphStore.Database, _ = cmd.Flags().GetString("graph-store-database")
	}
	if cmd.Flags().Changed("llm-provider") {
		cfg.LLM.Provider, _ = cmd.Flags().GetString("llm-provider")
	}
	if cmd.Flags().Changed("llm-model") {
		cfg.LLM.Model, _ = cmd.Flags().GetString("llm-model")
	}
	if cmd.Flags().Changed("llm-api-key") {
		cfg.LLM.APIKey, _ = cmd.Flags().GetString("llm-api-key")
	}
	if cmd.Flags().Changed("llm-base-url") {
		cfg.LLM.BaseURL, _ = cmd.Flags().GetString("llm-base-url")
	}
	if cmd.Flags().Changed("embedding-provider") {
		cfg.Embedding.Provider, _ = cmd.Flags().GetString("embedding-provider")
	}
	if cmd.Flags().Changed("embedding-model") {
		cfg.Embedding.Model, _ = cmd.Flags().GetString("embedding-model")
	}
	if cmd.Flags().Changed("embedding-api-key") {
		cfg.Embedding.APIKey, _ = cmd.Flags().GetString("embedding-api-key")
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	if cfg.GraphStore.URI == "" {
		return fmt.Errorf("graph store URI is required")
	}
	return nil
}

func newEmbedder(cfg *config.Config) (embedder.Client, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedder.NewOpenAIEmbedder(cfg.Embedding.APIKey, embedder.Config{
			Model:      cfg.Embedding.Model,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.GraphStore.VectorDim,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

func newLLMClient(cfg *config.Config, log *slog.Logger) (llmclient.Client, error) {
	var client llmclient.Client
	switch cfg.LLM.Provider {
	case "openai":
		base, err := llmclient.NewOpenAIClient(cfg.LLM.APIKey, llmclient.Config{
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		client = base
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}

	client = llmclient.NewRetryClient(client, &llmclient.RetryConfig{
		MaxAttempts: cfg.LLM.RetryMaxAttempt,
		BaseDelay:   time.Duration(cfg.LLM.RetryBaseMS) * time.Millisecond,
		CapDelay:    time.Duration(cfg.LLM.RetryCapMS) * time.Millisecond,
	})

	if cfg.CircuitBreaker.Enabled {
		client = llmclient.NewCircuitBreakerClient(client, llmclient.CircuitBreakerConfig{
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         float64(cfg.CircuitBreaker.IntervalSeconds),
			Timeout:          float64(cfg.CircuitBreaker.TimeoutSeconds),
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
		}, "llm", log)
	}

	return client, nil
}
