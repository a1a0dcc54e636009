package main

import (
	"bufio"
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/ai"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/board"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/cache"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/config"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/controller"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/hub"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/relay"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/routes"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/internal/store"
	"github.com/Arshlankhann/Collaborative-AI-Todo-Board/pkg/logger"
)

func main() {
	loadEnvFile(".env")

	ctx := context.Background()
	cfg := config.Get()

	st, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "Store not available; exiting", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Pre-warm Redis (optional; cache works lazily)
	cache.Client(ctx)

	sessions := hub.New()

	// Events fan out across replicas through Kafka when brokers are set;
	// otherwise delivery stays local to this process.
	events := relay.New(sessions, cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaPartitions, cfg.InstanceID)
	events.EnsureTopic(ctx)
	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	go events.Run(relayCtx)

	aiOpts := []ai.Option{ai.WithTimeout(time.Duration(cfg.AITimeout) * time.Second)}
	if cfg.GeminiBaseURL != "" {
		aiOpts = append(aiOpts, ai.WithBaseURL(cfg.GeminiBaseURL))
	}
	gen := ai.New(cfg.GeminiAPIKey, aiOpts...)

	svc := board.NewService(st, events, gen)
	ct := controller.New(svc, st)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      routes.Router(ct, sessions),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server")
	stopRelay()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown error", "error", err)
	}
	logger.Info(ctx, "Server stopped")
}

// newStore picks Postgres when DATABASE_URL is set, otherwise an in-memory
// store. The in-memory store is for local development; it loses everything on
// restart.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		return store.NewPostgres(ctx, cfg.DatabaseURL, cfg.DBPoolSize)
	}
	logger.Warn(ctx, "DATABASE_URL not set; using in-memory store")
	return store.NewMemDB()
}

// loadEnvFile reads a .env file and sets env vars (only if not already set).
func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
			val = strings.Trim(val, `"`)
		} else if strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
			val = strings.Trim(val, "'")
		}
		if key != "" && os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
}
