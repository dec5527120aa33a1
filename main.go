package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bayline/server/internal/agent/dispatcher"
	"github.com/bayline/server/internal/agent/graph"
	"github.com/bayline/server/internal/agent/model"
	"github.com/bayline/server/internal/agent/repo"
	"github.com/bayline/server/internal/backend"
	"github.com/bayline/server/internal/channel/line"
	"github.com/bayline/server/internal/core"
	"github.com/bayline/server/internal/observability/metrics"
	"github.com/bayline/server/internal/router"
	"github.com/bayline/server/internal/server"
	logx "github.com/bayline/server/pkg/logger"
	pkgredis "github.com/bayline/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the bridge,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Port        string `envconfig:"PORT" default:"8080"`

	// Messaging platform
	ChannelSecret string `envconfig:"LINE_CHANNEL_SECRET" required:"true"`
	ChannelToken  string `envconfig:"LINE_CHANNEL_ACCESS_TOKEN" required:"true"`

	// Scheduling backend
	BackendURL     string        `envconfig:"BACKEND_URL" required:"true"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"0s"`

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Infrastructure
	Redis   pkgredis.Config
	Session model.SessionConfig

	// Agent configs
	Intent model.IntentModelConfig
	Reply  model.ReplyModelConfig
	Prompt model.PromptConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("Could not load .env file")
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}
	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	bridgeMetrics := metrics.NewBridgeMetrics(nil)

	sessions, closeSessions, err := newSessionStore(ctx, envCfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise session store")
	}
	defer closeSessions()

	gateway := backend.NewGateway(envCfg.BackendURL,
		backend.WithTimeout(envCfg.BackendTimeout),
		backend.WithObserver(bridgeMetrics),
	)

	runner, err := graph.BuildTurnGraph(ctx, graph.Config{
		APIKey:      envCfg.APIKey,
		BaseURL:     envCfg.BaseURL,
		IntentModel: envCfg.Intent,
		ReplyModel:  envCfg.Reply,
		Prompt:      envCfg.Prompt,
		Gateway:     gateway,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build turn graph")
	}

	client, err := line.NewClient(envCfg.ChannelToken)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create LINE client")
	}
	messenger := line.NewMessenger(client, bridgeMetrics)

	turns := dispatcher.New(runner, sessions, messenger, dispatcher.WithObserver(bridgeMetrics))
	events := router.New(sessions, turns, bridgeMetrics)

	srv := &http.Server{
		Addr: ":" + envCfg.Port,
		Handler: server.New(server.Config{
			Webhook:        line.NewWebhookHandler(envCfg.ChannelSecret, events),
			MetricsHandler: promhttp.Handler(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", srv.Addr).Str("session_backend", envCfg.Session.Backend).Msg("Bridge listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// newSessionStore picks the session backend named by SESSION_BACKEND.
func newSessionStore(ctx context.Context, cfg AppConfig) (model.SessionStore, func(), error) {
	switch cfg.Session.Backend {
	case "", "memory":
		return repo.NewMemorySessionStore(), func() {}, nil
	case "redis":
		ttl, err := time.ParseDuration(cfg.Session.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid SESSION_TTL %q: %w", cfg.Session.TTL, err)
		}
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, nil, err
		}
		logx.Info().Msg("Connected to Redis successfully")
		return repo.NewRedisSessionStore(rdb, ttl), func() { _ = rdb.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.Session.Backend)
	}
}
