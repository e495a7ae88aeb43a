package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/arckit11/v-novaa/internal/assistant/checkout"
	"github.com/arckit11/v-novaa/internal/assistant/dispatch"
	"github.com/arckit11/v-novaa/internal/assistant/handlers"
	"github.com/arckit11/v-novaa/internal/assistant/httpapi"
	"github.com/arckit11/v-novaa/internal/assistant/model"
	"github.com/arckit11/v-novaa/internal/assistant/oracle"
	"github.com/arckit11/v-novaa/internal/assistant/session"
	"github.com/arckit11/v-novaa/internal/assistant/transport"
	"github.com/arckit11/v-novaa/internal/core"
	"github.com/arckit11/v-novaa/internal/repo"
	"github.com/arckit11/v-novaa/internal/storefront"
	logx "github.com/arckit11/v-novaa/pkg/logger"
	pkgredis "github.com/arckit11/v-novaa/pkg/redis"
)

// AppConfig defines all configurable parameters of the voice assistant,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider. Without a key the assistant runs on keyword routing
	// and deterministic checkout extraction only.
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// ShopperID scopes the Redis records; a random id is used when empty.
	ShopperID   string `envconfig:"SHOPPER_ID"`
	AutoConnect bool   `envconfig:"SESSION_AUTO_CONNECT" default:"false"`

	// Assistant configs
	Session   model.SessionConfig
	Dispatch  model.DispatchConfig
	Checkout  model.CheckoutConfig
	Oracle    model.OracleModelConfig
	Store     model.StoreConfig
	Transport model.TransportConfig
	HTTP      model.HTTPConfig
}

func main() {
	// Load .env file
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load structured config from env
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}
	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment), Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ShopperID == "" {
		cfg.ShopperID = uuid.NewString()
	}

	catalog := storefront.DefaultCatalog()
	state := storefront.NewState(catalog)
	bus := storefront.NewBus()

	// ====================================================
	// Stores: Redis when reachable, otherwise the in-memory storefront
	var (
		userInfo model.UserInfoStore = state
		notifier model.Notifier      = bus
		mirror   dispatch.ActionLogMirror
	)
	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("Redis unavailable, using in-memory stores")
	} else {
		defer rdb.Close()
		userInfo, notifier, mirror = redisStores(rdb, cfg)
		notifier = repo.Tee{bus, notifier}
		logx.Info().Str("shopper_id", cfg.ShopperID).Msg("Connected to Redis successfully")
	}

	// ====================================================
	// Oracle
	var orc model.Oracle
	if cfg.APIKey != "" {
		cm, err := oracle.NewGeminiChatModel(ctx, oracle.ChatModelConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Oracle})
		if err != nil {
			log.Fatalf("Failed to create chat model: %v", err)
		}
		adapter, err := oracle.New(ctx, cm, cfg.Oracle, oracle.WithCategories(catalog.Categories()))
		if err != nil {
			log.Fatalf("Failed to build oracle: %v", err)
		}
		orc = adapter
	} else {
		logx.Warn().Msg("GEMINI_API_KEY not set, running without the oracle")
		cfg.Checkout.RuleFallbackFields = []string{"all"}
	}

	// ====================================================
	// Session, checkout and dispatch
	client := transport.New(cfg.Transport)
	registry := session.NewRegistry()
	manager, release := registry.Acquire(cfg.ShopperID, func() *session.Manager {
		return session.NewManager(client, cfg.Session)
	})
	actions := dispatch.NewActionLog(cfg.Dispatch.ActionLogSize, mirror)
	speaker := dispatch.LoggingSpeaker{Speaker: manager, Log: actions}

	flow := checkout.NewFlow(orc, cfg.Checkout,
		checkout.WithUserInfoStore(userInfo),
		checkout.WithNotifier(notifier),
	)
	set := handlers.NewSet(handlers.Deps{
		Oracle:    orc,
		Speaker:   speaker,
		Catalog:   catalog,
		Navigator: state,
		Cart:      state,
		Selection: state,
		Filters:   state,
		UserInfo:  userInfo,
		Notifier:  notifier,
		Order:     state.PlaceOrder,
	})
	dispatcher := dispatch.New(cfg.Dispatch, orc, flow, set, state,
		dispatch.WithSpeaker(speaker),
		dispatch.WithOrderTrigger(state.PlaceOrder),
		dispatch.WithActionLog(actions),
		dispatch.WithSessionActive(manager.Active),
	)
	state.OnRouteChange(func(route string) { dispatcher.RouteChanged(ctx, route) })
	manager.SetHandler(dispatcher.HandleTranscript)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logx.Error().Err(err).Msg("Voice session loop stopped")
		}
	}()

	if cfg.AutoConnect {
		if err := manager.Start(ctx, cfg.ShopperID); err != nil {
			logx.Warn().Err(err).Msg("Initial voice session start failed")
		}
	}

	// ====================================================
	// Operator HTTP surface
	api := httpapi.NewServer(cfg.HTTP, manager, dispatcher, actions, flow, httpapi.WithFieldUpdates(bus))
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logx.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Warn().Err(err).Msg("HTTP server shutdown incomplete")
	}
	dispatcher.Close()
	release()
	if err := client.Close(); err != nil {
		logx.Warn().Err(err).Msg("Speech transport close failed")
	}
	<-runDone
}

func redisStores(rdb *redis.Client, cfg AppConfig) (model.UserInfoStore, model.Notifier, dispatch.ActionLogMirror) {
	prefix := cfg.Redis.KeyPrefix
	return repo.NewRedisUserInfoStore(rdb, prefix, cfg.ShopperID, cfg.Store.UserInfoTTL),
		repo.NewRedisNotifier(rdb, cfg.Store.Channel),
		repo.NewRedisActionLog(rdb, prefix, cfg.ShopperID, cfg.Dispatch.ActionLogSize, cfg.Store.ActionLogTTL)
}
