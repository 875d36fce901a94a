package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/karigai-ops/backend/internal/callcenter"
	"github.com/karigai-ops/backend/internal/config"
	"github.com/karigai-ops/backend/internal/db"
	httpapi "github.com/karigai-ops/backend/internal/http"
	"github.com/karigai-ops/backend/internal/nocodb"
	"github.com/karigai-ops/backend/internal/supabase"
	"github.com/karigai-ops/backend/internal/webhook"
	"github.com/karigai-ops/backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "ops-backend").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store *db.Store
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DATABASE_URL not set; operator state disabled")
	} else {
		store, err = db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer store.Close()
	}

	var webhooks webhook.Dispatcher
	if cfg.OrderCreateURL == "" {
		webhooks = &webhook.MockDispatcher{}
		logger.Info().Msg("using mock webhook dispatcher")
	} else {
		webhooks = &webhook.HTTPDispatcher{
			OrderCreateURL:    cfg.OrderCreateURL,
			OrderFetchURL:     cfg.OrderFetchURL,
			TrackingUpdateURL: cfg.TrackingUpdateURL,
			NDRMailerURL:      cfg.NDRMailerURL,
		}
	}

	noco := &nocodb.Client{BaseURL: cfg.NocoDBBaseURL, Token: cfg.NocoDBToken}
	supa := &supabase.Client{BaseURL: cfg.SupabaseBaseURL, APIKey: cfg.SupabaseKey}

	var dialer callcenter.Dialer
	switch cfg.CallProvider {
	case "mcube":
		dialer = &callcenter.McubeDialer{BaseURL: cfg.McubeBaseURL, AuthKey: cfg.McubeAuthKey}
	case "mock":
		dialer = &callcenter.MockDialer{}
		logger.Info().Msg("using mock dialer")
	default:
		dialer = &callcenter.CallerdeskDialer{BaseURL: cfg.CallerdeskBaseURL, AuthKey: cfg.CallerdeskAuthKey}
	}

	refresher := &worker.NDRRefresher{
		Source:   supa,
		Table:    cfg.SupabaseNDRTable,
		Store:    store,
		Logger:   logger,
		Interval: cfg.NDRRefreshInterval,
	}
	go refresher.Run(ctx)

	router := httpapi.Router(cfg, store, webhooks, noco, supa, refresher, dialer, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
