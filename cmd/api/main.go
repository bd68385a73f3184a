package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cosentus/cose-chat/backend/internal/config"
	"github.com/cosentus/cose-chat/backend/internal/handler"
	"github.com/cosentus/cose-chat/backend/internal/logging"
	"github.com/cosentus/cose-chat/backend/internal/service/conversation"
	"github.com/cosentus/cose-chat/backend/internal/service/hubspot"
	"github.com/cosentus/cose-chat/backend/internal/service/ratelimit"
	"github.com/cosentus/cose-chat/backend/internal/service/relay"
	"github.com/cosentus/cose-chat/backend/internal/service/session"
	"github.com/cosentus/cose-chat/backend/internal/service/teaser"
	"github.com/cosentus/cose-chat/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.New(nil, os.Getenv("LOG_LEVEL"))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file, continuing with system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = logging.New(nil, cfg.Log.Level)

	displayLocation, err := time.LoadLocation(cfg.Widget.DisplayTimezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", cfg.Widget.DisplayTimezone).Msg("unknown display timezone, using UTC")
		displayLocation = time.UTC
	}

	if cfg.Webhooks.ChatURL == "" {
		log.Warn().Msg("CHAT_WEBHOOK_URL not configured, chat messages will be rejected")
	}

	kv := storage.NewMemoryStore()

	limiter := ratelimit.New(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	limiter.StartSweeper(cfg.RateLimit.SweepInterval)
	defer limiter.Stop()

	relayClient := relay.NewClient(relay.Config{
		ChatURL:         cfg.Webhooks.ChatURL,
		SessionStartURL: cfg.Webhooks.SessionStartURL,
		SessionEndURL:   cfg.Webhooks.SessionEndURL,
		Source:          cfg.Webhooks.Source,
	}, log.Component("relay"))

	crmClient := hubspot.NewClient(hubspot.Config{
		AccessToken: cfg.HubSpot.AccessToken,
		BaseURL:     cfg.HubSpot.BaseURL,
	}, log.Component("hubspot"))
	if !crmClient.Configured() {
		log.Warn().Msg("HUBSPOT_ACCESS_TOKEN not configured, contact enrichment disabled")
	}

	conversations := conversation.NewStore(kv, conversation.Config{
		WelcomeMessage:  cfg.Widget.WelcomeMessage,
		BotDisplayName:  cfg.Widget.BotDisplayName,
		DisplayLocation: displayLocation,
	}, log.Component("conversation"))

	sessions := session.NewManager(kv, conversations, relayClient, crmClient, session.Config{
		Timeout: cfg.Widget.SessionTimeout,
	}, log.Component("session"))
	defer sessions.Shutdown()

	teasers := teaser.NewService(kv, cfg.Widget.TeaserCooldown)

	router := handler.NewRouter(sessions, teasers, crmClient, limiter, cfg.Server.AllowedOrigins, log)

	startServer(ctx, cfg.Server, router, log)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *logging.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("cose chat backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
