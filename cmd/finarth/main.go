package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finarth/internal/agent"
	"finarth/internal/amqp"
	"finarth/internal/auth"
	"finarth/internal/cache"
	"finarth/internal/cli"
	apphttp "finarth/internal/http"
	"finarth/internal/log"
	"finarth/internal/market"
	"finarth/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Publishing is optional; a nil interface makes the services skip events.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		client, err := amqp.NewClient(connectCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 3, logger)
		cancel()
		if err != nil {
			logger.Warn("AMQP unavailable, events will not be published", log.FieldError, err)
		} else {
			amqpClient = client
			publisher = client
		}
	} else {
		logger.Info("AMQP_URL not set, events disabled")
	}

	var provider market.Provider
	if cfg.PolygonAPIKey != "" {
		provider = market.NewPolygonProvider(cfg.PolygonAPIKey)
	}
	quotes := market.NewService(provider, market.Options{CacheTTL: cfg.QuoteCacheTTL}, logger)
	if quotes.Simulated() {
		logger.Info("POLYGON_API_KEY not set, serving simulated quotes")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	sessions := cache.NewSessionCache(cfg.SessionCacheSize, cfg.SessionTTL)

	users := services.NewUserService(repo, tokens, sessions, publisher, logger)
	portfolio := services.NewPortfolioService(repo, quotes, publisher, logger)

	var llm agent.ChatCompleter
	if cfg.LLMAPIKey != "" {
		llm = agent.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	} else {
		logger.Warn("LLM_API_KEY not set, advisor endpoint will return 503")
	}
	advisor := agent.NewAdvisor(llm, logger,
		agent.MarketDataTool{Quotes: quotes},
		agent.PortfolioSummaryTool{Summaries: portfolio})

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		CORSOrigin:         cfg.CORSOrigin,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AuthRequired:       cfg.AuthRequired,
	}, apphttp.Deps{
		Users:     users,
		Portfolio: portfolio,
		Advisor:   advisor,
		Market:    quotes,
		Tokens:    tokens,
		Sessions:  sessions,
		DB:        repo,
	}, logger)

	caches := cache.NewManager(logger)
	caches.Register("sessions", sessions)
	caches.Register("quotes", quotes.Cache())

	ctx, stop, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
	})
	go caches.Run(ctx, time.Minute)

	logger.Info("Starting finarth server",
		"port", cfg.Port,
		"auth_required", cfg.AuthRequired,
		"simulated_quotes", quotes.Simulated(),
		log.FieldOperation, log.OpStartup)
	var serveErr error
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		serveErr = err
		stop("server error")
	}

	cli.WaitForShutdown(ctx, done)
	<-caches.Done()
	if serveErr != nil {
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
