package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicedial-platform/internal/audit"
	"voicedial-platform/internal/auth"
	"voicedial-platform/internal/calllog"
	"voicedial-platform/internal/campaigns"
	"voicedial-platform/internal/config"
	"voicedial-platform/internal/httpapi"
	"voicedial-platform/internal/leads"
	"voicedial-platform/internal/stats"
	"voicedial-platform/internal/telephony"
	"voicedial-platform/internal/voices"
	"voicedial-platform/pkg/logger"
	"voicedial-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	statsLoc, err := cfg.StatsLocation()
	if err != nil {
		log.Error("stats timezone load failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Wire services bottom-up: repos, audit, trackers, aggregator, stores.
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))
	leadRepo := leads.NewPostgresRepo(db)
	leadTracker := leads.NewTracker(leadRepo, auditSvc)
	campaignSvc := campaigns.NewService(campaigns.NewPostgresRepo(db), leadRepo, auditSvc)
	callStore := calllog.NewStore(calllog.NewPostgresRepo(db), campaignSvc, leadTracker, leadTracker, campaignSvc, auditSvc)
	statsSvc := stats.NewService(campaignSvc, leadTracker, callStore, stats.NewCache(rdb, stats.DefaultCacheTTL), statsLoc)

	voiceProvider := voices.NewElevenLabsClient(cfg.ElevenLabs.APIKey, cfg.ElevenLabs.BaseURL)
	voiceSvc := voices.NewService(voices.NewPostgresRepo(db), voiceProvider)

	provider := telephony.NewTwilioProvider(cfg.Twilio)

	h := httpapi.Handlers{
		Auth:      authManager,
		Campaigns: campaignSvc,
		Leads:     leadTracker,
		Calls:     callStore,
		Stats:     statsSvc,
		Voices:    voiceSvc,
		Provider:  provider,
		Rdb:       rdb,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
