package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"opsdeck/internal/app/registry"
	"opsdeck/internal/app/server"
	"opsdeck/internal/app/worker"
	"opsdeck/internal/config"
	"opsdeck/internal/core/contracts"
	"opsdeck/internal/core/services"
	"opsdeck/internal/platform/logger"
	"opsdeck/internal/platform/telemetry"
	"opsdeck/internal/plugins/openai"
	"opsdeck/internal/plugins/postgres"
	redisPlugin "opsdeck/internal/plugins/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.NewLogger(*cfg)
	log.Info("starting opsdeck backend", "env", cfg.Service.Env)

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
		otelShutdown = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	pdb, err := postgres.New(ctx, *cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "err", err)
		return
	}
	defer pdb.Close()
	if err := postgres.InitSchema(pdb); err != nil {
		log.Error("schema init failed", "err", err)
		return
	}
	log.Info("postgres connected")

	rdb, err := redisPlugin.NewRedisClient(ctx, *cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL, "err", err)
		return
	}
	defer rdb.Close()
	log.Info("redis connected")

	// Adapters
	userRepo := postgres.NewUserRepo(pdb)
	ventureRepo := postgres.NewVentureRepo(pdb)
	officeRepo := postgres.NewOfficeRepo(pdb)
	carrierRepo := postgres.NewCarrierRepo(pdb)
	loadRepo := postgres.NewLoadRepo(pdb)
	incidentRepo := postgres.NewIncidentRepo(pdb)
	convRepo := postgres.NewConversationRepo(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	notifRepo := postgres.NewNotificationRepo(pdb)
	incentiveRepo := postgres.NewIncentiveRepo(pdb)
	metricRepo := postgres.NewMetricRepo(pdb)
	auditRepo := postgres.NewAuditRepo(pdb)

	presence := redisPlugin.NewRedisPresenceStore(rdb, cfg.Stream.PresenceTTL)
	queue := redisPlugin.NewRedisEventQueue(log, rdb)
	limiter := redisPlugin.NewRedisRateLimiter(rdb)

	var drafter contracts.Drafter = contracts.NopDrafter{}
	if cfg.Drafter.APIKey != "" {
		drafter = openai.NewClient(*cfg.Drafter)
		log.Info("drafting assistant enabled", "model", cfg.Drafter.Model)
	}

	// Core
	hub := registry.NewRegistry(log)
	txManager := services.NewTxManager(pdb)
	auditSvc := services.NewAuditService(log, queue, cfg.Worker.AuditStream)
	userSvc := services.NewUserService(log, userRepo)
	tokenSvc := services.NewTokenService(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	notificationSvc := services.NewNotificationService(log, notifRepo, hub)
	dispatchSvc := services.NewDispatchService(log, convRepo, msgRepo, hub, auditSvc, txManager)
	adminSvc := services.NewAdminService(log, ventureRepo, officeRepo, carrierRepo, auditRepo, auditSvc)
	loadSvc := services.NewLoadService(log, loadRepo, auditSvc)
	incidentSvc := services.NewIncidentService(log, incidentRepo, notificationSvc, auditSvc)
	incentiveSvc := services.NewIncentiveService(log, incentiveRepo, metricRepo, txManager, notificationSvc)
	intelSvc := services.NewIntelligenceService(log, loadRepo)
	draftingSvc := services.NewDraftingService(log, drafter, limiter)

	// Audit trail consumer
	auditWorker := worker.NewAuditWorker(log, queue, auditRepo, cfg.Worker.AuditGroup)
	go func() {
		if err := auditWorker.Run(ctx, cfg.Worker.AuditStream); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "err", err)
		}
	}()

	srv := server.NewServer(cfg, log, server.Services{
		Users:         userSvc,
		Token:         tokenSvc,
		Dispatch:      dispatchSvc,
		Notifications: notificationSvc,
		Admin:         adminSvc,
		Loads:         loadSvc,
		Incidents:     incidentSvc,
		Incentives:    incentiveSvc,
		Intelligence:  intelSvc,
		Drafting:      draftingSvc,
	}, hub, presence)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "err", err)
	}
	log.Info("opsdeck backend stopped")
}
