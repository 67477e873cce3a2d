package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/config"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/infra"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/repository"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/router"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/service"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	var docTables *repository.Collections
	if cfg.CatalogStore == infra.StorePostgres || cfg.CatalogStore == "" {
		cols := infra.CatalogCollections(cfg)
		docTables = &cols
	}
	if err := infra.EnsureSchema(db, docTables); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	app, err := infra.FirebaseAppFor(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init firebase")
	}
	docs, closer, err := infra.OpenCatalogStore(ctx, cfg, db, app)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open catalog store")
	}
	defer closer.Close()

	verifier, err := infra.NewIdentityVerifier(ctx, cfg, app)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init identity verifier")
	}

	// ── Services ─────────────────────────────────────────────────────────────
	cols := infra.CatalogCollections(cfg)
	commit := service.NewCommitPolicy(cfg)
	cache := service.NewPublicCache(rdb)
	dispatcher := worker.NewDispatcher(rdb)
	checkpoints := worker.NewRedisCheckpoints(rdb)
	mailer := infra.NewMailer(cfg)

	// Welcome mails are only queued when SMTP is configured
	var mailDispatcher *worker.Dispatcher
	if mailer.Configured() {
		mailDispatcher = dispatcher
	}

	catalogSvc := service.NewCatalogService(docs, cols, commit, cache, nil)
	importSvc := service.NewImportService(docs, cols, commit, cache, nil)
	migrationSvc := service.NewMigrationService(docs, cols, service.NewPageLimits(cfg), commit, cache, nil)
	counterSvc := service.NewCounterService(repository.NewCounterRepository(db))
	loyaltySvc := service.NewLoyaltyService(repository.NewLoyaltyRepository(db), mailDispatcher, cfg.PublicBaseURL)
	adminSvc := service.NewAdminService(repository.NewAdminSessionRepository(db), verifier, service.AdminGateConfig{
		PasswordHash: cfg.AdminPasswordHash,
		Allowlist:    cfg.AdminEmailList(),
		SessionTTL:   time.Duration(cfg.AdminSessionTTLHours) * time.Hour,
	}, nil)

	// ── Workers ──────────────────────────────────────────────────────────────
	pool := worker.NewPool(rdb)
	pool.Handle(worker.QueueMigration, worker.NewMigrationWorker(migrationSvc, checkpoints, dispatcher).Process)
	if mailer.Configured() {
		pool.Handle(worker.QueueEmail, worker.NewEmailWorker(mailer, infra.NewCircuitBreaker(infra.DefaultCBConfig())).Process)
	}
	pool.Start(ctx, cfg.WorkerPoolSize)

	var scheduler *worker.Scheduler
	if cfg.MigrationCron != "" {
		scheduler, err = worker.NewScheduler(cfg.MigrationCron, dispatcher, checkpoints, cfg.MigrationDefaultPage)
		if err != nil {
			log.Fatal().Err(err).Str("spec", cfg.MigrationCron).Msg("invalid MIGRATION_CRON")
		}
		scheduler.Start()
	}

	r := router.New(ctx, cfg, router.Deps{
		DB:         db,
		RDB:        rdb,
		Jobs:       worker.NewControl(rdb, dispatcher, checkpoints),
		Catalog:    catalogSvc,
		Importer:   importSvc,
		Migrations: migrationSvc,
		Loyalty:    loyaltySvc,
		Admin:      adminSvc,
		Counters:   counterSvc,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("catalog_store", cfg.CatalogStore).Msgf("Haruja backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	cancel()
	pool.Wait()
	_ = rdb.Close()
	log.Info().Msg("server exited")
}
