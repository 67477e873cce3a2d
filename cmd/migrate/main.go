package main

// migrate runs a catalog migration page by page from a terminal until the
// store reports no more documents. Ctrl-C stops after the current page; the
// printed cursor resumes it with -cursor.

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/config"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/infra"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/repository"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type options struct {
	kind     string
	cursor   string
	pageSize int
	dryRun   bool
	maxPages int
}

func main() {
	var opts options
	flag.StringVar(&opts.kind, "kind", dto.MigrationProjection, "projection | search-tokens | canonical")
	flag.StringVar(&opts.cursor, "cursor", "", "docId after which to start")
	flag.IntVar(&opts.pageSize, "page", 0, "page size (0 = MIGRATION_DEFAULT_PAGE)")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "compute without writing")
	flag.IntVar(&opts.maxPages, "max-pages", 0, "stop after N pages (0 = until done)")
	flag.Parse()

	// SDK variables such as GOOGLE_APPLICATION_CREDENTIALS
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	os.Exit(run(opts))
}

// run returns the process exit code so deferred cleanup always happens.
func run(opts options) int {
	if !dto.ValidMigrationKind(opts.kind) {
		log.Error().Str("kind", opts.kind).Msg("migración desconocida")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docs, closer, err := openCatalog(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to open catalog store")
		return 1
	}
	defer closer()

	cache, closeCache := service.DialPublicCache(cfg.RedisURL)
	defer closeCache()

	svc := service.NewMigrationService(docs, infra.CatalogCollections(cfg), service.NewPageLimits(cfg), service.NewCommitPolicy(cfg), cache, nil)

	next := opts.cursor
	pages, errs := 0, 0
	for {
		if ctx.Err() != nil {
			log.Warn().Str("cursor", next).Msg("interrumpido; reanudar con -cursor")
			return 130
		}
		out, err := svc.RunPage(ctx, opts.kind, dto.PageRequest{Cursor: next, PageSize: opts.pageSize, DryRun: opts.dryRun})
		if err != nil {
			log.Error().Err(err).Str("cursor", next).Msg("página fallida; reanudar con -cursor")
			return 1
		}
		pages++
		errs += out.Errors
		log.Info().Int("page", pages).Str("last_doc_id", out.LastDocID).Int("errors", out.Errors).Msg("página procesada")
		if !out.HasMore {
			break
		}
		next = out.LastDocID
		if opts.maxPages > 0 && pages >= opts.maxPages {
			fmt.Println(next)
			log.Info().Str("cursor", next).Msg("límite de páginas alcanzado")
			return 0
		}
	}
	log.Info().Str("kind", opts.kind).Int("pages", pages).Int("errors", errs).Bool("dry_run", opts.dryRun).Msg("migración completa")
	return 0
}

// openCatalog opens only the backend the configured store needs.
func openCatalog(ctx context.Context, cfg *config.Config) (repository.DocumentRepository, func(), error) {
	var db *gorm.DB
	if cfg.CatalogStore == infra.StorePostgres || cfg.CatalogStore == "" {
		var err error
		if db, err = infra.NewDatabase(cfg.DatabaseURL); err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		cols := infra.CatalogCollections(cfg)
		if err := infra.EnsureSchema(db, &cols); err != nil {
			closeDB()
			return nil, nil, fmt.Errorf("schema: %w", err)
		}
		docs, closer, err := infra.OpenCatalogStore(ctx, cfg, db, nil)
		if err != nil {
			closeDB()
			return nil, nil, err
		}
		return docs, func() { _ = closer.Close(); closeDB() }, nil
	}
	app, err := infra.FirebaseAppFor(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("firebase: %w", err)
	}
	docs, closer, err := infra.OpenCatalogStore(ctx, cfg, db, app)
	if err != nil {
		return nil, nil, err
	}
	return docs, func() { _ = closer.Close() }, nil
}
