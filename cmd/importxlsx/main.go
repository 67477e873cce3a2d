package main

// importxlsx loads a spreadsheet (xlsx or csv) into the catalog, the same
// path the admin upload endpoint takes. With -counters it instead seeds the
// SKU sequences from the codes in the sheet.

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
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
	file     string
	source   string
	aliases  string
	dryRun   bool
	counters bool
}

func main() {
	var opts options
	flag.StringVar(&opts.file, "file", "", "ruta al .xlsx o .csv")
	flag.StringVar(&opts.source, "source", "", "etiqueta source (default "+service.DefaultImportSource+")")
	flag.StringVar(&opts.aliases, "aliases", "", `encabezados extra en JSON, ej. {"codigo":["clave"]}`)
	flag.BoolVar(&opts.dryRun, "dry-run", false, "validar sin escribir")
	flag.BoolVar(&opts.counters, "counters", false, "sembrar counters de SKU en lugar de importar prendas")
	flag.Parse()

	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	os.Exit(run(opts))
}

// run returns the process exit code so deferred cleanup always happens.
func run(opts options) int {
	if opts.file == "" {
		log.Error().Msg("uso: importxlsx -file inventario.xlsx [-dry-run] [-counters]")
		return 2
	}
	var aliases map[string][]string
	if opts.aliases != "" {
		if err := json.Unmarshal([]byte(opts.aliases), &aliases); err != nil {
			log.Error().Err(err).Msg("-aliases no es un objeto JSON de listas")
			return 2
		}
	}
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return 1
	}

	rows, err := readFile(opts.file)
	if err != nil {
		log.Error().Err(err).Msg("no se pudo leer la planilla")
		return 1
	}

	ctx := context.Background()
	var out any
	if opts.counters {
		out, err = seedCounters(ctx, cfg, rows, opts.dryRun)
	} else {
		out, err = importRows(ctx, cfg, rows, dto.ImportOptions{Source: opts.source, DryRun: opts.dryRun, HeaderAliases: aliases})
	}
	if err != nil {
		log.Error().Err(err).Msg("importación fallida")
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
	return 0
}

func readFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return infra.ReadRows(f, filepath.Base(path))
}

func openDB(cfg *config.Config, cols *repository.Collections) (*gorm.DB, func(), error) {
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := infra.EnsureSchema(db, cols); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("schema: %w", err)
	}
	return db, closeDB, nil
}

// seedCounters always needs Postgres: the counters table lives there
// whichever store holds the catalog.
func seedCounters(ctx context.Context, cfg *config.Config, rows [][]string, dryRun bool) (*dto.CounterSeedResult, error) {
	db, closeDB, err := openDB(cfg, nil)
	if err != nil {
		return nil, err
	}
	defer closeDB()

	res, err := service.NewCounterService(repository.NewCounterRepository(db)).SeedFromRows(ctx, rows, dryRun)
	if err != nil {
		return nil, err
	}
	log.Info().Int("counters", len(res.Counters)).Int("written", res.Written).Bool("dry_run", res.DryRun).Msg("counters sembrados")
	return res, nil
}

func importRows(ctx context.Context, cfg *config.Config, rows [][]string, opts dto.ImportOptions) (*dto.ImportResult, error) {
	var db *gorm.DB
	if cfg.CatalogStore == infra.StorePostgres || cfg.CatalogStore == "" {
		cols := infra.CatalogCollections(cfg)
		var closeDB func()
		var err error
		if db, closeDB, err = openDB(cfg, &cols); err != nil {
			return nil, err
		}
		defer closeDB()
	}
	app, err := infra.FirebaseAppFor(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("firebase: %w", err)
	}
	docs, closer, err := infra.OpenCatalogStore(ctx, cfg, db, app)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	cache, closeCache := service.DialPublicCache(cfg.RedisURL)
	defer closeCache()

	svc := service.NewImportService(docs, infra.CatalogCollections(cfg), service.NewCommitPolicy(cfg), cache, nil)
	res, err := svc.ImportRows(ctx, rows, opts)
	if err != nil {
		return nil, err
	}
	log.Info().Int("imported", res.Imported).Int("skipped", res.Skipped).Bool("dry_run", res.DryRun).Msg("importación completada")
	return res, nil
}
