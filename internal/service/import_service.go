package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/normalize"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/projection"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/repository"

	"github.com/rs/zerolog/log"
)

// HeaderSearchRows is how many leading rows are scanned for the header.
const HeaderSearchRows = 10

// Skip reasons reported per row.
const (
	reasonSinCodigo  = "Sin código"
	reasonDuplicado  = "Código duplicado en el archivo"
	reasonFormato    = "Código con formato inválido"
	reasonFecha      = "Fecha inválida"
	reasonProyeccion = "Registro inválido"
)

// DefaultImportSource tags records when the caller gives no source.
const DefaultImportSource = "xlsx-import"

// ImportService loads spreadsheet rows into the catalog.
type ImportService interface {
	ImportRows(ctx context.Context, rows [][]string, opts dto.ImportOptions) (*dto.ImportResult, error)
}

type importService struct {
	docs      repository.DocumentRepository
	cols      repository.Collections
	commit    CommitPolicy
	projector *projection.Projector
	cache     CacheInvalidator
	now       func() time.Time
}

// CacheInvalidator drops cached public views after a write. May be nil.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, docIDs ...string)
}

func NewImportService(docs repository.DocumentRepository, cols repository.Collections, commit CommitPolicy, cache CacheInvalidator, now func() time.Time) ImportService {
	if now == nil {
		now = time.Now
	}
	return &importService{
		docs:      docs,
		cols:      cols,
		commit:    commit,
		projector: projection.New(now),
		cache:     cache,
		now:       now,
	}
}

// findHeader returns the index of the first row with a resolvable code column.
func findHeader(rows [][]string, aliases map[string][]string) (int, map[string]int, bool) {
	for i := 0; i < len(rows) && i < HeaderSearchRows; i++ {
		cols := normalize.ResolveHeadersWith(rows[i], aliases)
		if _, ok := cols[normalize.FieldCodigo]; ok {
			return i, cols, true
		}
	}
	return 0, nil, false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ImportRows resolves the header, validates each row and writes master plus
// projections in chunks. Rows that fail validation are reported and skipped;
// they never abort the import.
func (s *importService) ImportRows(ctx context.Context, rows [][]string, opts dto.ImportOptions) (*dto.ImportResult, error) {
	if unknown := normalize.UnknownHeaderFields(opts.HeaderAliases); len(unknown) > 0 {
		return nil, apierror.New(apierror.InvalidArgument, "Alias para campos desconocidos: "+strings.Join(unknown, ", "))
	}
	headerIdx, cols, ok := findHeader(rows, opts.HeaderAliases)
	if !ok {
		return nil, apierror.New(apierror.InvalidArgument, "No se encontró el encabezado con la columna Código")
	}
	source := opts.Source
	if source == "" {
		source = DefaultImportSource
	}

	res := &dto.ImportResult{DryRun: opts.DryRun, Errors: []dto.RecordError{}}
	skip := func(row int, code, reason string) {
		log.Warn().Int("row", row).Str("codigo", code).Str("reason", reason).Msg("fila omitida en la importación")
		res.Skipped++
		res.Errors = append(res.Errors, dto.RecordError{Row: row, Code: code, Reason: reason})
	}

	now := s.now().UTC()
	rowsPerChunk := s.commit.batchLimit() / 3
	if rowsPerChunk < 1 {
		rowsPerChunk = 1
	}
	seen := make(map[string]bool)
	var pending []repository.DocWrite
	var pendingIDs []string

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if !opts.DryRun {
			if err := commitWithRetry(ctx, s.docs, s.commit, pending); err != nil {
				return err
			}
			if s.cache != nil {
				s.cache.Invalidate(ctx, pendingIDs...)
			}
		}
		pending, pendingIDs = pending[:0], pendingIDs[:0]
		return nil
	}

	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		sheetRow := i + 1
		if blankRow(row) {
			continue
		}

		codigo := normalize.NormalizeCodigo(cell(row, cols[normalize.FieldCodigo]))
		if codigo == "" {
			skip(sheetRow, "", reasonSinCodigo)
			continue
		}
		if _, err := normalize.ParseCodigo(codigo); err != nil {
			skip(sheetRow, codigo, reasonFormato)
			continue
		}
		if seen[codigo] {
			skip(sheetRow, codigo, reasonDuplicado)
			continue
		}

		fields := map[string]any{normalize.FieldSource: source}
		for field, idx := range cols {
			if field == normalize.FieldMargen {
				continue
			}
			if v := cell(row, idx); v != "" {
				fields[field] = v
			}
		}

		docID := normalize.ToSafeDocID(codigo)
		master, err := buildMaster(docID, fields, now)
		if errors.Is(err, normalize.ErrFechaInvalida) {
			skip(sheetRow, codigo, reasonFecha)
			continue
		}
		if err != nil {
			skip(sheetRow, codigo, err.Error())
			continue
		}
		withMargin(master)
		withSearch(docID, master, now)

		views, err := s.projector.Project(docID, master)
		if err != nil {
			skip(sheetRow, codigo, reasonProyeccion+": "+err.Error())
			continue
		}

		seen[codigo] = true
		pending = append(pending, repository.DocWrite{
			Collection: s.cols.Master,
			ID:         docID,
			Data:       master,
			OnCreate:   map[string]any{normalize.FieldCreatedAt: now},
		})
		pending = append(pending, projectionWrites(s.cols, docID, views)...)
		pendingIDs = append(pendingIDs, docID)
		res.Imported++

		if len(pendingIDs) >= rowsPerChunk {
			if err := flush(); err != nil {
				return nil, commitFailed(err)
			}
		}
	}
	if err := flush(); err != nil {
		return nil, commitFailed(err)
	}

	log.Info().Int("imported", res.Imported).Int("skipped", res.Skipped).Bool("dry_run", opts.DryRun).Msg("importación terminada")
	return res, nil
}
