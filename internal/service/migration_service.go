package service

import (
	"context"
	"fmt"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/config"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/normalize"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/projection"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/repository"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/search"

	"github.com/rs/zerolog/log"
)

// Backfill batch bounds.
const (
	DefaultBackfillBatch = 200
	MaxBackfillBatch     = 500
)

// MigrationService drives the resumable, cursor-paginated catalog migrations.
// Every call processes one page and returns the cursor for the next one;
// the caller owns the cursor.
type MigrationService interface {
	MigratePage(ctx context.Context, req dto.PageRequest) (*dto.MigrateResult, error)
	BackfillSearchTokens(ctx context.Context, req dto.BackfillRequest) (*dto.BackfillResult, error)
	CanonicalizePage(ctx context.Context, req dto.PageRequest) (*dto.CanonicalizeResult, error)
	// RunPage runs one page of the named migration kind.
	RunPage(ctx context.Context, kind string, req dto.PageRequest) (dto.PageOutcome, error)
}

// PageLimits are the operator bounds for a page.
type PageLimits struct {
	MinPage     int
	MaxPage     int
	DefaultPage int
}

// NewPageLimits reads the MIGRATION_*_PAGE bounds.
func NewPageLimits(cfg *config.Config) PageLimits {
	return PageLimits{MinPage: cfg.MigrationMinPage, MaxPage: cfg.MigrationMaxPage, DefaultPage: cfg.MigrationDefaultPage}
}

type migrationService struct {
	docs      repository.DocumentRepository
	cols      repository.Collections
	limits    PageLimits
	commit    CommitPolicy
	projector *projection.Projector
	cache     CacheInvalidator
	now       func() time.Time
}

func NewMigrationService(docs repository.DocumentRepository, cols repository.Collections, limits PageLimits, commit CommitPolicy, cache CacheInvalidator, now func() time.Time) MigrationService {
	if now == nil {
		now = time.Now
	}
	return &migrationService{
		docs:      docs,
		cols:      cols,
		limits:    limits,
		commit:    commit,
		projector: projection.New(now),
		cache:     cache,
		now:       now,
	}
}

// clampPage resolves a requested page size against the operator range and
// the write ceiling given how many writes each record costs.
func (s *migrationService) clampPage(requested, writesPerRecord int) int {
	size := requested
	if size <= 0 {
		size = s.limits.DefaultPage
	}
	if size < s.limits.MinPage {
		size = s.limits.MinPage
	}
	if s.limits.MaxPage > 0 && size > s.limits.MaxPage {
		size = s.limits.MaxPage
	}
	if ceiling := s.commit.batchLimit() / writesPerRecord; size > ceiling {
		size = ceiling
	}
	if size < 1 {
		size = 1
	}
	return size
}

func (s *migrationService) page(ctx context.Context, cursor string, size int) ([]repository.Document, error) {
	docs, err := s.docs.PageAfter(ctx, s.cols.Master, cursor, size)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "No se pudo leer el catálogo", err)
	}
	return docs, nil
}

func lastID(docs []repository.Document, cursor string) string {
	if len(docs) == 0 {
		return cursor
	}
	return docs[len(docs)-1].ID
}

func commitFailed(err error) error {
	return apierror.Wrap(apierror.Internal, "No se pudo confirmar el lote; reintenta desde el mismo cursor", err)
}

// ── MigratePage ─────────────────────────────────────────────────────────────

func (s *migrationService) MigratePage(ctx context.Context, req dto.PageRequest) (*dto.MigrateResult, error) {
	size := s.clampPage(req.PageSize, 2)
	docs, err := s.page(ctx, req.Cursor, size)
	if err != nil {
		return nil, err
	}

	res := &dto.MigrateResult{
		Scanned:   len(docs),
		LastDocID: lastID(docs, req.Cursor),
		HasMore:   len(docs) == size,
		DryRun:    req.DryRun,
		Errors:    []dto.RecordError{},
	}

	writes := make([]repository.DocWrite, 0, 2*len(docs))
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		views, err := s.projector.Project(d.ID, d.Data)
		if err != nil {
			log.Warn().Str("doc_id", d.ID).Err(err).Msg("registro omitido en la proyección")
			res.Errors = append(res.Errors, dto.RecordError{
				DocID: d.ID, Code: string(apierror.InvalidArgument), Reason: err.Error(),
			})
			continue
		}
		writes = append(writes, projectionWrites(s.cols, d.ID, views)...)
		ids = append(ids, d.ID)
		res.Processed++
	}

	if req.DryRun {
		return res, nil
	}
	if err := commitWithRetry(ctx, s.docs, s.commit, writes); err != nil {
		return nil, commitFailed(err)
	}
	if s.cache != nil && len(ids) > 0 {
		s.cache.Invalidate(ctx, ids...)
	}
	res.WrittenPublic = res.Processed
	res.WrittenAdmin = res.Processed
	return res, nil
}

// ── BackfillSearchTokens ────────────────────────────────────────────────────

func (s *migrationService) BackfillSearchTokens(ctx context.Context, req dto.BackfillRequest) (*dto.BackfillResult, error) {
	size := req.BatchSize
	if size <= 0 {
		size = DefaultBackfillBatch
	}
	if size > MaxBackfillBatch {
		size = MaxBackfillBatch
	}
	if limit := s.commit.batchLimit(); size > limit {
		size = limit
	}

	docs, err := s.page(ctx, req.Cursor, size)
	if err != nil {
		return nil, err
	}
	res := &dto.BackfillResult{
		Processed: len(docs),
		LastDocID: lastID(docs, req.Cursor),
		HasMore:   len(docs) == size,
	}

	now := s.now().UTC()
	var writes []repository.DocWrite
	for _, d := range docs {
		if !search.NeedsUpdate(d.ID, d.Data) {
			res.Skipped++
			continue
		}
		writes = append(writes, repository.DocWrite{
			Collection: s.cols.Master,
			ID:         d.ID,
			Data:       search.Compute(d.ID, d.Data).Map(now),
		})
	}
	if err := commitWithRetry(ctx, s.docs, s.commit, writes); err != nil {
		return nil, commitFailed(err)
	}
	res.Updated = len(writes)
	return res, nil
}

// ── CanonicalizePage ────────────────────────────────────────────────────────

func (s *migrationService) CanonicalizePage(ctx context.Context, req dto.PageRequest) (*dto.CanonicalizeResult, error) {
	size := s.clampPage(req.PageSize, 1)
	docs, err := s.page(ctx, req.Cursor, size)
	if err != nil {
		return nil, err
	}
	res := &dto.CanonicalizeResult{
		Scanned:   len(docs),
		LastDocID: lastID(docs, req.Cursor),
		HasMore:   len(docs) == size,
		DryRun:    req.DryRun,
		Errors:    []dto.RecordError{},
	}

	now := s.now().UTC()
	var writes []repository.DocWrite
	for _, d := range docs {
		patch, err := canonicalPatch(d.Data)
		if err != nil {
			log.Warn().Str("doc_id", d.ID).Err(err).Msg("registro omitido en la canonicalización")
			res.Errors = append(res.Errors, dto.RecordError{
				DocID: d.ID, Code: string(apierror.InvalidArgument), Reason: err.Error(),
			})
			continue
		}
		if len(patch) == 0 {
			continue
		}
		patch[normalize.FieldUpdatedAt] = now
		writes = append(writes, repository.DocWrite{Collection: s.cols.Master, ID: d.ID, Data: patch})
	}
	res.Candidates = len(writes)

	if !req.DryRun {
		if err := commitWithRetry(ctx, s.docs, s.commit, writes); err != nil {
			return nil, commitFailed(err)
		}
		res.WrittenMaster = len(writes)
	}
	return res, nil
}

// canonicalPatch returns the fields of rec that differ from their canonical
// form. An empty patch means the record is already canonical.
func canonicalPatch(rec map[string]any) (map[string]any, error) {
	patch := map[string]any{}
	set := func(field string, want any) {
		if normalize.Stringify(rec[field]) != normalize.Stringify(want) {
			patch[field] = want
		}
	}

	statusCanon := normalize.NormalizeStatus(normalize.ResolveString(rec, normalize.FieldStatus))
	if statusCanon != "" {
		set(normalize.FieldStatus, statusCanon)
		set(normalize.FieldStatusCanon, statusCanon)
	}
	disp := normalize.NormalizeDisponibilidad(normalize.ResolveString(rec, normalize.FieldDisponibilidad), statusCanon)
	set(normalize.FieldDisponibilidad, disp)
	set(normalize.FieldDisponibilidadCanon, disp)

	if v, ok := rec[normalize.FieldFechaAlta]; !ok || v == nil || normalize.Stringify(v) == "" {
		legacy := rec[normalize.FieldFecha]
		if legacy == nil || normalize.Stringify(legacy) == "" {
			legacy = rec[normalize.FieldFechaTexto]
		}
		fecha, ok, err := normalize.ParseFecha(legacy)
		if err != nil {
			return nil, fmt.Errorf("fecha heredada: %w", err)
		}
		if ok {
			patch[normalize.FieldFechaAlta] = fecha.Date
			patch[normalize.FieldFechaAltaTexto] = fecha.Text
		}
	}
	return patch, nil
}

// ── RunPage ─────────────────────────────────────────────────────────────────

func (s *migrationService) RunPage(ctx context.Context, kind string, req dto.PageRequest) (dto.PageOutcome, error) {
	out := dto.PageOutcome{Kind: kind}
	switch kind {
	case dto.MigrationProjection:
		res, err := s.MigratePage(ctx, req)
		if err != nil {
			return out, err
		}
		out.LastDocID, out.HasMore, out.Errors = res.LastDocID, res.HasMore, len(res.Errors)
	case dto.MigrationSearchTokens:
		res, err := s.BackfillSearchTokens(ctx, dto.BackfillRequest{Cursor: req.Cursor, BatchSize: req.PageSize})
		if err != nil {
			return out, err
		}
		out.LastDocID, out.HasMore = res.LastDocID, res.HasMore
	case dto.MigrationCanonical:
		res, err := s.CanonicalizePage(ctx, req)
		if err != nil {
			return out, err
		}
		out.LastDocID, out.HasMore, out.Errors = res.LastDocID, res.HasMore, len(res.Errors)
	default:
		return out, apierror.New(apierror.InvalidArgument, fmt.Sprintf("Migración desconocida: %q", kind))
	}
	return out, nil
}
