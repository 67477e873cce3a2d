package service

import (
	"context"
	"testing"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/normalize"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/repository"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCols = repository.Collections{Master: "prendas", Public: "prendas_public", Admin: "prendas_admin"}
	testNow  = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return testNow }

func newMemoryDocs(t *testing.T) *repository.MemoryDocumentRepository {
	t.Helper()
	docs, err := repository.NewMemoryDocumentRepository(testCols)
	require.NoError(t, err)
	return docs
}

func newTestMigrations(docs repository.DocumentRepository, commit CommitPolicy) *migrationService {
	limits := PageLimits{MinPage: 1, MaxPage: 400, DefaultPage: 50}
	return NewMigrationService(docs, testCols, limits, commit, nil, fixedClock).(*migrationService)
}

func TestClampPage(t *testing.T) {
	s := newTestMigrations(newMemoryDocs(t), CommitPolicy{BatchWriteLimit: 450})

	assert.Equal(t, 50, s.clampPage(0, 2), "default page")
	assert.Equal(t, 50, s.clampPage(-3, 2), "negative falls back to the default")
	assert.Equal(t, 225, s.clampPage(400, 2), "two writes per record cap at 450/2")
	assert.Equal(t, 400, s.clampPage(1000, 1))

	tiny := newTestMigrations(newMemoryDocs(t), CommitPolicy{BatchWriteLimit: 1})
	assert.Equal(t, 1, tiny.clampPage(10, 2), "never below one record")
}

func TestMigratePage_WritesBothViewsAndIsIdempotent(t *testing.T) {
	docs := newMemoryDocs(t)
	docs.Put("prendas", "HA4A001__AM-M", map[string]any{
		"codigo": "HA4A001/AM-M", "descripcion": "Blusa", "precio": 100, "costo": 40, "status": "Disponible",
	})
	docs.Put("prendas", "HA4A002__AM-M", map[string]any{
		"codigo": "HA4A002/AM-M", "pVenta": 250, "costo": 100,
	})
	s := newTestMigrations(docs, CommitPolicy{BatchWriteLimit: 450})
	ctx := context.Background()

	res, err := s.MigratePage(ctx, dto.PageRequest{PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 2, res.WrittenPublic)
	assert.Equal(t, "HA4A002__AM-M", res.LastDocID)
	assert.False(t, res.HasMore)
	assert.Empty(t, res.Errors)

	pub, err := docs.Get(ctx, "prendas_public", "HA4A001__AM-M")
	require.NoError(t, err)
	assert.Equal(t, 116.0, pub.Data[normalize.FieldPVenta])
	assert.NotContains(t, pub.Data, normalize.FieldCosto)
	adm, err := docs.Get(ctx, "prendas_admin", "HA4A001__AM-M")
	require.NoError(t, err)
	assert.Equal(t, 40.0, adm.Data[normalize.FieldCosto])

	firstPub, firstAdm := pub.Data, adm.Data
	_, err = s.MigratePage(ctx, dto.PageRequest{PageSize: 10})
	require.NoError(t, err)
	pub, _ = docs.Get(ctx, "prendas_public", "HA4A001__AM-M")
	adm, _ = docs.Get(ctx, "prendas_admin", "HA4A001__AM-M")
	assert.Equal(t, firstPub, pub.Data)
	assert.Equal(t, firstAdm, adm.Data)
}

func TestMigratePage_SkipsInvalidRecords(t *testing.T) {
	docs := newMemoryDocs(t)
	docs.Put("prendas", "HA4A001__AM-M", map[string]any{"codigo": "HA4A001/AM-M", "pVenta": -5})
	docs.Put("prendas", "HA4A002__AM-M", map[string]any{"codigo": "HA4A002/AM-M", "pVenta": 10})
	s := newTestMigrations(docs, CommitPolicy{})

	res, err := s.MigratePage(context.Background(), dto.PageRequest{PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Scanned)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "HA4A001__AM-M", res.Errors[0].DocID)
	assert.Equal(t, string(apierror.InvalidArgument), res.Errors[0].Code)
	assert.Equal(t, 1, docs.Len("prendas_public"))
}

func TestMigratePage_DryRunWritesNothing(t *testing.T) {
	docs := newMemoryDocs(t)
	docs.Put("prendas", "HA4A001__AM-M", map[string]any{"codigo": "HA4A001/AM-M"})
	s := newTestMigrations(docs, CommitPolicy{})

	res, err := s.MigratePage(context.Background(), dto.PageRequest{DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Processed)
	assert.Zero(t, res.WrittenPublic)
	assert.Zero(t, res.WrittenAdmin)
	assert.Equal(t, 0, docs.Len("prendas_public"))
	assert.Equal(t, 0, docs.Commits)
}

func TestMigratePage_InvalidatesCachedPublicViews(t *testing.T) {
	docs := newMemoryDocs(t)
	docs.Put("prendas", "HA4A001__AM-M", map[string]any{"codigo": "HA4A001/AM-M", "precio": 100})
	docs.Put("prendas", "HA4A002__AM-M", map[string]any{"codigo": "HA4A002/AM-M", "precio": 200})
	cache := &recordingCache{}
	limits := PageLimits{MinPage: 1, MaxPage: 400, DefaultPage: 50}
	s := NewMigrationService(docs, testCols, limits, CommitPolicy{}, cache, fixedClock)
	ctx := context.Background()

	_, err := s.MigratePage(ctx, dto.PageRequest{DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, cache.invalidated, "dry runs leave the cache alone")

	res, err := s.MigratePage(ctx, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.WrittenPublic)
	assert.ElementsMatch(t, []string{"HA4A001__AM-M", "HA4A002__AM-M"}, cache.invalidated)
}

func TestMigratePage_FailedCommitKeepsCache(t *testing.T) {
	docs := newMemoryDocs(t)
	docs.Put("prendas", "HA4A001__AM-M", map[string]any{"codigo": "HA4A001/AM-M"})
	docs.FailCommits = 5
	cache := &recordingCache{}
	limits := PageLimits{MinPage: 1, MaxPage: 400, DefaultPage: 50}
	s := NewMigrationService(docs, testCols, limits, CommitPolicy{Retries: 1}, cache, fixedClock)

	_, err := s.MigratePage(context.Background(), dto.PageRequest{})
	require.Error(t, err)
	assert.Empty(t, cache.invalidated)
}

func TestMigratePage_RetriesFailedCommit(t *testing.T) {
	docs := newMemoryDocs(t)
	docs.Put("prendas", "HA4A001__AM-M", map[string]any{"codigo": "HA4A001/AM-M"})
	docs.FailCommits = 1
	s := newTestMigrations(docs, CommitPolicy{Retries: 1})

	_, err := s.MigratePage(context.Background(), dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, docs.Len("prendas_admin"))
}

func TestMigratePage_CommitFailureKeepsCursor(t *testing.T) {
	docs := newMemoryDocs(t)
	docs.Put("prendas", "HA4A001__AM-M", map[string]any{"codigo": "HA4A001/AM-M"})
	docs.FailCommits = 5
	s := newTestMigrations(docs, CommitPolicy{Retries: 1})

	_, err := s.MigratePage(context.Background(), dto.PageRequest{})
	require.Error(t, err)
	assert.Equal(t, apierror.Internal, apierror.From(err).Code)
	assert.Equal(t, 0, docs.Len("prendas_public"))
}

func TestMigratePage_PagesUntilExhausted(t *testing.T) {
	docs := newMemoryDocs(t)
	for _, id := range []string{"HA4A001__AM-M", "HA4A002__AM-M", "HA4A003__AM-M"} {
		docs.Put("prendas", id, map[string]any{"precio": 10})
	}
	s := newTestMigrations(docs, CommitPolicy{})
	ctx := context.Background()

	res, err := s.MigratePage(ctx, dto.PageRequest{PageSize: 2})
	require.NoError(t, err)
	assert.True(t, res.HasMore)
	assert.Equal(t, "HA4A002__AM-M", res.LastDocID)

	res, err = s.MigratePage(ctx, dto.PageRequest{Cursor: res.LastDocID, PageSize: 2})
	require.NoError(t, err)
	assert.False(t, res.HasMore)
	assert.Equal(t, "HA4A003__AM-M", res.LastDocID)

	res, err = s.MigratePage(ctx, dto.PageRequest{Cursor: res.LastDocID, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Scanned)
	assert.False(t, res.HasMore)
	assert.Equal(t, "HA4A003__AM-M", res.LastDocID, "cursor stays put on an empty page")
	assert.Equal(t, 3, docs.Len("prendas_public"))
}

func TestBackfillSearchTokens(t *testing.T) {
	docs := newMemoryDocs(t)
	docs.Put("prendas", "HA4A001__AM-M", map[string]any{"codigo": "HA4A001/AM-M", "descripcion": "Blusa roja"})
	s := newTestMigrations(docs, CommitPolicy{})
	ctx := context.Background()

	res, err := s.BackfillSearchTokens(ctx, dto.BackfillRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Updated)

	doc, err := docs.Get(ctx, "prendas", "HA4A001__AM-M")
	require.NoError(t, err)
	assert.Contains(t, search.StoredTokens(doc.Data), "blusa")
	assert.Equal(t, search.Version, doc.Data[search.FieldVersion])

	res, err = s.BackfillSearchTokens(ctx, dto.BackfillRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 1, res.Skipped, "current records are left alone")
}

func TestCanonicalizePage(t *testing.T) {
	docs := newMemoryDocs(t)
	docs.Put("prendas", "HA4A001__AM-M", map[string]any{
		"codigo": "HA4A001/AM-M", "status": "vendido", "fecha": "05/03/2024",
	})
	docs.Put("prendas", "HA4A002__AM-M", map[string]any{
		"codigo": "HA4A002/AM-M", "fechaTexto": "no es fecha",
	})
	s := newTestMigrations(docs, CommitPolicy{})
	ctx := context.Background()

	dry, err := s.CanonicalizePage(ctx, dto.PageRequest{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, dry.Candidates)
	assert.Equal(t, 0, dry.WrittenMaster)
	require.Len(t, dry.Errors, 1)
	assert.Equal(t, "HA4A002__AM-M", dry.Errors[0].DocID)

	res, err := s.CanonicalizePage(ctx, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.WrittenMaster)

	doc, err := docs.Get(ctx, "prendas", "HA4A001__AM-M")
	require.NoError(t, err)
	assert.Equal(t, normalize.StatusVendido, doc.Data[normalize.FieldStatusCanon])
	assert.Equal(t, normalize.DisponibilidadNo, doc.Data[normalize.FieldDisponibilidadCanon])
	assert.Equal(t, "05/03/2024", doc.Data[normalize.FieldFechaAltaTexto])

	again, err := s.CanonicalizePage(ctx, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Candidates, "canonical records produce no patch")
}

func TestRunPage_UnknownKind(t *testing.T) {
	s := newTestMigrations(newMemoryDocs(t), CommitPolicy{})
	_, err := s.RunPage(context.Background(), "nope", dto.PageRequest{})
	require.Error(t, err)
	assert.Equal(t, apierror.InvalidArgument, apierror.From(err).Code)
}
