package service

import (
	"context"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/infra"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/normalize"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/projection"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/repository"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/search"
)

// Search result bounds.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50
)

// CatalogService reads and edits single garments.
type CatalogService interface {
	GetPublic(ctx context.Context, code string) (*dto.PrendaResponse, error)
	GetAdmin(ctx context.Context, code string) (*dto.PrendaResponse, error)
	Search(ctx context.Context, q string, limit int) (*dto.SearchResponse, error)
	// Upsert merges raw fields into the master record and re-projects it.
	Upsert(ctx context.Context, code string, raw map[string]any) (*dto.PrendaResponse, error)
	Label(ctx context.Context, code string) (string, error)
}

type catalogService struct {
	docs      repository.DocumentRepository
	cols      repository.Collections
	commit    CommitPolicy
	cache     *PublicCache
	projector *projection.Projector
	now       func() time.Time
}

func NewCatalogService(docs repository.DocumentRepository, cols repository.Collections, commit CommitPolicy, cache *PublicCache, now func() time.Time) CatalogService {
	if now == nil {
		now = time.Now
	}
	return &catalogService{
		docs:      docs,
		cols:      cols,
		commit:    commit,
		cache:     cache,
		projector: projection.New(now),
		now:       now,
	}
}

func docIDFor(code string) (string, error) {
	id := normalize.ToSafeDocID(code)
	if id == "" {
		return "", apierror.New(apierror.InvalidArgument, "Código requerido")
	}
	return id, nil
}

func (s *catalogService) get(ctx context.Context, collection, code string) (*dto.PrendaResponse, error) {
	id, err := docIDFor(code)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Get(ctx, collection, id)
	if repository.IsNotFound(err) {
		return nil, apierror.New(apierror.NotFound, "Prenda no encontrada")
	}
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "No se pudo leer la prenda", err)
	}
	return &dto.PrendaResponse{DocID: doc.ID, Data: doc.Data}, nil
}

func (s *catalogService) GetPublic(ctx context.Context, code string) (*dto.PrendaResponse, error) {
	id, err := docIDFor(code)
	if err != nil {
		return nil, err
	}
	if data, ok := s.cache.Get(ctx, id); ok {
		return &dto.PrendaResponse{DocID: id, Data: data}, nil
	}
	resp, err := s.get(ctx, s.cols.Public, code)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, id, resp.Data)
	return resp, nil
}

func (s *catalogService) GetAdmin(ctx context.Context, code string) (*dto.PrendaResponse, error) {
	return s.get(ctx, s.cols.Admin, code)
}

func (s *catalogService) Search(ctx context.Context, q string, limit int) (*dto.SearchResponse, error) {
	tokens := search.Tokenize(q)
	if len(tokens) == 0 {
		return nil, apierror.New(apierror.InvalidArgument, "La búsqueda no contiene términos válidos")
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	masters, err := s.docs.SearchTokens(ctx, s.cols.Master, tokens, limit)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "No se pudo buscar en el catálogo", err)
	}
	resp := &dto.SearchResponse{Query: q, Tokens: tokens, Results: []dto.PrendaResponse{}}
	for _, m := range masters {
		pub, err := s.docs.Get(ctx, s.cols.Public, m.ID)
		if repository.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, apierror.Wrap(apierror.Internal, "No se pudo leer la prenda", err)
		}
		resp.Results = append(resp.Results, dto.PrendaResponse{DocID: pub.ID, Data: pub.Data})
	}
	return resp, nil
}

// Upsert writes master, public and admin in one batch so the views never
// lag a direct edit.
func (s *catalogService) Upsert(ctx context.Context, code string, raw map[string]any) (*dto.PrendaResponse, error) {
	codigo := normalize.NormalizeCodigo(code)
	id, err := docIDFor(codigo)
	if err != nil {
		return nil, err
	}
	fields := normalize.Canonicalize(raw)
	fields[normalize.FieldCodigo] = codigo

	now := s.now().UTC()
	patch, err := buildMaster(id, fields, now)
	if err != nil {
		return nil, apierror.Wrap(apierror.InvalidArgument, err.Error(), err)
	}

	merged := map[string]any{}
	onCreate := map[string]any{normalize.FieldCreatedAt: now}
	existing, err := s.docs.Get(ctx, s.cols.Master, id)
	switch {
	case err == nil:
		for k, v := range existing.Data {
			merged[k] = v
		}
		onCreate = nil
	case !repository.IsNotFound(err):
		return nil, apierror.Wrap(apierror.Internal, "No se pudo leer la prenda", err)
	default:
		merged[normalize.FieldCreatedAt] = now
	}
	for k, v := range patch {
		merged[k] = v
	}
	withMargin(merged)
	for _, k := range []string{normalize.FieldUtilidad, normalize.FieldMargen} {
		patch[k] = merged[k]
	}
	for k, v := range search.Compute(id, merged).Map(now) {
		merged[k] = v
		patch[k] = v
	}

	views, err := s.projector.Project(id, merged)
	if err != nil {
		return nil, apierror.Wrap(apierror.InvalidArgument, err.Error(), err)
	}
	writes := append([]repository.DocWrite{{
		Collection: s.cols.Master, ID: id, Data: patch, OnCreate: onCreate,
	}}, projectionWrites(s.cols, id, views)...)
	if err := commitWithRetry(ctx, s.docs, s.commit, writes); err != nil {
		return nil, commitFailed(err)
	}
	s.cache.Invalidate(ctx, id)
	return &dto.PrendaResponse{DocID: id, Data: views.Admin}, nil
}

// Label renders the shelf label for a garment from its public view.
func (s *catalogService) Label(ctx context.Context, code string) (string, error) {
	resp, err := s.get(ctx, s.cols.Public, code)
	if err != nil {
		return "", err
	}
	sku := normalize.ResolveString(resp.Data, normalize.FieldCodigo)
	price, _ := normalize.Currency(resp.Data[normalize.FieldPVenta])
	return infra.ZPLLabel(sku, price), nil
}
