package service

import (
	"context"
	"testing"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/normalize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogUpsert_WritesAllThreeRecords(t *testing.T) {
	docs := newMemoryDocs(t)
	svc := NewCatalogService(docs, testCols, CommitPolicy{}, nil, fixedClock)
	ctx := context.Background()

	resp, err := svc.Upsert(ctx, "ha4a001/am-m", map[string]any{
		"Descripcion": "Blusa de lino", "costo": "$50", "precio": 100,
	})
	require.NoError(t, err)
	assert.Equal(t, "HA4A001__AM-M", resp.DocID)
	assert.Equal(t, 50.0, resp.Data[normalize.FieldCosto])

	pub, err := svc.GetPublic(ctx, "HA4A001/AM-M")
	require.NoError(t, err)
	assert.Equal(t, 116.0, pub.Data[normalize.FieldPVenta])
	assert.NotContains(t, pub.Data, normalize.FieldCosto)

	adm, err := svc.GetAdmin(ctx, "HA4A001/AM-M")
	require.NoError(t, err)
	assert.Equal(t, 132.0, adm.Data[normalize.FieldMargen])
}

func TestCatalogUpsert_PartialEditKeepsExistingFields(t *testing.T) {
	docs := newMemoryDocs(t)
	svc := NewCatalogService(docs, testCols, CommitPolicy{}, nil, fixedClock)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, "HA4A001/AM-M", map[string]any{"descripcion": "Blusa de lino", "costo": 50, "pVenta": 200})
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, "HA4A001/AM-M", map[string]any{"status": "vendido"})
	require.NoError(t, err)

	master, err := docs.Get(ctx, "prendas", "HA4A001__AM-M")
	require.NoError(t, err)
	assert.Equal(t, "Blusa de lino", master.Data[normalize.FieldDescripcion])
	assert.Equal(t, 300.0, master.Data[normalize.FieldMargen])
	assert.Equal(t, testNow, master.Data[normalize.FieldCreatedAt])

	pub, err := svc.GetPublic(ctx, "HA4A001/AM-M")
	require.NoError(t, err)
	assert.Equal(t, normalize.DisponibilidadNo, pub.Data[normalize.FieldDisponibilidadCanon])

	found, err := svc.Search(ctx, "lino blusa", 0)
	require.NoError(t, err)
	require.Len(t, found.Results, 1, "search fields survive a partial edit")
}

func TestCatalogUpsert_RejectsInvalidInput(t *testing.T) {
	svc := NewCatalogService(newMemoryDocs(t), testCols, CommitPolicy{}, nil, fixedClock)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, "  ", map[string]any{"precio": 1})
	assert.Equal(t, apierror.InvalidArgument, apierror.From(err).Code)

	_, err = svc.Upsert(ctx, "HA4A001/AM-M", map[string]any{"pVenta": -1})
	assert.Equal(t, apierror.InvalidArgument, apierror.From(err).Code)

	_, err = svc.Upsert(ctx, "HA4A001/AM-M", map[string]any{"fechaAlta": "31/02/2024"})
	assert.Equal(t, apierror.InvalidArgument, apierror.From(err).Code)
}

func TestCatalogSearch(t *testing.T) {
	docs := newMemoryDocs(t)
	svc := NewCatalogService(docs, testCols, CommitPolicy{}, nil, fixedClock)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, "HA4A001/AM-M", map[string]any{"descripcion": "Vestido rojo largo"})
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, "HA4A002/AM-M", map[string]any{"descripcion": "Vestido azul"})
	require.NoError(t, err)

	res, err := svc.Search(ctx, "Vestido", 0)
	require.NoError(t, err)
	assert.Len(t, res.Results, 2)

	res, err = svc.Search(ctx, "vestido ROJO", 0)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "HA4A001__AM-M", res.Results[0].DocID)
	assert.NotContains(t, res.Results[0].Data, normalize.FieldCosto)

	_, err = svc.Search(ctx, "de la", 0)
	assert.Equal(t, apierror.InvalidArgument, apierror.From(err).Code, "stopwords only")
}

func TestCatalogGet_NotFound(t *testing.T) {
	svc := NewCatalogService(newMemoryDocs(t), testCols, CommitPolicy{}, nil, fixedClock)
	_, err := svc.GetPublic(context.Background(), "HA9Z999/X")
	assert.Equal(t, apierror.NotFound, apierror.From(err).Code)
}

func TestCatalogLabel(t *testing.T) {
	svc := NewCatalogService(newMemoryDocs(t), testCols, CommitPolicy{}, nil, fixedClock)
	ctx := context.Background()
	_, err := svc.Upsert(ctx, "HA4A001/AM-M", map[string]any{"pVenta": 349})
	require.NoError(t, err)

	zpl, err := svc.Label(ctx, "HA4A001/AM-M")
	require.NoError(t, err)
	assert.Contains(t, zpl, "^FD$349.00^FS")
	assert.Contains(t, zpl, "^FDLA,HA4A001/AM-M^FS")
}
