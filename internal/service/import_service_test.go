package service

import (
	"context"
	"testing"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/normalize"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Invalidate(_ context.Context, docIDs ...string) {
	c.invalidated = append(c.invalidated, docIDs...)
}

func inventorySheet() [][]string {
	return [][]string{
		{"Inventario Haruja", "", ""},
		{"Código", "Descripción", "Costo", "Precio con IVA", "Status", "Fecha Alta", "Margen"},
		{"ha4a001/am-m", "Blusa de seda", "$80.00", "$180.00", "Disponible", "05/03/2024", "999"},
		{"HA4A002/AM-M", "Vestido negro", "100", "250", "Vendido", "", ""},
		{"", "Sin etiqueta", "10", "20", "", "", ""},
		{"", "", "", "", "", "", ""},
		{"HA4A001/AM-M", "Duplicada", "1", "2", "", "", ""},
		{"BLUSA-1", "Formato raro", "1", "2", "", "", ""},
		{"HA4A003/AM-M", "Fecha rota", "1", "2", "", "31/02/2024", ""},
	}
}

func TestImportRows_ImportsValidRowsAndReportsTheRest(t *testing.T) {
	docs := newMemoryDocs(t)
	cache := &recordingCache{}
	svc := NewImportService(docs, testCols, CommitPolicy{}, cache, fixedClock)
	ctx := context.Background()

	res, err := svc.ImportRows(ctx, inventorySheet(), dto.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 4, res.Skipped)

	reasons := map[int]string{}
	for _, e := range res.Errors {
		reasons[e.Row] = e.Reason
	}
	assert.Equal(t, reasonSinCodigo, reasons[5])
	assert.Equal(t, reasonDuplicado, reasons[7])
	assert.Equal(t, reasonFormato, reasons[8])
	assert.Equal(t, reasonFecha, reasons[9])

	master, err := docs.Get(ctx, "prendas", "HA4A001__AM-M")
	require.NoError(t, err)
	assert.Equal(t, "HA4A001/AM-M", master.Data[normalize.FieldCodigo])
	assert.Equal(t, DefaultImportSource, master.Data[normalize.FieldSource])
	assert.Equal(t, 125.0, master.Data[normalize.FieldMargen], "sheet margin is recomputed, never trusted")
	assert.Equal(t, testNow, master.Data[normalize.FieldCreatedAt])
	assert.Contains(t, search.StoredTokens(master.Data), "seda")

	pub, err := docs.Get(ctx, "prendas_public", "HA4A001__AM-M")
	require.NoError(t, err)
	assert.NotContains(t, pub.Data, normalize.FieldCosto)
	assert.NotContains(t, pub.Data, normalize.FieldMargen)
	assert.Equal(t, 180.0, pub.Data[normalize.FieldPVenta])

	adm, err := docs.Get(ctx, "prendas_admin", "HA4A001__AM-M")
	require.NoError(t, err)
	assert.Equal(t, 80.0, adm.Data[normalize.FieldCosto])

	sold, err := docs.Get(ctx, "prendas_public", "HA4A002__AM-M")
	require.NoError(t, err)
	assert.Equal(t, normalize.DisponibilidadNo, sold.Data[normalize.FieldDisponibilidadCanon])

	assert.ElementsMatch(t, []string{"HA4A001__AM-M", "HA4A002__AM-M"}, cache.invalidated)
}

func TestImportRows_DryRunWritesNothing(t *testing.T) {
	docs := newMemoryDocs(t)
	cache := &recordingCache{}
	svc := NewImportService(docs, testCols, CommitPolicy{}, cache, fixedClock)

	res, err := svc.ImportRows(context.Background(), inventorySheet(), dto.ImportOptions{DryRun: true, Source: "prueba"})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 0, docs.Len("prendas"))
	assert.Empty(t, cache.invalidated)
}

func TestImportRows_ChunksCommits(t *testing.T) {
	docs := newMemoryDocs(t)
	// three writes per row, so a limit of 6 commits every two rows
	svc := NewImportService(docs, testCols, CommitPolicy{BatchWriteLimit: 6}, nil, fixedClock)
	rows := [][]string{
		{"Código", "Precio"},
		{"HA4A001/AM-M", "10"},
		{"HA4A002/AM-M", "10"},
		{"HA4A003/AM-M", "10"},
	}

	res, err := svc.ImportRows(context.Background(), rows, dto.ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 2, docs.Commits)
	assert.Equal(t, 3, docs.Len("prendas_admin"))
}

func TestImportRows_MissingHeader(t *testing.T) {
	svc := NewImportService(newMemoryDocs(t), testCols, CommitPolicy{}, nil, fixedClock)
	_, err := svc.ImportRows(context.Background(), [][]string{{"Total", "10"}}, dto.ImportOptions{})
	require.Error(t, err)
	assert.Equal(t, apierror.InvalidArgument, apierror.From(err).Code)
}

func TestImportRows_HeaderAliases(t *testing.T) {
	docs := newMemoryDocs(t)
	svc := NewImportService(docs, testCols, CommitPolicy{}, nil, fixedClock)
	rows := [][]string{
		{"Clave", "Artículo", "Precio"},
		{"HA4A001/AM-M", "Falda plisada", "320"},
	}

	_, err := svc.ImportRows(context.Background(), rows, dto.ImportOptions{})
	require.Error(t, err, "clave is not a default header")

	res, err := svc.ImportRows(context.Background(), rows, dto.ImportOptions{
		HeaderAliases: map[string][]string{
			normalize.FieldCodigo:      {"clave"},
			normalize.FieldDescripcion: {"Artículo"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	master, err := docs.Get(context.Background(), "prendas", "HA4A001__AM-M")
	require.NoError(t, err)
	assert.Equal(t, "Falda plisada", master.Data[normalize.FieldDescripcion])
}

func TestImportRows_UnknownAliasField(t *testing.T) {
	svc := NewImportService(newMemoryDocs(t), testCols, CommitPolicy{}, nil, fixedClock)
	_, err := svc.ImportRows(context.Background(), inventorySheet(), dto.ImportOptions{
		HeaderAliases: map[string][]string{"sucursal": {"tienda"}},
	})
	require.Error(t, err)
	assert.Equal(t, apierror.InvalidArgument, apierror.From(err).Code)
	assert.Contains(t, err.Error(), "sucursal")
}
