package service

import (
	"context"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/config"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/normalize"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/projection"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/repository"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/search"

	"github.com/rs/zerolog/log"
)

// CommitPolicy bounds batch size and commit retries for catalog writes.
type CommitPolicy struct {
	BatchWriteLimit int
	Retries         int
	Backoff         time.Duration
}

// NewCommitPolicy reads BATCH_WRITE_LIMIT, MIGRATION_COMMIT_RETRIES and
// MIGRATION_BACKOFF_MS.
func NewCommitPolicy(cfg *config.Config) CommitPolicy {
	return CommitPolicy{
		BatchWriteLimit: cfg.BatchWriteLimit,
		Retries:         cfg.MigrationCommitRetries,
		Backoff:         time.Duration(cfg.MigrationBackoffMs) * time.Millisecond,
	}
}

func (p CommitPolicy) batchLimit() int {
	if p.BatchWriteLimit <= 0 {
		return 450
	}
	return p.BatchWriteLimit
}

// commitWithRetry applies one atomic merge batch, retrying the whole batch
// on failure. Merges are idempotent so a retry after an unknown outcome is safe.
func commitWithRetry(ctx context.Context, docs repository.DocumentRepository, p CommitPolicy, writes []repository.DocWrite) error {
	if len(writes) == 0 {
		return nil
	}
	var err error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 {
			log.Warn().Err(err).Int("attempt", attempt).Int("writes", len(writes)).Msg("reintentando commit del lote")
			if p.Backoff > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(p.Backoff * time.Duration(attempt)):
				}
			}
		}
		if err = docs.CommitMerge(ctx, writes); err == nil {
			return nil
		}
	}
	return err
}

// buildMaster turns input fields into a normalized master payload. Only
// fields present in the input are emitted, so the result can be
// merge-written over an existing record. A non-empty date that does not
// parse is an error.
func buildMaster(docID string, fields map[string]any, now time.Time) (map[string]any, error) {
	out := map[string]any{}

	codigo := normalize.NormalizeCodigo(normalize.ResolveString(fields, normalize.FieldCodigo))
	if codigo == "" {
		codigo = normalize.NormalizeCodigo(normalize.FromSafeDocID(docID))
	}
	out[normalize.FieldCodigo] = codigo

	for _, f := range []string{
		normalize.FieldDescripcion, normalize.FieldTipo, normalize.FieldColor,
		normalize.FieldTalla, normalize.FieldProveedor, normalize.FieldSource,
	} {
		if v, ok := normalize.Resolve(fields, f); ok {
			out[f] = normalize.Stringify(v)
		}
	}

	if raw, ok := normalize.Resolve(fields, normalize.FieldStatus); ok {
		s := normalize.Stringify(raw)
		out[normalize.FieldStatus] = s
		if canon := normalize.NormalizeStatus(s); canon != "" {
			out[normalize.FieldStatusCanon] = canon
		}
	}
	if raw, ok := normalize.Resolve(fields, normalize.FieldDisponibilidad); ok {
		s := normalize.Stringify(raw)
		statusCanon, _ := out[normalize.FieldStatusCanon].(string)
		out[normalize.FieldDisponibilidad] = s
		out[normalize.FieldDisponibilidadCanon] = normalize.NormalizeDisponibilidad(s, statusCanon)
	} else if out[normalize.FieldStatusCanon] == normalize.StatusVendido {
		out[normalize.FieldDisponibilidadCanon] = normalize.DisponibilidadNo
	}

	for _, f := range []string{
		normalize.FieldCosto, normalize.FieldPrecio, normalize.FieldPrecioConIva,
		normalize.FieldPVenta, normalize.FieldCostoSubtotal,
	} {
		if n, ok := normalize.Currency(resolvedField(fields, f)); ok {
			out[f] = n
		}
	}
	if n, ok := normalize.ToFixedNumber(resolvedField(fields, normalize.FieldIVA), normalize.RateDigits); ok {
		out[normalize.FieldIVA] = n
	}
	if n, ok := normalize.ToNumber(resolvedField(fields, normalize.FieldCantidad)); ok {
		out[normalize.FieldCantidad] = n
	}
	if price, ok := projection.SalePrice(out); ok {
		out[normalize.FieldPVenta] = price
		if _, has := out[normalize.FieldPrecioConIva]; !has {
			out[normalize.FieldPrecioConIva] = price
		}
	}

	fecha, ok, err := normalize.ParseFecha(resolvedField(fields, normalize.FieldFechaAlta))
	if err != nil {
		return nil, err
	}
	if ok {
		out[normalize.FieldFechaAlta] = fecha.Date
		out[normalize.FieldFechaAltaTexto] = fecha.Text
	}

	if parts, err := normalize.ParseCodigo(codigo); err == nil {
		out[normalize.FieldProviderCode] = parts.ProviderCode
		out[normalize.FieldTypeCode] = parts.TypeCode
		out[normalize.FieldSeqNumber] = parts.SeqNumber
		out[normalize.FieldOrden] = parts.SeqNumber
	}
	if n, ok := normalize.ToInt(resolvedField(fields, normalize.FieldOrden)); ok {
		out[normalize.FieldOrden] = n
	}

	out[normalize.FieldUpdatedAt] = now
	return out, nil
}

// withSearch attaches a fresh search index computed from the full record.
func withSearch(docID string, master map[string]any, now time.Time) {
	for k, v := range search.Compute(docID, master).Map(now) {
		master[k] = v
	}
}

// withMargin recomputes profit and margin on a full master record.
func withMargin(master map[string]any) {
	price, hasPrice := projection.SalePrice(master)
	costo, hasCosto := normalize.Currency(resolvedField(master, normalize.FieldCosto))
	master[normalize.FieldUtilidad], master[normalize.FieldMargen] = projection.Margin(price, hasPrice, costo, hasCosto)
}

func resolvedField(rec map[string]any, field string) any {
	v, _ := normalize.Resolve(rec, field)
	return v
}

// projectionWrites builds the public and admin merge writes for one record.
func projectionWrites(cols repository.Collections, docID string, views projection.Views) []repository.DocWrite {
	return []repository.DocWrite{
		{Collection: cols.Public, ID: docID, Data: views.Public},
		{Collection: cols.Admin, ID: docID, Data: views.Admin},
	}
}
