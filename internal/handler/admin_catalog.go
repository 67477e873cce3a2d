package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/infra"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/middleware"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/service"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Jobs is the slice of the worker layer the admin endpoints drive.
type Jobs interface {
	EnqueueMigration(ctx context.Context, job worker.MigrationJob) error
	Checkpoint(ctx context.Context, kind string) (string, error)
	ReplayDLQ(ctx context.Context, queue string, max int) (int, error)
}

type AdminCatalogHandler struct {
	catalog    service.CatalogService
	importer   service.ImportService
	migrations service.MigrationService
	jobs       Jobs
}

func NewAdminCatalogHandler(catalog service.CatalogService, importer service.ImportService, migrations service.MigrationService, jobs Jobs) *AdminCatalogHandler {
	return &AdminCatalogHandler{catalog: catalog, importer: importer, migrations: migrations, jobs: jobs}
}

// ── Import ────────────────────────────────────────────────────────────────────

// Import godoc
// @Summary Importa prendas desde un archivo xlsx o csv
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Planilla (.xlsx, .xlsm o .csv)"
// @Param dryRun formData bool false "Solo validar, sin escribir"
// @Param aliases formData string false "JSON campo → encabezados extra, ej. {\"codigo\":[\"clave\"]}"
// @Success 200 {object} dto.ImportResult
// @Failure 400 {object} apierror.Envelope
// @Router /v1/admin/import [post]
func (h *AdminCatalogHandler) Import(c *gin.Context) {
	rows, filename, read := readUpload(c)
	if !read {
		return
	}
	dryRun, _ := strconv.ParseBool(c.PostForm("dryRun"))
	var aliases map[string][]string
	if raw := c.PostForm("aliases"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &aliases); err != nil {
			respondError(c, apierror.Wrap(apierror.InvalidArgument, "aliases debe ser un objeto JSON de listas", err))
			return
		}
	}

	res, err := h.importer.ImportRows(c.Request.Context(), rows, dto.ImportOptions{DryRun: dryRun, HeaderAliases: aliases})
	if err != nil {
		respondError(c, err)
		return
	}
	admin := middleware.GetAdmin(c)
	ev := log.Info().Str("file", filename).Int("imported", res.Imported).Int("skipped", res.Skipped).Bool("dry_run", dryRun)
	if admin != nil {
		ev = ev.Str("admin", admin.Email)
	}
	ev.Msg("importación completada")
	ok(c, res)
}

// readUpload reads the spreadsheet sent in the multipart field "file".
// It writes the error response itself and returns false on failure.
func readUpload(c *gin.Context) ([][]string, string, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, apierror.Wrap(apierror.InvalidArgument, "Falta el archivo (campo file)", err))
		return nil, "", false
	}
	if fh.Size > infra.MaxSpreadsheetBytes {
		respondError(c, apierror.New(apierror.InvalidArgument, "El archivo supera el tamaño máximo de 10 MB"))
		return nil, "", false
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, apierror.Wrap(apierror.InvalidArgument, "No se pudo abrir el archivo", err))
		return nil, "", false
	}
	defer f.Close()

	rows, err := infra.ReadRows(f, fh.Filename)
	if errors.Is(err, infra.ErrUnsupportedSpreadsheet) {
		respondError(c, apierror.Wrap(apierror.InvalidArgument, "Formato no soportado, use .xlsx o .csv", err))
		return nil, "", false
	}
	if err != nil {
		respondError(c, apierror.Wrap(apierror.InvalidArgument, "No se pudo leer la planilla", err))
		return nil, "", false
	}
	return rows, fh.Filename, true
}

// ── Migrations ────────────────────────────────────────────────────────────────

// MigrateProjection godoc
// @Summary Proyecta una página del maestro a las vistas pública y admin
// @Tags admin
// @Accept json
// @Produce json
// @Param body body dto.PageRequest false "Cursor y tamaño de página"
// @Success 200 {object} dto.MigrateResult
// @Router /v1/admin/migrations/projection [post]
func (h *AdminCatalogHandler) MigrateProjection(c *gin.Context) {
	var req dto.PageRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := h.migrations.MigratePage(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

// BackfillSearchTokens godoc
// @Summary Recalcula los tokens de búsqueda de una página del maestro
// @Tags admin
// @Accept json
// @Produce json
// @Param body body dto.BackfillRequest false "Cursor y tamaño de lote"
// @Success 200 {object} dto.BackfillResult
// @Router /v1/admin/migrations/search-tokens [post]
func (h *AdminCatalogHandler) BackfillSearchTokens(c *gin.Context) {
	var req dto.BackfillRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := h.migrations.BackfillSearchTokens(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

// Canonicalize godoc
// @Summary Escribe los campos canónicos (status, disponibilidad, fechaAlta) en el maestro
// @Tags admin
// @Accept json
// @Produce json
// @Param body body dto.PageRequest false "Cursor y tamaño de página"
// @Success 200 {object} dto.CanonicalizeResult
// @Router /v1/admin/migrations/canonical [post]
func (h *AdminCatalogHandler) Canonicalize(c *gin.Context) {
	var req dto.PageRequest
	if !bindOptional(c, &req) {
		return
	}
	res, err := h.migrations.CanonicalizePage(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

// EnqueueMigration godoc
// @Summary Encola una migración completa en segundo plano
// @Tags admin
// @Accept json
// @Produce json
// @Param kind path string true "projection | search-tokens | canonical"
// @Param body body dto.PageRequest false "Cursor inicial"
// @Success 202 {object} dto.CheckpointResponse
// @Router /v1/admin/migrations/{kind}/enqueue [post]
func (h *AdminCatalogHandler) EnqueueMigration(c *gin.Context) {
	kind := c.Param("kind")
	if !dto.ValidMigrationKind(kind) {
		respondError(c, apierror.New(apierror.InvalidArgument, "Migración desconocida: "+kind))
		return
	}
	var req dto.PageRequest
	if !bindOptional(c, &req) {
		return
	}
	job := worker.MigrationJob{Kind: kind, Cursor: req.Cursor, PageSize: req.PageSize, DryRun: req.DryRun}
	if err := h.jobs.EnqueueMigration(c.Request.Context(), job); err != nil {
		respondError(c, apierror.Wrap(apierror.Internal, "No se pudo encolar la migración", err))
		return
	}
	respondOK(c, http.StatusAccepted, dto.CheckpointResponse{Kind: kind, Cursor: req.Cursor})
}

// Checkpoint godoc
// @Summary Último cursor procesado de una migración en segundo plano
// @Tags admin
// @Produce json
// @Param kind path string true "projection | search-tokens | canonical"
// @Success 200 {object} dto.CheckpointResponse
// @Router /v1/admin/migrations/{kind}/checkpoint [get]
func (h *AdminCatalogHandler) Checkpoint(c *gin.Context) {
	kind := c.Param("kind")
	if !dto.ValidMigrationKind(kind) {
		respondError(c, apierror.New(apierror.InvalidArgument, "Migración desconocida: "+kind))
		return
	}
	cursor, err := h.jobs.Checkpoint(c.Request.Context(), kind)
	if err != nil {
		respondError(c, apierror.Wrap(apierror.Internal, "No se pudo leer el checkpoint", err))
		return
	}
	ok(c, dto.CheckpointResponse{Kind: kind, Cursor: cursor})
}

// ReplayDLQ godoc
// @Summary Reencola los trabajos fallidos de una cola
// @Tags admin
// @Produce json
// @Param queue query string true "jobs:migration | jobs:email"
// @Param max query int false "Máximo a reencolar (default 100)"
// @Router /v1/admin/jobs/dlq/replay [post]
func (h *AdminCatalogHandler) ReplayDLQ(c *gin.Context) {
	queue := c.Query("queue")
	if queue != worker.QueueMigration && queue != worker.QueueEmail {
		respondError(c, apierror.New(apierror.InvalidArgument, "Cola desconocida"))
		return
	}
	max, valid := queryInt(c, "max")
	if !valid {
		return
	}
	if max == 0 {
		max = 100
	}
	moved, err := h.jobs.ReplayDLQ(c.Request.Context(), queue, max)
	if err != nil {
		respondError(c, apierror.Wrap(apierror.Internal, "No se pudo reencolar", err))
		return
	}
	ok(c, gin.H{"queue": queue, "replayed": moved})
}

// ── Prendas ───────────────────────────────────────────────────────────────────

// GetPrenda godoc
// @Summary Vista admin de una prenda (incluye costos)
// @Tags admin
// @Produce json
// @Param code path string true "Código de la prenda"
// @Success 200 {object} dto.PrendaResponse
// @Router /v1/admin/prendas/{code} [get]
func (h *AdminCatalogHandler) GetPrenda(c *gin.Context) {
	resp, err := h.catalog.GetAdmin(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}

// UpsertPrenda godoc
// @Summary Crea o actualiza una prenda y regenera sus vistas
// @Tags admin
// @Accept json
// @Produce json
// @Param code path string true "Código de la prenda"
// @Success 200 {object} dto.PrendaResponse
// @Router /v1/admin/prendas/{code} [put]
func (h *AdminCatalogHandler) UpsertPrenda(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		respondError(c, apierror.Wrap(apierror.InvalidArgument, "JSON inválido", err))
		return
	}
	resp, err := h.catalog.Upsert(c.Request.Context(), c.Param("code"), raw)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}

// Label godoc
// @Summary Etiqueta ZPL con precio y QR del SKU
// @Tags admin
// @Produce plain
// @Param code path string true "Código de la prenda"
// @Router /v1/admin/prendas/{code}/label [get]
func (h *AdminCatalogHandler) Label(c *gin.Context) {
	zpl, err := h.catalog.Label(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(zpl))
}
