package handler

import (
	"strconv"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type CounterHandler struct{ svc service.CounterService }

func NewCounterHandler(svc service.CounterService) *CounterHandler {
	return &CounterHandler{svc: svc}
}

// Seed godoc
// @Summary Siembra los counters de SKU desde la planilla de códigos
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Planilla de códigos (.xlsx o .csv)"
// @Param dryRun formData bool false "Solo calcular, sin escribir"
// @Success 200 {object} dto.CounterSeedResult
// @Failure 400 {object} apierror.Envelope
// @Router /v1/admin/counters/seed [post]
func (h *CounterHandler) Seed(c *gin.Context) {
	rows, filename, read := readUpload(c)
	if !read {
		return
	}
	dryRun, _ := strconv.ParseBool(c.PostForm("dryRun"))

	res, err := h.svc.SeedFromRows(c.Request.Context(), rows, dryRun)
	if err != nil {
		respondError(c, err)
		return
	}
	log.Info().Str("file", filename).Int("counters", len(res.Counters)).Int("written", res.Written).Msg("counters sembrados")
	ok(c, res)
}

// List godoc
// @Summary Lista los counters de SKU por proveedor y tipo
// @Tags admin
// @Produce json
// @Success 200 {object} map[string][]dto.SKUCounter
// @Router /v1/admin/counters [get]
func (h *CounterHandler) List(c *gin.Context) {
	counters, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"counters": counters})
}
