package handler

import (
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/service"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the public catalog. Only public views leave here.
type CatalogHandler struct{ svc service.CatalogService }

func NewCatalogHandler(svc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// Search godoc
// @Summary Búsqueda pública de prendas por tokens de descripción
// @Tags catalogo
// @Produce json
// @Param q query string true "Texto a buscar"
// @Param limit query int false "Máximo de resultados (1-50)"
// @Success 200 {object} dto.SearchResponse
// @Failure 400 {object} apierror.Envelope
// @Router /v1/prendas [get]
func (h *CatalogHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, apierror.Wrap(apierror.InvalidArgument, "Parámetros inválidos", err))
		return
	}
	if !validateStruct(c, &req) {
		return
	}
	resp, err := h.svc.Search(c.Request.Context(), req.Q, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}

// GetPublic godoc
// @Summary Vista pública de una prenda (sin costos)
// @Tags catalogo
// @Produce json
// @Param code path string true "Código de la prenda"
// @Success 200 {object} dto.PrendaResponse
// @Failure 404 {object} apierror.Envelope
// @Router /v1/prendas/{code} [get]
func (h *CatalogHandler) GetPublic(c *gin.Context) {
	resp, err := h.svc.GetPublic(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}
