package handler

import (
	"net/http"
	"strings"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/middleware"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminSessionHandler struct{ svc service.AdminService }

func NewAdminSessionHandler(svc service.AdminService) *AdminSessionHandler {
	return &AdminSessionHandler{svc: svc}
}

// Create godoc
// @Summary Abre una sesión admin con la contraseña compartida
// @Tags admin
// @Accept json
// @Produce json
// @Param body body dto.CreateSessionRequest true "Contraseña"
// @Success 201 {object} dto.SessionResponse
// @Failure 403 {object} apierror.Envelope
// @Failure 429 {object} apierror.Envelope
// @Router /v1/admin/session [post]
func (h *AdminSessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateSession(c.Request.Context(), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, resp)
}

// Revoke godoc
// @Summary Cierra la sesión admin enviada en X-Admin-Session
// @Tags admin
// @Produce json
// @Router /v1/admin/session [delete]
func (h *AdminSessionHandler) Revoke(c *gin.Context) {
	id := strings.TrimSpace(c.GetHeader(middleware.AdminSessionHeader))
	if id == "" {
		respondError(c, apierror.New(apierror.Unauthenticated, "Falta el encabezado "+middleware.AdminSessionHeader))
		return
	}
	if err := h.svc.RevokeSession(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	ok(c, nil)
}
