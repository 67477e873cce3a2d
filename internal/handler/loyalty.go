package handler

import (
	"net/http"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/service"

	"github.com/gin-gonic/gin"
)

type LoyaltyHandler struct{ svc service.LoyaltyService }

func NewLoyaltyHandler(svc service.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{svc: svc}
}

// ── Public card ───────────────────────────────────────────────────────────────

// GetCard godoc
// @Summary Tarjeta de lealtad pública por token
// @Tags lealtad
// @Produce json
// @Param token path string true "Token de la tarjeta"
// @Success 200 {object} dto.CardResponse
// @Failure 404 {object} apierror.Envelope
// @Router /v1/loyalty/card/{token} [get]
func (h *LoyaltyHandler) GetCard(c *gin.Context) {
	resp, err := h.svc.GetCardByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}

// AddVisit godoc
// @Summary Registra una visita al escanear la tarjeta (personal de tienda)
// @Tags lealtad
// @Produce json
// @Param token path string true "Token de la tarjeta"
// @Success 200 {object} dto.VisitResponse
// @Router /v1/loyalty/card/{token}/visit [post]
func (h *LoyaltyHandler) AddVisit(c *gin.Context) {
	resp, err := h.svc.AddVisit(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}

// ── Admin ─────────────────────────────────────────────────────────────────────

// Register godoc
// @Summary Alta de cliente de lealtad
// @Tags lealtad
// @Accept json
// @Produce json
// @Param body body dto.RegisterClientRequest true "Datos del cliente"
// @Success 201 {object} dto.ClientResponse
// @Router /v1/admin/loyalty/clients [post]
func (h *LoyaltyHandler) Register(c *gin.Context) {
	var req dto.RegisterClientRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegisterClient(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, resp)
}

// List godoc
// @Summary Clientes recientes
// @Tags lealtad
// @Produce json
// @Param limit query int false "Máximo (default 80, tope 100)"
// @Router /v1/admin/loyalty/clients [get]
func (h *LoyaltyHandler) List(c *gin.Context) {
	limit, valid := queryInt(c, "limit")
	if !valid {
		return
	}
	clients, err := h.svc.ListClients(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"clients": clients})
}

// Search godoc
// @Summary Busca clientes por id HCL-, teléfono o prefijo de nombre
// @Tags lealtad
// @Produce json
// @Param q query string true "Texto a buscar"
// @Router /v1/admin/loyalty/clients/search [get]
func (h *LoyaltyHandler) Search(c *gin.Context) {
	clients, err := h.svc.SearchClients(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"clients": clients})
}

func (h *LoyaltyHandler) Get(c *gin.Context) {
	resp, err := h.svc.GetClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}

// AddPurchase godoc
// @Summary Registra una compra y acredita puntos
// @Tags lealtad
// @Accept json
// @Produce json
// @Param id path string true "ID de cliente (HCL-0001)"
// @Param body body dto.PurchaseRequest true "Monto de la compra"
// @Success 200 {object} dto.PurchaseResponse
// @Router /v1/admin/loyalty/clients/{id}/purchases [post]
func (h *LoyaltyHandler) AddPurchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddPurchase(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}

// Redeem godoc
// @Summary Canjea una recompensa
// @Tags lealtad
// @Accept json
// @Produce json
// @Param id path string true "ID de cliente"
// @Param body body dto.RedeemRequest true "Puntos de la recompensa"
// @Success 200 {object} dto.RedeemResponse
// @Failure 400 {object} apierror.Envelope "Puntos insuficientes"
// @Router /v1/admin/loyalty/clients/{id}/redemptions [post]
func (h *LoyaltyHandler) Redeem(c *gin.Context) {
	var req dto.RedeemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Redeem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}

func (h *LoyaltyHandler) Movements(c *gin.Context) {
	limit, valid := queryInt(c, "limit")
	if !valid {
		return
	}
	movs, err := h.svc.ListMovements(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"movements": movs})
}

// Reconcile godoc
// @Summary Compara el saldo con la suma del historial de movimientos
// @Tags lealtad
// @Produce json
// @Param id path string true "ID de cliente"
// @Success 200 {object} dto.ReconcileResponse
// @Router /v1/admin/loyalty/clients/{id}/reconcile [get]
func (h *LoyaltyHandler) Reconcile(c *gin.Context) {
	resp, err := h.svc.Reconcile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}

// CardPDF godoc
// @Summary Tarjeta imprimible en PDF
// @Tags lealtad
// @Produce application/pdf
// @Param id path string true "ID de cliente"
// @Router /v1/admin/loyalty/clients/{id}/card.pdf [get]
func (h *LoyaltyHandler) CardPDF(c *gin.Context) {
	id := c.Param("id")
	pdf, err := h.svc.RenderCardPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="tarjeta-`+id+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *LoyaltyHandler) BackfillQRLinks(c *gin.Context) {
	resp, err := h.svc.BackfillQRLinks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}
