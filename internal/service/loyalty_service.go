package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/apierror"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/dto"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/infra"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/model"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/normalize"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/repository"
	"github.com/harujagdl/haruja-tiendanube-embedded-app/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInsufficientPoints is the cause of every rejected redemption.
var ErrInsufficientPoints = errors.New("insufficient points")

// List bounds.
const (
	DefaultClientList    = 80
	MaxClientList        = 100
	ClientSearchLimit    = 20
	DefaultMovementsList = 50
	MaxMovementsList     = 200
)

// LoyaltyService is the points ledger. Every mutation locks one client row
// (plus the id counter on registration) inside a single transaction, so the
// balance and its movement entry land together or not at all.
type LoyaltyService interface {
	RegisterClient(ctx context.Context, req dto.RegisterClientRequest) (*dto.ClientResponse, error)
	AddPurchase(ctx context.Context, clientID string, req dto.PurchaseRequest) (*dto.PurchaseResponse, error)
	Redeem(ctx context.Context, clientID string, req dto.RedeemRequest) (*dto.RedeemResponse, error)
	AddVisit(ctx context.Context, token string) (*dto.VisitResponse, error)

	GetClient(ctx context.Context, clientID string) (*dto.ClientResponse, error)
	ListClients(ctx context.Context, limit int) ([]dto.ClientResponse, error)
	SearchClients(ctx context.Context, q string) ([]dto.ClientResponse, error)
	ListMovements(ctx context.Context, clientID string, limit int) ([]dto.MovementResponse, error)
	Reconcile(ctx context.Context, clientID string) (*dto.ReconcileResponse, error)
	BackfillQRLinks(ctx context.Context) (*dto.QRBackfillResponse, error)
	GetCardByToken(ctx context.Context, token string) (*dto.CardResponse, error)
	RenderCardPDF(ctx context.Context, clientID string) ([]byte, error)
}

type loyaltyService struct {
	repo       repository.LoyaltyRepository
	dispatcher *worker.Dispatcher
	baseURL    string
	now        func() time.Time
	newToken   func() (string, error)
}

func NewLoyaltyService(repo repository.LoyaltyRepository, dispatcher *worker.Dispatcher, publicBaseURL string) LoyaltyService {
	return &loyaltyService{
		repo:       repo,
		dispatcher: dispatcher,
		baseURL:    publicBaseURL,
		now:        time.Now,
		newToken:   NewCardToken,
	}
}

// txError passes typed errors through and hides everything else.
func txError(err error, msg string) error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apierror.Wrap(apierror.Internal, msg, err)
}

func clientNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.New(apierror.NotFound, "Cliente no encontrado")
	}
	return err
}

// ── RegisterClient ───────────────────────────────────────────────────────────

func (s *loyaltyService) RegisterClient(ctx context.Context, req dto.RegisterClientRequest) (*dto.ClientResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apierror.New(apierror.InvalidArgument, "El nombre es obligatorio")
	}

	var client model.LoyaltyClient
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		next, err := s.repo.LockCounterTx(tx, model.CounterLoyaltyClientSeq)
		if err != nil {
			return err
		}
		clientID := FormatClientID(next)
		taken, err := s.repo.ClientExistsTx(tx, clientID)
		if err != nil {
			return err
		}
		if taken {
			return apierror.New(apierror.AlreadyExists, "El id "+clientID+" ya está ocupado")
		}

		token, err := s.uniqueToken(tx)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		client = model.LoyaltyClient{
			ClientID:       clientID,
			Name:           name,
			NameLower:      normalize.NormalizeText(name),
			Phone:          strings.TrimSpace(req.Phone),
			Instagram:      strings.TrimSpace(req.Instagram),
			Email:          strings.ToLower(strings.TrimSpace(req.Email)),
			TotalPurchases: decimal.Zero,
			Level:          LevelFor(0),
			Token:          token,
			QRLink:         QRLink(s.baseURL, token),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.CreateClientTx(tx, &client); err != nil {
			return err
		}
		return s.repo.SetCounterTx(tx, model.CounterLoyaltyClientSeq, next+1)
	})
	if err != nil {
		return nil, txError(err, "No se pudo registrar al cliente")
	}

	log.Info().Str("client_id", client.ClientID).Msg("lealtad: cliente registrado")
	if client.Email != "" && s.dispatcher != nil {
		job := dto.WelcomeEmailJob{ClientID: client.ClientID, Name: client.Name, Email: client.Email, QRLink: client.QRLink}
		if err := s.dispatcher.EnqueueEmail(ctx, job); err != nil {
			log.Warn().Err(err).Str("client_id", client.ClientID).Msg("lealtad: no se pudo encolar el correo de bienvenida")
		}
	}
	resp := toClientResponse(&client)
	return &resp, nil
}

func (s *loyaltyService) uniqueToken(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < MaxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", err
		}
		exists, err := s.repo.TokenExistsTx(tx, token)
		if err != nil {
			return "", err
		}
		if !exists {
			return token, nil
		}
	}
	return "", apierror.New(apierror.Internal, "No se pudo generar un token único")
}

// ── AddPurchase ──────────────────────────────────────────────────────────────

func (s *loyaltyService) AddPurchase(ctx context.Context, clientID string, req dto.PurchaseRequest) (*dto.PurchaseResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apierror.New(apierror.InvalidArgument, "El monto debe ser mayor a 0")
	}
	amount := req.Amount.Round(2)

	var client *model.LoyaltyClient
	var earned int
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		c, err := s.repo.FindClientForUpdateTx(tx, normalizeClientID(clientID))
		if err != nil {
			return clientNotFound(err)
		}
		now := s.now().UTC()
		earned = PointsFor(amount)
		c.Points += earned
		c.TotalPurchases = c.TotalPurchases.Add(amount)
		c.Level = LevelFor(c.Points)
		c.LastMovementAt = &now
		c.LastPurchaseAt = &now
		c.UpdatedAt = now
		if err := s.repo.UpdateClientTx(tx, c); err != nil {
			return err
		}
		client = c
		return s.repo.AppendMovementTx(tx, &model.LoyaltyMovement{
			ID:           uuid.New(),
			ClientID:     c.ClientID,
			ClientName:   c.Name,
			Type:         model.MovementPurchase,
			Amount:       amount,
			PointsEarned: earned,
			PointsFinal:  c.Points,
			Notes:        strings.TrimSpace(req.Notes),
			CreatedAt:    now,
		})
	})
	if err != nil {
		return nil, txError(err, "No se pudo registrar la compra")
	}
	return &dto.PurchaseResponse{Client: toClientResponse(client), PointsEarned: earned}, nil
}

// ── Redeem ───────────────────────────────────────────────────────────────────

func (s *loyaltyService) Redeem(ctx context.Context, clientID string, req dto.RedeemRequest) (*dto.RedeemResponse, error) {
	reward, ok := FindReward(req.RewardPoints)
	if !ok {
		return nil, apierror.New(apierror.InvalidArgument, "Recompensa no reconocida")
	}

	var client *model.LoyaltyClient
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		c, err := s.repo.FindClientForUpdateTx(tx, normalizeClientID(clientID))
		if err != nil {
			return clientNotFound(err)
		}
		if c.Points < reward.Points {
			return apierror.Wrap(apierror.FailedPrecondition, "Puntos insuficientes", ErrInsufficientPoints)
		}
		now := s.now().UTC()
		c.Points -= reward.Points
		c.Level = LevelFor(c.Points)
		c.LastMovementAt = &now
		c.UpdatedAt = now
		if err := s.repo.UpdateClientTx(tx, c); err != nil {
			return err
		}
		client = c
		notes := strings.TrimSpace(req.Notes)
		if notes == "" {
			notes = reward.Label
		}
		return s.repo.AppendMovementTx(tx, &model.LoyaltyMovement{
			ID:             uuid.New(),
			ClientID:       c.ClientID,
			ClientName:     c.Name,
			Type:           model.MovementRedeem,
			Amount:         decimal.Zero,
			PointsRedeemed: reward.Points,
			PointsFinal:    c.Points,
			Notes:          notes,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return nil, txError(err, "No se pudo canjear la recompensa")
	}
	return &dto.RedeemResponse{Client: toClientResponse(client), Reward: reward}, nil
}

// ── AddVisit ─────────────────────────────────────────────────────────────────

// AddVisit counts a store visit. It does not touch points or the ledger.
func (s *loyaltyService) AddVisit(ctx context.Context, token string) (*dto.VisitResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apierror.New(apierror.InvalidArgument, "Token requerido")
	}
	var visits int
	err := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		c, err := s.repo.FindClientByTokenForUpdateTx(tx, token)
		if err != nil {
			return clientNotFound(err)
		}
		c.Visits++
		c.UpdatedAt = s.now().UTC()
		visits = c.Visits
		return s.repo.UpdateClientTx(tx, c)
	})
	if err != nil {
		return nil, txError(err, "No se pudo registrar la visita")
	}
	return &dto.VisitResponse{Visits: visits}, nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *loyaltyService) GetClient(ctx context.Context, clientID string) (*dto.ClientResponse, error) {
	c, err := s.repo.FindClient(ctx, normalizeClientID(clientID))
	if err != nil {
		return nil, txError(clientNotFound(err), "No se pudo leer el cliente")
	}
	resp := toClientResponse(c)
	return &resp, nil
}

func (s *loyaltyService) ListClients(ctx context.Context, limit int) ([]dto.ClientResponse, error) {
	if limit <= 0 {
		limit = DefaultClientList
	}
	if limit > MaxClientList {
		limit = MaxClientList
	}
	clients, err := s.repo.ListClients(ctx, limit)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "No se pudo listar clientes", err)
	}
	return toClientResponses(clients), nil
}

// SearchClients matches an HCL- id exactly, an all-digit query against the
// phone, and anything else as a name prefix.
func (s *loyaltyService) SearchClients(ctx context.Context, q string) ([]dto.ClientResponse, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apierror.New(apierror.InvalidArgument, "Búsqueda vacía")
	}

	var clients []model.LoyaltyClient
	var err error
	switch {
	case strings.HasPrefix(strings.ToUpper(q), ClientIDPrefix):
		var c *model.LoyaltyClient
		c, err = s.repo.FindClient(ctx, normalizeClientID(q))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []dto.ClientResponse{}, nil
		}
		if err == nil {
			clients = []model.LoyaltyClient{*c}
		}
	case isDigits(q):
		clients, err = s.repo.FindByPhone(ctx, q, ClientSearchLimit)
	default:
		clients, err = s.repo.SearchByNamePrefix(ctx, normalize.NormalizeText(q), ClientSearchLimit)
	}
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "No se pudo buscar clientes", err)
	}
	return toClientResponses(clients), nil
}

// normalizeClientID makes by-id lookups case-insensitive: ids are stored as HCL-NNNN.
func normalizeClientID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func (s *loyaltyService) ListMovements(ctx context.Context, clientID string, limit int) ([]dto.MovementResponse, error) {
	if limit <= 0 {
		limit = DefaultMovementsList
	}
	if limit > MaxMovementsList {
		limit = MaxMovementsList
	}
	movs, err := s.repo.ListMovements(ctx, normalizeClientID(clientID), limit)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "No se pudo listar movimientos", err)
	}
	out := make([]dto.MovementResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, dto.MovementResponse{
			ID:             m.ID.String(),
			ClientID:       m.ClientID,
			ClientName:     m.ClientName,
			Type:           m.Type,
			Amount:         m.Amount,
			PointsEarned:   m.PointsEarned,
			PointsRedeemed: m.PointsRedeemed,
			PointsFinal:    m.PointsFinal,
			Notes:          m.Notes,
			CreatedAt:      m.CreatedAt,
		})
	}
	return out, nil
}

// Reconcile compares the stored balance with the signed sum of the ledger.
func (s *loyaltyService) Reconcile(ctx context.Context, clientID string) (*dto.ReconcileResponse, error) {
	c, err := s.repo.FindClient(ctx, normalizeClientID(clientID))
	if err != nil {
		return nil, txError(clientNotFound(err), "No se pudo leer el cliente")
	}
	sum, err := s.repo.SumMovementDeltas(ctx, c.ClientID)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "No se pudo sumar el historial", err)
	}
	if sum != c.Points {
		log.Error().Str("client_id", c.ClientID).Int("points", c.Points).Int("ledger", sum).Msg("lealtad: saldo descuadrado")
	}
	return &dto.ReconcileResponse{
		ClientID:     c.ClientID,
		Points:       c.Points,
		LedgerPoints: sum,
		Consistent:   sum == c.Points,
	}, nil
}

// BackfillQRLinks rewrites missing or legacy card links to the current base URL.
func (s *loyaltyService) BackfillQRLinks(ctx context.Context) (*dto.QRBackfillResponse, error) {
	clients, err := s.repo.ListClientsWithoutQRLink(ctx, QRLink(s.baseURL, ""))
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "No se pudo listar clientes", err)
	}
	res := &dto.QRBackfillResponse{Scanned: len(clients)}
	for _, c := range clients {
		if c.Token == "" {
			continue
		}
		if err := s.repo.UpdateQRLink(ctx, c.ClientID, QRLink(s.baseURL, c.Token)); err != nil {
			return nil, apierror.Wrap(apierror.Internal, "No se pudo actualizar el enlace QR", err)
		}
		res.Updated++
	}
	return res, nil
}

func (s *loyaltyService) GetCardByToken(ctx context.Context, token string) (*dto.CardResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apierror.New(apierror.InvalidArgument, "Token requerido")
	}
	c, err := s.repo.FindClientByToken(ctx, token)
	if err != nil {
		return nil, txError(clientNotFound(err), "No se pudo leer la tarjeta")
	}
	return &dto.CardResponse{
		Name:           c.Name,
		Points:         c.Points,
		Level:          LevelFor(c.Points),
		TotalPurchases: c.TotalPurchases,
		Visits:         c.Visits,
		LastMovementAt: c.LastMovementAt,
		RewardOptions:  RewardOptions(c.Points),
	}, nil
}

func (s *loyaltyService) RenderCardPDF(ctx context.Context, clientID string) ([]byte, error) {
	c, err := s.repo.FindClient(ctx, normalizeClientID(clientID))
	if err != nil {
		return nil, txError(clientNotFound(err), "No se pudo leer el cliente")
	}
	labels := make([]string, 0, len(Rewards))
	for _, o := range RewardOptions(c.Points) {
		mark := "  "
		if o.Available {
			mark = "* "
		}
		labels = append(labels, mark+o.Label)
	}
	pdf, err := infra.GenerateLoyaltyCardPDF(c, labels)
	if err != nil {
		return nil, apierror.Wrap(apierror.Internal, "No se pudo generar la tarjeta", err)
	}
	return pdf, nil
}

// ── Mapping ──────────────────────────────────────────────────────────────────

func toClientResponse(c *model.LoyaltyClient) dto.ClientResponse {
	return dto.ClientResponse{
		ClientID:       c.ClientID,
		Name:           c.Name,
		Phone:          c.Phone,
		Instagram:      c.Instagram,
		Email:          c.Email,
		Points:         c.Points,
		TotalPurchases: c.TotalPurchases,
		Level:          c.Level,
		Visits:         c.Visits,
		Token:          c.Token,
		QRLink:         c.QRLink,
		LastMovementAt: c.LastMovementAt,
		LastPurchaseAt: c.LastPurchaseAt,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func toClientResponses(cs []model.LoyaltyClient) []dto.ClientResponse {
	out := make([]dto.ClientResponse, 0, len(cs))
	for i := range cs {
		out = append(out, toClientResponse(&cs[i]))
	}
	return out
}
