package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RegisterClientRequest struct {
	Name      string `json:"name"      validate:"required,min=1,max=120"`
	Phone     string `json:"phone"     validate:"omitempty,max=30"`
	Instagram string `json:"instagram" validate:"omitempty,max=60"`
	Email     string `json:"email"     validate:"omitempty,email"`
}

type PurchaseRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Notes  string          `json:"notes"  validate:"max=500"`
}

type RedeemRequest struct {
	RewardPoints int    `json:"rewardPoints" validate:"required,min=1"`
	Notes        string `json:"notes"        validate:"max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ClientResponse struct {
	ClientID       string          `json:"clientId"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	Instagram      string          `json:"instagram"`
	Email          string          `json:"email"`
	Points         int             `json:"points"`
	TotalPurchases decimal.Decimal `json:"totalPurchases"`
	Level          string          `json:"level"`
	Visits         int             `json:"visits"`
	Token          string          `json:"token"`
	QRLink         string          `json:"qrLink"`
	LastMovementAt *time.Time      `json:"lastMovementAt"`
	LastPurchaseAt *time.Time      `json:"lastPurchaseAt"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type PurchaseResponse struct {
	Client       ClientResponse `json:"client"`
	PointsEarned int            `json:"pointsEarned"`
}

type Reward struct {
	Points int    `json:"points"`
	Label  string `json:"label"`
}

type RedeemResponse struct {
	Client ClientResponse `json:"client"`
	Reward Reward         `json:"reward"`
}

type MovementResponse struct {
	ID             string          `json:"id"`
	ClientID       string          `json:"clientId"`
	ClientName     string          `json:"clientName"`
	Type           string          `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	PointsEarned   int             `json:"pointsEarned"`
	PointsRedeemed int             `json:"pointsRedeemed"`
	PointsFinal    int             `json:"pointsFinal"`
	Notes          string          `json:"notes"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type ReconcileResponse struct {
	ClientID     string `json:"clientId"`
	Points       int    `json:"points"`
	LedgerPoints int    `json:"ledgerPoints"`
	Consistent   bool   `json:"consistent"`
}

type QRBackfillResponse struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
}

type RewardOption struct {
	Points        int    `json:"points"`
	Label         string `json:"label"`
	Available     bool   `json:"available"`
	MissingPoints int    `json:"missingPoints"`
}

// CardResponse is the public card view; it carries no contact data.
type CardResponse struct {
	Name           string          `json:"name"`
	Points         int             `json:"points"`
	Level          string          `json:"level"`
	TotalPurchases decimal.Decimal `json:"totalPurchases"`
	Visits         int             `json:"visits"`
	LastMovementAt *time.Time      `json:"lastMovementAt"`
	RewardOptions  []RewardOption  `json:"rewardOptions"`
}

type VisitResponse struct {
	Visits int `json:"visits"`
}

// WelcomeEmailJob is the jobs:email payload sent after registration.
type WelcomeEmailJob struct {
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	QRLink   string `json:"qrLink"`
}
