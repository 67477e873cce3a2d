package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movement types.
const (
	MovementPurchase = "purchase"
	MovementRedeem   = "redeem"
)

// LoyaltyMovement is an immutable ledger entry. Movements are never modified
// or deleted; the signed sum of deltas per client equals the client's points.
type LoyaltyMovement struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClientID       string          `gorm:"type:varchar(16);not null;index"`
	ClientName     string          `gorm:"not null"`
	Type           string          `gorm:"type:varchar(16);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PointsEarned   int             `gorm:"not null;default:0"`
	PointsRedeemed int             `gorm:"not null;default:0"`
	PointsFinal    int             `gorm:"not null"`
	Notes          string
	CreatedAt      time.Time
}

// Delta is the signed point change recorded by the entry.
func (m LoyaltyMovement) Delta() int { return m.PointsEarned - m.PointsRedeemed }
