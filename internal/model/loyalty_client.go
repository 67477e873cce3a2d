package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoyaltyClient is a member of the loyalty program.
// Points change only through ledger operations; Level is always LevelFor(Points).
type LoyaltyClient struct {
	ClientID       string          `gorm:"primaryKey;type:varchar(16)"`
	Name           string          `gorm:"not null"`
	NameLower      string          `gorm:"not null;index"`
	Phone          string          `gorm:"index"`
	Instagram      string
	Email          string
	Points         int             `gorm:"not null;default:0"`
	TotalPurchases decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Level          string          `gorm:"type:varchar(16);not null"`
	Visits         int             `gorm:"not null;default:0"`
	Token          string          `gorm:"type:varchar(32);uniqueIndex;not null"`
	QRLink         string
	LastMovementAt *time.Time
	LastPurchaseAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
