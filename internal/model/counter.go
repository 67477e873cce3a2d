package model

import (
	"fmt"
	"time"
)

// Counter is a named monotonic sequence. Next is the value the next
// allocation will receive.
type Counter struct {
	Name           string    `gorm:"primaryKey;type:varchar(64)"`
	Next           int       `gorm:"not null;default:1"`
	Source         string    `gorm:"not null;default:''"`
	SampleLastCode string    `gorm:"not null;default:''"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// CounterLoyaltyClientSeq drives HCL-NNNN client ids.
const CounterLoyaltyClientSeq = "loyaltyClientSeq"

// SKUCounterPrefix namespaces the per provider/type garment sequences.
const SKUCounterPrefix = "prov"

// SKUCounterName is the counter for codes HA{provider}{type}NNN.
func SKUCounterName(provider, tipo string) string {
	return fmt.Sprintf("%s%s_tipo%s", SKUCounterPrefix, provider, tipo)
}
