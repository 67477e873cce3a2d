package model

import (
	"time"

	"github.com/google/uuid"
)

// AdminSession is a password-derived admin credential. Expiry is checked
// lazily on every use; there is no background sweep.
type AdminSession struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ExpiresAt time.Time `gorm:"not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}
