package model

import (
	"time"

	"gorm.io/datatypes"
)

// Documento is one catalog document (master, public or admin view) stored as
// jsonb. The three catalog collections share this shape; the table is chosen
// per query with db.Table.
type Documento struct {
	DocID     string            `gorm:"column:doc_id;primaryKey"`
	Data      datatypes.JSONMap `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
