package models

import (
	"time"

	"github.com/google/uuid"
)

// PriceSnapshot is one observed (price, timestamp) pair for a product.
// Snapshots are append-only; the only deletion path is explicit dedup cleanup.
type PriceSnapshot struct {
	ID         int64     `json:"id" db:"id"`
	ProductID  uuid.UUID `json:"productId" db:"product_id"`
	Price      Cents     `json:"price" db:"price"`
	RecordedAt time.Time `json:"recordedAt" db:"recorded_at"`
}
