package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationPriceDrop     NotificationType = "PRICE_DROP"
	NotificationPriceIncrease NotificationType = "PRICE_INCREASE"
	NotificationProductAdded  NotificationType = "PRODUCT_ADDED"
	NotificationSystem        NotificationType = "SYSTEM"
)

// Notification is an in-app notification record. ProductID is nil for SYSTEM
// notifications; for the rest it is a weak reference used for navigation only.
type Notification struct {
	ID        int64            `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"userId" db:"user_id"`
	ProductID *uuid.UUID       `json:"productId" db:"product_id"`
	Type      NotificationType `json:"type" db:"type"`
	Message   string           `json:"message" db:"message"`
	IsRead    bool             `json:"isRead" db:"is_read"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}
