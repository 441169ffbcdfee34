package models

import (
	"time"

	"github.com/google/uuid"
)

type ProductStatus string

const (
	// ProductStatusPending means the product was submitted but the first
	// scrape has not succeeded yet; the name is still a URL-derived
	// placeholder.
	ProductStatusPending ProductStatus = "PENDING"
	ProductStatusActive  ProductStatus = "ACTIVE"
	// ProductStatusError means the consecutive-failure threshold was hit.
	// The product stays in the periodic cycle and recovers on any
	// successful scrape.
	ProductStatusError ProductStatus = "ERROR"
)

// Product is one monitored listing. CurrentPrice and LastPrice are
// denormalized from the snapshot ledger: CurrentPrice is the latest observed
// price, LastPrice the price it changed FROM, and LastPrice only mutates when
// a real change happens (never on equal observations).
type Product struct {
	ID       uuid.UUID `json:"id" db:"id"`
	UserID   uuid.UUID `json:"userId" db:"user_id"`
	URL      string    `json:"url" db:"url"`
	Name     string    `json:"name" db:"name"`
	ImageURL string    `json:"imageUrl,omitempty" db:"image_url"`

	CurrentPrice    *Cents `json:"currentPrice" db:"current_price"`
	LastPrice       *Cents `json:"lastPrice" db:"last_price"`
	OriginalPrice   *Cents `json:"originalPrice,omitempty" db:"original_price"`
	DiscountPercent *int   `json:"discountPercent,omitempty" db:"discount_percent"`

	Status ProductStatus `json:"status" db:"status"`

	// nil means "not set", which defaults to enabled.
	NotifyOnPriceDrop     *bool `json:"notifyOnPriceDrop" db:"notify_on_price_drop"`
	NotifyOnPriceIncrease *bool `json:"notifyOnPriceIncrease" db:"notify_on_price_increase"`

	FailCount     int        `json:"-" db:"fail_count"`
	LastCheckedAt *time.Time `json:"lastCheckedAt" db:"last_checked_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

func (p *Product) NotifyDrop() bool {
	return p.NotifyOnPriceDrop == nil || *p.NotifyOnPriceDrop
}

func (p *Product) NotifyIncrease() bool {
	return p.NotifyOnPriceIncrease == nil || *p.NotifyOnPriceIncrease
}
