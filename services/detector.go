package services

import (
	"context"
	"fmt"
	"time"

	"pricemonitor/models"
)

type ChangeKind int

const (
	NoChange ChangeKind = iota
	FirstObservation
	Dropped
	Increased
)

func (k ChangeKind) String() string {
	switch k {
	case FirstObservation:
		return "first"
	case Dropped:
		return "dropped"
	case Increased:
		return "increased"
	default:
		return "unchanged"
	}
}

// ChangeResult classifies one observation against the product's current price.
type ChangeResult struct {
	Kind     ChangeKind
	OldPrice models.Cents
	NewPrice models.Cents
}

// Percent is the display-only magnitude of the change, one decimal.
func (r ChangeResult) Percent() float64 {
	if r.Kind != Dropped && r.Kind != Increased {
		return 0
	}
	return models.PercentChange(r.OldPrice, r.NewPrice)
}

// Observation is the product data one successful scrape yields.
type Observation struct {
	Price           models.Cents
	Title           string
	ImageURL        string
	OriginalPrice   *models.Cents
	DiscountPercent *int
	At              time.Time
}

type DetectorStore interface {
	// ApplyObservation persists the snapshot and the product update as one
	// atomic write: either both land or neither does.
	ApplyObservation(ctx context.Context, p *models.Product, snap *models.PriceSnapshot) error
}

// Detector turns scraped observations into snapshot appends and denormalized
// product updates. It must only run under the product's scrape lease; that is
// what keeps snapshot order and lastPrice consistent.
type Detector struct {
	store DetectorStore
}

func NewDetector(store DetectorStore) *Detector {
	return &Detector{store: store}
}

// Evaluate appends a snapshot for the observation (always, the ledger is the
// audit trail) and classifies the change:
//
//   - first observation: PENDING -> ACTIVE, currentPrice set, lastPrice stays nil
//   - equal price: NoChange, lastPrice untouched
//   - lower/higher: Dropped/Increased, lastPrice takes the previous current
//
// A product sitting in ERROR recovers to ACTIVE on any successful
// observation, and the consecutive-failure counter resets.
//
// The new state is staged on a copy and committed through one atomic store
// write, so a failed persist leaves both the ledger and the in-memory product
// exactly as they were.
func (d *Detector) Evaluate(ctx context.Context, p *models.Product, obs Observation) (ChangeResult, error) {
	if obs.Price <= 0 {
		return ChangeResult{}, ErrInvalidPrice
	}

	snap := &models.PriceSnapshot{
		ProductID:  p.ID,
		Price:      obs.Price,
		RecordedAt: obs.At,
	}

	updated := *p
	result := ChangeResult{NewPrice: obs.Price}
	prev := p.CurrentPrice

	switch {
	case prev == nil:
		result.Kind = FirstObservation
		price := obs.Price
		updated.CurrentPrice = &price
		updated.LastPrice = nil
	case *prev == obs.Price:
		result.Kind = NoChange
		result.OldPrice = *prev
	default:
		if obs.Price < *prev {
			result.Kind = Dropped
		} else {
			result.Kind = Increased
		}
		result.OldPrice = *prev
		old := *prev
		price := obs.Price
		updated.LastPrice = &old
		updated.CurrentPrice = &price
	}

	if obs.Title != "" {
		updated.Name = obs.Title
	}
	if obs.ImageURL != "" {
		updated.ImageURL = obs.ImageURL
	}
	updated.OriginalPrice = obs.OriginalPrice
	updated.DiscountPercent = obs.DiscountPercent
	updated.Status = models.ProductStatusActive
	updated.FailCount = 0
	at := obs.At
	updated.LastCheckedAt = &at

	if err := d.store.ApplyObservation(ctx, &updated, snap); err != nil {
		return ChangeResult{}, fmt.Errorf("apply observation: %w", err)
	}

	*p = updated
	return result, nil
}
