package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"pricemonitor/models"
)

type CleanupStore interface {
	GetProductsByUser(ctx context.Context, userID uuid.UUID) ([]models.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	SnapshotsAscending(ctx context.Context, productID uuid.UUID) ([]models.PriceSnapshot, error)
	DeleteSnapshots(ctx context.Context, ids []int64) (int, error)
}

// Cleanup collapses runs of identical consecutive prices in the snapshot
// ledger. It only runs when a user explicitly asks for it; the scheduler
// never trims history on its own.
type Cleanup struct {
	store CleanupStore
}

func NewCleanup(store CleanupStore) *Cleanup {
	return &Cleanup{store: store}
}

// duplicateRunIDs walks snapshots oldest first and collects the IDs of
// interior snapshots in every run of 3 or more equal prices. The first and
// last snapshot of each run survive, so the chart still shows when the price
// settled and when it last held. Runs of 1 or 2 are untouched, which makes
// the pass idempotent.
func duplicateRunIDs(snaps []models.PriceSnapshot) []int64 {
	var ids []int64

	runStart := 0
	flush := func(end int) {
		if end-runStart >= 3 {
			for i := runStart + 1; i < end-1; i++ {
				ids = append(ids, snaps[i].ID)
			}
		}
	}

	for i := 1; i < len(snaps); i++ {
		if snaps[i].Price != snaps[runStart].Price {
			flush(i)
			runStart = i
		}
	}
	flush(len(snaps))
	return ids
}

// DedupeProduct removes redundant interior snapshots for one product and
// returns how many rows were deleted.
func (c *Cleanup) DedupeProduct(ctx context.Context, userID, productID uuid.UUID) (int, error) {
	p, err := c.store.GetProductByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, ErrNotFound
	}
	if p.UserID != userID {
		return 0, ErrForbidden
	}

	snaps, err := c.store.SnapshotsAscending(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("load snapshots: %w", err)
	}

	ids := duplicateRunIDs(snaps)
	if len(ids) == 0 {
		return 0, nil
	}
	return c.store.DeleteSnapshots(ctx, ids)
}

// DedupeUser runs the cleanup over every product the user owns. A failure on
// one product does not stop the rest.
func (c *Cleanup) DedupeUser(ctx context.Context, userID uuid.UUID) (int, error) {
	products, err := c.store.GetProductsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	total := 0
	for i := range products {
		snaps, err := c.store.SnapshotsAscending(ctx, products[i].ID)
		if err != nil {
			log.Printf("Warning: cleanup skipped product %s: %v", products[i].ID, err)
			continue
		}
		ids := duplicateRunIDs(snaps)
		if len(ids) == 0 {
			continue
		}
		n, err := c.store.DeleteSnapshots(ctx, ids)
		if err != nil {
			log.Printf("Warning: cleanup delete failed for product %s: %v", products[i].ID, err)
			continue
		}
		total += n
	}
	return total, nil
}
