package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"pricemonitor/models"
)

const insertSnapshotQuery = `
	INSERT INTO price_snapshots (product_id, price, recorded_at)
	VALUES ($1, $2, $3)
	RETURNING id`

func (s *PostgresStore) AppendSnapshot(ctx context.Context, snap *models.PriceSnapshot) error {
	return s.pool.QueryRow(ctx, insertSnapshotQuery, snap.ProductID, snap.Price, snap.RecordedAt).Scan(&snap.ID)
}

// ApplyObservation writes the snapshot and the product's denormalized fields
// in one transaction. A failed persist leaves neither half behind, so the
// ledger never carries a snapshot whose product row did not advance with it.
func (s *PostgresStore) ApplyObservation(ctx context.Context, p *models.Product, snap *models.PriceSnapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, insertSnapshotQuery, snap.ProductID, snap.Price, snap.RecordedAt).Scan(&snap.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, updateProductQuery, updateProductArgs(p)...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) LatestSnapshot(ctx context.Context, productID uuid.UUID) (*models.PriceSnapshot, error) {
	query := `
		SELECT id, product_id, price, recorded_at
		FROM price_snapshots
		WHERE product_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`

	var snap models.PriceSnapshot
	err := s.pool.QueryRow(ctx, query, productID).Scan(&snap.ID, &snap.ProductID, &snap.Price, &snap.RecordedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// SnapshotHistory returns snapshots newest first. A nil since means
// unrestricted; limit <= 0 means no cap.
func (s *PostgresStore) SnapshotHistory(ctx context.Context, productID uuid.UUID, since *time.Time, limit int) ([]models.PriceSnapshot, error) {
	query := `
		SELECT id, product_id, price, recorded_at
		FROM price_snapshots
		WHERE product_id = $1 AND ($2::timestamptz IS NULL OR recorded_at >= $2)
		ORDER BY recorded_at DESC, id DESC`
	args := []any{productID, since}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	return s.querySnapshots(ctx, query, args...)
}

// SnapshotsAscending returns the full ledger for a product oldest first,
// which is the order the dedup pass walks runs in.
func (s *PostgresStore) SnapshotsAscending(ctx context.Context, productID uuid.UUID) ([]models.PriceSnapshot, error) {
	query := `
		SELECT id, product_id, price, recorded_at
		FROM price_snapshots
		WHERE product_id = $1
		ORDER BY recorded_at ASC, id ASC`
	return s.querySnapshots(ctx, query, productID)
}

func (s *PostgresStore) DeleteSnapshots(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM price_snapshots WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) querySnapshots(ctx context.Context, query string, args ...any) ([]models.PriceSnapshot, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []models.PriceSnapshot
	for rows.Next() {
		var snap models.PriceSnapshot
		if err := rows.Scan(&snap.ID, &snap.ProductID, &snap.Price, &snap.RecordedAt); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
