package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AcquireLease claims the per-product scrape lock until now+ttl. A held,
// unexpired lease makes this return false; an expired lease is reclaimed.
// The lock lives in a table rather than in process memory so it holds across
// restarts and multiple workers.
func (s *PostgresStore) AcquireLease(ctx context.Context, productID uuid.UUID, owner string, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO scrape_leases (product_id, owner, locked_until)
		VALUES ($1, $2, $3)
		ON CONFLICT (product_id) DO UPDATE SET
			owner = EXCLUDED.owner,
			locked_until = EXCLUDED.locked_until
		WHERE scrape_leases.locked_until <= NOW()
		RETURNING product_id`

	var id uuid.UUID
	err := s.pool.QueryRow(ctx, query, productID, owner, time.Now().Add(ttl)).Scan(&id)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseLease frees the lock only for its current owner, so a stuck job
// whose lease was reclaimed cannot release someone else's claim on late
// arrival.
func (s *PostgresStore) ReleaseLease(ctx context.Context, productID uuid.UUID, owner string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM scrape_leases WHERE product_id = $1 AND owner = $2`, productID, owner)
	return err
}

// HoldsLease reports whether owner still owns an unexpired lease. Jobs check
// this before committing results so a reclaimed lease discards late work.
func (s *PostgresStore) HoldsLease(ctx context.Context, productID uuid.UUID, owner string) (bool, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM scrape_leases WHERE product_id = $1 AND owner = $2 AND locked_until > NOW()`,
		productID, owner).Scan(&n)
	return n > 0, err
}
