package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"pricemonitor/models"
)

const productColumns = `id, user_id, url, name, image_url, current_price, last_price,
	original_price, discount_percent, status, notify_on_price_drop,
	notify_on_price_increase, fail_count, last_checked_at, created_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.UserID, &p.URL, &p.Name, &p.ImageURL, &p.CurrentPrice, &p.LastPrice,
		&p.OriginalPrice, &p.DiscountPercent, &p.Status, &p.NotifyOnPriceDrop,
		&p.NotifyOnPriceIncrease, &p.FailCount, &p.LastCheckedAt, &p.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (
			id, user_id, url, name, image_url, current_price, last_price,
			original_price, discount_percent, status, notify_on_price_drop,
			notify_on_price_increase, fail_count, last_checked_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.UserID, p.URL, p.Name, p.ImageURL, p.CurrentPrice, p.LastPrice,
		p.OriginalPrice, p.DiscountPercent, p.Status, p.NotifyOnPriceDrop,
		p.NotifyOnPriceIncrease, p.FailCount, p.LastCheckedAt, p.CreatedAt,
	)
	return err
}

const updateProductQuery = `
	UPDATE products SET
		name = $2, image_url = $3, current_price = $4, last_price = $5,
		original_price = $6, discount_percent = $7, status = $8,
		notify_on_price_drop = $9, notify_on_price_increase = $10,
		fail_count = $11, last_checked_at = $12
	WHERE id = $1`

func updateProductArgs(p *models.Product) []any {
	return []any{
		p.ID, p.Name, p.ImageURL, p.CurrentPrice, p.LastPrice,
		p.OriginalPrice, p.DiscountPercent, p.Status,
		p.NotifyOnPriceDrop, p.NotifyOnPriceIncrease,
		p.FailCount, p.LastCheckedAt,
	}
}

// UpdateProduct persists every mutable field of p.
func (s *PostgresStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	_, err := s.pool.Exec(ctx, updateProductQuery, updateProductArgs(p)...)
	return err
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return scanProduct(s.pool.QueryRow(ctx, query, id))
}

func (s *PostgresStore) GetProductByUserAndURL(ctx context.Context, userID uuid.UUID, url string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE user_id = $1 AND url = $2`
	return scanProduct(s.pool.QueryRow(ctx, query, userID, url))
}

func (s *PostgresStore) GetProductsByUser(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE user_id = $1 ORDER BY created_at DESC`
	return s.queryProducts(ctx, query, userID)
}

// GetCheckableProducts returns every product the periodic cycle should visit.
// PENDING products are included so a missed submit-time job still resolves.
func (s *PostgresStore) GetCheckableProducts(ctx context.Context) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
		WHERE status IN ('PENDING', 'ACTIVE', 'ERROR')
		ORDER BY last_checked_at NULLS FIRST`
	return s.queryProducts(ctx, query)
}

func (s *PostgresStore) CountProductsByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// DeleteProduct removes a product; snapshots, notifications, and any lease row
// cascade or are cleaned up here.
func (s *PostgresStore) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM scrape_leases WHERE product_id = $1`, id); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.URL, &p.Name, &p.ImageURL, &p.CurrentPrice, &p.LastPrice,
			&p.OriginalPrice, &p.DiscountPercent, &p.Status, &p.NotifyOnPriceDrop,
			&p.NotifyOnPriceIncrease, &p.FailCount, &p.LastCheckedAt, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
