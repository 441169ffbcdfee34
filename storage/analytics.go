package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DateCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type HourCount struct {
	Hour  int
	Count int64
}

// DOWCount uses Postgres EXTRACT(DOW) numbering: 0 = Sunday.
type DOWCount struct {
	DayOfWeek int
	Count     int64
}

type ProductChangeCount struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	Count       int64     `json:"changeCount"`
}

// changesCTE pairs every snapshot with the previous price for its product so
// the analytics queries can count real price changes, not scrape volume. The
// LAG window runs over the full ledger and the time filter applies afterwards,
// so a change right at the window edge still compares against its true
// predecessor. The first snapshot of a product (prev_price IS NULL) is not a
// change.
const changesCTE = `
	WITH observed AS (
		SELECT ps.product_id, ps.price, ps.recorded_at,
			LAG(ps.price) OVER (PARTITION BY ps.product_id ORDER BY ps.recorded_at, ps.id) AS prev_price
		FROM price_snapshots ps
		JOIN products p ON p.id = ps.product_id
		WHERE p.user_id = $1
	),
	changes AS (
		SELECT product_id, price, recorded_at
		FROM observed
		WHERE prev_price IS NOT NULL AND price <> prev_price AND recorded_at >= $2
	)`

func (s *PostgresStore) CountChangesForUser(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, changesCTE+`
		SELECT COUNT(*) FROM changes`, userID, since).Scan(&n)
	return n, err
}

func (s *PostgresStore) ChangeCountsByDate(ctx context.Context, userID uuid.UUID, since time.Time) ([]DateCount, error) {
	rows, err := s.pool.Query(ctx, changesCTE+`
		SELECT TO_CHAR(recorded_at, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM changes
		GROUP BY day
		ORDER BY day`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DateCount
	for rows.Next() {
		var dc DateCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ChangeCountsByHour(ctx context.Context, userID uuid.UUID, since time.Time) ([]HourCount, error) {
	rows, err := s.pool.Query(ctx, changesCTE+`
		SELECT EXTRACT(HOUR FROM recorded_at)::int AS hour, COUNT(*)
		FROM changes
		GROUP BY hour
		ORDER BY hour`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HourCount
	for rows.Next() {
		var hc HourCount
		if err := rows.Scan(&hc.Hour, &hc.Count); err != nil {
			return nil, err
		}
		out = append(out, hc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ChangeCountsByDayOfWeek(ctx context.Context, userID uuid.UUID, since time.Time) ([]DOWCount, error) {
	rows, err := s.pool.Query(ctx, changesCTE+`
		SELECT EXTRACT(DOW FROM recorded_at)::int AS dow, COUNT(*)
		FROM changes
		GROUP BY dow
		ORDER BY dow`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DOWCount
	for rows.Next() {
		var dc DOWCount
		if err := rows.Scan(&dc.DayOfWeek, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) TopProductsByChanges(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]ProductChangeCount, error) {
	rows, err := s.pool.Query(ctx, changesCTE+`
		SELECT p.id, p.name, COUNT(*) AS change_count
		FROM changes c
		JOIN products p ON p.id = c.product_id
		GROUP BY p.id, p.name
		ORDER BY change_count DESC
		LIMIT $3`, userID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductChangeCount
	for rows.Next() {
		var pc ProductChangeCount
		if err := rows.Scan(&pc.ProductID, &pc.ProductName, &pc.Count); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}
