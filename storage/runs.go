package storage

import (
	"context"

	"pricemonitor/models"
)

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.ScrapeRun) error {
	query := `
		INSERT INTO scrape_runs (triggered_by, started_at, status)
		VALUES ($1, $2, $3)
		RETURNING id`

	return s.pool.QueryRow(ctx, query, run.Trigger, run.StartedAt, run.Status).Scan(&run.ID)
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *models.ScrapeRun) error {
	query := `
		UPDATE scrape_runs SET
			finished_at = $2, status = $3, products_checked = $4,
			price_changes = $5, skipped = $6, errors_count = $7
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.FinishedAt, run.Status, run.ProductsChecked,
		run.PriceChanges, run.Skipped, run.ErrorsCount)
	return err
}
