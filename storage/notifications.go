package storage

import (
	"context"

	"github.com/google/uuid"

	"pricemonitor/models"
)

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, product_id, type, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return s.pool.QueryRow(ctx, query,
		n.UserID, n.ProductID, n.Type, n.Message, n.IsRead, n.CreatedAt,
	).Scan(&n.ID)
}

func (s *PostgresStore) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, product_id, type, message, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.ProductID, &n.Type, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (s *PostgresStore) UnreadNotificationCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID,
	).Scan(&n)
	return n, err
}

func (s *PostgresStore) MarkNotificationRead(ctx context.Context, userID uuid.UUID, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DeleteNotifications removes the given notifications, or every notification
// for the user when ids is empty.
func (s *PostgresStore) DeleteNotifications(ctx context.Context, userID uuid.UUID, ids []int64) (int, error) {
	var tagQuery string
	var args []any
	if len(ids) == 0 {
		tagQuery = `DELETE FROM notifications WHERE user_id = $1`
		args = []any{userID}
	} else {
		tagQuery = `DELETE FROM notifications WHERE user_id = $1 AND id = ANY($2)`
		args = []any{userID, ids}
	}

	tag, err := s.pool.Exec(ctx, tagQuery, args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
