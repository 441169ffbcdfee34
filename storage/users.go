package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"pricemonitor/models"
)

const userColumns = `id, email, password_hash, email_verified, verification_token,
	telegram_chat_id, telegram_link_code, telegram_code_until, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.EmailVerified, &u.VerificationToken,
		&u.TelegramChatID, &u.TelegramLinkCode, &u.TelegramCodeUntil, &u.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, email_verified, verification_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.EmailVerified, u.VerificationToken, u.CreatedAt)
	return err
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// VerifyEmailByToken flips email_verified for the matching token and clears
// it. Returns the verified user, or nil if the token is unknown.
func (s *PostgresStore) VerifyEmailByToken(ctx context.Context, token string) (*models.User, error) {
	query := `
		UPDATE users
		SET email_verified = TRUE, verification_token = NULL
		WHERE verification_token = $1
		RETURNING ` + userColumns
	return scanUser(s.pool.QueryRow(ctx, query, token))
}

func (s *PostgresStore) SetTelegramLinkCode(ctx context.Context, userID uuid.UUID, code string, until time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET telegram_link_code = $2, telegram_code_until = $3 WHERE id = $1`,
		userID, code, until)
	return err
}

// ConsumeTelegramLinkCode binds chatID to the user holding a still-valid code
// and clears the code. Returns nil if the code is unknown or expired.
func (s *PostgresStore) ConsumeTelegramLinkCode(ctx context.Context, code string, chatID int64) (*models.User, error) {
	query := `
		UPDATE users
		SET telegram_chat_id = $2, telegram_link_code = NULL, telegram_code_until = NULL
		WHERE telegram_link_code = $1 AND telegram_code_until > NOW()
		RETURNING ` + userColumns
	return scanUser(s.pool.QueryRow(ctx, query, code, chatID))
}

func (s *PostgresStore) UnlinkTelegram(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET telegram_chat_id = NULL, telegram_link_code = NULL, telegram_code_until = NULL WHERE id = $1`,
		userID)
	return err
}
