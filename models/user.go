package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Email         string    `json:"email" db:"email"`
	PasswordHash  string    `json:"-" db:"password_hash"`
	EmailVerified bool      `json:"emailVerified" db:"email_verified"`

	// VerificationToken is set at registration and cleared once the
	// verification link is visited.
	VerificationToken *string `json:"-" db:"verification_token"`

	TelegramChatID    *int64     `json:"-" db:"telegram_chat_id"`
	TelegramLinkCode  *string    `json:"-" db:"telegram_link_code"`
	TelegramCodeUntil *time.Time `json:"-" db:"telegram_code_until"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// TelegramLinked reports whether notifications can be fanned out to Telegram.
func (u *User) TelegramLinked() bool {
	return u.TelegramChatID != nil
}
