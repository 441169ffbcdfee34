package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"pricemonitor/config"
	"pricemonitor/models"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// Email sends transactional mail through the Brevo HTTP API. Without an API
// key it degrades to logging the link, which keeps local development working
// offline.
type Email struct {
	cfg     config.EmailConfig
	baseURL string
	client  *http.Client
}

func NewEmail(cfg config.EmailConfig, baseURL string, client *http.Client) *Email {
	return &Email{cfg: cfg, baseURL: baseURL, client: client}
}

func (e *Email) Enabled() bool {
	return e.cfg.BrevoAPIKey != ""
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoMessage struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// SendVerification mails the account-verification link. Verification gates
// the free-tier product limit, so the link must keep working across app
// restarts; the token lives on the user row, not in memory.
func (e *Email) SendVerification(ctx context.Context, user *models.User) error {
	if user.VerificationToken == nil {
		return fmt.Errorf("user %s has no verification token", user.ID)
	}

	link := fmt.Sprintf("%s/api/auth/verify-email?token=%s", e.baseURL, *user.VerificationToken)
	body := fmt.Sprintf(`<p>Bem-vindo ao Price Monitor!</p>
<p>Confirme seu e-mail para liberar o monitoramento ilimitado de produtos:</p>
<p><a href="%s">Confirmar e-mail</a></p>
<p>Se você não criou esta conta, ignore esta mensagem.</p>`, link)

	return e.send(ctx, user.Email, "Confirme seu e-mail", body)
}

func (e *Email) send(ctx context.Context, to, subject, html string) error {
	if !e.Enabled() {
		return fmt.Errorf("email disabled, no API key configured")
	}

	msg := brevoMessage{
		Sender:      brevoAddress{Email: e.cfg.FromAddress, Name: e.cfg.FromName},
		To:          []brevoAddress{{Email: to}},
		Subject:     subject,
		HTMLContent: html,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, brevoEndpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", e.cfg.BrevoAPIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("brevo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("brevo status %d: %s", resp.StatusCode, detail)
	}
	return nil
}
