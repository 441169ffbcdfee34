package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pricemonitor/models"
)

type TelegramStore interface {
	ConsumeTelegramLinkCode(ctx context.Context, code string, chatID int64) (*models.User, error)
}

// Telegram delivers notifications to linked chats and runs the bot update
// loop that binds link codes. Users link by sending "/start <code>" to the
// bot with a code generated from the web app.
type Telegram struct {
	bot   *tgbotapi.BotAPI
	store TelegramStore
}

func NewTelegram(token string, store TelegramStore) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Printf("Telegram bot authorized as @%s", bot.Self.UserName)
	return &Telegram{bot: bot, store: store}, nil
}

func (t *Telegram) Name() string {
	return "telegram"
}

// Send is a no-op for users without a linked chat.
func (t *Telegram) Send(ctx context.Context, user *models.User, n *models.Notification, p *models.Product) error {
	if !user.TelegramLinked() {
		return nil
	}

	var b strings.Builder
	switch n.Type {
	case models.NotificationPriceDrop:
		b.WriteString("📉 ")
	case models.NotificationPriceIncrease:
		b.WriteString("📈 ")
	case models.NotificationProductAdded:
		b.WriteString("✅ ")
	default:
		b.WriteString("ℹ️ ")
	}
	b.WriteString(n.Message)
	if p != nil && p.URL != "" {
		b.WriteString("\n\n")
		b.WriteString(p.URL)
	}

	msg := tgbotapi.NewMessage(*user.TelegramChatID, b.String())
	msg.DisableWebPagePreview = n.Type != models.NotificationPriceDrop
	_, err := t.bot.Send(msg)
	return err
}

// Listen runs the long-poll update loop until the context is canceled.
func (t *Telegram) Listen(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := t.bot.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			t.handleMessage(ctx, update.Message)
		}
	}
}

func (t *Telegram) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	text := strings.TrimSpace(m.Text)

	code := ""
	switch {
	case strings.HasPrefix(text, "/start "):
		code = strings.TrimSpace(strings.TrimPrefix(text, "/start "))
	case strings.HasPrefix(text, "/vincular "):
		code = strings.TrimSpace(strings.TrimPrefix(text, "/vincular "))
	case text == "/start":
		t.reply(m.Chat.ID, "Olá! Para vincular sua conta, gere um código no site e envie: /vincular SEU_CODIGO")
		return
	default:
		return
	}

	user, err := t.store.ConsumeTelegramLinkCode(ctx, code, m.Chat.ID)
	if err != nil {
		log.Printf("Warning: telegram link code lookup: %v", err)
		t.reply(m.Chat.ID, "Não foi possível vincular agora. Tente novamente em instantes.")
		return
	}
	if user == nil {
		t.reply(m.Chat.ID, "Código inválido ou expirado. Gere um novo código no site.")
		return
	}

	log.Printf("Telegram chat %d linked to user %s", m.Chat.ID, user.ID)
	t.reply(m.Chat.ID, "Conta vinculada! Você receberá alertas de preço por aqui. 🔔")
}

func (t *Telegram) reply(chatID int64, text string) {
	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Printf("Warning: telegram reply: %v", err)
	}
}
