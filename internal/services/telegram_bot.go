package services

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"dealdesk/internal/models"
)

const telegramHTTPTimeout = 10 * time.Second

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramService posts closed deals to a team chat.
type TelegramService struct {
	bot    botSender
	chatID int64
}

// NewTelegramService checks the token against the Bot API.
func NewTelegramService(botToken string, chatID int64) (*TelegramService, error) {
	client := &http.Client{Timeout: telegramHTTPTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramService{bot: bot, chatID: chatID}, nil
}

func (t *TelegramService) DealClosed(ctx context.Context, owner *models.Identity, deal *models.Deal) error {
	if t == nil || t.chatID == 0 {
		return nil
	}
	who := "someone"
	if owner != nil && owner.DisplayName != "" {
		who = owner.DisplayName
	}
	text := fmt.Sprintf("<b>%s</b> closed (%s) by %s",
		html.EscapeString(deal.Name), closedOutcome(deal.Stage), html.EscapeString(who))

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	err := sendWithContext(ctx, func() error {
		_, err := t.bot.Send(msg)
		return err
	})
	if err != nil {
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	return nil
}
