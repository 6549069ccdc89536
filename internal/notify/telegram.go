package notify

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrTelegramNotConfigured is returned by NewTelegram without a token or chat.
var ErrTelegramNotConfigured = errors.New("telegram token or chat id is empty")

// TelegramConfig holds configuration for the Telegram notifier.
type TelegramConfig struct {
	// Token is the bot token.
	Token string

	// ChatID receives the messages.
	ChatID int64

	// Endpoint overrides the Bot API endpoint format (optional).
	Endpoint string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer
}

// Telegram sends status messages to a chat through the Bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram authorizes the bot. It performs one call to the Bot API.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, ErrTelegramNotConfigured
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	var (
		bot *tgbotapi.BotAPI
		err error
	)
	if cfg.HTTPClient != nil {
		bot, err = tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, cfg.HTTPClient)
	} else {
		bot, err = tgbotapi.NewBotAPIWithAPIEndpoint(cfg.Token, endpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("authorize telegram bot: %w", err)
	}

	return &Telegram{bot: bot, chatID: cfg.ChatID}, nil
}

// Name returns the notifier name.
func (t *Telegram) Name() string {
	return "telegram"
}

// Notify sends the message text to the chat. The Bot API client has no
// context support, so ctx is only checked before sending.
func (t *Telegram) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, msg.Text)); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}
