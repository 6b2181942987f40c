// internal/infra/telegram/client.go
package telegram

import (
	"fmt"
	"net/http"
	"time"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// NewBot creates a send-only bot. No poller is configured because the
// application never consumes updates. NewBot calls getMe, so a bad token
// fails here rather than on the first delivery.
func NewBot(token string, timeout time.Duration) (*telebot.Bot, error) {
	b, err := telebot.NewBot(telebot.Settings{
		Token:  token,
		Client: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create Telegram bot: %w", err)
	}
	return b, nil
}

// SendMessage sends a text message to the specified chat.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	_, err := tba.bot.Send(telebot.ChatID(recipientChatID), text, options)
	return err
}
