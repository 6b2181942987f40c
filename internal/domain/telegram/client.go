package telegram

import (
	"fmt"

	"gopkg.in/telebot.v3"
)

// Client defines an interface for sending messages via a Telegram bot.
// This helps in decoupling the application logic from the specific bot library.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}

// DeliveryError is a message the backend failed to deliver.
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("failed to deliver message to chat %d: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
