// internal/app/notifier.go
package app

import (
	domainTelegram "homework_status_bot/internal/domain/telegram" // Import from domain

	"github.com/sirupsen/logrus"
)

// Notifier delivers outcomes to a single chat, suppressing a message that
// repeats the last one delivered. It is not safe for concurrent use.
type Notifier struct {
	telegramClient domainTelegram.Client
	chatID         int64
	logger         *logrus.Entry
	lastSent       string
}

func NewNotifier(tc domainTelegram.Client, chatID int64, logger *logrus.Entry) *Notifier {
	return &Notifier{
		telegramClient: tc,
		chatID:         chatID,
		logger:         logger,
	}
}

// Notify sends the outcome unless it duplicates the last delivered text.
// Delivery failures are logged and absorbed; the dedup slot only moves on
// confirmed delivery. It reports whether a message was delivered.
func (n *Notifier) Notify(o Outcome) bool {
	logCtx := n.logger.WithField("kind", o.Kind.String())

	if o.Text == n.lastSent {
		logCtx.Debug("Message repeats the last delivered one, not sending")
		return false
	}

	if err := n.telegramClient.SendMessage(n.chatID, o.Text, nil); err != nil {
		deliveryErr := &domainTelegram.DeliveryError{ChatID: n.chatID, Err: err}
		logCtx.WithError(deliveryErr).Error("Error sending message")
		return false
	}

	n.lastSent = o.Text
	logCtx.WithField("text", o.Text).Debug("Message sent")
	return true
}

// LastSent returns the most recently delivered text.
func (n *Notifier) LastSent() string {
	return n.lastSent
}
