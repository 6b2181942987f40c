// internal/app/outcome.go
package app

import (
	"fmt"
	"unicode/utf8"
)

// MaxMessageRunes is the longest text Telegram accepts in one message.
const MaxMessageRunes = 4096

// OutcomeKind tells a status update apart from a failure report.
type OutcomeKind int

const (
	KindStatusMessage OutcomeKind = iota + 1
	KindFailureNotice
)

func (k OutcomeKind) String() string {
	switch k {
	case KindStatusMessage:
		return "status_message"
	case KindFailureNotice:
		return "failure_notice"
	default:
		return "unknown"
	}
}

// Outcome is the user-facing result of one poll cycle. Both kinds share the
// same delivery path and the same dedup slot.
type Outcome struct {
	Kind OutcomeKind
	Text string
}

// StatusMessage wraps a translated homework status.
func StatusMessage(text string) Outcome {
	return Outcome{Kind: KindStatusMessage, Text: text}
}

// FailureNotice reports an error that interrupted a cycle.
func FailureNotice(err error) Outcome {
	text := fmt.Sprintf("Program failure: %v", err)
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		text = string([]rune(text)[:MaxMessageRunes-1]) + "…"
	}
	return Outcome{Kind: KindFailureNotice, Text: text}
}
