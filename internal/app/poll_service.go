// internal/app/poll_service.go
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"homework_status_bot/internal/domain/homework"

	"github.com/sirupsen/logrus"
)

// UpdatesFetcher returns the raw homework_statuses document for a window.
type UpdatesFetcher interface {
	FetchUpdates(ctx context.Context, fromDate int64) (json.RawMessage, error)
}

// PollService runs single poll cycles and owns the time cursor.
type PollService struct {
	fetcher  UpdatesFetcher
	notifier *Notifier
	logger   *logrus.Entry
	cursor   int64
}

// NewPollService starts the cursor at the given time.
func NewPollService(f UpdatesFetcher, n *Notifier, logger *logrus.Entry, start time.Time) *PollService {
	return &PollService{
		fetcher:  f,
		notifier: n,
		logger:   logger,
		cursor:   start.Unix(),
	}
}

// Cursor returns the lower bound of the next fetch window.
func (s *PollService) Cursor() int64 {
	return s.cursor
}

// RunCycle fetches, validates and translates the newest status, then
// notifies. A failure in any of those steps is reported to the user as a
// failure notice and also returned so the caller can track it. The cursor
// only advances when the whole cycle succeeds.
func (s *PollService) RunCycle(ctx context.Context) error {
	outcome, next, err := s.check(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down; nothing to report.
			return ctx.Err()
		}
		s.logger.WithError(err).WithField("cursor", s.cursor).Error("Poll cycle failed")
		s.notifier.Notify(FailureNotice(err))
		return err
	}

	if outcome != nil {
		s.notifier.Notify(*outcome)
	} else {
		s.logger.Debug("No new homework statuses")
	}

	if next != s.cursor {
		s.logger.WithFields(logrus.Fields{"from": s.cursor, "to": next}).Debug("Cursor advanced")
		s.cursor = next
	}
	return nil
}

func (s *PollService) check(ctx context.Context) (*Outcome, int64, error) {
	raw, err := s.fetcher.FetchUpdates(ctx, s.cursor)
	if err != nil {
		return nil, 0, err
	}

	resp, err := homework.Validate(raw)
	if err != nil {
		return nil, 0, err
	}

	next := s.cursor
	if resp.CurrentDate != nil {
		next = *resp.CurrentDate
	}

	latest, ok := resp.Latest()
	if !ok {
		return nil, next, nil
	}

	text, err := homework.Translate(latest)
	if err != nil {
		return nil, 0, fmt.Errorf("parse homework status: %w", err)
	}
	outcome := StatusMessage(text)
	return &outcome, next, nil
}
