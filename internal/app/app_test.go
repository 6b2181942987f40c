package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"homework_status_bot/internal/domain/homework"
	"homework_status_bot/internal/infra/practicum"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type fakeTelegram struct {
	sent     []string
	err      error
	attempts int
}

func (f *fakeTelegram) SendMessage(_ int64, text string, _ *telebot.SendOptions) error {
	f.attempts++
	if f.err != nil {
		return f.err
	}
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		return errors.New("telegram: message is too long (400)")
	}
	f.sent = append(f.sent, text)
	return nil
}

type fetchResult struct {
	raw string
	err error
}

type fakeFetcher struct {
	results []fetchResult
	cursors []int64
}

func (f *fakeFetcher) FetchUpdates(_ context.Context, fromDate int64) (json.RawMessage, error) {
	f.cursors = append(f.cursors, fromDate)
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return json.RawMessage(r.raw), nil
}

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

var start = time.Unix(500, 0)

func newService(fetcher UpdatesFetcher, tg *fakeTelegram) *PollService {
	return NewPollService(fetcher, NewNotifier(tg, 42, testLogger()), testLogger(), start)
}

func TestNotifier_Dedup(t *testing.T) {
	tg := &fakeTelegram{}
	n := NewNotifier(tg, 42, testLogger())

	assert.True(t, n.Notify(StatusMessage("a")))
	assert.False(t, n.Notify(StatusMessage("a")))
	assert.True(t, n.Notify(StatusMessage("b")))
	assert.True(t, n.Notify(StatusMessage("a")))

	assert.Equal(t, []string{"a", "b", "a"}, tg.sent)
	assert.Equal(t, "a", n.LastSent())
}

func TestNotifier_DeliveryFailureIsAbsorbed(t *testing.T) {
	tg := &fakeTelegram{err: errors.New("telegram: chat not found (400)")}
	n := NewNotifier(tg, 42, testLogger())

	assert.False(t, n.Notify(StatusMessage("a")))
	assert.Empty(t, n.LastSent())

	// The slot did not move, so the same text is tried again once delivery recovers.
	tg.err = nil
	assert.True(t, n.Notify(StatusMessage("a")))
	assert.Equal(t, []string{"a"}, tg.sent)
}

func TestNotifier_FailureAndStatusShareSlot(t *testing.T) {
	tg := &fakeTelegram{}
	n := NewNotifier(tg, 42, testLogger())
	boom := errors.New("boom")

	assert.True(t, n.Notify(FailureNotice(boom)))
	assert.False(t, n.Notify(FailureNotice(boom)))
	assert.Equal(t, []string{"Program failure: boom"}, tg.sent)

	// A status message in between clears the slot for the same failure.
	assert.True(t, n.Notify(StatusMessage("a")))
	assert.True(t, n.Notify(FailureNotice(boom)))
	assert.True(t, n.Notify(StatusMessage("a")))
	assert.Equal(t, []string{"Program failure: boom", "a", "Program failure: boom", "a"}, tg.sent)
}

func TestFailureNotice_CappedToMessageLimit(t *testing.T) {
	long := errors.New(strings.Repeat("ошибка ", 1000))

	o := FailureNotice(long)

	assert.Equal(t, KindFailureNotice, o.Kind)
	assert.Equal(t, MaxMessageRunes, utf8.RuneCountInString(o.Text))
	assert.True(t, utf8.ValidString(o.Text))
	assert.True(t, strings.HasPrefix(o.Text, "Program failure: ошибка"))
}

func TestRunCycle_StatusChange(t *testing.T) {
	tg := &fakeTelegram{}
	fetcher := &fakeFetcher{results: []fetchResult{
		{raw: `{"homeworks":[{"homework_name":"hw1","status":"approved"}],"current_date":1000}`},
	}}
	s := newService(fetcher, tg)

	require.NoError(t, s.RunCycle(context.Background()))

	require.Len(t, tg.sent, 1)
	assert.Equal(t, `Status changed for submission "hw1". `+homework.Verdicts[homework.StatusApproved], tg.sent[0])
	assert.Equal(t, int64(1000), s.Cursor())
	assert.Equal(t, []int64{500}, fetcher.cursors)
}

func TestRunCycle_OnlyNewestRecordIsTranslated(t *testing.T) {
	tg := &fakeTelegram{}
	fetcher := &fakeFetcher{results: []fetchResult{
		{raw: `{"homeworks":[{"homework_name":"old","status":"bogus"},{"homework_name":"new","status":"rejected"}],"current_date":1000}`},
	}}
	s := newService(fetcher, tg)

	require.NoError(t, s.RunCycle(context.Background()))

	require.Len(t, tg.sent, 1)
	assert.Contains(t, tg.sent[0], `"new"`)
}

func TestRunCycle_EmptyHomeworks(t *testing.T) {
	tg := &fakeTelegram{}
	fetcher := &fakeFetcher{results: []fetchResult{
		{raw: `{"homeworks":[],"current_date":2000}`},
		{raw: `{"homeworks":[]}`},
	}}
	s := newService(fetcher, tg)

	require.NoError(t, s.RunCycle(context.Background()))
	assert.Empty(t, tg.sent)
	assert.Equal(t, int64(2000), s.Cursor())

	require.NoError(t, s.RunCycle(context.Background()))
	assert.Equal(t, int64(2000), s.Cursor())
	assert.Equal(t, []int64{500, 2000}, fetcher.cursors)
}

func TestRunCycle_TransportFailureDeduplicated(t *testing.T) {
	tg := &fakeTelegram{}
	transportErr := &practicum.TransportError{Err: errors.New("connection reset by peer")}
	fetcher := &fakeFetcher{results: []fetchResult{{err: transportErr}}}
	s := newService(fetcher, tg)

	err := s.RunCycle(context.Background())
	assert.ErrorIs(t, err, transportErr)
	err = s.RunCycle(context.Background())
	assert.ErrorIs(t, err, transportErr)

	assert.Equal(t, []string{"Program failure: request to the Practicum API failed: connection reset by peer"}, tg.sent)
	assert.Equal(t, int64(500), s.Cursor())
}

func TestRunCycle_DistinctFailuresBothDelivered(t *testing.T) {
	tg := &fakeTelegram{}
	fetcher := &fakeFetcher{results: []fetchResult{
		{err: &practicum.UpstreamError{StatusCode: 500, Body: "oops"}},
		{err: &practicum.UpstreamError{StatusCode: 502, Body: "bad gateway"}},
	}}
	s := newService(fetcher, tg)

	assert.Error(t, s.RunCycle(context.Background()))
	assert.Error(t, s.RunCycle(context.Background()))

	assert.Equal(t, []string{
		"Program failure: endpoint returned an error: 500, oops",
		"Program failure: endpoint returned an error: 502, bad gateway",
	}, tg.sent)
}

func TestRunCycle_OversizedUpstreamErrorIsDelivered(t *testing.T) {
	tg := &fakeTelegram{}
	upstream := &practicum.UpstreamError{StatusCode: 502, Body: strings.Repeat("<p>Bad Gateway</p>", 600)}
	fetcher := &fakeFetcher{results: []fetchResult{{err: upstream}}}
	s := newService(fetcher, tg)

	for i := 0; i < 3; i++ {
		assert.Error(t, s.RunCycle(context.Background()))
	}

	require.Len(t, tg.sent, 1)
	assert.Equal(t, 1, tg.attempts)
	assert.True(t, strings.HasPrefix(tg.sent[0], "Program failure: endpoint returned an error: 502"))
}

func TestRunCycle_UnknownStatus(t *testing.T) {
	tg := &fakeTelegram{}
	fetcher := &fakeFetcher{results: []fetchResult{
		{raw: `{"homeworks":[{"homework_name":"hw1","status":"unknown_code"}],"current_date":1000}`},
	}}
	s := newService(fetcher, tg)

	err := s.RunCycle(context.Background())

	var unknown *homework.UnknownStatusError
	require.True(t, errors.As(err, &unknown))
	require.Len(t, tg.sent, 1)
	assert.Contains(t, tg.sent[0], "Program failure:")
	assert.Contains(t, tg.sent[0], "unknown_code")
	assert.Equal(t, int64(500), s.Cursor())
}

func TestRunCycle_ShapeError(t *testing.T) {
	tg := &fakeTelegram{}
	fetcher := &fakeFetcher{results: []fetchResult{{raw: `{"current_date":1000}`}}}
	s := newService(fetcher, tg)

	err := s.RunCycle(context.Background())

	var shapeErr *homework.ShapeError
	require.True(t, errors.As(err, &shapeErr))
	assert.Len(t, tg.sent, 1)
	assert.Equal(t, int64(500), s.Cursor())
}

func TestRunCycle_DeliveryFailureStillAdvancesCursor(t *testing.T) {
	tg := &fakeTelegram{err: errors.New("network down")}
	fetcher := &fakeFetcher{results: []fetchResult{
		{raw: `{"homeworks":[{"homework_name":"hw1","status":"reviewing"}],"current_date":1000}`},
	}}
	s := newService(fetcher, tg)

	assert.NoError(t, s.RunCycle(context.Background()))
	assert.Equal(t, int64(1000), s.Cursor())
}

func TestRunCycle_CancelledContextIsNotReported(t *testing.T) {
	tg := &fakeTelegram{}
	fetcher := &fakeFetcher{results: []fetchResult{{err: &practicum.TransportError{Err: context.Canceled}}}}
	s := newService(fetcher, tg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.RunCycle(ctx), context.Canceled)
	assert.Empty(t, tg.sent)
}
