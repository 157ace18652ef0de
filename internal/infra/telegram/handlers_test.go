package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"study_streak_bot/internal/app"
	"study_streak_bot/internal/domain/activity"
	"study_streak_bot/internal/domain/calendar"
	"study_streak_bot/internal/domain/notification"
	"study_streak_bot/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

// fakeContext implements the telebot.Context methods the handlers use.
type fakeContext struct {
	telebot.Context
	sender    *telebot.User
	args      []string
	callback  *telebot.Callback
	sent      []string
	markups   []*telebot.ReplyMarkup
	responses []*telebot.CallbackResponse
}

func newFakeContext(args ...string) *fakeContext {
	return &fakeContext{sender: &telebot.User{ID: 1001, FirstName: "Ana"}, args: args}
}

func (c *fakeContext) Sender() *telebot.User { return c.sender }
func (c *fakeContext) Args() []string { return c.args }
func (c *fakeContext) Callback() *telebot.Callback { return c.callback }
func (c *fakeContext) Send(what interface{}, opts ...interface{}) error {
	c.sent = append(c.sent, fmt.Sprint(what))
	for _, o := range opts {
		if m, ok := o.(*telebot.ReplyMarkup); ok {
			c.markups = append(c.markups, m)
		}
	}
	return nil
}
func (c *fakeContext) Respond(resp ...*telebot.CallbackResponse) error {
	c.responses = append(c.responses, resp...)
	return nil
}

func (c *fakeContext) lastSent() string {
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1]
}

type fakeRecorder struct {
	out    app.Outcome
	err    error
	userID string
}

func (f *fakeRecorder) MarkToday(ctx context.Context) (app.Outcome, error) {
	f.userID, _ = SenderIdentity{}.CurrentUserID(ctx)
	return f.out, f.err
}

type fakeCalendar struct {
	cells []calendar.DayCell
	err   error
}

func (f *fakeCalendar) CurrentMonth(context.Context, string) ([]calendar.DayCell, error) {
	return f.cells, f.err
}

type fakeReminders struct {
	intervalCalls []int
	hourCalls     []int
	out           app.Outcome
	err           error
	pending       []notification.Entry
}

func (f *fakeReminders) ScheduleIntervalReminder(_ context.Context, _ string, hours int) (app.Outcome, error) {
	f.intervalCalls = append(f.intervalCalls, hours)
	return f.out, f.err
}

func (f *fakeReminders) ScheduleDailyStreakAlert(_ context.Context, _ string, hour int) (app.Outcome, error) {
	f.hourCalls = append(f.hourCalls, hour)
	return f.out, f.err
}

func (f *fakeReminders) ListPending(context.Context, string) ([]notification.Entry, error) {
	return f.pending, f.err
}

type fakePreferences struct {
	muted, unmuted, stopped int
	err                     error
}

func (f *fakePreferences) Mute(context.Context, string) (int, error) { f.muted++; return 2, f.err }
func (f *fakePreferences) Unmute(context.Context, string) error { f.unmuted++; return f.err }
func (f *fakePreferences) StopAll(context.Context, string) (int, error) {
	f.stopped++
	return 3, f.err
}

type handlerFixture struct {
	h           *CommandHandlers
	recorder    *fakeRecorder
	calendar    *fakeCalendar
	reminders   *fakeReminders
	preferences *fakePreferences
}

func newHandlerFixture() handlerFixture {
	f := handlerFixture{
		recorder:    &fakeRecorder{},
		calendar:    &fakeCalendar{},
		reminders:   &fakeReminders{},
		preferences: &fakePreferences{},
	}
	f.h = NewCommandHandlers(context.Background(), f.recorder, f.calendar, f.reminders, f.preferences, 21, time.UTC, logger.Discard())
	f.h.now = func() time.Time { return time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestHandleStudied(t *testing.T) {
	f := newHandlerFixture()
	f.recorder.out = app.Outcome{Status: app.StatusDone, DayKey: "2024-06-15"}
	c := newFakeContext()

	require.NoError(t, f.h.handleStudied(c))

	assert.Equal(t, "1001", f.recorder.userID)
	assert.Contains(t, c.lastSent(), "2024-06-15 marked as studied")

	f.recorder.out.AlreadyRecorded = true
	require.NoError(t, f.h.handleStudied(c))
	assert.Contains(t, c.lastSent(), "already marked")

	f.recorder.err = errors.New("db down")
	require.NoError(t, f.h.handleStudied(c))
	assert.Contains(t, c.lastSent(), "Could not save")
}

func TestHandleCalendar(t *testing.T) {
	f := newHandlerFixture()
	f.calendar.cells = calendar.Classify(time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC), nil)
	c := newFakeContext()

	require.NoError(t, f.h.handleCalendar(c))

	assert.Contains(t, c.lastSent(), "June 2024")
	assert.Contains(t, c.lastSent(), "Studied: 0  Missed: 15")
}

func TestHandleCalendar_HeadingFollowsCells(t *testing.T) {
	f := newHandlerFixture()
	// The calendar service already rolled over to July while the handler clock is still in June.
	f.calendar.cells = calendar.Classify(time.Date(2024, time.July, 1, 0, 5, 0, 0, time.UTC), activity.Record{"2024-07-01": true})
	c := newFakeContext()

	require.NoError(t, f.h.handleCalendar(c))

	assert.Contains(t, c.lastSent(), "July 2024")
	assert.NotContains(t, c.lastSent(), "June 2024")
	assert.Contains(t, c.lastSent(), "Studied: 1  Missed: 0")
}

func TestHandleRemind_NoArgsShowsKeyboard(t *testing.T) {
	f := newHandlerFixture()
	c := newFakeContext()

	require.NoError(t, f.h.handleRemind(c))

	require.Len(t, c.markups, 1)
	buttons := c.markups[0].InlineKeyboard[0]
	require.Len(t, buttons, len(RemindPresets))
	assert.Equal(t, "remind_3", buttons[1].Data)
	assert.Empty(t, f.reminders.intervalCalls)
}

func TestHandleRemind_Arguments(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantCalls []int
		wantReply string
	}{
		{name: "valid", args: []string{"3"}, wantCalls: []int{3}, wantReply: "every 3 hours"},
		{name: "single hour", args: []string{"1"}, wantCalls: []int{1}, wantReply: "every hour"},
		{name: "zero", args: []string{"0"}, wantReply: "from 1 to 8760"},
		{name: "text", args: []string{"soon"}, wantReply: "from 1 to 8760"},
		{name: "longest", args: []string{"8760"}, wantCalls: []int{8760}, wantReply: "every 8760 hours"},
		{name: "over a year", args: []string{"8761"}, wantReply: "from 1 to 8760"},
		{name: "overflowing", args: []string{"3000000000000000"}, wantReply: "from 1 to 8760"},
		{name: "too many", args: []string{"1", "2"}, wantReply: "Invalid command format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture()
			f.reminders.out = app.Outcome{Status: app.StatusDone, FireAt: time.Date(2024, time.June, 15, 15, 0, 0, 0, time.UTC)}
			c := newFakeContext(tt.args...)

			require.NoError(t, f.h.handleRemind(c))

			assert.Equal(t, tt.wantCalls, f.reminders.intervalCalls)
			assert.Contains(t, c.lastSent(), tt.wantReply)
		})
	}
}

func TestHandleRemind_Muted(t *testing.T) {
	f := newHandlerFixture()
	f.reminders.out = app.Outcome{Status: app.StatusSkipped, Reason: app.ReasonPermissionDenied}
	c := newFakeContext("2")

	require.NoError(t, f.h.handleRemind(c))

	assert.Equal(t, mutedReply, c.lastSent())
}

func TestHandleStreak(t *testing.T) {
	f := newHandlerFixture()
	f.reminders.out = app.Outcome{Status: app.StatusDone, FireAt: time.Date(2024, time.June, 15, 21, 0, 0, 0, time.UTC)}

	require.NoError(t, f.h.handleStreak(newFakeContext()))
	c := newFakeContext("7")
	require.NoError(t, f.h.handleStreak(c))
	bad := newFakeContext("24")
	require.NoError(t, f.h.handleStreak(bad))

	assert.Equal(t, []int{21, 7}, f.reminders.hourCalls)
	assert.Contains(t, c.lastSent(), "07:00")
	assert.Contains(t, bad.lastSent(), "0 to 23")
}

func TestHandleCallback(t *testing.T) {
	f := newHandlerFixture()
	f.reminders.out = app.Outcome{Status: app.StatusDone, FireAt: time.Date(2024, time.June, 16, 12, 0, 0, 0, time.UTC)}

	c := newFakeContext()
	c.callback = &telebot.Callback{Data: "remind_24"}
	require.NoError(t, f.h.handleCallback(c))
	assert.Equal(t, []int{24}, f.reminders.intervalCalls)
	assert.Contains(t, c.lastSent(), "every 24 hours")

	unknown := newFakeContext()
	unknown.callback = &telebot.Callback{Data: "ans_yes_1"}
	require.NoError(t, f.h.handleCallback(unknown))
	require.Len(t, unknown.responses, 1)
	assert.Equal(t, "Unknown action.", unknown.responses[0].Text)

	bad := newFakeContext()
	bad.callback = &telebot.Callback{Data: "remind_x"}
	require.NoError(t, f.h.handleCallback(bad))
	assert.Equal(t, []int{24}, f.reminders.intervalCalls)
}

func TestHandleReminders(t *testing.T) {
	f := newHandlerFixture()
	c := newFakeContext()
	require.NoError(t, f.h.handleReminders(c))
	assert.Contains(t, c.lastSent(), "no pending reminders")

	f.reminders.pending = []notification.Entry{
		{
			Content:    notification.Content{Category: notification.CategoryStudy},
			Trigger:    notification.NewIntervalTrigger(6*3600, true),
			NextFireAt: time.Date(2024, time.June, 15, 18, 0, 0, 0, time.UTC),
		},
		{
			Content:    notification.Content{Category: notification.CategoryStreak},
			Trigger:    notification.NewDateTrigger(time.Date(2024, time.June, 15, 21, 0, 0, 0, time.UTC), true),
			NextFireAt: time.Date(2024, time.June, 15, 21, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, f.h.handleReminders(c))
	assert.Contains(t, c.lastSent(), "Study reminder every 6 hours, next at 18:00 Jun 15")
	assert.Contains(t, c.lastSent(), "Daily streak alert, next at 21:00 Jun 15")
}

func TestPreferenceCommands(t *testing.T) {
	f := newHandlerFixture()
	c := newFakeContext()

	require.NoError(t, f.h.handleStop(c))
	assert.Equal(t, "Cancelled 3 reminder(s).", c.lastSent())
	require.NoError(t, f.h.handleMute(c))
	require.NoError(t, f.h.handleUnmute(c))

	assert.Equal(t, 1, f.preferences.stopped)
	assert.Equal(t, 1, f.preferences.muted)
	assert.Equal(t, 1, f.preferences.unmuted)

	f.preferences.err = errors.New("db down")
	require.NoError(t, f.h.handleMute(c))
	assert.Contains(t, c.lastSent(), "Could not mute")
}
