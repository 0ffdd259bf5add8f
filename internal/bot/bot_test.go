package bot

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
	"daily-schedule/internal/repository"
	"daily-schedule/internal/service"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	close(f.updates)
}

// texts returns the text of every message and edit sent so far.
func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) last() tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAPI) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
}

var monday = time.Date(2026, 1, 19, 9, 0, 0, 0, time.UTC)

type fixture struct {
	bot       *Bot
	api       *fakeAPI
	users     *repository.UserRepository
	schedules *service.ScheduleManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "bot.db"), nil)
	require.NoError(t, err)

	now := func() time.Time { return monday }
	users := repository.NewUserRepository(db)
	schedules := service.NewScheduleManager(repository.NewMemoryStore(), nil, now)
	api := newFakeAPI()

	b := newWithAPI(api, users, schedules, service.NewReminderService(schedules), nil, time.UTC)
	b.now = now
	return &fixture{bot: b, api: api, users: users, schedules: schedules}
}

func (f *fixture) say(t *testing.T, userID int64, text string) {
	t.Helper()
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, FirstName: "Ann"},
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		command, _, _ := strings.Cut(text, " ")
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(command)}}
	}
	require.NoError(t, f.bot.handleMessage(context.Background(), msg))
}

func (f *fixture) press(t *testing.T, userID int64, data string) {
	t.Helper()
	cb := &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: userID, FirstName: "Ann"},
		Message: &tgbotapi.Message{
			MessageID: 5,
			Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		},
		Data: data,
	}
	require.NoError(t, f.bot.handleCallback(context.Background(), cb))
}

func (f *fixture) day(t *testing.T, owner string) *model.DailySchedule {
	t.Helper()
	var day *model.DailySchedule
	require.NoError(t, f.schedules.Do(owner, func(svc *service.ScheduleService) error {
		var err error
		day, err = svc.Load(context.Background(), dates.FromTime(monday))
		return err
	}))
	return day
}

func (f *fixture) templates(t *testing.T, owner string) []model.RecurringTemplate {
	t.Helper()
	var templates []model.RecurringTemplate
	require.NoError(t, f.schedules.Do(owner, func(svc *service.ScheduleService) error {
		var err error
		templates, err = svc.Templates(context.Background())
		return err
	}))
	return templates
}

func TestAddCommand(t *testing.T) {
	f := newFixture(t)

	f.say(t, 42, "/add купить молоко")

	day := f.day(t, "42")
	require.Len(t, day.Items, 1)
	assert.Equal(t, "купить молоко", day.Items[0].Text)

	texts := f.api.texts()
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[len(texts)-1], "Купить молоко")

	user, err := f.users.FindByTelegramID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Ann", user.FirstName)
}

func TestAddWithoutTextStartsDialog(t *testing.T) {
	f := newFixture(t)

	f.say(t, 42, "/add")
	assert.True(t, f.bot.hasConversation(42))

	f.say(t, 42, "позвонить маме")
	assert.False(t, f.bot.hasConversation(42))

	day := f.day(t, "42")
	require.Len(t, day.Items, 1)
	assert.Equal(t, "позвонить маме", day.Items[0].Text)
}

func TestRepeatDialogCreatesTemplate(t *testing.T) {
	f := newFixture(t)

	f.say(t, 42, "/repeat")
	f.say(t, 42, "зарядка")
	f.say(t, 42, "По дням недели")
	f.say(t, 42, "пн ср пт")

	templates := f.templates(t, "42")
	require.Len(t, templates, 1)
	assert.Equal(t, model.RepeatWeeklyDays, templates[0].Repeat)
	assert.Equal(t, []int{1, 3, 5}, templates[0].RepeatConfig.Weekdays)

	day := f.day(t, "42")
	require.Len(t, day.Items, 1)
	assert.Equal(t, templates[0].ID, day.Items[0].RecurringID)
	assert.Empty(t, f.templates(t, "7"), "owners are isolated")
}

func TestCancelDialog(t *testing.T) {
	f := newFixture(t)

	f.say(t, 42, "/repeat")
	f.say(t, 42, btnCancelDialog)

	assert.False(t, f.bot.hasConversation(42))
	assert.Empty(t, f.templates(t, "42"))
}

func TestToggleCallbackEditsMessage(t *testing.T) {
	f := newFixture(t)
	f.say(t, 42, "/add купить молоко")
	item := f.day(t, "42").Items[0]
	f.api.reset()

	f.press(t, 42, itemCallback(cbToggle, dates.FromTime(monday), item.ID))

	assert.True(t, f.day(t, "42").Items[0].Completed)
	edit, ok := f.api.last().(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 5, edit.MessageID)
	assert.Contains(t, edit.Text, "<s>Купить молоко</s>")
	assert.Len(t, f.api.requests, 1, "callback is acknowledged")
}

func TestSkipCallbackRemovesOnlyToday(t *testing.T) {
	f := newFixture(t)
	f.say(t, 42, "/repeat")
	f.say(t, 42, "зарядка")
	f.say(t, 42, "Каждый день")
	item := f.day(t, "42").Items[0]

	f.press(t, 42, itemCallback(cbSkip, dates.FromTime(monday), item.ID))

	assert.Empty(t, f.day(t, "42").Items)
	templates := f.templates(t, "42")
	require.Len(t, templates, 1)
	assert.Equal(t, []dates.Date{dates.FromTime(monday)}, templates[0].SkippedDates)

	edit, ok := f.api.last().(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Nil(t, edit.ReplyMarkup)
}

func TestStopCallbackNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	f.say(t, 42, "/repeat")
	f.say(t, 42, "зарядка")
	f.say(t, 42, "Каждый день")
	item := f.day(t, "42").Items[0]

	f.press(t, 42, itemCallback(cbStop, dates.FromTime(monday), item.ID))
	_, pending := f.bot.getConfirmation(42)
	require.True(t, pending)
	assert.Len(t, f.templates(t, "42"), 1)

	f.say(t, 42, "что?")
	_, pending = f.bot.getConfirmation(42)
	assert.True(t, pending)

	f.say(t, 42, btnConfirm)
	_, pending = f.bot.getConfirmation(42)
	assert.False(t, pending)
	assert.Empty(t, f.templates(t, "42"))
	assert.Empty(t, f.day(t, "42").Items)
}

func TestStopTemplateCallback(t *testing.T) {
	f := newFixture(t)
	f.say(t, 42, "/repeat")
	f.say(t, 42, "зарядка")
	f.say(t, 42, "Каждый день")
	template := f.templates(t, "42")[0]

	f.press(t, 42, templateCallback(template.ID))
	f.say(t, 42, btnCancel)
	assert.Len(t, f.templates(t, "42"), 1)

	f.press(t, 42, templateCallback(template.ID))
	f.say(t, 42, btnConfirm)
	assert.Empty(t, f.templates(t, "42"))
}

func TestClearCommands(t *testing.T) {
	f := newFixture(t)
	f.say(t, 42, "/add один")
	f.say(t, 42, "/add два")
	item := f.day(t, "42").Items[0]
	f.press(t, 42, itemCallback(cbToggle, dates.FromTime(monday), item.ID))

	f.say(t, 42, "/clear_done")
	day := f.day(t, "42")
	require.Len(t, day.Items, 1)
	assert.Equal(t, "два", day.Items[0].Text)

	f.say(t, 42, "/clear")
	f.say(t, 42, "отмена")
	assert.Len(t, f.day(t, "42").Items, 1)

	f.say(t, 42, "/clear")
	f.say(t, 42, "да")
	assert.Empty(t, f.day(t, "42").Items)
}

func TestListFullMessage(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < model.MaxTodoItems; i++ {
		f.say(t, 42, "/add задача")
	}
	f.api.reset()

	f.say(t, 42, "/add лишняя")

	assert.Len(t, f.day(t, "42").Items, model.MaxTodoItems)
	texts := f.api.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "/clear_done")
}

func TestExportSendsCalendar(t *testing.T) {
	f := newFixture(t)
	f.say(t, 42, "/repeat")
	f.say(t, 42, "зарядка")
	f.say(t, 42, "Каждый день")
	f.api.reset()

	f.say(t, 42, "/export")

	doc, ok := f.api.last().(tgbotapi.DocumentConfig)
	require.True(t, ok)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "daily-schedule.ics", file.Name)
	assert.Contains(t, string(file.Bytes), "BEGIN:VTODO")
	assert.Contains(t, string(file.Bytes), "RRULE:FREQ=DAILY")
}

func TestDailyReports(t *testing.T) {
	f := newFixture(t)
	f.say(t, 42, "/add купить молоко")
	f.say(t, 7, "/start")
	f.say(t, 7, "/report off")
	f.api.reset()

	require.NoError(t, f.bot.SendDailyReports(context.Background()))

	f.api.mu.Lock()
	defer f.api.mu.Unlock()
	require.Len(t, f.api.sent, 1)
	msg, ok := f.api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Contains(t, msg.Text, "купить молоко")
}

func TestParseDay(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		arg     string
		want    string
		wantErr bool
	}{
		{arg: "", want: "2026-01-19"},
		{arg: "Завтра", want: "2026-01-20"},
		{arg: "yesterday", want: "2026-01-18"},
		{arg: "2026-02-01", want: "2026-02-01"},
		{arg: "01.02.2026", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.arg, func(t *testing.T) {
			got, err := f.bot.parseDay(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.bot.Start(ctx) }()

	f.api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42},
		Chat: &tgbotapi.Chat{ID: 42, Type: "group"},
		Text: "/add ignored in groups",
	}}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bot did not stop")
	}
	assert.Empty(t, f.api.texts())
}

func (f *fixture) diary(t *testing.T, owner string) []model.DiaryEntry {
	t.Helper()
	var entries []model.DiaryEntry
	require.NoError(t, f.schedules.Diary(owner, func(svc *service.DiaryService) error {
		var err error
		entries, err = svc.List(context.Background(), nil)
		return err
	}))
	return entries
}

func TestDiaryCommand(t *testing.T) {
	f := newFixture(t)

	f.say(t, 42, "/diary")
	assert.Contains(t, f.api.texts()[0], "Дневник пуст")

	f.say(t, 42, "/diary закончил отчёт")
	entries := f.diary(t, "42")
	require.Len(t, entries, 1)
	assert.Equal(t, "закончил отчёт", entries[0].Content)
	assert.Equal(t, dates.FromTime(monday), entries[0].Date)
	assert.Empty(t, f.diary(t, "7"))

	// Diary notes stay out of the task list.
	assert.Empty(t, f.day(t, "42").Items)

	f.api.reset()
	f.say(t, 42, "/diary")
	msg, ok := f.api.last().(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Contains(t, msg.Text, "закончил отчёт")
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	data := *markup.InlineKeyboard[0][0].CallbackData
	assert.Equal(t, diaryCallback(entries[0].ID), data)

	f.press(t, 42, data)
	require.Len(t, f.diary(t, "42"), 1, "deletion waits for confirmation")

	f.say(t, 42, btnConfirm)
	assert.Empty(t, f.diary(t, "42"))
	texts := f.api.texts()
	assert.Contains(t, texts[len(texts)-1], "Запись удалена")

	f.press(t, 42, data)
	texts = f.api.texts()
	assert.Contains(t, texts[len(texts)-1], "не найдена")
}
