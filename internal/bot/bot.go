package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/export"
	"daily-schedule/internal/model"
	"daily-schedule/internal/repository"
	"daily-schedule/internal/service"
)

// telegramAPI is the part of tgbotapi.BotAPI the bot talks to.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type confirmationAction int

const (
	actionStopInstance confirmationAction = iota
	actionStopTemplate
	actionClearAll
	actionDeleteDiary
)

type confirmationRequest struct {
	action confirmationAction
	date   dates.Date
	id     string
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           telegramAPI
	users         *repository.UserRepository
	schedules     *service.ScheduleManager
	reminders     *service.ReminderService
	logger        *zap.Logger
	location      *time.Location
	now           func() time.Time
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	mu            sync.Mutex
}

func New(token string, users *repository.UserRepository, schedules *service.ScheduleManager, reminders *service.ReminderService, logger *zap.Logger, loc *time.Location) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("bot authorized", zap.String("account", api.Self.UserName))

	return newWithAPI(api, users, schedules, reminders, logger, loc), nil
}

func newWithAPI(api telegramAPI, users *repository.UserRepository, schedules *service.ScheduleManager, reminders *service.ReminderService, logger *zap.Logger, loc *time.Location) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Bot{
		api:           api,
		users:         users,
		schedules:     schedules,
		reminders:     reminders,
		logger:        logger.Named("bot"),
		location:      loc,
		now:           time.Now,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.handleUpdate(ctx, update)
	}

	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			b.logger.Error("handle callback", zap.Error(err))
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.logger.Error("handle message", zap.Error(err))
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) && b.hasConversation(msg.From.ID) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён. Можно начать заново.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.logger.Info("command",
			zap.Int64("user", msg.From.ID),
			zap.String("command", msg.Command()),
			zap.String("args", msg.CommandArguments()))
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if state := b.getConversation(msg.From.ID); state != nil {
		b.logger.Debug("conversation step", zap.Int64("user", msg.From.ID), zap.Int("stage", int(state.stage)))
		return b.handleConversation(ctx, msg, state)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /add, чтобы добавить задачу, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "today":
		return b.handleToday(ctx, msg)
	case "add":
		return b.handleAdd(ctx, msg)
	case "repeat":
		return b.startRepeatConversation(ctx, msg)
	case "templates":
		return b.handleTemplates(ctx, msg)
	case "clear_done":
		return b.handleClearDone(ctx, msg)
	case "clear":
		return b.askClearConfirmation(ctx, msg)
	case "export":
		return b.handleExport(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "context":
		return b.handleContext(ctx, msg)
	case "diary":
		return b.handleDiary(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Ввод отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я веду список дел на каждый день.</b>\n\n"+
			"Разовые задачи живут один день, повторяющиеся появляются сами по расписанию.\n\n"+
			"Начни с /today или загляни в /help.",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• /today — список на сегодня (или /today 2026-01-19, /today завтра)\n" +
		"• /add &lt;текст&gt; — разовая задача на сегодня\n" +
		"• /repeat — повторяющаяся задача пошагово\n" +
		"• /templates — все повторяющиеся задачи\n" +
		"• /clear_done — убрать выполненные\n" +
		"• /clear — очистить список на сегодня\n" +
		"• /export — календарь в формате .ics\n" +
		"• /report — сводка сейчас, /report off|on — утренние сводки\n" +
		"• /context — список в виде текста\n" +
		"• /diary &lt;текст&gt; — запись в дневник, /diary — последние записи\n" +
		"• /cancel — отменить текущий ввод\n\n" +
		fmt.Sprintf("В списке не больше %d задач, текст до %d символов.", model.MaxTodoItems, model.MaxItemLength)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	date, err := b.parseDay(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Не могу распознать дату. Используй формат <code>2026-01-19</code>, «сегодня» или «завтра».")
	}
	return b.sendDay(ctx, msg.Chat.ID, user, date)
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		b.setConversation(msg.From.ID, &conversationState{stage: stageTaskText})
		return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Что нужно сделать сегодня?", cancelKeyboard())
	}
	return b.addOneOff(ctx, msg.Chat.ID, user, text)
}

func (b *Bot) startRepeatConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	b.logger.Info("start repeat conversation", zap.Int64("user", msg.From.ID))
	b.setConversation(msg.From.ID, &conversationState{stage: stageRepeatText})
	return b.sendWithReplyMarkup(msg.Chat.ID, "♻️ Создаём повторяющуюся задачу.\n<b>Шаг 1:</b> что нужно делать?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message, state *conversationState) error {
	step, err := state.advance(msg.Text)
	if errors.Is(err, errBadInput) {
		if state.stage == stageNone {
			b.clearConversation(msg.From.ID)
		}
		return b.sendText(msg.Chat.ID, hint(err))
	}
	if err != nil {
		return err
	}
	if !step.done {
		return b.sendWithReplyMarkup(msg.Chat.ID, step.text, step.markup)
	}

	b.clearConversation(msg.From.ID)
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if state.stage == stageTaskText {
		return b.addOneOff(ctx, msg.Chat.ID, user, state.text)
	}
	return b.addRecurring(ctx, msg.Chat.ID, user, state)
}

func (b *Bot) addOneOff(ctx context.Context, chatID int64, user *model.User, text string) error {
	today := b.today()
	var item *model.DailyTaskInstance
	err := b.schedules.Do(user.Owner(), func(svc *service.ScheduleService) error {
		var err error
		item, err = svc.AddOneOff(ctx, today, text)
		return err
	})
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	if err := b.sendText(chatID, fmt.Sprintf("✅ Добавлено: «%s»", escape(item.Text))); err != nil {
		return err
	}
	return b.sendDay(ctx, chatID, user, today)
}

func (b *Bot) addRecurring(ctx context.Context, chatID int64, user *model.User, state *conversationState) error {
	today := b.today()
	var template *model.RecurringTemplate
	err := b.schedules.Do(user.Owner(), func(svc *service.ScheduleService) error {
		var err error
		template, err = svc.AddRecurring(ctx, today, state.text, state.repeat, state.config)
		return err
	})
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	b.logger.Info("template created",
		zap.Int64("user", user.TelegramID),
		zap.String("template", template.ID),
		zap.String("repeat", string(template.Repeat)))

	var summary strings.Builder
	summary.WriteString("✅ <b>Повторяющаяся задача сохранена</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>Задача:</b> %s\n", escape(normalizeTitle(template.Text))))
	summary.WriteString(fmt.Sprintf("• <b>Повтор:</b> %s\n", escape(service.DescribeRepeat(template.Repeat, template.RepeatConfig))))
	if err := b.sendText(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendDay(ctx, chatID, user, today)
}

func (b *Bot) handleTemplates(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	var templates []model.RecurringTemplate
	err = b.schedules.Do(user.Owner(), func(svc *service.ScheduleService) error {
		var err error
		templates, err = svc.Templates(ctx)
		return err
	})
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	text, markup := renderTemplates(templates, b.today())
	return b.sendInline(msg.Chat.ID, text, markup)
}

func (b *Bot) handleClearDone(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	today := b.today()
	var removed int
	err = b.schedules.Do(user.Owner(), func(svc *service.ScheduleService) error {
		var err error
		removed, err = svc.ClearCompleted(ctx, today)
		return err
	})
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	if removed == 0 {
		return b.sendText(msg.Chat.ID, "Выполненных задач нет.")
	}
	if err := b.sendText(msg.Chat.ID, fmt.Sprintf("🧹 Убрано выполненных: %d", removed)); err != nil {
		return err
	}
	return b.sendDay(ctx, msg.Chat.ID, user, today)
}

func (b *Bot) askClearConfirmation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	today := b.today()
	b.setConfirmation(msg.From.ID, confirmationRequest{action: actionClearAll, date: today})
	text := fmt.Sprintf("Очистить весь список на %s? Повторяющиеся задачи вернутся при следующем открытии.", formatDate(today))
	return b.sendWithReplyMarkup(msg.Chat.ID, text, confirmKeyboard())
}

func (b *Bot) handleExport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	today := b.today()
	var (
		templates []model.RecurringTemplate
		day       *model.DailySchedule
	)
	err = b.schedules.Do(user.Owner(), func(svc *service.ScheduleService) error {
		var err error
		if templates, err = svc.Templates(ctx); err != nil {
			return err
		}
		day, err = svc.Load(ctx, today)
		return err
	})
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}

	cal, err := export.Calendar(templates, day, b.now())
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, cal); err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{Name: "daily-schedule.ics", Bytes: buf.Bytes()})
	doc.Caption = "📆 Повторяющиеся задачи и список на сегодня. Файл можно импортировать в календарь."
	_, err = b.api.Send(doc)
	return err
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(msg.CommandArguments())) {
	case "":
		text, err := b.reminders.DailySummary(ctx, *user, b.today())
		if err != nil {
			return b.sendText(msg.Chat.ID, userMessage(err))
		}
		return b.sendText(msg.Chat.ID, text)
	case "off", "выкл":
		if err := b.users.SetReportsOff(ctx, user.TelegramID, true); err != nil {
			return err
		}
		return b.sendText(msg.Chat.ID, "🔕 Утренние сводки выключены. Включить: /report on")
	case "on", "вкл":
		if err := b.users.SetReportsOff(ctx, user.TelegramID, false); err != nil {
			return err
		}
		return b.sendText(msg.Chat.ID, "🔔 Утренние сводки включены.")
	default:
		return b.sendText(msg.Chat.ID, "Используй /report, /report on или /report off.")
	}
}

func (b *Bot) handleContext(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	var text string
	err = b.schedules.Do(user.Owner(), func(svc *service.ScheduleService) error {
		var err error
		text, err = svc.Context(ctx, b.today())
		return err
	})
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	if text == "" {
		return b.sendText(msg.Chat.ID, "Список пуст, контекста нет.")
	}
	return b.sendText(msg.Chat.ID, "<pre>"+escape(text)+"</pre>")
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.applyConfirmation(ctx, msg.Chat.ID, msg.From, req)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendMenuPlaceholder(msg.Chat.ID)
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Подтверди или отмени действие.", confirmKeyboard())
	}
}

func (b *Bot) applyConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, req confirmationRequest) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	if req.action == actionDeleteDiary {
		err := b.schedules.Diary(user.Owner(), func(svc *service.DiaryService) error {
			return svc.Delete(ctx, req.id)
		})
		if err != nil {
			return b.sendTextWithRemove(chatID, userMessage(err))
		}
		return b.sendTextWithRemove(chatID, "🗑 Запись удалена.")
	}

	var done string
	err = b.schedules.Do(user.Owner(), func(svc *service.ScheduleService) error {
		switch req.action {
		case actionStopInstance:
			done = "⛔ Повтор остановлен, задача убрана из списка."
			return svc.Delete(ctx, req.date, req.id, service.DeleteOptions{StopRecurring: true})
		case actionStopTemplate:
			done = "⛔ Повтор остановлен. Уже сохранённые дни не изменились."
			return svc.StopTemplate(ctx, req.id)
		default:
			done = "🧹 Список очищен."
			return svc.ClearAll(ctx, req.date)
		}
	})
	if err != nil {
		return b.sendTextWithRemove(chatID, userMessage(err))
	}
	if err := b.sendTextWithRemove(chatID, done); err != nil {
		return err
	}
	if req.action == actionStopTemplate {
		return nil
	}
	return b.sendDay(ctx, chatID, user, req.date)
}

// SendDailyReports sends today's summary to every subscribed user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.users.ListSubscribed(ctx)
	if err != nil {
		return err
	}
	today := b.today()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.reminders.DailySummary(ctx, user, today)
		if err != nil {
			b.logger.Error("build summary", zap.Int64("user", user.TelegramID), zap.Error(err))
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			b.logger.Error("send summary", zap.Int64("user", user.TelegramID), zap.Error(err))
		}
	}
	b.logger.Info("daily reports sent", zap.Int("users", len(users)))
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Warn("callback ack", zap.Error(err))
	}

	data, err := parseCallback(cb.Data)
	if err != nil {
		b.logger.Warn("bad callback", zap.String("data", cb.Data), zap.Error(err))
		return nil
	}
	b.logger.Info("callback",
		zap.Int64("user", cb.From.ID),
		zap.String("action", data.action),
		zap.String("id", data.id))

	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		return err
	}
	chatID := cb.Message.Chat.ID

	switch data.action {
	case cbToggle:
		err = b.schedules.Do(user.Owner(), func(svc *service.ScheduleService) error {
			_, err := svc.Toggle(ctx, data.date, data.id)
			return err
		})
	case cbSkip:
		err = b.schedules.Do(user.Owner(), func(svc *service.ScheduleService) error {
			return svc.Delete(ctx, data.date, data.id, service.DeleteOptions{})
		})
	case cbStop:
		return b.askStopInstance(ctx, chatID, cb.From.ID, user, data)
	case cbStopTemplate:
		return b.askStopTemplate(ctx, chatID, cb.From.ID, user, data.id)
	case cbDeleteDiary:
		return b.askDeleteDiary(ctx, chatID, cb.From.ID, user, data.id)
	}
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	return b.refreshDay(ctx, cb.Message, user, data.date)
}

func (b *Bot) askStopInstance(ctx context.Context, chatID, userID int64, user *model.User, data callbackData) error {
	var item model.DailyTaskInstance
	err := b.schedules.Do(user.Owner(), func(svc *service.ScheduleService) error {
		day, err := svc.Load(ctx, data.date)
		if err != nil {
			return err
		}
		idx, ok := day.Find(data.id)
		if !ok {
			return service.ErrTaskNotFound
		}
		item = day.Items[idx]
		return nil
	})
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	if !item.IsRecurring() {
		return b.sendText(chatID, "Это разовая задача, её можно просто удалить.")
	}

	b.setConfirmation(userID, confirmationRequest{action: actionStopInstance, date: data.date, id: data.id})
	text := fmt.Sprintf("Остановить повтор «%s» (%s)? Задача больше не появится.",
		escape(normalizeTitle(item.Text)), escape(service.DescribeRepeat(item.Repeat, item.RepeatConfig)))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) askStopTemplate(ctx context.Context, chatID, userID int64, user *model.User, id string) error {
	var template *model.RecurringTemplate
	err := b.schedules.Do(user.Owner(), func(svc *service.ScheduleService) error {
		var err error
		template, err = svc.Template(ctx, id)
		return err
	})
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	b.setConfirmation(userID, confirmationRequest{action: actionStopTemplate, id: id})
	text := fmt.Sprintf("Остановить повтор «%s» (%s)?",
		escape(normalizeTitle(template.Text)), escape(service.DescribeRepeat(template.Repeat, template.RepeatConfig)))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

// handleDiary adds an entry for today or, without text, lists the latest entries.
func (b *Bot) handleDiary(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	text := strings.TrimSpace(msg.CommandArguments())
	if text != "" {
		err := b.schedules.Diary(user.Owner(), func(svc *service.DiaryService) error {
			_, err := svc.Create(ctx, b.today(), text, nil)
			return err
		})
		if err != nil {
			return b.sendText(msg.Chat.ID, userMessage(err))
		}
		return b.sendText(msg.Chat.ID, "📝 Записал в дневник.")
	}

	var entries []model.DiaryEntry
	err = b.schedules.Diary(user.Owner(), func(svc *service.DiaryService) error {
		var err error
		entries, err = svc.List(ctx, nil)
		return err
	})
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	body, markup := renderDiary(entries)
	return b.sendInline(msg.Chat.ID, body, markup)
}

func (b *Bot) askDeleteDiary(ctx context.Context, chatID, userID int64, user *model.User, id string) error {
	var entry *model.DiaryEntry
	err := b.schedules.Diary(user.Owner(), func(svc *service.DiaryService) error {
		var err error
		entry, err = svc.Get(ctx, id)
		return err
	})
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}

	b.setConfirmation(userID, confirmationRequest{action: actionDeleteDiary, id: id})
	text := fmt.Sprintf("Удалить запись от %s «%s»?", formatDate(entry.Date), escape(shortTitle(entry.Content, 40)))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelToday):
		return true, b.handleToday(ctx, msg)
	case strings.ToLower(menuLabelAdd):
		return true, b.handleAdd(ctx, msg)
	case strings.ToLower(menuLabelRepeat):
		return true, b.startRepeatConversation(ctx, msg)
	case strings.ToLower(menuLabelTemplates):
		return true, b.handleTemplates(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) sendDay(ctx context.Context, chatID int64, user *model.User, date dates.Date) error {
	day, err := b.loadDay(ctx, user, date)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	text, markup := renderDay(day)
	return b.sendInline(chatID, text, markup)
}

// refreshDay redraws the list in the message the button belongs to.
func (b *Bot) refreshDay(ctx context.Context, msg *tgbotapi.Message, user *model.User, date dates.Date) error {
	day, err := b.loadDay(ctx, user, date)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	text, markup := renderDay(day)

	if len(markup.InlineKeyboard) == 0 {
		edit := tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, text)
		edit.ParseMode = tgbotapi.ModeHTML
		_, err = b.api.Send(edit)
		return err
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(msg.Chat.ID, msg.MessageID, text, markup)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(edit)
	return err
}

func (b *Bot) loadDay(ctx context.Context, user *model.User, date dates.Date) (*model.DailySchedule, error) {
	var day *model.DailySchedule
	err := b.schedules.Do(user.Owner(), func(svc *service.ScheduleService) error {
		var err error
		day, err = svc.Load(ctx, date)
		return err
	})
	return day, err
}

func (b *Bot) today() dates.Date {
	return dates.FromTime(b.now().In(b.location))
}

// parseDay accepts an empty string, "сегодня"/"today", "завтра"/"tomorrow",
// "вчера"/"yesterday" or YYYY-MM-DD.
func (b *Bot) parseDay(arg string) (dates.Date, error) {
	today := b.today()
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "", "сегодня", "today":
		return today, nil
	case "завтра", "tomorrow":
		return today.AddDays(1), nil
	case "вчера", "yesterday":
		return today.AddDays(-1), nil
	default:
		return dates.Parse(strings.TrimSpace(arg))
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

// userMessage turns a service error into a reply.
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrListFull):
		return fmt.Sprintf("В списке уже %d задач. Убери выполненные через /clear_done.", model.MaxTodoItems)
	case errors.Is(err, service.ErrEmptyText):
		return "Текст задачи пустой."
	case errors.Is(err, service.ErrTaskNotFound):
		return "Задача не найдена или уже удалена."
	case errors.Is(err, service.ErrTemplateNotFound):
		return "Повторяющаяся задача не найдена."
	case errors.Is(err, service.ErrDiaryNotFound):
		return "Запись дневника не найдена или уже удалена."
	case errors.Is(err, service.ErrEmptyDiary):
		return "Запись пустая."
	case service.IsCode(err, service.CodeInvalid):
		return fmt.Sprintf("Не получилось: %s", escape(err.Error()))
	default:
		return "Что-то пошло не так, попробуй ещё раз позже."
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

// sendInline attaches inline buttons, or the main menu when there are none.
func (b *Bot) sendInline(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	if len(markup.InlineKeyboard) == 0 {
		return b.sendText(chatID, text)
	}
	return b.sendWithReplyMarkup(chatID, text, markup)
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "🔹 Главное меню")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
