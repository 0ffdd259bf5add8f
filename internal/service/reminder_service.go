package service

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
	"daily-schedule/internal/recurrence"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	schedules *ScheduleManager
}

func NewReminderService(schedules *ScheduleManager) *ReminderService {
	return &ReminderService{schedules: schedules}
}

// DailySummary renders the user's list of date as Telegram HTML.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, date dates.Date) (string, error) {
	var (
		day       *model.DailySchedule
		templates []model.RecurringTemplate
	)
	err := s.schedules.Do(user.Owner(), func(svc *ScheduleService) error {
		var err error
		if day, err = svc.Load(ctx, date); err != nil {
			return err
		}
		templates, err = svc.Templates(ctx)
		return err
	})
	if err != nil {
		return "", err
	}

	var pending, done []model.DailyTaskInstance
	for _, item := range day.Items {
		if item.Completed {
			done = append(done, item)
		} else {
			pending = append(pending, item)
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Расписание на день</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s, %s\n\n", date.Midnight(time.UTC).Format("02.01.2006"), WeekdayName(date.Weekday())))

	builder.WriteString("🔥 <b>Нужно сделать</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— всё сделано\n")
	} else {
		for _, item := range pending {
			builder.WriteString(formatItem(item))
		}
	}

	if len(done) > 0 {
		builder.WriteString("\n✅ <b>Выполнено</b>\n")
		for _, item := range done {
			builder.WriteString(formatItem(item))
		}
	}

	if upcoming := upcomingTemplates(date, templates); len(upcoming) > 0 {
		builder.WriteString("\n♻️ <b>Скоро</b>\n")
		builder.WriteString(strings.Join(upcoming, ""))
	}

	return strings.TrimSpace(builder.String()), nil
}

func formatItem(item model.DailyTaskInstance) string {
	var sb strings.Builder
	icon := "🟢"
	if item.Completed {
		icon = "✔️"
	}
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(item.Text)))
	if item.IsRecurring() {
		sb.WriteString(fmt.Sprintf(" <i>(♻️ %s)</i>", html.EscapeString(DescribeRepeat(item.Repeat, item.RepeatConfig))))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// upcomingTemplates lists templates that are not due on date together with their next date.
func upcomingTemplates(date dates.Date, templates []model.RecurringTemplate) []string {
	var lines []string
	for _, t := range templates {
		if recurrence.IsDue(date, t) && !date.Before(t.CreatedDate) {
			continue
		}
		next, ok := recurrence.NextDue(date.AddDays(1), t, 62)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("♻️ %s\n   📆 %s\n",
			html.EscapeString(t.Text), next.Midnight(time.UTC).Format("02.01.2006")))
	}
	return lines
}

var weekdayNames = [7]string{"воскресенье", "понедельник", "вторник", "среда", "четверг", "пятница", "суббота"}

var weekdayShortNames = [7]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

func WeekdayName(wd time.Weekday) string {
	return weekdayNames[wd]
}

func WeekdayShortName(wd time.Weekday) string {
	return weekdayShortNames[wd]
}

// DescribeRepeat renders a pattern with its parameters for people.
func DescribeRepeat(repeat model.Repeat, cfg *model.RepeatConfig) string {
	switch repeat {
	case model.RepeatDaily:
		return "каждый день"
	case model.RepeatEveryOtherDay:
		return "через день"
	case model.RepeatWeekday:
		return "по будням"
	case model.RepeatWeekly:
		return "раз в неделю"
	case model.RepeatMonthly:
		return "раз в месяц"
	case model.RepeatWeeklyDays:
		return "по дням: " + describeWeekdays(cfg)
	case model.RepeatIntervalDays:
		return "каждые " + strconv.Itoa(cfg.EffectiveInterval()) + " дн."
	case model.RepeatIntervalWeeks:
		label := "каждые " + strconv.Itoa(cfg.EffectiveInterval()) + " нед."
		if cfg.HasWeekdays() {
			label += ", " + describeWeekdays(cfg)
		}
		return label
	default:
		return "без повтора"
	}
}

func describeWeekdays(cfg *model.RepeatConfig) string {
	if !cfg.HasWeekdays() {
		return "—"
	}
	names := make([]string, 0, 7)
	// Monday first, Sunday last.
	for i := 1; i <= 7; i++ {
		wd := time.Weekday(i % 7)
		if cfg.HasWeekday(wd) {
			names = append(names, weekdayShortNames[wd])
		}
	}
	return strings.Join(names, ", ")
}
