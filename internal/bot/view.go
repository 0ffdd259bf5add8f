package bot

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
	"daily-schedule/internal/recurrence"
	"daily-schedule/internal/service"
)

const (
	iconPending   = "🟢"
	iconDone      = "✔️"
	iconRecurring = "♻️"
)

func formatDate(d dates.Date) string {
	return fmt.Sprintf("%s, %s", d.Midnight(time.UTC).Format("02.01.2006"), service.WeekdayName(d.Weekday()))
}

// renderDay builds the day list with one row of buttons per item.
func renderDay(day *model.DailySchedule) (string, tgbotapi.InlineKeyboardMarkup) {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Список на %s</b>\n", formatDate(day.Date)))

	if len(day.Items) == 0 {
		builder.WriteString("\nПусто. Добавь задачу: <code>/add купить молоко</code>")
		return builder.String(), tgbotapi.InlineKeyboardMarkup{}
	}
	builder.WriteString(fmt.Sprintf("Задач: %d из %d\n\n", len(day.Items), model.MaxTodoItems))

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, item := range day.Items {
		n := i + 1
		icon := iconPending
		if item.Completed {
			icon = iconDone
		}
		line := fmt.Sprintf("%s <b>%d.</b> %s", icon, n, escape(normalizeTitle(item.Text)))
		if item.Completed {
			line = fmt.Sprintf("%s <b>%d.</b> <s>%s</s>", icon, n, escape(normalizeTitle(item.Text)))
		}
		if item.IsRecurring() {
			line += fmt.Sprintf(" %s <i>%s</i>", iconRecurring, escape(service.DescribeRepeat(item.Repeat, item.RepeatConfig)))
		}
		builder.WriteString(line)
		builder.WriteByte('\n')

		toggleLabel := fmt.Sprintf("✅ %d · %s", n, shortTitle(item.Text, 18))
		if item.Completed {
			toggleLabel = fmt.Sprintf("↩️ %d · %s", n, shortTitle(item.Text, 18))
		}
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(toggleLabel, itemCallback(cbToggle, day.Date, item.ID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 %d", n), itemCallback(cbSkip, day.Date, item.ID)),
		}
		if item.IsRecurring() {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⛔ %d", n), itemCallback(cbStop, day.Date, item.ID)))
		}
		rows = append(rows, row)
	}

	return strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// renderTemplates lists templates with their next occurrence from today on.
func renderTemplates(templates []model.RecurringTemplate, today dates.Date) (string, tgbotapi.InlineKeyboardMarkup) {
	if len(templates) == 0 {
		return "♻️ Повторяющихся задач нет. Создай первую через /repeat.", tgbotapi.InlineKeyboardMarkup{}
	}

	var builder strings.Builder
	builder.WriteString("♻️ <b>Повторяющиеся задачи</b>\n\n")

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, t := range templates {
		n := i + 1
		builder.WriteString(fmt.Sprintf("<b>%d.</b> %s\n   🔄 %s\n", n, escape(normalizeTitle(t.Text)), escape(service.DescribeRepeat(t.Repeat, t.RepeatConfig))))
		if next, ok := recurrence.NextDue(today, t, 400); ok {
			builder.WriteString(fmt.Sprintf("   📆 Ближайшая дата: %s\n", formatDate(next)))
		}
		if len(t.SkippedDates) > 0 {
			builder.WriteString(fmt.Sprintf("   ⏭️ Пропусков: %d\n", len(t.SkippedDates)))
		}
		builder.WriteByte('\n')
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⛔ Остановить %d · %s", n, shortTitle(t.Text, 16)), templateCallback(t.ID)),
		))
	}
	return strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

const (
	diaryListLimit   = 10
	diaryPreviewRune = 300
)

// renderDiary lists the newest entries with a delete button each.
func renderDiary(entries []model.DiaryEntry) (string, tgbotapi.InlineKeyboardMarkup) {
	if len(entries) == 0 {
		return "📔 Дневник пуст. Запиши мысль: <code>/diary сегодня было продуктивно</code>", tgbotapi.InlineKeyboardMarkup{}
	}
	if len(entries) > diaryListLimit {
		entries = entries[:diaryListLimit]
	}

	var builder strings.Builder
	builder.WriteString("📔 <b>Дневник</b>\n\n")

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, e := range entries {
		n := i + 1
		builder.WriteString(fmt.Sprintf("<b>%d.</b> %s\n%s\n\n", n, formatDate(e.Date), escape(preview(e.Content, diaryPreviewRune))))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 Удалить %d", n), diaryCallback(e.ID)),
		))
	}
	return strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// preview keeps line breaks, unlike shortTitle.
func preview(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
