package bot

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"daily-schedule/internal/model"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTaskText
	stageRepeatText
	stageRepeatPattern
	stageRepeatInterval
	stageRepeatWeekdays
)

type conversationState struct {
	stage  conversationStage
	text   string
	repeat model.Repeat
	config *model.RepeatConfig
}

// reply is what the bot answers to one dialog step.
type reply struct {
	text   string
	markup interface{}
	done   bool
}

var errBadInput = errors.New("bad input")

// advance feeds one user message into the /repeat dialog.
// A returned error carries a hint and leaves the state where it was.
func (s *conversationState) advance(input string) (reply, error) {
	input = strings.TrimSpace(input)

	switch s.stage {
	case stageTaskText:
		if input == "" {
			return reply{}, fmt.Errorf("%w: Напиши текст задачи.", errBadInput)
		}
		s.text = input
		return reply{done: true}, nil

	case stageRepeatText:
		if input == "" {
			return reply{}, fmt.Errorf("%w: Напиши текст задачи.", errBadInput)
		}
		s.text = input
		s.stage = stageRepeatPattern
		return reply{text: "🔁 <b>Шаг 2:</b> как часто повторять?", markup: patternKeyboard()}, nil

	case stageRepeatPattern:
		repeat, ok := parsePattern(input)
		if !ok {
			return reply{}, fmt.Errorf("%w: Выбери вариант на клавиатуре.", errBadInput)
		}
		s.repeat = repeat
		switch repeat {
		case model.RepeatIntervalDays, model.RepeatIntervalWeeks:
			s.stage = stageRepeatInterval
			return reply{text: "🔢 <b>Шаг 3:</b> какой интервал? Пришли число, например <code>3</code>.", markup: cancelKeyboard()}, nil
		case model.RepeatWeeklyDays:
			s.stage = stageRepeatWeekdays
			return reply{text: "📆 <b>Шаг 3:</b> в какие дни? Например <code>пн ср пт</code>.", markup: cancelKeyboard()}, nil
		default:
			return reply{done: true}, nil
		}

	case stageRepeatInterval:
		interval, err := strconv.Atoi(input)
		if err != nil || interval < 1 || interval > 365 {
			return reply{}, fmt.Errorf("%w: Интервал должен быть числом от 1 до 365.", errBadInput)
		}
		s.config = &model.RepeatConfig{Interval: interval}
		if s.repeat == model.RepeatIntervalWeeks {
			s.stage = stageRepeatWeekdays
			return reply{text: "📆 <b>Шаг 4:</b> в какие дни недели? Например <code>вт чт</code>, или «Пропустить», чтобы оставить день создания.", markup: skipKeyboard()}, nil
		}
		return reply{done: true}, nil

	case stageRepeatWeekdays:
		if s.repeat == model.RepeatIntervalWeeks && isSkipInput(input) {
			return reply{done: true}, nil
		}
		days, err := parseWeekdays(input)
		if err != nil {
			return reply{}, fmt.Errorf("%w: Не понял дни. Пример: <code>пн ср пт</code>.", errBadInput)
		}
		if s.config == nil {
			s.config = &model.RepeatConfig{}
		}
		s.config.Weekdays = days
		return reply{done: true}, nil

	default:
		return reply{}, fmt.Errorf("%w: Диалог сброшен.", errBadInput)
	}
}

// hint strips the sentinel from a dialog error.
func hint(err error) string {
	return strings.TrimPrefix(err.Error(), errBadInput.Error()+": ")
}

func parsePattern(input string) (model.Repeat, bool) {
	value := strings.ToLower(strings.TrimSpace(input))
	for repeat, label := range patternLabels {
		if value == strings.ToLower(label) || value == string(repeat) {
			return repeat, true
		}
	}
	return "", false
}

var weekdayAliases = map[string]int{
	"вс": 0, "воскресенье": 0, "sun": 0, "su": 0,
	"пн": 1, "понедельник": 1, "mon": 1, "mo": 1,
	"вт": 2, "вторник": 2, "tue": 2, "tu": 2,
	"ср": 3, "среда": 3, "wed": 3, "we": 3,
	"чт": 4, "четверг": 4, "thu": 4, "th": 4,
	"пт": 5, "пятница": 5, "fri": 5, "fr": 5,
	"сб": 6, "суббота": 6, "sat": 6, "sa": 6,
}

// parseWeekdays reads names or numbers (0 = Sunday) separated by spaces or commas.
func parseWeekdays(input string) ([]int, error) {
	fields := strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	if len(fields) == 0 {
		return nil, errors.New("no weekdays")
	}

	seen := make(map[int]bool, len(fields))
	for _, f := range fields {
		day, ok := weekdayAliases[f]
		if !ok {
			n, err := strconv.Atoi(f)
			if err != nil || n < 0 || n > 6 {
				return nil, fmt.Errorf("unknown weekday %q", f)
			}
			day = n
		}
		seen[day] = true
	}

	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Ints(days)
	return days, nil
}
