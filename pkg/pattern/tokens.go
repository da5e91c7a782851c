package pattern

import (
	"fmt"
	"strings"
	"time"
)

// dateToken resolves a `{name}` or `{name:format}` token to a date, relative
// to a reference datetime and a configured week start day.
type dateToken struct {
	name          string
	resolve       func(ref time.Time, weekStart time.Weekday) time.Time
	defaultFormat string
}

var dateTokens = map[string]dateToken{
	"today": {
		name:          "today",
		resolve:       func(ref time.Time, _ time.Weekday) time.Time { return ref },
		defaultFormat: "YYYY-MM-DD",
	},
	"yesterday": {
		name:          "yesterday",
		resolve:       func(ref time.Time, _ time.Weekday) time.Time { return ref.AddDate(0, 0, -1) },
		defaultFormat: "YYYY-MM-DD",
	},
	"tomorrow": {
		name:          "tomorrow",
		resolve:       func(ref time.Time, _ time.Weekday) time.Time { return ref.AddDate(0, 0, 1) },
		defaultFormat: "YYYY-MM-DD",
	},
	"this-week": {
		name:          "this-week",
		resolve:       func(ref time.Time, weekStart time.Weekday) time.Time { return startOfWeek(ref, weekStart) },
		defaultFormat: "YYYY-MM-DD",
	},
	"last-week": {
		name:          "last-week",
		resolve:       func(ref time.Time, weekStart time.Weekday) time.Time { return startOfWeek(ref, weekStart).AddDate(0, 0, -7) },
		defaultFormat: "YYYY-MM-DD",
	},
	"next-week": {
		name:          "next-week",
		resolve:       func(ref time.Time, weekStart time.Weekday) time.Time { return startOfWeek(ref, weekStart).AddDate(0, 0, 7) },
		defaultFormat: "YYYY-MM-DD",
	},
	"this-month": {
		name:          "this-month",
		resolve:       func(ref time.Time, _ time.Weekday) time.Time { return startOfMonth(ref) },
		defaultFormat: "YYYY-MM",
	},
	"last-month": {
		name:          "last-month",
		resolve:       func(ref time.Time, _ time.Weekday) time.Time { return startOfMonth(ref).AddDate(0, -1, 0) },
		defaultFormat: "YYYY-MM",
	},
	"day-name": {
		name:          "day-name",
		resolve:       func(ref time.Time, _ time.Weekday) time.Time { return ref },
		defaultFormat: "dddd",
	},
	"month-name": {
		name:          "month-name",
		resolve:       func(ref time.Time, _ time.Weekday) time.Time { return ref },
		defaultFormat: "MMMM",
	},
}

// startOfWeek returns the midnight of the weekStart day on or before ref.
func startOfWeek(ref time.Time, weekStart time.Weekday) time.Time {
	ref = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	diff := int(ref.Weekday()) - int(weekStart)
	if diff < 0 {
		diff += 7
	}
	return ref.AddDate(0, 0, -diff)
}

func startOfMonth(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
}

// formatTokenOrder lists format tokens longest-first so that e.g. "YYYY" is matched
// before "YY" and "DD" before "D".
var formatTokenOrder = []string{"YYYY", "MMMM", "dddd", "MMM", "ddd", "MM", "DD", "YY", "M", "D"}

// formatDate renders t using the `{token:format}` mini-language from §4.1.
func formatDate(t time.Time, format string) string {
	var out strings.Builder
	i := 0
	for i < len(format) {
		matched := false
		for _, tok := range formatTokenOrder {
			if strings.HasPrefix(format[i:], tok) {
				out.WriteString(renderFormatToken(t, tok))
				i += len(tok)
				matched = true
				break
			}
		}
		if !matched {
			out.WriteByte(format[i])
			i++
		}
	}
	return out.String()
}

func renderFormatToken(t time.Time, tok string) string {
	switch tok {
	case "YYYY":
		return fmt.Sprintf("%04d", t.Year())
	case "YY":
		return fmt.Sprintf("%02d", t.Year()%100)
	case "MM":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "M":
		return fmt.Sprintf("%d", int(t.Month()))
	case "DD":
		return fmt.Sprintf("%02d", t.Day())
	case "D":
		return fmt.Sprintf("%d", t.Day())
	case "MMMM":
		return t.Month().String()
	case "MMM":
		return t.Month().String()[:3]
	case "dddd":
		return t.Weekday().String()
	case "ddd":
		return t.Weekday().String()[:3]
	}
	return tok
}

// ParseWeekStartDay parses the `week_start_day` setting (monday…sunday,
// case-insensitive) used by §4.1's startOfWeek computation.
func ParseWeekStartDay(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	case "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	case "sunday":
		return time.Sunday, nil
	default:
		return 0, fmt.Errorf("pattern: unknown week_start_day %q", s)
	}
}
