package stats

import "time"

// DayLayout is the layout of consumption day keys.
const DayLayout = "2006-01-02"

// Span is an inclusive range of day keys.
type Span struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatDay returns the day key of t in UTC.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// WeekStart returns the Monday of the week containing t, shifted by offset weeks.
func WeekStart(t time.Time, offset int) time.Time {
	t = startOfDay(t)
	back := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -back+offset*7)
}

// WeekEnd returns the Sunday of the week starting at start.
func WeekEnd(start time.Time) time.Time {
	return start.AddDate(0, 0, 6)
}

// MonthStart returns the first day of the month of t shifted by offset months.
func MonthStart(t time.Time, offset int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(offset), 1, 0, 0, 0, 0, t.Location())
}

// MonthEnd returns the last day of the month starting at start.
func MonthEnd(start time.Time) time.Time {
	return start.AddDate(0, 1, -1)
}

// LastMonday returns the most recent Monday on or before t.
func LastMonday(t time.Time) time.Time {
	return WeekStart(t, 0)
}

// CanGoToNextMonth reports whether a view at offset may move forward.
func CanGoToNextMonth(offset int) bool {
	return offset < 0
}

// IsCurrentWeek reports whether offset designates the current week.
func IsCurrentWeek(offset int) bool {
	return offset == 0
}
