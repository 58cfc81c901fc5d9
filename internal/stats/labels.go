package stats

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var monthNames = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var shortMonthNames = [12]string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sept", "oct", "nov", "dic",
}

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var dayShortNames = [7]string{"LUN", "MAR", "MIE", "JUE", "VIE", "SAB", "DOM"}

// upper applies Spanish casing rules. Casers hold state, so one is built per call.
func upper(s string) string {
	return cases.Upper(language.Spanish).String(s)
}

// MonthLabel renders "FEBRERO 2026".
func MonthLabel(t time.Time) string {
	return fmt.Sprintf("%s %d", upper(monthNames[t.Month()-1]), t.Year())
}

// WeekRangeLabel renders "5 - 11 FEB", using the month of start.
func WeekRangeLabel(start, end time.Time) string {
	return fmt.Sprintf("%d - %d %s", start.Day(), end.Day(), upper(shortMonthNames[start.Month()-1]))
}

// ShortDateLabel renders "13 oct".
func ShortDateLabel(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), shortMonthNames[t.Month()-1])
}

// PeriodName is the title shown above a ranking.
func PeriodName(period RankingPeriod, monthOffset, customDays int, now time.Time) string {
	target := MonthStart(now, monthOffset)
	switch period {
	case PeriodWeek:
		return "ESTA SEMANA"
	case PeriodMonth:
		return MonthLabel(target)
	case PeriodSeason:
		return "TEMPORADA " + upper(monthNames[target.Month()-1])
	case PeriodAllTime:
		return upper("histórico")
	}
	if customDays > 0 {
		return upper(fmt.Sprintf("últimos %d días", customDays))
	}
	return "RANKING"
}

// TrendText describes what a ranking's trend arrows compare against.
func TrendText(trend TrendPeriod) string {
	switch trend {
	case TrendDaily:
		return "vs ayer"
	case TrendWeekly:
		return "vs semana pasada"
	}
	return ""
}
