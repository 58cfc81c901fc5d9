package stats

import (
	"math"
	"sort"
	"time"

	"github.com/juanlo017/cerves-app/internal/model"
)

// DefaultWeeklyGoal is the weekly volume target in liters.
const DefaultWeeklyGoal = 8.0

type DailyConsumption struct {
	Day       string    `json:"day"`
	DayShort  string    `json:"day_short"`
	Date      string    `json:"date"`
	Liters    float64   `json:"liters"`
	Drinks    int       `json:"drinks"`
	FillState FillState `json:"fill_state"`
}

type WeekRange struct {
	Span
	Display string `json:"display"`
}

type WeekTotals struct {
	TotalDrinks   int     `json:"total_drinks"`
	TotalSpent    float64 `json:"total_spent"`
	TotalCalories int     `json:"total_calories"`
	FavoriteDrink *string `json:"favorite_drink"`
}

type Weekly struct {
	WeekRange          WeekRange          `json:"week_range"`
	WeeklyGoal         float64            `json:"weekly_goal"`
	CurrentProgress    float64            `json:"current_progress"`
	PercentageComplete int                `json:"percentage_complete"`
	DailyConsumption   []DailyConsumption `json:"daily_consumption"`
	WeekStats          WeekTotals         `json:"week_stats"`
	Streak             int                `json:"streak"`
}

type CalendarDay struct {
	Day       *int      `json:"day"`
	Date      *string   `json:"date"`
	Liters    float64   `json:"liters"`
	FillState FillState `json:"fill_state"`
}

type MonthRange struct {
	Month   int    `json:"month"`
	Year    int    `json:"year"`
	Display string `json:"display"`
}

type MonthTotals struct {
	TotalDrinks   int     `json:"total_drinks"`
	TotalLiters   float64 `json:"total_liters"`
	TotalSpent    float64 `json:"total_spent"`
	TotalCalories int     `json:"total_calories"`
	DaysActive    int     `json:"days_active"`
}

type Monthly struct {
	MonthRange MonthRange    `json:"month_range"`
	Days       []CalendarDay `json:"days"`
	MonthStats MonthTotals   `json:"month_stats"`
}

type dayTotals struct {
	liters   float64
	drinks   int
	spent    float64
	calories float64
}

// chronological returns the rows oldest first without touching the input.
func chronological(rows []model.ConsumptionWithDrink) []model.ConsumptionWithDrink {
	out := make([]model.ConsumptionWithDrink, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ConsumedAt.Before(out[j].ConsumedAt)
	})
	return out
}

func totalsByDay(rows []model.ConsumptionWithDrink) map[string]dayTotals {
	byDay := make(map[string]dayTotals)
	for _, c := range rows {
		d := byDay[c.Day]
		d.liters += c.Liters()
		d.drinks += c.Qty
		d.spent += c.Spent()
		d.calories += c.Calories()
		byDay[c.Day] = d
	}
	return byDay
}

// BuildWeekly aggregates one week of consumptions starting on the Monday weekStart.
// Streak is left for the caller.
func BuildWeekly(rows []model.ConsumptionWithDrink, weekStart time.Time, goal float64) Weekly {
	if goal <= 0 {
		goal = DefaultWeeklyGoal
	}
	weekEnd := WeekEnd(weekStart)
	byDay := totalsByDay(rows)

	var totals WeekTotals
	var liters, calories float64
	counts := make(map[string]int)
	var order []string
	for _, c := range chronological(rows) {
		totals.TotalDrinks += c.Qty
		totals.TotalSpent += c.Spent()
		liters += c.Liters()
		calories += c.Calories()
		if _, seen := counts[c.Drink.Name]; !seen {
			order = append(order, c.Drink.Name)
		}
		counts[c.Drink.Name] += c.Qty
	}
	totals.TotalCalories = int(math.Round(calories))

	// Strictly greater, so the drink that reached the maximum first keeps it.
	best := 0
	for _, name := range order {
		if counts[name] > best {
			best = counts[name]
			favorite := name
			totals.FavoriteDrink = &favorite
		}
	}

	daily := make([]DailyConsumption, 7)
	for i := range daily {
		date := FormatDay(weekStart.AddDate(0, 0, i))
		d := byDay[date]
		daily[i] = DailyConsumption{
			Day:       dayNames[i],
			DayShort:  dayShortNames[i],
			Date:      date,
			Liters:    d.liters,
			Drinks:    d.drinks,
			FillState: Fill(d.liters),
		}
	}

	return Weekly{
		WeekRange: WeekRange{
			Span:    Span{Start: FormatDay(weekStart), End: FormatDay(weekEnd)},
			Display: WeekRangeLabel(weekStart, weekEnd),
		},
		WeeklyGoal:         goal,
		CurrentProgress:    liters,
		PercentageComplete: Percentage(liters, goal),
		DailyConsumption:   daily,
		WeekStats:          totals,
	}
}

// Percentage is progress towards goal, rounded and capped at 100.
func Percentage(liters, goal float64) int {
	if goal <= 0 {
		return 0
	}
	return min(int(math.Round(liters/goal*100)), 100)
}

// BuildMonthly lays out a Monday-first calendar for the month starting at monthStart.
func BuildMonthly(rows []model.ConsumptionWithDrink, monthStart time.Time) Monthly {
	monthEnd := MonthEnd(monthStart)
	byDay := totalsByDay(rows)

	leading := (int(monthStart.Weekday()) + 6) % 7
	days := make([]CalendarDay, 0, leading+monthEnd.Day())
	for i := 0; i < leading; i++ {
		days = append(days, CalendarDay{FillState: FillEmpty})
	}
	for n := 1; n <= monthEnd.Day(); n++ {
		day := n
		date := FormatDay(monthStart.AddDate(0, 0, n-1))
		days = append(days, CalendarDay{
			Day:       &day,
			Date:      &date,
			Liters:    byDay[date].liters,
			FillState: Fill(byDay[date].liters),
		})
	}

	var totals MonthTotals
	var calories float64
	for _, d := range byDay {
		totals.TotalDrinks += d.drinks
		totals.TotalLiters += d.liters
		totals.TotalSpent += d.spent
		calories += d.calories
		if d.drinks > 0 {
			totals.DaysActive++
		}
	}
	totals.TotalCalories = int(math.Round(calories))

	return Monthly{
		MonthRange: MonthRange{
			Month:   int(monthStart.Month()) - 1,
			Year:    monthStart.Year(),
			Display: MonthLabel(monthStart),
		},
		Days:       days,
		MonthStats: totals,
	}
}

// Streak counts consecutive days with a consumption, walking back from today.
// days may be in any order and contain duplicates.
func Streak(days []string, today time.Time) int {
	seen := make(map[string]bool, len(days))
	for _, d := range days {
		seen[d] = true
	}
	streak := 0
	for check := startOfDay(today); seen[FormatDay(check)]; check = check.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}
