package stats

import (
	"math"
	"testing"
	"time"

	"github.com/juanlo017/cerves-app/internal/model"
)

var (
	cana  = model.ConsumptionDrink{ID: "cana", Name: "Caña", LitersPerUnit: 0.2, KcalPerUnit: 86, EurPerUnit: 1.5}
	jarra = model.ConsumptionDrink{ID: "jarra", Name: "Jarra", LitersPerUnit: 0.5, KcalPerUnit: 215, EurPerUnit: 3.5}
	vino  = model.ConsumptionDrink{ID: "vino", Name: "Copa de vino", LitersPerUnit: 0.15, KcalPerUnit: 125, EurPerUnit: 3}
)

func consumption(playerID string, drink model.ConsumptionDrink, qty int, at time.Time, spent *float64) model.ConsumptionWithDrink {
	return model.ConsumptionWithDrink{
		Consumption: model.Consumption{
			ID:         playerID + at.Format(time.RFC3339) + drink.ID,
			PlayerID:   playerID,
			DrinkID:    drink.ID,
			Qty:        qty,
			ConsumedAt: at,
			Day:        FormatDay(at),
			EurSpent:   spent,
		},
		Drink: drink,
	}
}

func eur(f float64) *float64 { return &f }

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestBuildWeekly(t *testing.T) {
	monday := day(2026, 10, 19)
	rows := []model.ConsumptionWithDrink{
		consumption("p1", cana, 3, monday.Add(20*time.Hour), eur(4.5)),
		consumption("p1", jarra, 2, monday.AddDate(0, 0, 4).Add(22*time.Hour), nil),
		consumption("p1", jarra, 4, monday.AddDate(0, 0, 5).Add(23*time.Hour), eur(14)),
	}

	w := BuildWeekly(rows, monday, DefaultWeeklyGoal)

	if w.WeekRange.Start != "2026-10-19" || w.WeekRange.End != "2026-10-25" {
		t.Errorf("range = %+v", w.WeekRange)
	}
	if w.WeekRange.Display != "19 - 25 OCT" {
		t.Errorf("display = %q, want %q", w.WeekRange.Display, "19 - 25 OCT")
	}
	if !approx(w.CurrentProgress, 3.6) {
		t.Errorf("progress = %v, want 3.6", w.CurrentProgress)
	}
	if w.PercentageComplete != 45 {
		t.Errorf("percentage = %d, want 45", w.PercentageComplete)
	}
	if len(w.DailyConsumption) != 7 {
		t.Fatalf("days = %d, want 7", len(w.DailyConsumption))
	}

	mon := w.DailyConsumption[0]
	if mon.DayShort != "LUN" || mon.Day != "Monday" || mon.Drinks != 3 || mon.FillState != FillQuarter {
		t.Errorf("monday = %+v", mon)
	}
	if w.DailyConsumption[1].FillState != FillEmpty {
		t.Errorf("tuesday fill = %q, want empty", w.DailyConsumption[1].FillState)
	}
	if sat := w.DailyConsumption[5]; sat.DayShort != "SAB" || sat.FillState != FillFull {
		t.Errorf("saturday = %+v, want full glass", sat)
	}

	st := w.WeekStats
	if st.TotalDrinks != 9 {
		t.Errorf("total_drinks = %d, want 9", st.TotalDrinks)
	}
	if !approx(st.TotalSpent, 18.5) {
		t.Errorf("total_spent = %v, want 18.5", st.TotalSpent)
	}
	if st.TotalCalories != 3*86+6*215 {
		t.Errorf("total_calories = %d, want %d", st.TotalCalories, 3*86+6*215)
	}
	if st.FavoriteDrink == nil || *st.FavoriteDrink != "Jarra" {
		t.Errorf("favorite = %v, want Jarra", st.FavoriteDrink)
	}
}

func TestBuildWeeklyFavoriteTieKeepsFirst(t *testing.T) {
	monday := day(2026, 10, 19)
	rows := []model.ConsumptionWithDrink{
		consumption("p1", jarra, 2, monday.Add(23*time.Hour), nil),
		consumption("p1", vino, 2, monday.Add(19*time.Hour), nil),
	}

	w := BuildWeekly(rows, monday, DefaultWeeklyGoal)
	if w.WeekStats.FavoriteDrink == nil || *w.WeekStats.FavoriteDrink != "Copa de vino" {
		t.Errorf("favorite = %v, want the drink reached first", w.WeekStats.FavoriteDrink)
	}
}

func TestBuildWeeklyEmpty(t *testing.T) {
	w := BuildWeekly(nil, day(2026, 10, 19), DefaultWeeklyGoal)

	if w.PercentageComplete != 0 || w.CurrentProgress != 0 {
		t.Errorf("progress = %v / %d%%", w.CurrentProgress, w.PercentageComplete)
	}
	if w.WeekStats.FavoriteDrink != nil {
		t.Errorf("favorite = %v, want nil", *w.WeekStats.FavoriteDrink)
	}
	for _, d := range w.DailyConsumption {
		if d.FillState != FillEmpty {
			t.Errorf("%s fill = %q, want empty", d.Date, d.FillState)
		}
	}
}

func TestPercentageCapped(t *testing.T) {
	if got := Percentage(12, 8); got != 100 {
		t.Errorf("percentage = %d, want 100", got)
	}
	if got := Percentage(1, 8); got != 13 {
		t.Errorf("percentage = %d, want 13 (12.5 rounds up)", got)
	}
}

func TestBuildMonthly(t *testing.T) {
	start := day(2026, 3, 1)
	rows := []model.ConsumptionWithDrink{
		consumption("p1", cana, 2, day(2026, 3, 1).Add(21*time.Hour), eur(3)),
		consumption("p1", jarra, 5, day(2026, 3, 14).Add(22*time.Hour), eur(17.5)),
		consumption("p1", cana, 1, day(2026, 3, 14).Add(23*time.Hour), nil),
	}

	m := BuildMonthly(rows, start)

	if m.MonthRange.Month != 2 || m.MonthRange.Year != 2026 || m.MonthRange.Display != "MARZO 2026" {
		t.Errorf("range = %+v", m.MonthRange)
	}
	// March 2026 starts on a Sunday: six blanks before day 1.
	if len(m.Days) != 6+31 {
		t.Fatalf("cells = %d, want %d", len(m.Days), 6+31)
	}
	for i := 0; i < 6; i++ {
		if m.Days[i].Day != nil || m.Days[i].Date != nil {
			t.Errorf("cell %d = %+v, want blank", i, m.Days[i])
		}
	}
	first := m.Days[6]
	if first.Day == nil || *first.Day != 1 || *first.Date != "2026-03-01" {
		t.Errorf("first day cell = %+v", first)
	}
	if fourteenth := m.Days[6+13]; fourteenth.FillState != FillOverflow {
		t.Errorf("14th fill = %q, want overflow", fourteenth.FillState)
	}

	st := m.MonthStats
	if st.TotalDrinks != 8 || st.DaysActive != 2 {
		t.Errorf("stats = %+v", st)
	}
	if !approx(st.TotalLiters, 0.4+2.5+0.2) {
		t.Errorf("liters = %v", st.TotalLiters)
	}
	if !approx(st.TotalSpent, 20.5) {
		t.Errorf("spent = %v, want 20.5", st.TotalSpent)
	}
}

func TestBuildMonthlyStartingMonday(t *testing.T) {
	m := BuildMonthly(nil, day(2026, 6, 1))
	if len(m.Days) != 30 {
		t.Errorf("cells = %d, want 30 with no blanks", len(m.Days))
	}
}

func TestStreak(t *testing.T) {
	today := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

	days := []string{"2026-10-19", "2026-10-18", "2026-10-18", "2026-10-17", "2026-10-15"}
	if got := Streak(days, today); got != 3 {
		t.Errorf("streak = %d, want 3", got)
	}
	if got := Streak([]string{"2026-10-18", "2026-10-17"}, today); got != 0 {
		t.Errorf("streak without today = %d, want 0", got)
	}
	if got := Streak(nil, today); got != 0 {
		t.Errorf("empty streak = %d, want 0", got)
	}
}
