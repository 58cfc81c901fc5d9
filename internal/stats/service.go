package stats

import (
	"fmt"
	"time"

	"github.com/juanlo017/cerves-app/internal/model"
	"github.com/juanlo017/cerves-app/internal/store"
)

// ConsumptionReader is the slice of the consumption store the aggregations need.
type ConsumptionReader interface {
	List(f store.ConsumptionFilter) ([]model.ConsumptionWithDrink, error)
	ListDays(playerID string, scope model.GroupScope) ([]string, error)
}

// PlayerDirectory resolves player ids to their public profile.
type PlayerDirectory interface {
	Summaries(ids []string) (map[string]model.PlayerSummary, error)
}

// Service computes dashboards and rankings over personal consumptions.
type Service struct {
	consumptions ConsumptionReader
	players      PlayerDirectory
	goal         float64
	now          func() time.Time
}

func NewService(consumptions ConsumptionReader, players PlayerDirectory, weeklyGoal float64) *Service {
	if weeklyGoal <= 0 {
		weeklyGoal = DefaultWeeklyGoal
	}
	return &Service{
		consumptions: consumptions,
		players:      players,
		goal:         weeklyGoal,
		now:          time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) today() time.Time {
	return startOfDay(s.now().UTC())
}

func (s *Service) personal(playerID string, span Span) ([]model.ConsumptionWithDrink, error) {
	return s.consumptions.List(store.ConsumptionFilter{
		PlayerID: playerID,
		Scope:    model.PersonalScope(),
		FromDay:  span.Start,
		ToDay:    span.End,
	})
}

func (s *Service) Weekly(playerID string, weekOffset int) (*Weekly, error) {
	start := WeekStart(s.today(), weekOffset)
	rows, err := s.personal(playerID, Span{Start: FormatDay(start), End: FormatDay(WeekEnd(start))})
	if err != nil {
		return nil, fmt.Errorf("weekly consumptions: %w", err)
	}
	w := BuildWeekly(rows, start, s.goal)

	streak, err := s.Streak(playerID)
	if err != nil {
		return nil, err
	}
	w.Streak = streak
	return &w, nil
}

func (s *Service) Monthly(playerID string, monthOffset int) (*Monthly, error) {
	start := MonthStart(s.today(), monthOffset)
	rows, err := s.personal(playerID, Span{Start: FormatDay(start), End: FormatDay(MonthEnd(start))})
	if err != nil {
		return nil, fmt.Errorf("monthly consumptions: %w", err)
	}
	m := BuildMonthly(rows, start)
	return &m, nil
}

func (s *Service) Streak(playerID string) (int, error) {
	days, err := s.consumptions.ListDays(playerID, model.PersonalScope())
	if err != nil {
		return 0, fmt.Errorf("streak days: %w", err)
	}
	return Streak(days, s.today()), nil
}

// Ranking is a leaderboard with the labels the client shows around it.
type Ranking struct {
	Config     RankingConfig       `json:"config"`
	PeriodName string              `json:"period_name"`
	TrendText  string              `json:"trend_text"`
	Period     Span                `json:"period"`
	TrendSpan  Span                `json:"trend_period"`
	CanGoNext  bool                `json:"can_go_next"`
	Players    []LeaderboardPlayer `json:"players"`
}

func (s *Service) Leaderboard(cfg RankingConfig, monthOffset int) (*Ranking, error) {
	now := s.today()
	period := PeriodDates(cfg.Period, monthOffset, cfg.CustomDays, now)
	trend := TrendDates(cfg.Trend, monthOffset, now)

	current, err := s.personal("", period)
	if err != nil {
		return nil, fmt.Errorf("ranking consumptions: %w", err)
	}
	previous, err := s.personal("", trend)
	if err != nil {
		return nil, fmt.Errorf("trend consumptions: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, c := range current {
		if !seen[c.PlayerID] {
			seen[c.PlayerID] = true
			ids = append(ids, c.PlayerID)
		}
	}
	players, err := s.players.Summaries(ids)
	if err != nil {
		return nil, fmt.Errorf("ranking players: %w", err)
	}

	return &Ranking{
		Config:     cfg,
		PeriodName: PeriodName(cfg.Period, monthOffset, cfg.CustomDays, now),
		TrendText:  TrendText(cfg.Trend),
		Period:     period,
		TrendSpan:  trend,
		CanGoNext:  CanGoToNextMonth(monthOffset),
		Players:    Rank(current, previous, players),
	}, nil
}

// LastUpdate is the Monday on which dashboards were last refreshed.
type LastUpdate struct {
	Date  string `json:"date"`
	Label string `json:"label"`
}

func (s *Service) LastUpdate() LastUpdate {
	monday := LastMonday(s.today())
	return LastUpdate{Date: FormatDay(monday), Label: ShortDateLabel(monday)}
}
