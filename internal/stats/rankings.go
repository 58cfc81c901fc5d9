package stats

import (
	"sort"
	"strconv"
	"time"

	"github.com/juanlo017/cerves-app/internal/model"
)

type RankingPeriod string

const (
	PeriodWeek    RankingPeriod = "week"
	PeriodMonth   RankingPeriod = "month"
	PeriodSeason  RankingPeriod = "season"
	PeriodAllTime RankingPeriod = "alltime"
	PeriodCustom  RankingPeriod = "custom"
)

type TrendPeriod string

const (
	TrendDaily  TrendPeriod = "daily"
	TrendWeekly TrendPeriod = "weekly"
)

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendSame Trend = "same"
)

const (
	unknownPlayerName = "Unknown"
	defaultAvatar     = "🍺"
)

// allTimeStart is the first day counted by the all-time ranking.
var allTimeStart = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// RankingConfig selects the ranked period and the period trends compare with.
type RankingConfig struct {
	Period     RankingPeriod `json:"ranking_period"`
	Trend      TrendPeriod   `json:"trend_period"`
	CustomDays int           `json:"custom_days,omitempty"`
}

type LeaderboardPlayer struct {
	PlayerID    string  `json:"player_id"`
	PlayerName  string  `json:"player_name"`
	Avatar      string  `json:"avatar"`
	TotalLiters float64 `json:"total_liters"`
	Rank        int     `json:"rank"`
	Trend       Trend   `json:"trend"`
	TrendChange int     `json:"trend_change"`
}

// ParsePeriod reads a period name. A bare number of days selects a custom period.
func ParsePeriod(s string) (RankingPeriod, int) {
	switch RankingPeriod(s) {
	case PeriodWeek, PeriodMonth, PeriodSeason, PeriodAllTime:
		return RankingPeriod(s), 0
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return PeriodCustom, n
	}
	return PeriodCustom, 0
}

// PeriodDates returns the days covered by a ranking period.
func PeriodDates(period RankingPeriod, offset, customDays int, now time.Time) Span {
	today := startOfDay(now)
	var start, end time.Time
	switch period {
	case PeriodWeek:
		start = WeekStart(today, offset)
		end = WeekEnd(start)
	case PeriodMonth, PeriodSeason:
		start = MonthStart(today, offset)
		end = MonthEnd(start)
	case PeriodAllTime:
		start = allTimeStart
		end = today
	default:
		end = today
		start = today
		if customDays > 0 {
			start = today.AddDate(0, 0, -customDays)
		}
	}
	return Span{Start: FormatDay(start), End: FormatDay(end)}
}

// TrendDates returns the comparison period for trends. The base date is today
// moved by monthOffset months.
func TrendDates(trend TrendPeriod, monthOffset int, now time.Time) Span {
	today := startOfDay(now)
	base := time.Date(today.Year(), today.Month()+time.Month(monthOffset), today.Day(), 0, 0, 0, 0, today.Location())
	switch trend {
	case TrendDaily:
		day := FormatDay(base.AddDate(0, 0, -1))
		return Span{Start: day, End: day}
	case TrendWeekly:
		start := WeekStart(base, -1)
		return Span{Start: FormatDay(start), End: FormatDay(WeekEnd(start))}
	}
	return Span{Start: FormatDay(base), End: FormatDay(base)}
}

type playerLiters struct {
	playerID string
	liters   float64
}

// litersByPlayer sums liters per player, keeping first-seen order.
func litersByPlayer(rows []model.ConsumptionWithDrink) []playerLiters {
	index := make(map[string]int)
	var out []playerLiters
	for _, c := range chronological(rows) {
		i, ok := index[c.PlayerID]
		if !ok {
			i = len(out)
			index[c.PlayerID] = i
			out = append(out, playerLiters{playerID: c.PlayerID})
		}
		out[i].liters += c.Liters()
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].liters > out[j].liters })
	return out
}

// Rank orders players by liters in current and attaches the movement against
// their rank in previous. Players absent from previous hold steady.
func Rank(current, previous []model.ConsumptionWithDrink, players map[string]model.PlayerSummary) []LeaderboardPlayer {
	prevRank := make(map[string]int)
	for i, p := range litersByPlayer(previous) {
		prevRank[p.playerID] = i + 1
	}

	ranked := litersByPlayer(current)
	out := make([]LeaderboardPlayer, 0, len(ranked))
	for i, p := range ranked {
		entry := LeaderboardPlayer{
			PlayerID:    p.playerID,
			PlayerName:  unknownPlayerName,
			Avatar:      defaultAvatar,
			TotalLiters: p.liters,
			Rank:        i + 1,
			Trend:       TrendSame,
		}
		if info, ok := players[p.playerID]; ok {
			entry.PlayerName = info.DisplayName
			if info.AvatarKey != "" {
				entry.Avatar = info.AvatarKey
			}
		}
		if prev, ok := prevRank[p.playerID]; ok {
			entry.TrendChange = prev - entry.Rank
			switch {
			case entry.TrendChange > 0:
				entry.Trend = TrendUp
			case entry.TrendChange < 0:
				entry.Trend = TrendDown
			}
		}
		out = append(out, entry)
	}
	return out
}
