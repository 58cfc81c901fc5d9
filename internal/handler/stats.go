package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/juanlo017/cerves-app/internal/auth"
	"github.com/juanlo017/cerves-app/internal/stats"
)

// offsets further back than this are rejected
const maxBackOffset = 520

type StatsHandler struct {
	stats  *stats.Service
	logger *slog.Logger
}

func NewStatsHandler(s *stats.Service, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{stats: s, logger: logger}
}

// offset reads the offset query parameter, which must be zero or negative.
func offset(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := queryInt(r, "offset", 0)
	if err != nil || n > 0 || n < -maxBackOffset {
		writeError(w, http.StatusBadRequest, "offset must be an integer between -520 and 0")
		return 0, false
	}
	return n, true
}

type weeklyResponse struct {
	*stats.Weekly
	IsCurrentWeek bool `json:"is_current_week"`
}

// Weekly handles GET /api/stats/weekly?offset=
func (h *StatsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	off, ok := offset(w, r)
	if !ok {
		return
	}
	weekly, err := h.stats.Weekly(auth.PlayerID(r.Context()), off)
	if err != nil {
		h.logger.Error("weekly stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute weekly stats")
		return
	}
	writeJSON(w, http.StatusOK, weeklyResponse{Weekly: weekly, IsCurrentWeek: stats.IsCurrentWeek(off)})
}

type monthlyResponse struct {
	*stats.Monthly
	CanGoNext bool `json:"can_go_next"`
}

// Monthly handles GET /api/stats/monthly?offset=
func (h *StatsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	off, ok := offset(w, r)
	if !ok {
		return
	}
	monthly, err := h.stats.Monthly(auth.PlayerID(r.Context()), off)
	if err != nil {
		h.logger.Error("monthly stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute monthly stats")
		return
	}
	writeJSON(w, http.StatusOK, monthlyResponse{Monthly: monthly, CanGoNext: stats.CanGoToNextMonth(off)})
}

// Streak handles GET /api/stats/streak
func (h *StatsHandler) Streak(w http.ResponseWriter, r *http.Request) {
	n, err := h.stats.Streak(auth.PlayerID(r.Context()))
	if err != nil {
		h.logger.Error("streak", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute streak")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"streak": n})
}

// LastUpdate handles GET /api/stats/last-update
func (h *StatsHandler) LastUpdate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.LastUpdate())
}

// Rankings handles GET /api/rankings?period=&trend=&offset=&days=
func (h *StatsHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	periodParam := strings.TrimSpace(q.Get("period"))
	if periodParam == "" {
		periodParam = string(stats.PeriodMonth)
	}
	period, days := stats.ParsePeriod(periodParam)
	if period == stats.PeriodCustom && days == 0 {
		d, err := queryInt(r, "days", 0)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = d
	}

	trend := stats.TrendPeriod(strings.TrimSpace(q.Get("trend")))
	switch trend {
	case "":
		trend = stats.TrendWeekly
	case stats.TrendDaily, stats.TrendWeekly:
	default:
		writeError(w, http.StatusBadRequest, "trend must be daily or weekly")
		return
	}

	off, ok := offset(w, r)
	if !ok {
		return
	}

	ranking, err := h.stats.Leaderboard(stats.RankingConfig{Period: period, Trend: trend, CustomDays: days}, off)
	if err != nil {
		h.logger.Error("rankings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute rankings")
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}
