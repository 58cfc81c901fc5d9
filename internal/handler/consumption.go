package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/juanlo017/cerves-app/internal/auth"
	"github.com/juanlo017/cerves-app/internal/model"
	"github.com/juanlo017/cerves-app/internal/store"
)

const maxQty = 50

type ConsumptionHandler struct {
	consumptions *store.ConsumptionStore
	drinks       *store.DrinkStore
	groups       *store.GroupStore
	notify       *Notifier
	logger       *slog.Logger
	now          func() time.Time
}

func NewConsumptionHandler(cs *store.ConsumptionStore, ds *store.DrinkStore, gs *store.GroupStore, n *Notifier, logger *slog.Logger) *ConsumptionHandler {
	return &ConsumptionHandler{consumptions: cs, drinks: ds, groups: gs, notify: n, logger: logger, now: time.Now}
}

// List handles GET /api/consumptions?group=&day=&from=&to=
func (h *ConsumptionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ConsumptionFilter{
		PlayerID: auth.PlayerID(r.Context()),
		Scope:    parseScope(r),
		Day:      q.Get("day"),
		FromDay:  q.Get("from"),
		ToDay:    q.Get("to"),
	}
	for _, d := range []string{f.Day, f.FromDay, f.ToDay} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			writeError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
			return
		}
	}

	list, err := h.consumptions.List(f)
	if err != nil {
		h.logger.Error("list consumptions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list consumptions")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type createConsumptionRequest struct {
	DrinkID    string     `json:"drink_id"`
	Qty        int        `json:"qty"`
	EurSpent   *float64   `json:"eur_spent"`
	ConsumedAt *time.Time `json:"consumed_at"`
	GroupIDs   []string   `json:"group_ids"`
}

// requireMemberships reports whether userID belongs to every group.
func (h *ConsumptionHandler) requireMemberships(w http.ResponseWriter, userID string, groupIDs []string) bool {
	for _, gid := range groupIDs {
		ok, err := h.groups.IsMember(gid, userID)
		if err != nil {
			h.logger.Error("check membership", "group_id", gid, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to check membership")
			return false
		}
		if !ok {
			writeError(w, http.StatusForbidden, "not a member of group "+gid)
			return false
		}
	}
	return true
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Create handles POST /api/consumptions
func (h *ConsumptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createConsumptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Qty < 1 || req.Qty > maxQty {
		writeError(w, http.StatusBadRequest, "qty must be between 1 and 50")
		return
	}
	if req.EurSpent != nil && *req.EurSpent < 0 {
		writeError(w, http.StatusBadRequest, "eur_spent cannot be negative")
		return
	}
	if req.ConsumedAt != nil && req.ConsumedAt.After(h.now().Add(time.Hour)) {
		writeError(w, http.StatusBadRequest, "consumed_at is in the future")
		return
	}

	drink, err := h.drinks.GetByID(strings.TrimSpace(req.DrinkID))
	if err != nil {
		h.logger.Error("get drink", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get drink")
		return
	}
	if drink == nil || !drink.IsActive {
		writeError(w, http.StatusBadRequest, "drink not found")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	groupIDs := dedupe(req.GroupIDs)
	if !h.requireMemberships(w, ac.UserID, groupIDs) {
		return
	}

	in := store.NewConsumption{
		PlayerID: ac.PlayerID,
		DrinkID:  drink.ID,
		Qty:      req.Qty,
		EurSpent: req.EurSpent,
	}
	if req.ConsumedAt != nil {
		in.ConsumedAt = *req.ConsumedAt
	}
	c, err := h.consumptions.Create(in)
	if err != nil {
		h.logger.Error("create consumption", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save consumption")
		return
	}

	// A failed link leaves the consumption personal.
	if err := h.consumptions.LinkGroups(c.ID, groupIDs); err != nil {
		h.logger.Warn("link consumption to groups", "consumption_id", c.ID, "error", err)
	}
	h.refreshGroups(groupIDs)

	writeJSON(w, http.StatusCreated, c)
}

func (h *ConsumptionHandler) refreshGroups(groupIDs []string) {
	for _, gid := range groupIDs {
		members, err := h.groups.MemberUserIDs(gid)
		if err != nil {
			h.logger.Error("list group members", "group_id", gid, "error", err)
			continue
		}
		h.notify.GroupChanged(gid, "leaderboard", members)
	}
}

// owned loads a consumption and checks the caller logged it.
func (h *ConsumptionHandler) owned(w http.ResponseWriter, r *http.Request) *model.ConsumptionWithDrink {
	c, err := h.consumptions.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get consumption", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get consumption")
		return nil
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "consumption not found")
		return nil
	}
	if c.PlayerID != auth.PlayerID(r.Context()) {
		writeError(w, http.StatusForbidden, "not your consumption")
		return nil
	}
	return c
}

type updateConsumptionRequest struct {
	Qty        *int            `json:"qty"`
	ConsumedAt *time.Time      `json:"consumed_at"`
	GroupID    json.RawMessage `json:"group_id"`
}

// Update handles PUT /api/consumptions/{id}. A null group_id clears the tag.
func (h *ConsumptionHandler) Update(w http.ResponseWriter, r *http.Request) {
	c := h.owned(w, r)
	if c == nil {
		return
	}

	var req updateConsumptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Qty != nil && (*req.Qty < 1 || *req.Qty > maxQty) {
		writeError(w, http.StatusBadRequest, "qty must be between 1 and 50")
		return
	}

	u := model.ConsumptionUpdate{Qty: req.Qty, ConsumedAt: req.ConsumedAt}
	switch {
	case len(req.GroupID) == 0:
	case bytes.Equal(req.GroupID, []byte("null")):
		u.ClearGroup = true
	default:
		var gid string
		if err := json.Unmarshal(req.GroupID, &gid); err != nil || strings.TrimSpace(gid) == "" {
			writeError(w, http.StatusBadRequest, "group_id must be a string or null")
			return
		}
		if !h.requireMemberships(w, auth.UserID(r.Context()), []string{gid}) {
			return
		}
		u.GroupID = &gid
	}

	updated, err := h.consumptions.Update(c.ID, u)
	if err != nil {
		h.logger.Error("update consumption", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update consumption")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/consumptions/{id}
func (h *ConsumptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c := h.owned(w, r)
	if c == nil {
		return
	}
	if err := h.consumptions.Delete(c.ID); err != nil {
		h.logger.Error("delete consumption", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete consumption")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
