package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/juanlo017/cerves-app/internal/auth"
	"github.com/juanlo017/cerves-app/internal/model"
	"github.com/juanlo017/cerves-app/internal/store"
)

const maxGroupName = 60

type GroupHandler struct {
	groups       *store.GroupStore
	players      *store.PlayerStore
	consumptions *store.ConsumptionStore
	notify       *Notifier
	logger       *slog.Logger
}

func NewGroupHandler(gs *store.GroupStore, ps *store.PlayerStore, cs *store.ConsumptionStore, n *Notifier, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{groups: gs, players: ps, consumptions: cs, notify: n, logger: logger}
}

// validCode accepts 4 to 12 characters of A-Z and 0-9 after upper-casing.
func validCode(code string) bool {
	if len(code) < 4 || len(code) > 12 {
		return false
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validGroupName(name string) bool {
	return name != "" && len([]rune(name)) <= maxGroupName
}

// membership loads the group and the caller's membership. It writes the
// response and returns nil when the caller may not see the group.
func (h *GroupHandler) membership(w http.ResponseWriter, r *http.Request) (*model.Group, *model.GroupMember) {
	id := r.PathValue("id")
	g, err := h.groups.GetByID(id)
	if err != nil {
		h.logger.Error("get group", "group_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get group")
		return nil, nil
	}
	if g == nil {
		writeError(w, http.StatusNotFound, "group not found")
		return nil, nil
	}
	m, err := h.groups.GetMember(g.ID, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get group member", "group_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return nil, nil
	}
	if m == nil {
		writeError(w, http.StatusForbidden, "not a member of this group")
		return nil, nil
	}
	return g, m
}

func (h *GroupHandler) memberIDs(groupID string) []string {
	ids, err := h.groups.MemberUserIDs(groupID)
	if err != nil {
		h.logger.Error("list group members", "group_id", groupID, "error", err)
	}
	return ids
}

type groupRequest struct {
	Name *string `json:"name"`
	Code *string `json:"code"`
}

// Create handles POST /api/groups. The creator becomes the group admin.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if !validGroupName(name) {
		writeError(w, http.StatusBadRequest, "name must be between 1 and 60 characters")
		return
	}
	code := ""
	if req.Code != nil {
		code = normalizeCode(*req.Code)
		if code != "" && !validCode(code) {
			writeError(w, http.StatusBadRequest, "code must be 4 to 12 letters or digits")
			return
		}
	}

	g, err := h.groups.CreateOwned(name, code, auth.UserID(r.Context()))
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusConflict, "group code already taken")
		return
	}
	if err != nil {
		h.logger.Error("create group", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create group")
		return
	}
	h.logger.Info("group created", "group_id", g.ID, "code", g.Code)
	writeJSON(w, http.StatusCreated, g)
}

// GetByCode handles GET /api/group-codes/{code}
func (h *GroupHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	g, err := h.groups.GetByCode(r.PathValue("code"))
	if err != nil {
		h.logger.Error("get group by code", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get group")
		return
	}
	if g == nil {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Get handles GET /api/groups/{id}
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	if g, _ := h.membership(w, r); g != nil {
		writeJSON(w, http.StatusOK, g)
	}
}

// Update handles PUT /api/groups/{id} (group admin)
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	g, m := h.membership(w, r)
	if g == nil {
		return
	}
	if m.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, "only the group admin can edit the group")
		return
	}

	var req groupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if !validGroupName(name) {
			writeError(w, http.StatusBadRequest, "name must be between 1 and 60 characters")
			return
		}
		req.Name = &name
	}
	if req.Code != nil {
		code := normalizeCode(*req.Code)
		if !validCode(code) {
			writeError(w, http.StatusBadRequest, "code must be 4 to 12 letters or digits")
			return
		}
		req.Code = &code
	}

	updated, err := h.groups.Update(g.ID, req.Name, req.Code)
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusConflict, "group code already taken")
		return
	}
	if err != nil {
		h.logger.Error("update group", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update group")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}
	h.notify.GroupChanged(g.ID, "updated", h.memberIDs(g.ID))
	writeJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/groups/{id} (group admin)
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	g, m := h.membership(w, r)
	if g == nil {
		return
	}
	if m.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, "only the group admin can delete the group")
		return
	}

	members := h.memberIDs(g.ID)
	if err := h.groups.Delete(g.ID); err != nil {
		h.logger.Error("delete group", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete group")
		return
	}
	h.logger.Info("group deleted", "group_id", g.ID)
	h.notify.GroupChanged(g.ID, "deleted", members)
	w.WriteHeader(http.StatusNoContent)
}

type joinRequest struct {
	Code string `json:"code"`
}

// Join handles POST /api/groups/join
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	code := normalizeCode(req.Code)
	if code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	g, err := h.groups.GetByCode(code)
	if err != nil {
		h.logger.Error("get group by code", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get group")
		return
	}
	if g == nil {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	member, err := h.groups.AddMember(g.ID, ac.UserID, model.RoleMember)
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusConflict, "already a member")
		return
	}
	if err != nil {
		h.logger.Error("join group", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join group")
		return
	}

	name := ""
	if p, err := h.players.GetByID(ac.PlayerID); err == nil && p != nil {
		name = p.DisplayName
	}
	h.notify.MemberJoined(g.ID, g.Name, ac.UserID, name, h.memberIDs(g.ID))
	writeJSON(w, http.StatusCreated, model.Membership{GroupMember: *member, Group: *g})
}

// Members handles GET /api/groups/{id}/members
func (h *GroupHandler) Members(w http.ResponseWriter, r *http.Request) {
	g, _ := h.membership(w, r)
	if g == nil {
		return
	}
	members, err := h.groups.ListMembers(g.ID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// RemoveMember handles DELETE /api/groups/{id}/members/{user_id}. Admins
// remove anyone; members may only remove themselves.
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	g, m := h.membership(w, r)
	if g == nil {
		return
	}
	target := r.PathValue("user_id")
	if target != m.UserID && m.Role != model.RoleAdmin {
		writeError(w, http.StatusForbidden, "only the group admin can remove other members")
		return
	}

	existing, err := h.groups.GetMember(g.ID, target)
	if err != nil {
		h.logger.Error("get group member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get member")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}

	members := h.memberIDs(g.ID)
	if err := h.groups.RemoveMember(g.ID, target); err != nil {
		h.logger.Error("remove member", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}
	h.notify.GroupChanged(g.ID, "member_left", members)
	w.WriteHeader(http.StatusNoContent)
}

// Leaderboard handles GET /api/groups/{id}/leaderboard
func (h *GroupHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	g, _ := h.membership(w, r)
	if g == nil {
		return
	}
	board, err := h.groups.Leaderboard(g.ID)
	if err != nil {
		h.logger.Error("group leaderboard", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// Consumptions handles GET /api/groups/{id}/consumptions
func (h *GroupHandler) Consumptions(w http.ResponseWriter, r *http.Request) {
	g, _ := h.membership(w, r)
	if g == nil {
		return
	}
	list, err := h.consumptions.ListByGroup(g.ID)
	if err != nil {
		h.logger.Error("list group consumptions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list consumptions")
		return
	}
	writeJSON(w, http.StatusOK, list)
}
