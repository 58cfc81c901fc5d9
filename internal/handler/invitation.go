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

type InvitationHandler struct {
	invitations *store.InvitationStore
	groups      *store.GroupStore
	players     *store.PlayerStore
	notify      *Notifier
	logger      *slog.Logger
}

func NewInvitationHandler(is *store.InvitationStore, gs *store.GroupStore, ps *store.PlayerStore, n *Notifier, logger *slog.Logger) *InvitationHandler {
	return &InvitationHandler{invitations: is, groups: gs, players: ps, notify: n, logger: logger}
}

// memberGroup loads the group in the path and checks the caller belongs to it.
func (h *InvitationHandler) memberGroup(w http.ResponseWriter, r *http.Request) *model.Group {
	g, err := h.groups.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get group", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get group")
		return nil
	}
	if g == nil {
		writeError(w, http.StatusNotFound, "group not found")
		return nil
	}
	ok, err := h.groups.IsMember(g.ID, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("check membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return nil
	}
	if !ok {
		writeError(w, http.StatusForbidden, "only members can invite")
		return nil
	}
	return g
}

type inviteRequest struct {
	UserID string `json:"user_id"`
}

// Create handles POST /api/groups/{id}/invitations
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	g := h.memberGroup(w, r)
	if g == nil {
		return
	}
	var req inviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	invitee := strings.TrimSpace(req.UserID)
	ac, _ := auth.FromContext(r.Context())
	if invitee == "" || invitee == ac.UserID {
		writeError(w, http.StatusBadRequest, "user_id must name another player")
		return
	}

	p, err := h.players.GetByUserID(invitee)
	if err != nil {
		h.logger.Error("get invitee", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get player")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	member, err := h.groups.IsMember(g.ID, invitee)
	if err != nil {
		h.logger.Error("check membership", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check membership")
		return
	}
	if member {
		writeError(w, http.StatusConflict, "player is already a member")
		return
	}

	inv, err := h.invitations.Create(g.ID, ac.UserID, invitee)
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusConflict, "player already has a pending invitation")
		return
	}
	if err != nil {
		h.logger.Error("create invitation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create invitation")
		return
	}

	inviterName := ""
	if me, err := h.players.GetByID(ac.PlayerID); err == nil && me != nil {
		inviterName = me.DisplayName
	}
	h.notify.InvitationReceived(invitee, inv.ID, g.Name, inviterName)
	writeJSON(w, http.StatusCreated, inv)
}

// Candidates handles GET /api/groups/{id}/invitations/candidates?q= and
// returns players matching q who are neither members nor already invited.
func (h *InvitationHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	g := h.memberGroup(w, r)
	if g == nil {
		return
	}
	members, err := h.groups.MemberUserIDs(g.ID)
	if err != nil {
		h.logger.Error("list members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to search players")
		return
	}
	pending, err := h.invitations.PendingUserIDs(g.ID)
	if err != nil {
		h.logger.Error("list pending invitees", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to search players")
		return
	}

	players, err := h.players.Search(r.URL.Query().Get("q"), append(members, pending...))
	if err != nil {
		h.logger.Error("search players", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to search players")
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// List handles GET /api/invitations
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.invitations.ListPendingForUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list invitations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list invitations")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Count handles GET /api/invitations/count
func (h *InvitationHandler) Count(w http.ResponseWriter, r *http.Request) {
	n, err := h.invitations.PendingCount(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("count invitations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to count invitations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

// addressed loads an invitation and hides ones sent to someone else.
func (h *InvitationHandler) addressed(w http.ResponseWriter, r *http.Request) *model.Invitation {
	inv, err := h.invitations.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get invitation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get invitation")
		return nil
	}
	if inv == nil || inv.InvitedUserID != auth.UserID(r.Context()) {
		writeError(w, http.StatusNotFound, "invitation not found")
		return nil
	}
	return inv
}

// Accept handles POST /api/invitations/{id}/accept
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	inv := h.addressed(w, r)
	if inv == nil {
		return
	}
	ac, _ := auth.FromContext(r.Context())

	accepted, err := h.invitations.Accept(inv.ID, ac.UserID)
	if errors.Is(err, store.ErrAlreadyResponded) {
		writeError(w, http.StatusConflict, "invitation already responded")
		return
	}
	if err != nil {
		h.logger.Error("accept invitation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to accept invitation")
		return
	}

	h.notify.InvitationBadge(ac.UserID, "accepted", inv.ID)
	if g, err := h.groups.GetByID(inv.GroupID); err == nil && g != nil {
		members, _ := h.groups.MemberUserIDs(g.ID)
		name := ""
		if p, err := h.players.GetByID(ac.PlayerID); err == nil && p != nil {
			name = p.DisplayName
		}
		h.notify.MemberJoined(g.ID, g.Name, ac.UserID, name, members)
	}
	writeJSON(w, http.StatusOK, accepted)
}

// Decline handles POST /api/invitations/{id}/decline
func (h *InvitationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	inv := h.addressed(w, r)
	if inv == nil {
		return
	}
	userID := auth.UserID(r.Context())

	declined, err := h.invitations.Decline(inv.ID, userID)
	if errors.Is(err, store.ErrAlreadyResponded) {
		writeError(w, http.StatusConflict, "invitation already responded")
		return
	}
	if err != nil {
		h.logger.Error("decline invitation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to decline invitation")
		return
	}
	h.notify.InvitationBadge(userID, "declined", inv.ID)
	writeJSON(w, http.StatusOK, declined)
}
