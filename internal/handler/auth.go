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

type AuthHandler struct {
	devices      *auth.DeviceAuthenticator
	tokens       *auth.TokenManager
	players      *store.PlayerStore
	consumptions *store.ConsumptionStore
	logger       *slog.Logger
}

func NewAuthHandler(
	devices *auth.DeviceAuthenticator,
	tokens *auth.TokenManager,
	ps *store.PlayerStore,
	cs *store.ConsumptionStore,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		devices:      devices,
		tokens:       tokens,
		players:      ps,
		consumptions: cs,
		logger:       logger,
	}
}

type deviceRequest struct {
	DeviceID     string `json:"device_id"`
	DeviceSecret string `json:"device_secret"`
	DisplayName  string `json:"display_name"`
	AvatarKey    string `json:"avatar_key"`
}

type sessionResponse struct {
	Player             *model.Player `json:"player,omitempty"`
	Token              string        `json:"token,omitempty"`
	OnboardingComplete bool          `json:"onboarding_complete"`
}

func (h *AuthHandler) session(w http.ResponseWriter, status int, p *model.Player) {
	token, err := h.tokens.Generate(p.ID, p.UserID)
	if err != nil {
		h.logger.Error("generate token", "player_id", p.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, status, sessionResponse{Player: p, Token: token, OnboardingComplete: true})
}

// SignIn handles POST /api/auth/sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.devices.SignIn(strings.TrimSpace(req.DeviceID), req.DeviceSecret)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid device credentials")
		return
	}
	if err != nil {
		h.logger.Error("sign in", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	if p == nil {
		writeJSON(w, http.StatusOK, sessionResponse{OnboardingComplete: false})
		return
	}
	h.session(w, http.StatusOK, p)
}

// CompleteOnboarding handles POST /api/auth/onboarding
func (h *AuthHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.devices.Onboard(strings.TrimSpace(req.DeviceID), req.DeviceSecret, req.DisplayName, req.AvatarKey)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrWeakSecret), errors.Is(err, auth.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, auth.ErrDeviceRegistered):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		h.logger.Error("onboard device", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete onboarding")
		return
	}

	h.logger.Info("player onboarded", "player_id", p.ID)
	h.session(w, http.StatusCreated, p)
}

// SignOut handles POST /api/auth/sign-out. Tokens are stateless; the
// client drops its copy.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) currentPlayer(w http.ResponseWriter, r *http.Request) *model.Player {
	p, err := h.players.GetByID(auth.PlayerID(r.Context()))
	if err != nil {
		h.logger.Error("get current player", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get player")
		return nil
	}
	if p == nil {
		writeError(w, http.StatusUnauthorized, "player not found")
		return nil
	}
	return p
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if p := h.currentPlayer(w, r); p != nil {
		writeJSON(w, http.StatusOK, p)
	}
}

type updateMeRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarKey   *string `json:"avatar_key"`
}

// UpdateMe handles PUT /api/me
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DisplayName != nil {
		if !auth.ValidName(*req.DisplayName) {
			writeError(w, http.StatusBadRequest, auth.ErrInvalidName.Error())
			return
		}
		name := strings.TrimSpace(*req.DisplayName)
		req.DisplayName = &name
	}
	if req.AvatarKey != nil && strings.TrimSpace(*req.AvatarKey) == "" {
		writeError(w, http.StatusBadRequest, "avatar_key cannot be empty")
		return
	}

	p, err := h.players.Update(auth.PlayerID(r.Context()), req.DisplayName, req.AvatarKey)
	if err != nil {
		h.logger.Error("update player", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update player")
		return
	}
	if p == nil {
		writeError(w, http.StatusUnauthorized, "player not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteMe handles DELETE /api/me
func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	id := auth.PlayerID(r.Context())
	if err := h.players.Delete(id); err != nil {
		h.logger.Error("delete player", "player_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete player")
		return
	}
	h.logger.Info("player deleted", "player_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// MyGroups handles GET /api/me/groups
func (h *AuthHandler) MyGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.players.ListGroups(auth.PlayerID(r.Context()))
	if err != nil {
		h.logger.Error("list player groups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}
	if groups == nil {
		groups = []model.Membership{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// parseScope reads the group query parameter: absent means every
// consumption, "personal" means untagged ones, anything else is a group id.
func parseScope(r *http.Request) model.GroupScope {
	v := strings.TrimSpace(r.URL.Query().Get("group"))
	switch v {
	case "":
		return model.AllScope()
	case "personal", "null":
		return model.PersonalScope()
	default:
		return model.InGroup(v)
	}
}

// MyStats handles GET /api/me/stats?group=
func (h *AuthHandler) MyStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.consumptions.PlayerStats(auth.PlayerID(r.Context()), parseScope(r))
	if err != nil {
		h.logger.Error("player stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// SearchPlayers handles GET /api/players/search?q=&exclude=
func (h *AuthHandler) SearchPlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	players, err := h.players.Search(q.Get("q"), splitList(q.Get("exclude")))
	if err != nil {
		h.logger.Error("search players", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to search players")
		return
	}
	writeJSON(w, http.StatusOK, players)
}
