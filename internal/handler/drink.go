package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/juanlo017/cerves-app/internal/catalog"
	"github.com/juanlo017/cerves-app/internal/model"
	"github.com/juanlo017/cerves-app/internal/store"
	"github.com/juanlo017/cerves-app/internal/websocket"
)

type DrinkHandler struct {
	drinks *store.DrinkStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewDrinkHandler(ds *store.DrinkStore, hub *websocket.Hub, logger *slog.Logger) *DrinkHandler {
	return &DrinkHandler{drinks: ds, hub: hub, logger: logger}
}

func (h *DrinkHandler) broadcast(action, id string) {
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage("drink", action, id, nil))
	}
}

// List handles GET /api/drinks[?all=true]
func (h *DrinkHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.drinks.ListActive
	if r.URL.Query().Get("all") == "true" {
		list = h.drinks.ListAll
	}
	drinks, err := list()
	if err != nil {
		h.logger.Error("list drinks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list drinks")
		return
	}
	writeJSON(w, http.StatusOK, drinks)
}

// ListByCategory handles GET /api/drinks/categories/{category}
func (h *DrinkHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	drinks, err := h.drinks.ListByCategory(r.PathValue("category"))
	if err != nil {
		h.logger.Error("list drinks by category", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list drinks")
		return
	}
	writeJSON(w, http.StatusOK, drinks)
}

// Get handles GET /api/drinks/{id}
func (h *DrinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.drinks.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get drink", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get drink")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "drink not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type drinkRequest struct {
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	LitersPerUnit float64 `json:"liters_per_unit"`
	KcalPerUnit   float64 `json:"kcal_per_unit"`
	EurPerUnit    float64 `json:"eur_per_unit"`
}

func validMeasures(liters, kcal, eur float64) bool {
	return liters > 0 && kcal >= 0 && eur >= 0
}

// Create handles POST /api/drinks (admin)
func (h *DrinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req drinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Category == "" {
		req.Category = catalog.Categorize(req.Name)
	}
	if !validMeasures(req.LitersPerUnit, req.KcalPerUnit, req.EurPerUnit) {
		writeError(w, http.StatusBadRequest, "liters_per_unit must be positive and kcal/eur not negative")
		return
	}

	d, err := h.drinks.Create(req.Name, req.Category, req.LitersPerUnit, req.KcalPerUnit, req.EurPerUnit)
	if err != nil {
		h.logger.Error("create drink", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create drink")
		return
	}
	h.broadcast("created", d.ID)
	writeJSON(w, http.StatusCreated, d)
}

// Update handles PUT /api/drinks/{id} (admin)
func (h *DrinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.DrinkUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name cannot be empty")
		return
	}
	if req.Category != nil && strings.TrimSpace(*req.Category) == "" {
		writeError(w, http.StatusBadRequest, "category cannot be empty")
		return
	}
	if (req.LitersPerUnit != nil && *req.LitersPerUnit <= 0) ||
		(req.KcalPerUnit != nil && *req.KcalPerUnit < 0) ||
		(req.EurPerUnit != nil && *req.EurPerUnit < 0) {
		writeError(w, http.StatusBadRequest, "liters_per_unit must be positive and kcal/eur not negative")
		return
	}

	d, err := h.drinks.Update(r.PathValue("id"), req)
	if err != nil {
		h.logger.Error("update drink", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update drink")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "drink not found")
		return
	}
	h.broadcast("updated", d.ID)
	writeJSON(w, http.StatusOK, d)
}

// Deactivate handles POST /api/drinks/{id}/deactivate (admin)
func (h *DrinkHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := h.drinks.GetByID(id)
	if err != nil {
		h.logger.Error("get drink", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get drink")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "drink not found")
		return
	}
	if err := h.drinks.Deactivate(id); err != nil {
		h.logger.Error("deactivate drink", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to deactivate drink")
		return
	}
	h.broadcast("deactivated", id)
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/drinks/{id} (admin)
func (h *DrinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, err := h.drinks.GetByID(id)
	if err != nil {
		h.logger.Error("get drink", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get drink")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "drink not found")
		return
	}

	err = h.drinks.Delete(id)
	if errors.Is(err, store.ErrInUse) {
		writeError(w, http.StatusConflict, "drink has consumptions; deactivate it instead")
		return
	}
	if err != nil {
		h.logger.Error("delete drink", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete drink")
		return
	}
	h.broadcast("deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
