package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dstclair/fanpulse/internal/model"
	"github.com/dstclair/fanpulse/internal/store"
)

type AchievementHandler struct {
	achievements *store.AchievementStore
	logger       *slog.Logger
}

func NewAchievementHandler(achievements *store.AchievementStore, logger *slog.Logger) *AchievementHandler {
	return &AchievementHandler{achievements: achievements, logger: logger}
}

type achievementRequest struct {
	Code        string         `json:"code"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Criteria    model.Criteria `json:"criteria"`
	PointsBonus int            `json:"points_bonus"`
}

// Create handles POST /api/admin/achievements. Criteria are validated here so
// a bad definition can never reach the evaluator.
func (h *AchievementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req achievementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code and name are required"})
		return
	}
	if req.PointsBonus < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points_bonus must not be negative"})
		return
	}
	if err := req.Criteria.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid criteria: " + err.Error()})
		return
	}

	def, err := h.achievements.CreateDefinition(r.Context(), &model.AchievementDefinition{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Criteria:    req.Criteria,
		PointsBonus: req.PointsBonus,
		Active:      true,
	})
	if err != nil {
		h.logger.Error("create achievement definition", "code", req.Code, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create achievement"})
		return
	}

	writeJSON(w, http.StatusCreated, def)
}

// List handles GET /api/admin/achievements
func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	defs, err := h.achievements.ListDefinitions(r.Context())
	if err != nil {
		h.logger.Error("list achievement definitions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list achievements"})
		return
	}

	writeJSON(w, http.StatusOK, defs)
}

// Deactivate handles DELETE /api/admin/achievements/{id}. Earned achievements
// are kept; the definition just stops being evaluated.
func (h *AchievementHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.achievements.DeactivateDefinition(r.Context(), id); err != nil {
		h.logger.Error("deactivate achievement definition", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to deactivate achievement"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
