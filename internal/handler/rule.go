package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dstclair/fanpulse/internal/model"
	"github.com/dstclair/fanpulse/internal/store"
)

type RuleHandler struct {
	rules  *store.ScoringRuleStore
	logger *slog.Logger
}

func NewRuleHandler(rules *store.ScoringRuleStore, logger *slog.Logger) *RuleHandler {
	return &RuleHandler{rules: rules, logger: logger}
}

type ruleRequest struct {
	ActivityType string  `json:"activity_type"`
	Points       int     `json:"points"`
	EventID      *string `json:"event_id,omitempty"`
	Phase        *string `json:"phase,omitempty"`
	ChapterID    *string `json:"chapter_id,omitempty"`
	CardIndex    *int    `json:"card_index,omitempty"`
	MaxPerDay    *int    `json:"max_per_day,omitempty"`
}

// Create handles POST /api/admin/rules
func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.ActivityType = strings.TrimSpace(req.ActivityType)
	if req.ActivityType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "activity_type is required"})
		return
	}
	if req.Points < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points must not be negative"})
		return
	}
	if req.MaxPerDay != nil && *req.MaxPerDay < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "max_per_day must be at least 1"})
		return
	}

	rule, err := h.rules.Create(r.Context(), &model.ScoringRule{
		ActivityType: req.ActivityType,
		Points:       req.Points,
		EventID:      req.EventID,
		Phase:        req.Phase,
		ChapterID:    req.ChapterID,
		CardIndex:    req.CardIndex,
		MaxPerDay:    req.MaxPerDay,
		Active:       true,
	})
	if err != nil {
		h.logger.Error("create scoring rule", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create rule"})
		return
	}

	writeJSON(w, http.StatusCreated, rule)
}

// List handles GET /api/admin/rules
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List(r.Context())
	if err != nil {
		h.logger.Error("list scoring rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rules"})
		return
	}

	writeJSON(w, http.StatusOK, rules)
}

// Get handles GET /api/admin/rules/{id}
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	rule, err := h.rules.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("get scoring rule", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get rule"})
		return
	}
	if rule == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "rule not found"})
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// Deactivate handles DELETE /api/admin/rules/{id}. Rules are never removed,
// only deactivated, so historical awards stay explainable.
func (h *RuleHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.rules.Deactivate(r.Context(), id); err != nil {
		h.logger.Error("deactivate scoring rule", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to deactivate rule"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
