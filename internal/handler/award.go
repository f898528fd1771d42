package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dstclair/fanpulse/internal/model"
	"github.com/dstclair/fanpulse/internal/scoring"
)

type AwardHandler struct {
	service *scoring.Service
	logger  *slog.Logger
}

func NewAwardHandler(svc *scoring.Service, logger *slog.Logger) *AwardHandler {
	return &AwardHandler{service: svc, logger: logger}
}

type awardRequest struct {
	UserID        string         `json:"user_id"`
	ActivityType  string         `json:"activity_type"`
	ReferenceType string         `json:"reference_type"`
	ReferenceID   string         `json:"reference_id"`
	EventID       *string        `json:"event_id,omitempty"`
	ChapterID     *string        `json:"chapter_id,omitempty"`
	CardIndex     *int           `json:"card_index,omitempty"`
	Phase         *string        `json:"phase,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Award handles POST /api/awards. Expected failures (no rule, daily cap,
// duplicate) come back as 200 with success=false so clients treat them as
// outcomes, not errors.
func (h *AwardHandler) Award(w http.ResponseWriter, r *http.Request) {
	var req awardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	req.ActivityType = strings.TrimSpace(req.ActivityType)
	if req.UserID == "" || req.ActivityType == "" || req.ReferenceType == "" || req.ReferenceID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "user_id, activity_type, reference_type, and reference_id are required",
		})
		return
	}

	ac := model.AwardContext{
		ActivityType:  req.ActivityType,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		EventID:       req.EventID,
		ChapterID:     req.ChapterID,
		CardIndex:     req.CardIndex,
		Phase:         req.Phase,
		Metadata:      req.Metadata,
	}

	result, err := h.service.Award(r.Context(), req.UserID, ac)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process award"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}
