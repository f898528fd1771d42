package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dstclair/fanpulse/internal/model"
	"github.com/dstclair/fanpulse/internal/scoring"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

type LeaderboardHandler struct {
	leaderboard *scoring.LeaderboardService
	logger      *slog.Logger
}

func NewLeaderboardHandler(lb *scoring.LeaderboardService, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: lb, logger: logger}
}

// Get handles GET /api/leaderboard?scope_type=&scope_id=&limit=
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	scopeType := r.URL.Query().Get("scope_type")
	scopeID := r.URL.Query().Get("scope_id")

	switch scopeType {
	case "", model.ScopeGlobal:
		scopeType = model.ScopeGlobal
		scopeID = model.GlobalScopeID
	case model.ScopeEvent, model.ScopePhase:
		if scopeID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scope_id is required for " + scopeType + " scope"})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scope_type must be global, event, or phase"})
		return
	}

	limit := defaultLeaderboardLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	entries, err := h.leaderboard.Top(r.Context(), scopeType, scopeID, limit)
	if err != nil {
		h.logger.Error("leaderboard query", "scope_type", scopeType, "scope_id", scopeID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load leaderboard"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"scope_type": scopeType,
		"scope_id":   scopeID,
		"entries":    entries,
	})
}
