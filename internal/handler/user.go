package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dstclair/fanpulse/internal/model"
	"github.com/dstclair/fanpulse/internal/scoring"
	"github.com/dstclair/fanpulse/internal/store"
)

type UserHandler struct {
	scores       *store.UserScoreStore
	achievements *store.AchievementStore
	streaks      *scoring.StreakTracker
	logger       *slog.Logger
}

func NewUserHandler(scores *store.UserScoreStore, achievements *store.AchievementStore,
	streaks *scoring.StreakTracker, logger *slog.Logger) *UserHandler {
	return &UserHandler{scores: scores, achievements: achievements, streaks: streaks, logger: logger}
}

// Score handles GET /api/users/{id}/score. A user with no awards yet gets a
// zeroed global row rather than a 404.
func (h *UserHandler) Score(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	global, err := h.scores.Get(r.Context(), userID, model.ScopeGlobal, model.GlobalScopeID)
	if err != nil {
		h.logger.Error("get global score", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load score"})
		return
	}
	if global == nil {
		// No awards yet; report the zeroed starting state.
		global = &model.UserScore{
			UserID:    userID,
			ScopeType: model.ScopeGlobal,
			ScopeID:   model.GlobalScopeID,
			Level:     1,
		}
	}

	position, err := h.scores.GetPosition(r.Context(), userID, model.ScopeGlobal, model.GlobalScopeID)
	if err != nil {
		h.logger.Error("get position", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load score"})
		return
	}

	scopes, err := h.scores.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list user scores", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load score"})
		return
	}

	var stats *model.StreakStats
	if global.Stats != "" {
		stats = &model.StreakStats{}
		if err := json.Unmarshal([]byte(global.Stats), stats); err != nil {
			h.logger.Warn("decode streak stats", "user_id", userID, "error", err)
			stats = nil
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"total_score": global.TotalScore,
		"level":       global.Level,
		"position":    position,
		"stats":       stats,
		"scopes":      scopes,
	})
}

// Achievements handles GET /api/users/{id}/achievements
func (h *UserHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	earned, err := h.achievements.ListUserAchievements(r.Context(), userID)
	if err != nil {
		h.logger.Error("list user achievements", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load achievements"})
		return
	}

	writeJSON(w, http.StatusOK, earned)
}

// Streaks handles GET /api/users/{id}/streaks
func (h *UserHandler) Streaks(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	daily, err := h.streaks.Compute(r.Context(), userID, scoring.GranularityDaily)
	if err != nil {
		h.logger.Error("compute daily streak", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute streaks"})
		return
	}

	weekly, err := h.streaks.Compute(r.Context(), userID, scoring.GranularityWeekly)
	if err != nil {
		h.logger.Error("compute weekly streak", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute streaks"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"daily":   daily,
		"weekly":  weekly,
	})
}
