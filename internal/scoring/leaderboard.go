package scoring

import (
	"context"

	"github.com/dstclair/fanpulse/internal/model"
	"github.com/dstclair/fanpulse/internal/store"
)

// LeaderboardService answers ranking queries over scoped totals. It is a thin
// view over the user_scores table; all the ordering work happens in the store.
type LeaderboardService struct {
	scores *store.UserScoreStore
}

func NewLeaderboardService(scores *store.UserScoreStore) *LeaderboardService {
	return &LeaderboardService{scores: scores}
}

// Position returns the user's 1-based rank within a scope, or 0 if the user
// has no score there.
func (l *LeaderboardService) Position(ctx context.Context, userID, scopeType, scopeID string) (int, error) {
	return l.scores.GetPosition(ctx, userID, scopeType, scopeID)
}

// Top returns the scope's top-N entries, descending, with 1-based ranks.
func (l *LeaderboardService) Top(ctx context.Context, scopeType, scopeID string, limit int) ([]model.LeaderboardEntry, error) {
	return l.scores.GetLeaderboard(ctx, scopeType, scopeID, limit)
}

// ScopeSize returns how many users hold a score in the scope.
func (l *LeaderboardService) ScopeSize(ctx context.Context, scopeType, scopeID string) (int, error) {
	return l.scores.CountInScope(ctx, scopeType, scopeID)
}
