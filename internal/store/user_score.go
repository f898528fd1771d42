package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dstclair/fanpulse/internal/level"
	"github.com/dstclair/fanpulse/internal/model"
)

// UserScoreStore owns the user_scores table. total_score is only ever written by
// AddPoints; everything else is read-only or touches the stats column.
type UserScoreStore struct {
	db *sql.DB
}

func NewUserScoreStore(db *sql.DB) *UserScoreStore {
	return &UserScoreStore{db: db}
}

// addPointsQuery upserts one scope row in a single statement: a fresh row starts
// at the award's points, an existing row gets the points added and its level
// recomputed from the same threshold table the Go calculator uses. The CASE
// expression is generated from level.Thresholds so the two can never disagree.
var addPointsQuery = `
	INSERT INTO user_scores (user_id, scope_type, scope_id, total_score, level, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (user_id, scope_type, scope_id) DO UPDATE SET
		total_score = user_scores.total_score + excluded.total_score,
		level = ` + level.SQLCase("user_scores.total_score + excluded.total_score") + `,
		updated_at = excluded.updated_at
	RETURNING total_score, level
`

// AddPoints atomically adds points to one (user, scope) row and returns the
// post-update total and level. There is no separate read: concurrent awards to
// the same scope serialize on this single statement and neither increment can
// be lost.
func (s *UserScoreStore) AddPoints(ctx context.Context, tx *sql.Tx, userID, scopeType, scopeID string, points int) (*model.UserScore, error) {
	us := &model.UserScore{
		UserID:    userID,
		ScopeType: scopeType,
		ScopeID:   scopeID,
		UpdatedAt: time.Now().UTC(),
	}

	err := tx.QueryRowContext(ctx, addPointsQuery,
		userID, scopeType, scopeID, points, level.ForScore(points), us.UpdatedAt,
	).Scan(&us.TotalScore, &us.Level)
	if err != nil {
		return nil, fmt.Errorf("add points (%s/%s): %w", scopeType, scopeID, err)
	}
	return us, nil
}

const scoreCols = `user_id, scope_type, scope_id, total_score, level, stats, updated_at`

func scanUserScore(scanner interface{ Scan(...any) error }) (*model.UserScore, error) {
	var us model.UserScore
	var stats sql.NullString

	err := scanner.Scan(&us.UserID, &us.ScopeType, &us.ScopeID, &us.TotalScore,
		&us.Level, &stats, &us.UpdatedAt)
	if err != nil {
		return nil, err
	}

	us.Stats = stats.String
	return &us, nil
}

// Get returns the user's row for one scope, or nil if none exists.
func (s *UserScoreStore) Get(ctx context.Context, userID, scopeType, scopeID string) (*model.UserScore, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scoreCols+` FROM user_scores WHERE user_id = ? AND scope_type = ? AND scope_id = ?`,
		userID, scopeType, scopeID)

	us, err := scanUserScore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user score: %w", err)
	}
	return us, nil
}

// ListByUser returns all of a user's scope rows.
func (s *UserScoreStore) ListByUser(ctx context.Context, userID string) ([]model.UserScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoreCols+` FROM user_scores WHERE user_id = ? ORDER BY scope_type, scope_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user scores: %w", err)
	}
	defer rows.Close()

	var scores []model.UserScore
	for rows.Next() {
		us, err := scanUserScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user score: %w", err)
		}
		scores = append(scores, *us)
	}
	return scores, rows.Err()
}

// UpdateStats replaces the stats blob on the user's global row. The streak
// tracker is the only caller.
func (s *UserScoreStore) UpdateStats(ctx context.Context, userID, stats string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_scores SET stats = ?, updated_at = ? WHERE user_id = ? AND scope_type = ? AND scope_id = ?`,
		stats, time.Now().UTC(), userID, model.ScopeGlobal, model.GlobalScopeID)
	if err != nil {
		return fmt.Errorf("update stats: %w", err)
	}
	return nil
}

// GetPosition returns the user's 1-based rank within a scope by descending
// total score, or 0 if the user has no row there.
func (s *UserScoreStore) GetPosition(ctx context.Context, userID, scopeType, scopeID string) (int, error) {
	var position int
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM user_scores o
		         WHERE o.scope_type = u.scope_type AND o.scope_id = u.scope_id
		           AND o.total_score > u.total_score) + 1
		 FROM user_scores u
		 WHERE u.user_id = ? AND u.scope_type = ? AND u.scope_id = ?`,
		userID, scopeType, scopeID,
	).Scan(&position)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get position: %w", err)
	}
	return position, nil
}

// CountInScope returns how many users hold a row in the scope.
func (s *UserScoreStore) CountInScope(ctx context.Context, scopeType, scopeID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_scores WHERE scope_type = ? AND scope_id = ?`,
		scopeType, scopeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count scope: %w", err)
	}
	return count, nil
}

// GetLeaderboard returns the top-N rows of a scope, descending, with 1-based
// ranks. Ties share a rank.
func (s *UserScoreStore) GetLeaderboard(ctx context.Context, scopeType, scopeID string, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT RANK() OVER (ORDER BY total_score DESC), user_id, total_score, level
		 FROM user_scores WHERE scope_type = ? AND scope_id = ?
		 ORDER BY total_score DESC, user_id ASC
		 LIMIT ?`,
		scopeType, scopeID, limit)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.UserID, &e.TotalScore, &e.Level); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
