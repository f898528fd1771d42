package model

import "time"

// ScoreEvent is the immutable record of a single point award. Rows are append-only:
// never updated, never deleted. The (user_id, idempotency_key) pair is unique and is
// the only guard against awarding the same logical activity twice.
type ScoreEvent struct {
	ID             int64          `json:"id"`
	UserID         string         `json:"user_id"`
	ActivityType   string         `json:"activity_type"`
	Points         int            `json:"points"`
	ReferenceType  string         `json:"reference_type"`
	ReferenceID    string         `json:"reference_id"`
	EventID        *string        `json:"event_id,omitempty"`
	ChapterID      *string        `json:"chapter_id,omitempty"`
	CardIndex      *int           `json:"card_index,omitempty"`
	Phase          *string        `json:"phase,omitempty"`
	IdempotencyKey string         `json:"idempotency_key"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// AwardContext describes the activity being scored. It is the input to Award.
type AwardContext struct {
	ActivityType  string         `json:"activity_type"`
	ReferenceType string         `json:"reference_type"`
	ReferenceID   string         `json:"reference_id"`
	EventID       *string        `json:"event_id,omitempty"`
	ChapterID     *string        `json:"chapter_id,omitempty"`
	CardIndex     *int           `json:"card_index,omitempty"`
	Phase         *string        `json:"phase,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// AwardResult is what Award reports back to the caller. Expected failures
// (no rule, cap reached, duplicate) come back with Success=false and an Error
// string rather than a Go error.
type AwardResult struct {
	Success         bool              `json:"success"`
	PointsAwarded   int               `json:"points_awarded"`
	NewTotalScore   int               `json:"new_total_score"`
	NewLevel        int               `json:"new_level"`
	NewAchievements []UserAchievement `json:"new_achievements"`
	Error           string            `json:"error,omitempty"`
}
