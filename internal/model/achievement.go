package model

import "time"

// Criterion types understood by the achievement engine.
const (
	CriterionScoreThreshold     = "score_threshold"
	CriterionLevelThreshold     = "level_threshold"
	CriterionActivityCount      = "activity_count"
	CriterionActivityVariety    = "activity_variety"
	CriterionTimeBased          = "time_based"
	CriterionStreak             = "streak"
	CriterionProgressCompletion = "progress_completion"
	CriterionSocialRanking      = "social_ranking"
	CriterionPerfectScore       = "perfect_score"
	CriterionFirstAchievement   = "first_achievement"
)

// Criteria is the declarative condition attached to an achievement definition.
// Exactly one shape applies per node: either Type names a single condition, or
// Conditions holds sub-criteria combined with Logic ("AND" by default, or "OR").
// Which of the remaining fields are meaningful depends on Type.
type Criteria struct {
	Type string `json:"type,omitempty"`

	Threshold          int      `json:"threshold,omitempty"`
	Level              int      `json:"level,omitempty"`
	ActivityType       string   `json:"activity_type,omitempty"`
	Count              int      `json:"count,omitempty"`
	Timeframe          string   `json:"timeframe,omitempty"`
	ActivityTypes      []string `json:"activity_types,omitempty"`
	MinCountEach       int      `json:"min_count_each,omitempty"`
	ConsecutivePeriods int      `json:"consecutive_periods,omitempty"`
	Period             string   `json:"period,omitempty"`
	Events             int      `json:"events,omitempty"`
	Granularity        string   `json:"granularity,omitempty"`
	Metric             string   `json:"metric,omitempty"`
	MaxPosition        int      `json:"max_position,omitempty"`
	TopPercent         float64  `json:"top_percent,omitempty"`

	Conditions []Criteria `json:"conditions,omitempty"`
	Logic      string     `json:"logic,omitempty"`
}

// AchievementDefinition describes one unlockable achievement.
type AchievementDefinition struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Criteria    Criteria  `json:"criteria"`
	PointsBonus int       `json:"points_bonus"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserAchievement records a single unlock. The (user, achievement) pair is created
// at most once and never mutated.
type UserAchievement struct {
	UserID        string    `json:"user_id"`
	AchievementID int64     `json:"achievement_id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	PointsBonus   int       `json:"points_bonus"`
	CreatedAt     time.Time `json:"created_at"`
}
