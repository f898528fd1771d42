package model

import "time"

// Scope types for accumulated score partitions.
const (
	ScopeGlobal = "global"
	ScopeEvent  = "event"
	ScopePhase  = "phase"
)

// GlobalScopeID is the scope_id used for the single global partition.
const GlobalScopeID = "all"

// UserScore is one user's running total within one scope. total_score only ever
// grows, and only through UserScoreStore.AddPoints — no other code path may write it.
type UserScore struct {
	UserID     string    `json:"user_id"`
	ScopeType  string    `json:"scope_type"`
	ScopeID    string    `json:"scope_id"`
	TotalScore int       `json:"total_score"`
	Level      int       `json:"level"`
	Stats      string    `json:"stats,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StreakStats is the snapshot written into the global UserScore stats column after
// every successful award.
type StreakStats struct {
	DailyCurrent  int       `json:"daily_current"`
	DailyLongest  int       `json:"daily_longest"`
	WeeklyCurrent int       `json:"weekly_current"`
	WeeklyLongest int       `json:"weekly_longest"`
	LastUpdated   time.Time `json:"last_updated"`
}

// LeaderboardEntry is one row of a scope leaderboard. Rank is 1-based; ties share
// a rank.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"user_id"`
	TotalScore int    `json:"total_score"`
	Level      int    `json:"level"`
}
