package model

import "time"

// ScoringRule maps an activity to a point value. Optional filter fields narrow the
// rule to a specific event, phase, chapter, or card; a rule with every filter unset
// is the general fallback for its activity type.
type ScoringRule struct {
	ID           int64     `json:"id"`
	ActivityType string    `json:"activity_type"`
	Points       int       `json:"points"`
	EventID      *string   `json:"event_id,omitempty"`
	Phase        *string   `json:"phase,omitempty"`
	ChapterID    *string   `json:"chapter_id,omitempty"`
	CardIndex    *int      `json:"card_index,omitempty"`
	MaxPerDay    *int      `json:"max_per_day,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}
