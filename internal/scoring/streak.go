package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dstclair/fanpulse/internal/model"
	"github.com/dstclair/fanpulse/internal/store"
)

// Granularity selects the calendar period a streak is counted over.
type Granularity string

const (
	GranularityDaily  Granularity = "daily"
	GranularityWeekly Granularity = "weekly"
)

// StreakState holds the two streak numbers for one granularity.
type StreakState struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// StreakTracker derives streak state from a user's score event history.
type StreakTracker struct {
	events *store.ScoreEventStore
	scores *store.UserScoreStore
	loc    *time.Location
	now    func() time.Time
}

func NewStreakTracker(events *store.ScoreEventStore, scores *store.UserScoreStore) *StreakTracker {
	return &StreakTracker{
		events: events,
		scores: scores,
		loc:    time.Local,
		now:    time.Now,
	}
}

// Compute returns the user's current and longest streak for a granularity.
// The current streak walks backward from now; if the present period has no
// activity yet, the walk starts at the prior period so a streak is not broken
// mid-day (or mid-week).
func (t *StreakTracker) Compute(ctx context.Context, userID string, g Granularity) (StreakState, error) {
	times, err := t.events.ListTimes(ctx, userID)
	if err != nil {
		return StreakState{}, fmt.Errorf("compute %s streak: %w", g, err)
	}
	return streakFromTimes(times, g, t.now().In(t.loc)), nil
}

// Snapshot recomputes both granularities and writes the result into the user's
// global score row. Runs after every successful award, best-effort.
func (t *StreakTracker) Snapshot(ctx context.Context, userID string) error {
	times, err := t.events.ListTimes(ctx, userID)
	if err != nil {
		return fmt.Errorf("snapshot streaks: %w", err)
	}

	now := t.now().In(t.loc)
	daily := streakFromTimes(times, GranularityDaily, now)
	weekly := streakFromTimes(times, GranularityWeekly, now)

	stats, err := json.Marshal(model.StreakStats{
		DailyCurrent:  daily.Current,
		DailyLongest:  daily.Longest,
		WeeklyCurrent: weekly.Current,
		WeeklyLongest: weekly.Longest,
		LastUpdated:   now.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode streak stats: %w", err)
	}

	if err := t.scores.UpdateStats(ctx, userID, string(stats)); err != nil {
		return fmt.Errorf("snapshot streaks: %w", err)
	}
	return nil
}

// periodIndex maps a time to an integer period so that consecutive calendar
// periods differ by exactly one. Days count from the Unix epoch; weeks are
// ISO weeks starting Monday, numbered by their Monday's day count.
func periodIndex(t time.Time, g Granularity) int {
	y, m, d := t.Date()
	day := int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
	if g == GranularityDaily {
		return day
	}

	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // Sunday belongs to the week started the previous Monday
	}
	monday := day - (wd - 1)
	return monday / 7
}

// streakFromTimes computes streak state from raw event times. Event times are
// interpreted in their own location; callers convert to the tracking timezone
// first.
func streakFromTimes(times []time.Time, g Granularity, now time.Time) StreakState {
	if len(times) == 0 {
		return StreakState{}
	}

	// Distinct active periods, descending.
	seen := make(map[int]bool, len(times))
	var periods []int
	for _, ts := range times {
		p := periodIndex(ts.In(now.Location()), g)
		if !seen[p] {
			seen[p] = true
			periods = append(periods, p)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(periods)))

	current := periodIndex(now, g)

	var state StreakState

	// Current streak: consecutive run ending at the present period, or at the
	// prior one when today (this week) has no activity yet.
	if periods[0] == current || periods[0] == current-1 {
		state.Current = 1
		for i := 1; i < len(periods); i++ {
			if periods[i] != periods[i-1]-1 {
				break
			}
			state.Current++
		}
	}

	// Longest run anywhere in the history.
	run := 1
	state.Longest = 1
	for i := 1; i < len(periods); i++ {
		if periods[i] == periods[i-1]-1 {
			run++
		} else {
			run = 1
		}
		if run > state.Longest {
			state.Longest = run
		}
	}

	return state
}
