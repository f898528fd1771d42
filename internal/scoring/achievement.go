package scoring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dstclair/fanpulse/internal/level"
	"github.com/dstclair/fanpulse/internal/model"
	"github.com/dstclair/fanpulse/internal/store"
)

// ActivityAchievementBonus is the activity type of the synthetic score event
// recorded when an achievement's point bonus is granted.
const ActivityAchievementBonus = "achievement_bonus"

// AchievementEngine evaluates achievement criteria against a user's history and
// grants unlocks. Each grant (and its point bonus) commits in its own small
// transaction so two awards racing past the same threshold are both safe: the
// unlock row is insert-or-ignore and the bonus is guarded by a fixed
// idempotency key.
type AchievementEngine struct {
	db           *sql.DB
	events       *store.ScoreEventStore
	scores       *store.UserScoreStore
	achievements *store.AchievementStore
	streaks      *StreakTracker
	leaderboard  *LeaderboardService
	logger       *slog.Logger
	loc          *time.Location
	now          func() time.Time
}

func NewAchievementEngine(db *sql.DB, events *store.ScoreEventStore, scores *store.UserScoreStore,
	achievements *store.AchievementStore, streaks *StreakTracker, leaderboard *LeaderboardService, logger *slog.Logger) *AchievementEngine {
	return &AchievementEngine{
		db:           db,
		events:       events,
		scores:       scores,
		achievements: achievements,
		streaks:      streaks,
		leaderboard:  leaderboard,
		logger:       logger,
		loc:          time.Local,
		now:          time.Now,
	}
}

// Evaluate checks every active definition the user does not already hold and
// grants the satisfied ones. Returns only the achievements newly granted by
// this call. A failure evaluating one definition is logged and does not stop
// the rest.
func (e *AchievementEngine) Evaluate(ctx context.Context, userID string, totalScore int) ([]model.UserAchievement, error) {
	defs, err := e.achievements.ListActiveDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("evaluate achievements: %w", err)
	}
	held, err := e.achievements.HeldIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("evaluate achievements: %w", err)
	}

	var granted []model.UserAchievement
	for _, def := range defs {
		if held[def.ID] {
			continue
		}

		ok, err := e.satisfied(ctx, userID, totalScore, def.Criteria)
		if err != nil {
			e.logger.Error("evaluate criteria", "achievement", def.Code, "user_id", userID, "error", err)
			continue
		}
		if !ok {
			continue
		}

		ua, err := e.grant(ctx, userID, &def)
		if err != nil {
			e.logger.Error("grant achievement", "achievement", def.Code, "user_id", userID, "error", err)
			continue
		}
		if ua != nil {
			granted = append(granted, *ua)
		}
	}
	return granted, nil
}

// grant inserts the unlock and, when this call created it, awards the point
// bonus through the same scoped-aggregation path the regular pipeline uses.
// Returns nil when a concurrent evaluation won the race.
func (e *AchievementEngine) grant(ctx context.Context, userID string, def *model.AchievementDefinition) (*model.UserAchievement, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin grant tx: %w", err)
	}
	defer tx.Rollback()

	inserted, err := e.achievements.Grant(ctx, tx, userID, def.ID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return nil, nil
	}

	if def.PointsBonus > 0 {
		ev := &model.ScoreEvent{
			UserID:         userID,
			ActivityType:   ActivityAchievementBonus,
			Points:         def.PointsBonus,
			ReferenceType:  "achievement",
			ReferenceID:    def.Code,
			IdempotencyKey: bonusIdempotencyKey(def.ID),
		}
		err := e.events.Insert(ctx, tx, ev)
		switch {
		case errors.Is(err, store.ErrDuplicateEvent):
			// Bonus already granted by an earlier attempt; the unlock row is
			// all this transaction adds.
		case err != nil:
			return nil, err
		default:
			if _, err := e.scores.AddPoints(ctx, tx, userID, model.ScopeGlobal, model.GlobalScopeID, def.PointsBonus); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit grant: %w", err)
	}

	return &model.UserAchievement{
		UserID:        userID,
		AchievementID: def.ID,
		Code:          def.Code,
		Name:          def.Name,
		PointsBonus:   def.PointsBonus,
		CreatedAt:     e.now().UTC(),
	}, nil
}

// satisfied evaluates a criteria tree: a condition group combines its
// sub-conditions with AND (default) or OR, everything else dispatches to the
// single-condition evaluator.
func (e *AchievementEngine) satisfied(ctx context.Context, userID string, totalScore int, c model.Criteria) (bool, error) {
	if len(c.Conditions) == 0 {
		return e.evalSingle(ctx, userID, totalScore, c)
	}

	or := c.Logic == "OR"
	for _, sub := range c.Conditions {
		ok, err := e.evalSingle(ctx, userID, totalScore, sub)
		if err != nil {
			return false, err
		}
		if or && ok {
			return true, nil
		}
		if !or && !ok {
			return false, nil
		}
	}
	return !or, nil
}

func (e *AchievementEngine) evalSingle(ctx context.Context, userID string, totalScore int, c model.Criteria) (bool, error) {
	now := e.now().In(e.loc)

	switch c.Type {
	case model.CriterionScoreThreshold:
		return totalScore >= c.Threshold, nil

	case model.CriterionLevelThreshold:
		return level.ForScore(totalScore) >= c.Level, nil

	case model.CriterionActivityCount:
		since := timeframeStart(c.Timeframe, now)
		count, err := e.events.CountByActivity(ctx, userID, c.ActivityType, since, nil)
		if err != nil {
			return false, err
		}
		return count >= c.Count, nil

	case model.CriterionActivityVariety:
		for _, at := range c.ActivityTypes {
			count, err := e.events.CountByActivity(ctx, userID, at, nil, nil)
			if err != nil {
				return false, err
			}
			if count < c.MinCountEach {
				return false, nil
			}
		}
		return true, nil

	case model.CriterionTimeBased:
		if c.ConsecutivePeriods > 0 {
			g := GranularityDaily
			if c.Period == "week" {
				g = GranularityWeekly
			}
			st, err := e.streaks.Compute(ctx, userID, g)
			if err != nil {
				return false, err
			}
			return st.Current >= c.ConsecutivePeriods, nil
		}
		since := timeframeStart(c.Timeframe, now)
		count, err := e.events.CountSince(ctx, userID, *since)
		if err != nil {
			return false, err
		}
		return count >= c.Events, nil

	case model.CriterionStreak:
		st, err := e.streaks.Compute(ctx, userID, Granularity(c.Granularity))
		if err != nil {
			return false, err
		}
		return st.Current >= c.Threshold, nil

	case model.CriterionProgressCompletion:
		var count int
		var err error
		if c.Metric == "chapters" {
			count, err = e.events.CountDistinctChapters(ctx, userID)
		} else {
			count, err = e.events.CountAll(ctx, userID)
		}
		if err != nil {
			return false, err
		}
		return count >= c.Threshold, nil

	case model.CriterionSocialRanking:
		pos, err := e.leaderboard.Position(ctx, userID, model.ScopeGlobal, model.GlobalScopeID)
		if err != nil {
			return false, err
		}
		if pos == 0 {
			return false, nil
		}
		if c.MaxPosition > 0 {
			return pos <= c.MaxPosition, nil
		}
		total, err := e.leaderboard.ScopeSize(ctx, model.ScopeGlobal, model.GlobalScopeID)
		if err != nil {
			return false, err
		}
		return float64(pos)/float64(total)*100 <= c.TopPercent, nil

	case model.CriterionPerfectScore:
		count, err := e.events.CountCorrectQuizAnswers(ctx, userID)
		if err != nil {
			return false, err
		}
		return count >= c.Threshold, nil

	case model.CriterionFirstAchievement:
		return e.events.HasActivity(ctx, userID, c.ActivityType)

	default:
		return false, fmt.Errorf("unknown criterion type %q", c.Type)
	}
}

// timeframeStart maps a timeframe name to its inclusive lower bound, or nil for
// an unbounded (lifetime) window.
func timeframeStart(tf string, now time.Time) *time.Time {
	var start time.Time
	switch tf {
	case model.TimeframeToday:
		start = startOfDay(now)
	case model.TimeframeThisWeek:
		start = startOfWeek(now)
	case model.TimeframeThisMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	case model.TimeframeLast7Days:
		start = now.AddDate(0, 0, -7)
	case model.TimeframeLast30Days:
		start = now.AddDate(0, 0, -30)
	default:
		return nil
	}
	return &start
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the Monday of t's ISO week.
func startOfWeek(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return startOfDay(t).AddDate(0, 0, -(wd - 1))
}
