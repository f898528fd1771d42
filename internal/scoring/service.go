// Package scoring implements the fan scoring and achievement engine: the award
// pipeline, streak tracking, achievement evaluation, and leaderboard queries.
// Award is the only entry point external callers use.
package scoring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dstclair/fanpulse/internal/model"
	"github.com/dstclair/fanpulse/internal/store"
)

// ScoreUpdateNote is handed to the notifier after every successful award.
type ScoreUpdateNote struct {
	UserID           string
	ActivityType     string
	PointsAwarded    int
	NewTotalScore    int
	NewLevel         int
	AchievementCount int
	Context          model.AwardContext
}

// AchievementNote is handed to the notifier for each newly granted achievement.
type AchievementNote struct {
	UserID      string
	Achievement model.UserAchievement
	TriggeredBy string
	Stats       model.StreakStats
	UnlockedAt  time.Time
}

// Notifier receives fire-and-forget notifications after a committed award.
// Implementations must never block the award path; failures are theirs to log.
type Notifier interface {
	NotifyScoreUpdate(ctx context.Context, n ScoreUpdateNote)
	NotifyAchievement(ctx context.Context, n AchievementNote)
}

// Service is the award orchestrator. It owns the transactional pipeline and
// composes the rule resolver, cap guard, event recorder, score aggregator,
// streak tracker, and achievement engine.
type Service struct {
	db       *sql.DB
	rules    *store.ScoringRuleStore
	events   *store.ScoreEventStore
	scores   *store.UserScoreStore
	streaks  *StreakTracker
	engine   *AchievementEngine
	notifier Notifier
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
}

// New wires a scoring service. notifier may be nil.
func New(db *sql.DB, rules *store.ScoringRuleStore, events *store.ScoreEventStore,
	scores *store.UserScoreStore, achievements *store.AchievementStore,
	notifier Notifier, logger *slog.Logger) *Service {

	streaks := NewStreakTracker(events, scores)
	leaderboard := NewLeaderboardService(scores)
	engine := NewAchievementEngine(db, events, scores, achievements, streaks,
		leaderboard, logger.With("component", "achievements"))

	return &Service{
		db:       db,
		rules:    rules,
		events:   events,
		scores:   scores,
		streaks:  streaks,
		engine:   engine,
		notifier: notifier,
		logger:   logger,
		loc:      time.Local,
		now:      time.Now,
	}
}

// Streaks exposes the streak tracker for read endpoints.
func (s *Service) Streaks() *StreakTracker { return s.streaks }

// Award runs the full pipeline for one scorable activity. Expected outcomes
// (no rule, cap reached, duplicate) come back as a failed AwardResult without
// an error; only unexpected store failures return a non-nil error. Streak
// recomputation, achievement evaluation, and notification dispatch run after
// the score commit and are best-effort: their failures are logged, never
// surfaced, and never undo the committed award.
func (s *Service) Award(ctx context.Context, userID string, ac model.AwardContext) (model.AwardResult, error) {
	points, globalScore, err := s.awardCore(ctx, userID, ac)
	if err != nil {
		var expected error
		for _, candidate := range []error{ErrNoRuleFound, ErrDailyCapReached, ErrDuplicateAward} {
			if errors.Is(err, candidate) {
				expected = candidate
				break
			}
		}
		if expected == nil {
			s.logger.Error("award failed", "user_id", userID, "activity", ac.ActivityType,
				"reference", ac.ReferenceID, "error", err)
			return model.AwardResult{Error: "internal error"}, err
		}
		return model.AwardResult{Error: expected.Error()}, nil
	}

	// Core award is committed. Everything below is best-effort.
	stats := s.recomputeStreaks(ctx, userID)

	achievements := []model.UserAchievement{}
	granted, err := s.engine.Evaluate(ctx, userID, globalScore.TotalScore)
	if err != nil {
		s.logger.Error("achievement evaluation failed", "user_id", userID, "error", err)
	} else {
		achievements = append(achievements, granted...)
	}

	// Bonus points may have moved the global total.
	if len(achievements) > 0 {
		if updated, err := s.scores.Get(ctx, userID, model.ScopeGlobal, model.GlobalScopeID); err == nil && updated != nil {
			globalScore = updated
		}
	}

	result := model.AwardResult{
		Success:         true,
		PointsAwarded:   points,
		NewTotalScore:   globalScore.TotalScore,
		NewLevel:        globalScore.Level,
		NewAchievements: achievements,
	}

	s.dispatchNotifications(userID, ac, result, stats)
	return result, nil
}

// awardCore is the transactional critical path: resolve rule, check the daily
// cap, record the event, and aggregate the points into every applicable scope.
// It returns the points awarded and the post-update global score row.
func (s *Service) awardCore(ctx context.Context, userID string, ac model.AwardContext) (int, *model.UserScore, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("begin award tx: %w", err)
	}
	defer tx.Rollback()

	rule, err := s.rules.Resolve(ctx, tx, ac)
	if err != nil {
		return 0, nil, err
	}
	if rule == nil {
		return 0, nil, fmt.Errorf("%w: %s", ErrNoRuleFound, ac.ActivityType)
	}

	if rule.MaxPerDay != nil {
		dayStart, dayEnd := dayBounds(s.now().In(s.loc))
		count, err := s.events.CountForDay(ctx, tx, userID, ac.ActivityType, dayStart, dayEnd)
		if err != nil {
			return 0, nil, err
		}
		if count >= *rule.MaxPerDay {
			return 0, nil, fmt.Errorf("%w: %s (%d/day)", ErrDailyCapReached, ac.ActivityType, *rule.MaxPerDay)
		}
	}

	ev := &model.ScoreEvent{
		UserID:         userID,
		ActivityType:   ac.ActivityType,
		Points:         rule.Points,
		ReferenceType:  ac.ReferenceType,
		ReferenceID:    ac.ReferenceID,
		EventID:        ac.EventID,
		ChapterID:      ac.ChapterID,
		CardIndex:      ac.CardIndex,
		Phase:          ac.Phase,
		IdempotencyKey: IdempotencyKey(ac),
		Metadata:       ac.Metadata,
	}
	if err := s.events.Insert(ctx, tx, ev); err != nil {
		if errors.Is(err, store.ErrDuplicateEvent) {
			return 0, nil, ErrDuplicateAward
		}
		return 0, nil, err
	}

	var globalScore *model.UserScore
	for _, scope := range scopesFor(ac) {
		us, err := s.scores.AddPoints(ctx, tx, userID, scope.Type, scope.ID, rule.Points)
		if err != nil {
			return 0, nil, err
		}
		if scope.Type == model.ScopeGlobal {
			globalScore = us
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("commit award: %w", err)
	}
	return rule.Points, globalScore, nil
}

type scope struct {
	Type string
	ID   string
}

// scopesFor lists the score partitions an award lands in: always global, plus
// the event and phase scopes when that context is present. Chapter context is
// recorded on the event but deliberately never aggregated into a scope.
func scopesFor(ac model.AwardContext) []scope {
	scopes := []scope{{model.ScopeGlobal, model.GlobalScopeID}}
	if ac.EventID != nil && *ac.EventID != "" {
		scopes = append(scopes, scope{model.ScopeEvent, *ac.EventID})
	}
	if ac.Phase != nil && *ac.Phase != "" {
		scopes = append(scopes, scope{model.ScopePhase, *ac.Phase})
	}
	return scopes
}

func (s *Service) recomputeStreaks(ctx context.Context, userID string) model.StreakStats {
	if err := s.streaks.Snapshot(ctx, userID); err != nil {
		s.logger.Error("streak snapshot failed", "user_id", userID, "error", err)
		return model.StreakStats{}
	}

	daily, err := s.streaks.Compute(ctx, userID, GranularityDaily)
	if err != nil {
		return model.StreakStats{}
	}
	weekly, _ := s.streaks.Compute(ctx, userID, GranularityWeekly)
	return model.StreakStats{
		DailyCurrent:  daily.Current,
		DailyLongest:  daily.Longest,
		WeeklyCurrent: weekly.Current,
		WeeklyLongest: weekly.Longest,
	}
}

func (s *Service) dispatchNotifications(userID string, ac model.AwardContext, result model.AwardResult, stats model.StreakStats) {
	if s.notifier == nil {
		return
	}

	// Detached from the request context: a slow push service must not hold the
	// caller, and cancellation of the request must not lose the notification.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	go func() {
		defer cancel()

		s.notifier.NotifyScoreUpdate(ctx, ScoreUpdateNote{
			UserID:           userID,
			ActivityType:     ac.ActivityType,
			PointsAwarded:    result.PointsAwarded,
			NewTotalScore:    result.NewTotalScore,
			NewLevel:         result.NewLevel,
			AchievementCount: len(result.NewAchievements),
			Context:          ac,
		})

		for _, ach := range result.NewAchievements {
			s.notifier.NotifyAchievement(ctx, AchievementNote{
				UserID:      userID,
				Achievement: ach,
				TriggeredBy: ac.ActivityType,
				Stats:       stats,
				UnlockedAt:  ach.CreatedAt,
			})
		}
	}()
}

// dayBounds returns the [start, end) wall-clock day containing t. The cap
// boundary follows the server's local midnight.
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := startOfDay(t)
	return start, start.AddDate(0, 0, 1)
}
