package push

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dstclair/fanpulse/internal/model"
	"github.com/dstclair/fanpulse/internal/scoring"
	"github.com/dstclair/fanpulse/internal/store"
)

const sentRetention = 30 * 24 * time.Hour

// Scheduler sends streak-at-risk reminders: one push per day, at the
// configured local hour, to each subscribed user whose daily streak is alive
// but who has not earned points yet today.
type Scheduler struct {
	mu       sync.RWMutex
	notifier *Notifier
	subs     *store.PushStore
	events   *store.ScoreEventStore
	streaks  *scoring.StreakTracker
	hour     int
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewScheduler creates a reminder scheduler. hour is the local hour of day
// (0-23) reminders fire at.
func NewScheduler(notifier *Notifier, subs *store.PushStore, events *store.ScoreEventStore,
	streaks *scoring.StreakTracker, hour int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		notifier: notifier,
		subs:     subs,
		events:   events,
		streaks:  streaks,
		hour:     hour,
		interval: 60 * time.Second,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	if now.Hour() != s.hour {
		return
	}

	s.sendStreakReminders(ctx, now)

	if err := s.subs.CleanupSent(ctx, now.Add(-sentRetention)); err != nil {
		s.logger.Error("cleanup sent notifications", "error", err)
	}
}

func (s *Scheduler) sendStreakReminders(ctx context.Context, now time.Time) {
	userIDs, err := s.subs.ListUserIDs(ctx)
	if err != nil {
		s.logger.Error("list subscribed users", "error", err)
		return
	}

	refID := now.Format("2006-01-02")
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	for _, userID := range userIDs {
		sent, err := s.subs.WasSent(ctx, userID, model.NotifTypeStreakReminder, refID)
		if err != nil {
			s.logger.Error("check sent reminder", "user_id", userID, "error", err)
			continue
		}
		if sent {
			continue
		}

		state, err := s.streaks.Compute(ctx, userID, scoring.GranularityDaily)
		if err != nil {
			s.logger.Error("compute streak", "user_id", userID, "error", err)
			continue
		}
		if state.Current < 1 {
			continue
		}

		todayCount, err := s.events.CountSince(ctx, userID, dayStart.UTC())
		if err != nil {
			s.logger.Error("count today's events", "user_id", userID, "error", err)
			continue
		}
		if todayCount > 0 {
			// Streak already extended today
			continue
		}

		payload := Payload{
			Type:  model.NotifTypeStreakReminder,
			Title: "Don't break your streak!",
			Body:  fmt.Sprintf("Your %d-day streak ends at midnight. Earn some points today!", state.Current),
			Tag:   "streak-reminder",
			Data: map[string]any{
				"daily_current": state.Current,
			},
		}
		s.notifier.pushToUser(ctx, userID, payload)

		if err := s.subs.RecordSent(ctx, userID, model.NotifTypeStreakReminder, refID); err != nil {
			s.logger.Error("record sent reminder", "user_id", userID, "error", err)
		}
	}
}
