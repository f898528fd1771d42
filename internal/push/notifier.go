package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dstclair/fanpulse/internal/model"
	"github.com/dstclair/fanpulse/internal/scoring"
	"github.com/dstclair/fanpulse/internal/store"
	"github.com/dstclair/fanpulse/internal/websocket"
)

// Notifier delivers post-award notifications over web push and the WebSocket
// hub. It implements scoring.Notifier; every method is fire-and-forget and
// logs its own failures.
type Notifier struct {
	service *Service
	subs    *store.PushStore
	hub     *websocket.Hub
	logger  *slog.Logger
}

// NewNotifier creates a Notifier. hub may be nil to disable broadcasts.
func NewNotifier(svc *Service, subs *store.PushStore, hub *websocket.Hub, logger *slog.Logger) *Notifier {
	return &Notifier{
		service: svc,
		subs:    subs,
		hub:     hub,
		logger:  logger,
	}
}

var _ scoring.Notifier = (*Notifier)(nil)

// NotifyScoreUpdate broadcasts the new score to connected clients and pushes
// it to the user's subscribed devices.
func (n *Notifier) NotifyScoreUpdate(ctx context.Context, note scoring.ScoreUpdateNote) {
	data := map[string]any{
		"activity_type":     note.ActivityType,
		"points_awarded":    note.PointsAwarded,
		"new_total_score":   note.NewTotalScore,
		"new_level":         note.NewLevel,
		"achievement_count": note.AchievementCount,
		"context":           note.Context,
	}

	if n.hub != nil {
		n.hub.Broadcast(websocket.NewMessage("score", "updated", note.UserID, data))
	}

	payload := Payload{
		Type:  model.NotifTypeScoreUpdate,
		Title: "Points earned!",
		Body:  fmt.Sprintf("+%d points — you're at %d (level %d)", note.PointsAwarded, note.NewTotalScore, note.NewLevel),
		Tag:   "score-update",
		Data:  data,
	}
	n.pushToUser(ctx, note.UserID, payload)
}

// NotifyAchievement announces a newly unlocked achievement, tagged with its
// celebration classification.
func (n *Notifier) NotifyAchievement(ctx context.Context, note scoring.AchievementNote) {
	celebration := Classify(note.Achievement.Code, note.Achievement.PointsBonus)
	data := map[string]any{
		"achievement":      note.Achievement,
		"triggered_by":     note.TriggeredBy,
		"stats":            note.Stats,
		"celebration_type": celebration,
		"unlocked_at":      note.UnlockedAt,
	}

	if n.hub != nil {
		n.hub.Broadcast(websocket.NewMessage("achievement", "earned", note.UserID, data))
	}

	payload := Payload{
		Type:  model.NotifTypeAchievement,
		Title: "Achievement unlocked!",
		Body:  fmt.Sprintf("%s (+%d bonus points)", note.Achievement.Name, note.Achievement.PointsBonus),
		Tag:   fmt.Sprintf("achievement-%d", note.Achievement.AchievementID),
		Data:  data,
	}
	n.pushToUser(ctx, note.UserID, payload)
}

// pushToUser sends the payload to every subscription the user has, dropping
// subscriptions the push service reports as gone.
func (n *Notifier) pushToUser(ctx context.Context, userID string, payload Payload) {
	subs, err := n.subs.ListByUser(ctx, userID)
	if err != nil {
		n.logger.Error("list push subscriptions", "user_id", userID, "error", err)
		return
	}

	for i := range subs {
		sub := &subs[i]
		if err := n.service.Send(sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := n.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
					n.logger.Error("delete expired subscription", "endpoint", sub.Endpoint, "error", err)
				}
				continue
			}
			n.logger.Error("send push", "user_id", userID, "type", payload.Type, "error", err)
		}
	}
}
