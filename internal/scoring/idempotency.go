package scoring

import (
	"strconv"
	"strings"

	"github.com/dstclair/fanpulse/internal/model"
)

// IdempotencyKey derives the dedup key for an award context. The same
// (activity, reference, context) tuple always produces the same key; any field
// that differs produces a different key. Optional fields carry a tag prefix so
// an absent field can never collide with a present one, and "|" never appears
// in identifiers.
func IdempotencyKey(ac model.AwardContext) string {
	parts := []string{ac.ActivityType, ac.ReferenceType, ac.ReferenceID}
	if ac.EventID != nil {
		parts = append(parts, "ev:"+*ac.EventID)
	}
	if ac.ChapterID != nil {
		parts = append(parts, "ch:"+*ac.ChapterID)
	}
	if ac.CardIndex != nil {
		parts = append(parts, "cd:"+strconv.Itoa(*ac.CardIndex))
	}
	if ac.Phase != nil {
		parts = append(parts, "ph:"+*ac.Phase)
	}
	return strings.Join(parts, "|")
}

// bonusIdempotencyKey is the fixed key for an achievement's point bonus. Event
// uniqueness is scoped per user, so this grants the bonus at most once per user
// per achievement even across retries.
func bonusIdempotencyKey(achievementID int64) string {
	return "achievement_bonus:" + strconv.FormatInt(achievementID, 10)
}
