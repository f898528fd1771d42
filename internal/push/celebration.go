package push

import "strings"

// Celebration classifies an unlocked achievement for the client's celebration
// animation. Classification never affects scoring; it only shapes the
// notification.
type Celebration string

const (
	CelebrationLegendary  Celebration = "legendary"
	CelebrationEpic       Celebration = "epic"
	CelebrationLevelUp    Celebration = "level_up"
	CelebrationStreak     Celebration = "streak"
	CelebrationFirstTime  Celebration = "first_time"
	CelebrationTierUnlock Celebration = "tier_unlock"
	CelebrationPerfect    Celebration = "perfect"
	CelebrationSocial     Celebration = "social"
	CelebrationStandard   Celebration = "standard"
)

// celebrationRules is an ordered lookup table; the first matching rule wins.
// The code-name conventions (LEVEL, STREAK, FIRST, BRONZE/SILVER/GOLD, PERFECT,
// TOP_) are a fragile contract with the achievement catalog — change the
// catalog's naming and this table together.
var celebrationRules = []struct {
	kind  Celebration
	match func(code string, bonus int) bool
}{
	{CelebrationLegendary, func(_ string, bonus int) bool { return bonus >= 1000 }},
	{CelebrationEpic, func(_ string, bonus int) bool { return bonus >= 500 }},
	{CelebrationLevelUp, codeContains("LEVEL")},
	{CelebrationStreak, codeContains("STREAK")},
	{CelebrationFirstTime, codeContains("FIRST")},
	{CelebrationTierUnlock, func(code string, _ int) bool {
		return strings.Contains(code, "BRONZE") || strings.Contains(code, "SILVER") || strings.Contains(code, "GOLD")
	}},
	{CelebrationPerfect, codeContains("PERFECT")},
	{CelebrationSocial, func(code string, _ int) bool { return strings.HasPrefix(code, "TOP_") }},
}

func codeContains(s string) func(string, int) bool {
	return func(code string, _ int) bool { return strings.Contains(code, s) }
}

// Classify maps an achievement's code and point bonus to a celebration type.
func Classify(code string, pointsBonus int) Celebration {
	for _, rule := range celebrationRules {
		if rule.match(code, pointsBonus) {
			return rule.kind
		}
	}
	return CelebrationStandard
}
