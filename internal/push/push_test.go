package push

import (
	"encoding/base64"
	"testing"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	if pub == "" {
		t.Error("expected non-empty public key")
	}
	if priv == "" {
		t.Error("expected non-empty private key")
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key should be base64url-encoded, 32 bytes P-256 scalar
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	// Generate again — should be different
	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		code  string
		bonus int
		want  Celebration
	}{
		{"legendary bonus wins over code", "STREAK_MASTER", 1000, CelebrationLegendary},
		{"epic bonus", "SUPERFAN", 500, CelebrationEpic},
		{"level up", "LEVEL_5", 100, CelebrationLevelUp},
		{"streak", "STREAK_7", 75, CelebrationStreak},
		{"first time", "FIRST_QUIZ", 25, CelebrationFirstTime},
		{"bronze tier", "BRONZE_COLLECTOR", 50, CelebrationTierUnlock},
		{"silver tier", "SILVER_COLLECTOR", 100, CelebrationTierUnlock},
		{"gold tier", "GOLD_COLLECTOR", 200, CelebrationTierUnlock},
		{"perfect", "PERFECT_QUIZ", 150, CelebrationPerfect},
		{"social prefix", "TOP_10", 300, CelebrationSocial},
		{"top must be a prefix", "CHART_TOP_FAN", 10, CelebrationStandard},
		{"fallback", "EARLY_BIRD", 30, CelebrationStandard},
		{"level before streak", "LEVEL_STREAK", 10, CelebrationLevelUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.code, tt.bonus); got != tt.want {
				t.Errorf("Classify(%q, %d) = %q, want %q", tt.code, tt.bonus, got, tt.want)
			}
		})
	}
}
