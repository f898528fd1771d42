package store

import (
	"context"
	"testing"

	"github.com/dstclair/fanpulse/internal/database"
	"github.com/dstclair/fanpulse/internal/model"
)

func setupAchievementTestDB(t *testing.T) *AchievementStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAchievementStore(db)
}

func TestCreateDefinitionRoundTrip(t *testing.T) {
	s := setupAchievementTestDB(t)
	ctx := context.Background()

	def, err := s.CreateDefinition(ctx, &model.AchievementDefinition{
		Code:        "TEST_VARIETY",
		Name:        "Variety Test",
		Description: "Do a bit of everything",
		Criteria: model.Criteria{
			Type:          model.CriterionActivityVariety,
			ActivityTypes: []string{"card_view", "quiz_answer"},
			MinCountEach:  3,
		},
		PointsBonus: 40,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("create definition: %v", err)
	}
	if def.ID == 0 {
		t.Error("expected assigned id")
	}

	got, err := s.GetDefinition(ctx, def.ID)
	if err != nil {
		t.Fatalf("get definition: %v", err)
	}
	if got == nil {
		t.Fatal("expected definition, got nil")
	}
	if got.Code != "TEST_VARIETY" || got.PointsBonus != 40 || !got.Active {
		t.Errorf("unexpected definition: %+v", got)
	}
	if got.Criteria.Type != model.CriterionActivityVariety {
		t.Errorf("criteria type = %q, want %q", got.Criteria.Type, model.CriterionActivityVariety)
	}
	if len(got.Criteria.ActivityTypes) != 2 || got.Criteria.MinCountEach != 3 {
		t.Errorf("criteria did not round-trip: %+v", got.Criteria)
	}
}

func TestCreateDefinitionRejectsInvalidCriteria(t *testing.T) {
	s := setupAchievementTestDB(t)

	_, err := s.CreateDefinition(context.Background(), &model.AchievementDefinition{
		Code:     "BAD",
		Name:     "Bad",
		Criteria: model.Criteria{Type: "made_up_type"},
		Active:   true,
	})
	if err == nil {
		t.Fatal("expected error for unknown criterion type")
	}
}

func TestGetDefinitionMissing(t *testing.T) {
	s := setupAchievementTestDB(t)

	def, err := s.GetDefinition(context.Background(), 999999)
	if err != nil {
		t.Fatalf("get definition: %v", err)
	}
	if def != nil {
		t.Errorf("expected nil for missing definition, got %+v", def)
	}
}

func TestDeactivateDefinition(t *testing.T) {
	s := setupAchievementTestDB(t)
	ctx := context.Background()

	def, err := s.CreateDefinition(ctx, &model.AchievementDefinition{
		Code:     "TEST_SCORE",
		Name:     "Score Test",
		Criteria: model.Criteria{Type: model.CriterionScoreThreshold, Threshold: 500},
		Active:   true,
	})
	if err != nil {
		t.Fatalf("create definition: %v", err)
	}

	before, err := s.ListActiveDefinitions(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}

	if err := s.DeactivateDefinition(ctx, def.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	after, err := s.ListActiveDefinitions(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(after) != len(before)-1 {
		t.Errorf("active count = %d, want %d", len(after), len(before)-1)
	}
	for _, d := range after {
		if d.ID == def.ID {
			t.Error("deactivated definition still listed as active")
		}
	}

	// Still visible in the full listing, after the active ones.
	all, err := s.ListDefinitions(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	found := false
	for _, d := range all {
		if d.ID == def.ID {
			found = true
			if d.Active {
				t.Error("definition should be inactive")
			}
		}
	}
	if !found {
		t.Error("deactivated definition missing from full listing")
	}
}

func TestGrantIdempotent(t *testing.T) {
	s := setupAchievementTestDB(t)
	ctx := context.Background()

	def, err := s.CreateDefinition(ctx, &model.AchievementDefinition{
		Code:     "TEST_GRANT",
		Name:     "Grant Test",
		Criteria: model.Criteria{Type: model.CriterionScoreThreshold, Threshold: 100},
		Active:   true,
	})
	if err != nil {
		t.Fatalf("create definition: %v", err)
	}

	grant := func() bool {
		tx, err := s.db.Begin()
		if err != nil {
			t.Fatalf("begin tx: %v", err)
		}
		inserted, err := s.Grant(ctx, tx, "user-1", def.ID)
		if err != nil {
			t.Fatalf("grant: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
		return inserted
	}

	if !grant() {
		t.Error("first grant should insert")
	}
	if grant() {
		t.Error("second grant should be a no-op")
	}

	held, err := s.HeldIDs(ctx, "user-1")
	if err != nil {
		t.Fatalf("held ids: %v", err)
	}
	if len(held) != 1 || !held[def.ID] {
		t.Errorf("held = %v, want {%d: true}", held, def.ID)
	}

	other, err := s.HeldIDs(ctx, "user-2")
	if err != nil {
		t.Fatalf("held ids: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("user-2 should hold nothing, got %v", other)
	}
}

func TestListUserAchievements(t *testing.T) {
	s := setupAchievementTestDB(t)
	ctx := context.Background()

	first, err := s.CreateDefinition(ctx, &model.AchievementDefinition{
		Code:        "TEST_A",
		Name:        "Test A",
		Criteria:    model.Criteria{Type: model.CriterionScoreThreshold, Threshold: 100},
		PointsBonus: 25,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("create definition: %v", err)
	}
	second, err := s.CreateDefinition(ctx, &model.AchievementDefinition{
		Code:        "TEST_B",
		Name:        "Test B",
		Criteria:    model.Criteria{Type: model.CriterionLevelThreshold, Level: 3},
		PointsBonus: 50,
		Active:      true,
	})
	if err != nil {
		t.Fatalf("create definition: %v", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if _, err := s.Grant(ctx, tx, "user-1", first.ID); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := s.Grant(ctx, tx, "user-1", second.ID); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	unlocks, err := s.ListUserAchievements(ctx, "user-1")
	if err != nil {
		t.Fatalf("list user achievements: %v", err)
	}
	if len(unlocks) != 2 {
		t.Fatalf("got %d unlocks, want 2", len(unlocks))
	}
	// Same unlock timestamp, so the id tiebreak puts the later grant first.
	if unlocks[0].Code != "TEST_B" || unlocks[0].PointsBonus != 50 {
		t.Errorf("unlocks[0] = %+v, want TEST_B with bonus 50", unlocks[0])
	}
	if unlocks[1].Code != "TEST_A" {
		t.Errorf("unlocks[1].Code = %q, want TEST_A", unlocks[1].Code)
	}
}
