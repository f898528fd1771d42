package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dstclair/fanpulse/internal/database"
	"github.com/dstclair/fanpulse/internal/model"
)

func setupEventTestDB(t *testing.T) (*ScoreEventStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewScoreEventStore(db), db
}

func insertEvent(t *testing.T, s *ScoreEventStore, db *sql.DB, ev *model.ScoreEvent) error {
	t.Helper()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := s.Insert(context.Background(), tx, ev); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return nil
}

func TestInsertDuplicateKey(t *testing.T) {
	s, db := setupEventTestDB(t)

	ev := &model.ScoreEvent{
		UserID: "fan-1", ActivityType: "chapter_complete", Points: 50,
		ReferenceType: "chapter", ReferenceID: "ch-1",
		IdempotencyKey: "chapter_complete|chapter|ch-1",
	}
	if err := insertEvent(t, s, db, ev); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if ev.ID == 0 {
		t.Error("expected event id to be set")
	}

	dup := &model.ScoreEvent{
		UserID: "fan-1", ActivityType: "chapter_complete", Points: 50,
		ReferenceType: "chapter", ReferenceID: "ch-1",
		IdempotencyKey: "chapter_complete|chapter|ch-1",
	}
	if err := insertEvent(t, s, db, dup); !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("second insert err = %v, want ErrDuplicateEvent", err)
	}

	// The same key for a different user is fine.
	other := &model.ScoreEvent{
		UserID: "fan-2", ActivityType: "chapter_complete", Points: 50,
		ReferenceType: "chapter", ReferenceID: "ch-1",
		IdempotencyKey: "chapter_complete|chapter|ch-1",
	}
	if err := insertEvent(t, s, db, other); err != nil {
		t.Fatalf("other user insert: %v", err)
	}
}

func TestCountForDay(t *testing.T) {
	s, db := setupEventTestDB(t)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	inDay := []time.Time{day.Add(1 * time.Hour), day.Add(13 * time.Hour), day.Add(23 * time.Hour)}
	outOfDay := []time.Time{day.Add(-1 * time.Minute), day.Add(24 * time.Hour)}

	for i, ts := range append(inDay, outOfDay...) {
		ev := &model.ScoreEvent{
			UserID: "fan-1", ActivityType: "card_view", Points: 5,
			ReferenceType: "card", ReferenceID: "c-" + string(rune('a'+i)),
			IdempotencyKey: "card_view|card|" + string(rune('a'+i)),
			CreatedAt:      ts,
		}
		if err := insertEvent(t, s, db, ev); err != nil {
			t.Fatalf("insert event %d: %v", i, err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()

	count, err := s.CountForDay(ctx, tx, "fan-1", "card_view", day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("count for day: %v", err)
	}
	if count != len(inDay) {
		t.Errorf("count = %d, want %d", count, len(inDay))
	}

	// Different activity type never matches.
	count, err = s.CountForDay(ctx, tx, "fan-1", "quiz_answer", day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("count for day: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
}

func TestCountByActivityWindow(t *testing.T) {
	s, db := setupEventTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ev := &model.ScoreEvent{
			UserID: "fan-1", ActivityType: "quiz_answer", Points: 10,
			ReferenceType: "quiz", ReferenceID: "q-" + string(rune('a'+i)),
			IdempotencyKey: "quiz_answer|quiz|" + string(rune('a'+i)),
			CreatedAt:      base.AddDate(0, 0, i),
		}
		if err := insertEvent(t, s, db, ev); err != nil {
			t.Fatalf("insert event %d: %v", i, err)
		}
	}

	total, err := s.CountByActivity(ctx, "fan-1", "quiz_answer", nil, nil)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 5 {
		t.Errorf("lifetime count = %d, want 5", total)
	}

	since := base.AddDate(0, 0, 2)
	windowed, err := s.CountByActivity(ctx, "fan-1", "quiz_answer", &since, nil)
	if err != nil {
		t.Fatalf("count since: %v", err)
	}
	if windowed != 3 {
		t.Errorf("windowed count = %d, want 3", windowed)
	}
}

func TestCountDistinctChapters(t *testing.T) {
	s, db := setupEventTestDB(t)

	chapters := []string{"ch-1", "ch-2", "ch-1", "ch-3"}
	for i, ch := range chapters {
		chID := ch
		ev := &model.ScoreEvent{
			UserID: "fan-1", ActivityType: "chapter_complete", Points: 50,
			ReferenceType: "chapter", ReferenceID: ch + "-" + string(rune('a'+i)),
			ChapterID:      &chID,
			IdempotencyKey: "chapter_complete|chapter|" + ch + "|" + string(rune('a'+i)),
		}
		if err := insertEvent(t, s, db, ev); err != nil {
			t.Fatalf("insert event %d: %v", i, err)
		}
	}

	count, err := s.CountDistinctChapters(context.Background(), "fan-1")
	if err != nil {
		t.Fatalf("count chapters: %v", err)
	}
	if count != 3 {
		t.Errorf("distinct chapters = %d, want 3", count)
	}
}

func TestCountCorrectQuizAnswers(t *testing.T) {
	s, db := setupEventTestDB(t)

	cases := []struct {
		ref      string
		metadata map[string]any
	}{
		{"q-1", map[string]any{"correct": true}},
		{"q-2", map[string]any{"correct": false}},
		{"q-3", map[string]any{"correct": true}},
		{"q-4", nil},
	}
	for _, c := range cases {
		ev := &model.ScoreEvent{
			UserID: "fan-1", ActivityType: "quiz_answer", Points: 10,
			ReferenceType: "quiz", ReferenceID: c.ref,
			IdempotencyKey: "quiz_answer|quiz|" + c.ref,
			Metadata:       c.metadata,
		}
		if err := insertEvent(t, s, db, ev); err != nil {
			t.Fatalf("insert %s: %v", c.ref, err)
		}
	}

	count, err := s.CountCorrectQuizAnswers(context.Background(), "fan-1")
	if err != nil {
		t.Fatalf("count correct: %v", err)
	}
	if count != 2 {
		t.Errorf("correct answers = %d, want 2", count)
	}
}

func TestHasActivity(t *testing.T) {
	s, db := setupEventTestDB(t)
	ctx := context.Background()

	ev := &model.ScoreEvent{
		UserID: "fan-1", ActivityType: "share", Points: 25,
		ReferenceType: "post", ReferenceID: "p-1",
		IdempotencyKey: "share|post|p-1",
	}
	if err := insertEvent(t, s, db, ev); err != nil {
		t.Fatalf("insert: %v", err)
	}

	has, err := s.HasActivity(ctx, "fan-1", "share")
	if err != nil {
		t.Fatalf("has activity: %v", err)
	}
	if !has {
		t.Error("expected activity")
	}

	has, err = s.HasActivity(ctx, "fan-1", "poll_vote")
	if err != nil {
		t.Fatalf("has activity: %v", err)
	}
	if has {
		t.Error("expected no poll_vote activity")
	}
}

func TestListByUserNewestFirst(t *testing.T) {
	s, db := setupEventTestDB(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ev := &model.ScoreEvent{
			UserID: "fan-1", ActivityType: "reaction", Points: 2,
			ReferenceType: "post", ReferenceID: "p-" + string(rune('a'+i)),
			IdempotencyKey: "reaction|post|" + string(rune('a'+i)),
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
			Metadata:       map[string]any{"emoji": "🔥"},
		}
		if err := insertEvent(t, s, db, ev); err != nil {
			t.Fatalf("insert event %d: %v", i, err)
		}
	}

	events, err := s.ListByUser(context.Background(), "fan-1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ReferenceID != "p-c" {
		t.Errorf("first event ref = %s, want p-c", events[0].ReferenceID)
	}
	if events[0].Metadata["emoji"] != "🔥" {
		t.Errorf("metadata emoji = %v", events[0].Metadata["emoji"])
	}
}
