package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dstclair/fanpulse/internal/model"
)

// ErrDuplicateEvent is returned by Insert when the (user, idempotency key) pair
// has already been recorded. Callers treat it as "already awarded", not a failure.
var ErrDuplicateEvent = errors.New("score event already recorded")

type ScoreEventStore struct {
	db *sql.DB
}

func NewScoreEventStore(db *sql.DB) *ScoreEventStore {
	return &ScoreEventStore{db: db}
}

const eventCols = `id, user_id, activity_type, points, reference_type, reference_id,
	event_id, chapter_id, card_index, phase, idempotency_key, metadata, created_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.ScoreEvent, error) {
	var ev model.ScoreEvent
	var metadata sql.NullString

	err := scanner.Scan(&ev.ID, &ev.UserID, &ev.ActivityType, &ev.Points,
		&ev.ReferenceType, &ev.ReferenceID, &ev.EventID, &ev.ChapterID,
		&ev.CardIndex, &ev.Phase, &ev.IdempotencyKey, &metadata, &ev.CreatedAt)
	if err != nil {
		return nil, err
	}

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &ev.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &ev, nil
}

// Insert appends the event inside the award transaction. A uniqueness violation
// on (user_id, idempotency_key) comes back as ErrDuplicateEvent; any other error
// is fatal to the transaction.
func (s *ScoreEventStore) Insert(ctx context.Context, tx *sql.Tx, ev *model.ScoreEvent) error {
	var metadata any
	if len(ev.Metadata) > 0 {
		data, err := json.Marshal(ev.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = string(data)
	}

	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO score_events (user_id, activity_type, points, reference_type, reference_id,
		 event_id, chapter_id, card_index, phase, idempotency_key, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.UserID, ev.ActivityType, ev.Points, ev.ReferenceType, ev.ReferenceID,
		ev.EventID, ev.ChapterID, ev.CardIndex, ev.Phase, ev.IdempotencyKey, metadata, ev.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("insert score event: %w", err)
	}

	ev.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// CountForDay counts the user's events of one activity type within [dayStart,
// dayEnd). It runs on the award transaction so the daily-cap check and the
// subsequent insert cannot race.
func (s *ScoreEventStore) CountForDay(ctx context.Context, tx *sql.Tx, userID, activityType string, dayStart, dayEnd time.Time) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM score_events
		 WHERE user_id = ? AND activity_type = ? AND created_at >= ? AND created_at < ?`,
		userID, activityType, dayStart.UTC(), dayEnd.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events for day: %w", err)
	}
	return count, nil
}

// ListTimes returns the creation times of all the user's events, newest first.
// The streak tracker groups these into calendar periods.
func (s *ScoreEventStore) ListTimes(ctx context.Context, userID string) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT created_at FROM score_events WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list event times: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan event time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// CountByActivity counts the user's events of one activity type, optionally
// bounded to [since, until).
func (s *ScoreEventStore) CountByActivity(ctx context.Context, userID, activityType string, since, until *time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM score_events WHERE user_id = ? AND activity_type = ?`
	args := []any{userID, activityType}
	if since != nil {
		query += ` AND created_at >= ?`
		args = append(args, since.UTC())
	}
	if until != nil {
		query += ` AND created_at < ?`
		args = append(args, until.UTC())
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events by activity: %w", err)
	}
	return count, nil
}

// CountSince counts all the user's events created at or after since.
func (s *ScoreEventStore) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM score_events WHERE user_id = ? AND created_at >= ?`,
		userID, since.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events since: %w", err)
	}
	return count, nil
}

// CountAll counts every event the user has ever recorded.
func (s *ScoreEventStore) CountAll(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM score_events WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// CountDistinctChapters counts how many different chapters appear in the user's
// history.
func (s *ScoreEventStore) CountDistinctChapters(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT chapter_id) FROM score_events WHERE user_id = ? AND chapter_id IS NOT NULL`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count distinct chapters: %w", err)
	}
	return count, nil
}

// CountCorrectQuizAnswers counts quiz_answer events whose metadata marks the
// response correct.
func (s *ScoreEventStore) CountCorrectQuizAnswers(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM score_events
		 WHERE user_id = ? AND activity_type = 'quiz_answer'
		   AND metadata IS NOT NULL AND json_extract(metadata, '$.correct') = 1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count correct quiz answers: %w", err)
	}
	return count, nil
}

// HasActivity reports whether the user has at least one lifetime event of the
// given activity type.
func (s *ScoreEventStore) HasActivity(ctx context.Context, userID, activityType string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM score_events WHERE user_id = ? AND activity_type = ?)`,
		userID, activityType,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check activity: %w", err)
	}
	return exists, nil
}

// ListByUser returns the user's events, newest first, up to limit.
func (s *ScoreEventStore) ListByUser(ctx context.Context, userID string, limit int) ([]model.ScoreEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventCols+` FROM score_events WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.ScoreEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}
