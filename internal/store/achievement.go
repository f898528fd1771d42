package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dstclair/fanpulse/internal/model"
)

type AchievementStore struct {
	db *sql.DB
}

func NewAchievementStore(db *sql.DB) *AchievementStore {
	return &AchievementStore{db: db}
}

const defCols = `id, code, name, description, criteria, points_bonus, active, created_at`

func scanDefinition(scanner interface{ Scan(...any) error }) (*model.AchievementDefinition, error) {
	var def model.AchievementDefinition
	var criteria string
	var active int

	err := scanner.Scan(&def.ID, &def.Code, &def.Name, &def.Description,
		&criteria, &def.PointsBonus, &active, &def.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(criteria), &def.Criteria); err != nil {
		return nil, fmt.Errorf("decode criteria for %s: %w", def.Code, err)
	}
	if err := def.Criteria.Validate(); err != nil {
		return nil, fmt.Errorf("invalid criteria for %s: %w", def.Code, err)
	}
	def.Active = active != 0
	return &def, nil
}

func (s *AchievementStore) CreateDefinition(ctx context.Context, def *model.AchievementDefinition) (*model.AchievementDefinition, error) {
	if err := def.Criteria.Validate(); err != nil {
		return nil, fmt.Errorf("invalid criteria: %w", err)
	}

	criteria, err := json.Marshal(def.Criteria)
	if err != nil {
		return nil, fmt.Errorf("encode criteria: %w", err)
	}

	var active int
	if def.Active {
		active = 1
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO achievement_definitions (code, name, description, criteria, points_bonus, active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		def.Code, def.Name, def.Description, string(criteria), def.PointsBonus, active,
	)
	if err != nil {
		return nil, fmt.Errorf("insert achievement definition: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetDefinition(ctx, id)
}

func (s *AchievementStore) GetDefinition(ctx context.Context, id int64) (*model.AchievementDefinition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+defCols+` FROM achievement_definitions WHERE id = ?`, id)
	def, err := scanDefinition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get achievement definition: %w", err)
	}
	return def, nil
}

func (s *AchievementStore) listDefinitions(ctx context.Context, query string) ([]model.AchievementDefinition, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list achievement definitions: %w", err)
	}
	defer rows.Close()

	var defs []model.AchievementDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan achievement definition: %w", err)
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

// ListActiveDefinitions returns the definitions the engine evaluates.
func (s *AchievementStore) ListActiveDefinitions(ctx context.Context) ([]model.AchievementDefinition, error) {
	return s.listDefinitions(ctx,
		`SELECT `+defCols+` FROM achievement_definitions WHERE active = 1 ORDER BY id ASC`)
}

// ListDefinitions returns every definition, active first.
func (s *AchievementStore) ListDefinitions(ctx context.Context) ([]model.AchievementDefinition, error) {
	return s.listDefinitions(ctx,
		`SELECT `+defCols+` FROM achievement_definitions ORDER BY active DESC, id ASC`)
}

// DeactivateDefinition retires a definition; existing unlocks are untouched.
func (s *AchievementStore) DeactivateDefinition(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE achievement_definitions SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate achievement definition: %w", err)
	}
	return nil
}

// HeldIDs returns the set of achievement ids the user already holds.
func (s *AchievementStore) HeldIDs(ctx context.Context, userID string) (map[int64]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT achievement_id FROM user_achievements WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list held achievements: %w", err)
	}
	defer rows.Close()

	held := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan achievement id: %w", err)
		}
		held[id] = true
	}
	return held, rows.Err()
}

// Grant inserts the (user, achievement) unlock with insert-or-ignore semantics
// and reports whether this call created the row. Two awards racing past the same
// threshold both succeed; only one observes inserted=true.
func (s *AchievementStore) Grant(ctx context.Context, tx *sql.Tx, userID string, achievementID int64) (bool, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_achievements (user_id, achievement_id) VALUES (?, ?)`,
		userID, achievementID)
	if err != nil {
		return false, fmt.Errorf("grant achievement: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListUserAchievements returns the user's unlocks joined with their definitions,
// newest first.
func (s *AchievementStore) ListUserAchievements(ctx context.Context, userID string) ([]model.UserAchievement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ua.user_id, ua.achievement_id, d.code, d.name, d.points_bonus, ua.created_at
		 FROM user_achievements ua
		 JOIN achievement_definitions d ON d.id = ua.achievement_id
		 WHERE ua.user_id = ?
		 ORDER BY ua.created_at DESC, ua.achievement_id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user achievements: %w", err)
	}
	defer rows.Close()

	var unlocks []model.UserAchievement
	for rows.Next() {
		var ua model.UserAchievement
		if err := rows.Scan(&ua.UserID, &ua.AchievementID, &ua.Code, &ua.Name, &ua.PointsBonus, &ua.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user achievement: %w", err)
		}
		unlocks = append(unlocks, ua)
	}
	return unlocks, rows.Err()
}
