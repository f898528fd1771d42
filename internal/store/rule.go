package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dstclair/fanpulse/internal/model"
)

type ScoringRuleStore struct {
	db *sql.DB
}

func NewScoringRuleStore(db *sql.DB) *ScoringRuleStore {
	return &ScoringRuleStore{db: db}
}

const ruleCols = `id, activity_type, points, event_id, phase, chapter_id, card_index, max_per_day, active, created_at`

func scanRule(scanner interface{ Scan(...any) error }) (*model.ScoringRule, error) {
	var r model.ScoringRule
	var active int

	err := scanner.Scan(&r.ID, &r.ActivityType, &r.Points, &r.EventID, &r.Phase,
		&r.ChapterID, &r.CardIndex, &r.MaxPerDay, &active, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.Active = active != 0
	return &r, nil
}

// Resolve finds the applicable active rule for an award context: among rules
// whose every set filter matches the context, the one with the most filters set
// wins; ties go to the newest rule. A rule with all filters NULL is the general
// fallback. Returns nil when no rule matches.
//
// Filter matching is one-directional: a rule filter that is set must equal the
// corresponding context field, and a context field that is absent rules out any
// rule filtering on it. The specificity ordering and the recency tiebreak are
// both pushed into the store so resolution is a single query inside the award
// transaction.
func (s *ScoringRuleStore) Resolve(ctx context.Context, tx *sql.Tx, ac model.AwardContext) (*model.ScoringRule, error) {
	query := `
		SELECT ` + ruleCols + `
		FROM scoring_rules
		WHERE activity_type = ? AND active = 1
		  AND (event_id IS NULL OR event_id = ?)
		  AND (phase IS NULL OR phase = ?)
		  AND (chapter_id IS NULL OR chapter_id = ?)
		  AND (card_index IS NULL OR card_index = ?)
		ORDER BY (event_id IS NOT NULL) + (phase IS NOT NULL) + (chapter_id IS NOT NULL) + (card_index IS NOT NULL) DESC,
		         created_at DESC, id DESC
		LIMIT 1
	`
	row := tx.QueryRowContext(ctx, query, ac.ActivityType,
		ac.EventID, ac.Phase, ac.ChapterID, ac.CardIndex)

	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve rule: %w", err)
	}
	return r, nil
}

func (s *ScoringRuleStore) Create(ctx context.Context, r *model.ScoringRule) (*model.ScoringRule, error) {
	var active int
	if r.Active {
		active = 1
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO scoring_rules (activity_type, points, event_id, phase, chapter_id, card_index, max_per_day, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ActivityType, r.Points, r.EventID, r.Phase, r.ChapterID, r.CardIndex, r.MaxPerDay, active,
	)
	if err != nil {
		return nil, fmt.Errorf("insert rule: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ScoringRuleStore) GetByID(ctx context.Context, id int64) (*model.ScoringRule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleCols+` FROM scoring_rules WHERE id = ?`, id)
	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rule: %w", err)
	}
	return r, nil
}

// List returns all rules, active first, then newest first.
func (s *ScoringRuleStore) List(ctx context.Context) ([]model.ScoringRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ruleCols+` FROM scoring_rules ORDER BY active DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []model.ScoringRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// Deactivate retires a rule without deleting it, so historical awards keep
// their provenance.
func (s *ScoringRuleStore) Deactivate(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE scoring_rules SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deactivate rule: %w", err)
	}
	return nil
}
