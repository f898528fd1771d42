// Package level maps accumulated score to a fan level. The threshold table here is
// the single source of truth: ForScore evaluates it in Go, and SQLCase renders the
// same table as a SQL CASE expression so the in-store relevel can never drift from
// the calculator.
package level

import (
	"fmt"
	"strings"
)

// Threshold is the minimum score for a level.
type Threshold struct {
	Level    int
	MinScore int
}

// Thresholds in descending order. Scores below the level-2 boundary are level 1;
// the top level has no upper bound.
var Thresholds = []Threshold{
	{10, 32000},
	{9, 16000},
	{8, 8000},
	{7, 4000},
	{6, 2000},
	{5, 1000},
	{4, 500},
	{3, 250},
	{2, 100},
	{1, 0},
}

// ForScore returns the level for a total score.
func ForScore(score int) int {
	for _, t := range Thresholds {
		if score >= t.MinScore {
			return t.Level
		}
	}
	return 1
}

// SQLCase renders the threshold table as a CASE expression over the given score
// expression, e.g. SQLCase("total_score + 5").
func SQLCase(scoreExpr string) string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, t := range Thresholds[:len(Thresholds)-1] {
		fmt.Fprintf(&b, " WHEN %s >= %d THEN %d", scoreExpr, t.MinScore, t.Level)
	}
	b.WriteString(" ELSE 1 END")
	return b.String()
}
