package model

import "fmt"

// Timeframe names accepted by windowed criteria.
const (
	TimeframeToday      = "today"
	TimeframeThisWeek   = "this_week"
	TimeframeThisMonth  = "this_month"
	TimeframeLast7Days  = "last_7_days"
	TimeframeLast30Days = "last_30_days"
)

func validTimeframe(tf string) bool {
	switch tf {
	case TimeframeToday, TimeframeThisWeek, TimeframeThisMonth, TimeframeLast7Days, TimeframeLast30Days:
		return true
	}
	return false
}

// Validate checks a criteria tree for structural problems. Definitions are
// validated when they are loaded or created, not on every evaluation.
func (c Criteria) Validate() error {
	if len(c.Conditions) > 0 {
		if c.Type != "" {
			return fmt.Errorf("criteria cannot set both type %q and conditions", c.Type)
		}
		switch c.Logic {
		case "", "AND", "OR":
		default:
			return fmt.Errorf("unknown logic %q", c.Logic)
		}
		for i, sub := range c.Conditions {
			if len(sub.Conditions) > 0 {
				return fmt.Errorf("condition %d: nested condition groups are not supported", i)
			}
			if err := sub.Validate(); err != nil {
				return fmt.Errorf("condition %d: %w", i, err)
			}
		}
		return nil
	}

	switch c.Type {
	case CriterionScoreThreshold:
		if c.Threshold <= 0 {
			return fmt.Errorf("%s: threshold must be positive", c.Type)
		}
	case CriterionLevelThreshold:
		if c.Level < 1 {
			return fmt.Errorf("%s: level must be at least 1", c.Type)
		}
	case CriterionActivityCount:
		if c.ActivityType == "" {
			return fmt.Errorf("%s: activity_type is required", c.Type)
		}
		if c.Count <= 0 {
			return fmt.Errorf("%s: count must be positive", c.Type)
		}
		if c.Timeframe != "" && !validTimeframe(c.Timeframe) {
			return fmt.Errorf("%s: unknown timeframe %q", c.Type, c.Timeframe)
		}
	case CriterionActivityVariety:
		if len(c.ActivityTypes) == 0 {
			return fmt.Errorf("%s: activity_types is required", c.Type)
		}
		if c.MinCountEach < 1 {
			return fmt.Errorf("%s: min_count_each must be at least 1", c.Type)
		}
	case CriterionTimeBased:
		switch {
		case c.ConsecutivePeriods > 0:
			if c.Period != "day" && c.Period != "week" {
				return fmt.Errorf("%s: period must be day or week", c.Type)
			}
		case c.Events > 0:
			if !validTimeframe(c.Timeframe) {
				return fmt.Errorf("%s: unknown timeframe %q", c.Type, c.Timeframe)
			}
		default:
			return fmt.Errorf("%s: requires consecutive_periods or events", c.Type)
		}
	case CriterionStreak:
		if c.Granularity != "daily" && c.Granularity != "weekly" {
			return fmt.Errorf("%s: granularity must be daily or weekly", c.Type)
		}
		if c.Threshold <= 0 {
			return fmt.Errorf("%s: threshold must be positive", c.Type)
		}
	case CriterionProgressCompletion:
		if c.Metric != "chapters" && c.Metric != "total" {
			return fmt.Errorf("%s: metric must be chapters or total", c.Type)
		}
		if c.Threshold <= 0 {
			return fmt.Errorf("%s: threshold must be positive", c.Type)
		}
	case CriterionSocialRanking:
		if c.MaxPosition <= 0 && c.TopPercent <= 0 {
			return fmt.Errorf("%s: requires max_position or top_percent", c.Type)
		}
		if c.TopPercent < 0 || c.TopPercent > 100 {
			return fmt.Errorf("%s: top_percent must be within (0,100]", c.Type)
		}
	case CriterionPerfectScore:
		if c.Threshold <= 0 {
			return fmt.Errorf("%s: threshold must be positive", c.Type)
		}
	case CriterionFirstAchievement:
		if c.ActivityType == "" {
			return fmt.Errorf("%s: activity_type is required", c.Type)
		}
	case "":
		return fmt.Errorf("criteria missing type")
	default:
		return fmt.Errorf("unknown criterion type %q", c.Type)
	}
	return nil
}
