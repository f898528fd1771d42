package scoring

import "errors"

// Expected award outcomes. These come back to HTTP callers inside an
// AwardResult with Success=false rather than as a 5xx; anything else that goes
// wrong on the critical path is an internal error and rolls the whole
// transaction back.
var (
	ErrNoRuleFound     = errors.New("no scoring rule for activity")
	ErrDailyCapReached = errors.New("daily cap reached")
	ErrDuplicateAward  = errors.New("already awarded")
)
