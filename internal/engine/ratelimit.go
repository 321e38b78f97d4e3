package engine

import (
	"time"

	"github.com/campushive/hivelab/internal/hivelab"
)

// RateLimitDecision reports whether a rule may run and, when it may not,
// a human-readable reason recorded on the skipped run.
type RateLimitDecision struct {
	Allowed bool
	Reason  string
}

// CanRun applies the rule's rate-limit policy against today's run count.
// Rules without an explicit daily cap use DefaultMaxRunsPerDay.
func CanRun(rule *hivelab.AutomationRule, runsToday int, now time.Time) RateLimitDecision {
	maxPerDay := rule.RateLimit.MaxRunsPerDay
	if maxPerDay <= 0 {
		maxPerDay = hivelab.DefaultMaxRunsPerDay
	}
	if runsToday >= maxPerDay {
		return RateLimitDecision{Reason: "daily run limit reached"}
	}

	if cd := rule.RateLimit.CooldownSeconds; cd > 0 && rule.LastRun != nil {
		if now.Sub(*rule.LastRun) < time.Duration(cd)*time.Second {
			return RateLimitDecision{Reason: "cooldown active"}
		}
	}

	return RateLimitDecision{Allowed: true}
}
