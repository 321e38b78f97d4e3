package engine

// cron.go — minute-granularity next-run computation for schedule triggers.
//
// This is deliberately a brute-force matcher rather than a closed-form "next
// cron occurrence" algorithm: schedules fire at most once per tick, the
// search is bounded, and exhaustive search is trivial to verify. Expressions
// that cannot match (Feb 30) hit the bounded-window fallback instead of
// looping forever.

import (
	"strconv"
	"strings"
	"time"
)

const (
	// searchWindowMinutes bounds the forward scan to 48 hours.
	searchWindowMinutes = 48 * 60

	// badExprFallback is returned when the expression does not have exactly
	// five fields.
	badExprFallback = time.Hour

	// exhaustedFallback is returned when no candidate matches within the
	// search window.
	exhaustedFallback = 24 * time.Hour
)

// NextRunAfter computes the next timestamp matching a 5-field cron
// expression (minute, hour, day-of-month, month, weekday) strictly after
// now. Malformed expressions and unmatchable schedules degrade to documented
// fallback times; this function never fails.
func NextRunAfter(cronExpr string, now time.Time) time.Time {
	fields := strings.Fields(cronExpr)
	if len(fields) != 5 {
		return now.Add(badExprFallback)
	}

	candidate := now.Truncate(time.Minute).Add(time.Minute)
	for i := 0; i < searchWindowMinutes; i++ {
		if matchCronField(fields[0], candidate.Minute()) &&
			matchCronField(fields[1], candidate.Hour()) &&
			matchCronField(fields[2], candidate.Day()) &&
			matchCronField(fields[3], int(candidate.Month())) &&
			matchCronField(fields[4], int(candidate.Weekday())) {
			return candidate
		}
		candidate = candidate.Add(time.Minute)
	}
	return now.Add(exhaustedFallback)
}

// matchCronField tests one cron field against a candidate value. Supported
// forms: "*", "*/N" (N > 0), and comma-separated integer lists.
func matchCronField(field string, value int) bool {
	if field == "*" {
		return true
	}
	if step, ok := strings.CutPrefix(field, "*/"); ok {
		n, err := strconv.Atoi(step)
		if err != nil || n <= 0 {
			return false
		}
		return value%n == 0
	}
	for _, part := range strings.Split(field, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if n == value {
			return true
		}
	}
	return false
}
