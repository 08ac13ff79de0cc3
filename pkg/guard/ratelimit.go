package guard

import (
	"fmt"
	"math"
	"time"
)

// RateLimitState is the per-client submission history the guard consults.
// A zero DailyReset means no window has been opened yet.
type RateLimitState struct {
	LastSubmit time.Time
	DailyCount int
	DailyReset time.Time
}

// Roll opens a fresh daily window once now has passed DailyReset.
// The count only ever goes back to zero here.
func (s RateLimitState) Roll(now time.Time, window time.Duration) RateLimitState {
	if !s.DailyReset.IsZero() && now.After(s.DailyReset) {
		s.DailyCount = 0
		s.DailyReset = now.Add(window)
	}
	return s
}

// RecordDispatch returns the state after a submission reached the relay
func (s RateLimitState) RecordDispatch(now time.Time, window time.Duration) RateLimitState {
	s.LastSubmit = now
	s.DailyCount++
	if s.DailyReset.IsZero() {
		s.DailyReset = now.Add(window)
	}
	return s
}

// checkRateLimit expects a state that has already been rolled to now
func checkRateLimit(state RateLimitState, now time.Time, policy Policy) error {
	if state.DailyCount >= policy.DailyLimit {
		return &Rejection{
			Kind: ErrRateLimited,
			Message: fmt.Sprintf(
				"Vous avez atteint la limite de %d messages par jour. Veuillez réessayer dans %s.",
				policy.DailyLimit, humanizeWait(state.DailyReset.Sub(now)),
			),
		}
	}

	if !state.LastSubmit.IsZero() {
		elapsed := now.Sub(state.LastSubmit)
		if elapsed < policy.Cooldown {
			seconds := ceilSeconds(policy.Cooldown - elapsed)
			return &Rejection{
				Kind: ErrRateLimited,
				Message: fmt.Sprintf(
					"Veuillez patienter %d seconde%s avant d'envoyer un nouveau message.",
					seconds, plural(seconds),
				),
			}
		}
	}

	return nil
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

func humanizeWait(d time.Duration) string {
	if d <= 0 {
		return "quelques instants"
	}
	if d >= time.Hour {
		hours := int(math.Ceil(d.Hours()))
		return fmt.Sprintf("%d heure%s", hours, plural(hours))
	}
	minutes := int(math.Ceil(d.Minutes()))
	return fmt.Sprintf("%d minute%s", minutes, plural(minutes))
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}
