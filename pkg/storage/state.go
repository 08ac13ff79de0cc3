package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"contact-guard/pkg/guard"
)

// Keys the contact page has always used for its counters
const (
	KeyLastSubmit = "lastSubmitTimestamp"
	KeyDailyCount = "dailySubmitCount"
	KeyDailyReset = "dailyResetTimestamp"
)

// LoadState reads a client's rate limit state. Missing keys read as zero.
func LoadState(ctx context.Context, store Store) (guard.RateLimitState, error) {
	var state guard.RateLimitState

	lastSubmit, err := readInt(ctx, store, KeyLastSubmit)
	if err != nil {
		return state, err
	}
	count, err := readInt(ctx, store, KeyDailyCount)
	if err != nil {
		return state, err
	}
	reset, err := readInt(ctx, store, KeyDailyReset)
	if err != nil {
		return state, err
	}

	state.LastSubmit = fromMillis(lastSubmit)
	state.DailyCount = int(count)
	state.DailyReset = fromMillis(reset)
	return state, nil
}

// SaveState writes all three counters of a client's rate limit state
func SaveState(ctx context.Context, store Store, state guard.RateLimitState) error {
	values := []struct {
		key   string
		value int64
	}{
		{KeyLastSubmit, toMillis(state.LastSubmit)},
		{KeyDailyCount, int64(state.DailyCount)},
		{KeyDailyReset, toMillis(state.DailyReset)},
	}

	for _, v := range values {
		if err := store.Set(ctx, v.key, strconv.FormatInt(v.value, 10)); err != nil {
			return fmt.Errorf("error saving rate limit state: %w", err)
		}
	}
	return nil
}

// Garbage in a stored counter reads as zero, the same as a missing key.
func readInt(ctx context.Context, store Store, key string) (int64, error) {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("error loading rate limit state: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
