package clock

import (
	"context"
	"time"
)

type key string

var frozenTimeKey key = "frozen_time"

// WithFrozen returns a context whose clock reads t instead of wall time.
func WithFrozen(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, frozenTimeKey, t.UTC())
}

// FrozenFromContext returns the frozen time carried by the context, if any.
func FrozenFromContext(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(frozenTimeKey).(time.Time)
	return t, ok
}

// Fixed is a Clock pinned to a single instant, for tests.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now(context.Context) time.Time {
	return f.T.UTC()
}
