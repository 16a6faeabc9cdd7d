package clock

import (
	"context"
	"time"
)

// SystemClock returns wall-clock time unless the context carries a frozen
// time, which simulation endpoints and tests use to replay past days.
type SystemClock struct{}

func (SystemClock) Now(ctx context.Context) time.Time {
	if t, ok := FrozenFromContext(ctx); ok {
		return t
	}
	return time.Now().UTC()
}
