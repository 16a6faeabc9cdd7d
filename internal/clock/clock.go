package clock

import (
	"context"
	"time"
)

// Clock supplies the current time. Callers must treat the returned value as
// UTC; date arithmetic in this codebase truncates to UTC midnight.
type Clock interface {
	Now(ctx context.Context) time.Time
}
