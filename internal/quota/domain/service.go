package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	"gorm.io/gorm"
)

// ErrQuotaExceeded is the sentinel every *QuotaError unwraps to, so callers
// can branch with errors.Is without caring which metric tripped.
var ErrQuotaExceeded = errors.New("quota_exceeded")

// QuotaError reports the first metric whose projected counter would pass
// its ceiling. Current is the counter at evaluation time, Projected is
// current plus the requested delta, clamped at zero.
type QuotaError struct {
	Metric    ledgerdomain.Metric `json:"metric"`
	Current   int64               `json:"current"`
	Limit     int64               `json:"limit"`
	Projected int64               `json:"projected"`
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota_exceeded_%s", e.Metric)
}

func (e *QuotaError) Unwrap() error {
	return ErrQuotaExceeded
}

// MetricUsage is one row of the usage report. A nil Limit means the
// household's tier has no ceiling on that metric.
type MetricUsage struct {
	Metric    ledgerdomain.Metric `json:"metric"`
	Used      int64               `json:"used"`
	Limit     *int64              `json:"limit,omitempty"`
	Remaining *int64              `json:"remaining,omitempty"`
}

type Service interface {
	// Assert verifies that applying the positive deltas would keep every
	// counter within the household's tier ceilings. It locks the
	// household row on the given handle, which makes it race-free when
	// the handle is the transaction that will perform the mutation.
	// Negative deltas are ignored; releases are always allowed. Assert
	// never writes.
	Assert(ctx context.Context, db *gorm.DB, householdID snowflake.ID, deltas ledgerdomain.Deltas) error

	// Usage reports per-metric counters with the tier's ceilings.
	Usage(ctx context.Context, householdID snowflake.ID) ([]MetricUsage, error)
}
