// Package domain contains the per-household usage counters that quota
// enforcement reads and feature services maintain.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Metric names one counted resource class.
type Metric string

const (
	MetricActiveChores   Metric = "active_chores"
	MetricChorePhotos    Metric = "chore_photos"
	MetricActiveMembers  Metric = "active_members"
	MetricActiveExpenses Metric = "active_expenses"
	MetricItemPhotos     Metric = "item_photos"
)

// AllMetrics lists every metric in stable evaluation order. Quota checks
// walk this slice so the first violation reported is deterministic.
func AllMetrics() []Metric {
	return []Metric{
		MetricActiveChores,
		MetricChorePhotos,
		MetricActiveMembers,
		MetricActiveExpenses,
		MetricItemPhotos,
	}
}

func ParseMetric(s string) (Metric, bool) {
	switch Metric(s) {
	case MetricActiveChores, MetricChorePhotos, MetricActiveMembers,
		MetricActiveExpenses, MetricItemPhotos:
		return Metric(s), true
	}
	return "", false
}

// Deltas maps metrics to signed count changes.
type Deltas map[Metric]int64

var (
	ErrUnknownMetric       = errors.New("unknown_metric")
	ErrEmptyDeltas         = errors.New("empty_deltas")
	ErrHouseholdIDRequired = errors.New("household_id_required")
)

// UsageLedger is one household's counter row. Counters are maintained
// transactionally by feature services; they never go negative.
type UsageLedger struct {
	HouseholdID    snowflake.ID `gorm:"primaryKey" json:"household_id"`
	ActiveChores   int64        `gorm:"not null;default:0" json:"active_chores"`
	ChorePhotos    int64        `gorm:"not null;default:0" json:"chore_photos"`
	ActiveMembers  int64        `gorm:"not null;default:0" json:"active_members"`
	ActiveExpenses int64        `gorm:"not null;default:0" json:"active_expenses"`
	ItemPhotos     int64        `gorm:"not null;default:0" json:"item_photos"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (UsageLedger) TableName() string { return "usage_ledgers" }

func (l *UsageLedger) Value(m Metric) int64 {
	switch m {
	case MetricActiveChores:
		return l.ActiveChores
	case MetricChorePhotos:
		return l.ChorePhotos
	case MetricActiveMembers:
		return l.ActiveMembers
	case MetricActiveExpenses:
		return l.ActiveExpenses
	case MetricItemPhotos:
		return l.ItemPhotos
	}
	return 0
}

// Add applies a clamped delta. Releases below zero are absorbed, so a
// release racing a repair or replay cannot drive a counter negative.
func (l *UsageLedger) Add(m Metric, delta int64) {
	v := l.Value(m) + delta
	if v < 0 {
		v = 0
	}
	l.set(m, v)
}

func (l *UsageLedger) set(m Metric, v int64) {
	switch m {
	case MetricActiveChores:
		l.ActiveChores = v
	case MetricChorePhotos:
		l.ChorePhotos = v
	case MetricActiveMembers:
		l.ActiveMembers = v
	case MetricActiveExpenses:
		l.ActiveExpenses = v
	case MetricItemPhotos:
		l.ItemPhotos = v
	}
}

// Service mutates and reads ledgers. Apply runs inside the caller's
// transaction and locks the counter row itself; callers pairing it with a
// quota check must also hold the household row lock so the check and the
// apply commit as one unit.
type Service interface {
	Apply(ctx context.Context, tx *gorm.DB, householdID snowflake.ID, deltas Deltas) (*UsageLedger, error)
	Get(ctx context.Context, householdID snowflake.ID) (*UsageLedger, error)
}

type Repository interface {
	EnsureRow(ctx context.Context, db *gorm.DB, householdID snowflake.ID) error
	FindForUpdate(ctx context.Context, db *gorm.DB, householdID snowflake.ID) (*UsageLedger, error)
	Find(ctx context.Context, db *gorm.DB, householdID snowflake.ID) (*UsageLedger, error)
	Save(ctx context.Context, db *gorm.DB, ledger *UsageLedger) error
}
