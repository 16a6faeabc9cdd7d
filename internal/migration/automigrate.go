package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	auditdomain "github.com/homewardlabs/homeward/internal/audit/domain"
	choredomain "github.com/homewardlabs/homeward/internal/chore/domain"
	expensedomain "github.com/homewardlabs/homeward/internal/expense/domain"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	recurringdomain "github.com/homewardlabs/homeward/internal/recurring/domain"
	"github.com/homewardlabs/homeward/internal/scheduler"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type bootstrapState struct {
	ID            bool   `gorm:"primaryKey;column:id"`
	Status        string `gorm:"type:text;not null"`
	SchemaVersion string `gorm:"type:text;not null"`
	Checksum      *string
	ActivatedAt   *time.Time
	CreatedAt     time.Time `gorm:"not null"`
}

func (bootstrapState) TableName() string { return "system_bootstrap_state" }

// RunAutoMigrate builds the schema through gorm on drivers without a
// versioned path (sqlite, mysql) and activates the bootstrap state the
// same way the postgres migrator does, so the startup gate passes either
// way.
func RunAutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	if err := conn.AutoMigrate(
		&householddomain.Household{},
		&householddomain.Member{},
		&ledgerdomain.UsageLedger{},
		&recurringdomain.Plan{},
		&recurringdomain.PlanShare{},
		&expensedomain.Expense{},
		&expensedomain.ExpenseShare{},
		&choredomain.Chore{},
		&choredomain.ChorePhoto{},
		&auditdomain.AuditLog{},
		&scheduler.JobRun{},
		&bootstrapState{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	latestVersion, err := LatestMigrationVersion()
	if err != nil {
		return err
	}
	checksum, err := MigrationsChecksum()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := time.Now().UTC()
	row := bootstrapState{
		ID:            true,
		Status:        bootstrapStatusActive,
		SchemaVersion: fmt.Sprintf("%d", latestVersion),
		ActivatedAt:   &now,
		CreatedAt:     now,
	}
	if trimmed := strings.TrimSpace(checksum); trimmed != "" {
		row.Checksum = &trimmed
	}

	return conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "schema_version", "checksum", "activated_at"}),
	}).Create(&row).Error
}
