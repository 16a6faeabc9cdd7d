package bootstrap

import (
	"context"
	"errors"

	"github.com/gosimple/slug"
	"github.com/homewardlabs/homeward/internal/config"
	householddomain "github.com/homewardlabs/homeward/internal/household/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EnsureDefaultHousehold creates the first household and its owner when
// explicitly enabled. Meant for single-home installs that skip the API
// onboarding call. Creation goes through the household service so the
// usage ledger and audit trail stay consistent.
func EnsureDefaultHousehold(cfg config.Config, db *gorm.DB, households householddomain.Service, log *zap.Logger) error {
	if !cfg.Bootstrap.EnsureDefaultHousehold {
		return nil
	}
	if db == nil {
		return errors.New("bootstrap requires database handle")
	}

	name := cfg.Bootstrap.DefaultHouseholdName
	if name == "" {
		name = "Home"
	}

	ctx := context.Background()
	var existing householddomain.Household
	err := db.WithContext(ctx).
		Where("slug = ?", slug.Make(name)).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	ownerName := cfg.Bootstrap.AdminMemberName
	if ownerName == "" {
		ownerName = "Admin"
	}

	household, owner, err := households.Create(ctx, householddomain.CreateHouseholdRequest{
		Name:      name,
		Tier:      householddomain.TierFree,
		OwnerName: ownerName,
	})
	if err != nil {
		return err
	}

	if log != nil {
		log.Info("default household bootstrap ensured",
			zap.String("household_id", household.ID.String()),
			zap.String("owner_id", owner.ID.String()),
		)
	}
	return nil
}
