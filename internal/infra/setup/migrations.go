package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/olehtrofimiuk/MechMapOnline/internal/domain"
)

// MigrateDB creates or updates the schema for every persistent entity.
// Child tables are not FK-constrained to rooms; cascade delete is done in
// the repository transaction so the delete semantics stay visible in code.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	err := db.AutoMigrate(
		&domain.User{},
		&domain.Room{},
		&domain.Hex{},
		&domain.Line{},
		&domain.Unit{},
		&domain.EditRecord{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate tables: %w", err)
	}
	logrus.Info("Database migration completed successfully")
	return nil
}
