package database

import (
	"gorm.io/gorm"

	"github.com/dancymeals/backend/internal/models"
)

// Migrate brings the schema up to date. GORM auto-migration covers the
// schedule tables, including the composite unique index that backstops
// concurrent inserts.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ScheduleEntry{},
	)
}
