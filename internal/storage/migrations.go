package storage

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"lab_booking/internal/models"
)

func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "20260301_create_users_table",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("users")
			},
		},
		{
			ID: "20260301_create_slots_table",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Slot{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("slots")
			},
		},
		{
			ID: "20260302_create_allocations_and_queue_entries",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Allocation{}, &models.QueueEntry{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("queue_entries", "allocations")
			},
		},
	}
}

func newMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	return gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
}

func Migrate(db *gorm.DB) error {
	return newMigrator(db).Migrate()
}

func RollbackLast(db *gorm.DB) error {
	return newMigrator(db).RollbackLast()
}
