package store

import (
	"log/slog"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func getMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "0",
			Migrate: func(txn *gorm.DB) error {
				return txn.AutoMigrate(&User{}, &ChatEntry{})
			},
			Rollback: func(txn *gorm.DB) error {
				return txn.Migrator().DropTable(&ChatEntry{}, &User{})
			},
		},
	})

	migrator.InitSchema(func(txn *gorm.DB) error {
		// Runs only against a clean database; creates the latest schema directly.
		slog.Info("clean database detected, running full schema initialization", "dialect", db.Dialector.Name())
		return txn.AutoMigrate(&User{}, &ChatEntry{})
	})

	return migrator
}
