package database

import (
	"log/slog"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/loopflow/cadenza/internal/models"
	"gorm.io/gorm"
)

// AllModels lists every table owned by the service, parents before children.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Piece{},
		&models.Routine{},
		&models.Exercise{},
		&models.RoutineAssignment{},
		&models.PracticeSession{},
		&models.ExerciseSession{},
		&models.VideoSubmission{},
		&models.Message{},
		&models.SystemLog{},
	}
}

func migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "202610010001_initial_schema",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(AllModels()...)
			},
			Rollback: func(tx *gorm.DB) error {
				tables := AllModels()
				for i := len(tables) - 1; i >= 0; i-- {
					if err := tx.Migrator().DropTable(tables[i]); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			ID: "202610050001_system_log_request_context",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.SystemLog{})
			},
		},
	}
}

// Migrate brings the schema up to date. A clean database is initialised in one
// step and every known migration is marked as applied.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrations())

	m.InitSchema(func(tx *gorm.DB) error {
		slog.Info("clean database detected, running full schema initialization")
		return tx.AutoMigrate(AllModels()...)
	})

	if err := m.Migrate(); err != nil {
		return err
	}
	slog.Info("database migrated")
	return nil
}

// Reset drops every table and re-runs the migrations. Used by the seed command.
func Reset(db *gorm.DB) error {
	tables := AllModels()
	for i := len(tables) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(tables[i]); err != nil {
			return err
		}
	}
	if err := db.Migrator().DropTable(gormigrate.DefaultOptions.TableName); err != nil {
		return err
	}
	return Migrate(db)
}
