package database

import (
	"sales-ops-api/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the SQLite database and runs migrations.
// glebarez/sqlite is a pure Go implementation, so no CGO is required.
func InitDB(path string) {
	var err error
	DB, err = gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}

	if err := DB.AutoMigrate(
		&models.User{},
		&models.Department{},
		&models.DepartmentPermission{},
		&models.Task{},
		&models.TaskComment{},
		&models.Notification{},
		&models.Planning{},
		&models.PlanningSnapshot{},
		&models.Target{},
		&models.Sale{},
		&models.Return{},
		&models.ActivityLog{},
	); err != nil {
		logrus.WithError(err).Fatal("failed to migrate database")
	}

	logrus.WithField("path", path).Info("database connected and migrated")
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}
