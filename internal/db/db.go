package db

import (
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/calegrette/leaseguard/internal/analysis"
	"github.com/calegrette/leaseguard/internal/incident"
	"github.com/calegrette/leaseguard/internal/models"
)

// Connect opens the MySQL database and migrates the schema. Fatal on
// failure: the process cannot do anything useful without a database.
func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := gdb.AutoMigrate(
		&models.User{},
		&incident.Incident{},
		&incident.Log{},
		&analysis.Job{},
	); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	return gdb
}
