// Package metadata stores guides and tracks in a relational database
// through gorm: sqlite by default, mysql or postgres by DSN.
package metadata

import (
	"fmt"

	"audioguide/model"

	"github.com/cdfmlr/crud/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/glebarez/sqlite" // pure go sqlite driver
)

var logger = log.ZoneLogger("audioguide/metadata")

const (
	DriverSqlite   = "sqlite"
	DriverMysql    = "mysql"
	DriverPostgres = "postgres"
)

const (
	guideCounter = "guides"
	trackCounter = "tracks"
)

// counter holds the next id to hand out for a table.
// Rows are only ever incremented, so ids are never reused.
type counter struct {
	Name   string `gorm:"primaryKey;size:32"`
	NextID uint   `gorm:"not null"`
}

func (counter) TableName() string {
	return "id_counters"
}

// Open connects to the database, migrates the schema
// and seeds the id counters.
func Open(driver, dsn string) (*Store, error) {
	db, err := connectDB(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("metadata.Open: connectDB failed: %w", err)
	}

	if err := db.AutoMigrate(&model.Guide{}, &model.Track{}, &counter{}); err != nil {
		return nil, fmt.Errorf("metadata.Open: AutoMigrate failed: %w", err)
	}

	seed := []counter{{Name: guideCounter, NextID: 1}, {Name: trackCounter, NextID: 1}}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("metadata.Open: seed counters failed: %w", err)
	}

	logger.WithField("driver", driver).Info("Open: database ready")

	return &Store{db: db}, nil
}

func connectDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSqlite, "":
		dialector = sqlite.Open(dsn)
	case DriverMysql:
		dialector = mysql.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown driver %q", driver)
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: log.Logger4Gorm,
	})
}
