// Package storage keeps the render pass history in SQLite.
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/model"
)

const (
	errorMessageMissingDataSourceName = "storage: missing history data source name"
	errorMessageOpenHistoryDatabase   = "storage: open history database"
	errorMessageMigrateHistory        = "storage: migrate history database"
)

// ErrMissingDataSourceName indicates the history data source name was omitted.
var ErrMissingDataSourceName = errors.New(errorMessageMissingDataSourceName)

// OpenHistoryDatabase opens the SQLite file or in-memory database named by dataSourceName.
// Timestamps gorm fills in are stored in UTC so started_at comparisons stay lexical.
func OpenHistoryDatabase(dataSourceName string) (*gorm.DB, error) {
	trimmedDataSourceName := strings.TrimSpace(dataSourceName)
	if trimmedDataSourceName == "" {
		return nil, ErrMissingDataSourceName
	}

	database, openErr := gorm.Open(sqlite.Open(trimmedDataSourceName), &gorm.Config{
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if openErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageOpenHistoryDatabase, openErr)
	}
	return database, nil
}

// AutoMigrate creates the render pass history table.
func AutoMigrate(database *gorm.DB) error {
	if database == nil {
		return ErrNilDatabase
	}
	if migrateErr := database.AutoMigrate(&model.RenderPass{}); migrateErr != nil {
		return fmt.Errorf("%s: %w", errorMessageMigrateHistory, migrateErr)
	}
	return nil
}

// NewID returns a random render pass identifier.
func NewID() string {
	return uuid.NewString()
}
