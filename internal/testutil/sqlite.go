package testutil

import (
	"fmt"
	"log"
	"strings"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/storage"
)

const (
	sqliteTestDatabaseNamePrefix        = "credit-dashboard-history"
	sqliteInMemoryDataSourceNamePattern = "file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)"
)

// SQLiteTestDatabase describes a private in-memory render pass history database.
type SQLiteTestDatabase struct {
	dataSourceName string
}

type testingLogWriter struct {
	testingT *testing.T
}

func (writer testingLogWriter) Write(data []byte) (int, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed != "" {
		writer.testingT.Log(trimmed)
	}
	return len(data), nil
}

// NewSQLiteTestDatabase names a fresh in-memory database so parallel tests never share history.
func NewSQLiteTestDatabase(testingT *testing.T) SQLiteTestDatabase {
	testingT.Helper()

	databaseName := fmt.Sprintf("%s-%s", sqliteTestDatabaseNamePrefix, storage.NewID())

	return SQLiteTestDatabase{
		dataSourceName: fmt.Sprintf(sqliteInMemoryDataSourceNamePattern, databaseName),
	}
}

// DataSourceName returns the SQLite data source name of the database.
func (database SQLiteTestDatabase) DataSourceName() string {
	return database.dataSourceName
}

// OpenRenderPassRepository opens and migrates the database and closes it when the test ends.
func (database SQLiteTestDatabase) OpenRenderPassRepository(testingT *testing.T) *storage.RenderPassRepository {
	testingT.Helper()

	gormDatabase, openErr := storage.OpenHistoryDatabase(database.dataSourceName)
	if openErr != nil {
		testingT.Fatalf("open history database: %v", openErr)
	}
	gormDatabase = ConfigureDatabaseLogger(testingT, gormDatabase)
	if migrateErr := storage.AutoMigrate(gormDatabase); migrateErr != nil {
		testingT.Fatalf("migrate history database: %v", migrateErr)
	}
	testingT.Cleanup(func() {
		if sqlDatabase, sqlDatabaseErr := gormDatabase.DB(); sqlDatabaseErr == nil {
			_ = sqlDatabase.Close()
		}
	})

	repository, repositoryErr := storage.NewRenderPassRepository(gormDatabase)
	if repositoryErr != nil {
		testingT.Fatalf("build render pass repository: %v", repositoryErr)
	}
	return repository
}

// ConfigureDatabaseLogger routes gorm errors to the test log.
func ConfigureDatabaseLogger(testingT *testing.T, database *gorm.DB) *gorm.DB {
	testingT.Helper()
	if database == nil {
		testingT.Fatalf("configure database logger: nil database")
	}
	gormLogger := logger.New(
		log.New(testingLogWriter{testingT: testingT}, "", 0),
		logger.Config{
			IgnoreRecordNotFoundError: true,
			LogLevel:                  logger.Error,
		},
	)
	return database.Session(&gorm.Session{Logger: gormLogger})
}
