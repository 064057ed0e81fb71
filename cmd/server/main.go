package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/charts"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/config"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/dashboard"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/httpapi"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/spreadsheet"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/storage"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/task"
)

const (
	commandUseName                    = "credit-dashboard"
	commandShortDescription           = "Run the credit card dashboard"
	commandLongDescription            = "Serve the credit card dashboard: load the configured worksheet on demand, describe and profile it, and chart it"
	missingConfigurationMessage       = "missing required configuration"
	invalidConfigurationMessage       = "invalid configuration"
	loggerCreationErrorMessage        = "logger"
	loadSheetConfigurationMessage     = "load sheet configuration"
	connectSpreadsheetMessage         = "connect spreadsheet"
	logEventListening                 = "listening"
	logFieldAddress                   = "addr"
	flagNameApplicationAddress        = "app-addr"
	flagNameSecretsFile               = "secrets-file"
	flagNameSecretsSection            = "secrets-section"
	flagNameConnectionKind            = "connection-kind"
	flagNameCredentialsFile           = "credentials-file"
	flagNameHistoryDataSourceName     = "history-dsn"
	flagNameHistoryRetention          = "history-retention"
	flagUsageApplicationAddress       = "address for the HTTP server to listen on"
	flagUsageSecretsFile              = "TOML secrets file holding the sheet identifiers"
	flagUsageSecretsSection           = "section of the secrets file holding spreadsheet and worksheet"
	flagUsageConnectionKind           = "spreadsheet connection kind: gsheets or gsheets_service_account"
	flagUsageCredentialsFile          = "service account credentials file for gsheets_service_account"
	flagUsageHistoryDataSourceName    = "SQLite data source for render pass history; empty disables history"
	flagUsageHistoryRetention         = "age after which render pass records are pruned; 0 keeps them"
	environmentKeyApplicationAddress  = "APP_ADDR"
	environmentKeySecretsFile         = "SECRETS_FILE"
	environmentKeySecretsSection      = "SECRETS_SECTION"
	environmentKeyConnectionKind      = "CONNECTION_KIND"
	environmentKeyCredentialsFile     = "CREDENTIALS_FILE"
	environmentKeyHistoryDataSource   = "HISTORY_DSN"
	environmentKeyHistoryRetention    = "HISTORY_RETENTION"
	defaultHistoryRetention           = "720h"
	historyPruneInterval              = time.Hour
	defaultApplicationAddress         = ":8080"
	defaultEnvironmentFile            = ".env"
	openHistoryDatabaseMessage        = "open history database"
	migrateHistoryDatabaseMessage     = "migrate history database"
	loggerContextServer               = "server"
	readHeaderTimeoutSeconds          = 5
	unexpectedArgumentsMessage        = "unexpected command arguments"
	commandInitializationFailure      = "failed to configure command"
	flagNotDefinedMessage             = "flag %s not defined"
	environmentConfigurationError     = "failed to apply environment configuration"
	environmentFileLoadError          = "failed to load environment file"
	unsupportedConnectionKindTemplate = "unsupported %s %q"
)

var errNegativeRetention = errors.New("retention must not be negative")

// ServerConfig captures configuration needed to run the server.
type ServerConfig struct {
	ApplicationAddress    string
	SecretsFile           string
	SecretsSection        string
	ConnectionKind        string
	CredentialsFile       string
	HistoryDataSourceName string
	HistoryRetention      string
}

// DatabaseOpener opens the render pass history database for a data source name.
type DatabaseOpener func(string) (*gorm.DB, error)

// ServerApplication constructs and executes the server command.
type ServerApplication struct {
	configurationLoader *viper.Viper
	databaseOpener      DatabaseOpener
	environmentFile     string
}

// NewServerApplication creates a ServerApplication with default dependencies.
func NewServerApplication() *ServerApplication {
	return &ServerApplication{
		configurationLoader: viper.New(),
		databaseOpener:      storage.OpenHistoryDatabase,
		environmentFile:     defaultEnvironmentFile,
	}
}

// WithDatabaseOpener overrides the database opener dependency.
func (application *ServerApplication) WithDatabaseOpener(databaseOpener DatabaseOpener) *ServerApplication {
	application.databaseOpener = databaseOpener
	return application
}

// WithEnvironmentFile overrides the dotenv file loaded before flags are configured.
func (application *ServerApplication) WithEnvironmentFile(environmentFile string) *ServerApplication {
	application.environmentFile = environmentFile
	return application
}

// Command builds the Cobra command for the server.
func (application *ServerApplication) Command() (*cobra.Command, error) {
	if loadErr := application.loadEnvironmentFile(); loadErr != nil {
		return nil, loadErr
	}

	rootCommand := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE:  application.runCommand,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	return rootCommand, nil
}

// loadEnvironmentFile copies the dotenv file into the process environment; a missing file is ignored.
func (application *ServerApplication) loadEnvironmentFile() error {
	if strings.TrimSpace(application.environmentFile) == "" {
		return nil
	}
	if loadErr := godotenv.Load(application.environmentFile); loadErr != nil && !errors.Is(loadErr, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", environmentFileLoadError, loadErr)
	}
	return nil
}

func (application *ServerApplication) configureCommand(command *cobra.Command) error {
	flagDefinitions := []struct {
		environmentKey string
		flagName       string
		defaultValue   string
		usage          string
	}{
		{environmentKeyApplicationAddress, flagNameApplicationAddress, defaultApplicationAddress, flagUsageApplicationAddress},
		{environmentKeySecretsFile, flagNameSecretsFile, config.DefaultSecretsFile, flagUsageSecretsFile},
		{environmentKeySecretsSection, flagNameSecretsSection, config.DefaultSecretsSection, flagUsageSecretsSection},
		{environmentKeyConnectionKind, flagNameConnectionKind, spreadsheet.KindPublic, flagUsageConnectionKind},
		{environmentKeyCredentialsFile, flagNameCredentialsFile, "", flagUsageCredentialsFile},
		{environmentKeyHistoryDataSource, flagNameHistoryDataSourceName, "", flagUsageHistoryDataSourceName},
		{environmentKeyHistoryRetention, flagNameHistoryRetention, defaultHistoryRetention, flagUsageHistoryRetention},
	}

	commandFlags := command.Flags()
	for _, flagDefinition := range flagDefinitions {
		application.configurationLoader.SetDefault(flagDefinition.environmentKey, flagDefinition.defaultValue)
		commandFlags.String(flagDefinition.flagName, flagDefinition.defaultValue, flagDefinition.usage)
	}
	application.configurationLoader.AutomaticEnv()

	for _, flagDefinition := range flagDefinitions {
		if bindErr := application.bindFlag(commandFlags, flagDefinition.environmentKey, flagDefinition.flagName); bindErr != nil {
			return bindErr
		}
		if environmentErr := application.applyEnvironmentConfiguration(commandFlags, flagDefinition.environmentKey, flagDefinition.flagName); environmentErr != nil {
			return environmentErr
		}
	}

	return nil
}

func (application *ServerApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ServerApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %w", environmentConfigurationError, setErr)
	}

	return nil
}

func (application *ServerApplication) serverConfig() ServerConfig {
	return ServerConfig{
		ApplicationAddress:    strings.TrimSpace(application.configurationLoader.GetString(environmentKeyApplicationAddress)),
		SecretsFile:           strings.TrimSpace(application.configurationLoader.GetString(environmentKeySecretsFile)),
		SecretsSection:        strings.TrimSpace(application.configurationLoader.GetString(environmentKeySecretsSection)),
		ConnectionKind:        strings.TrimSpace(application.configurationLoader.GetString(environmentKeyConnectionKind)),
		CredentialsFile:       strings.TrimSpace(application.configurationLoader.GetString(environmentKeyCredentialsFile)),
		HistoryDataSourceName: strings.TrimSpace(application.configurationLoader.GetString(environmentKeyHistoryDataSource)),
		HistoryRetention:      strings.TrimSpace(application.configurationLoader.GetString(environmentKeyHistoryRetention)),
	}
}

func (application *ServerApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig := application.serverConfig()
	if validationErr := application.ensureRequiredConfiguration(serverConfig); validationErr != nil {
		return validationErr
	}

	sheetConfig, sheetErr := config.LoadSheetConfig(serverConfig.SecretsFile, serverConfig.SecretsSection)
	if sheetErr != nil {
		return fmt.Errorf("%s: %w", loadSheetConfigurationMessage, sheetErr)
	}

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	connection, connectErr := spreadsheet.Connect(command.Context(), spreadsheet.ConnectionConfig{
		Kind:            serverConfig.ConnectionKind,
		CredentialsFile: serverConfig.CredentialsFile,
	})
	if connectErr != nil {
		return fmt.Errorf("%s: %w", connectSpreadsheetMessage, connectErr)
	}

	controllerOptions := []dashboard.ControllerOption{dashboard.WithSecretsSection(serverConfig.SecretsSection)}
	var history httpapi.RenderPassLister
	if serverConfig.HistoryDataSourceName != "" {
		database, databaseErr := application.databaseOpener(serverConfig.HistoryDataSourceName)
		if databaseErr != nil {
			return fmt.Errorf("%s: %w", openHistoryDatabaseMessage, databaseErr)
		}
		if migrateErr := storage.AutoMigrate(database); migrateErr != nil {
			return fmt.Errorf("%s: %w", migrateHistoryDatabaseMessage, migrateErr)
		}
		repository, repositoryErr := storage.NewRenderPassRepository(database)
		if repositoryErr != nil {
			return fmt.Errorf("%s: %w", openHistoryDatabaseMessage, repositoryErr)
		}
		controllerOptions = append(controllerOptions, dashboard.WithPassRecorder(repository))
		history = repository

		retention, retentionErr := parseHistoryRetention(serverConfig.HistoryRetention)
		if retentionErr != nil {
			return fmt.Errorf("%s: %s: %w", invalidConfigurationMessage, flagNameHistoryRetention, retentionErr)
		}
		retentionJob := task.NewHistoryRetentionJob(repository, logger, retention)
		retentionScheduler := task.NewScheduler(historyPruneInterval, retentionJob.Run)
		retentionScheduler.Start(command.Context())
		retentionScheduler.RunNow()
		defer retentionScheduler.Stop()
	}

	controller := dashboard.NewController(connection, charts.NewRenderer(), logger, controllerOptions...)
	dashboardHandlers := httpapi.NewDashboardPageHandlers(logger, controller, sheetConfig)
	renderPassHandlers := httpapi.NewRenderPassHandlers(logger, history)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpapi.RequestLogger(logger))
	registerRoutes(router, dashboardHandlers, renderPassHandlers)

	httpServer := &http.Server{
		Addr:              serverConfig.ApplicationAddress,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeoutSeconds * time.Second,
	}

	logger.Info(logEventListening, zap.String(logFieldAddress, serverConfig.ApplicationAddress))
	if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		logger.Fatal(loggerContextServer, zap.Error(serveErr))
	}

	return nil
}

func (application *ServerApplication) ensureRequiredConfiguration(configuration ServerConfig) error {
	var missingParameters []string

	if configuration.ApplicationAddress == "" {
		missingParameters = append(missingParameters, flagNameApplicationAddress)
	}
	if configuration.SecretsSection == "" {
		missingParameters = append(missingParameters, flagNameSecretsSection)
	}
	if configuration.ConnectionKind == spreadsheet.KindServiceAccount && configuration.CredentialsFile == "" {
		missingParameters = append(missingParameters, flagNameCredentialsFile)
	}
	if len(missingParameters) > 0 {
		return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
	}

	switch configuration.ConnectionKind {
	case spreadsheet.KindPublic, spreadsheet.KindServiceAccount:
	default:
		return fmt.Errorf("%s: "+unsupportedConnectionKindTemplate, invalidConfigurationMessage, flagNameConnectionKind, configuration.ConnectionKind)
	}

	if _, retentionErr := parseHistoryRetention(configuration.HistoryRetention); retentionErr != nil {
		return fmt.Errorf("%s: %s: %w", invalidConfigurationMessage, flagNameHistoryRetention, retentionErr)
	}
	return nil
}

func parseHistoryRetention(rawRetention string) (time.Duration, error) {
	if rawRetention == "" {
		return 0, nil
	}
	retention, parseErr := time.ParseDuration(rawRetention)
	if parseErr != nil {
		return 0, parseErr
	}
	if retention < 0 {
		return 0, errNegativeRetention
	}
	return retention, nil
}

func main() {
	application := NewServerApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.ExecuteContext(context.Background()); executeErr != nil {
		os.Exit(1)
	}
}
