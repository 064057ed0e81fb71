package main_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	servercmd "github.com/MarkoPoloResearchLab/credit_dashboard/cmd/server"
)

const (
	testEnvironmentKeyApplicationAddress = "APP_ADDR"
	testEnvironmentKeySecretsFile        = "SECRETS_FILE"
	testEnvironmentKeySecretsSection     = "SECRETS_SECTION"
	testEnvironmentKeyConnectionKind     = "CONNECTION_KIND"
	testEnvironmentKeyCredentialsFile    = "CREDENTIALS_FILE"
	testEnvironmentKeyHistoryDataSource  = "HISTORY_DSN"
	testMissingConfigurationMessage      = "missing required configuration"
	testInvalidConfigurationMessage      = "invalid configuration"
	testUsagePrefix                      = "Usage:"
	testHistoryDataSourceName            = "file:history-under-test?mode=memory"
)

type commandEnvironment struct {
	applicationAddress string
	secretsFile        string
	secretsSection     string
	connectionKind     string
	credentialsFile    string
	historyDataSource  string
}

func defaultCommandEnvironment(testingT *testing.T) commandEnvironment {
	testingT.Helper()
	return commandEnvironment{
		applicationAddress: ":0",
		secretsFile:        filepath.Join(testingT.TempDir(), "absent.toml"),
		secretsSection:     "gsheet_credit",
		connectionKind:     "gsheets",
	}
}

func (environment commandEnvironment) apply(testingT *testing.T) {
	testingT.Helper()
	testingT.Setenv(testEnvironmentKeyApplicationAddress, environment.applicationAddress)
	testingT.Setenv(testEnvironmentKeySecretsFile, environment.secretsFile)
	testingT.Setenv(testEnvironmentKeySecretsSection, environment.secretsSection)
	testingT.Setenv(testEnvironmentKeyConnectionKind, environment.connectionKind)
	testingT.Setenv(testEnvironmentKeyCredentialsFile, environment.credentialsFile)
	testingT.Setenv(testEnvironmentKeyHistoryDataSource, environment.historyDataSource)
}

func executeServerCommand(testingT *testing.T, application *servercmd.ServerApplication) (string, error) {
	testingT.Helper()
	command, commandErr := application.WithEnvironmentFile("").Command()
	require.NoError(testingT, commandErr)

	commandOutput := &bytes.Buffer{}
	command.SetOut(commandOutput)
	command.SetErr(commandOutput)
	command.SetArgs([]string{})

	executionErr := command.Execute()
	return commandOutput.String(), executionErr
}

func failingDatabaseOpener(testingT *testing.T) servercmd.DatabaseOpener {
	return func(dataSourceName string) (*gorm.DB, error) {
		testingT.Fatalf("database opener invoked with %s", dataSourceName)
		return nil, nil
	}
}

func TestServerCommandMissingConfigurationShowsHelp(testingT *testing.T) {
	testCases := []struct {
		name         string
		mutate       func(*commandEnvironment)
		expectedFlag string
	}{
		{
			name:         "missing application address",
			mutate:       func(environment *commandEnvironment) { environment.applicationAddress = "" },
			expectedFlag: "--app-addr",
		},
		{
			name:         "missing secrets section",
			mutate:       func(environment *commandEnvironment) { environment.secretsSection = "  " },
			expectedFlag: "--secrets-section",
		},
		{
			name: "service account without credentials",
			mutate: func(environment *commandEnvironment) {
				environment.connectionKind = "gsheets_service_account"
			},
			expectedFlag: "--credentials-file",
		},
	}

	for _, testCase := range testCases {
		testingT.Run(testCase.name, func(testingT *testing.T) {
			environment := defaultCommandEnvironment(testingT)
			testCase.mutate(&environment)
			environment.apply(testingT)

			application := servercmd.NewServerApplication().WithDatabaseOpener(failingDatabaseOpener(testingT))
			output, executionErr := executeServerCommand(testingT, application)

			require.Error(testingT, executionErr)
			require.ErrorContains(testingT, executionErr, testMissingConfigurationMessage)
			require.Contains(testingT, output, testUsagePrefix)
			require.Contains(testingT, output, testCase.expectedFlag)
		})
	}
}

func TestServerCommandRejectsUnknownConnectionKind(testingT *testing.T) {
	environment := defaultCommandEnvironment(testingT)
	environment.connectionKind = "carrier_pigeon"
	environment.apply(testingT)

	application := servercmd.NewServerApplication().WithDatabaseOpener(failingDatabaseOpener(testingT))
	_, executionErr := executeServerCommand(testingT, application)

	require.ErrorContains(testingT, executionErr, testInvalidConfigurationMessage)
	require.ErrorContains(testingT, executionErr, "carrier_pigeon")
}

func TestServerCommandRejectsUnexpectedArguments(testingT *testing.T) {
	defaultCommandEnvironment(testingT).apply(testingT)

	command, commandErr := servercmd.NewServerApplication().WithEnvironmentFile("").Command()
	require.NoError(testingT, commandErr)
	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})
	command.SetArgs([]string{"serve"})

	require.ErrorContains(testingT, command.Execute(), "unexpected command arguments")
}

func TestServerCommandFailsOnMalformedSecretsFile(testingT *testing.T) {
	environment := defaultCommandEnvironment(testingT)
	environment.secretsFile = filepath.Join(testingT.TempDir(), "secrets.toml")
	require.NoError(testingT, os.WriteFile(environment.secretsFile, []byte("[gsheet_credit\nspreadsheet = "), 0o600))
	environment.apply(testingT)

	application := servercmd.NewServerApplication().WithDatabaseOpener(failingDatabaseOpener(testingT))
	_, executionErr := executeServerCommand(testingT, application)

	require.ErrorContains(testingT, executionErr, "load sheet configuration")
}

func TestServerCommandSurfacesHistoryDatabaseFailure(testingT *testing.T) {
	environment := defaultCommandEnvironment(testingT)
	environment.historyDataSource = testHistoryDataSourceName
	environment.apply(testingT)

	openErr := errors.New("disk unavailable")
	var openedDataSource string
	application := servercmd.NewServerApplication().WithDatabaseOpener(func(dataSourceName string) (*gorm.DB, error) {
		openedDataSource = dataSourceName
		return nil, openErr
	})
	_, executionErr := executeServerCommand(testingT, application)

	require.ErrorIs(testingT, executionErr, openErr)
	require.ErrorContains(testingT, executionErr, "open history database")
	require.Equal(testingT, testHistoryDataSourceName, openedDataSource)
}

func TestServerCommandLoadsEnvironmentFile(testingT *testing.T) {
	defaultCommandEnvironment(testingT).apply(testingT)
	require.NoError(testingT, os.Unsetenv(testEnvironmentKeySecretsSection))

	environmentFile := filepath.Join(testingT.TempDir(), ".env")
	require.NoError(testingT, os.WriteFile(environmentFile, []byte(testEnvironmentKeySecretsSection+"=gsheet_from_dotenv\n"), 0o600))
	testingT.Cleanup(func() {
		_ = os.Unsetenv(testEnvironmentKeySecretsSection)
	})

	command, commandErr := servercmd.NewServerApplication().WithEnvironmentFile(environmentFile).Command()
	require.NoError(testingT, commandErr)

	require.Equal(testingT, "gsheet_from_dotenv", command.Flags().Lookup("secrets-section").Value.String())
}

func TestServerCommandIgnoresMissingEnvironmentFile(testingT *testing.T) {
	missingFile := filepath.Join(testingT.TempDir(), "missing.env")

	command, commandErr := servercmd.NewServerApplication().WithEnvironmentFile(missingFile).Command()
	require.NoError(testingT, commandErr)
	require.NotNil(testingT, command.Flags().Lookup("history-dsn"))
}

func TestServerCommandRejectsInvalidHistoryRetention(testingT *testing.T) {
	defaultCommandEnvironment(testingT).apply(testingT)
	testingT.Setenv("HISTORY_RETENTION", "-5h")

	application := servercmd.NewServerApplication().WithDatabaseOpener(failingDatabaseOpener(testingT))
	_, executionErr := executeServerCommand(testingT, application)

	require.ErrorContains(testingT, executionErr, testInvalidConfigurationMessage)
	require.ErrorContains(testingT, executionErr, "history-retention")
}
