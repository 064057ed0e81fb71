package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultSecretsSection is the secret store namespace holding the credit spreadsheet identifiers.
	DefaultSecretsSection = "gsheet_credit"
	// DefaultSecretsFile is the secrets file consulted when none is configured.
	DefaultSecretsFile = ".streamlit/secrets.toml"

	secretsFileType              = "toml"
	secretKeySpreadsheet         = "spreadsheet"
	secretKeyWorksheet           = "worksheet"
	secretKeySpreadsheetID       = "spreadsheet_id"
	secretKeyWorksheetID         = "worksheet_id"
	errorMessageReadSecretsFile  = "config: read secrets file"
	errorMessageMissingSheetKeys = "config: missing sheet configuration"
)

// ErrMissingSheetConfiguration marks every ConfigurationError so callers can match with errors.Is.
var ErrMissingSheetConfiguration = errors.New(errorMessageMissingSheetKeys)

// SheetConfig identifies the worksheet a render pass reads.
type SheetConfig struct {
	SpreadsheetID string `mapstructure:"spreadsheet_id" json:"spreadsheet_id"`
	WorksheetID   string `mapstructure:"worksheet_id" json:"worksheet_id"`
}

// ConfigurationError reports the sheet keys that were absent from the secret store.
type ConfigurationError struct {
	Section     string
	MissingKeys []string
}

func (configurationError *ConfigurationError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", errorMessageMissingSheetKeys, configurationError.Section, strings.Join(configurationError.MissingKeys, ", "))
}

func (configurationError *ConfigurationError) Unwrap() error {
	return ErrMissingSheetConfiguration
}

// Validate returns a ConfigurationError when either identifier is blank.
func (sheetConfig SheetConfig) Validate(section string) error {
	var missingKeys []string
	if strings.TrimSpace(sheetConfig.SpreadsheetID) == "" {
		missingKeys = append(missingKeys, secretKeySpreadsheetID)
	}
	if strings.TrimSpace(sheetConfig.WorksheetID) == "" {
		missingKeys = append(missingKeys, secretKeyWorksheetID)
	}
	if len(missingKeys) == 0 {
		return nil
	}
	return &ConfigurationError{Section: section, MissingKeys: missingKeys}
}

// LoadSheetConfig reads the sheet identifiers from the named section of a TOML secrets file.
// A missing file yields an empty SheetConfig so the failure surfaces when a pass validates it.
func LoadSheetConfig(secretsFile string, section string) (SheetConfig, error) {
	trimmedPath := strings.TrimSpace(secretsFile)
	if trimmedPath == "" {
		return SheetConfig{}, nil
	}
	if _, statErr := os.Stat(trimmedPath); errors.Is(statErr, os.ErrNotExist) {
		return SheetConfig{}, nil
	}

	secretsLoader := viper.New()
	secretsLoader.SetConfigFile(trimmedPath)
	secretsLoader.SetConfigType(secretsFileType)
	if readErr := secretsLoader.ReadInConfig(); readErr != nil {
		return SheetConfig{}, fmt.Errorf("%s: %w", errorMessageReadSecretsFile, readErr)
	}

	return SheetConfigFromViper(secretsLoader, section), nil
}

// SheetConfigFromViper extracts the sheet identifiers from a loaded secret store.
func SheetConfigFromViper(secretsLoader *viper.Viper, section string) SheetConfig {
	return SheetConfig{
		SpreadsheetID: firstNonEmpty(secretsLoader, section, secretKeySpreadsheet, secretKeySpreadsheetID),
		WorksheetID:   firstNonEmpty(secretsLoader, section, secretKeyWorksheet, secretKeyWorksheetID),
	}
}

func firstNonEmpty(secretsLoader *viper.Viper, section string, keys ...string) string {
	for _, key := range keys {
		value := strings.TrimSpace(secretsLoader.GetString(section + "." + key))
		if value != "" {
			return value
		}
	}
	return ""
}
