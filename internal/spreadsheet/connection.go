// Package spreadsheet reads a worksheet of a Google spreadsheet into a Dataset.
package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/config"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/dataset"
)

const (
	// KindPublic reads publicly shared spreadsheets through the CSV export endpoints.
	KindPublic = "gsheets"
	// KindServiceAccount reads spreadsheets through the Sheets API with a service account.
	KindServiceAccount = "gsheets_service_account"

	defaultPublicBaseURL = "https://docs.google.com"
	defaultFetchTimeout  = 30 * time.Second

	errorMessageFetch              = "spreadsheet: fetch"
	errorMessageUnknownKind        = "spreadsheet: unknown connection kind"
	errorMessageMissingCredentials = "spreadsheet: missing service account credentials file"
	errorMessageEmptyWorksheet     = "spreadsheet: worksheet returned no rows"
	errorMessageUnknownWorksheet   = "spreadsheet: worksheet not found"
	errorMessageUnexpectedStatus   = "spreadsheet: unexpected status code"
)

var (
	// ErrFetch marks every FetchError.
	ErrFetch = errors.New(errorMessageFetch)
	// ErrUnknownConnectionKind indicates an unsupported connection kind.
	ErrUnknownConnectionKind = errors.New(errorMessageUnknownKind)
	// ErrMissingCredentials indicates a service account connection without a credentials file.
	ErrMissingCredentials = errors.New(errorMessageMissingCredentials)
	// ErrEmptyWorksheet indicates the worksheet has no header row.
	ErrEmptyWorksheet = errors.New(errorMessageEmptyWorksheet)
	// ErrUnknownWorksheet indicates a worksheet gid that matches no tab of the spreadsheet.
	ErrUnknownWorksheet = errors.New(errorMessageUnknownWorksheet)
	// ErrUnexpectedStatus indicates a non-200 export response.
	ErrUnexpectedStatus = errors.New(errorMessageUnexpectedStatus)

	spreadsheetURLPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	worksheetGIDPattern   = regexp.MustCompile(`^[0-9]+$`)
)

// Connection reads one worksheet into a Dataset.
type Connection interface {
	Read(ctx context.Context, sheet config.SheetConfig) (*dataset.Dataset, error)
}

// ConnectionConfig selects and configures a Connection.
type ConnectionConfig struct {
	Kind            string
	CredentialsFile string
	// BaseURL overrides the endpoint of either connection kind.
	BaseURL    string
	HTTPClient *http.Client
}

// FetchError reports a failed worksheet read.
type FetchError struct {
	Spreadsheet string
	Worksheet   string
	Err         error
}

func (fetchError *FetchError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", errorMessageFetch, fetchError.Spreadsheet, fetchError.Worksheet, fetchError.Err)
}

func (fetchError *FetchError) Unwrap() []error {
	return []error{ErrFetch, fetchError.Err}
}

// Connect builds the connection named by the configured kind; an empty kind selects KindPublic.
func Connect(ctx context.Context, connectionConfig ConnectionConfig) (Connection, error) {
	kind := strings.TrimSpace(connectionConfig.Kind)
	switch kind {
	case "", KindPublic:
		return newPublicConnection(connectionConfig), nil
	case KindServiceAccount:
		return newServiceAccountConnection(ctx, connectionConfig)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownConnectionKind, kind)
	}
}

// SpreadsheetID accepts a bare spreadsheet id or a full spreadsheet URL.
func SpreadsheetID(spreadsheet string) string {
	trimmed := strings.TrimSpace(spreadsheet)
	if match := spreadsheetURLPattern.FindStringSubmatch(trimmed); len(match) == 2 {
		return match[1]
	}
	return trimmed
}

// IsWorksheetGID reports whether the worksheet is addressed by its numeric gid rather than its tab name.
func IsWorksheetGID(worksheet string) bool {
	return worksheetGIDPattern.MatchString(strings.TrimSpace(worksheet))
}

func buildDataset(sheet config.SheetConfig, records [][]string) (*dataset.Dataset, error) {
	if len(records) == 0 {
		return nil, &FetchError{Spreadsheet: sheet.SpreadsheetID, Worksheet: sheet.WorksheetID, Err: ErrEmptyWorksheet}
	}
	worksheetDataset, datasetErr := dataset.New(records)
	if datasetErr != nil {
		return nil, &FetchError{Spreadsheet: sheet.SpreadsheetID, Worksheet: sheet.WorksheetID, Err: datasetErr}
	}
	return worksheetDataset, nil
}
