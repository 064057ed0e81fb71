package spreadsheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/config"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/dataset"
)

const (
	exportByGIDPathFormat  = "%s/spreadsheets/d/%s/export?format=csv&gid=%s"
	exportByNamePathFormat = "%s/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s"
)

type publicConnection struct {
	baseURL    string
	httpClient *http.Client
}

func newPublicConnection(connectionConfig ConnectionConfig) *publicConnection {
	connection := &publicConnection{baseURL: strings.TrimRight(connectionConfig.BaseURL, "/")}
	if connection.baseURL == "" {
		connection.baseURL = defaultPublicBaseURL
	}
	if connectionConfig.HTTPClient != nil {
		connection.httpClient = connectionConfig.HTTPClient
	} else {
		connection.httpClient = &http.Client{Timeout: defaultFetchTimeout}
	}
	return connection
}

// ExportURL builds the CSV export address of a worksheet given by gid or tab name.
func ExportURL(baseURL string, sheet config.SheetConfig) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultPublicBaseURL
	}
	spreadsheetID := SpreadsheetID(sheet.SpreadsheetID)
	worksheet := strings.TrimSpace(sheet.WorksheetID)
	if IsWorksheetGID(worksheet) {
		return fmt.Sprintf(exportByGIDPathFormat, base, spreadsheetID, worksheet)
	}
	return fmt.Sprintf(exportByNamePathFormat, base, spreadsheetID, url.QueryEscape(worksheet))
}

func (connection *publicConnection) Read(ctx context.Context, sheet config.SheetConfig) (*dataset.Dataset, error) {
	records, recordsErr := connection.fetchRecords(ctx, sheet)
	if recordsErr != nil {
		return nil, &FetchError{Spreadsheet: sheet.SpreadsheetID, Worksheet: sheet.WorksheetID, Err: recordsErr}
	}
	return buildDataset(sheet, records)
}

func (connection *publicConnection) fetchRecords(ctx context.Context, sheet config.SheetConfig) ([][]string, error) {
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodGet, ExportURL(connection.baseURL, sheet), nil)
	if requestErr != nil {
		return nil, requestErr
	}
	response, responseErr := connection.httpClient.Do(request)
	if responseErr != nil {
		return nil, responseErr
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, response.StatusCode)
	}

	reader := csv.NewReader(response.Body)
	reader.FieldsPerRecord = -1
	records, readErr := reader.ReadAll()
	if readErr != nil {
		return nil, fmt.Errorf("read csv: %w", readErr)
	}
	return records, nil
}
