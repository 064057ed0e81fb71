package spreadsheet

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/config"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/dataset"
)

const spreadsheetPropertiesFields = "sheets.properties(sheetId,title)"

type serviceAccountConnection struct {
	service *sheetsapi.Service
}

func newServiceAccountConnection(ctx context.Context, connectionConfig ConnectionConfig) (*serviceAccountConnection, error) {
	options := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope)}
	credentialsFile := strings.TrimSpace(connectionConfig.CredentialsFile)
	switch {
	case credentialsFile != "":
		options = append(options, option.WithCredentialsFile(credentialsFile))
	case connectionConfig.BaseURL != "":
		options = append(options, option.WithoutAuthentication())
	default:
		return nil, ErrMissingCredentials
	}
	if connectionConfig.BaseURL != "" {
		options = append(options, option.WithEndpoint(connectionConfig.BaseURL))
	}
	if connectionConfig.HTTPClient != nil && credentialsFile == "" {
		options = append(options, option.WithHTTPClient(connectionConfig.HTTPClient))
	}

	service, serviceErr := sheetsapi.NewService(ctx, options...)
	if serviceErr != nil {
		return nil, fmt.Errorf("spreadsheet: create sheets service: %w", serviceErr)
	}
	return &serviceAccountConnection{service: service}, nil
}

func (connection *serviceAccountConnection) Read(ctx context.Context, sheet config.SheetConfig) (*dataset.Dataset, error) {
	spreadsheetID := SpreadsheetID(sheet.SpreadsheetID)
	worksheetTitle, titleErr := connection.worksheetTitle(ctx, spreadsheetID, strings.TrimSpace(sheet.WorksheetID))
	if titleErr != nil {
		return nil, &FetchError{Spreadsheet: sheet.SpreadsheetID, Worksheet: sheet.WorksheetID, Err: titleErr}
	}

	valueRange, valuesErr := connection.service.Spreadsheets.Values.Get(spreadsheetID, quoteSheetTitle(worksheetTitle)).Context(ctx).Do()
	if valuesErr != nil {
		return nil, &FetchError{Spreadsheet: sheet.SpreadsheetID, Worksheet: sheet.WorksheetID, Err: valuesErr}
	}

	records := make([][]string, 0, len(valueRange.Values))
	for _, row := range valueRange.Values {
		record := make([]string, 0, len(row))
		for _, cell := range row {
			record = append(record, fmt.Sprint(cell))
		}
		records = append(records, record)
	}
	return buildDataset(sheet, records)
}

// worksheetTitle resolves a numeric gid to its tab title; tab names pass through unchanged.
func (connection *serviceAccountConnection) worksheetTitle(ctx context.Context, spreadsheetID string, worksheet string) (string, error) {
	if !IsWorksheetGID(worksheet) {
		return worksheet, nil
	}
	sheetID, parseErr := strconv.ParseInt(worksheet, 10, 64)
	if parseErr != nil {
		return "", parseErr
	}
	document, documentErr := connection.service.Spreadsheets.Get(spreadsheetID).Fields(spreadsheetPropertiesFields).Context(ctx).Do()
	if documentErr != nil {
		return "", documentErr
	}
	for _, tab := range document.Sheets {
		if tab.Properties != nil && tab.Properties.SheetId == sheetID {
			return tab.Properties.Title, nil
		}
	}
	return "", fmt.Errorf("%w: gid %s", ErrUnknownWorksheet, worksheet)
}

func quoteSheetTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
