package testutil

import (
	"context"
	"sync"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/config"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/dataset"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/spreadsheet"
)

// CreditRecords is a small worksheet carrying every column the dashboard consumes.
var CreditRecords = [][]string{
	{"ID", "Gender", "Own_car", "Income_type", "Education_type", "Family_status", "Age", "Total_income"},
	{"5008804", "M", "true", "Working", "Higher education", "Civil marriage", "33", "427500"},
	{"5008806", "M", "true", "Working", "Secondary / secondary special", "Married", "59", "112500"},
	{"5008808", "F", "false", "Commercial associate", "Secondary / secondary special", "Single / not married", "52", "270000"},
	{"5008812", "F", "false", "Pensioner", "Higher education", "Separated", "62", "283500"},
	{"5008815", "M", "true", "Working", "Higher education", "Married", "46", "270000"},
	{"5008825", "F", "true", "Commercial associate", "Incomplete higher", "Married", "29", "130500"},
	{"5008830", "F", "false", "Working", "Secondary / secondary special", "Married", "27", "157500"},
	{"5008836", "M", "true", "Working", "Secondary / secondary special", "Married", "33", "270000"},
}

// StaticConnection serves fixed records, or a fixed error, and counts reads.
type StaticConnection struct {
	Records [][]string
	Err     error

	mutex sync.Mutex
	reads []config.SheetConfig
}

// Read returns a Dataset built from Records.
func (connection *StaticConnection) Read(ctx context.Context, sheet config.SheetConfig) (*dataset.Dataset, error) {
	connection.mutex.Lock()
	connection.reads = append(connection.reads, sheet)
	connection.mutex.Unlock()

	if connection.Err != nil {
		return nil, &spreadsheet.FetchError{Spreadsheet: sheet.SpreadsheetID, Worksheet: sheet.WorksheetID, Err: connection.Err}
	}
	return dataset.New(connection.Records)
}

// Reads returns the sheets requested so far.
func (connection *StaticConnection) Reads() []config.SheetConfig {
	connection.mutex.Lock()
	defer connection.mutex.Unlock()
	return append([]config.SheetConfig(nil), connection.reads...)
}
