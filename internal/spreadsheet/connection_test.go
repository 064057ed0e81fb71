package spreadsheet_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/config"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/dataset"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/spreadsheet"
)

const (
	testSpreadsheetID = "1AbC-dEf_123"
	applicantsCSV     = "Income_type,Education_type,Family_status,Age,Total_income\n" +
		"Working,Secondary,Married,30,100000\n" +
		"Pensioner,Higher education,Widow,61,80000\n"
)

func TestExportURLByGID(t *testing.T) {
	exportURL := spreadsheet.ExportURL("", config.SheetConfig{SpreadsheetID: testSpreadsheetID, WorksheetID: "0"})
	require.Equal(t, "https://docs.google.com/spreadsheets/d/1AbC-dEf_123/export?format=csv&gid=0", exportURL)
}

func TestExportURLBySheetName(t *testing.T) {
	exportURL := spreadsheet.ExportURL("http://localhost:8080/", config.SheetConfig{
		SpreadsheetID: "https://docs.google.com/spreadsheets/d/" + testSpreadsheetID + "/edit#gid=0",
		WorksheetID:   "Credit Data",
	})
	require.Equal(t, "http://localhost:8080/spreadsheets/d/1AbC-dEf_123/gviz/tq?tqx=out:csv&sheet=Credit+Data", exportURL)
}

func TestSpreadsheetIDAcceptsURLs(t *testing.T) {
	require.Equal(t, testSpreadsheetID, spreadsheet.SpreadsheetID(testSpreadsheetID))
	require.Equal(t, testSpreadsheetID, spreadsheet.SpreadsheetID(" https://docs.google.com/spreadsheets/d/"+testSpreadsheetID+"/edit "))
}

func TestConnectRejectsUnknownKind(t *testing.T) {
	_, connectErr := spreadsheet.Connect(context.Background(), spreadsheet.ConnectionConfig{Kind: "excel"})
	require.ErrorIs(t, connectErr, spreadsheet.ErrUnknownConnectionKind)
}

func TestConnectServiceAccountRequiresCredentials(t *testing.T) {
	_, connectErr := spreadsheet.Connect(context.Background(), spreadsheet.ConnectionConfig{Kind: spreadsheet.KindServiceAccount})
	require.ErrorIs(t, connectErr, spreadsheet.ErrMissingCredentials)
}

func TestPublicConnectionReadsWorksheet(t *testing.T) {
	var requestedURL string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestedURL = request.URL.String()
		writer.Header().Set("Content-Type", "text/csv")
		_, _ = writer.Write([]byte(applicantsCSV))
	}))
	defer server.Close()

	connection, connectErr := spreadsheet.Connect(context.Background(), spreadsheet.ConnectionConfig{
		Kind:       spreadsheet.KindPublic,
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	require.NoError(t, connectErr)

	applicants, readErr := connection.Read(context.Background(), config.SheetConfig{SpreadsheetID: testSpreadsheetID, WorksheetID: "42"})
	require.NoError(t, readErr)
	require.Equal(t, "/spreadsheets/d/1AbC-dEf_123/export?format=csv&gid=42", requestedURL)
	require.Equal(t, 2, applicants.Rows())
	require.Equal(t, []string{"Income_type", "Education_type", "Family_status", "Age", "Total_income"}, applicants.Columns())
	require.True(t, applicants.IsNumeric(dataset.ColumnTotalIncome))
}

func TestPublicConnectionMapsStatusToFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		http.Error(writer, "login required", http.StatusUnauthorized)
	}))
	defer server.Close()

	connection, connectErr := spreadsheet.Connect(context.Background(), spreadsheet.ConnectionConfig{BaseURL: server.URL})
	require.NoError(t, connectErr)

	_, readErr := connection.Read(context.Background(), config.SheetConfig{SpreadsheetID: testSpreadsheetID, WorksheetID: "0"})
	require.Error(t, readErr)
	require.ErrorIs(t, readErr, spreadsheet.ErrFetch)
	require.ErrorIs(t, readErr, spreadsheet.ErrUnexpectedStatus)

	var fetchErr *spreadsheet.FetchError
	require.True(t, errors.As(readErr, &fetchErr))
	require.Equal(t, testSpreadsheetID, fetchErr.Spreadsheet)
	require.Equal(t, "0", fetchErr.Worksheet)
	require.Contains(t, fetchErr.Error(), "401")
}

func TestPublicConnectionRejectsEmptyWorksheet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	connection, connectErr := spreadsheet.Connect(context.Background(), spreadsheet.ConnectionConfig{BaseURL: server.URL})
	require.NoError(t, connectErr)

	_, readErr := connection.Read(context.Background(), config.SheetConfig{SpreadsheetID: testSpreadsheetID, WorksheetID: "0"})
	require.ErrorIs(t, readErr, spreadsheet.ErrEmptyWorksheet)
}

func TestServiceAccountConnectionResolvesGID(t *testing.T) {
	var valuesPath string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(request.URL.Path, "/values/"):
			valuesPath = request.URL.Path
			_, _ = fmt.Fprint(writer, `{"range":"'Credit Data'!A1:E3","majorDimension":"ROWS","values":[`+
				`["Income_type","Education_type","Family_status","Age","Total_income"],`+
				`["Working","Secondary","Married",30,100000],`+
				`["Pensioner","Higher education","Widow",61,80000]]}`)
		case strings.HasSuffix(request.URL.Path, "/v4/spreadsheets/"+testSpreadsheetID):
			_, _ = fmt.Fprint(writer, `{"sheets":[{"properties":{"sheetId":0,"title":"Summary"}},{"properties":{"sheetId":7,"title":"Credit Data"}}]}`)
		default:
			http.NotFound(writer, request)
		}
	}))
	defer server.Close()

	connection, connectErr := spreadsheet.Connect(context.Background(), spreadsheet.ConnectionConfig{
		Kind:       spreadsheet.KindServiceAccount,
		BaseURL:    server.URL + "/",
		HTTPClient: server.Client(),
	})
	require.NoError(t, connectErr)

	applicants, readErr := connection.Read(context.Background(), config.SheetConfig{SpreadsheetID: testSpreadsheetID, WorksheetID: "7"})
	require.NoError(t, readErr)
	require.Contains(t, valuesPath, "Credit Data")
	require.Equal(t, 2, applicants.Rows())

	ages, agesErr := applicants.Floats(dataset.ColumnAge)
	require.NoError(t, agesErr)
	require.Equal(t, []float64{30, 61}, ages)
}

func TestServiceAccountConnectionUnknownGID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(writer, `{"sheets":[{"properties":{"sheetId":0,"title":"Summary"}}]}`)
	}))
	defer server.Close()

	connection, connectErr := spreadsheet.Connect(context.Background(), spreadsheet.ConnectionConfig{
		Kind:       spreadsheet.KindServiceAccount,
		BaseURL:    server.URL + "/",
		HTTPClient: server.Client(),
	})
	require.NoError(t, connectErr)

	_, readErr := connection.Read(context.Background(), config.SheetConfig{SpreadsheetID: testSpreadsheetID, WorksheetID: "9"})
	require.ErrorIs(t, readErr, spreadsheet.ErrUnknownWorksheet)
	require.ErrorIs(t, readErr, spreadsheet.ErrFetch)
}
