// Package dataset holds the tabular data a render pass works on.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const (
	// ColumnIncomeType is the categorical column counted by the income types chart.
	ColumnIncomeType = "Income_type"
	// ColumnEducationType is the categorical column counted by the education types chart.
	ColumnEducationType = "Education_type"
	// ColumnAge is the numeric x axis of the income over age chart.
	ColumnAge = "Age"
	// ColumnTotalIncome is the numeric measure plotted by the income charts.
	ColumnTotalIncome = "Total_income"
	// ColumnFamilyStatus groups the income box plot.
	ColumnFamilyStatus = "Family_status"

	errorMessageEmptyRecords     = "dataset: no header row"
	errorMessageMissingColumn    = "dataset: missing column"
	errorMessageNonNumericColumn = "dataset: column is not numeric"
	errorMessageBuildFrame       = "dataset: build frame"
)

// missingTokens are the cell values read as missing, in addition to empty cells.
var missingTokens = []string{"NA", "NaN", "<nil>"}

var (
	// ErrEmptyRecords indicates the worksheet returned no header row.
	ErrEmptyRecords = errors.New(errorMessageEmptyRecords)
	// ErrMissingColumn indicates a consumed column is absent from the dataset.
	ErrMissingColumn = errors.New(errorMessageMissingColumn)
	// ErrNonNumericColumn indicates a consumed numeric column was inferred as text.
	ErrNonNumericColumn = errors.New(errorMessageNonNumericColumn)
)

// Dataset is a two-dimensional table with named, typed columns.
type Dataset struct {
	frame   dataframe.DataFrame
	records [][]string
}

// CategoryCount is the number of rows holding one distinct value of a column.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// GroupMean is the mean of a numeric column over the rows sharing one key value.
type GroupMean struct {
	Key   float64 `json:"key"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
}

// New builds a Dataset from raw records whose first row is the header.
// Short rows are padded with empty cells, which count as missing.
func New(records [][]string) (*Dataset, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrEmptyRecords
	}

	header := make([]string, len(records[0]))
	for index, name := range records[0] {
		header[index] = strings.TrimSpace(name)
	}
	columnCount := len(header)

	normalized := make([][]string, 0, len(records))
	normalized = append(normalized, header)
	for _, record := range records[1:] {
		row := make([]string, columnCount)
		for index := 0; index < columnCount && index < len(record); index++ {
			row[index] = strings.TrimSpace(record[index])
		}
		normalized = append(normalized, row)
	}

	frame := loadFrame(normalized)
	if frame.Err != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageBuildFrame, frame.Err)
	}

	return &Dataset{frame: frame, records: normalized}, nil
}

// loadFrame infers column types from the data rows. A header-only table becomes empty text columns.
func loadFrame(normalized [][]string) dataframe.DataFrame {
	if len(normalized) > 1 {
		return dataframe.LoadRecords(normalized, dataframe.NaNValues(missingTokens))
	}
	columns := make([]series.Series, 0, len(normalized[0]))
	for _, name := range normalized[0] {
		columns = append(columns, series.New([]string{}, series.String, name))
	}
	return dataframe.New(columns...)
}

func isMissing(value string) bool {
	if value == "" {
		return true
	}
	for _, token := range missingTokens {
		if value == token {
			return true
		}
	}
	return false
}

// Frame exposes the underlying DataFrame.
func (dataset *Dataset) Frame() dataframe.DataFrame {
	return dataset.frame
}

// Rows returns the number of data rows.
func (dataset *Dataset) Rows() int {
	return len(dataset.records) - 1
}

// Columns returns the column names in header order.
func (dataset *Dataset) Columns() []string {
	names := make([]string, len(dataset.records[0]))
	copy(names, dataset.records[0])
	return names
}

// Records returns the data rows as normalized strings, header excluded.
func (dataset *Dataset) Records() [][]string {
	return dataset.records[1:]
}

// ColumnType reports the inferred type of a column.
func (dataset *Dataset) ColumnType(name string) (series.Type, error) {
	column, columnErr := dataset.column(name)
	if columnErr != nil {
		return "", columnErr
	}
	return column.Type(), nil
}

// IsNumeric reports whether a column was inferred as int or float.
func (dataset *Dataset) IsNumeric(name string) bool {
	columnType, typeErr := dataset.ColumnType(name)
	if typeErr != nil {
		return false
	}
	return columnType == series.Int || columnType == series.Float
}

// NumericColumns returns the int and float columns in header order.
func (dataset *Dataset) NumericColumns() []string {
	var names []string
	for _, name := range dataset.Columns() {
		if dataset.IsNumeric(name) {
			names = append(names, name)
		}
	}
	return names
}

// Strings returns the cells of a column; missing cells are returned as empty strings.
func (dataset *Dataset) Strings(name string) ([]string, error) {
	index, indexErr := dataset.columnIndex(name)
	if indexErr != nil {
		return nil, indexErr
	}
	values := make([]string, 0, dataset.Rows())
	for _, record := range dataset.records[1:] {
		value := record[index]
		if isMissing(value) {
			value = ""
		}
		values = append(values, value)
	}
	return values, nil
}

// Floats returns a numeric column with NaN for missing cells.
// A table without data rows yields an empty slice for any column.
func (dataset *Dataset) Floats(name string) ([]float64, error) {
	column, columnErr := dataset.column(name)
	if columnErr != nil {
		return nil, columnErr
	}
	if dataset.Rows() == 0 {
		return []float64{}, nil
	}
	if column.Type() != series.Int && column.Type() != series.Float {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNonNumericColumn, name, column.Type())
	}
	return column.Float(), nil
}

// ValueCounts counts rows per distinct non-missing value, most frequent first.
// Ties keep the order in which values first appear.
func (dataset *Dataset) ValueCounts(name string) ([]CategoryCount, error) {
	values, valuesErr := dataset.Strings(name)
	if valuesErr != nil {
		return nil, valuesErr
	}

	countsByValue := make(map[string]int)
	var order []string
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, seen := countsByValue[value]; !seen {
			order = append(order, value)
		}
		countsByValue[value]++
	}

	counts := make([]CategoryCount, 0, len(order))
	for _, value := range order {
		counts = append(counts, CategoryCount{Value: value, Count: countsByValue[value]})
	}
	sort.SliceStable(counts, func(left, right int) bool {
		return counts[left].Count > counts[right].Count
	})
	return counts, nil
}

// GroupMean averages valueColumn per distinct keyColumn value in ascending key order.
// Rows with a missing key are dropped; a group without any value has a NaN mean.
func (dataset *Dataset) GroupMean(keyColumn string, valueColumn string) ([]GroupMean, error) {
	keys, keysErr := dataset.Floats(keyColumn)
	if keysErr != nil {
		return nil, keysErr
	}
	values, valuesErr := dataset.Floats(valueColumn)
	if valuesErr != nil {
		return nil, valuesErr
	}

	type accumulator struct {
		sum   float64
		count int
	}
	accumulators := make(map[float64]*accumulator)
	for index, key := range keys {
		if math.IsNaN(key) {
			continue
		}
		current, exists := accumulators[key]
		if !exists {
			current = &accumulator{}
			accumulators[key] = current
		}
		if math.IsNaN(values[index]) {
			continue
		}
		current.sum += values[index]
		current.count++
	}

	groups := make([]GroupMean, 0, len(accumulators))
	for key, current := range accumulators {
		mean := math.NaN()
		if current.count > 0 {
			mean = current.sum / float64(current.count)
		}
		groups = append(groups, GroupMean{Key: key, Count: current.count, Mean: mean})
	}
	sort.Slice(groups, func(left, right int) bool {
		return groups[left].Key < groups[right].Key
	})
	return groups, nil
}

func (dataset *Dataset) column(name string) (series.Series, error) {
	if _, indexErr := dataset.columnIndex(name); indexErr != nil {
		return series.Series{}, indexErr
	}
	column := dataset.frame.Col(name)
	if column.Err != nil {
		return series.Series{}, fmt.Errorf("%w: %s: %v", ErrMissingColumn, name, column.Err)
	}
	return column, nil
}

func (dataset *Dataset) columnIndex(name string) (int, error) {
	for index, columnName := range dataset.records[0] {
		if columnName == name {
			return index, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrMissingColumn, name)
}
