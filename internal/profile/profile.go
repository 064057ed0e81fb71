// Package profile generates an automated profiling report of a dataset:
// column types, distributions, correlations, missing values and alerts.
package profile

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/dataset"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/stats"
)

const (
	// KindNumeric and the kinds below classify report variables.
	KindNumeric     = "numeric"
	KindCategorical = "categorical"
	KindBoolean     = "boolean"
	KindText        = "text"

	// AlertConstant and the alert types below label report alerts.
	AlertConstant        = "constant"
	AlertHighCardinality = "high_cardinality"
	AlertMissing         = "missing"
	AlertZeros           = "zeros"
	AlertHighCorrelation = "high_correlation"
	AlertUnique          = "unique"

	histogramBinCount          = 10
	topValueLimit              = 8
	categoricalDistinctLimit   = 50
	textAverageLengthThreshold = 40
	outlierZThreshold          = 3.5
	outlierMinimumObservations = 8
	madScale                   = 0.6745
	missingAlertShare          = 0.05
	zerosAlertShare            = 0.10
	highCardinalityShare       = 0.5
	highCorrelationThreshold   = 0.9
	correlationMinimumPairs    = 2

	errorMessageNoColumns = "profile: dataset has no columns"
	errorMessageProfiling = "profile: generate report"
)

// ErrNoColumns indicates the dataset carries no columns to profile.
var ErrNoColumns = errors.New(errorMessageNoColumns)

// ProfilingError wraps any failure of report generation.
type ProfilingError struct {
	Err error
}

func (profilingError *ProfilingError) Error() string {
	return fmt.Sprintf("%s: %v", errorMessageProfiling, profilingError.Err)
}

func (profilingError *ProfilingError) Unwrap() error {
	return profilingError.Err
}

// Report is the profiling result of one dataset.
type Report struct {
	Overview     Overview      `json:"overview"`
	Variables    []Variable    `json:"variables"`
	Correlations *Correlations `json:"correlations,omitempty"`
	Missing      []MissingInfo `json:"missing"`
	Alerts       []Alert       `json:"alerts"`
}

// Overview summarizes the whole table.
type Overview struct {
	Rows               int            `json:"rows"`
	Columns            int            `json:"columns"`
	MissingCells       int            `json:"missing_cells"`
	MissingCellsShare  float64        `json:"missing_cells_share"`
	DuplicateRows      int            `json:"duplicate_rows"`
	DuplicateRowsShare float64        `json:"duplicate_rows_share"`
	VariableKinds      map[string]int `json:"variable_kinds"`
}

// Variable describes one column.
type Variable struct {
	Name          string                  `json:"name"`
	Kind          string                  `json:"kind"`
	Distinct      int                     `json:"distinct"`
	DistinctShare float64                 `json:"distinct_share"`
	Missing       int                     `json:"missing"`
	MissingShare  float64                 `json:"missing_share"`
	Numeric       *NumericDetail          `json:"numeric,omitempty"`
	TopValues     []dataset.CategoryCount `json:"top_values,omitempty"`
}

// NumericDetail holds the distribution of a numeric column.
type NumericDetail struct {
	Statistics stats.ColumnStatistics `json:"statistics"`
	Zeros      int                    `json:"zeros"`
	Outliers   int                    `json:"outliers"`
	Histogram  []Bin                  `json:"histogram"`
}

// Bin is one histogram bucket covering [Lower, Upper).
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Correlations is a symmetric Pearson matrix across numeric columns.
type Correlations struct {
	Columns []string         `json:"columns"`
	Values  [][]stats.Number `json:"values"`
}

// MissingInfo is the missing-value count of one column.
type MissingInfo struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Share  float64 `json:"share"`
}

// Alert flags a notable property of a column or column pair.
type Alert struct {
	Type    string `json:"type"`
	Column  string `json:"column"`
	Message string `json:"message"`
}

// Generate profiles every column of the dataset.
func Generate(source *dataset.Dataset) (*Report, error) {
	if source == nil {
		return nil, &ProfilingError{Err: ErrNoColumns}
	}
	columnNames := source.Columns()
	if len(columnNames) == 0 {
		return nil, &ProfilingError{Err: ErrNoColumns}
	}

	rowCount := source.Rows()
	report := &Report{
		Overview: Overview{
			Rows:          rowCount,
			Columns:       len(columnNames),
			VariableKinds: map[string]int{},
		},
	}

	numericValues := make(map[string][]float64)
	for _, name := range columnNames {
		variable, values, variableErr := profileVariable(source, name, rowCount)
		if variableErr != nil {
			return nil, &ProfilingError{Err: variableErr}
		}
		if values != nil {
			numericValues[name] = values
		}
		report.Variables = append(report.Variables, variable)
		report.Overview.VariableKinds[variable.Kind]++
		report.Overview.MissingCells += variable.Missing
		report.Missing = append(report.Missing, MissingInfo{Column: name, Count: variable.Missing, Share: variable.MissingShare})
		report.Alerts = append(report.Alerts, variableAlerts(variable, rowCount)...)
	}

	cellCount := rowCount * len(columnNames)
	report.Overview.MissingCellsShare = share(report.Overview.MissingCells, cellCount)
	report.Overview.DuplicateRows = countDuplicateRows(source.Records())
	report.Overview.DuplicateRowsShare = share(report.Overview.DuplicateRows, rowCount)

	numericColumns := source.NumericColumns()
	if len(numericColumns) >= 2 {
		report.Correlations = correlate(numericColumns, numericValues)
		report.Alerts = append(report.Alerts, correlationAlerts(report.Correlations)...)
	}

	return report, nil
}

func profileVariable(source *dataset.Dataset, name string, rowCount int) (Variable, []float64, error) {
	cells, cellsErr := source.Strings(name)
	if cellsErr != nil {
		return Variable{}, nil, cellsErr
	}
	columnType, typeErr := source.ColumnType(name)
	if typeErr != nil {
		return Variable{}, nil, typeErr
	}

	variable := Variable{Name: name}
	distinctValues := make(map[string]struct{})
	totalLength := 0
	for _, cell := range cells {
		if cell == "" {
			variable.Missing++
			continue
		}
		distinctValues[cell] = struct{}{}
		totalLength += len(cell)
	}
	present := rowCount - variable.Missing
	variable.Distinct = len(distinctValues)
	variable.DistinctShare = share(variable.Distinct, present)
	variable.MissingShare = share(variable.Missing, rowCount)

	switch columnType {
	case series.Int, series.Float:
		values, valuesErr := source.Floats(name)
		if valuesErr != nil {
			return Variable{}, nil, valuesErr
		}
		variable.Kind = KindNumeric
		variable.Numeric = numericDetail(values)
		return variable, values, nil
	case series.Bool:
		variable.Kind = KindBoolean
	default:
		variable.Kind = KindCategorical
		if present > 0 && (variable.Distinct > categoricalDistinctLimit || totalLength/present > textAverageLengthThreshold) {
			variable.Kind = KindText
		}
	}

	topValues, countsErr := source.ValueCounts(name)
	if countsErr != nil {
		return Variable{}, nil, countsErr
	}
	if len(topValues) > topValueLimit {
		topValues = topValues[:topValueLimit]
	}
	variable.TopValues = topValues
	return variable, nil, nil
}

func numericDetail(values []float64) *NumericDetail {
	present := stats.Present(values)
	detail := &NumericDetail{Statistics: stats.DescribeValues(values)}
	for _, value := range present {
		if value == 0 {
			detail.Zeros++
		}
	}
	detail.Outliers = countOutliers(present)
	detail.Histogram = histogram(present)
	return detail
}

// countOutliers counts robust z-scores above the threshold using the median absolute deviation.
func countOutliers(present []float64) int {
	if len(present) < outlierMinimumObservations {
		return 0
	}
	sorted := make([]float64, len(present))
	copy(sorted, present)
	sort.Float64s(sorted)
	median := stats.Quantile(sorted, 0.5)

	deviations := make([]float64, len(sorted))
	for index, value := range sorted {
		deviations[index] = math.Abs(value - median)
	}
	sort.Float64s(deviations)
	mad := stats.Quantile(deviations, 0.5)
	if mad == 0 {
		return 0
	}

	outliers := 0
	for _, value := range sorted {
		if math.Abs(madScale*(value-median)/mad) > outlierZThreshold {
			outliers++
		}
	}
	return outliers
}

// histogram bins the finite values; infinities cannot be placed between dividers.
func histogram(present []float64) []Bin {
	sorted := make([]float64, 0, len(present))
	for _, value := range present {
		if !math.IsInf(value, 0) {
			sorted = append(sorted, value)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Float64s(sorted)

	lowest := sorted[0]
	highest := sorted[len(sorted)-1]
	if lowest == highest {
		return []Bin{{Lower: lowest, Upper: highest, Count: len(sorted)}}
	}

	dividers := make([]float64, histogramBinCount+1)
	floats.Span(dividers, lowest, highest)
	dividers[histogramBinCount] = math.Nextafter(highest, math.Inf(1))
	counts := stat.Histogram(nil, dividers, sorted, nil)

	bins := make([]Bin, histogramBinCount)
	for index := range bins {
		bins[index] = Bin{Lower: dividers[index], Upper: dividers[index+1], Count: int(counts[index])}
	}
	bins[histogramBinCount-1].Upper = highest
	return bins
}

// correlate computes Pearson coefficients over rows where both columns are present.
func correlate(columns []string, numericValues map[string][]float64) *Correlations {
	matrix := make([][]stats.Number, len(columns))
	for row := range matrix {
		matrix[row] = make([]stats.Number, len(columns))
	}
	for row := range columns {
		matrix[row][row] = 1
		for column := row + 1; column < len(columns); column++ {
			coefficient := pairwiseCorrelation(numericValues[columns[row]], numericValues[columns[column]])
			matrix[row][column] = coefficient
			matrix[column][row] = coefficient
		}
	}
	return &Correlations{Columns: columns, Values: matrix}
}

func pairwiseCorrelation(left []float64, right []float64) stats.Number {
	var leftPresent, rightPresent []float64
	for index := 0; index < len(left) && index < len(right); index++ {
		if math.IsNaN(left[index]) || math.IsNaN(right[index]) {
			continue
		}
		leftPresent = append(leftPresent, left[index])
		rightPresent = append(rightPresent, right[index])
	}
	if len(leftPresent) < correlationMinimumPairs {
		return stats.Number(math.NaN())
	}
	if stat.Variance(leftPresent, nil) == 0 || stat.Variance(rightPresent, nil) == 0 {
		return stats.Number(math.NaN())
	}
	coefficient := stat.Correlation(leftPresent, rightPresent, nil)
	return stats.Number(math.Max(-1, math.Min(1, coefficient)))
}

func variableAlerts(variable Variable, rowCount int) []Alert {
	var alerts []Alert
	present := rowCount - variable.Missing
	if present > 0 && variable.Distinct == 1 {
		alerts = append(alerts, Alert{Type: AlertConstant, Column: variable.Name, Message: fmt.Sprintf("%s has a constant value", variable.Name)})
	}
	if variable.MissingShare > missingAlertShare {
		alerts = append(alerts, Alert{Type: AlertMissing, Column: variable.Name, Message: fmt.Sprintf("%s has %d (%.1f%%) missing values", variable.Name, variable.Missing, variable.MissingShare*100)})
	}
	switch variable.Kind {
	case KindNumeric:
		if variable.Numeric != nil && present > 0 && share(variable.Numeric.Zeros, present) > zerosAlertShare {
			alerts = append(alerts, Alert{Type: AlertZeros, Column: variable.Name, Message: fmt.Sprintf("%s has %d (%.1f%%) zeros", variable.Name, variable.Numeric.Zeros, share(variable.Numeric.Zeros, present)*100)})
		}
	case KindCategorical, KindText:
		if present > 1 && variable.Distinct == present {
			alerts = append(alerts, Alert{Type: AlertUnique, Column: variable.Name, Message: fmt.Sprintf("%s has unique values", variable.Name)})
		} else if variable.Distinct > categoricalDistinctLimit && variable.DistinctShare > highCardinalityShare {
			alerts = append(alerts, Alert{Type: AlertHighCardinality, Column: variable.Name, Message: fmt.Sprintf("%s has a high cardinality: %d distinct values", variable.Name, variable.Distinct)})
		}
	}
	return alerts
}

func correlationAlerts(correlations *Correlations) []Alert {
	var alerts []Alert
	for row := range correlations.Columns {
		for column := row + 1; column < len(correlations.Columns); column++ {
			coefficient := correlations.Values[row][column]
			if coefficient.Defined() && math.Abs(float64(coefficient)) >= highCorrelationThreshold {
				alerts = append(alerts, Alert{
					Type:    AlertHighCorrelation,
					Column:  correlations.Columns[row],
					Message: fmt.Sprintf("%s is highly correlated with %s (r=%.3f)", correlations.Columns[row], correlations.Columns[column], float64(coefficient)),
				})
			}
		}
	}
	return alerts
}

func countDuplicateRows(records [][]string) int {
	seen := make(map[string]struct{}, len(records))
	duplicates := 0
	for _, record := range records {
		key := strings.Join(record, "\x1f")
		if _, exists := seen[key]; exists {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
	}
	return duplicates
}

func share(part int, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole)
}
