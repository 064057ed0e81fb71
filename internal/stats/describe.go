// Package stats computes the descriptive statistics table of a dataset.
package stats

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/dataset"
)

const (
	// LabelCount and the labels below name the rows of the describe table.
	LabelCount = "count"
	LabelMean  = "mean"
	LabelStd   = "std"
	LabelMin   = "min"
	LabelQ1    = "25%"
	LabelQ2    = "50%"
	LabelQ3    = "75%"
	LabelMax   = "max"

	numberFormatPrecision = 6
	numberUndefinedText   = "NaN"
)

// Labels lists the describe rows in display order.
var Labels = []string{LabelCount, LabelMean, LabelStd, LabelMin, LabelQ1, LabelQ2, LabelQ3, LabelMax}

// Number is a float that encodes NaN and infinities as JSON null.
type Number float64

// MarshalJSON implements json.Marshaler.
func (number Number) MarshalJSON() ([]byte, error) {
	value := float64(number)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(value)
}

// Defined reports whether the number holds a finite value.
func (number Number) Defined() bool {
	value := float64(number)
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

// String formats the number for display.
func (number Number) String() string {
	if !number.Defined() {
		return numberUndefinedText
	}
	return strconv.FormatFloat(float64(number), 'g', numberFormatPrecision, 64)
}

// ColumnStatistics is one column of the describe table.
type ColumnStatistics struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Mean   Number `json:"mean"`
	Std    Number `json:"std"`
	Min    Number `json:"min"`
	Q1     Number `json:"q1"`
	Median Number `json:"median"`
	Q3     Number `json:"q3"`
	Max    Number `json:"max"`
}

// Value returns the statistic for a describe row label.
func (columnStatistics ColumnStatistics) Value(label string) Number {
	switch label {
	case LabelCount:
		return Number(columnStatistics.Count)
	case LabelMean:
		return columnStatistics.Mean
	case LabelStd:
		return columnStatistics.Std
	case LabelMin:
		return columnStatistics.Min
	case LabelQ1:
		return columnStatistics.Q1
	case LabelQ2:
		return columnStatistics.Median
	case LabelQ3:
		return columnStatistics.Q3
	case LabelMax:
		return columnStatistics.Max
	default:
		return Number(math.NaN())
	}
}

// Summary is the describe table over all numeric columns.
type Summary struct {
	Columns []ColumnStatistics `json:"columns"`
}

// Describe computes count, mean, std, min, quartiles and max for every numeric column.
func Describe(source *dataset.Dataset) Summary {
	summary := Summary{}
	for _, name := range source.NumericColumns() {
		values, valuesErr := source.Floats(name)
		if valuesErr != nil {
			continue
		}
		columnStatistics := DescribeValues(values)
		columnStatistics.Column = name
		summary.Columns = append(summary.Columns, columnStatistics)
	}
	return summary
}

// DescribeValues computes the describe statistics of one series, ignoring NaN.
func DescribeValues(values []float64) ColumnStatistics {
	present := Present(values)
	undefined := Number(math.NaN())
	columnStatistics := ColumnStatistics{
		Count:  len(present),
		Mean:   undefined,
		Std:    undefined,
		Min:    undefined,
		Q1:     undefined,
		Median: undefined,
		Q3:     undefined,
		Max:    undefined,
	}
	if len(present) == 0 {
		return columnStatistics
	}

	sorted := make([]float64, len(present))
	copy(sorted, present)
	sort.Float64s(sorted)

	columnStatistics.Mean = Number(stat.Mean(sorted, nil))
	if len(sorted) > 1 {
		columnStatistics.Std = Number(stat.StdDev(sorted, nil))
	}
	columnStatistics.Min = Number(floats.Min(sorted))
	columnStatistics.Max = Number(floats.Max(sorted))
	columnStatistics.Q1 = Number(Quantile(sorted, 0.25))
	columnStatistics.Median = Number(Quantile(sorted, 0.5))
	columnStatistics.Q3 = Number(Quantile(sorted, 0.75))
	return columnStatistics
}

// Present returns the non-NaN values in their original order.
func Present(values []float64) []float64 {
	present := make([]float64, 0, len(values))
	for _, value := range values {
		if !math.IsNaN(value) {
			present = append(present, value)
		}
	}
	return present
}

// Quantile interpolates linearly between the closest ranks of an ascending slice.
func Quantile(sorted []float64, probability float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if probability <= 0 {
		return sorted[0]
	}
	if probability >= 1 {
		return sorted[len(sorted)-1]
	}
	position := probability * float64(len(sorted)-1)
	lower := int(math.Floor(position))
	upper := int(math.Ceil(position))
	if lower == upper {
		return sorted[lower]
	}
	weight := position - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
