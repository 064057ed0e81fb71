// Package charts builds the four dashboard figures from a dataset and renders them as SVG.
package charts

import (
	"errors"
	"fmt"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/dataset"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/stats"
)

const (
	// BarModeStack is the declared layout of the income types chart; a single series shows no stacking.
	BarModeStack = "stack"

	titleIncomeTypes          = "Income Types"
	titleEducationTypes       = "Education Types"
	titleIncomeByAge          = "Total Income over Age"
	titleIncomeByFamilyStatus = "Total Income by Family Status"
	seriesIncomeType          = "Income Type"
	seriesTotalIncome         = "Total Income"
	seriesAverageIncome       = "Average Income"
	seriesIncomeByFamily      = "Total Income by Family Status"
	axisAge                   = "Age"
	axisTotalIncome           = "Total Income"
	axisAverageIncome         = "Average Income"
	axisFamilyStatus          = "Family Status"
	axisCount                 = "Count"

	errorMessageBuildChart = "charts: build"
)

// ErrChart marks every ChartError.
var ErrChart = errors.New(errorMessageBuildChart)

// ChartError reports which figure could not be built or rendered.
type ChartError struct {
	Chart string
	Err   error
}

func (chartError *ChartError) Error() string {
	return fmt.Sprintf("%s %s: %v", errorMessageBuildChart, chartError.Chart, chartError.Err)
}

func (chartError *ChartError) Unwrap() []error {
	return []error{ErrChart, chartError.Err}
}

// Category is one bar or slice: a distinct value and its row count.
type Category struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// BarChart counts rows per category.
type BarChart struct {
	Title      string     `json:"title"`
	SeriesName string     `json:"series_name"`
	XAxisTitle string     `json:"x_axis_title"`
	YAxisTitle string     `json:"y_axis_title"`
	BarMode    string     `json:"bar_mode"`
	Bars       []Category `json:"bars"`
}

// PieChart splits rows per category.
type PieChart struct {
	Title  string     `json:"title"`
	Slices []Category `json:"slices"`
}

// Point is one (x, y) observation.
type Point struct {
	X stats.Number `json:"x"`
	Y stats.Number `json:"y"`
}

// ComboChart overlays per-row bars on the primary axis with a per-group mean line on the secondary axis.
type ComboChart struct {
	Title               string  `json:"title"`
	XAxisTitle          string  `json:"x_axis_title"`
	YAxisTitle          string  `json:"y_axis_title"`
	SecondaryYAxisTitle string  `json:"secondary_y_axis_title"`
	BarSeriesName       string  `json:"bar_series_name"`
	LineSeriesName      string  `json:"line_series_name"`
	Bars                []Point `json:"bars"`
	Line                []Point `json:"line"`
}

// Box is the distribution of one category.
type Box struct {
	Label      string                 `json:"label"`
	Values     []float64              `json:"values"`
	Statistics stats.ColumnStatistics `json:"statistics"`
}

// BoxChart holds one box per category.
type BoxChart struct {
	Title      string `json:"title"`
	SeriesName string `json:"series_name"`
	XAxisTitle string `json:"x_axis_title"`
	YAxisTitle string `json:"y_axis_title"`
	Boxes      []Box  `json:"boxes"`
}

// Set is the four dashboard figures.
type Set struct {
	IncomeTypes          BarChart   `json:"income_types"`
	EducationTypes       PieChart   `json:"education_types"`
	IncomeByAge          ComboChart `json:"income_by_age"`
	IncomeByFamilyStatus BoxChart   `json:"income_by_family_status"`
}

// Build derives all four figures; the first failing figure aborts the build.
func Build(source *dataset.Dataset) (Set, error) {
	incomeTypes, incomeTypesErr := BuildIncomeTypes(source)
	if incomeTypesErr != nil {
		return Set{}, incomeTypesErr
	}
	educationTypes, educationTypesErr := BuildEducationTypes(source)
	if educationTypesErr != nil {
		return Set{}, educationTypesErr
	}
	incomeByAge, incomeByAgeErr := BuildIncomeByAge(source)
	if incomeByAgeErr != nil {
		return Set{}, incomeByAgeErr
	}
	incomeByFamilyStatus, incomeByFamilyStatusErr := BuildIncomeByFamilyStatus(source)
	if incomeByFamilyStatusErr != nil {
		return Set{}, incomeByFamilyStatusErr
	}
	return Set{
		IncomeTypes:          incomeTypes,
		EducationTypes:       educationTypes,
		IncomeByAge:          incomeByAge,
		IncomeByFamilyStatus: incomeByFamilyStatus,
	}, nil
}

// BuildIncomeTypes counts rows per Income_type.
func BuildIncomeTypes(source *dataset.Dataset) (BarChart, error) {
	counts, countsErr := source.ValueCounts(dataset.ColumnIncomeType)
	if countsErr != nil {
		return BarChart{}, &ChartError{Chart: titleIncomeTypes, Err: countsErr}
	}
	return BarChart{
		Title:      titleIncomeTypes,
		SeriesName: seriesIncomeType,
		XAxisTitle: seriesIncomeType,
		YAxisTitle: axisCount,
		BarMode:    BarModeStack,
		Bars:       categories(counts),
	}, nil
}

// BuildEducationTypes counts rows per Education_type.
func BuildEducationTypes(source *dataset.Dataset) (PieChart, error) {
	counts, countsErr := source.ValueCounts(dataset.ColumnEducationType)
	if countsErr != nil {
		return PieChart{}, &ChartError{Chart: titleEducationTypes, Err: countsErr}
	}
	return PieChart{Title: titleEducationTypes, Slices: categories(counts)}, nil
}

// BuildIncomeByAge pairs every row's Age and Total_income as a bar and the mean Total_income
// of every distinct Age as a line point.
func BuildIncomeByAge(source *dataset.Dataset) (ComboChart, error) {
	ages, agesErr := source.Floats(dataset.ColumnAge)
	if agesErr != nil {
		return ComboChart{}, &ChartError{Chart: titleIncomeByAge, Err: agesErr}
	}
	incomes, incomesErr := source.Floats(dataset.ColumnTotalIncome)
	if incomesErr != nil {
		return ComboChart{}, &ChartError{Chart: titleIncomeByAge, Err: incomesErr}
	}
	groups, groupsErr := source.GroupMean(dataset.ColumnAge, dataset.ColumnTotalIncome)
	if groupsErr != nil {
		return ComboChart{}, &ChartError{Chart: titleIncomeByAge, Err: groupsErr}
	}

	bars := make([]Point, 0, len(ages))
	for index, age := range ages {
		bars = append(bars, Point{X: stats.Number(age), Y: stats.Number(incomes[index])})
	}
	line := make([]Point, 0, len(groups))
	for _, group := range groups {
		line = append(line, Point{X: stats.Number(group.Key), Y: stats.Number(group.Mean)})
	}

	return ComboChart{
		Title:               titleIncomeByAge,
		XAxisTitle:          axisAge,
		YAxisTitle:          axisTotalIncome,
		SecondaryYAxisTitle: axisAverageIncome,
		BarSeriesName:       seriesTotalIncome,
		LineSeriesName:      seriesAverageIncome,
		Bars:                bars,
		Line:                line,
	}, nil
}

// BuildIncomeByFamilyStatus groups the finite Total_income values per distinct Family_status
// in order of first appearance.
func BuildIncomeByFamilyStatus(source *dataset.Dataset) (BoxChart, error) {
	statuses, statusesErr := source.Strings(dataset.ColumnFamilyStatus)
	if statusesErr != nil {
		return BoxChart{}, &ChartError{Chart: titleIncomeByFamilyStatus, Err: statusesErr}
	}
	incomes, incomesErr := source.Floats(dataset.ColumnTotalIncome)
	if incomesErr != nil {
		return BoxChart{}, &ChartError{Chart: titleIncomeByFamilyStatus, Err: incomesErr}
	}

	valuesByStatus := make(map[string][]float64)
	var order []string
	for index, status := range statuses {
		if status == "" {
			continue
		}
		if _, seen := valuesByStatus[status]; !seen {
			order = append(order, status)
			valuesByStatus[status] = []float64{}
		}
		if !stats.Number(incomes[index]).Defined() {
			continue
		}
		valuesByStatus[status] = append(valuesByStatus[status], incomes[index])
	}

	boxes := make([]Box, 0, len(order))
	for _, status := range order {
		values := valuesByStatus[status]
		statistics := stats.DescribeValues(values)
		statistics.Column = status
		boxes = append(boxes, Box{Label: status, Values: values, Statistics: statistics})
	}

	return BoxChart{
		Title:      titleIncomeByFamilyStatus,
		SeriesName: seriesIncomeByFamily,
		XAxisTitle: axisFamilyStatus,
		YAxisTitle: axisTotalIncome,
		Boxes:      boxes,
	}, nil
}

func categories(counts []dataset.CategoryCount) []Category {
	converted := make([]Category, 0, len(counts))
	for _, count := range counts {
		converted = append(converted, Category{Label: count.Value, Count: count.Count})
	}
	return converted
}
