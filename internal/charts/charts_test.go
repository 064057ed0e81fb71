package charts_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/charts"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/dataset"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/stats"
)

var applicantRecords = [][]string{
	{"Income_type", "Education_type", "Family_status", "Age", "Total_income"},
	{"Working", "Higher education", "Married", "30", "100000"},
	{"Working", "Secondary", "Single", "30", "150000"},
	{"Pensioner", "Secondary", "Married", "61", "80000"},
	{"Commercial associate", "Higher education", "Widow", "45", "120000"},
	{"Working", "Secondary", "Single", "25", "40000"},
	{"Pensioner", "Incomplete higher", "Married", "61", "60000"},
}

func newApplicantDataset(testingT *testing.T, records [][]string) *dataset.Dataset {
	testingT.Helper()
	applicants, buildErr := dataset.New(records)
	require.NoError(testingT, buildErr)
	return applicants
}

func TestBuildIncomeTypesCountsEveryRow(t *testing.T) {
	set, buildErr := charts.Build(newApplicantDataset(t, applicantRecords))
	require.NoError(t, buildErr)

	require.Equal(t, charts.BarModeStack, set.IncomeTypes.BarMode)
	require.Equal(t, []charts.Category{
		{Label: "Working", Count: 3},
		{Label: "Pensioner", Count: 2},
		{Label: "Commercial associate", Count: 1},
	}, set.IncomeTypes.Bars)

	total := 0
	for _, bar := range set.IncomeTypes.Bars {
		total += bar.Count
	}
	require.Equal(t, len(applicantRecords)-1, total)
}

func TestBuildEducationTypesHasOneSlicePerCategory(t *testing.T) {
	set, buildErr := charts.Build(newApplicantDataset(t, applicantRecords))
	require.NoError(t, buildErr)

	require.Len(t, set.EducationTypes.Slices, 3)
	require.Equal(t, charts.Category{Label: "Secondary", Count: 3}, set.EducationTypes.Slices[0])
}

func TestBuildIncomeByAgeKeepsRawBarsAndGroupedLine(t *testing.T) {
	set, buildErr := charts.Build(newApplicantDataset(t, applicantRecords))
	require.NoError(t, buildErr)

	combo := set.IncomeByAge
	require.Len(t, combo.Bars, len(applicantRecords)-1)
	require.Equal(t, charts.Point{X: 30, Y: stats.Number(150000)}, combo.Bars[1])

	require.Equal(t, []charts.Point{
		{X: 25, Y: stats.Number(40000)},
		{X: 30, Y: stats.Number(125000)},
		{X: 45, Y: stats.Number(120000)},
		{X: 61, Y: stats.Number(70000)},
	}, combo.Line)
	require.Equal(t, "Age", combo.XAxisTitle)
	require.Equal(t, "Average Income", combo.SecondaryYAxisTitle)
}

func TestBuildIncomeByAgeKeepsRowsWithMissingIncome(t *testing.T) {
	records := [][]string{
		{"Income_type", "Education_type", "Family_status", "Age", "Total_income"},
		{"Working", "Secondary", "Married", "30", "100000"},
		{"Working", "Secondary", "Married", "30", ""},
	}
	combo, buildErr := charts.BuildIncomeByAge(newApplicantDataset(t, records))
	require.NoError(t, buildErr)

	require.Len(t, combo.Bars, 2)
	require.False(t, combo.Bars[1].Y.Defined())
	require.Equal(t, []charts.Point{{X: 30, Y: stats.Number(100000)}}, combo.Line)
}

func TestBuildIncomeByFamilyStatusHasOneBoxPerStatus(t *testing.T) {
	set, buildErr := charts.Build(newApplicantDataset(t, applicantRecords))
	require.NoError(t, buildErr)

	boxes := set.IncomeByFamilyStatus.Boxes
	require.Len(t, boxes, 3)
	require.Equal(t, "Married", boxes[0].Label)
	require.Equal(t, []float64{100000, 80000, 60000}, boxes[0].Values)
	require.Equal(t, 3, boxes[0].Statistics.Count)
	require.Equal(t, stats.Number(80000), boxes[0].Statistics.Median)
	require.Equal(t, "Single", boxes[1].Label)
	require.Equal(t, "Widow", boxes[2].Label)
}

func TestBuildReportsMissingColumn(t *testing.T) {
	records := [][]string{
		{"Income_type", "Age"},
		{"Working", "30"},
	}
	_, buildErr := charts.Build(newApplicantDataset(t, records))
	require.Error(t, buildErr)
	require.ErrorIs(t, buildErr, charts.ErrChart)
	require.ErrorIs(t, buildErr, dataset.ErrMissingColumn)

	var chartErr *charts.ChartError
	require.True(t, errors.As(buildErr, &chartErr))
	require.Equal(t, "Education Types", chartErr.Chart)
}

func TestRenderSetProducesInlineSVG(t *testing.T) {
	set, buildErr := charts.Build(newApplicantDataset(t, applicantRecords))
	require.NoError(t, buildErr)

	images, renderErr := charts.NewRenderer().RenderSet(set)
	require.NoError(t, renderErr)
	for _, markup := range []string{
		string(images.IncomeTypes),
		string(images.EducationTypes),
		string(images.IncomeByAge),
		string(images.IncomeByFamilyStatus),
	} {
		require.True(t, strings.HasPrefix(markup, "<svg"))
		require.Contains(t, markup, "</svg>")
	}
	require.Contains(t, string(images.IncomeTypes), "Working")
	require.Contains(t, string(images.IncomeByFamilyStatus), "Married")
}

func TestRenderEmptyChartsAsPlaceholders(t *testing.T) {
	renderer := charts.NewRenderer()

	var buffer bytes.Buffer
	require.NoError(t, renderer.RenderBar(&buffer, charts.BarChart{Title: "Income Types"}))
	require.Contains(t, buffer.String(), `data-chart-empty="true"`)

	buffer.Reset()
	require.NoError(t, renderer.RenderBox(&buffer, charts.BoxChart{
		Title: "Total Income by Family Status",
		Boxes: []charts.Box{{Label: "Married", Values: []float64{}}},
	}))
	require.Contains(t, buffer.String(), `data-chart-empty="true"`)

	buffer.Reset()
	require.NoError(t, renderer.RenderCombo(&buffer, charts.ComboChart{
		Title: "Total Income over Age",
		Bars:  []charts.Point{{X: 30, Y: stats.Number(math.NaN())}},
	}))
	require.Contains(t, buffer.String(), `data-chart-empty="true"`)
}

func TestRenderSingleCategoryBar(t *testing.T) {
	var buffer bytes.Buffer
	renderErr := charts.NewRenderer().RenderBar(&buffer, charts.BarChart{
		Title: "Income Types",
		Bars:  []charts.Category{{Label: "Working", Count: 1}},
	})
	require.NoError(t, renderErr)
	require.Contains(t, buffer.String(), "<svg")
}

func TestInfiniteIncomeStaysOutOfBoxes(t *testing.T) {
	set, buildErr := charts.Build(newApplicantDataset(t, [][]string{
		{"Income_type", "Education_type", "Family_status", "Age", "Total_income"},
		{"Working", "Secondary", "Married", "30", "inf"},
		{"Working", "Secondary", "Married", "31", "100"},
		{"Pensioner", "Secondary", "Single", "62", "300"},
	}))
	require.NoError(t, buildErr)

	require.Equal(t, []float64{100}, set.IncomeByFamilyStatus.Boxes[0].Values)
	require.Equal(t, []float64{300}, set.IncomeByFamilyStatus.Boxes[1].Values)
	require.Len(t, set.IncomeByAge.Bars, 3)
	require.False(t, set.IncomeByAge.Bars[0].Y.Defined())

	_, encodeErr := json.Marshal(set)
	require.NoError(t, encodeErr)

	images, renderErr := charts.NewRenderer().RenderSet(set)
	require.NoError(t, renderErr)
	require.Contains(t, string(images.IncomeByFamilyStatus), "<svg")
}

func TestHeaderOnlyDatasetRendersPlaceholders(t *testing.T) {
	set, buildErr := charts.Build(newApplicantDataset(t, [][]string{applicantRecords[0]}))
	require.NoError(t, buildErr)
	require.Empty(t, set.IncomeTypes.Bars)
	require.Empty(t, set.EducationTypes.Slices)
	require.Empty(t, set.IncomeByAge.Bars)
	require.Empty(t, set.IncomeByFamilyStatus.Boxes)

	images, renderErr := charts.NewRenderer().RenderSet(set)
	require.NoError(t, renderErr)
	for _, image := range []string{
		string(images.IncomeTypes),
		string(images.EducationTypes),
		string(images.IncomeByAge),
		string(images.IncomeByFamilyStatus),
	} {
		require.Contains(t, image, `data-chart-empty="true"`)
	}
}
