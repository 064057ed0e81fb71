package httpapi

import (
	"fmt"
	"html/template"
	"net/url"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/dashboard"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/stats"
)

const faviconSVGPattern = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100"><text y=".9em" font-size="90">%s</text></svg>`

var dashboardTemplateFunctions = template.FuncMap{
	"number":  formatNumber,
	"percent": formatPercent,
}

type dashboardTemplateData struct {
	Output         dashboard.RenderOutput
	SidebarHTML    template.HTML
	FaviconDataURI template.URL
	Statistics     statisticsTable
	Sections       dashboardSections
}

type dashboardSections struct {
	SummaryStatistics string
	ProfileReport     string
	Visualizations    string
}

type statisticsTable struct {
	Columns []string
	Rows    []statisticsRow
}

type statisticsRow struct {
	Label  string
	Values []string
}

func newDashboardTemplateData(output dashboard.RenderOutput, sidebarHTML template.HTML) dashboardTemplateData {
	return dashboardTemplateData{
		Output:         output,
		SidebarHTML:    sidebarHTML,
		FaviconDataURI: template.URL("data:image/svg+xml," + url.PathEscape(fmt.Sprintf(faviconSVGPattern, output.Page.Icon))),
		Statistics:     buildStatisticsTable(output.Statistics),
		Sections: dashboardSections{
			SummaryStatistics: dashboard.SectionSummaryStatistics,
			ProfileReport:     dashboard.SectionProfileReport,
			Visualizations:    dashboard.SectionVisualizations,
		},
	}
}

// buildStatisticsTable lays the summary out with one row per statistic and one column per variable.
func buildStatisticsTable(summary *stats.Summary) statisticsTable {
	table := statisticsTable{}
	if summary == nil {
		return table
	}
	for _, columnStatistics := range summary.Columns {
		table.Columns = append(table.Columns, columnStatistics.Column)
	}
	for _, label := range stats.Labels {
		row := statisticsRow{Label: label}
		for _, columnStatistics := range summary.Columns {
			row.Values = append(row.Values, columnStatistics.Value(label).String())
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func formatNumber(number stats.Number) string {
	return number.String()
}

func formatPercent(share float64) string {
	return fmt.Sprintf("%.1f%%", share*100)
}
