package charts

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	defaultChartWidth   = 960
	defaultChartHeight  = 480
	barWidthPixels      = 48
	barSpacingPixels    = 16
	boxWidthPoints      = 28
	rangePaddingShare   = 0.05
	svgFormat           = "svg"
	svgElementPrefix    = "<svg"
	placeholderTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" data-chart-empty="true"><text x="50%%" y="50%%" text-anchor="middle">%s: no data</text></svg>`
)

var errInvalidSVGOutput = errors.New("charts: renderer produced no svg element")

// Images holds the rendered SVG markup of the four figures.
type Images struct {
	IncomeTypes          template.HTML
	EducationTypes       template.HTML
	IncomeByAge          template.HTML
	IncomeByFamilyStatus template.HTML
}

// Renderer draws chart models as SVG.
type Renderer struct {
	Width  int
	Height int
}

// NewRenderer returns a renderer with the dashboard's default canvas.
func NewRenderer() *Renderer {
	return &Renderer{Width: defaultChartWidth, Height: defaultChartHeight}
}

// RenderSet renders all four figures; the first failure aborts.
func (renderer *Renderer) RenderSet(set Set) (Images, error) {
	images := Images{}
	renderSteps := []struct {
		chartTitle string
		target     *template.HTML
		render     func(io.Writer) error
	}{
		{set.IncomeTypes.Title, &images.IncomeTypes, func(writer io.Writer) error { return renderer.RenderBar(writer, set.IncomeTypes) }},
		{set.EducationTypes.Title, &images.EducationTypes, func(writer io.Writer) error { return renderer.RenderPie(writer, set.EducationTypes) }},
		{set.IncomeByAge.Title, &images.IncomeByAge, func(writer io.Writer) error { return renderer.RenderCombo(writer, set.IncomeByAge) }},
		{set.IncomeByFamilyStatus.Title, &images.IncomeByFamilyStatus, func(writer io.Writer) error {
			return renderer.RenderBox(writer, set.IncomeByFamilyStatus)
		}},
	}
	for _, step := range renderSteps {
		var buffer bytes.Buffer
		if renderErr := step.render(&buffer); renderErr != nil {
			return images, renderErr
		}
		markup, markupErr := svgElement(buffer.String())
		if markupErr != nil {
			return images, &ChartError{Chart: step.chartTitle, Err: markupErr}
		}
		*step.target = template.HTML(markup)
	}
	return images, nil
}

// RenderBar draws one bar per category.
func (renderer *Renderer) RenderBar(writer io.Writer, barChart BarChart) error {
	if len(barChart.Bars) == 0 {
		return renderer.renderPlaceholder(writer, barChart.Title)
	}
	bars := make([]chart.Value, 0, len(barChart.Bars))
	maximum := 0
	for _, bar := range barChart.Bars {
		bars = append(bars, chart.Value{Value: float64(bar.Count), Label: bar.Label})
		if bar.Count > maximum {
			maximum = bar.Count
		}
	}
	width := renderer.Width
	requiredWidth := len(bars)*(barWidthPixels+barSpacingPixels) + 2*barWidthPixels
	if requiredWidth > width {
		width = requiredWidth
	}

	graph := chart.BarChart{
		Title:      barChart.Title,
		Width:      width,
		Height:     renderer.Height,
		BarWidth:   barWidthPixels,
		BarSpacing: barSpacingPixels,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Name:  barChart.YAxisTitle,
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maximum) * (1 + 2*rangePaddingShare)},
		},
		Bars: bars,
	}
	if renderErr := graph.Render(chart.SVG, writer); renderErr != nil {
		return &ChartError{Chart: barChart.Title, Err: renderErr}
	}
	return nil
}

// RenderPie draws one slice per category.
func (renderer *Renderer) RenderPie(writer io.Writer, pieChart PieChart) error {
	if len(pieChart.Slices) == 0 {
		return renderer.renderPlaceholder(writer, pieChart.Title)
	}
	slices := make([]chart.Value, 0, len(pieChart.Slices))
	for _, slice := range pieChart.Slices {
		slices = append(slices, chart.Value{Value: float64(slice.Count), Label: slice.Label})
	}
	graph := chart.PieChart{
		Title:  pieChart.Title,
		Width:  renderer.Height,
		Height: renderer.Height,
		Values: slices,
	}
	if renderErr := graph.Render(chart.SVG, writer); renderErr != nil {
		return &ChartError{Chart: pieChart.Title, Err: renderErr}
	}
	return nil
}

// RenderCombo draws the per-row bars on the primary axis and the mean line on the secondary axis.
// Points with a missing coordinate are left out of the drawing.
func (renderer *Renderer) RenderCombo(writer io.Writer, comboChart ComboChart) error {
	barXValues, barYValues := definedPoints(comboChart.Bars)
	lineXValues, lineYValues := definedPoints(comboChart.Line)
	if len(barXValues) == 0 && len(lineXValues) == 0 {
		return renderer.renderPlaceholder(writer, comboChart.Title)
	}

	var series []chart.Series
	if len(barXValues) > 0 {
		series = append(series, chart.HistogramSeries{
			Name:        comboChart.BarSeriesName,
			YAxis:       chart.YAxisPrimary,
			InnerSeries: chart.ContinuousSeries{XValues: barXValues, YValues: barYValues},
		})
	}
	if len(lineXValues) > 0 {
		series = append(series, chart.ContinuousSeries{
			Name:    comboChart.LineSeriesName,
			XValues: lineXValues,
			YValues: lineYValues,
			YAxis:   chart.YAxisSecondary,
			Style:   chart.Style{StrokeColor: chart.ColorRed, StrokeWidth: 2},
		})
	}

	graph := chart.Chart{
		Title:      comboChart.Title,
		Width:      renderer.Width,
		Height:     renderer.Height,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:  comboChart.XAxisTitle,
			Range: paddedRange(append(append([]float64{}, barXValues...), lineXValues...), false),
		},
		YAxis: chart.YAxis{
			Name:  comboChart.YAxisTitle,
			Range: paddedRange(barYValues, true),
		},
		YAxisSecondary: chart.YAxis{
			Name:  comboChart.SecondaryYAxisTitle,
			Range: paddedRange(lineYValues, true),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	if renderErr := graph.Render(chart.SVG, writer); renderErr != nil {
		return &ChartError{Chart: comboChart.Title, Err: renderErr}
	}
	return nil
}

// RenderBox draws one box per category that has at least one finite value.
func (renderer *Renderer) RenderBox(writer io.Writer, boxChart BoxChart) error {
	plotCanvas := plot.New()
	plotCanvas.Title.Text = boxChart.Title
	plotCanvas.X.Label.Text = boxChart.XAxisTitle
	plotCanvas.Y.Label.Text = boxChart.YAxisTitle

	var labels []string
	for _, box := range boxChart.Boxes {
		values := make(plotter.Values, 0, len(box.Values))
		for _, value := range box.Values {
			if !math.IsNaN(value) && !math.IsInf(value, 0) {
				values = append(values, value)
			}
		}
		if len(values) == 0 {
			continue
		}
		boxPlot, boxPlotErr := plotter.NewBoxPlot(vg.Points(boxWidthPoints), float64(len(labels)), values)
		if boxPlotErr != nil {
			return &ChartError{Chart: boxChart.Title, Err: boxPlotErr}
		}
		plotCanvas.Add(boxPlot)
		labels = append(labels, box.Label)
	}
	if len(labels) == 0 {
		return renderer.renderPlaceholder(writer, boxChart.Title)
	}
	plotCanvas.NominalX(labels...)
	plotCanvas.Add(plotter.NewGrid())

	svgWriter, svgWriterErr := plotCanvas.WriterTo(pixels(renderer.Width), pixels(renderer.Height), svgFormat)
	if svgWriterErr != nil {
		return &ChartError{Chart: boxChart.Title, Err: svgWriterErr}
	}
	if _, writeErr := svgWriter.WriteTo(writer); writeErr != nil {
		return &ChartError{Chart: boxChart.Title, Err: writeErr}
	}
	return nil
}

func (renderer *Renderer) renderPlaceholder(writer io.Writer, title string) error {
	_, writeErr := fmt.Fprintf(writer, placeholderTemplate, renderer.Width, renderer.Height, renderer.Width, renderer.Height, html.EscapeString(title))
	if writeErr != nil {
		return &ChartError{Chart: title, Err: writeErr}
	}
	return nil
}

func definedPoints(points []Point) ([]float64, []float64) {
	xValues := make([]float64, 0, len(points))
	yValues := make([]float64, 0, len(points))
	for _, point := range points {
		if !point.X.Defined() || !point.Y.Defined() {
			continue
		}
		xValues = append(xValues, float64(point.X))
		yValues = append(yValues, float64(point.Y))
	}
	return xValues, yValues
}

// paddedRange never returns an empty range, which go-chart refuses to draw.
func paddedRange(values []float64, includeZero bool) *chart.ContinuousRange {
	if len(values) == 0 {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	minimum, maximum := values[0], values[0]
	for _, value := range values[1:] {
		minimum = math.Min(minimum, value)
		maximum = math.Max(maximum, value)
	}
	if includeZero {
		minimum = math.Min(minimum, 0)
		maximum = math.Max(maximum, 0)
	}
	span := maximum - minimum
	if span == 0 {
		span = math.Max(math.Abs(maximum), 1)
	}
	padding := span * rangePaddingShare
	if !includeZero || minimum < 0 {
		minimum -= padding
	}
	return &chart.ContinuousRange{Min: minimum, Max: maximum + padding}
}

// pixels converts a pixel size to points at the 96 dpi go-chart renders with.
func pixels(size int) vg.Length {
	return vg.Length(size) * vg.Inch / 96
}

func svgElement(markup string) (string, error) {
	start := strings.Index(markup, svgElementPrefix)
	if start < 0 {
		return "", errInvalidSVGOutput
	}
	return markup[start:], nil
}
