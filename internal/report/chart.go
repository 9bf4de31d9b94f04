package report

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	chartWidth  = 800
	chartHeight = 400
)

var (
	monthlyColor  = drawing.ColorFromHex("4169e1")
	categoryColor = drawing.ColorFromHex("3cb371")
)

// RenderMonthlyChart writes a PNG bar chart of monthly spend.
func RenderMonthlyChart(w io.Writer, buckets []Bucket, currency string) error {
	return renderBarChart(w, fmt.Sprintf("Monthly Spending (%s)", currency), buckets, monthlyColor, currency)
}

// RenderCategoryChart writes a PNG bar chart of spend per category.
func RenderCategoryChart(w io.Writer, buckets []Bucket, currency string) error {
	return renderBarChart(w, fmt.Sprintf("Spending by Category (%s)", currency), buckets, categoryColor, currency)
}

func renderBarChart(w io.Writer, title string, buckets []Bucket, color drawing.Color, currency string) error {
	if len(buckets) == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, 0, len(buckets))
	max := 0.0
	for _, b := range buckets {
		v := b.Total.InexactFloat64()
		if v > max {
			max = v
		}
		bars = append(bars, chart.Value{
			Label: b.Label,
			Value: v,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}
	if max == 0 {
		max = 1
	}

	barChart := chart.BarChart{
		Title: title,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:  chartWidth,
		Height: chartHeight,
		Bars:   bars,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: max * 1.1},
			ValueFormatter: func(v interface{}) string {
				if vf, isFloat := v.(float64); isFloat {
					return fmt.Sprintf("%s%.0f", currency, vf)
				}
				return ""
			},
		},
	}

	if err := barChart.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart %q: %w", title, err)
	}
	return nil
}
