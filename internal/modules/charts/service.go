// Package charts renders PNG visualizations of the engine's outputs: the
// portfolio value trajectory and the efficient-frontier cloud.
package charts

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/domain"
	"github.com/BenPfeffer-bot/AssetManagementTracker/internal/modules/optimization"
)

// RenderValueChart renders a PNG line chart of the portfolio value series,
// with a dashed reference line at the initial capital. Returns raw PNG bytes.
func RenderValueChart(series domain.ValueSeries, initialCapital float64) ([]byte, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(series))
	}

	xValues := make([]float64, len(series))
	yValues := make([]float64, len(series))
	capitalY := make([]float64, len(series))
	for i, p := range series {
		xValues[i] = chart.TimeToFloat64(p.Date)
		yValues[i] = p.Value
		capitalY[i] = initialCapital
	}

	valueSeries := chart.ContinuousSeries{
		Name: "Portfolio Value",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"),
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: yValues,
	}

	capitalSeries := chart.ContinuousSeries{
		Name: "Initial Capital",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"),
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: capitalY,
	}

	graph := chart.Chart{
		Title:  "Portfolio Value",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0fk", f/1000)
				}
				return ""
			},
		},
		Series: []chart.Series{
			valueSeries,
			capitalSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderFrontierChart renders the Monte Carlo cloud as a scatter with the
// frontier drawn on top and the max-Sharpe and min-volatility portfolios
// marked. Returns raw PNG bytes.
func RenderFrontierChart(result *optimization.Result) ([]byte, error) {
	if result == nil || len(result.Frontier) == 0 {
		return nil, fmt.Errorf("no frontier points to render")
	}

	var series []chart.Series

	if len(result.Cloud) > 0 {
		cloudX := make([]float64, len(result.Cloud))
		cloudY := make([]float64, len(result.Cloud))
		for i, p := range result.Cloud {
			cloudX[i] = p.Volatility
			cloudY[i] = p.Return
		}
		series = append(series, chart.ContinuousSeries{
			Name: "Sampled Portfolios",
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    1.5,
				DotColor:    drawing.ColorFromHex("9ca3af"),
			},
			XValues: cloudX,
			YValues: cloudY,
		})
	}

	frontierX := make([]float64, len(result.Frontier))
	frontierY := make([]float64, len(result.Frontier))
	for i, p := range result.Frontier {
		frontierX[i] = p.Volatility
		frontierY[i] = p.Return
	}
	series = append(series, chart.ContinuousSeries{
		Name: "Efficient Frontier",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"),
			StrokeWidth: 2.5,
		},
		XValues: frontierX,
		YValues: frontierY,
	})

	series = append(series, chart.ContinuousSeries{
		Name: "Max Sharpe",
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    6,
			DotColor:    drawing.ColorFromHex("16a34a"),
		},
		XValues: []float64{result.MaxSharpe.Volatility},
		YValues: []float64{result.MaxSharpe.Return},
	})
	series = append(series, chart.ContinuousSeries{
		Name: "Min Volatility",
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    6,
			DotColor:    drawing.ColorFromHex("dc2626"),
		},
		XValues: []float64{result.MinVolatility.Volatility},
		YValues: []float64{result.MinVolatility.Return},
	})

	graph := chart.Chart{
		Title:  "Efficient Frontier",
		Width:  900,
		Height: 600,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Name: "Annualized Volatility",
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f%%", f*100)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Name: "Expected Return",
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f%%", f*100)
				}
				return ""
			},
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
