package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"stellarpulse/internal/marketdata"
)

// Export fetches the OHLC series for a timeframe and renders it as CSV
// and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)
	timeframe := marketdata.ParseTimeframe(opts.TimeframeDays)

	points, err := a.newUpstream().FetchChart(ctx, timeframe.Days())
	if err != nil {
		return err
	}
	if len(points) == 0 {
		a.Logger.Info().Msg("no chart data returned for export window")
		return nil
	}

	downsampled := downsamplePoints(points, opts.MaxPoints)
	a.Logger.Info().Int("total", len(points)).Int("exported", len(downsampled)).
		Int("timeframe_days", timeframe.Days()).Msg("exporting chart data")

	if opts.CSVPath != "" {
		if err := writeChartCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeChartPNG(opts.PNGPath, downsampled, timeframe); err != nil {
			return err
		}
	}

	return nil
}

func downsamplePoints(points []marketdata.ChartPoint, max int) []marketdata.ChartPoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]marketdata.ChartPoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writeChartCSV(path string, points []marketdata.ChartPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"timestamp", "open", "high", "low", "close"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, point := range points {
		ts := time.UnixMilli(int64(point.Timestamp())).UTC()
		record := []string{
			ts.Format(time.RFC3339),
			formatFloat(point[1]),
			formatFloat(point[2]),
			formatFloat(point[3]),
			formatFloat(point[4]),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeChartPNG(path string, points []marketdata.ChartPoint, timeframe marketdata.Timeframe) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(points))
	closes := make([]float64, len(points))
	highs := make([]float64, len(points))
	lows := make([]float64, len(points))

	for i, point := range points {
		x[i] = time.UnixMilli(int64(point.Timestamp())).UTC()
		highs[i] = point[2]
		lows[i] = point[3]
		closes[i] = point[4]
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.0f")
	}
	graph := chart.Chart{
		Title:  fmt.Sprintf("BTC/USD — %dd", timeframe.Days()),
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (USD)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Close",
				XValues: x,
				YValues: closes,
			},
			chart.TimeSeries{
				Name:    "High",
				XValues: x,
				YValues: highs,
			},
			chart.TimeSeries{
				Name:    "Low",
				XValues: x,
				YValues: lows,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
