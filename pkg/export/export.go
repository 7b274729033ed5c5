// Package export renders forecast results as JSON, CSV or an HTML chart.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/fleetcast/core/model"
)

// AggregateLabel names the fleet total row in CSV exports.
const AggregateLabel = "all"

var csvHeader = []string{"period", "entity", "display", "trips", "passengers"}

// WriteJSON writes v, typically a *model.ForecastResult or []model.DayForecast.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func periodRows(key string, pf model.PeriodForecast, entity, display string) [][]string {
	if pf.Prediction != nil {
		return [][]string{{key, entity, display, formatFloat(pf.Prediction.Trips), formatFloat(pf.Prediction.Passengers)}}
	}
	rows := make([][]string, 0, len(pf.PerEntity)+1)
	for _, ep := range pf.PerEntity {
		rows = append(rows, []string{key, ep.Entity, ep.Display, formatFloat(ep.Trips), formatFloat(ep.Passengers)})
	}
	if pf.Aggregate != nil {
		rows = append(rows, []string{key, AggregateLabel, "", formatFloat(pf.Aggregate.Trips), formatFloat(pf.Aggregate.Passengers)})
	}
	return rows
}

func writeRows(w io.Writer, first string, emit func(*csv.Writer) error) error {
	cw := csv.NewWriter(w)
	header := append([]string{first}, csvHeader[1:]...)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := emit(cw); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes one line per (period, entity) cell. Fleet forecasts add a
// line per period for the aggregate, labelled AggregateLabel.
func WriteCSV(w io.Writer, r *model.ForecastResult) error {
	return writeRows(w, "period", func(cw *csv.Writer) error {
		for _, pf := range r.Periods {
			if err := cw.WriteAll(periodRows(pf.Period.Key(), pf, r.Entity, r.Display)); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteDaysCSV writes a daily forecast with the same columns as WriteCSV,
// keyed by date.
func WriteDaysCSV(w io.Writer, days []model.DayForecast, entity, display string) error {
	return writeRows(w, "date", func(cw *csv.Writer) error {
		for _, d := range days {
			if err := cw.WriteAll(periodRows(d.Date, d.PeriodForecast, entity, display)); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteChartHTML renders trips and passengers per period as a standalone
// HTML page.
func WriteChartHTML(w io.Writer, r *model.ForecastResult) error {
	title := "Fleet forecast"
	if !r.AllEntities() {
		title = "Forecast " + r.Display
		if r.Display == "" {
			title = "Forecast " + r.Entity
		}
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("from %s, %d months", r.Anchor.Key(), r.Horizon)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Month"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Trips"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.ExtendYAxis(opts.YAxis{Name: "Passengers"})

	xAxis := make([]string, 0, len(r.Periods))
	trips := make([]opts.BarData, 0, len(r.Periods))
	pass := make([]opts.LineData, 0, len(r.Periods))
	for _, pf := range r.Periods {
		v := pf.Value()
		xAxis = append(xAxis, pf.Period.Key())
		trips = append(trips, opts.BarData{Value: v.Trips})
		pass = append(pass, opts.LineData{Value: v.Passengers, YAxisIndex: 1})
	}
	bar.SetXAxis(xAxis).AddSeries("Trips", trips)

	line := charts.NewLine()
	line.SetXAxis(xAxis).AddSeries("Passengers", pass)
	bar.Overlap(line)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
