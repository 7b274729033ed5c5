package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetcast/core/calendar"
	"github.com/kilianp07/fleetcast/core/model"
	"github.com/kilianp07/fleetcast/infra/logger"
	"github.com/kilianp07/fleetcast/pkg/export"
)

var forecastFlags struct {
	year    int
	month   string
	horizon int
	entity  string
	format  string
	out     string
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast trips and passengers from the configured bundle",
	Example: `  fleetcast forecast --entity "Bus 3" --horizon 6
  fleetcast forecast --year 2026 --month jan --format csv --out forecast.csv`,
	RunE: runForecast,
}

func init() {
	f := forecastCmd.Flags()
	f.IntVar(&forecastFlags.year, "year", 0, "anchor year (default current year)")
	f.StringVar(&forecastFlags.month, "month", "", "anchor month, number or name (default current month)")
	f.IntVar(&forecastFlags.horizon, "horizon", 0, "number of months including the anchor (default forecast.default_horizon)")
	f.StringVar(&forecastFlags.entity, "entity", "", `entity label, or "all" for the whole fleet`)
	f.StringVar(&forecastFlags.format, "format", "json", "output format: json, csv or html")
	f.StringVar(&forecastFlags.out, "out", "", "write to this file instead of stdout")
	rootCmd.AddCommand(forecastCmd)
}

// cliLogger keeps stdout free for command output.
func cliLogger() logger.Logger {
	return logger.NewWithWriter("cli", os.Stderr)
}

func forecastAnchor(now time.Time) (model.Period, error) {
	cur := calendar.Of(now)
	year, month := cur.Year, cur.Month
	if forecastFlags.year != 0 {
		year = forecastFlags.year
	}
	if forecastFlags.month != "" {
		m, err := calendar.ParseMonth(forecastFlags.month)
		if err != nil {
			return model.Period{}, err
		}
		month = m
	}
	return model.NewPeriod(year, month)
}

func runForecast(cmd *cobra.Command, _ []string) error {
	format := strings.ToLower(forecastFlags.format)
	if format != "json" && format != "csv" && format != "html" {
		return fmt.Errorf("unknown format %q", forecastFlags.format)
	}
	cfg, p, err := pipeline()
	if err != nil {
		return err
	}
	anchor, err := forecastAnchor(time.Now())
	if err != nil {
		return err
	}
	horizon := forecastFlags.horizon
	if horizon == 0 {
		horizon = cfg.Forecast.DefaultHorizon
	}
	res, err := p.Forecaster.Forecast(commandContext(cmd), anchor, horizon, forecastFlags.entity)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if forecastFlags.out != "" {
		f, err := os.Create(forecastFlags.out)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		w = f
	}
	switch format {
	case "csv":
		return export.WriteCSV(w, res)
	case "html":
		return export.WriteChartHTML(w, res)
	}
	return export.WriteJSON(w, res)
}
