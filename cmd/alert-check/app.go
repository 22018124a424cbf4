package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/mr1hm/go-weather-alerts/internal/config"
	"github.com/mr1hm/go-weather-alerts/internal/format"
	"github.com/mr1hm/go-weather-alerts/internal/models"
	"github.com/mr1hm/go-weather-alerts/internal/nws"
)

// newApp builds the one-shot query CLI. It never opens a chat session and
// does not need a bot token.
func newApp(w io.Writer) *cli.Command {
	var (
		zone   string
		office string
		asJSON bool
		count  int64
	)

	client := func() (*nws.Client, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		if zone != "" {
			cfg.NWS.Zone = zone
		}
		if office != "" {
			cfg.NWS.Office = office
		}
		return nws.NewClient(cfg.NWS), nil
	}

	alerts := func(ctx context.Context, cmd *cli.Command) error {
		c, err := client()
		if err != nil {
			return err
		}
		found := c.ActiveAlerts(ctx)
		if asJSON {
			return writeJSON(w, found)
		}
		printAlerts(w, c.Zone(), found)
		return nil
	}

	countFlag := func(usage string) *cli.IntFlag {
		return &cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: usage, Destination: &count}
	}

	return &cli.Command{
		Name:   "alert-check",
		Usage:  "Query the National Weather Service API for the configured zone",
		Writer: w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "zone",
				Aliases:     []string{"z"},
				Usage:       "NWS zone to query (overrides NWS_ZONE)",
				Destination: &zone,
			},
			&cli.StringFlag{
				Name:        "office",
				Usage:       "NWS forecast office (overrides NWS_OFFICE)",
				Destination: &office,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "Print raw records as JSON",
				Destination: &asJSON,
			},
		},
		Action: alerts,
		Commands: []*cli.Command{
			{
				Name:   "alerts",
				Usage:  "List active alerts",
				Action: alerts,
			},
			{
				Name:  "forecast",
				Usage: "Show the multi-day forecast",
				Flags: []cli.Flag{countFlag("Number of periods to show")},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := client()
					if err != nil {
						return err
					}
					periods := c.Forecast(ctx)
					n := format.ClampCount(int(count), format.DefaultForecastPeriods, format.MaxForecastPeriods)
					if asJSON {
						return writeJSON(w, periods[:min(n, len(periods))])
					}
					printPeriods(w, periods, n, false)
					return nil
				},
			},
			{
				Name:  "hourly",
				Usage: "Show the hourly forecast",
				Flags: []cli.Flag{countFlag("Number of hours to show")},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := client()
					if err != nil {
						return err
					}
					periods := c.HourlyForecast(ctx)
					n := format.ClampCount(int(count), format.DefaultHourlyPeriods, format.MaxHourlyPeriods)
					if asJSON {
						return writeJSON(w, periods[:min(n, len(periods))])
					}
					printPeriods(w, periods, n, true)
					return nil
				},
			},
			{
				Name:  "discussion",
				Usage: "Print the synopsis of the latest Area Forecast Discussion",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := client()
					if err != nil {
						return err
					}
					return printProduct(w, c.Discussion(ctx), true)
				},
			},
			{
				Name:  "outlook",
				Usage: "Print the latest Hazardous Weather Outlook",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := client()
					if err != nil {
						return err
					}
					return printProduct(w, c.HazardOutlook(ctx), false)
				},
			},
		},
	}
}

var severityColors = map[models.Severity]*color.Color{
	models.SeverityExtreme:  color.New(color.FgRed, color.Bold),
	models.SeveritySevere:   color.New(color.FgRed),
	models.SeverityModerate: color.New(color.FgYellow),
	models.SeverityMinor:    color.New(color.FgCyan),
}

func severityColor(s models.Severity) *color.Color {
	if c, ok := severityColors[s]; ok {
		return c
	}
	return color.New(color.FgWhite)
}

func printAlerts(w io.Writer, zone string, alerts []models.Alert) {
	if len(alerts) == 0 {
		fmt.Fprintf(w, "No active weather alerts for %s.\n", zone)
		return
	}

	bold := color.New(color.Bold)
	bold.Fprintf(w, "%d active alert(s) for %s\n\n", len(alerts), zone)

	for _, a := range alerts {
		marker := ""
		if format.IsUrgent(a) {
			marker = " [URGENT]"
		}
		severityColor(a.Severity).Fprintf(w, "%s %s (%s)%s\n", format.AlertEmoji(a.Event), a.Event, a.Severity, marker)
		if a.Headline != "" {
			fmt.Fprintf(w, "  %s\n", a.Headline)
		}
		if !a.Expires.IsZero() {
			fmt.Fprintf(w, "  Expires: %s\n", a.Expires.Local().Format("Mon Jan 2 3:04 PM MST"))
		}
		fmt.Fprintf(w, "  ID: %s\n\n", a.ID)
	}
}

func printPeriods(w io.Writer, periods []models.ForecastPeriod, n int, hourly bool) {
	if len(periods) == 0 {
		fmt.Fprintln(w, "Unable to fetch forecast. Please try again later.")
		return
	}

	label := color.New(color.FgBlue, color.Bold)
	for _, p := range periods[:min(n, len(periods))] {
		name := p.Name
		if hourly || name == "" {
			name = p.StartTime.Local().Format("Mon 3 PM")
		}
		label.Fprintf(w, "%-16s", name)
		fmt.Fprintf(w, " %s %d°%s  %s", format.WeatherEmoji(p.ShortForecast), p.Temperature, p.TemperatureUnit, p.ShortForecast)
		if !hourly && p.WindSpeed != "" {
			fmt.Fprintf(w, "  (wind %s %s)", p.WindSpeed, p.WindDirection)
		}
		fmt.Fprintln(w)
	}
}

func printProduct(w io.Writer, p *models.Product, synopsisOnly bool) error {
	if p.Empty() {
		return fmt.Errorf("product unavailable")
	}

	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(w, "%s %s\n", p.Type, p.Office)
	if !p.IssuanceTime.IsZero() {
		fmt.Fprintf(w, "Issued: %s\n", p.IssuanceTime.Local().Format("Mon Jan 2 3:04 PM MST"))
	}
	fmt.Fprintln(w)

	text := p.Text
	if synopsisOnly {
		if s := format.Synopsis(text); s != "" {
			text = s
		}
	}
	fmt.Fprintln(w, strings.TrimSpace(text))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
