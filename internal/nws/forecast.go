package nws

import (
	"context"
	"fmt"

	"github.com/mr1hm/go-weather-alerts/internal/models"
)

type forecastResponse struct {
	Properties struct {
		Periods []forecastPeriod `json:"periods"`
	} `json:"properties"`
}

type forecastPeriod struct {
	Number           int    `json:"number"`
	Name             string `json:"name"`
	StartTime        string `json:"startTime"`
	EndTime          string `json:"endTime"`
	IsDaytime        bool   `json:"isDaytime"`
	Temperature      int    `json:"temperature"`
	TemperatureUnit  string `json:"temperatureUnit"`
	WindSpeed        string `json:"windSpeed"`
	WindDirection    string `json:"windDirection"`
	ShortForecast    string `json:"shortForecast"`
	DetailedForecast string `json:"detailedForecast"`
}

// Forecast returns the multi-day forecast periods for the configured grid point.
func (c *Client) Forecast(ctx context.Context) []models.ForecastPeriod {
	periods, err := c.fetchForecast(ctx, "forecast")
	if err != nil {
		c.degrade("forecast", err)
		return nil
	}
	return periods
}

// HourlyForecast returns the hourly periods for the same grid point.
func (c *Client) HourlyForecast(ctx context.Context) []models.ForecastPeriod {
	periods, err := c.fetchForecast(ctx, "forecast/hourly")
	if err != nil {
		c.degrade("forecast_hourly", err)
		return nil
	}
	return periods
}

func (c *Client) fetchForecast(ctx context.Context, path string) ([]models.ForecastPeriod, error) {
	url := fmt.Sprintf("%s/gridpoints/%s/%d,%d/%s", c.baseURL, c.office, c.gridX, c.gridY, path)

	var data forecastResponse
	if err := c.getJSON(ctx, url, &data); err != nil {
		return nil, err
	}

	periods := make([]models.ForecastPeriod, 0, len(data.Properties.Periods))
	for _, p := range data.Properties.Periods {
		periods = append(periods, models.ForecastPeriod{
			Number:           p.Number,
			Name:             p.Name,
			StartTime:        parseTime(p.StartTime),
			EndTime:          parseTime(p.EndTime),
			IsDaytime:        p.IsDaytime,
			Temperature:      p.Temperature,
			TemperatureUnit:  p.TemperatureUnit,
			WindSpeed:        p.WindSpeed,
			WindDirection:    p.WindDirection,
			ShortForecast:    p.ShortForecast,
			DetailedForecast: p.DetailedForecast,
		})
	}
	return periods, nil
}
