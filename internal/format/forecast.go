package format

import (
	"fmt"
	"strings"

	"github.com/mr1hm/go-weather-alerts/internal/models"
)

const (
	DefaultForecastPeriods = 6
	MaxForecastPeriods     = 14
	DefaultHourlyPeriods   = 12
	MaxHourlyPeriods       = 24

	forecastColor = 0x3498DB
	hourlyColor   = 0x9B59B6
)

// Specific phrases come before the words they contain.
var weatherEmojis = []struct {
	keyword string
	emoji   string
}{
	{"mostly sunny", "\U0001F324️"},
	{"mostly clear", "\U0001F324️"},
	{"partly sunny", "⛅"},
	{"partly cloudy", "⛅"},
	{"mostly cloudy", "\U0001F325️"},
	{"thunderstorm", "⛈️"},
	{"freezing", "\U0001F9CA"},
	{"sunny", "☀️"},
	{"clear", "☀️"},
	{"cloudy", "☁️"},
	{"overcast", "☁️"},
	{"rain", "\U0001F327️"},
	{"showers", "\U0001F327️"},
	{"snow", "\U0001F328️"},
	{"sleet", "\U0001F328️"},
	{"fog", "\U0001F32B️"},
	{"windy", "\U0001F4A8"},
	{"hot", "\U0001F525"},
	{"cold", "\U0001F976"},
}

const defaultWeatherEmoji = "\U0001F324️"

func WeatherEmoji(forecast string) string {
	lower := strings.ToLower(forecast)
	for _, w := range weatherEmojis {
		if strings.Contains(lower, w.keyword) {
			return w.emoji
		}
	}
	return defaultWeatherEmoji
}

// ClampCount bounds a requested period count; zero or negative means def.
func ClampCount(n, def, max int) int {
	if n == 0 {
		return def
	}
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}

// Forecast renders the first count periods (clamped to 1..14, default 6).
func (f *Formatter) Forecast(periods []models.ForecastPeriod, count int) models.Notification {
	count = ClampCount(count, DefaultForecastPeriods, MaxForecastPeriods)
	if len(periods) > count {
		periods = periods[:count]
	}

	e := models.Embed{
		Title:     fmt.Sprintf("\U0001F324️ Weather Forecast - %s", f.ZoneName),
		Color:     forecastColor,
		Timestamp: f.Now(),
		Footer:    FooterNWS,
	}

	for _, p := range periods {
		short := orDefault(p.ShortForecast, "No forecast available")
		value := fmt.Sprintf("%s **%d°%s** - %s\n\U0001F4A8 Wind: %s %s",
			WeatherEmoji(short), p.Temperature, orDefault(p.TemperatureUnit, "F"), short,
			orDefault(p.WindSpeed, "Unknown"), p.WindDirection)
		e.AddField(orDefault(p.Name, "Unknown"), strings.TrimRight(value, " "), false)
	}

	return models.Notification{Embeds: []models.Embed{e}}
}

// Hourly renders the first count hourly periods (clamped to 1..24, default 12).
func (f *Formatter) Hourly(periods []models.ForecastPeriod, count int) models.Notification {
	count = ClampCount(count, DefaultHourlyPeriods, MaxHourlyPeriods)
	if len(periods) > count {
		periods = periods[:count]
	}

	var b strings.Builder
	for _, p := range periods {
		when := "Unknown"
		if !p.StartTime.IsZero() {
			when = DiscordTimestamp(p.StartTime, "t")
		}
		fmt.Fprintf(&b, "%s: %s **%d°%s** - %s\n",
			when, WeatherEmoji(p.ShortForecast), p.Temperature, orDefault(p.TemperatureUnit, "F"), p.ShortForecast)
	}

	e := models.Embed{
		Title:       fmt.Sprintf("⏰ Hourly Forecast - %s", f.ZoneName),
		Description: Truncate(b.String(), descriptionLimit),
		Color:       hourlyColor,
		Timestamp:   f.Now(),
		Footer:      FooterNWS,
	}
	return models.Notification{Embeds: []models.Embed{e}}
}
