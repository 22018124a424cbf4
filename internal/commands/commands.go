// Package commands implements the slash command surface independent of the
// chat platform. The discord package registers Definitions and translates
// interactions into Requests.
package commands

import (
	"github.com/mr1hm/go-weather-alerts/internal/format"
)

const (
	NameAlerts        = "alerts"
	NameForecast      = "forecast"
	NameHourly        = "hourly"
	NameOutlook       = "outlook"
	NameDiscussion    = "discussion"
	NameStatus        = "status"
	NameTest          = "test"
	NameSetChannel    = "setchannel"
	NameRemoveChannel = "removechannel"
	NameChannelInfo   = "channelinfo"
)

type OptionType int

const (
	OptionInteger OptionType = iota
	OptionChannel
)

type Option struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
	Min, Max    int
}

// Definition describes one command for registration.
type Definition struct {
	Name        string
	Description string
	Options     []Option
	// GuildOnly commands are rejected outside a server.
	GuildOnly bool
	// Admin commands need the Manage Server permission.
	Admin bool
	// Deferred commands call upstream and acknowledge before replying.
	Deferred bool
}

// Definitions lists every command. zoneName is used in descriptions.
func Definitions(zoneName string) []Definition {
	return []Definition{
		{Name: NameAlerts, Description: "Show current active weather alerts for " + zoneName, Deferred: true},
		{
			Name:        NameForecast,
			Description: "Get the weather forecast for " + zoneName,
			Deferred:    true,
			Options: []Option{{
				Name: "days", Description: "Number of forecast periods to show",
				Type: OptionInteger, Min: 1, Max: format.MaxForecastPeriods,
			}},
		},
		{
			Name:        NameHourly,
			Description: "Get the hourly forecast for " + zoneName,
			Deferred:    true,
			Options: []Option{{
				Name: "hours", Description: "Number of hours to show",
				Type: OptionInteger, Min: 1, Max: format.MaxHourlyPeriods,
			}},
		},
		{Name: NameOutlook, Description: "Get the Hazardous Weather Outlook for the region", Deferred: true},
		{Name: NameDiscussion, Description: "Get the Area Forecast Discussion from NWS", Deferred: true},
		{Name: NameStatus, Description: "Show bot status and monitoring information"},
		{Name: NameTest, Description: "Send a test alert embed (Manage Server required)", GuildOnly: true, Admin: true},
		{
			Name:        NameSetChannel,
			Description: "Set the channel for weather alerts (Manage Server required)",
			GuildOnly:   true,
			Admin:       true,
			Options: []Option{{
				Name: "channel", Description: "The channel where weather alerts will be posted",
				Type: OptionChannel, Required: true,
			}},
		},
		{Name: NameRemoveChannel, Description: "Stop receiving weather alerts in this server (Manage Server required)", GuildOnly: true, Admin: true},
		{Name: NameChannelInfo, Description: "Show the current alert channel configuration", GuildOnly: true},
	}
}

// Lookup returns the definition for name.
func Lookup(defs []Definition, name string) (Definition, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
