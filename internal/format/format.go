// Package format renders alerts, forecasts and text products into
// platform-neutral notifications with Discord markdown.
package format

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mr1hm/go-weather-alerts/internal/models"
)

const (
	FooterNWS     = "Source: National Weather Service"
	UrgentContent = "@everyone **SEVERE WEATHER ALERT**"

	fieldLimit       = 1024
	descriptionLimit = 4096
	outlookLimit     = 4000
	outlookMaxFields = 4
)

var severityColors = map[models.Severity]int{
	models.SeverityExtreme:  0xFF0000,
	models.SeveritySevere:   0xFF6600,
	models.SeverityModerate: 0xFFCC00,
	models.SeverityMinor:    0x00CCFF,
	models.SeverityUnknown:  0x808080,
}

var alertEmojis = map[string]string{
	"Tornado Warning":             "\U0001F32A️",
	"Tornado Watch":               "\U0001F32A️",
	"Severe Thunderstorm Warning": "⛈️",
	"Severe Thunderstorm Watch":   "⛈️",
	"Flash Flood Warning":         "\U0001F4A7",
	"Flash Flood Watch":           "\U0001F4A7",
	"Flood Warning":               "\U0001F30A",
	"Flood Watch":                 "\U0001F30A",
	"Winter Storm Warning":        "❄️",
	"Winter Storm Watch":          "❄️",
	"Blizzard Warning":            "\U0001F328️",
	"Ice Storm Warning":           "\U0001F9CA",
	"Wind Advisory":               "\U0001F4A8",
	"High Wind Warning":           "\U0001F4A8",
	"Heat Advisory":               "\U0001F525",
	"Excessive Heat Warning":      "\U0001F525",
	"Freeze Warning":              "\U0001F976",
	"Frost Advisory":              "\U0001F976",
	"Dense Fog Advisory":          "\U0001F32B️",
	"Special Weather Statement":   "ℹ️",
}

const defaultAlertEmoji = "⚠️"

// urgentEvents always get the broadcast marker regardless of severity.
var urgentEvents = map[string]bool{
	"Tornado Warning":     true,
	"Flash Flood Warning": true,
	"Blizzard Warning":    true,
}

// IsUrgent reports whether an alert is delivered with the broadcast marker.
func IsUrgent(a models.Alert) bool {
	return a.Severity == models.SeverityExtreme || urgentEvents[a.Event]
}

func SeverityColor(s models.Severity) int {
	if c, ok := severityColors[s]; ok {
		return c
	}
	return severityColors[models.SeverityUnknown]
}

func AlertEmoji(event string) string {
	if e, ok := alertEmojis[event]; ok {
		return e
	}
	return defaultAlertEmoji
}

// Formatter carries the location labels and clock used in rendered output.
type Formatter struct {
	ZoneName string
	Office   string
	Now      func() time.Time
}

func New(zoneName, office string) *Formatter {
	return &Formatter{
		ZoneName: zoneName,
		Office:   office,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Alert renders one alert. The result is Urgent when IsUrgent holds.
func (f *Formatter) Alert(a models.Alert) models.Notification {
	event := orDefault(a.Event, "Unknown Alert")
	severity := a.Severity
	if severity == "" {
		severity = models.SeverityUnknown
	}

	e := models.Embed{
		Title:       fmt.Sprintf("%s %s", AlertEmoji(event), event),
		Description: orDefault(a.Headline, "No headline available"),
		Color:       SeverityColor(severity),
		Timestamp:   f.Now(),
		Footer:      FooterNWS,
	}

	e.AddField("Description", Truncate(orDefault(a.Description, "No description available"), fieldLimit), false)
	if a.Instruction != "" {
		e.AddField("Instructions", Truncate(a.Instruction, fieldLimit), false)
	}
	if v := timeField(a.Effective, a.EffectiveRaw, "F"); v != "" {
		e.AddField("Effective", v, true)
	}
	if v := timeField(a.Expires, a.ExpiresRaw, "F"); v != "" {
		e.AddField("Expires", v, true)
	}
	e.AddField("Severity", string(severity), true)

	n := models.Notification{Embeds: []models.Embed{e}}
	if IsUrgent(a) {
		n.Urgent = true
		n.Content = UrgentContent
	}
	return n
}

// DiscordTimestamp renders t with a Discord timestamp style ("F", "t", ...).
func DiscordTimestamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

// timeField prefers the parsed time and falls back to the raw upstream text.
func timeField(t time.Time, raw, style string) string {
	if !t.IsZero() {
		return DiscordTimestamp(t, style)
	}
	return raw
}

// Truncate shortens s to at most limit runes, ending in "..." when cut.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
