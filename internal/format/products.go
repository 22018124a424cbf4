package format

import (
	"fmt"
	"strings"

	"github.com/mr1hm/go-weather-alerts/internal/models"
)

const (
	outlookColor    = 0xE74C3C
	discussionColor = 0x2ECC71
)

func issuedLine(p *models.Product) string {
	switch {
	case !p.IssuanceTime.IsZero():
		return "Issued: " + DiscordTimestamp(p.IssuanceTime, "F")
	case p.IssuanceRaw != "":
		return "Issued: " + p.IssuanceRaw
	default:
		return ""
	}
}

// Outlook renders a Hazardous Weather Outlook split across up to four fields.
func (f *Formatter) Outlook(p *models.Product) models.Notification {
	text := orDefault(p.Text, "No outlook text available")
	if r := []rune(text); len(r) > outlookLimit {
		text = string(r[:outlookLimit]) + "..."
	}

	e := models.Embed{
		Title:       "⚠️ Hazardous Weather Outlook",
		Description: issuedLine(p),
		Color:       outlookColor,
		Timestamp:   f.Now(),
		Footer:      "Source: NWS " + f.Office,
	}

	for i, chunk := range chunkRunes(text, fieldLimit) {
		if i == outlookMaxFields {
			break
		}
		name := "Outlook"
		if i > 0 {
			name = "​"
		}
		e.AddField(name, chunk, false)
	}

	return models.Notification{Embeds: []models.Embed{e}}
}

// Discussion renders the synopsis of an Area Forecast Discussion with a
// link to the full product.
func (f *Formatter) Discussion(p *models.Product) models.Notification {
	text := orDefault(p.Text, "No discussion text available")

	e := models.Embed{
		Title:       "\U0001F4DD Area Forecast Discussion",
		Description: issuedLine(p),
		Color:       discussionColor,
		Timestamp:   f.Now(),
		Footer:      "Source: NWS " + f.Office,
	}

	synopsis := Synopsis(text)
	if synopsis == "" {
		synopsis = text
	}
	synopsis = string(firstRunes(synopsis, fieldLimit))
	if strings.TrimSpace(synopsis) != "" {
		e.AddField("Synopsis", synopsis, false)
	}

	e.AddField("Full Discussion", fmt.Sprintf(
		"[View on NWS Website](https://forecast.weather.gov/product.php?site=%[1]s&issuedby=%[1]s&product=AFD)", f.Office), false)

	return models.Notification{Embeds: []models.Embed{e}}
}

// Synopsis extracts the lines following the SYNOPSIS header up to the next
// dot-prefixed section header.
func Synopsis(text string) string {
	var (
		lines []string
		in    bool
	)
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.Contains(strings.ToUpper(line), "SYNOPSIS"):
			in = true
		case in && strings.HasPrefix(line, "."):
			return strings.TrimSpace(strings.Join(lines, "\n"))
		case in:
			lines = append(lines, line)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func chunkRunes(s string, size int) []string {
	r := []rune(s)
	var out []string
	for len(r) > 0 {
		n := min(size, len(r))
		out = append(out, string(r[:n]))
		r = r[n:]
	}
	return out
}

func firstRunes(s string, n int) []rune {
	r := []rune(s)
	if len(r) > n {
		return r[:n]
	}
	return r
}
