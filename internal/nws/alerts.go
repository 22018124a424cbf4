package nws

import (
	"context"
	"fmt"
	"time"

	"github.com/mr1hm/go-weather-alerts/internal/models"
)

type alertsResponse struct {
	Features []alertFeature `json:"features"`
}

type alertFeature struct {
	Properties alertProperties `json:"properties"`
}

type alertProperties struct {
	ID          string `json:"id"`
	Event       string `json:"event"`
	Severity    string `json:"severity"`
	Urgency     string `json:"urgency"`
	Certainty   string `json:"certainty"`
	Headline    string `json:"headline"`
	Description string `json:"description"`
	Instruction string `json:"instruction"`
	AreaDesc    string `json:"areaDesc"`
	SenderName  string `json:"senderName"`
	Effective   string `json:"effective"`
	Expires     string `json:"expires"`
}

// ActiveAlerts returns the active alerts for the monitored zone in upstream order.
func (c *Client) ActiveAlerts(ctx context.Context) []models.Alert {
	alerts, err := c.fetchActiveAlerts(ctx)
	if err != nil {
		c.degrade("alerts", err)
		return nil
	}
	return alerts
}

func (c *Client) fetchActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	url := fmt.Sprintf("%s/alerts/active/zone/%s", c.baseURL, c.zone)

	var data alertsResponse
	if err := c.getJSON(ctx, url, &data); err != nil {
		return nil, err
	}

	alerts := make([]models.Alert, 0, len(data.Features))
	for _, f := range data.Features {
		p := f.Properties
		alerts = append(alerts, models.Alert{
			ID:           p.ID,
			Event:        p.Event,
			Severity:     models.ParseSeverity(p.Severity),
			Urgency:      p.Urgency,
			Certainty:    p.Certainty,
			Headline:     p.Headline,
			Description:  p.Description,
			Instruction:  p.Instruction,
			AreaDesc:     p.AreaDesc,
			SenderName:   p.SenderName,
			Effective:    parseTime(p.Effective),
			Expires:      parseTime(p.Expires),
			EffectiveRaw: p.Effective,
			ExpiresRaw:   p.Expires,
		})
	}

	return alerts, nil
}

// parseTime returns the zero time for empty or unparsable input.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
