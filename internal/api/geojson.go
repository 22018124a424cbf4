package api

import (
	"strings"
	"time"

	"github.com/mr1hm/go-weather-alerts/internal/format"
	"github.com/mr1hm/go-weather-alerts/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature geometry is always null: zone alerts are located by AreaDesc.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Geometry   *Geometry      `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(alerts []models.Alert) FeatureCollection {
	features := make([]Feature, 0, len(alerts))

	for _, a := range alerts {
		f := Feature{
			Type: "Feature",
			ID:   a.ID,
			Properties: map[string]any{
				"id":          a.ID,
				"event":       a.Event,
				"severity":    strings.ToLower(string(a.Severity)),
				"urgency":     a.Urgency,
				"certainty":   a.Certainty,
				"headline":    a.Headline,
				"area_desc":   a.AreaDesc,
				"sender_name": a.SenderName,
				"urgent":      format.IsUrgent(a),
				"effective":   timeOrNil(a.Effective),
				"expires":     timeOrNil(a.Expires),
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

func timeOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
