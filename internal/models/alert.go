package models

import (
	"strings"
	"time"
)

type Severity string

const (
	SeverityExtreme  Severity = "Extreme"
	SeveritySevere   Severity = "Severe"
	SeverityModerate Severity = "Moderate"
	SeverityMinor    Severity = "Minor"
	SeverityUnknown  Severity = "Unknown"
)

// ParseSeverity maps the upstream severity string onto the fixed set.
// Anything unrecognised is Unknown.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "extreme":
		return SeverityExtreme
	case "severe":
		return SeveritySevere
	case "moderate":
		return SeverityModerate
	case "minor":
		return SeverityMinor
	default:
		return SeverityUnknown
	}
}

type Alert struct {
	ID          string // Upstream identifier, stable across fetches
	Event       string // e.g. "Tornado Warning"
	Severity    Severity
	Urgency     string
	Certainty   string
	Headline    string
	Description string
	Instruction string
	AreaDesc    string
	SenderName  string
	Effective   time.Time
	Expires     time.Time
	// Raw timestamps are kept so renderers can fall back to the upstream
	// text when parsing fails.
	EffectiveRaw string
	ExpiresRaw   string
}
