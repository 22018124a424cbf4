package models

import "time"

type ForecastPeriod struct {
	Number           int
	Name             string // "Tonight", "Monday", empty for hourly periods
	StartTime        time.Time
	EndTime          time.Time
	IsDaytime        bool
	Temperature      int
	TemperatureUnit  string
	WindSpeed        string
	WindDirection    string
	ShortForecast    string
	DetailedForecast string
}

// Product is a text product issued by a forecast office (AFD, HWO, ...).
type Product struct {
	ID           string
	Type         string
	Office       string
	IssuanceTime time.Time
	IssuanceRaw  string
	Text         string
}

func (p *Product) Empty() bool {
	return p == nil || (p.ID == "" && p.Text == "")
}
