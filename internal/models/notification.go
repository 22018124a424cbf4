package models

import "time"

// Notification is a platform-neutral message. Content carries the
// broadcast marker for urgent alerts.
type Notification struct {
	Content string
	Urgent  bool
	Embeds  []Embed
}

type Embed struct {
	Title       string
	Description string
	URL         string
	Color       int
	Fields      []EmbedField
	Footer      string
	Timestamp   time.Time
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

func (e *Embed) AddField(name, value string, inline bool) {
	e.Fields = append(e.Fields, EmbedField{Name: name, Value: value, Inline: inline})
}
