package models

// Destination is the output channel a tenant (guild) receives alerts in.
type Destination struct {
	TenantID  string `json:"-"`
	ChannelID int64  `json:"channel_id"`
}
