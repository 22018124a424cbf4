package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mr1hm/go-weather-alerts/internal/config"
	"github.com/mr1hm/go-weather-alerts/internal/format"
	"github.com/mr1hm/go-weather-alerts/internal/ingestion"
	"github.com/mr1hm/go-weather-alerts/internal/models"
	"github.com/mr1hm/go-weather-alerts/internal/repository"
)

const (
	maxAlertEmbeds = 5

	msgNeedManage = "You need Manage Server permission to use this command."
	msgGuildOnly  = "This command can only be used in a server."

	colorOK      = 0x00FF00
	colorRemoved = 0xFF0000
	colorInfo    = 0x3498DB
	colorWarn    = 0xFFCC00
	colorNone    = 0x808080
)

// Request is a platform-neutral command invocation.
type Request struct {
	Name      string
	GuildID   string // empty outside a server
	GuildName string
	UserID    string
	CanManage bool
	Count     int   // days/hours option, 0 when omitted
	ChannelID int64 // channel option
}

type Response struct {
	Content   string
	Embeds    []models.Embed
	Ephemeral bool
}

// Fetcher is the upstream surface the query commands use.
type Fetcher interface {
	ActiveAlerts(ctx context.Context) []models.Alert
	Forecast(ctx context.Context) []models.ForecastPeriod
	HourlyForecast(ctx context.Context) []models.ForecastPeriod
	Discussion(ctx context.Context) *models.Product
	HazardOutlook(ctx context.Context) *models.Product
}

// Session exposes platform facts for status and channel checks.
type Session interface {
	GuildCount() int
	Latency() time.Duration
	// ChannelExists reports false with a nil error when the channel is gone.
	ChannelExists(ctx context.Context, guildID string, channelID int64) (bool, error)
}

type Poller interface {
	State() ingestion.State
	LastCycle() ingestion.CycleReport
}

type Counter interface {
	Len() int
}

type Service struct {
	cfg       *config.Config
	fetcher   Fetcher
	formatter *format.Formatter
	dests     repository.DestinationStore
	seen      Counter
	poller    Poller
	session   Session
	defs      []Definition
}

func NewService(cfg *config.Config, fetcher Fetcher, formatter *format.Formatter, dests repository.DestinationStore, seen Counter, poller Poller, session Session) *Service {
	return &Service{
		cfg:       cfg,
		fetcher:   fetcher,
		formatter: formatter,
		dests:     dests,
		seen:      seen,
		poller:    poller,
		session:   session,
		defs:      Definitions(cfg.NWS.ZoneName),
	}
}

func (s *Service) Definitions() []Definition {
	return s.defs
}

// Handle runs one command. Failures and panics become ephemeral replies.
func (s *Service) Handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("command panicked", "command", req.Name, "guild_id", req.GuildID, "panic", r)
			resp = ephemeral(fmt.Sprintf("An error occurred: %v", r))
		}
	}()

	def, ok := Lookup(s.defs, req.Name)
	if !ok {
		return ephemeral("Unknown command: " + req.Name)
	}
	if def.GuildOnly && req.GuildID == "" {
		return ephemeral(msgGuildOnly)
	}
	if def.Admin && !req.CanManage {
		return ephemeral(msgNeedManage)
	}

	slog.Debug("handling command", "command", req.Name, "guild_id", req.GuildID, "user_id", req.UserID)

	switch req.Name {
	case NameAlerts:
		return s.alerts(ctx)
	case NameForecast:
		return s.forecast(ctx, req.Count)
	case NameHourly:
		return s.hourly(ctx, req.Count)
	case NameOutlook:
		return s.outlook(ctx)
	case NameDiscussion:
		return s.discussion(ctx)
	case NameStatus:
		return s.status()
	case NameTest:
		return s.test()
	case NameSetChannel:
		return s.setChannel(ctx, req)
	case NameRemoveChannel:
		return s.removeChannel(ctx, req)
	case NameChannelInfo:
		return s.channelInfo(ctx, req)
	}
	return ephemeral("Unknown command: " + req.Name)
}

func (s *Service) alerts(ctx context.Context) Response {
	alerts := s.fetcher.ActiveAlerts(ctx)
	if len(alerts) == 0 {
		return Response{Content: fmt.Sprintf("No active weather alerts for %s at this time.", s.cfg.NWS.ZoneName)}
	}

	resp := Response{Content: fmt.Sprintf("**%d Active Alert(s) for %s:**", len(alerts), s.cfg.NWS.ZoneName)}
	for _, a := range alerts[:min(len(alerts), maxAlertEmbeds)] {
		// Query replies never carry the broadcast marker
		resp.Embeds = append(resp.Embeds, s.formatter.Alert(a).Embeds...)
	}
	return resp
}

func (s *Service) forecast(ctx context.Context, days int) Response {
	periods := s.fetcher.Forecast(ctx)
	if len(periods) == 0 {
		return Response{Content: "Unable to fetch forecast. Please try again later."}
	}
	return fromNotification(s.formatter.Forecast(periods, days))
}

func (s *Service) hourly(ctx context.Context, hours int) Response {
	periods := s.fetcher.HourlyForecast(ctx)
	if len(periods) == 0 {
		return Response{Content: "Unable to fetch hourly forecast. Please try again later."}
	}
	return fromNotification(s.formatter.Hourly(periods, hours))
}

func (s *Service) outlook(ctx context.Context) Response {
	p := s.fetcher.HazardOutlook(ctx)
	if p == nil || p.Empty() {
		return Response{Content: "Unable to fetch hazardous weather outlook. Please try again later."}
	}
	return fromNotification(s.formatter.Outlook(p))
}

func (s *Service) discussion(ctx context.Context) Response {
	p := s.fetcher.Discussion(ctx)
	if p == nil || p.Empty() {
		return Response{Content: "Unable to fetch forecast discussion. Please try again later."}
	}
	return fromNotification(s.formatter.Discussion(p))
}

func (s *Service) status() Response {
	e := s.embed("NWS Alert Bot Status", "", colorOK)
	e.AddField("Monitoring Zone", s.zoneLabel(), false)
	e.AddField("Forecast Office", s.cfg.NWS.Office, true)
	e.AddField("Check Interval", s.intervalLabel(), true)
	e.AddField("Servers Connected", strconv.Itoa(s.session.GuildCount()), true)
	e.AddField("Channels Configured", strconv.Itoa(s.dests.Len()), true)
	e.AddField("Alerts Tracked", strconv.Itoa(s.seen.Len()), true)
	e.AddField("Bot Latency", fmt.Sprintf("%dms", s.session.Latency().Milliseconds()), true)
	if s.poller != nil {
		e.AddField("Poll Loop", s.poller.State().String(), true)
		e.AddField("Last Poll", lastPoll(s.poller.LastCycle()), true)
	}
	return Response{Embeds: []models.Embed{e}}
}

func (s *Service) test() Response {
	e := s.embed("⚠️ Test Alert", "This is a test alert to verify the bot is working correctly.", colorOK)
	e.AddField("Description", "If you can see this message, the bot is configured correctly and can post alerts to this channel.", false)
	e.AddField("Zone", s.zoneLabel(), true)
	e.Footer = "Source: Test - National Weather Service Bot"
	return Response{Embeds: []models.Embed{e}}
}

func (s *Service) setChannel(ctx context.Context, req Request) Response {
	if req.ChannelID == 0 {
		return ephemeral("Error setting channel: no channel given")
	}
	if err := s.dests.Set(ctx, req.GuildID, req.ChannelID); err != nil {
		slog.Error("error setting alert channel", "guild_id", req.GuildID, "channel_id", req.ChannelID, "error", err)
		return ephemeral(fmt.Sprintf("Error setting channel: %v", err))
	}
	slog.Info("alert channel set", "guild_id", req.GuildID, "guild", req.GuildName, "channel_id", req.ChannelID)

	e := s.embed("✅ Alert Channel Configured",
		fmt.Sprintf("Weather alerts will now be posted to %s", mention(req.ChannelID)), colorOK)
	e.AddField("Zone", s.zoneLabel(), true)
	e.AddField("Check Interval", s.intervalLabel(), true)
	e.Footer = "Use /removechannel to stop receiving alerts"
	return Response{Embeds: []models.Embed{e}}
}

func (s *Service) removeChannel(ctx context.Context, req Request) Response {
	removed, err := s.dests.Remove(ctx, req.GuildID)
	if err != nil {
		slog.Error("error removing alert channel", "guild_id", req.GuildID, "error", err)
		return ephemeral(fmt.Sprintf("Error removing channel: %v", err))
	}
	if !removed {
		return ephemeral("No alert channel was configured for this server.")
	}
	slog.Info("alert channel removed", "guild_id", req.GuildID, "guild", req.GuildName)

	e := s.embed("❌ Alerts Disabled", "This server will no longer receive weather alerts.", colorRemoved)
	e.Footer = "Use /setchannel to re-enable alerts"
	return Response{Embeds: []models.Embed{e}}
}

func (s *Service) channelInfo(ctx context.Context, req Request) Response {
	var e models.Embed

	dest, ok := s.dests.Get(req.GuildID)
	switch {
	case !ok || dest.ChannelID == 0:
		e = s.embed("\U0001F4E2 No Channel Configured",
			"No alert channel has been set for this server.\nUse `/setchannel #channel` to configure alerts.", colorNone)
	default:
		exists, err := s.session.ChannelExists(ctx, req.GuildID, dest.ChannelID)
		if err != nil {
			slog.Warn("error looking up alert channel", "guild_id", req.GuildID, "channel_id", dest.ChannelID, "error", err)
			return ephemeral(fmt.Sprintf("Error looking up channel: %v", err))
		}
		if exists {
			e = s.embed("\U0001F4E2 Alert Channel Configuration",
				fmt.Sprintf("Weather alerts are being sent to %s", mention(dest.ChannelID)), colorInfo)
		} else {
			e = s.embed("⚠️ Channel Not Found",
				fmt.Sprintf("Configured channel (ID: %d) no longer exists.\nUse `/setchannel` to set a new channel.", dest.ChannelID), colorWarn)
		}
	}

	e.Footer = fmt.Sprintf("Zone: %s | Office: %s", s.cfg.NWS.Zone, s.cfg.NWS.Office)
	return Response{Embeds: []models.Embed{e}}
}

func (s *Service) embed(title, description string, color int) models.Embed {
	return models.Embed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   s.formatter.Now(),
	}
}

func (s *Service) zoneLabel() string {
	return fmt.Sprintf("%s (%s)", s.cfg.NWS.Zone, s.cfg.NWS.ZoneName)
}

func (s *Service) intervalLabel() string {
	return fmt.Sprintf("Every %d seconds", int(s.cfg.Poller.Interval.Seconds()))
}

func lastPoll(r ingestion.CycleReport) string {
	if r.StartedAt.IsZero() {
		return "never"
	}
	if r.Skipped {
		return humanize.Time(r.StartedAt) + " (no channels)"
	}
	return fmt.Sprintf("%s (%d active)", humanize.Time(r.StartedAt), r.Fetched)
}

func mention(channelID int64) string {
	return fmt.Sprintf("<#%d>", channelID)
}

func ephemeral(msg string) Response {
	return Response{Content: msg, Ephemeral: true}
}

func fromNotification(n models.Notification) Response {
	return Response{Content: n.Content, Embeds: n.Embeds}
}
