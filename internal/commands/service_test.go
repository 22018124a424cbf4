package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mr1hm/go-weather-alerts/internal/config"
	"github.com/mr1hm/go-weather-alerts/internal/format"
	"github.com/mr1hm/go-weather-alerts/internal/ingestion"
	"github.com/mr1hm/go-weather-alerts/internal/models"
)

type mockFetcher struct {
	alerts     []models.Alert
	periods    []models.ForecastPeriod
	hourly     []models.ForecastPeriod
	discussion *models.Product
	outlook    *models.Product
	panicOn    string
}

func (f *mockFetcher) ActiveAlerts(ctx context.Context) []models.Alert {
	if f.panicOn == NameAlerts {
		panic("boom")
	}
	return f.alerts
}
func (f *mockFetcher) Forecast(ctx context.Context) []models.ForecastPeriod       { return f.periods }
func (f *mockFetcher) HourlyForecast(ctx context.Context) []models.ForecastPeriod { return f.hourly }
func (f *mockFetcher) Discussion(ctx context.Context) *models.Product             { return f.discussion }
func (f *mockFetcher) HazardOutlook(ctx context.Context) *models.Product          { return f.outlook }

type mockDests struct {
	mu      sync.Mutex
	byID    map[string]models.Destination
	saveErr error
}

func newMockDests() *mockDests {
	return &mockDests{byID: make(map[string]models.Destination)}
}

func (d *mockDests) Set(ctx context.Context, tenantID string, channelID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.saveErr != nil {
		return d.saveErr
	}
	d.byID[tenantID] = models.Destination{TenantID: tenantID, ChannelID: channelID}
	return nil
}

func (d *mockDests) Remove(ctx context.Context, tenantID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byID[tenantID]; !ok {
		return false, nil
	}
	delete(d.byID, tenantID)
	return true, nil
}

func (d *mockDests) Get(tenantID string) (models.Destination, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dest, ok := d.byID[tenantID]
	return dest, ok
}

func (d *mockDests) All() []models.Destination {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.Destination
	for _, dest := range d.byID {
		out = append(out, dest)
	}
	return out
}

func (d *mockDests) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byID)
}

type mockSession struct {
	guilds   int
	latency  time.Duration
	channels map[int64]bool
	err      error
}

func (s *mockSession) GuildCount() int        { return s.guilds }
func (s *mockSession) Latency() time.Duration { return s.latency }
func (s *mockSession) ChannelExists(ctx context.Context, guildID string, channelID int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.channels[channelID], nil
}

type mockCounter int

func (c mockCounter) Len() int { return int(c) }

type mockPoller struct {
	state ingestion.State
	last  ingestion.CycleReport
}

func (p mockPoller) State() ingestion.State           { return p.state }
func (p mockPoller) LastCycle() ingestion.CycleReport { return p.last }

type fixture struct {
	svc     *Service
	fetcher *mockFetcher
	dests   *mockDests
	session *mockSession
}

func newFixture() *fixture {
	cfg := &config.Config{
		NWS:    config.NWSConfig{Zone: "MIC147", ZoneName: "St. Clair County, MI", Office: "DTX"},
		Poller: config.PollerConfig{Interval: 60 * time.Second},
	}
	f := &fixture{
		fetcher: &mockFetcher{},
		dests:   newMockDests(),
		session: &mockSession{guilds: 3, latency: 42 * time.Millisecond, channels: map[int64]bool{}},
	}
	formatter := format.New(cfg.NWS.ZoneName, cfg.NWS.Office)
	f.svc = NewService(cfg, f.fetcher, formatter, f.dests, mockCounter(7), mockPoller{state: ingestion.StateRunning}, f.session)
	return f
}

func admin(name string) Request {
	return Request{Name: name, GuildID: "g1", GuildName: "Test Guild", CanManage: true}
}

func fieldValue(e models.Embed, name string) string {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func TestHandle_AdminChecks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, name := range []string{NameTest, NameSetChannel, NameRemoveChannel} {
		t.Run(name, func(t *testing.T) {
			resp := f.svc.Handle(ctx, Request{Name: name, GuildID: "g1", ChannelID: 5})
			if !resp.Ephemeral || resp.Content != msgNeedManage {
				t.Errorf("expected ephemeral permission error, got %+v", resp)
			}

			resp = f.svc.Handle(ctx, Request{Name: name, CanManage: true, ChannelID: 5})
			if !resp.Ephemeral || resp.Content != msgGuildOnly {
				t.Errorf("expected ephemeral guild-only error, got %+v", resp)
			}
		})
	}

	if f.dests.Len() != 0 {
		t.Errorf("rejected commands must not touch the registry, got %d entries", f.dests.Len())
	}
}

func TestHandle_SetAndRemoveChannel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req := admin(NameSetChannel)
	req.ChannelID = 100
	resp := f.svc.Handle(ctx, req)
	if resp.Ephemeral || len(resp.Embeds) != 1 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if !strings.Contains(resp.Embeds[0].Description, "<#100>") {
		t.Errorf("expected channel mention, got %q", resp.Embeds[0].Description)
	}

	req.ChannelID = 200
	f.svc.Handle(ctx, req)
	if d, ok := f.dests.Get("g1"); !ok || d.ChannelID != 200 {
		t.Errorf("expected upsert to channel 200, got %+v", d)
	}
	if f.dests.Len() != 1 {
		t.Errorf("expected exactly 1 entry, got %d", f.dests.Len())
	}

	resp = f.svc.Handle(ctx, admin(NameRemoveChannel))
	if resp.Ephemeral || resp.Embeds[0].Title != "❌ Alerts Disabled" {
		t.Errorf("unexpected remove response %+v", resp)
	}
	if _, ok := f.dests.Get("g1"); ok {
		t.Error("expected destination removed")
	}

	resp = f.svc.Handle(ctx, admin(NameRemoveChannel))
	if !resp.Ephemeral || !strings.Contains(resp.Content, "No alert channel") {
		t.Errorf("expected ephemeral no-channel reply, got %+v", resp)
	}
}

func TestHandle_SetChannelSaveError(t *testing.T) {
	f := newFixture()
	f.dests.saveErr = errors.New("disk full")

	req := admin(NameSetChannel)
	req.ChannelID = 100
	resp := f.svc.Handle(context.Background(), req)

	if !resp.Ephemeral || !strings.Contains(resp.Content, "disk full") {
		t.Errorf("expected ephemeral save error, got %+v", resp)
	}
}

func TestHandle_ChannelInfo(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req := Request{Name: NameChannelInfo, GuildID: "g1"}

	resp := f.svc.Handle(ctx, req)
	if resp.Embeds[0].Title != "\U0001F4E2 No Channel Configured" {
		t.Errorf("expected no-channel embed, got %q", resp.Embeds[0].Title)
	}
	if resp.Embeds[0].Footer != "Zone: MIC147 | Office: DTX" {
		t.Errorf("unexpected footer %q", resp.Embeds[0].Footer)
	}

	f.dests.Set(ctx, "g1", 300)
	resp = f.svc.Handle(ctx, req)
	if resp.Embeds[0].Title != "⚠️ Channel Not Found" || !strings.Contains(resp.Embeds[0].Description, "300") {
		t.Errorf("expected missing-channel embed, got %+v", resp.Embeds[0])
	}

	f.session.channels[300] = true
	resp = f.svc.Handle(ctx, req)
	if !strings.Contains(resp.Embeds[0].Description, "<#300>") {
		t.Errorf("expected configured channel embed, got %+v", resp.Embeds[0])
	}

	f.session.err = errors.New("gateway down")
	resp = f.svc.Handle(ctx, req)
	if !resp.Ephemeral {
		t.Errorf("expected ephemeral error on lookup failure, got %+v", resp)
	}

	resp = f.svc.Handle(ctx, Request{Name: NameChannelInfo})
	if resp.Content != msgGuildOnly {
		t.Errorf("expected guild-only reply in DMs, got %+v", resp)
	}
}

func TestHandle_Alerts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	resp := f.svc.Handle(ctx, Request{Name: NameAlerts})
	if resp.Content != "No active weather alerts for St. Clair County, MI at this time." {
		t.Errorf("unexpected empty reply %q", resp.Content)
	}

	for i := 0; i < 7; i++ {
		f.fetcher.alerts = append(f.fetcher.alerts, models.Alert{
			ID: fmt.Sprintf("a%d", i), Event: "Tornado Warning", Severity: models.SeverityExtreme,
		})
	}
	resp = f.svc.Handle(ctx, Request{Name: NameAlerts})
	if resp.Content != "**7 Active Alert(s) for St. Clair County, MI:**" {
		t.Errorf("unexpected header %q", resp.Content)
	}
	if len(resp.Embeds) != maxAlertEmbeds {
		t.Errorf("expected %d embeds, got %d", maxAlertEmbeds, len(resp.Embeds))
	}
	if strings.Contains(resp.Content, "@everyone") {
		t.Error("query replies must not mention everyone")
	}
}

func TestHandle_UpstreamUnavailable(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		want string
	}{
		{NameForecast, "Unable to fetch forecast. Please try again later."},
		{NameHourly, "Unable to fetch hourly forecast. Please try again later."},
		{NameOutlook, "Unable to fetch hazardous weather outlook. Please try again later."},
		{NameDiscussion, "Unable to fetch forecast discussion. Please try again later."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.svc.Handle(ctx, Request{Name: tt.name})
			if resp.Content != tt.want {
				t.Errorf("expected %q, got %q", tt.want, resp.Content)
			}
		})
	}
}

func TestHandle_ForecastCount(t *testing.T) {
	f := newFixture()
	for i := 0; i < 14; i++ {
		f.fetcher.periods = append(f.fetcher.periods, models.ForecastPeriod{Number: i + 1, Name: fmt.Sprintf("P%d", i), ShortForecast: "Sunny"})
	}

	resp := f.svc.Handle(context.Background(), Request{Name: NameForecast, Count: 3})
	if got := len(resp.Embeds[0].Fields); got != 3 {
		t.Errorf("expected 3 periods, got %d", got)
	}

	resp = f.svc.Handle(context.Background(), Request{Name: NameForecast})
	if got := len(resp.Embeds[0].Fields); got != format.DefaultForecastPeriods {
		t.Errorf("expected default %d periods, got %d", format.DefaultForecastPeriods, got)
	}
}

func TestHandle_Products(t *testing.T) {
	f := newFixture()
	f.fetcher.outlook = &models.Product{ID: "hwo", Text: "No hazardous weather is expected."}
	f.fetcher.discussion = &models.Product{ID: "afd", Text: ".SYNOPSIS...\nHigh pressure.\n\n&&\n"}

	resp := f.svc.Handle(context.Background(), Request{Name: NameOutlook})
	if len(resp.Embeds) != 1 || resp.Embeds[0].Title != "⚠️ Hazardous Weather Outlook" {
		t.Errorf("unexpected outlook response %+v", resp)
	}

	resp = f.svc.Handle(context.Background(), Request{Name: NameDiscussion})
	if len(resp.Embeds) != 1 || fieldValue(resp.Embeds[0], "Full Discussion") == "" {
		t.Errorf("unexpected discussion response %+v", resp)
	}
}

func TestHandle_Status(t *testing.T) {
	f := newFixture()
	f.dests.Set(context.Background(), "g1", 1)

	resp := f.svc.Handle(context.Background(), Request{Name: NameStatus})
	e := resp.Embeds[0]

	checks := map[string]string{
		"Monitoring Zone":     "MIC147 (St. Clair County, MI)",
		"Forecast Office":     "DTX",
		"Check Interval":      "Every 60 seconds",
		"Servers Connected":   "3",
		"Channels Configured": "1",
		"Alerts Tracked":      "7",
		"Bot Latency":         "42ms",
		"Poll Loop":           "running",
		"Last Poll":           "never",
	}
	for name, want := range checks {
		if got := fieldValue(e, name); got != want {
			t.Errorf("%s: expected %q, got %q", name, want, got)
		}
	}
}

func TestHandle_PanicBecomesEphemeral(t *testing.T) {
	f := newFixture()
	f.fetcher.panicOn = NameAlerts

	resp := f.svc.Handle(context.Background(), Request{Name: NameAlerts})
	if !resp.Ephemeral || !strings.Contains(resp.Content, "boom") {
		t.Errorf("expected ephemeral panic reply, got %+v", resp)
	}
}

func TestHandle_UnknownCommand(t *testing.T) {
	f := newFixture()
	resp := f.svc.Handle(context.Background(), Request{Name: "nope"})
	if !resp.Ephemeral {
		t.Errorf("expected ephemeral reply, got %+v", resp)
	}
}

func TestDefinitions(t *testing.T) {
	defs := Definitions("Somewhere")
	if len(defs) != 10 {
		t.Fatalf("expected 10 commands, got %d", len(defs))
	}
	for _, name := range []string{NameAlerts, NameForecast, NameHourly, NameOutlook, NameDiscussion} {
		if d, _ := Lookup(defs, name); !d.Deferred {
			t.Errorf("%s should be deferred", name)
		}
	}
	if d, _ := Lookup(defs, NameSetChannel); !d.Admin || !d.GuildOnly || len(d.Options) != 1 || !d.Options[0].Required {
		t.Errorf("unexpected setchannel definition %+v", d)
	}
}

func TestLastPoll(t *testing.T) {
	r := ingestion.CycleReport{StartedAt: time.Now().Add(-3 * time.Minute), Fetched: 2}
	if got := lastPoll(r); got != "3 minutes ago (2 active)" {
		t.Errorf("unexpected last poll %q", got)
	}

	r.Skipped = true
	if got := lastPoll(r); !strings.HasSuffix(got, "(no channels)") {
		t.Errorf("unexpected skipped last poll %q", got)
	}
}
