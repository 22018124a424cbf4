// Package discord adapts the command service and alert delivery to a
// Discord gateway session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mr1hm/go-weather-alerts/internal/commands"
	"github.com/mr1hm/go-weather-alerts/internal/models"
)

const commandTimeout = 30 * time.Second

// Handler answers one command.
type Handler interface {
	Handle(ctx context.Context, req commands.Request) commands.Response
}

type Bot struct {
	session *discordgo.Session

	mu      sync.RWMutex
	ctx     context.Context
	handler Handler
	defs    []commands.Definition
	onReady func(ctx context.Context)
	ready   sync.Once
}

func New(token string) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{session: s, ctx: context.Background()}
	s.AddHandler(b.handleReady)
	s.AddHandler(b.handleInteraction)
	return b, nil
}

// Serve sets the command handler and the callback run once after the first
// Ready event. Call before Open.
func (b *Bot) Serve(handler Handler, defs []commands.Definition, onReady func(ctx context.Context)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
	b.defs = defs
	b.onReady = onReady
}

// Open connects to the gateway. ctx bounds command handling and is passed
// to the ready callback.
func (b *Bot) Open(ctx context.Context) error {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("error opening discord session: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) baseContext() context.Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("logged in", "user", r.User.Username, "user_id", r.User.ID, "guilds", len(r.Guilds))

	b.ready.Do(func() {
		b.mu.RLock()
		defs, onReady := b.defs, b.onReady
		b.mu.RUnlock()

		if err := b.registerCommands(r.User.ID, defs); err != nil {
			slog.Error("error syncing commands", "error", err)
		}
		if onReady != nil {
			onReady(b.baseContext())
		}
	})
}

func (b *Bot) registerCommands(appID string, defs []commands.Definition) error {
	cmds := make([]*discordgo.ApplicationCommand, 0, len(defs))
	for _, d := range defs {
		cmds = append(cmds, toApplicationCommand(d))
	}

	synced, err := b.session.ApplicationCommandBulkOverwrite(appID, "", cmds)
	if err != nil {
		return err
	}
	slog.Info("synced commands", "count", len(synced))
	return nil
}

func (b *Bot) handleInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return
	}

	b.mu.RLock()
	handler, defs := b.handler, b.defs
	b.mu.RUnlock()
	if handler == nil {
		return
	}

	req, err := toRequest(ic.Interaction)
	if err != nil {
		slog.Warn("error reading interaction", "error", err)
		b.respond(ic.Interaction, commands.Response{Content: fmt.Sprintf("An error occurred: %v", err), Ephemeral: true})
		return
	}
	if req.GuildID != "" {
		if g, err := s.State.Guild(req.GuildID); err == nil {
			req.GuildName = g.Name
		}
	}

	ctx, cancel := context.WithTimeout(b.baseContext(), commandTimeout)
	defer cancel()

	def, _ := commands.Lookup(defs, req.Name)
	if !def.Deferred {
		b.respond(ic.Interaction, handler.Handle(ctx, req))
		return
	}

	// Upstream calls can outlast the interaction acknowledgement window
	if err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		slog.Error("error deferring interaction", "command", req.Name, "error", err)
		return
	}

	resp := handler.Handle(ctx, req)
	params := &discordgo.WebhookParams{
		Content:         resp.Content,
		Embeds:          toMessageEmbeds(resp.Embeds),
		AllowedMentions: allowedMentions(false),
	}
	if resp.Ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if _, err := s.FollowupMessageCreate(ic.Interaction, true, params, discordgo.WithContext(ctx)); err != nil {
		slog.Error("error sending followup", "command", req.Name, "error", err)
	}
}

func (b *Bot) respond(i *discordgo.Interaction, resp commands.Response) {
	data := &discordgo.InteractionResponseData{
		Content:         resp.Content,
		Embeds:          toMessageEmbeds(resp.Embeds),
		AllowedMentions: allowedMentions(false),
	}
	if resp.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	if err := b.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}); err != nil {
		slog.Error("error responding to interaction", "error", err)
	}
}

// Send posts n to one channel.
func (b *Bot) Send(ctx context.Context, channelID int64, n models.Notification) error {
	_, err := b.session.ChannelMessageSendComplex(formatSnowflake(channelID), toMessageSend(n), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error sending to channel %d: %w", channelID, err)
	}
	return nil
}

func (b *Bot) GuildCount() int {
	b.session.State.RLock()
	defer b.session.State.RUnlock()
	return len(b.session.State.Guilds)
}

func (b *Bot) Latency() time.Duration {
	return b.session.HeartbeatLatency()
}

// ChannelExists checks the state cache first and falls back to the API.
func (b *Bot) ChannelExists(ctx context.Context, guildID string, channelID int64) (bool, error) {
	id := formatSnowflake(channelID)
	if ch, err := b.session.State.Channel(id); err == nil {
		return ch.GuildID == guildID, nil
	}

	ch, err := b.session.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("error fetching channel %d: %w", channelID, err)
	}
	return ch.GuildID == guildID, nil
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response != nil && (restErr.Response.StatusCode == http.StatusNotFound || restErr.Response.StatusCode == http.StatusForbidden) {
		return true
	}
	return restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel
}
