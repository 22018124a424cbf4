package discord

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mr1hm/go-weather-alerts/internal/commands"
	"github.com/mr1hm/go-weather-alerts/internal/models"
)

func toMessageEmbed(e models.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		Color:       e.Color,
	}
	if !e.Timestamp.IsZero() {
		out.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	if e.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return out
}

func toMessageEmbeds(embeds []models.Embed) []*discordgo.MessageEmbed {
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		out = append(out, toMessageEmbed(e))
	}
	return out
}

// allowedMentions only lets @everyone through for urgent alerts.
func allowedMentions(urgent bool) *discordgo.MessageAllowedMentions {
	if urgent {
		return &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeEveryone}}
	}
	return &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
}

func toMessageSend(n models.Notification) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:         n.Content,
		Embeds:          toMessageEmbeds(n.Embeds),
		AllowedMentions: allowedMentions(n.Urgent),
	}
}

func toApplicationCommand(def commands.Definition) *discordgo.ApplicationCommand {
	cmd := &discordgo.ApplicationCommand{
		Name:        def.Name,
		Description: def.Description,
	}
	if def.GuildOnly {
		dm := false
		cmd.DMPermission = &dm
	}
	if def.Admin {
		perm := int64(discordgo.PermissionManageServer)
		cmd.DefaultMemberPermissions = &perm
	}

	for _, o := range def.Options {
		opt := &discordgo.ApplicationCommandOption{
			Name:        o.Name,
			Description: o.Description,
			Required:    o.Required,
		}
		switch o.Type {
		case commands.OptionInteger:
			opt.Type = discordgo.ApplicationCommandOptionInteger
			if o.Min != 0 {
				lo := float64(o.Min)
				opt.MinValue = &lo
			}
			if o.Max != 0 {
				opt.MaxValue = float64(o.Max)
			}
		case commands.OptionChannel:
			opt.Type = discordgo.ApplicationCommandOptionChannel
			opt.ChannelTypes = []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews}
		}
		cmd.Options = append(cmd.Options, opt)
	}
	return cmd
}

// toRequest translates an application command interaction. GuildName is
// filled in by the caller from session state.
func toRequest(i *discordgo.Interaction) (commands.Request, error) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return commands.Request{}, fmt.Errorf("unsupported interaction type: %v", i.Type)
	}
	data := i.ApplicationCommandData()

	req := commands.Request{
		Name:    data.Name,
		GuildID: i.GuildID,
	}
	switch {
	case i.Member != nil:
		req.CanManage = i.Member.Permissions&discordgo.PermissionManageServer != 0
		if i.Member.User != nil {
			req.UserID = i.Member.User.ID
		}
	case i.User != nil:
		req.UserID = i.User.ID
	}

	for _, opt := range data.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionInteger:
			req.Count = int(opt.IntValue())
		case discordgo.ApplicationCommandOptionChannel:
			raw, ok := opt.Value.(string)
			if !ok {
				return req, fmt.Errorf("unexpected channel option value %T", opt.Value)
			}
			id, err := parseSnowflake(raw)
			if err != nil {
				return req, err
			}
			req.ChannelID = id
		}
	}
	return req, nil
}

func parseSnowflake(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing snowflake %q: %w", s, err)
	}
	return id, nil
}

func formatSnowflake(id int64) string {
	return strconv.FormatInt(id, 10)
}
