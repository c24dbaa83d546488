package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/tickethub/panel/internal/models"
)

// DiscordGateway adapts a discordgo session to the Gateway interface.
type DiscordGateway struct {
	session *discordgo.Session
	logger  *slog.Logger
	handler func(inv Invocation)
}

// NewDiscordDialer returns a DialFunc producing Discord-backed gateways.
func NewDiscordDialer(logger *slog.Logger) DialFunc {
	return func(token string) (Gateway, error) {
		session, err := discordgo.New("Bot " + token)
		if err != nil {
			return nil, fmt.Errorf("failed to create discord session: %w", err)
		}
		session.Identify.Intents = discordgo.IntentsGuilds

		return &DiscordGateway{
			session: session,
			logger:  logger,
		}, nil
	}
}

func (g *DiscordGateway) OnCommand(handler func(inv Invocation)) {
	g.handler = handler
}

func (g *DiscordGateway) Open() error {
	g.session.AddHandler(g.onInteraction)

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("gateway handshake: %w", err)
	}
	return nil
}

func (g *DiscordGateway) Close() error {
	return g.session.Close()
}

func (g *DiscordGateway) OverwriteCommands(applicationID string, specs []CommandSpec) error {
	commands := make([]*discordgo.ApplicationCommand, 0, len(specs))
	for _, spec := range specs {
		options := make([]*discordgo.ApplicationCommandOption, 0, len(spec.Options))
		for _, opt := range spec.Options {
			options = append(options, &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        opt.Name,
				Description: opt.Description,
				Required:    opt.Required,
			})
		}
		commands = append(commands, &discordgo.ApplicationCommand{
			Name:        spec.Name,
			Description: spec.Description,
			Options:     options,
		})
	}

	// Global registration; empty guild ID replaces any prior set.
	if _, err := g.session.ApplicationCommandBulkOverwrite(applicationID, "", commands); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	return nil
}

func (g *DiscordGateway) onInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return
	}
	handler := g.handler
	if handler == nil {
		return
	}

	data := ic.ApplicationCommandData()

	args := make(map[string]string, len(data.Options))
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			args[opt.Name] = opt.StringValue()
		}
	}

	var invokerID string
	if ic.Member != nil && ic.Member.User != nil {
		invokerID = ic.Member.User.ID
	} else if ic.User != nil {
		invokerID = ic.User.ID
	}

	handler(Invocation{
		Command:   data.Name,
		InvokerID: invokerID,
		Args:      args,
		Respond: func(reply Reply) error {
			responseData := &discordgo.InteractionResponseData{
				Content: reply.Content,
			}
			if reply.Ephemeral {
				responseData.Flags = discordgo.MessageFlagsEphemeral
			}
			if reply.Embed != nil {
				responseData.Embeds = []*discordgo.MessageEmbed{embedToDiscord(reply.Embed)}
			}
			return s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: responseData,
			})
		},
	})
}

func (g *DiscordGateway) SendText(ctx context.Context, channelID, text string) error {
	channel, err := g.session.Channel(channelID)
	if err != nil {
		return fmt.Errorf("%w: %s", models.ErrInvalidDestination, channelID)
	}
	if !isTextChannel(channel.Type) {
		return fmt.Errorf("%w: %s", models.ErrInvalidDestination, channelID)
	}

	if _, err := g.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (g *DiscordGateway) SendEmbed(ctx context.Context, channelID string, embed Embed) error {
	channel, err := g.session.Channel(channelID)
	if err != nil {
		return fmt.Errorf("%w: %s", models.ErrInvalidDestination, channelID)
	}
	if !isTextChannel(channel.Type) {
		return fmt.Errorf("%w: %s", models.ErrInvalidDestination, channelID)
	}

	if _, err := g.session.ChannelMessageSendEmbed(channelID, embedToDiscord(&embed), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send embed: %w", err)
	}
	return nil
}

func (g *DiscordGateway) SendDM(ctx context.Context, accountID, text string) error {
	channel, err := g.session.UserChannelCreate(accountID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}
	if _, err := g.session.ChannelMessageSend(channel.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send DM: %w", err)
	}
	return nil
}

func (g *DiscordGateway) User(ctx context.Context, accountID string) (*RemoteUser, error) {
	user, err := g.session.User(accountID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &RemoteUser{
		ID:        user.ID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL("256"),
	}, nil
}

func isTextChannel(t discordgo.ChannelType) bool {
	switch t {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeDM,
		discordgo.ChannelTypeGroupDM, discordgo.ChannelTypeGuildNews:
		return true
	default:
		return false
	}
}

func embedToDiscord(embed *Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
	}
	if embed.ThumbnailURL != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: embed.ThumbnailURL}
	}
	if embed.FooterText != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: embed.FooterText}
	}
	return out
}
