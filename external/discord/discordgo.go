package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/inkfable/storyweave/internal/discord"
)

type Client struct {
	session   *discordgo.Session
	token     string
	botUserID string
	done      chan struct{}
}

func NewClient(token string) discordpkg.Client {
	return &Client{
		token: token,
		done:  make(chan struct{}),
	}
}

func (c *Client) Connect(ctx context.Context) error {
	_ = ctx
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	c.session = s
	s.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsGuilds)
	if err := s.Open(); err != nil {
		return err
	}
	userID, err := c.GetBotUserID()
	if err != nil {
		return err
	}
	c.botUserID = userID
	return nil
}

func (c *Client) Close() error {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

func (c *Client) SendChannelMessage(channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, content)
	return err
}

func (c *Client) RegisterSlashCommandHandler(handler func(discordpkg.SlashCommandEvent)) {
	c.session.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic == nil || ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		data := ic.ApplicationCommandData()
		if data.Name == "" {
			return
		}
		userID, displayName := interactionUser(ic)
		if userID == "" {
			return
		}
		options := make(map[string]string, len(data.Options))
		for _, opt := range data.Options {
			if opt == nil {
				continue
			}
			options[opt.Name] = optionValue(opt)
		}
		slog.Info("slash command interaction received", "guild_id", ic.GuildID, "channel_id", ic.ChannelID, "command", data.Name, "user_id", userID)
		handler(discordpkg.SlashCommandEvent{
			GuildID:         ic.GuildID,
			ChannelID:       ic.ChannelID,
			CommandName:     data.Name,
			UserID:          userID,
			UserDisplayName: displayName,
			Options:         options,
			Respond: func(content string) error {
				return respond(s, ic, content, 0)
			},
			RespondEphemeral: func(content string) error {
				return respond(s, ic, content, discordgo.MessageFlagsEphemeral)
			},
		})
	})
}

func respond(s *discordgo.Session, ic *discordgo.InteractionCreate, content string, flags discordgo.MessageFlags) error {
	return s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func interactionUser(ic *discordgo.InteractionCreate) (userID, displayName string) {
	if ic.Member != nil && ic.Member.User != nil {
		userID = ic.Member.User.ID
		displayName = ic.Member.Nick
		if displayName == "" {
			displayName = ic.Member.User.Username
		}
		return userID, displayName
	}
	if ic.User != nil {
		return ic.User.ID, ic.User.Username
	}
	return "", ""
}

func optionValue(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	switch opt.Type {
	case discordgo.ApplicationCommandOptionString:
		return opt.StringValue()
	case discordgo.ApplicationCommandOptionBoolean:
		if opt.BoolValue() {
			return "true"
		}
		return "false"
	case discordgo.ApplicationCommandOptionInteger:
		return fmt.Sprintf("%d", opt.IntValue())
	default:
		return fmt.Sprintf("%v", opt.Value)
	}
}

func (c *Client) GetBotUserID() (string, error) {
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

// Run blocks until Close is called.
func (c *Client) Run() error {
	<-c.done
	return nil
}
