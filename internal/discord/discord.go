package discord

import "context"

// SlashCommandEvent is one slash-command interaction, flattened to the fields
// the story engine needs. Respond answers the interaction in-channel;
// RespondEphemeral answers only to the invoking user.
type SlashCommandEvent struct {
	GuildID          string
	ChannelID        string
	CommandName      string
	UserID           string
	UserDisplayName  string
	Options          map[string]string
	Respond          func(content string) error
	RespondEphemeral func(content string) error
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	SendChannelMessage(channelID, content string) error
	RegisterSlashCommandHandler(handler func(SlashCommandEvent))
	GetBotUserID() (string, error)
	// Run blocks until the client is closed.
	Run() error
}
