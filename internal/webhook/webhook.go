package webhook

import (
	"context"
	"time"
)

type StoryEntry struct {
	Author         string    `json:"author"`
	AuthorName     string    `json:"author_name"`
	Kind           string    `json:"kind"`
	SequenceNumber int       `json:"sequence_number"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
}

// StoryPayload is the JSON body posted when a story session ends.
type StoryPayload struct {
	SessionID    string       `json:"session_id"`
	GuildID      string       `json:"guild_id"`
	ChannelID    string       `json:"channel_id"`
	Title        string       `json:"title"`
	Genre        string       `json:"genre,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	EndedAt      time.Time    `json:"ended_at"`
	Participants []string     `json:"participants"`
	Entries      []StoryEntry `json:"entries"`
}

type Sender interface {
	SendStory(ctx context.Context, payload StoryPayload) error
}
