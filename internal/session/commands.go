package session

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/inkfable/storyweave/internal/discord"
	"github.com/inkfable/storyweave/internal/export"
	"github.com/inkfable/storyweave/internal/generator"
	"github.com/inkfable/storyweave/internal/repository"
)

// Slash command names. Registration with the platform is handled out of
// band; the engine only dispatches on incoming interactions.
const (
	commandStartStory    = "startstory"
	commandAdd           = "add"
	commandPlotTwist     = "plottwist"
	commandCharacter     = "character"
	commandSetting       = "setting"
	commandRecap         = "recap"
	commandEndStory      = "endstory"
	commandExportStory   = "exportstory"
	commandArchiveStory  = "archivestory"
	commandSetChannel    = "setchannel"
	commandRemoveChannel = "removechannel"
	commandGetChannel    = "getchannel"
)

// HandleSlashCommand translates one slash-command interaction into a session
// engine operation and answers with a plain-text reply.
func (m *Manager) HandleSlashCommand(ev discord.SlashCommandEvent) {
	ctx := context.Background()
	slog.Info("slash command received", "command", ev.CommandName, "guild_id", ev.GuildID, "channel_id", ev.ChannelID, "user_id", ev.UserID)

	if m.cfg.DiscordGuildID != "" && ev.GuildID != m.cfg.DiscordGuildID {
		_ = ev.RespondEphemeral(messageWrongGuild)
		return
	}

	switch ev.CommandName {
	case commandSetChannel:
		m.handleSetChannel(ctx, ev)
	case commandRemoveChannel:
		m.handleRemoveChannel(ctx, ev)
	case commandGetChannel:
		m.handleGetChannel(ctx, ev)
	case commandStartStory:
		if m.inDesignatedChannel(ctx, ev) {
			m.handleStartStory(ctx, ev)
		}
	case commandAdd:
		if m.inDesignatedChannel(ctx, ev) {
			m.handleAdd(ctx, ev)
		}
	case commandPlotTwist:
		m.handleAIInsertion(ctx, ev, repository.KindAITwist)
	case commandCharacter:
		m.handleAIInsertion(ctx, ev, repository.KindAICharacter)
	case commandSetting:
		m.handleAIInsertion(ctx, ev, repository.KindAISetting)
	case commandRecap:
		m.handleRecap(ctx, ev)
	case commandEndStory:
		if m.inDesignatedChannel(ctx, ev) {
			m.handleEndStory(ctx, ev)
		}
	case commandExportStory:
		m.handleExportStory(ctx, ev)
	case commandArchiveStory:
		m.handleArchiveStory(ctx, ev)
	default:
		_ = ev.RespondEphemeral(messageUnknownCommand)
	}
}

// inDesignatedChannel refuses story commands outside the guild's designated
// channel when one is set. Registry errors fail open so a registry outage
// does not freeze storytelling.
func (m *Manager) inDesignatedChannel(ctx context.Context, ev discord.SlashCommandEvent) bool {
	designated, err := m.repo.DesignatedChannel(ctx, ev.GuildID)
	if err != nil {
		slog.Error("failed to look up designated channel", "guild_id", ev.GuildID, "error", err)
		return true
	}
	if designated == "" || designated == ev.ChannelID {
		return true
	}
	_ = ev.RespondEphemeral(wrongChannelMessage(designated))
	return false
}

func (m *Manager) handleSetChannel(ctx context.Context, ev discord.SlashCommandEvent) {
	if err := m.repo.SetDesignatedChannel(ctx, ev.GuildID, ev.ChannelID); err != nil {
		slog.Error("failed to set designated channel", "guild_id", ev.GuildID, "error", err)
		_ = ev.RespondEphemeral(messageCommandFailed)
		return
	}
	_ = ev.Respond(channelSetMessage(ev.ChannelID))
}

func (m *Manager) handleRemoveChannel(ctx context.Context, ev discord.SlashCommandEvent) {
	if err := m.repo.RemoveDesignatedChannel(ctx, ev.GuildID); err != nil {
		slog.Error("failed to remove designated channel", "guild_id", ev.GuildID, "error", err)
		_ = ev.RespondEphemeral(messageCommandFailed)
		return
	}
	_ = ev.Respond(messageChannelRemoved)
}

func (m *Manager) handleGetChannel(ctx context.Context, ev discord.SlashCommandEvent) {
	designated, err := m.repo.DesignatedChannel(ctx, ev.GuildID)
	if err != nil {
		slog.Error("failed to look up designated channel", "guild_id", ev.GuildID, "error", err)
		_ = ev.RespondEphemeral(messageCommandFailed)
		return
	}
	if designated == "" {
		_ = ev.Respond(messageNoChannelSet)
		return
	}
	_ = ev.Respond(channelIsMessage(designated))
}

func (m *Manager) handleStartStory(ctx context.Context, ev discord.SlashCommandEvent) {
	s, err := m.Start(ctx, StartInput{
		GuildID:     ev.GuildID,
		ChannelID:   ev.ChannelID,
		Author:      ev.UserID,
		AuthorName:  ev.UserDisplayName,
		OpeningText: ev.Options["opening"],
		Genre:       ev.Options["genre"],
		Prompt:      ev.Options["prompt"],
	})
	if err != nil {
		m.respondError(ev, err)
		return
	}
	_ = ev.Respond(messageStoryStarted)
	opener := s.Entries[0]
	if err := m.discord.SendChannelMessage(ev.ChannelID, contributionLine(opener.AuthorName, opener.Text)); err != nil {
		slog.Error("failed to post opening", "session_id", s.ID, "error", err)
	}
}

func (m *Manager) handleAdd(ctx context.Context, ev discord.SlashCommandEvent) {
	c, err := m.AddContribution(ctx, ev.GuildID, ev.ChannelID, ev.UserID, ev.UserDisplayName, ev.Options["content"])
	if err != nil {
		m.respondError(ev, err)
		return
	}
	_ = ev.Respond(contributionLine(c.AuthorName, c.Text))
}

func (m *Manager) handleAIInsertion(ctx context.Context, ev discord.SlashCommandEvent, kind repository.ContributionKind) {
	c, err := m.RequestAIInsertion(ctx, ev.GuildID, ev.ChannelID, kind)
	if err != nil {
		m.respondError(ev, err)
		return
	}
	_ = ev.Respond(contributionLine(c.AuthorName, c.Text))
}

func (m *Manager) handleRecap(ctx context.Context, ev discord.SlashCommandEvent) {
	mode := SummaryRecap
	if full, _ := strconv.ParseBool(ev.Options["full"]); full {
		mode = SummaryFull
	}
	summary, err := m.Summarize(ctx, ev.GuildID, ev.ChannelID, mode)
	if err != nil {
		m.respondError(ev, err)
		return
	}
	_ = ev.Respond(summary)
}

func (m *Manager) handleEndStory(ctx context.Context, ev discord.SlashCommandEvent) {
	requestEpilogue := true
	if v, ok := ev.Options["epilogue"]; ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			requestEpilogue = parsed
		}
	}
	res, err := m.End(ctx, ev.GuildID, ev.ChannelID, requestEpilogue)
	if err != nil {
		m.respondError(ev, err)
		return
	}
	_ = ev.Respond(messageStoryEnded)
	if res.Epilogue != nil {
		if err := m.discord.SendChannelMessage(ev.ChannelID, contributionLine(res.Epilogue.AuthorName, res.Epilogue.Text)); err != nil {
			slog.Error("failed to post epilogue", "session_id", res.Session.ID, "error", err)
		}
	} else if res.EpilogueErr != nil {
		_ = m.discord.SendChannelMessage(ev.ChannelID, messageEpilogueSkipped)
	}
}

func (m *Manager) handleExportStory(ctx context.Context, ev discord.SlashCommandEvent) {
	url, err := m.Export(ctx, ev.GuildID, ev.ChannelID)
	if err != nil {
		m.respondError(ev, err)
		return
	}
	_ = ev.Respond("Story exported: " + url)
}

func (m *Manager) handleArchiveStory(ctx context.Context, ev discord.SlashCommandEvent) {
	if err := m.Archive(ctx, ev.GuildID, ev.ChannelID); err != nil {
		m.respondError(ev, err)
		return
	}
	_ = ev.Respond(messageArchived)
}

func (m *Manager) respondError(ev discord.SlashCommandEvent, err error) {
	switch {
	case errors.Is(err, ErrAlreadyActive):
		_ = ev.RespondEphemeral(messageAlreadyActive)
	case errors.Is(err, ErrNoActiveSession):
		_ = ev.RespondEphemeral(messageNoActiveStory)
	case errors.Is(err, ErrInvalidInput):
		_ = ev.RespondEphemeral(err.Error())
	case errors.Is(err, ErrConcurrentModification):
		_ = ev.RespondEphemeral(messageBusyChannel)
	case errors.Is(err, ErrNothingToExport):
		_ = ev.RespondEphemeral(messageExportNotReady)
	case errors.Is(err, export.ErrUnavailable):
		_ = ev.RespondEphemeral(messageExportUnavailable)
	case errors.Is(err, generator.ErrContentRejected):
		_ = ev.RespondEphemeral(messageContentRejected)
	case errors.Is(err, generator.ErrUnavailable):
		_ = ev.RespondEphemeral(messageGenerationDown)
	default:
		slog.Error("command failed", "command", ev.CommandName, "error", err)
		_ = ev.RespondEphemeral(messageCommandFailed)
	}
}
