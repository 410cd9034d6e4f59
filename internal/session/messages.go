package session

import "fmt"

const (
	messageWrongGuild        = "This bot is not enabled for this server."
	messageUnknownCommand    = "Unknown command."
	messageWrongChannelFmt   = "Story commands can only be used in <#%s>."
	messageAlreadyActive     = "A story is already active in this channel! End it with /endstory first."
	messageNoActiveStory     = "No active story in this channel! Start one with /startstory."
	messageBusyChannel       = "The story is moving fast right now. Please try again."
	messageGenerationDown    = "The narrator is unavailable right now. Please try again in a moment."
	messageContentRejected   = "The narrator refused that request. Try rephrasing it."
	messageStoryStarted      = "New story started! Use /add to contribute."
	messageStoryEnded        = "The story has ended. Thanks for participating!"
	messageEpilogueSkipped   = "(The narrator could not write an epilogue, so the story ends as it stands.)"
	messageExportNotReady    = "No finished story to export here. End a story with /endstory first."
	messageExportUnavailable = "Story export is not set up on this bot."
	messageArchived          = "The story has been archived."
	messageChannelSetFmt     = "Set <#%s> as the designated story channel."
	messageChannelRemoved    = "Removed the designated story channel."
	messageNoChannelSet      = "No designated story channel set for this server."
	messageChannelIsFmt      = "Designated story channel: <#%s>."
	messageCommandFailed     = "Something went wrong running that command."
)

func wrongChannelMessage(channelID string) string {
	return fmt.Sprintf(messageWrongChannelFmt, channelID)
}

func channelSetMessage(channelID string) string {
	return fmt.Sprintf(messageChannelSetFmt, channelID)
}

func channelIsMessage(channelID string) string {
	return fmt.Sprintf(messageChannelIsFmt, channelID)
}

func contributionLine(authorName, text string) string {
	return fmt.Sprintf("%s: %s", authorName, text)
}
