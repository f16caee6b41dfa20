// Package dispatcher isolates every chat-service side effect the core
// triggers. The ticket manager and the antispam plugin only ever talk
// to the Dispatcher interface; discord payload construction lives in
// the discordgo implementation and nowhere else.
package dispatcher

import "github.com/bwmarrin/discordgo"

type Dispatcher interface {
	// CreateTicketChannel creates a private channel for the owner under
	// the guild's ticket category and returns its ID
	CreateTicketChannel(guildID, ownerID, categoryID, name string) (channelID string, err error)

	SendMessage(channelID, content string) (messageID string, err error)
	SendEmbed(channelID string, embed *discordgo.MessageEmbed) (messageID string, err error)

	// ArchiveChannel hides a ticket channel from its owner while
	// keeping it readable for staff
	ArchiveChannel(channelID, ownerID string) error

	DeleteChannel(channelID string) error

	DMUser(userID, content string) error
}
