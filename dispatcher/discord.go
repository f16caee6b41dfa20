package dispatcher

import (
	"github.com/bwmarrin/discordgo"
	"github.com/hibiki-discord/hibiki/cache"
)

const ticketChannelType = discordgo.ChannelTypeGuildText

const ticketChannelPermissions = discordgo.PermissionReadMessages |
	discordgo.PermissionSendMessages |
	discordgo.PermissionReadMessageHistory

// DiscordDispatcher performs side effects through the bot's discord
// session. All calls are bounded by the session's http client timeout.
type DiscordDispatcher struct{}

func NewDiscordDispatcher() *DiscordDispatcher {
	return &DiscordDispatcher{}
}

func (d *DiscordDispatcher) session() *discordgo.Session {
	return cache.GetSession()
}

func (d *DiscordDispatcher) CreateTicketChannel(guildID, ownerID, categoryID, name string) (string, error) {
	session := d.session()

	channel, err := session.GuildChannelCreate(guildID, name, ticketChannelType)
	if err != nil {
		return "", err
	}

	if categoryID != "" {
		// best effort, a missing category doesn't fail the ticket
		session.ChannelEditComplex(channel.ID, &discordgo.ChannelEdit{
			ParentID: categoryID,
		})
	}

	// hide the channel from the guild, allow the owner in
	err = session.ChannelPermissionSet(channel.ID, guildID, "role", 0, discordgo.PermissionReadMessages)
	if err != nil {
		return channel.ID, err
	}
	err = session.ChannelPermissionSet(channel.ID, ownerID, "member", ticketChannelPermissions, 0)
	if err != nil {
		return channel.ID, err
	}

	return channel.ID, nil
}

func (d *DiscordDispatcher) SendMessage(channelID, content string) (string, error) {
	message, err := d.session().ChannelMessageSend(channelID, content)
	if err != nil {
		return "", err
	}

	return message.ID, nil
}

func (d *DiscordDispatcher) SendEmbed(channelID string, embed *discordgo.MessageEmbed) (string, error) {
	message, err := d.session().ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		return "", err
	}

	return message.ID, nil
}

func (d *DiscordDispatcher) ArchiveChannel(channelID, ownerID string) error {
	// revoking the owner's overwrite leaves the channel visible to
	// staff only; repeating it on retry is harmless
	return d.session().ChannelPermissionDelete(channelID, ownerID)
}

func (d *DiscordDispatcher) DeleteChannel(channelID string) error {
	_, err := d.session().ChannelDelete(channelID)
	return err
}

func (d *DiscordDispatcher) DMUser(userID, content string) error {
	channel, err := d.session().UserChannelCreate(userID)
	if err != nil {
		return err
	}

	_, err = d.session().ChannelMessageSend(channel.ID, content)
	return err
}
