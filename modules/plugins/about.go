package plugins

import (
	"github.com/bwmarrin/discordgo"
	"github.com/hibiki-discord/hibiki/helpers"
)

type About struct{}

func (a *About) Commands() []string {
	return []string{
		"about",
		"info",
	}
}

func (a *About) Init(session *discordgo.Session) {
}

func (a *About) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	helpers.SendMessage(msg.ChannelID, helpers.GetTextF("plugins.about.text", helpers.GetPrefixForServer(guildIDForMessage(msg))))
}

func guildIDForMessage(msg *discordgo.Message) string {
	channel, err := helpers.GetChannel(msg.ChannelID)
	if err != nil {
		return ""
	}
	return channel.GuildID
}
