package plugins

import (
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/metrics"
)

type Uptime struct{}

func (u *Uptime) Commands() []string {
	return []string{
		"uptime",
	}
}

func (u *Uptime) Init(session *discordgo.Session) {

}

func (u *Uptime) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	// Get uptime
	bootTime, err := strconv.ParseInt(metrics.Uptime.String(), 10, 64)
	if err != nil {
		bootTime = 0
	}

	uptime := helpers.HumanizeDuration(time.Now().Sub(time.Unix(bootTime, 0)))

	helpers.SendMessage(msg.ChannelID, ":hourglass_flowing_sand: "+uptime)
}
