package plugins

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hibiki-discord/hibiki/antispam"
	"github.com/hibiki-discord/hibiki/cache"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/metrics"
	"github.com/hibiki-discord/hibiki/models"
	"github.com/hibiki-discord/hibiki/punishments"
	"github.com/hibiki-discord/hibiki/tasks"
	"github.com/sirupsen/logrus"
)

type antispamAction func(args []string, in *discordgo.Message, out **discordgo.MessageSend) (next antispamAction)

type Antispam struct {
	punishments *punishments.Store
	tracker     *antispam.Tracker
}

func NewAntispam(punishmentStore *punishments.Store, tracker *antispam.Tracker) *Antispam {
	return &Antispam{
		punishments: punishmentStore,
		tracker:     tracker,
	}
}

func (a *Antispam) Commands() []string {
	return []string{
		"antispam",
	}
}

func (a *Antispam) Init(session *discordgo.Session) {
}

func (a *Antispam) Uninit(session *discordgo.Session) {
}

func (a *Antispam) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	if !helpers.IsAdmin(msg) {
		helpers.SendMessage(msg.ChannelID, helpers.GetText("admin.no_permission"))
		return
	}

	session.ChannelTyping(msg.ChannelID)

	var result *discordgo.MessageSend
	args := strings.Fields(content)

	action := a.actionStart
	for action != nil {
		action = action(args, msg, &result)
	}
}

func (a *Antispam) actionStart(args []string, in *discordgo.Message, out **discordgo.MessageSend) antispamAction {
	if len(args) < 1 {
		return a.actionStatus
	}

	switch args[0] {
	case "enable":
		return a.actionEnable
	case "disable":
		return a.actionDisable
	case "status":
		return a.actionStatus
	case "muted-role":
		return a.actionMutedRole
	case "ignore-channel":
		return a.actionIgnoreChannel
	case "set":
		return a.actionSet
	}

	*out = a.newMsg("bot.arguments.invalid")
	return a.actionFinish
}

func (a *Antispam) actionEnable(args []string, in *discordgo.Message, out **discordgo.MessageSend) antispamAction {
	channel, err := helpers.GetChannel(in.ChannelID)
	helpers.Relax(err)

	settings := helpers.GuildSettingsGetCached(channel.GuildID)
	settings.AntispamEnabled = true
	helpers.Relax(helpers.GuildSettingsSet(channel.GuildID, settings))

	*out = a.newMsg("plugins.antispam.enabled")
	return a.actionFinish
}

func (a *Antispam) actionDisable(args []string, in *discordgo.Message, out **discordgo.MessageSend) antispamAction {
	channel, err := helpers.GetChannel(in.ChannelID)
	helpers.Relax(err)

	settings := helpers.GuildSettingsGetCached(channel.GuildID)
	settings.AntispamEnabled = false
	helpers.Relax(helpers.GuildSettingsSet(channel.GuildID, settings))

	*out = a.newMsg("plugins.antispam.disabled")
	return a.actionFinish
}

func (a *Antispam) actionStatus(args []string, in *discordgo.Message, out **discordgo.MessageSend) antispamAction {
	channel, err := helpers.GetChannel(in.ChannelID)
	helpers.Relax(err)

	settings := helpers.GuildSettingsGetCached(channel.GuildID)

	statusText := helpers.GetText("plugins.antispam.status-disabled")
	if settings.AntispamEnabled {
		statusText = helpers.GetText("plugins.antispam.status-enabled")
	}

	*out = &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title: helpers.GetText("plugins.antispam.status-title"),
			Description: fmt.Sprintf(
				"%s\nburst: %d messages / %s in one channel\nspread: %d channels / %s\npunishment: %s (escalation ×%.1f, repeat window %s)",
				statusText,
				settings.SingleChannelThreshold, time.Duration(settings.SingleChannelTimeWindow)*time.Millisecond,
				settings.MultiChannelThreshold, time.Duration(settings.MultiChannelTimeWindow)*time.Millisecond,
				settings.SpamPunishmentDuration, settings.SpamPunishmentEscalation, settings.SpamRepeatWindow,
			),
			Color: 0x0FADED,
		},
	}
	return a.actionFinish
}

// [p]antispam muted-role @role
func (a *Antispam) actionMutedRole(args []string, in *discordgo.Message, out **discordgo.MessageSend) antispamAction {
	if len(args) < 2 {
		*out = a.newMsg("bot.arguments.too-few")
		return a.actionFinish
	}

	channel, err := helpers.GetChannel(in.ChannelID)
	helpers.Relax(err)

	role, err := helpers.GetRoleFromMention(channel.GuildID, args[1])
	if err != nil {
		*out = a.newMsg("bot.arguments.invalid")
		return a.actionFinish
	}

	settings := helpers.GuildSettingsGetCached(channel.GuildID)
	settings.MutedRoleID = role.ID
	helpers.Relax(helpers.GuildSettingsSet(channel.GuildID, settings))

	*out = a.newMsg("plugins.antispam.muted-role-set")
	return a.actionFinish
}

// [p]antispam ignore-channel #channel, toggles
func (a *Antispam) actionIgnoreChannel(args []string, in *discordgo.Message, out **discordgo.MessageSend) antispamAction {
	if len(args) < 2 {
		*out = a.newMsg("bot.arguments.too-few")
		return a.actionFinish
	}

	targetChannel, err := helpers.GetChannelFromMention(in, args[1])
	if err != nil {
		*out = a.newMsg("bot.arguments.invalid")
		return a.actionFinish
	}

	settings := helpers.GuildSettingsGetCached(targetChannel.GuildID)

	removed := false
	ignored := make([]string, 0, len(settings.AntispamIgnoredChannelIDs))
	for _, channelID := range settings.AntispamIgnoredChannelIDs {
		if channelID == targetChannel.ID {
			removed = true
			continue
		}
		ignored = append(ignored, channelID)
	}
	if !removed {
		ignored = append(ignored, targetChannel.ID)
	}
	settings.AntispamIgnoredChannelIDs = ignored
	helpers.Relax(helpers.GuildSettingsSet(targetChannel.GuildID, settings))

	if removed {
		*out = a.newMsg("plugins.antispam.channel-unignored")
	} else {
		*out = a.newMsg("plugins.antispam.channel-ignored")
	}
	return a.actionFinish
}

// [p]antispam set <burst|burst-window|spread|spread-window|duration|escalation|repeat-window> <value>
func (a *Antispam) actionSet(args []string, in *discordgo.Message, out **discordgo.MessageSend) antispamAction {
	if len(args) < 3 {
		*out = a.newMsg("bot.arguments.too-few")
		return a.actionFinish
	}

	channel, err := helpers.GetChannel(in.ChannelID)
	helpers.Relax(err)

	settings := helpers.GuildSettingsGetCached(channel.GuildID)

	switch args[1] {
	case "burst":
		value, err := strconv.Atoi(args[2])
		if err != nil || value < 0 {
			*out = a.newMsg("bot.arguments.invalid")
			return a.actionFinish
		}
		settings.SingleChannelThreshold = value
	case "burst-window":
		value, err := time.ParseDuration(args[2])
		if err != nil || value <= 0 {
			*out = a.newMsg("bot.arguments.invalid")
			return a.actionFinish
		}
		settings.SingleChannelTimeWindow = value.Nanoseconds() / int64(time.Millisecond)
	case "spread":
		value, err := strconv.Atoi(args[2])
		if err != nil || value < 0 {
			*out = a.newMsg("bot.arguments.invalid")
			return a.actionFinish
		}
		settings.MultiChannelThreshold = value
	case "spread-window":
		value, err := time.ParseDuration(args[2])
		if err != nil || value <= 0 {
			*out = a.newMsg("bot.arguments.invalid")
			return a.actionFinish
		}
		settings.MultiChannelTimeWindow = value.Nanoseconds() / int64(time.Millisecond)
	case "duration":
		value, err := time.ParseDuration(args[2])
		if err != nil || value <= 0 {
			*out = a.newMsg("bot.arguments.invalid")
			return a.actionFinish
		}
		settings.SpamPunishmentDuration = value
	case "escalation":
		value, err := strconv.ParseFloat(args[2], 64)
		if err != nil || value < 0 {
			*out = a.newMsg("bot.arguments.invalid")
			return a.actionFinish
		}
		settings.SpamPunishmentEscalation = value
	case "repeat-window":
		value, err := time.ParseDuration(args[2])
		if err != nil || value <= 0 {
			*out = a.newMsg("bot.arguments.invalid")
			return a.actionFinish
		}
		settings.SpamRepeatWindow = value
	default:
		*out = a.newMsg("bot.arguments.invalid")
		return a.actionFinish
	}

	helpers.Relax(helpers.GuildSettingsSet(channel.GuildID, settings))

	*out = a.newMsg("plugins.antispam.setting-saved")
	return a.actionFinish
}

// OnMessage feeds every message through the spam evaluator and applies
// punishments on a verdict. Runs on the gateway handler path, keep it
// cheap for the clean case.
func (a *Antispam) OnMessage(content string, msg *discordgo.Message, session *discordgo.Session) {
	defer helpers.Recover()

	if msg.Author == nil || msg.Author.Bot {
		return
	}

	channel, err := helpers.GetChannel(msg.ChannelID)
	if err != nil || channel.GuildID == "" {
		return
	}

	settings := helpers.GuildSettingsGetCached(channel.GuildID)
	if !settings.AntispamEnabled {
		return
	}

	for _, ignoredChannelID := range settings.AntispamIgnoredChannelIDs {
		if ignoredChannelID == msg.ChannelID {
			return
		}
	}

	// staff is exempt
	if helpers.IsAdmin(msg) || helpers.HasStaffRole(channel.GuildID, msg.Author.ID) {
		return
	}

	now := time.Now()

	// suppress messages of already punished subjects
	if state := a.punishments.Get(channel.GuildID, msg.Author.ID, now); state != nil {
		session.ChannelMessageDelete(msg.ChannelID, msg.ID)
		return
	}

	limits := limitsFromSettings(settings)
	window := a.tracker.Observe(channel.GuildID, antispam.Event{
		SubjectID: msg.Author.ID,
		ChannelID: msg.ChannelID,
		Timestamp: now,
	}, limits.MaxWindow())

	verdict := antispam.Evaluate(msg.ChannelID, now, window, limits)
	if verdict == antispam.VerdictClean {
		return
	}

	metrics.SpamVerdicts.Add(1)

	a.punish(channel.GuildID, msg, settings, verdict, now)
}

func (a *Antispam) punish(guildID string, msg *discordgo.Message, settings models.Config, verdict antispam.Verdict, now time.Time) {
	priorOffenses := a.punishments.OffenseCount(guildID, msg.Author.ID, now.Add(-settings.SpamRepeatWindow))
	duration := punishments.Duration(settings, priorOffenses)
	until := now.Add(duration)

	if err := a.punishments.Punish(guildID, msg.Author.ID, verdict.String(), now, until); err != nil {
		a.logger().WithField("guildID", guildID).Error("failed to store punishment: ", err.Error())
		return
	}

	metrics.PunishmentsApplied.Add(1)
	a.tracker.Forget(guildID, msg.Author.ID)

	session := cache.GetSession()
	session.ChannelMessageDelete(msg.ChannelID, msg.ID)

	if settings.MutedRoleID != "" {
		err := session.GuildMemberRoleAdd(guildID, msg.Author.ID, settings.MutedRoleID)
		helpers.RelaxLog(err)
	}

	if cache.HasMachineryServer() {
		_, err := cache.GetMachineryServer().SendTask(tasks.UnpunishSignature(guildID, msg.Author.ID, until))
		helpers.RelaxLog(err)
	}

	a.logger().WithField("guildID", guildID).Infof(
		"punished user #%s for %s until %s (%d prior offenses)",
		msg.Author.ID, verdict, until.Format(time.RFC3339), priorOffenses)

	if settings.LogChannelID != "" {
		helpers.SendEmbed(settings.LogChannelID, &discordgo.MessageEmbed{
			Title: helpers.GetText("plugins.antispam.log-title"),
			Description: helpers.GetTextF("plugins.antispam.log-description",
				msg.Author.ID, verdict.String(), duration.String()),
			Fields: []*discordgo.MessageEmbedField{
				{
					Name:   "Account created",
					Value:  helpers.GetTimeFromSnowflake(msg.Author.ID).Format(time.ANSIC),
					Inline: true,
				},
				{
					Name:   "Prior offenses",
					Value:  strconv.Itoa(priorOffenses),
					Inline: true,
				},
			},
			Color: 0xFF0000,
		})
	}
}

// OnGuildMemberAdd reapplies the muted role when a punished subject
// rejoins before the punishment expired
func (a *Antispam) OnGuildMemberAdd(member *discordgo.Member, session *discordgo.Session) {
	go func() {
		defer helpers.Recover()

		state := a.punishments.Get(member.GuildID, member.User.ID, time.Now())
		if state == nil {
			return
		}

		settings := helpers.GuildSettingsGetCached(member.GuildID)
		if settings.MutedRoleID == "" {
			return
		}

		err := session.GuildMemberRoleAdd(member.GuildID, member.User.ID, settings.MutedRoleID)
		helpers.RelaxLog(err)
	}()
}

func (a *Antispam) OnGuildMemberRemove(member *discordgo.Member, session *discordgo.Session) {
}

func limitsFromSettings(settings models.Config) antispam.Limits {
	return antispam.Limits{
		SingleChannelThreshold:  settings.SingleChannelThreshold,
		SingleChannelTimeWindow: time.Duration(settings.SingleChannelTimeWindow) * time.Millisecond,
		MultiChannelThreshold:   settings.MultiChannelThreshold,
		MultiChannelTimeWindow:  time.Duration(settings.MultiChannelTimeWindow) * time.Millisecond,
	}
}

func (a *Antispam) actionFinish(args []string, in *discordgo.Message, out **discordgo.MessageSend) antispamAction {
	_, err := helpers.SendComplex(in.ChannelID, *out)
	helpers.RelaxMessage(err, in.ChannelID, in.ID)

	return nil
}

func (a *Antispam) newMsg(content string) *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: helpers.GetText(content)}
}

func (a *Antispam) logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "antispam")
}
