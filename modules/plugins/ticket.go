package plugins

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/hibiki-discord/hibiki/cache"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/metrics"
	"github.com/hibiki-discord/hibiki/models"
	"github.com/hibiki-discord/hibiki/tickets"
)

type ticketAction func(args []string, in *discordgo.Message, out **discordgo.MessageSend) (next ticketAction)

type Ticket struct {
	manager *tickets.Manager
	store   tickets.Store
}

func NewTicket(manager *tickets.Manager, store tickets.Store) *Ticket {
	return &Ticket{
		manager: manager,
		store:   store,
	}
}

func (t *Ticket) Commands() []string {
	return []string{
		"ticket",
		"tickets",
	}
}

func (t *Ticket) Init(session *discordgo.Session) {
}

func (t *Ticket) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	session.ChannelTyping(msg.ChannelID)

	var result *discordgo.MessageSend
	args := strings.Fields(content)

	action := t.actionStart
	for action != nil {
		action = action(args, msg, &result)
	}
}

func (t *Ticket) actionStart(args []string, in *discordgo.Message, out **discordgo.MessageSend) ticketAction {
	cache.GetSession().ChannelTyping(in.ChannelID)

	if len(args) < 1 {
		*out = t.newMsg("plugins.ticket.arguments-too-few")
		return t.actionFinish
	}

	switch args[0] {
	case "open", "new":
		return t.actionOpen
	case "claim":
		return t.actionClaim
	case "close":
		return t.actionClose
	case "history":
		return t.actionHistory
	case "category":
		return t.actionCategory
	case "rate":
		return t.actionRate
	case "resolution":
		return t.actionResolution
	case "config":
		return t.actionConfig
	case "panel":
		return t.actionPanel
	case "purge":
		return t.actionPurge
	}

	*out = t.newMsg("bot.arguments.invalid")
	return t.actionFinish
}

// [p]ticket open <description>
func (t *Ticket) actionOpen(args []string, in *discordgo.Message, out **discordgo.MessageSend) ticketAction {
	channel, err := helpers.GetChannel(in.ChannelID)
	helpers.Relax(err)

	reason := strings.TrimSpace(strings.Join(args[1:], " "))

	ticket, err := t.manager.Open(channel.GuildID, in.Author.ID, reason)
	if err != nil {
		*out = t.newMsgForError(err)
		return t.actionFinish
	}

	metrics.TicketsOpened.Add(1)

	*out = t.newMsg(helpers.GetTextF("plugins.ticket.open-success", ticket.TicketNumber, ticket.ChannelID))
	return t.actionFinish
}

// [p]ticket claim, inside a ticket channel
func (t *Ticket) actionClaim(args []string, in *discordgo.Message, out **discordgo.MessageSend) ticketAction {
	ticket, next := t.currentTicket(in, out)
	if next != nil {
		return next
	}

	_, err := t.manager.Claim(helpers.MdbIdToHuman(ticket.ID), in.Author.ID)
	if err != nil {
		*out = t.newMsgForError(err)
		return t.actionFinish
	}

	*out = t.newMsg(helpers.GetTextF("plugins.ticket.claim-success", ticket.TicketNumber))
	return t.actionFinish
}

// [p]ticket close [reason], inside a ticket channel
func (t *Ticket) actionClose(args []string, in *discordgo.Message, out **discordgo.MessageSend) ticketAction {
	ticket, next := t.currentTicket(in, out)
	if next != nil {
		return next
	}

	reason := strings.TrimSpace(strings.Join(args[1:], " "))
	if reason == "" {
		reason = helpers.GetText("plugins.ticket.close-no-reason")
	}

	_, err := t.manager.Close(helpers.MdbIdToHuman(ticket.ID), in.Author.ID, reason)
	if err != nil {
		*out = t.newMsgForError(err)
		return t.actionFinish
	}

	metrics.TicketsClosed.Add(1)

	*out = t.newMsg(helpers.GetTextF("plugins.ticket.close-success", ticket.TicketNumber))
	return t.actionFinish
}

// [p]ticket history [@user]
func (t *Ticket) actionHistory(args []string, in *discordgo.Message, out **discordgo.MessageSend) ticketAction {
	channel, err := helpers.GetChannel(in.ChannelID)
	helpers.Relax(err)

	targetUser := in.Author
	if len(args) >= 2 {
		// looking up someone else's history is staff only
		if !helpers.IsMod(in) {
			*out = t.newMsg("mod.no_permission")
			return t.actionFinish
		}

		targetUser, err = helpers.GetUserFromMention(args[1])
		if err != nil {
			*out = t.newMsg("bot.arguments.invalid")
			return t.actionFinish
		}
	}

	history, err := t.manager.History(channel.GuildID, targetUser.ID, 25)
	helpers.Relax(err)

	if len(history) <= 0 {
		*out = t.newMsg(helpers.GetTextF("plugins.ticket.history-empty", targetUser.Username))
		return t.actionFinish
	}

	historyText := ""
	for _, entry := range history {
		line := fmt.Sprintf("`#%04d` **%s** opened %s",
			entry.TicketNumber, entry.Status, entry.CreatedAt.Format("2006-01-02"))
		if entry.Category != "" {
			line += " `" + entry.Category + "`"
		}
		if entry.Rating > 0 {
			line += " " + strings.Repeat("⭐", entry.Rating)
		}
		historyText += line + "\n"
	}

	*out = &discordgo.MessageSend{
		Embed: &discordgo.MessageEmbed{
			Title:       helpers.GetTextF("plugins.ticket.history-title", targetUser.Username),
			Description: historyText,
			Color:       0x0FADED,
		},
	}
	return t.actionFinish
}

// [p]ticket category <name>, staff only, on a closed ticket's channel
func (t *Ticket) actionCategory(args []string, in *discordgo.Message, out **discordgo.MessageSend) ticketAction {
	ticket, next := t.currentTicket(in, out)
	if next != nil {
		return next
	}

	if len(args) < 2 {
		*out = t.newMsg("bot.arguments.too-few")
		return t.actionFinish
	}

	category := strings.TrimSpace(strings.Join(args[1:], " "))

	if err := t.manager.SetCategory(helpers.MdbIdToHuman(ticket.ID), in.Author.ID, category); err != nil {
		*out = t.newMsgForError(err)
		return t.actionFinish
	}

	*out = t.newMsg(helpers.GetTextF("plugins.ticket.category-success", category))
	return t.actionFinish
}

// [p]ticket rate <1-5>, ticket owner only, on a closed ticket's channel
func (t *Ticket) actionRate(args []string, in *discordgo.Message, out **discordgo.MessageSend) ticketAction {
	ticket, next := t.currentTicket(in, out)
	if next != nil {
		return next
	}

	if len(args) < 2 {
		*out = t.newMsg("bot.arguments.too-few")
		return t.actionFinish
	}

	rating, err := strconv.Atoi(args[1])
	if err != nil {
		*out = t.newMsg("bot.arguments.invalid")
		return t.actionFinish
	}

	if err := t.manager.SetRating(helpers.MdbIdToHuman(ticket.ID), in.Author.ID, rating); err != nil {
		*out = t.newMsgForError(err)
		return t.actionFinish
	}

	*out = t.newMsg("plugins.ticket.rate-success")
	return t.actionFinish
}

// [p]ticket resolution <text>, staff only, on a closed ticket's channel
func (t *Ticket) actionResolution(args []string, in *discordgo.Message, out **discordgo.MessageSend) ticketAction {
	ticket, next := t.currentTicket(in, out)
	if next != nil {
		return next
	}

	if len(args) < 2 {
		*out = t.newMsg("bot.arguments.too-few")
		return t.actionFinish
	}

	resolution := strings.TrimSpace(strings.Join(args[1:], " "))

	if err := t.manager.SetResolution(helpers.MdbIdToHuman(ticket.ID), in.Author.ID, resolution); err != nil {
		*out = t.newMsgForError(err)
		return t.actionFinish
	}

	*out = t.newMsg("plugins.ticket.resolution-success")
	return t.actionFinish
}

// [p]ticket config <enable|disable|staff-role|category|log-channel> …
func (t *Ticket) actionConfig(args []string, in *discordgo.Message, out **discordgo.MessageSend) ticketAction {
	if !helpers.IsAdmin(in) {
		*out = t.newMsg("admin.no_permission")
		return t.actionFinish
	}

	if len(args) < 2 {
		*out = t.newMsg("bot.arguments.too-few")
		return t.actionFinish
	}

	channel, err := helpers.GetChannel(in.ChannelID)
	helpers.Relax(err)

	settings := helpers.GuildSettingsGetCached(channel.GuildID)

	switch args[1] {
	case "enable":
		settings.TicketsEnabled = true
	case "disable":
		settings.TicketsEnabled = false
	case "staff-role":
		if len(args) < 3 {
			*out = t.newMsg("bot.arguments.too-few")
			return t.actionFinish
		}
		role, err := helpers.GetRoleFromMention(channel.GuildID, args[2])
		if err != nil {
			*out = t.newMsg("bot.arguments.invalid")
			return t.actionFinish
		}
		settings.StaffRoleID = role.ID
	case "category":
		if len(args) < 3 {
			*out = t.newMsg("bot.arguments.too-few")
			return t.actionFinish
		}
		settings.TicketCategoryID = args[2]
	case "log-channel":
		if len(args) < 3 {
			*out = t.newMsg("bot.arguments.too-few")
			return t.actionFinish
		}
		logChannel, err := helpers.GetChannelFromMention(in, args[2])
		if err != nil {
			*out = t.newMsg("bot.arguments.invalid")
			return t.actionFinish
		}
		settings.LogChannelID = logChannel.ID
	default:
		*out = t.newMsg("bot.arguments.invalid")
		return t.actionFinish
	}

	err = helpers.GuildSettingsSet(channel.GuildID, settings)
	helpers.Relax(err)

	*out = t.newMsg("plugins.ticket.config-success")
	return t.actionFinish
}

// [p]ticket panel, posts the support desk instructions, staff only
func (t *Ticket) actionPanel(args []string, in *discordgo.Message, out **discordgo.MessageSend) ticketAction {
	if !helpers.IsMod(in) {
		*out = t.newMsg("mod.no_permission")
		return t.actionFinish
	}

	channel, err := helpers.GetChannel(in.ChannelID)
	helpers.Relax(err)

	settings := helpers.GuildSettingsGetCached(channel.GuildID)

	panelMessages, err := helpers.SendEmbed(in.ChannelID, &discordgo.MessageEmbed{
		Title:       helpers.GetText("plugins.ticket.panel-title"),
		Description: helpers.GetTextF("plugins.ticket.panel-description", helpers.GetPrefixForServer(channel.GuildID)),
		Color:       0x0FADED,
	})
	helpers.RelaxMessage(err, in.ChannelID, in.ID)
	if len(panelMessages) <= 0 {
		return nil
	}

	settings.PanelChannelID = in.ChannelID
	settings.PanelMessageID = panelMessages[0].ID
	err = helpers.GuildSettingsSet(channel.GuildID, settings)
	helpers.Relax(err)

	return nil
}

// [p]ticket purge, wipes all guild tickets, admin only, asks first
func (t *Ticket) actionPurge(args []string, in *discordgo.Message, out **discordgo.MessageSend) ticketAction {
	if !helpers.IsAdmin(in) {
		*out = t.newMsg("admin.no_permission")
		return t.actionFinish
	}

	channel, err := helpers.GetChannel(in.ChannelID)
	helpers.Relax(err)

	if !helpers.ConfirmEmbed(in.ChannelID, in.Author, helpers.GetText("plugins.ticket.purge-confirm"), "✅", "🚫") {
		return nil
	}

	removed, err := t.manager.Purge(channel.GuildID)
	helpers.Relax(err)

	*out = t.newMsg(helpers.GetTextF("plugins.ticket.purge-success", removed))
	return t.actionFinish
}

// currentTicket resolves the ticket behind the channel the message was
// sent in. Returns a finisher action when the channel is not a ticket.
func (t *Ticket) currentTicket(in *discordgo.Message, out **discordgo.MessageSend) (models.TicketEntry, ticketAction) {
	channel, err := helpers.GetChannel(in.ChannelID)
	helpers.Relax(err)

	ticket, err := t.manager.ByChannel(channel.GuildID, in.ChannelID)
	if err != nil {
		*out = t.newMsg("plugins.ticket.not-a-ticket-channel")
		return ticket, t.actionFinish
	}

	return ticket, nil
}

func (t *Ticket) newMsgForError(err error) *discordgo.MessageSend {
	switch {
	case err == tickets.ErrNotConfigured:
		return t.newMsg("plugins.ticket.not-configured")
	case err == tickets.ErrDuplicateActiveTicket:
		return t.newMsg("plugins.ticket.duplicate-active")
	case err == tickets.ErrInvalidTransition:
		return t.newMsg("plugins.ticket.invalid-transition")
	case err == tickets.ErrUnauthorized:
		return t.newMsg("plugins.ticket.unauthorized")
	case err == tickets.ErrTicketNotFound:
		return t.newMsg("plugins.ticket.not-found")
	case tickets.IsValidationError(err):
		return t.newMsg(helpers.GetTextF("plugins.ticket.validation-failed", err.Error()))
	}

	helpers.Relax(err)
	return nil
}

func (t *Ticket) actionFinish(args []string, in *discordgo.Message, out **discordgo.MessageSend) ticketAction {
	_, err := helpers.SendComplex(in.ChannelID, *out)
	helpers.RelaxMessage(err, in.ChannelID, in.ID)

	return nil
}

func (t *Ticket) newMsg(content string) *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: helpers.GetText(content)}
}
