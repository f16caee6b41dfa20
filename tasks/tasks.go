// Package tasks holds the machinery task functions and their signature
// builders. The launcher registers the functions on the machinery
// server; plugins and the ticket manager only build signatures and send
// them, so a restart in between still runs the task.
package tasks

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/RichardKnop/machinery/v1/tasks"
	"github.com/bwmarrin/discordgo"
	"github.com/hibiki-discord/hibiki/cache"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/punishments"
	"github.com/hibiki-discord/hibiki/tickets"
)

var (
	ticketStore     tickets.Store
	punishmentStore *punishments.Store
)

// Init wires the stores the task functions operate on. Must run before
// the machinery worker starts.
func Init(ticketStoreIn tickets.Store, punishmentStoreIn *punishments.Store) {
	ticketStore = ticketStoreIn
	punishmentStore = punishmentStoreIn
}

// TranscriptQueue sends transcript generation through machinery. It
// satisfies tickets.TranscriptQueue.
type TranscriptQueue struct{}

func (TranscriptQueue) Enqueue(ticketID string) error {
	if !cache.HasMachineryServer() {
		return errors.New("machinery server is not available")
	}

	_, err := cache.GetMachineryServer().SendTask(TranscriptSignature(ticketID))
	return err
}

func TranscriptSignature(ticketID string) *tasks.Signature {
	return &tasks.Signature{
		Name: "generate_ticket_transcript",
		Args: []tasks.Arg{
			{
				Type:  "string",
				Value: ticketID,
			},
		},
	}
}

func UnpunishSignature(guildID string, userID string, at time.Time) *tasks.Signature {
	signature := &tasks.Signature{
		Name: "unpunish_user",
		Args: []tasks.Arg{
			{
				Type:  "string",
				Value: guildID,
			},
			{
				Type:  "string",
				Value: userID,
			},
		},
	}
	signature.ETA = &at
	return signature
}

// GenerateTicketTranscript reads the full ticket channel history,
// renders it as a text file and attaches it to the guild's log channel.
// The attachment URL is written back to the ticket row.
func GenerateTicketTranscript(ticketID string) (err error) {
	if ticketStore == nil {
		return errors.New("ticket store is not initialized")
	}

	ticket, err := ticketStore.ByID(ticketID)
	if err != nil {
		return err
	}

	settings := helpers.GuildSettingsGetCached(ticket.GuildID)
	if settings.LogChannelID == "" {
		return nil
	}

	session := cache.GetSession()

	var transcript bytes.Buffer
	transcript.WriteString(fmt.Sprintf("Transcript of ticket #%d (owner #%s)\n\n", ticket.TicketNumber, ticket.OwnerID))

	// walk backwards through the history, then render oldest first
	var history []string
	beforeID := ""
	for {
		messages, err := session.ChannelMessages(ticket.ChannelID, 100, beforeID, "", "")
		if err != nil {
			return err
		}
		if len(messages) <= 0 {
			break
		}

		for _, message := range messages {
			line := fmt.Sprintf("%s: %s", message.Author.Username, message.ContentWithMentionsReplaced())
			if timestamp, err := message.Timestamp.Parse(); err == nil {
				line = timestamp.UTC().Format("2006-01-02 15:04:05") + " " + line
			}
			history = append(history, line)
		}
		beforeID = messages[len(messages)-1].ID
	}
	for i := len(history) - 1; i >= 0; i-- {
		transcript.WriteString(history[i])
		transcript.WriteString("\n")
	}

	logMessage, err := session.ChannelFileSendWithMessage(
		settings.LogChannelID,
		helpers.GetTextF("plugins.ticket.transcript-ready", ticket.TicketNumber),
		fmt.Sprintf("ticket-%04d.txt", ticket.TicketNumber),
		&transcript,
	)
	if err != nil {
		return err
	}

	if len(logMessage.Attachments) > 0 {
		if err := ticketStore.SetTranscriptURL(ticketID, logMessage.Attachments[0].URL); err != nil {
			return err
		}
	}

	cache.GetLogger().WithField("module", "tasks").Infof(
		"generated transcript for ticket #%d on guild #%s", ticket.TicketNumber, ticket.GuildID)
	return nil
}

// UnpunishUser lifts an expired spam punishment: removes the muted role
// and clears the cached state. Scheduled with an ETA when the
// punishment is applied.
func UnpunishUser(guildID string, userID string) (err error) {
	if punishmentStore == nil {
		return errors.New("punishment store is not initialized")
	}

	punishmentStore.ClearExpired(guildID, userID, time.Now())

	settings := helpers.GuildSettingsGetCached(guildID)
	if settings.MutedRoleID == "" {
		return nil
	}

	err = cache.GetSession().GuildMemberRoleRemove(guildID, userID, settings.MutedRoleID)
	if err != nil {
		// the member leaving or the role being deleted drops the mute anyway
		if errD, ok := err.(*discordgo.RESTError); ok && errD.Message != nil {
			switch errD.Message.Code {
			case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess, discordgo.ErrCodeUnknownRole, discordgo.ErrCodeUnknownMember:
				err = nil
			}
		}
	}
	if err == nil {
		cache.GetLogger().WithField("module", "tasks").Infof(
			"lifted punishment for user #%s on guild #%s", userID, guildID)
	}
	return err
}

// LogWorkerError is registered as the machinery error handler task
func LogWorkerError(errorMessage string) error {
	cache.GetLogger().WithField("module", "tasks").Error("machinery task failed: " + errorMessage)
	return nil
}
