// Package tickets implements the support desk lifecycle:
// OPEN → CLAIMED → CLOSED, with CLOSED terminal. Transitions commit to
// the store first; chat side effects run best effort afterwards and are
// never rolled back.
package tickets

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hibiki-discord/hibiki/dispatcher"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/models"
	"github.com/sirupsen/logrus"
)

// SettingsSource resolves the cached guild settings row
type SettingsSource func(guildID string) models.Config

// StaffChecker reports whether the user holds the staff capability
type StaffChecker func(guildID, userID string) bool

// TranscriptQueue enqueues out-of-band transcript generation after a
// close. May be nil when no task queue is wired.
type TranscriptQueue interface {
	Enqueue(ticketID string) error
}

type Manager struct {
	store       Store
	dispatch    dispatcher.Dispatcher
	settings    SettingsSource
	isStaff     StaffChecker
	transcripts TranscriptQueue
	log         *logrus.Entry
	locks       *keyedMutex

	// tests flip this off to observe side effects synchronously
	asyncEffects bool
}

func NewManager(store Store, dispatch dispatcher.Dispatcher, settings SettingsSource, isStaff StaffChecker, transcripts TranscriptQueue, log *logrus.Entry) *Manager {
	return &Manager{
		store:        store,
		dispatch:     dispatch,
		settings:     settings,
		isStaff:      isStaff,
		transcripts:  transcripts,
		log:          log,
		locks:        newKeyedMutex(),
		asyncEffects: true,
	}
}

func openLockKey(guildID, ownerID string) string {
	return "open:" + guildID + ":" + ownerID
}

func ticketLockKey(id string) string {
	return "ticket:" + id
}

// Open creates a ticket in OPEN for the owner. At most one active
// ticket per (guild, owner) may exist; a second open fails with
// ErrDuplicateActiveTicket and changes nothing.
func (m *Manager) Open(guildID, ownerID, reason string) (models.TicketEntry, error) {
	var ticket models.TicketEntry

	settings := m.settings(guildID)
	if !settings.TicketsEnabled {
		return ticket, ErrNotConfigured
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ticket, &ValidationError{Field: "description", Reason: "may not be empty"}
	}

	m.locks.Lock(openLockKey(guildID, ownerID))
	defer m.locks.Unlock(openLockKey(guildID, ownerID))

	_, exists, err := m.store.ActiveByOwner(guildID, ownerID)
	if err != nil {
		return ticket, err
	}
	if exists {
		return ticket, ErrDuplicateActiveTicket
	}

	number, err := m.store.NextNumber(guildID)
	if err != nil {
		return ticket, err
	}

	channelID, err := m.dispatch.CreateTicketChannel(
		guildID, ownerID, settings.TicketCategoryID,
		fmt.Sprintf("ticket-%04d", number),
	)
	if err != nil {
		return ticket, err
	}

	ticket, err = m.store.Insert(models.TicketEntry{
		GuildID:      guildID,
		TicketNumber: number,
		OwnerID:      ownerID,
		ChannelID:    channelID,
		Status:       models.TicketStatusOpen,
		OpenReason:   reason,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		// the row is the source of truth, drop the orphaned channel
		if deleteErr := m.dispatch.DeleteChannel(channelID); deleteErr != nil {
			m.log.Warn("failed to delete orphaned ticket channel: ", deleteErr.Error())
		}
		return ticket, err
	}

	m.log.WithField("guildID", guildID).Infof("opened ticket #%d for user #%s", number, ownerID)

	if _, err := m.dispatch.SendMessage(channelID, helpers.GetTextF(
		"plugins.ticket.opened-message", ownerID, number, reason,
	)); err != nil {
		m.reportSideEffectFailure(settings, ticket, "initial message", err)
	}

	return ticket, nil
}

// Claim moves an OPEN ticket to CLAIMED for a staff member. Racing
// claims serialize on the per-ticket lock plus the store's conditional
// write, so exactly one of them wins.
func (m *Manager) Claim(ticketID, staffID string) (models.TicketEntry, error) {
	m.locks.Lock(ticketLockKey(ticketID))
	defer m.locks.Unlock(ticketLockKey(ticketID))

	ticket, err := m.store.ByID(ticketID)
	if err != nil {
		return ticket, err
	}

	if !m.isStaff(ticket.GuildID, staffID) {
		return ticket, ErrUnauthorized
	}

	if ticket.Status != models.TicketStatusOpen {
		return ticket, ErrInvalidTransition
	}

	if err := m.store.Claim(ticketID, staffID); err != nil {
		return ticket, err
	}

	ticket.Status = models.TicketStatusClaimed
	ticket.ClaimedBy = staffID

	m.log.WithField("guildID", ticket.GuildID).Infof("ticket #%d claimed by user #%s", ticket.TicketNumber, staffID)

	if _, err := m.dispatch.SendMessage(ticket.ChannelID, helpers.GetTextF(
		"plugins.ticket.claimed-message", staffID,
	)); err != nil {
		m.reportSideEffectFailure(m.settings(ticket.GuildID), ticket, "claim notice", err)
	}

	return ticket, nil
}

// Close moves an active ticket to CLOSED. The transition commits
// first; transcript, archival and notifications run afterwards and a
// failure there never rolls the close back. A second close is rejected
// with ErrInvalidTransition instead of repeating the side effects.
func (m *Manager) Close(ticketID, closedBy, reason string) (models.TicketEntry, error) {
	m.locks.Lock(ticketLockKey(ticketID))
	defer m.locks.Unlock(ticketLockKey(ticketID))

	ticket, err := m.store.ByID(ticketID)
	if err != nil {
		return ticket, err
	}

	if closedBy != ticket.OwnerID && !m.isStaff(ticket.GuildID, closedBy) {
		return ticket, ErrUnauthorized
	}

	if !ticket.Status.Active() {
		return ticket, ErrInvalidTransition
	}

	closedAt := time.Now()
	if err := m.store.Close(ticketID, closedBy, reason, closedAt); err != nil {
		return ticket, err
	}

	ticket.Status = models.TicketStatusClosed
	ticket.ClosedBy = closedBy
	ticket.Resolution = reason
	ticket.ClosedAt = closedAt

	m.log.WithField("guildID", ticket.GuildID).Infof("ticket #%d closed by user #%s", ticket.TicketNumber, closedBy)

	if m.asyncEffects {
		go func() {
			defer helpers.Recover()
			m.closeSideEffects(ticket, closedBy, reason)
		}()
	} else {
		m.closeSideEffects(ticket, closedBy, reason)
	}

	return ticket, nil
}

func (m *Manager) closeSideEffects(ticket models.TicketEntry, closedBy, reason string) {
	settings := m.settings(ticket.GuildID)

	if m.transcripts != nil {
		if err := m.transcripts.Enqueue(helpers.MdbIdToHuman(ticket.ID)); err != nil {
			m.reportSideEffectFailure(settings, ticket, "transcript task", err)
		}
	}

	if err := m.dispatch.ArchiveChannel(ticket.ChannelID, ticket.OwnerID); err != nil {
		m.reportSideEffectFailure(settings, ticket, "channel archival", err)
	}

	if err := m.dispatch.DMUser(ticket.OwnerID, helpers.GetTextF(
		"plugins.ticket.closed-dm", ticket.TicketNumber, reason,
	)); err != nil {
		// DMs are commonly disabled, not worth a staff ping
		m.log.Info("could not DM ticket owner: ", err.Error())
	}

	if settings.LogChannelID != "" {
		messageID, err := m.dispatch.SendEmbed(settings.LogChannelID, &discordgo.MessageEmbed{
			Title: helpers.GetTextF("plugins.ticket.closed-log-title", ticket.TicketNumber),
			Description: helpers.GetTextF(
				"plugins.ticket.closed-log", ticket.TicketNumber, ticket.OwnerID, closedBy, reason,
			),
			Color: 0x0FADED,
		})
		if err != nil {
			m.log.Warn("failed to write ticket close to the log channel: ", err.Error())
			return
		}
		if err := m.store.SetLogMessageID(helpers.MdbIdToHuman(ticket.ID), messageID); err != nil {
			m.log.Warn("failed to record ticket log message: ", err.Error())
		}
	}
}

// reportSideEffectFailure logs a failed post-commit side effect and
// surfaces it to staff through the log channel. Never rolls back.
func (m *Manager) reportSideEffectFailure(settings models.Config, ticket models.TicketEntry, what string, err error) {
	m.log.WithField("guildID", ticket.GuildID).Warnf("ticket #%d: %s failed: %s", ticket.TicketNumber, what, err.Error())

	if settings.LogChannelID != "" {
		m.dispatch.SendMessage(settings.LogChannelID, helpers.GetTextF(
			"plugins.ticket.side-effect-failed", ticket.TicketNumber, what, err.Error(),
		))
	}
}

// SetCategory annotates a CLOSED ticket, staff only
func (m *Manager) SetCategory(ticketID, staffID, category string) error {
	m.locks.Lock(ticketLockKey(ticketID))
	defer m.locks.Unlock(ticketLockKey(ticketID))

	ticket, err := m.store.ByID(ticketID)
	if err != nil {
		return err
	}

	if !m.isStaff(ticket.GuildID, staffID) {
		return ErrUnauthorized
	}
	if ticket.Status != models.TicketStatusClosed {
		return ErrInvalidTransition
	}

	category = strings.TrimSpace(category)
	if category == "" {
		return &ValidationError{Field: "category", Reason: "may not be empty"}
	}

	return m.store.SetCategory(ticketID, category)
}

// SetRating lets the owner rate a CLOSED ticket 1-5. Validation runs
// before any store write, an out-of-range rating mutates nothing.
func (m *Manager) SetRating(ticketID, userID string, rating int) error {
	if rating < 1 || rating > 5 {
		return &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}

	m.locks.Lock(ticketLockKey(ticketID))
	defer m.locks.Unlock(ticketLockKey(ticketID))

	ticket, err := m.store.ByID(ticketID)
	if err != nil {
		return err
	}

	if userID != ticket.OwnerID {
		return ErrUnauthorized
	}
	if ticket.Status != models.TicketStatusClosed {
		return ErrInvalidTransition
	}

	return m.store.SetRating(ticketID, rating)
}

// SetResolution annotates a CLOSED ticket, staff only
func (m *Manager) SetResolution(ticketID, staffID, resolution string) error {
	m.locks.Lock(ticketLockKey(ticketID))
	defer m.locks.Unlock(ticketLockKey(ticketID))

	ticket, err := m.store.ByID(ticketID)
	if err != nil {
		return err
	}

	if !m.isStaff(ticket.GuildID, staffID) {
		return ErrUnauthorized
	}
	if ticket.Status != models.TicketStatusClosed {
		return ErrInvalidTransition
	}

	return m.store.SetResolution(ticketID, resolution)
}

// ByChannel resolves the ticket living in $channelID
func (m *Manager) ByChannel(guildID, channelID string) (models.TicketEntry, error) {
	return m.store.ByChannel(guildID, channelID)
}

// History lists the owner's tickets on the guild, newest first
func (m *Manager) History(guildID, ownerID string, limit int) ([]models.TicketEntry, error) {
	return m.store.History(guildID, ownerID, limit)
}

// ListGuild lists the guild's tickets, newest first
func (m *Manager) ListGuild(guildID string, limit int) ([]models.TicketEntry, error) {
	return m.store.ListGuild(guildID, limit)
}

// Purge wipes all tickets of a guild. Administrative, not a lifecycle
// transition.
func (m *Manager) Purge(guildID string) (int, error) {
	removed, err := m.store.Purge(guildID)
	if err != nil {
		return removed, err
	}

	m.log.WithField("guildID", guildID).Infof("purged %d tickets", removed)
	return removed, nil
}
