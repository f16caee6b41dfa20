package tickets

import (
	"time"

	"github.com/hibiki-discord/hibiki/models"
)

// Store persists tickets. The lifecycle writes (Claim, Close) are
// conditional on the current status so two racing transitions can never
// both succeed; the loser gets ErrInvalidTransition.
type Store interface {
	// NextNumber atomically allocates the guild's next sequential
	// ticket number
	NextNumber(guildID string) (int, error)

	Insert(entry models.TicketEntry) (models.TicketEntry, error)

	ByID(id string) (models.TicketEntry, error)
	ByChannel(guildID, channelID string) (models.TicketEntry, error)
	ActiveByOwner(guildID, ownerID string) (models.TicketEntry, bool, error)
	History(guildID, ownerID string, limit int) ([]models.TicketEntry, error)
	ListGuild(guildID string, limit int) ([]models.TicketEntry, error)

	// Claim moves OPEN → CLAIMED, only if the ticket is still OPEN
	Claim(id string, staffID string) error
	// Close moves OPEN|CLAIMED → CLOSED, only if the ticket is still active
	Close(id string, closedBy, resolution string, at time.Time) error

	// post-closure annotations
	SetCategory(id, category string) error
	SetRating(id string, rating int) error
	SetResolution(id, resolution string) error
	SetTranscriptURL(id, url string) error
	SetLogMessageID(id, messageID string) error

	// Purge wipes every ticket row of the guild and resets its counter,
	// returning how many rows were removed
	Purge(guildID string) (int, error)
}
