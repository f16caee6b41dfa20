package models

import (
	"time"

	"github.com/globalsign/mgo/bson"
)

const (
	TicketTable        MongoDbCollection = "tickets"
	TicketCounterTable MongoDbCollection = "ticket_counters"
)

type TicketStatus string

const (
	TicketStatusOpen    TicketStatus = "OPEN"
	TicketStatusClaimed TicketStatus = "CLAIMED"
	TicketStatusClosed  TicketStatus = "CLOSED"
)

// Active reports whether a ticket in this status still occupies the
// owner's one-active-ticket slot.
func (s TicketStatus) Active() bool {
	return s == TicketStatusOpen || s == TicketStatusClaimed
}

type TicketEntry struct {
	ID            bson.ObjectId `bson:"_id,omitempty"`
	GuildID       string
	TicketNumber  int
	OwnerID       string
	ChannelID     string
	Status        TicketStatus
	ClaimedBy     string
	ClosedBy      string
	Category      string
	Rating        int // 1-5, 0 when unrated
	Resolution    string
	OpenReason    string
	LogMessageID  string
	TranscriptURL string
	CreatedAt     time.Time
	ClosedAt      time.Time
}

// TicketCounterEntry backs the per-guild sequential ticket number,
// incremented with findAndModify so concurrent opens never collide.
type TicketCounterEntry struct {
	ID      bson.ObjectId `bson:"_id,omitempty"`
	GuildID string
	Seq     int
}
