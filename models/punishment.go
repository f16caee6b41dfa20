package models

import (
	"time"

	"github.com/globalsign/mgo/bson"
)

const (
	PunishmentTable MongoDbCollection = "punishments"

	PunishmentRedisKey = "punishment:%s:%s" // guild ID, user ID
)

type PunishmentEntry struct {
	ID            bson.ObjectId `bson:"_id,omitempty"`
	GuildID       string
	UserID        string
	PunishedUntil time.Time
	Verdict       string
	CreatedAt     time.Time
}

// PunishmentRedisEntry is the cache representation, TTL'd to match
// PunishedUntil.
type PunishmentRedisEntry struct {
	PunishedUntil time.Time
	Verdict       string
}
