package models

import (
	"time"

	"github.com/globalsign/mgo/bson"
)

const (
	GuildConfigTable MongoDbCollection = "guild_config"
)

// Config holds the per-guild settings row. One row per guild,
// read-mostly, cached in process and invalidated on admin updates.
type Config struct {
	ID      bson.ObjectId `bson:"_id,omitempty"`
	GuildID string

	Prefix string

	// support desk
	TicketsEnabled   bool
	StaffRoleID      string
	TicketCategoryID string
	LogChannelID     string
	PanelChannelID   string
	PanelMessageID   string

	// anti-spam. Thresholds are inclusive, windows in milliseconds.
	AntispamEnabled           bool
	SingleChannelThreshold    int
	SingleChannelTimeWindow   int64
	MultiChannelThreshold     int
	MultiChannelTimeWindow    int64
	SpamPunishmentDuration    time.Duration
	SpamPunishmentEscalation  float64 // <= 1 means flat duration
	SpamRepeatWindow          time.Duration
	MutedRoleID               string
	AntispamIgnoredChannelIDs []string

	KeywordsEnabled bool
}

// Default returns the settings used before a guild got its own row
func (c Config) Default(guild string) Config {
	return Config{
		GuildID: guild,

		Prefix: "_",

		TicketsEnabled: false,

		AntispamEnabled:          false,
		SingleChannelThreshold:   5,
		SingleChannelTimeWindow:  10000,
		MultiChannelThreshold:    6,
		MultiChannelTimeWindow:   12000,
		SpamPunishmentDuration:   10 * time.Minute,
		SpamPunishmentEscalation: 1,
		SpamRepeatWindow:         24 * time.Hour,

		KeywordsEnabled: true,
	}
}
