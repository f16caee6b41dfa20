package models

import (
	"time"

	"github.com/globalsign/mgo/bson"
)

const (
	KeywordsTable MongoDbCollection = "keywords"
)

// KeywordEntry is one keyword auto-reply. IncludeMatch widens the
// match from whole words to any substring of the message.
type KeywordEntry struct {
	ID           bson.ObjectId `bson:"_id,omitempty"`
	GuildID      string
	Keyword      string
	Reply        string
	IncludeMatch bool // match anywhere in the message instead of whole words
	AddedByID    string
	AddedAt      time.Time
}
