package tickets

import (
	"time"

	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/models"
)

// MongoStore is the production Store on top of the mdb helpers.
type MongoStore struct{}

func NewMongoStore() *MongoStore {
	return &MongoStore{}
}

// NextNumber increments the guild's counter row with findAndModify, so
// two concurrent opens always see distinct numbers.
func (s *MongoStore) NextNumber(guildID string) (int, error) {
	var counter models.TicketCounterEntry

	err := helpers.MdbFindAndModify(
		models.TicketCounterTable,
		bson.M{"guildid": guildID},
		mgo.Change{
			Update:    bson.M{"$inc": bson.M{"seq": 1}},
			Upsert:    true,
			ReturnNew: true,
		},
		&counter,
	)
	if err != nil {
		return 0, err
	}

	return counter.Seq, nil
}

func (s *MongoStore) Insert(entry models.TicketEntry) (models.TicketEntry, error) {
	id, err := helpers.MDbInsert(models.TicketTable, &entry)
	if err != nil {
		return entry, err
	}

	entry.ID = id
	return entry, nil
}

func (s *MongoStore) ByID(id string) (models.TicketEntry, error) {
	var entry models.TicketEntry

	if !bson.IsObjectIdHex(id) {
		return entry, ErrTicketNotFound
	}

	err := helpers.MdbOne(
		helpers.MdbCollection(models.TicketTable).FindId(bson.ObjectIdHex(id)),
		&entry,
	)
	if helpers.IsMdbNotFound(err) {
		return entry, ErrTicketNotFound
	}

	return entry, err
}

func (s *MongoStore) ByChannel(guildID, channelID string) (models.TicketEntry, error) {
	var entry models.TicketEntry

	err := helpers.MdbOne(
		helpers.MdbCollection(models.TicketTable).Find(
			bson.M{"guildid": guildID, "channelid": channelID},
		),
		&entry,
	)
	if helpers.IsMdbNotFound(err) {
		return entry, ErrTicketNotFound
	}

	return entry, err
}

func (s *MongoStore) ActiveByOwner(guildID, ownerID string) (models.TicketEntry, bool, error) {
	var entry models.TicketEntry

	err := helpers.MdbOne(
		helpers.MdbCollection(models.TicketTable).Find(bson.M{
			"guildid": guildID,
			"ownerid": ownerID,
			"status":  bson.M{"$in": []models.TicketStatus{models.TicketStatusOpen, models.TicketStatusClaimed}},
		}),
		&entry,
	)
	if helpers.IsMdbNotFound(err) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, err
	}

	return entry, true, nil
}

func (s *MongoStore) History(guildID, ownerID string, limit int) ([]models.TicketEntry, error) {
	var entries []models.TicketEntry

	err := helpers.MDbIter(
		helpers.MdbCollection(models.TicketTable).
			Find(bson.M{"guildid": guildID, "ownerid": ownerID}).
			Sort("-ticketnumber").
			Limit(limit),
	).All(&entries)

	return entries, err
}

func (s *MongoStore) ListGuild(guildID string, limit int) ([]models.TicketEntry, error) {
	var entries []models.TicketEntry

	err := helpers.MDbIter(
		helpers.MdbCollection(models.TicketTable).
			Find(bson.M{"guildid": guildID}).
			Sort("-ticketnumber").
			Limit(limit),
	).All(&entries)

	return entries, err
}

// conditionalUpdate runs a status-guarded update and maps a selector
// miss on an existing ticket to ErrInvalidTransition
func (s *MongoStore) conditionalUpdate(id string, statuses []models.TicketStatus, set bson.M) error {
	if !bson.IsObjectIdHex(id) {
		return ErrTicketNotFound
	}

	err := helpers.MDbUpdateQuery(
		models.TicketTable,
		bson.M{"_id": bson.ObjectIdHex(id), "status": bson.M{"$in": statuses}},
		bson.M{"$set": set},
	)
	if helpers.IsMdbNotFound(err) {
		// either the ticket is gone or its status moved under us
		if _, lookupErr := s.ByID(id); lookupErr != nil {
			return lookupErr
		}
		return ErrInvalidTransition
	}

	return err
}

func (s *MongoStore) Claim(id string, staffID string) error {
	return s.conditionalUpdate(id,
		[]models.TicketStatus{models.TicketStatusOpen},
		bson.M{"status": models.TicketStatusClaimed, "claimedby": staffID},
	)
}

func (s *MongoStore) Close(id string, closedBy, resolution string, at time.Time) error {
	return s.conditionalUpdate(id,
		[]models.TicketStatus{models.TicketStatusOpen, models.TicketStatusClaimed},
		bson.M{"status": models.TicketStatusClosed, "closedby": closedBy, "resolution": resolution, "closedat": at},
	)
}

func (s *MongoStore) SetCategory(id, category string) error {
	return s.conditionalUpdate(id,
		[]models.TicketStatus{models.TicketStatusClosed},
		bson.M{"category": category},
	)
}

func (s *MongoStore) SetRating(id string, rating int) error {
	return s.conditionalUpdate(id,
		[]models.TicketStatus{models.TicketStatusClosed},
		bson.M{"rating": rating},
	)
}

func (s *MongoStore) SetResolution(id, resolution string) error {
	return s.conditionalUpdate(id,
		[]models.TicketStatus{models.TicketStatusClosed},
		bson.M{"resolution": resolution},
	)
}

func (s *MongoStore) SetTranscriptURL(id, url string) error {
	return s.conditionalUpdate(id,
		[]models.TicketStatus{models.TicketStatusClosed},
		bson.M{"transcripturl": url},
	)
}

func (s *MongoStore) SetLogMessageID(id, messageID string) error {
	return s.conditionalUpdate(id,
		[]models.TicketStatus{models.TicketStatusClosed},
		bson.M{"logmessageid": messageID},
	)
}

// Purge removes every ticket row and the counter in one sweep. Removal
// is per-document atomic, a failure partway leaves full rows behind,
// never half-mutated ones.
func (s *MongoStore) Purge(guildID string) (int, error) {
	removed, err := helpers.MdbDeleteAll(models.TicketTable, bson.M{"guildid": guildID})
	if err != nil {
		return removed, err
	}

	err = helpers.MdbDeleteQuery(models.TicketCounterTable, bson.M{"guildid": guildID})
	if helpers.IsMdbNotFound(err) {
		err = nil
	}

	return removed, err
}
