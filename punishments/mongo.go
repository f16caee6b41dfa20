package punishments

import (
	"time"

	"github.com/globalsign/mgo/bson"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/models"
)

// MongoDurable keeps punishment rows in the punishments collection so
// active windows survive a restart with a cold cache.
type MongoDurable struct{}

func NewMongoDurable() *MongoDurable {
	return &MongoDurable{}
}

func (m *MongoDurable) Upsert(entry models.PunishmentEntry) error {
	// one row per punishment; expired rows stay around as offense
	// history for the escalation rule
	_, err := helpers.MDbInsert(models.PunishmentTable, entry)
	return err
}

func (m *MongoDurable) Get(guildID, userID string) (models.PunishmentEntry, bool, error) {
	var entry models.PunishmentEntry

	err := helpers.MdbOne(
		helpers.MdbCollection(models.PunishmentTable).
			Find(bson.M{"guildid": guildID, "userid": userID}).
			Sort("-punisheduntil"),
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

// Delete cuts an active window short, keeping rows that already
// expired as history
func (m *MongoDurable) Delete(guildID, userID string) error {
	now := time.Now()
	err := helpers.MDbUpdateQuery(
		models.PunishmentTable,
		bson.M{"guildid": guildID, "userid": userID, "punisheduntil": bson.M{"$gt": now}},
		bson.M{"$set": bson.M{"punisheduntil": now}},
	)
	if helpers.IsMdbNotFound(err) {
		return nil
	}
	return err
}

func (m *MongoDurable) CountSince(guildID, userID string, since time.Time) (int, error) {
	return helpers.MdbCount(
		models.PunishmentTable,
		bson.M{"guildid": guildID, "userid": userID, "createdat": bson.M{"$gte": since}},
	)
}
