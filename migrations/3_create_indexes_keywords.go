package migrations

import (
	"github.com/globalsign/mgo"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/models"
)

func m3_create_indexes_keywords() {
	err := helpers.GetMDb().C(string(models.KeywordsTable)).EnsureIndex(mgo.Index{
		Key:        []string{"guildid", "keyword"},
		Background: true,
	})
	helpers.Relax(err)
}
