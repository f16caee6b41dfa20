package migrations

import (
	"github.com/globalsign/mgo"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/models"
)

func m2_create_indexes_punishments() {
	err := helpers.GetMDb().C(string(models.PunishmentTable)).EnsureIndex(mgo.Index{
		Key:        []string{"guildid", "userid", "createdat"},
		Background: true,
	})
	helpers.Relax(err)
}
