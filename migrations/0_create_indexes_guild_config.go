package migrations

import (
	"github.com/globalsign/mgo"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/models"
)

func m0_create_indexes_guild_config() {
	err := helpers.GetMDb().C(string(models.GuildConfigTable)).EnsureIndex(mgo.Index{
		Key:        []string{"guildid"},
		Unique:     true,
		Background: true,
	})
	helpers.Relax(err)
}
