package migrations

import (
	"github.com/globalsign/mgo"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/models"
)

func m1_create_indexes_tickets() {
	tickets := helpers.GetMDb().C(string(models.TicketTable))

	err := tickets.EnsureIndex(mgo.Index{
		Key:        []string{"guildid", "ticketnumber"},
		Unique:     true,
		Background: true,
	})
	helpers.Relax(err)

	err = tickets.EnsureIndex(mgo.Index{
		Key:        []string{"guildid", "channelid"},
		Background: true,
	})
	helpers.Relax(err)

	err = tickets.EnsureIndex(mgo.Index{
		Key:        []string{"guildid", "ownerid", "status"},
		Background: true,
	})
	helpers.Relax(err)

	err = helpers.GetMDb().C(string(models.TicketCounterTable)).EnsureIndex(mgo.Index{
		Key:        []string{"guildid"},
		Unique:     true,
		Background: true,
	})
	helpers.Relax(err)
}
