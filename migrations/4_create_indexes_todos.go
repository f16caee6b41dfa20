package migrations

import (
	"github.com/globalsign/mgo"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/models"
)

func m4_create_indexes_todos() {
	err := helpers.GetMDb().C(string(models.TodoTable)).EnsureIndex(mgo.Index{
		Key:        []string{"userid", "done"},
		Background: true,
	})
	helpers.Relax(err)
}
