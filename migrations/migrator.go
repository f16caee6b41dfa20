package migrations

import (
	"reflect"
	"runtime"

	"github.com/hibiki-discord/hibiki/cache"
	"github.com/hibiki-discord/hibiki/helpers"
)

var migrations = []helpers.Callback{
	m0_create_indexes_guild_config,
	m1_create_indexes_tickets,
	m2_create_indexes_punishments,
	m3_create_indexes_keywords,
	m4_create_indexes_todos,
}

// Run executes all registered migrations
func Run() {
	log := cache.GetLogger().WithField("module", "migrations")
	log.Info("running migrations...")

	for _, migration := range migrations {
		migrationName := runtime.FuncForPC(
			reflect.ValueOf(migration).Pointer(),
		).Name()

		log.Infof("running %s", migrationName)
		migration()
	}

	log.Info("migrations finished")
}
