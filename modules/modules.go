package modules

import (
	"github.com/hibiki-discord/hibiki/antispam"
	"github.com/hibiki-discord/hibiki/modules/plugins"
	"github.com/hibiki-discord/hibiki/punishments"
	"github.com/hibiki-discord/hibiki/tickets"
)

// Deps carries the stores the plugins operate on. The launcher
// constructs them and registers the plugin lists before Init runs.
type Deps struct {
	Tickets     *tickets.Manager
	TicketStore tickets.Store
	Punishments *punishments.Store
	Tracker     *antispam.Tracker
}

var (
	pluginCache         map[string]*Plugin
	extendedPluginCache map[string]*ExtendedPlugin

	PluginList         []Plugin
	PluginExtendedList []ExtendedPlugin
)

// RegisterPlugins builds the plugin lists from their dependencies
func RegisterPlugins(deps Deps) {
	PluginList = []Plugin{
		&plugins.About{},
		&plugins.Uptime{},
		plugins.NewTicket(deps.Tickets, deps.TicketStore),
		&plugins.Todo{},
		&plugins.Market{},
		&plugins.GachaRank{},
	}

	PluginExtendedList = []ExtendedPlugin{
		plugins.NewAntispam(deps.Punishments, deps.Tracker),
		&plugins.Keywords{},
	}
}
