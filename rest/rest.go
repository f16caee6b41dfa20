// Package rest exposes a small read-only API over the bot's state for
// the community dashboard.
package rest

import (
	"net/http"
	"time"

	"github.com/emicklei/go-restful"
	"github.com/hibiki-discord/hibiki/cache"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/models"
	"github.com/hibiki-discord/hibiki/punishments"
	"github.com/hibiki-discord/hibiki/tickets"
	"github.com/hibiki-discord/hibiki/version"
	"github.com/pkg/errors"
)

var (
	ticketStore     tickets.Store
	punishmentStore *punishments.Store
	bootedAt        time.Time
)

// Init wires the stores the handlers read from
func Init(ticketStoreIn tickets.Store, punishmentStoreIn *punishments.Store) {
	ticketStore = ticketStoreIn
	punishmentStore = punishmentStoreIn
	bootedAt = time.Now()
}

func NewRestServices() []*restful.WebService {
	services := make([]*restful.WebService, 0)

	service := new(restful.WebService)
	service.
		Path("/status").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)
	service.Route(service.GET("").To(GetStatus))
	services = append(services, service)

	service = new(restful.WebService)
	service.
		Path("/guild").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	service.Route(service.GET("/{guild-id}").To(FindGuild))
	services = append(services, service)

	service = new(restful.WebService)
	service.
		Path("/tickets").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	service.Route(service.GET("/{guild-id}").To(GetGuildTickets))
	service.Route(service.GET("/{guild-id}/user/{user-id}").To(GetUserTickets))
	services = append(services, service)

	service = new(restful.WebService)
	service.
		Path("/punishment").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	service.Route(service.GET("/{guild-id}/{user-id}").To(GetPunishment))
	services = append(services, service)

	return services
}

func GetStatus(request *restful.Request, response *restful.Response) {
	response.WriteEntity(&models.Rest_Status{
		Version: version.BOT_VERSION,
		Uptime:  bootedAt,
		Guilds:  len(cache.GetSession().State.Guilds),
	})
}

func FindGuild(request *restful.Request, response *restful.Response) {
	guildID := request.PathParameter("guild-id")

	guild, _ := helpers.GetGuild(guildID)
	if guild == nil || guild.ID == "" {
		response.WriteError(http.StatusNotFound, errors.New("Guild not found."))
		return
	}

	response.WriteEntity(&models.Rest_Guild{
		ID:        guild.ID,
		Name:      guild.Name,
		Icon:      guild.Icon,
		OwnerID:   guild.OwnerID,
		BotPrefix: helpers.GetPrefixForServer(guild.ID),
	})
}

func GetGuildTickets(request *restful.Request, response *restful.Response) {
	guildID := request.PathParameter("guild-id")

	entries, err := ticketStore.ListGuild(guildID, 100)
	if err != nil {
		response.WriteError(http.StatusInternalServerError, errors.New("Ticket lookup failed."))
		return
	}

	response.WriteEntity(restTickets(entries))
}

func GetUserTickets(request *restful.Request, response *restful.Response) {
	guildID := request.PathParameter("guild-id")
	userID := request.PathParameter("user-id")

	entries, err := ticketStore.History(guildID, userID, 100)
	if err != nil {
		response.WriteError(http.StatusInternalServerError, errors.New("Ticket lookup failed."))
		return
	}

	response.WriteEntity(restTickets(entries))
}

func GetPunishment(request *restful.Request, response *restful.Response) {
	guildID := request.PathParameter("guild-id")
	userID := request.PathParameter("user-id")

	state := punishmentStore.Get(guildID, userID, time.Now())
	if state == nil {
		response.WriteError(http.StatusNotFound, errors.New("No active punishment."))
		return
	}

	response.WriteEntity(&models.Rest_Punishment{
		GuildID:       guildID,
		UserID:        userID,
		Verdict:       state.Verdict,
		PunishedUntil: state.PunishedUntil,
	})
}

func restTickets(entries []models.TicketEntry) []models.Rest_Ticket {
	result := make([]models.Rest_Ticket, 0, len(entries))
	for _, entry := range entries {
		result = append(result, models.Rest_Ticket{
			ID:           helpers.MdbIdToHuman(entry.ID),
			TicketNumber: entry.TicketNumber,
			OwnerID:      entry.OwnerID,
			Status:       string(entry.Status),
			ClosedBy:     entry.ClosedBy,
			Category:     entry.Category,
			Rating:       entry.Rating,
			Resolution:   entry.Resolution,
			CreatedAt:    entry.CreatedAt,
			ClosedAt:     entry.ClosedAt,
		})
	}
	return result
}
