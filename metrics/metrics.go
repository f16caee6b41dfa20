package metrics

import (
	"expvar"
	"net/http"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hibiki-discord/hibiki/cache"
	"github.com/hibiki-discord/hibiki/helpers"
)

var (
	// MessagesReceived counts all ever received messages
	MessagesReceived = expvar.NewInt("messages_received")

	// CommandsExecuted increases after each command execution
	CommandsExecuted = expvar.NewInt("commands_executed")

	// SpamVerdicts counts every non-clean anti-spam verdict
	SpamVerdicts = expvar.NewInt("spam_verdicts")

	// PunishmentsApplied counts applied spam punishments
	PunishmentsApplied = expvar.NewInt("punishments_applied")

	// TicketsOpened counts opened tickets
	TicketsOpened = expvar.NewInt("tickets_opened")

	// TicketsClosed counts closed tickets
	TicketsClosed = expvar.NewInt("tickets_closed")

	// KeywordReplies counts keyword auto-replies sent
	KeywordReplies = expvar.NewInt("keyword_replies")

	// UserCount counts all known users
	UserCount = expvar.NewInt("user_count")

	// ChannelCount counts all watched channels
	ChannelCount = expvar.NewInt("channel_count")

	// GuildCount counts all joined guilds
	GuildCount = expvar.NewInt("guild_count")

	// CoroutineCount counts all running goroutines
	CoroutineCount = expvar.NewInt("coroutine_count")

	// Uptime stores the timestamp of the bot's boot
	Uptime = expvar.NewInt("uptime")
)

// Init starts a http server on $metrics_ip:1337
func Init() {
	cache.GetLogger().WithField("module", "metrics").Info("metrics listening on TCP/1337")
	Uptime.Set(time.Now().Unix())
	go http.ListenAndServe(helpers.GetConfig().Path("metrics_ip").Data().(string)+":1337", nil)
}

// OnReady listens for said discord event
func OnReady(session *discordgo.Session, event *discordgo.Ready) {
	go CollectDiscordMetrics(session)
	go CollectRuntimeMetrics()
}

// OnMessageCreate listens for said discord event
func OnMessageCreate(session *discordgo.Session, event *discordgo.MessageCreate) {
	MessagesReceived.Add(1)
}

// CollectDiscordMetrics counts guilds, channels and users
func CollectDiscordMetrics(session *discordgo.Session) {
	for {
		time.Sleep(15 * time.Second)

		users := make(map[string]string)
		channels := 0
		guilds := session.State.Guilds

		for _, guild := range guilds {
			channels += len(guild.Channels)

			for _, u := range guild.Members {
				users[u.User.ID] = u.User.Username
			}
		}

		UserCount.Set(int64(len(users)))
		ChannelCount.Set(int64(channels))
		GuildCount.Set(int64(len(guilds)))
	}
}

// CollectRuntimeMetrics counts all running goroutines
func CollectRuntimeMetrics() {
	for {
		time.Sleep(15 * time.Second)

		CoroutineCount.Set(int64(runtime.NumGoroutine()))
	}
}
