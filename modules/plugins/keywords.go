package plugins

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/globalsign/mgo/bson"
	"github.com/hibiki-discord/hibiki/cache"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/metrics"
	"github.com/hibiki-discord/hibiki/models"
	"github.com/sirupsen/logrus"
)

// Keywords posts canned replies when a configured keyword shows up in
// chat. Entries are kept in memory per guild and reloaded on change.
type Keywords struct {
	sync.RWMutex
	entries map[string][]models.KeywordEntry
}

func (k *Keywords) Commands() []string {
	return []string{
		"keyword",
		"keywords",
	}
}

func (k *Keywords) Init(session *discordgo.Session) {
	k.Lock()
	k.entries = make(map[string][]models.KeywordEntry)
	k.Unlock()
}

func (k *Keywords) Uninit(session *discordgo.Session) {
}

func (k *Keywords) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	defer helpers.RecoverDiscord(msg)

	if !helpers.IsMod(msg) {
		helpers.SendMessage(msg.ChannelID, helpers.GetText("mod.no_permission"))
		return
	}

	session.ChannelTyping(msg.ChannelID)

	channel, err := helpers.GetChannel(msg.ChannelID)
	helpers.Relax(err)

	args := strings.Fields(content)
	if len(args) < 1 {
		helpers.SendMessage(msg.ChannelID, helpers.GetText("bot.arguments.too-few"))
		return
	}

	switch args[0] {
	case "add":
		// [p]keyword add [include] <keyword> | <reply>
		rest := strings.TrimSpace(strings.TrimPrefix(content, args[0]))

		includeMatch := false
		if strings.HasPrefix(rest, "include ") {
			includeMatch = true
			rest = strings.TrimSpace(strings.TrimPrefix(rest, "include"))
		}

		parts := strings.SplitN(rest, "|", 2)
		if len(parts) < 2 {
			helpers.SendMessage(msg.ChannelID, helpers.GetText("bot.arguments.too-few"))
			return
		}
		keyword := strings.ToLower(strings.TrimSpace(parts[0]))
		reply := strings.TrimSpace(parts[1])
		if keyword == "" || reply == "" {
			helpers.SendMessage(msg.ChannelID, helpers.GetText("bot.arguments.invalid"))
			return
		}

		_, err = helpers.MDbInsert(models.KeywordsTable, models.KeywordEntry{
			GuildID:      channel.GuildID,
			Keyword:      keyword,
			Reply:        reply,
			IncludeMatch: includeMatch,
			AddedByID:    msg.Author.ID,
			AddedAt:      time.Now(),
		})
		helpers.Relax(err)

		k.reload(channel.GuildID)
		k.logger().WithField("guildID", channel.GuildID).Infof("user #%s added keyword %q", msg.Author.ID, keyword)

		helpers.SendMessage(msg.ChannelID, helpers.GetText("plugins.keywords.add-success"))
	case "remove", "delete":
		if len(args) < 2 {
			helpers.SendMessage(msg.ChannelID, helpers.GetText("bot.arguments.too-few"))
			return
		}
		keyword := strings.ToLower(strings.TrimSpace(strings.Join(args[1:], " ")))

		removed, err := helpers.MdbDeleteAll(models.KeywordsTable, bson.M{
			"guildid": channel.GuildID, "keyword": keyword,
		})
		helpers.Relax(err)

		if removed <= 0 {
			helpers.SendMessage(msg.ChannelID, helpers.GetText("plugins.keywords.remove-not-found"))
			return
		}

		k.reload(channel.GuildID)

		helpers.SendMessage(msg.ChannelID, helpers.GetText("plugins.keywords.remove-success"))
	case "list":
		entries := k.guildEntries(channel.GuildID)
		if len(entries) <= 0 {
			helpers.SendMessage(msg.ChannelID, helpers.GetText("plugins.keywords.list-empty"))
			return
		}

		listText := ""
		for _, entry := range entries {
			mode := "word"
			if entry.IncludeMatch {
				mode = "include"
			}
			listText += fmt.Sprintf("`%s` (%s): %s\n", entry.Keyword, mode, entry.Reply)
		}
		helpers.SendMessage(msg.ChannelID, listText)
	case "enable":
		settings := helpers.GuildSettingsGetCached(channel.GuildID)
		settings.KeywordsEnabled = true
		helpers.Relax(helpers.GuildSettingsSet(channel.GuildID, settings))
		helpers.SendMessage(msg.ChannelID, helpers.GetText("plugins.keywords.enabled"))
	case "disable":
		settings := helpers.GuildSettingsGetCached(channel.GuildID)
		settings.KeywordsEnabled = false
		helpers.Relax(helpers.GuildSettingsSet(channel.GuildID, settings))
		helpers.SendMessage(msg.ChannelID, helpers.GetText("plugins.keywords.disabled"))
	default:
		helpers.SendMessage(msg.ChannelID, helpers.GetText("bot.arguments.invalid"))
	}
}

func (k *Keywords) OnMessage(content string, msg *discordgo.Message, session *discordgo.Session) {
	defer helpers.Recover()

	if msg.Author == nil || msg.Author.Bot {
		return
	}

	channel, err := helpers.GetChannel(msg.ChannelID)
	if err != nil || channel.GuildID == "" {
		return
	}

	settings := helpers.GuildSettingsGetCached(channel.GuildID)
	if !settings.KeywordsEnabled {
		return
	}

	lowered := strings.ToLower(content)
	words := strings.Fields(lowered)

	for _, entry := range k.guildEntries(channel.GuildID) {
		matched := false
		if entry.IncludeMatch {
			matched = strings.Contains(lowered, entry.Keyword)
		} else {
			for _, word := range words {
				if word == entry.Keyword {
					matched = true
					break
				}
			}
		}
		if !matched {
			continue
		}

		metrics.KeywordReplies.Add(1)

		_, err := helpers.SendMessage(msg.ChannelID, entry.Reply)
		helpers.RelaxLog(err)
		return
	}
}

func (k *Keywords) OnGuildMemberAdd(member *discordgo.Member, session *discordgo.Session) {
}

func (k *Keywords) OnGuildMemberRemove(member *discordgo.Member, session *discordgo.Session) {
}

// guildEntries lazily loads and caches the guild's keywords
func (k *Keywords) guildEntries(guildID string) []models.KeywordEntry {
	k.RLock()
	entries, ok := k.entries[guildID]
	k.RUnlock()
	if ok {
		return entries
	}

	return k.reload(guildID)
}

func (k *Keywords) reload(guildID string) []models.KeywordEntry {
	var entries []models.KeywordEntry
	err := helpers.MDbIter(helpers.MdbCollection(models.KeywordsTable).Find(bson.M{"guildid": guildID})).All(&entries)
	if err != nil {
		k.logger().WithField("guildID", guildID).Error("failed to load keywords: ", err.Error())
		entries = nil
	}

	k.Lock()
	k.entries[guildID] = entries
	k.Unlock()

	return entries
}

func (k *Keywords) logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "keywords")
}
