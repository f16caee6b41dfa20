package plugins

import (
	"fmt"
	"strings"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/bwmarrin/discordgo"
	humanize "github.com/dustin/go-humanize"
	rediscache "github.com/go-redis/cache"
	"github.com/hibiki-discord/hibiki/cache"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/models"
	"github.com/sirupsen/logrus"
)

// GachaRank crawls the game's public pull-rarity leaderboard and shows
// the community standings. The full board is cached in redis between
// crawls since the upstream API is slow and paginated.
type GachaRank struct{}

const (
	gachaRankPageSize   = 50
	gachaRankMaxPages   = 10
	gachaRankCacheTime  = 15 * time.Minute
	gachaRankCrawlPause = 1 * time.Second
)

func (g *GachaRank) Commands() []string {
	return []string{
		"gacharank",
		"rank",
	}
}

func (g *GachaRank) Init(session *discordgo.Session) {
}

func (g *GachaRank) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	defer helpers.RecoverDiscord(msg)

	session.ChannelTyping(msg.ChannelID)

	args := strings.Fields(content)

	refresh := false
	if len(args) >= 1 && args[0] == "refresh" {
		if !helpers.IsMod(msg) {
			helpers.SendMessage(msg.ChannelID, helpers.GetText("mod.no_permission"))
			return
		}
		refresh = true
	}

	board, err := g.board(refresh)
	if err != nil {
		g.logger().Error("leaderboard crawl failed: ", err.Error())
		helpers.SendMessage(msg.ChannelID, helpers.GetText("plugins.gacharank.unavailable"))
		return
	}

	if len(board.Entries) <= 0 {
		helpers.SendMessage(msg.ChannelID, helpers.GetText("plugins.gacharank.empty"))
		return
	}

	rankText := ""
	for _, entry := range board.Entries {
		if entry.Rank > 10 {
			break
		}
		rankText += fmt.Sprintf("`#%2d` **%s** — %.2f%% (%s pulls)\n",
			entry.Rank, entry.Player, entry.Rarity, humanize.Comma(int64(entry.Pulls)))
	}

	helpers.SendEmbed(msg.ChannelID, &discordgo.MessageEmbed{
		Title:       helpers.GetText("plugins.gacharank.embed-title"),
		Description: rankText,
		Color:       helpers.GetDiscordColorFromHex("ffd700"),
		Footer: &discordgo.MessageEmbedFooter{
			Text: helpers.GetTextF("plugins.gacharank.embed-footer", board.FetchedAt.Format("15:04 MST")),
		},
	})
}

// board returns the cached leaderboard, crawling upstream when the
// cache is stale or a refresh got forced
func (g *GachaRank) board(refresh bool) (models.GachaRankRedisEntry, error) {
	boardSlug := helpers.GetConfig().Path("gacharank.board").Data().(string)
	cacheKey := fmt.Sprintf(models.GachaRankRedisKey, boardSlug)

	var board models.GachaRankRedisEntry
	if !refresh {
		if err := cache.GetRedisCacheCodec().Get(cacheKey, &board); err == nil {
			return board, nil
		}
	}

	entries, err := g.crawl(boardSlug)
	if err != nil {
		return board, err
	}

	board = models.GachaRankRedisEntry{
		Entries:   entries,
		FetchedAt: time.Now(),
	}

	err = cache.GetRedisCacheCodec().Set(&rediscache.Item{
		Key:        cacheKey,
		Object:     board,
		Expiration: gachaRankCacheTime,
	})
	helpers.RelaxLog(err)

	return board, nil
}

// crawl walks the paginated leaderboard API until a short page
func (g *GachaRank) crawl(boardSlug string) ([]models.GachaRankEntry, error) {
	apiBase := helpers.GetConfig().Path("gacharank.api-base").Data().(string)

	entries := make([]models.GachaRankEntry, 0)
	for page := 1; page <= gachaRankMaxPages; page++ {
		pageURL := fmt.Sprintf("%s/boards/%s/rankings?page=%d&per_page=%d",
			strings.TrimRight(apiBase, "/"), boardSlug, page, gachaRankPageSize)

		body, err := helpers.NetGetUAWithError(pageURL, helpers.DEFAULT_UA)
		if err != nil {
			return nil, err
		}

		parsed, err := gabs.ParseJSON(body)
		if err != nil {
			return nil, err
		}

		rows, err := parsed.Path("rankings").Children()
		if err != nil {
			return nil, err
		}

		for _, row := range rows {
			entries = append(entries, models.GachaRankEntry{
				Rank:   int(row.Path("rank").Data().(float64)),
				Player: row.Path("player_name").Data().(string),
				Rarity: row.Path("rarity_rate").Data().(float64),
				Pulls:  int(row.Path("pull_count").Data().(float64)),
			})
		}

		if len(rows) < gachaRankPageSize {
			break
		}

		// upstream throttles aggressive crawls
		time.Sleep(gachaRankCrawlPause)
	}

	return entries, nil
}

func (g *GachaRank) logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "gacharank")
}
