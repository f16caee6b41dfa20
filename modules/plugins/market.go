package plugins

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	humanize "github.com/dustin/go-humanize"
	"github.com/hibiki-discord/hibiki/cache"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/lucazulian/cryptocomparego"
	"github.com/sirupsen/logrus"
)

type marketAction func(args []string, in *discordgo.Message, out **discordgo.MessageSend) (next marketAction)

// Market posts live market prices for the community's watched coins
type Market struct {
	cryptoClient *cryptocomparego.Client
}

func (m *Market) Commands() []string {
	return []string{
		"market",
		"price",
	}
}

func (m *Market) Init(session *discordgo.Session) {
	m.cryptoClient = cryptocomparego.NewClient(helpers.DefaultClient)
}

func (m *Market) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	session.ChannelTyping(msg.ChannelID)

	var result *discordgo.MessageSend
	args := strings.Fields(content)

	action := m.actionStart
	for action != nil {
		action = action(args, msg, &result)
	}
}

func (m *Market) actionStart(args []string, in *discordgo.Message, out **discordgo.MessageSend) marketAction {
	cache.GetSession().ChannelTyping(in.ChannelID)

	return m.actionPrices
}

// [p]market [<from, eg BTC,ETH>] [<to, eg USD,EUR>]
func (m *Market) actionPrices(args []string, in *discordgo.Message, out **discordgo.MessageSend) marketAction {
	fromSymbols := []string{"BTC", "ETH"}
	toSymbols := []string{"USD", "EUR", "JPY"}

	if len(args) >= 1 {
		fromSymbols = splitSymbols(args[0])
	}
	if len(args) >= 2 {
		toSymbols = splitSymbols(args[1])
	}

	priceResults, _, err := m.cryptoClient.PriceMulti.List(context.Background(), &cryptocomparego.PriceMultiRequest{
		Fsyms:         fromSymbols,
		Tsyms:         toSymbols,
		ExtraParams:   helpers.DEFAULT_UA,
		TryConversion: true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "There is no data for any of the") {
			*out = m.newMsg(helpers.GetText("bot.arguments.invalid"))
			return m.actionFinish
		}
	}
	helpers.Relax(err)

	priceEmbed := &discordgo.MessageEmbed{
		Title:     helpers.GetText("plugins.market.embed-title"),
		Timestamp: time.Now().Format(time.RFC3339),
		Color:     helpers.GetDiscordColorFromHex("2b5a98"),
		Footer: &discordgo.MessageEmbedFooter{
			Text: helpers.GetText("plugins.market.embed-footer"),
		},
		Fields: []*discordgo.MessageEmbedField{},
	}

	sort.Slice(priceResults, func(i, j int) bool {
		return priceResults[i].Name < priceResults[j].Name
	})

	for _, priceResult := range priceResults {
		sort.Slice(priceResult.Value, func(i, j int) bool {
			return priceResult.Value[i].Name < priceResult.Value[j].Name
		})

		var priceText string
		for _, price := range priceResult.Value {
			priceText += price.Name + ": `" + humanize.FormatFloat("#,###.####", price.Value) + "`, "
		}
		priceText = strings.TrimRight(priceText, ", ")

		priceEmbed.Fields = append(priceEmbed.Fields, &discordgo.MessageEmbedField{
			Name:   "1 " + priceResult.Name,
			Value:  priceText,
			Inline: false,
		})
	}

	*out = &discordgo.MessageSend{
		Embed: priceEmbed,
	}
	return m.actionFinish
}

func splitSymbols(raw string) []string {
	symbols := make([]string, 0)
	for _, symbol := range strings.Split(raw, ",") {
		symbols = append(symbols, strings.ToUpper(strings.TrimSpace(symbol)))
	}
	return symbols
}

func (m *Market) actionFinish(args []string, in *discordgo.Message, out **discordgo.MessageSend) marketAction {
	_, err := helpers.SendComplex(in.ChannelID, *out)
	helpers.RelaxMessage(err, in.ChannelID, in.ID)

	return nil
}

func (m *Market) newMsg(content string) *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: helpers.GetText(content)}
}

func (m *Market) logger() *logrus.Entry {
	return cache.GetLogger().WithField("module", "market")
}
