package plugins

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/globalsign/mgo/bson"
	"github.com/hibiki-discord/hibiki/helpers"
	"github.com/hibiki-discord/hibiki/models"
)

// Todo keeps a small per-user task list
type Todo struct{}

func (t *Todo) Commands() []string {
	return []string{
		"todo",
		"todos",
	}
}

func (t *Todo) Init(session *discordgo.Session) {
}

func (t *Todo) Action(command string, content string, msg *discordgo.Message, session *discordgo.Session) {
	defer helpers.RecoverDiscord(msg)

	session.ChannelTyping(msg.ChannelID)

	args := strings.Fields(content)
	if len(args) < 1 {
		t.list(msg)
		return
	}

	switch args[0] {
	case "add":
		text := strings.TrimSpace(strings.TrimPrefix(content, args[0]))
		if text == "" {
			helpers.SendMessage(msg.ChannelID, helpers.GetText("bot.arguments.too-few"))
			return
		}

		_, err := helpers.MDbInsert(models.TodoTable, models.TodoEntry{
			UserID:    msg.Author.ID,
			Text:      text,
			CreatedAt: time.Now(),
		})
		helpers.Relax(err)

		helpers.SendMessage(msg.ChannelID, helpers.GetText("plugins.todo.add-success"))
	case "done", "remove":
		if len(args) < 2 {
			helpers.SendMessage(msg.ChannelID, helpers.GetText("bot.arguments.too-few"))
			return
		}

		index, err := strconv.Atoi(args[1])
		if err != nil || index < 1 {
			helpers.SendMessage(msg.ChannelID, helpers.GetText("bot.arguments.invalid"))
			return
		}

		entries := t.openEntries(msg.Author.ID)
		if index > len(entries) {
			helpers.SendMessage(msg.ChannelID, helpers.GetText("plugins.todo.not-found"))
			return
		}
		entry := entries[index-1]

		if args[0] == "remove" {
			helpers.Relax(helpers.MDbDelete(models.TodoTable, entry.ID))
			helpers.SendMessage(msg.ChannelID, helpers.GetText("plugins.todo.remove-success"))
			return
		}

		entry.Done = true
		entry.DoneAt = time.Now()
		helpers.Relax(helpers.MDbUpdate(models.TodoTable, entry.ID, entry))

		helpers.SendMessage(msg.ChannelID, helpers.GetText("plugins.todo.done-success"))
	case "list":
		t.list(msg)
	default:
		helpers.SendMessage(msg.ChannelID, helpers.GetText("bot.arguments.invalid"))
	}
}

func (t *Todo) list(msg *discordgo.Message) {
	entries := t.openEntries(msg.Author.ID)
	if len(entries) <= 0 {
		helpers.SendMessage(msg.ChannelID, helpers.GetText("plugins.todo.list-empty"))
		return
	}

	listText := ""
	for i, entry := range entries {
		listText += fmt.Sprintf("`%d.` %s\n", i+1, entry.Text)
	}

	helpers.SendEmbed(msg.ChannelID, &discordgo.MessageEmbed{
		Title:       helpers.GetTextF("plugins.todo.list-title", msg.Author.Username),
		Description: listText,
		Color:       0x0FADED,
	})
}

func (t *Todo) openEntries(userID string) (entries []models.TodoEntry) {
	err := helpers.MDbIter(helpers.MdbCollection(models.TodoTable).
		Find(bson.M{"userid": userID, "done": false}).Sort("createdat")).All(&entries)
	helpers.Relax(err)
	return entries
}
