package helpers

import (
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/hibiki-discord/hibiki/cache"
)

var botAdmins = []string{
	"162686257029087232",
}

var mentionRegex = regexp.MustCompile(`<@!?(\d+)>`)
var channelMentionRegex = regexp.MustCompile(`<#(\d+)>`)

// IsBotAdmin checks if $id is in $botAdmins
func IsBotAdmin(id string) bool {
	for _, s := range botAdmins {
		if s == id {
			return true
		}
	}

	return false
}

func IsAdmin(msg *discordgo.Message) bool {
	channel, e := GetChannel(msg.ChannelID)
	if e != nil {
		return false
	}

	guild, e := GetGuild(channel.GuildID)
	if e != nil {
		return false
	}

	if msg.Author.ID == guild.OwnerID || IsBotAdmin(msg.Author.ID) {
		return true
	}

	guildMember, e := GetGuildMember(guild.ID, msg.Author.ID)
	if e != nil {
		return false
	}
	// Check if a role may manage the server
	for _, role := range guild.Roles {
		for _, userRole := range guildMember.Roles {
			if userRole == role.ID && role.Permissions&discordgo.PermissionManageServer == discordgo.PermissionManageServer {
				return true
			}
		}
	}

	return false
}

// IsMod checks for guild staff: the configured staff role, the manage
// messages permission, or anything IsAdmin accepts
func IsMod(msg *discordgo.Message) bool {
	if IsAdmin(msg) {
		return true
	}

	channel, e := GetChannel(msg.ChannelID)
	if e != nil {
		return false
	}

	guildMember, e := GetGuildMember(channel.GuildID, msg.Author.ID)
	if e != nil {
		return false
	}

	settings := GuildSettingsGetCached(channel.GuildID)
	for _, userRole := range guildMember.Roles {
		if settings.StaffRoleID != "" && userRole == settings.StaffRoleID {
			return true
		}
	}

	guild, e := GetGuild(channel.GuildID)
	if e != nil {
		return false
	}
	for _, role := range guild.Roles {
		for _, userRole := range guildMember.Roles {
			if userRole == role.ID && role.Permissions&discordgo.PermissionManageMessages == discordgo.PermissionManageMessages {
				return true
			}
		}
	}

	return false
}

// HasStaffRole checks the staff capability without a message context,
// used by the ticket manager to guard claims
func HasStaffRole(guildID string, userID string) bool {
	guildMember, e := GetGuildMember(guildID, userID)
	if e != nil {
		return false
	}

	settings := GuildSettingsGetCached(guildID)
	for _, userRole := range guildMember.Roles {
		if settings.StaffRoleID != "" && userRole == settings.StaffRoleID {
			return true
		}
	}

	guild, e := GetGuild(guildID)
	if e != nil {
		return false
	}
	if guild.OwnerID == userID {
		return true
	}
	for _, role := range guild.Roles {
		for _, userRole := range guildMember.Roles {
			if userRole == role.ID && role.Permissions&discordgo.PermissionManageMessages == discordgo.PermissionManageMessages {
				return true
			}
		}
	}

	return false
}

// RequireAdmin only calls $cb if the author is an admin or has MANAGE_SERVER permission
func RequireAdmin(msg *discordgo.Message, cb Callback) {
	if !IsAdmin(msg) {
		SendMessage(msg.ChannelID, GetText("admin.no_permission"))
		return
	}

	cb()
}

// RequireMod only calls $cb if the author is guild staff
func RequireMod(msg *discordgo.Message, cb Callback) {
	if !IsMod(msg) {
		SendMessage(msg.ChannelID, GetText("mod.no_permission"))
		return
	}

	cb()
}

// RequireBotAdmin only calls $cb if the author is a bot admin
func RequireBotAdmin(msg *discordgo.Message, cb Callback) {
	if !IsBotAdmin(msg.Author.ID) {
		SendMessage(msg.ChannelID, GetText("botadmin.no_permission"))
		return
	}

	cb()
}

func GetChannel(channelID string) (*discordgo.Channel, error) {
	return cache.Channel(channelID)
}

func GetGuild(guildID string) (*discordgo.Guild, error) {
	guild, err := cache.GetSession().State.Guild(guildID)
	if err == nil {
		return guild, nil
	}

	return cache.GetSession().Guild(guildID)
}

func GetUser(userID string) (*discordgo.User, error) {
	return cache.GetSession().User(userID)
}

func GetGuildMember(guildID string, userID string) (*discordgo.Member, error) {
	member, err := cache.GetSession().State.Member(guildID, userID)
	if err == nil {
		return member, nil
	}

	return cache.GetSession().GuildMember(guildID, userID)
}

// GetUserFromMention resolves an @mention or a raw snowflake to a user
func GetUserFromMention(mention string) (*discordgo.User, error) {
	result := mentionRegex.FindStringSubmatch(mention)
	if len(result) == 2 {
		return GetUser(result[1])
	}

	return GetUser(mention)
}

// GetChannelFromMention resolves a #mention to a channel on the same guild
func GetChannelFromMention(msg *discordgo.Message, mention string) (*discordgo.Channel, error) {
	result := channelMentionRegex.FindStringSubmatch(mention)
	if len(result) != 2 {
		return nil, ErrInvalidMention
	}

	targetChannel, err := GetChannel(result[1])
	if err != nil {
		return nil, err
	}

	sourceChannel, err := GetChannel(msg.ChannelID)
	if err != nil {
		return nil, err
	}

	if targetChannel.GuildID != sourceChannel.GuildID {
		return nil, ErrInvalidMention
	}

	return targetChannel, nil
}

// GetRoleFromMention resolves a role mention or raw ID to a role on $guildID
func GetRoleFromMention(guildID string, mention string) (*discordgo.Role, error) {
	roleID := strings.TrimSuffix(strings.TrimPrefix(mention, "<@&"), ">")

	guild, err := GetGuild(guildID)
	if err != nil {
		return nil, err
	}

	for _, role := range guild.Roles {
		if role.ID == roleID {
			return role, nil
		}
	}

	return nil, ErrInvalidMention
}

// SendMessage sends $content to $channelID, splitting messages that
// exceed the length limit
func SendMessage(channelID string, content string) (messages []*discordgo.Message, err error) {
	var message *discordgo.Message

	pages := Pagify(content, "\n")
	for _, page := range pages {
		message, err = cache.GetSession().ChannelMessageSend(channelID, page)
		if err != nil {
			return messages, err
		}
		messages = append(messages, message)
	}

	return messages, nil
}

func SendEmbed(channelID string, embed *discordgo.MessageEmbed) (messages []*discordgo.Message, err error) {
	message, err := cache.GetSession().ChannelMessageSendEmbed(channelID, embed)
	if err != nil {
		return nil, err
	}

	return []*discordgo.Message{message}, nil
}

func SendComplex(channelID string, data *discordgo.MessageSend) (messages []*discordgo.Message, err error) {
	if data.Embed == nil && data.File == nil {
		return SendMessage(channelID, data.Content)
	}

	message, err := cache.GetSession().ChannelMessageSendComplex(channelID, data)
	if err != nil {
		return nil, err
	}

	return []*discordgo.Message{message}, nil
}

// Pagify splits $text into chunks that fit into a single discord
// message, preferring to break on $delimiter
func Pagify(text string, delimiter string) []string {
	const maxLength = 1950

	if len(text) <= maxLength {
		return []string{text}
	}

	pages := make([]string, 0)
	page := ""
	for _, line := range strings.Split(text, delimiter) {
		if len(page)+len(line)+len(delimiter) > maxLength {
			pages = append(pages, page)
			page = ""
		}
		if page != "" {
			page += delimiter
		}
		page += line
	}
	if page != "" {
		pages = append(pages, page)
	}

	return pages
}

// ConfirmEmbed asks $author to confirm an action via reactions
func ConfirmEmbed(channelID string, author *discordgo.User, confirmMessageText string, confirmEmojiID string, abortEmojiID string) bool {
	confirmMessage, err := cache.GetSession().ChannelMessageSendEmbed(channelID, &discordgo.MessageEmbed{
		Title:       GetTextF("bot.embeds.please-confirm-title", author.Username),
		Description: confirmMessageText,
	})
	if err != nil {
		SendMessage(channelID, GetTextF("bot.errors.general", err.Error()))
		return false
	}

	defer cache.GetSession().ChannelMessageDelete(confirmMessage.ChannelID, confirmMessage.ID)

	cache.GetSession().MessageReactionAdd(confirmMessage.ChannelID, confirmMessage.ID, confirmEmojiID)
	cache.GetSession().MessageReactionAdd(confirmMessage.ChannelID, confirmMessage.ID, abortEmojiID)

	// poll the reactions, give up after two minutes
	for i := 0; i < 120; i++ {
		confirms, _ := cache.GetSession().MessageReactions(confirmMessage.ChannelID, confirmMessage.ID, confirmEmojiID, 100)
		for _, confirm := range confirms {
			if confirm.ID == author.ID {
				return true
			}
		}
		aborts, _ := cache.GetSession().MessageReactions(confirmMessage.ChannelID, confirmMessage.ID, abortEmojiID, 100)
		for _, abort := range aborts {
			if abort.ID == author.ID {
				return false
			}
		}

		time.Sleep(1 * time.Second)
	}

	return false
}

func GetAvatarUrl(user *discordgo.User) string {
	if user.Avatar == "" {
		return ""
	}

	return discordgo.EndpointUserAvatar(user.ID, user.Avatar)
}
