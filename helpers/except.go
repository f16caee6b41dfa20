// Except.go: Contains functions to make handling panics less PITA

package helpers

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/getsentry/raven-go"
	"github.com/hibiki-discord/hibiki/cache"
)

// DEBUG_MODE is toggled by the "debug" config flag
var DEBUG_MODE = false

type Callback func()

// RecoverDiscord recover()s and sends a message to discord
func RecoverDiscord(msg *discordgo.Message) {
	err := recover()
	if err != nil {
		SendError(msg, err)
	}
}

// Recover recover()s and reports the error to sentry
func Recover() {
	err := recover()
	if err != nil {
		fmt.Printf("%#v\n", err)

		raven.CaptureError(fmt.Errorf("%#v", err), map[string]string{})
	}
}

// SoftRelax calls a callback instead of panicking
func SoftRelax(err error, cb Callback) {
	if err != nil {
		cb()
	}
}

// Relax is a helper to reduce if-checks if panicking is allowed
// If $err is nil this is a no-op. Panics otherwise.
func Relax(err error) {
	if err != nil {
		if DEBUG_MODE == true {
			fmt.Printf("%#v\n", err)
		}
		panic(err)
	}
}

// RelaxLog logs the error without aborting the current call chain
func RelaxLog(err error) {
	if err != nil {
		cache.GetLogger().WithField("module", "helpers").Error(err.Error())
		raven.CaptureError(err, map[string]string{})
	}
}

// RelaxMessage does nothing if $err is nil or if there are no
// permissions to send a message, else sends it to Relax()
func RelaxMessage(err error, channelID string, commandMessageID string) {
	if err != nil {
		if errD, ok := err.(*discordgo.RESTError); ok && errD.Message != nil {
			if errD.Message.Code == discordgo.ErrCodeMissingPermissions {
				if channelID != "" && commandMessageID != "" {
					cache.GetSession().MessageReactionAdd(channelID, commandMessageID, "🚫")
				}
				return
			}
		}
		Relax(err)
	}
}

// SendError takes an error and sends it to discord and sentry.io
func SendError(msg *discordgo.Message, err interface{}) {
	if DEBUG_MODE == true {
		buf := make([]byte, 1<<16)
		stackSize := runtime.Stack(buf, false)

		cache.GetSession().ChannelMessageSend(
			msg.ChannelID,
			"Error 😞\n```\n"+fmt.Sprintf("%#v\n", err)+fmt.Sprintf("%s\n", string(buf[0:stackSize]))+"\n```",
		)
	} else {
		if errR, ok := err.(*discordgo.RESTError); ok && errR != nil && errR.Message != nil {
			if msg != nil {
				cache.GetSession().ChannelMessageSend(
					msg.ChannelID,
					"Error 😞\n```\n"+fmt.Sprintf("%#v", errR.Message.Message)+"\n```",
				)
			}
		} else {
			if msg != nil {
				cache.GetSession().ChannelMessageSend(
					msg.ChannelID,
					"Error 😞\n```\n"+fmt.Sprintf("%#v", err)+"\n```",
				)
			}
		}
	}

	if msg != nil {
		raven.SetUserContext(&raven.User{
			ID:       msg.ID,
			Username: msg.Author.Username + "#" + msg.Author.Discriminator,
		})

		raven.CaptureError(fmt.Errorf("%#v", err), map[string]string{
			"ChannelID":       msg.ChannelID,
			"Content":         msg.Content,
			"Timestamp":       string(msg.Timestamp),
			"TTS":             strconv.FormatBool(msg.Tts),
			"MentionEveryone": strconv.FormatBool(msg.MentionEveryone),
			"IsBot":           strconv.FormatBool(msg.Author.Bot),
		})
	}
}
